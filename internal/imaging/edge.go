package imaging

import (
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// Thresholds are the hysteresis bounds applied to gradient magnitude.
//
// Magnitudes are measured on the 0-255 intensity scale with an unnormalized
// Sobel operator, so a hard black-to-white step peaks near 4*255.
type Thresholds struct {
	// Low is the weakest magnitude that can still become an edge, and only
	// when connected to a strong pixel.
	Low int

	// High is the magnitude at or above which a pixel is always an edge.
	High int
}

// Validate reports a KindInvalidThresholds error unless 0 <= Low <= High.
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.Low > t.High {
		return newError("detect", KindInvalidThresholds,
			fmt.Errorf("want 0 <= low <= high, got low=%d high=%d", t.Low, t.High))
	}
	return nil
}

// Quantized gradient directions, in degrees from the +X axis with Y pointing down.
const (
	dir0 uint8 = iota
	dir45
	dir90
	dir135
)

// gaussianKernel is a 5x5 Gaussian with sigma ≈ 1.4. Its entries sum to
// gaussianKernelSum.
var gaussianKernel = [5][5]float64{
	{1, 4, 7, 4, 1},
	{4, 16, 26, 16, 4},
	{7, 26, 41, 26, 7},
	{4, 16, 26, 16, 4},
	{1, 4, 7, 4, 1},
}

const gaussianKernelSum = 273.0

var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// gradientField holds per-pixel gradient magnitude and quantized direction.
type gradientField struct {
	width     int
	height    int
	magnitude []float64
	direction []uint8
}

// Detect runs the Canny edge detector over a grayscale grid.
//
// Parameters:
//   - grid: Source intensities. Not modified.
//   - t: Hysteresis thresholds; must satisfy 0 <= Low <= High.
//
// Returns:
//   - *PixelGrid: Edge map of the same dimensions with EdgeValue (255) at
//     edge pixels and NonEdgeValue (0) elsewhere.
//   - error: KindInvalidThresholds, KindEmptyGrid or KindMalformedGrid.
//     Thresholds are checked before the grid.
//
// # Algorithm
//
//  1. Gaussian blur: 5x5 kernel, replicated borders
//
//  2. Gradient computation: Sobel operators for X and Y
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx), quantized to 0°, 45°, 90° or 135°
//
//  3. Non-maximum suppression: a pixel survives only if its magnitude is
//     strictly greater than the neighbour behind it along the gradient and
//     at least the neighbour ahead of it. The asymmetry keeps exactly one
//     pixel of a ridge whose two crest pixels are equal.
//
//  4. Hysteresis thresholding:
//     - Survivors with magnitude >= High are strong edges
//     - Survivors with Low <= magnitude < High are weak
//     - Weak pixels are kept only when 8-connected, directly or through
//     other weak pixels, to a strong edge
//
// Blur, gradient and suppression run row-parallel. Each worker writes only
// its own rows, so the output is deterministic.
//
// Working memory is about 18 bytes per pixel: two float64 planes (the blur
// plane is reused for the suppressed magnitudes), the direction plane and
// the edge map.
func Detect(grid *PixelGrid, t Thresholds) (*PixelGrid, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := grid.validate("detect"); err != nil {
		return nil, err
	}

	blurred := gaussianBlur(grid.Pix, grid.Width, grid.Height)
	field := computeGradients(blurred, grid.Width, grid.Height)
	// The blurred sums are dead once gradients exist
	suppressed := nonMaxSuppression(field, blurred)

	return hysteresis(suppressed, grid.Width, grid.Height, t), nil
}

// gaussianBlur convolves the grid with gaussianKernel.
//
// The result is NOT divided by gaussianKernelSum: every output is an exact
// integer, so identical neighbourhoods produce bit-identical gradients.
// computeGradients divides the magnitude instead.
func gaussianBlur(pix []uint8, width, height int) []float64 {
	result := make([]float64, width*height)

	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < width; x++ {
				var sum float64
				for ky := -2; ky <= 2; ky++ {
					row := clamp(y+ky, 0, height-1) * width
					for kx := -2; kx <= 2; kx++ {
						px := clamp(x+kx, 0, width-1)
						sum += float64(pix[row+px]) * gaussianKernel[ky+2][kx+2]
					}
				}
				result[y*width+x] = sum
			}
		}
	})

	return result
}

// computeGradients applies the Sobel operators to the blurred sums.
func computeGradients(blurred []float64, width, height int) *gradientField {
	field := &gradientField{
		width:     width,
		height:    height,
		magnitude: make([]float64, width*height),
		direction: make([]uint8, width*height),
	}

	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < width; x++ {
				var gx, gy float64
				for ky := -1; ky <= 1; ky++ {
					row := clamp(y+ky, 0, height-1) * width
					for kx := -1; kx <= 1; kx++ {
						v := blurred[row+clamp(x+kx, 0, width-1)]
						gx += v * sobelX[ky+1][kx+1]
						gy += v * sobelY[ky+1][kx+1]
					}
				}
				i := y*width + x
				field.magnitude[i] = math.Sqrt(gx*gx+gy*gy) / gaussianKernelSum
				field.direction[i] = quantizeDirection(gx, gy)
			}
		}
	})

	return field
}

// quantizeDirection maps a gradient vector to the nearest of the four
// canonical directions. Opposite vectors share a direction.
func quantizeDirection(gx, gy float64) uint8 {
	angle := math.Atan2(gy, gx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return dir0
	case angle < 67.5:
		return dir45
	case angle < 112.5:
		return dir90
	default:
		return dir135
	}
}

// directionStep is the (dx, dy) offset of the neighbour ahead of a pixel
// along each quantized direction. The neighbour behind is (-dx, -dy).
var directionStep = [4][2]int{
	dir0:   {1, 0},
	dir45:  {1, 1},
	dir90:  {0, 1},
	dir135: {-1, 1},
}

// nonMaxSuppression thins the gradient ridges to one-pixel width into dst,
// which must hold width*height values and is overwritten entirely.
// Suppressed pixels hold 0; survivors keep their magnitude. Neighbours
// outside the grid count as magnitude 0, so border pixels are processed
// like any other.
func nonMaxSuppression(field *gradientField, dst []float64) []float64 {
	width, height := field.width, field.height
	result := dst[:width*height]

	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= width || y >= height {
			return 0
		}
		return field.magnitude[y*width+x]
	}

	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < width; x++ {
				i := y*width + x
				mag := field.magnitude[i]
				step := directionStep[field.direction[i]]

				behind := magAt(x-step[0], y-step[1])
				ahead := magAt(x+step[0], y+step[1])

				if mag > behind && mag >= ahead {
					result[i] = mag
				} else {
					result[i] = 0
				}
			}
		}
	})

	return result
}

// hysteresis classifies suppressed magnitudes and traces weak pixels that
// connect to strong ones. The trace is an iterative flood fill over the
// 8-neighbourhood seeded from every strong pixel.
func hysteresis(suppressed []float64, width, height int, t Thresholds) *PixelGrid {
	low := float64(t.Low)
	high := float64(t.High)
	edges := NewPixelGrid(width, height)

	candidate := func(i int) bool {
		m := suppressed[i]
		return m > 0 && m >= low
	}

	var stack []int
	for i, m := range suppressed {
		if m <= 0 || m < high || edges.Pix[i] == EdgeValue {
			continue
		}

		edges.Pix[i] = EdgeValue
		stack = append(stack[:0], i)

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := cur%width, cur/width

			for dy := -1; dy <= 1; dy++ {
				ny := cy + dy
				if ny < 0 || ny >= height {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := cx + dx
					if (dx == 0 && dy == 0) || nx < 0 || nx >= width {
						continue
					}
					j := ny*width + nx
					if edges.Pix[j] != EdgeValue && candidate(j) {
						edges.Pix[j] = EdgeValue
						stack = append(stack, j)
					}
				}
			}
		}
	}

	return edges
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
