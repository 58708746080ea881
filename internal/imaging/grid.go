package imaging

import (
	"fmt"
	"image"
)

// Intensity values used by edge maps.
const (
	EdgeValue    uint8 = 255
	NonEdgeValue uint8 = 0
)

// PixelGrid is a single-channel 8-bit intensity image stored row-major.
//
// The pixel at (x, y) lives at Pix[y*Width+x]. A well-formed grid satisfies
// len(Pix) == Width*Height. Edge maps produced by Detect are PixelGrids whose
// pixels are either EdgeValue or NonEdgeValue.
type PixelGrid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelGrid allocates a zeroed grid of the given dimensions.
// Negative dimensions are treated as zero.
func NewPixelGrid(width, height int) *PixelGrid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &PixelGrid{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// At returns the intensity at (x, y). Coordinates must be inside the grid.
func (g *PixelGrid) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// Set stores v at (x, y). Coordinates must be inside the grid.
func (g *PixelGrid) Set(x, y int, v uint8) {
	g.Pix[y*g.Width+x] = v
}

// Empty reports whether the grid has no pixels.
func (g *PixelGrid) Empty() bool {
	return g == nil || g.Width == 0 || g.Height == 0
}

// Count returns how many pixels equal v. For an edge map,
// Count(EdgeValue) is the number of edge pixels.
func (g *PixelGrid) Count(v uint8) int {
	n := 0
	for _, p := range g.Pix {
		if p == v {
			n++
		}
	}
	return n
}

// Gray returns the grid as an *image.Gray sharing no memory with g.
func (g *PixelGrid) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	copy(img.Pix, g.Pix)
	return img
}

// grayView wraps the pixels as an *image.Gray without copying. The image
// aliases g and must only be read.
func (g *PixelGrid) grayView() *image.Gray {
	return &image.Gray{
		Pix:    g.Pix,
		Stride: g.Width,
		Rect:   image.Rect(0, 0, g.Width, g.Height),
	}
}

// Validate reports a KindEmptyGrid or KindMalformedGrid error when the grid
// cannot be processed.
func (g *PixelGrid) Validate() error {
	return g.validate("validate")
}

// validate checks the structural invariants every stage relies on.
func (g *PixelGrid) validate(op string) error {
	if g.Empty() {
		if g == nil {
			return newError(op, KindEmptyGrid, fmt.Errorf("nil grid"))
		}
		return newError(op, KindEmptyGrid, fmt.Errorf("grid is %dx%d", g.Width, g.Height))
	}
	if g.Width < 0 || g.Height < 0 || len(g.Pix) != g.Width*g.Height {
		return newError(op, KindMalformedGrid,
			fmt.Errorf("grid is %dx%d but holds %d pixels", g.Width, g.Height, len(g.Pix)))
	}
	return nil
}

// gridFromGray copies an *image.Gray into a new grid, honouring its stride
// and bounds origin.
func gridFromGray(img *image.Gray) *PixelGrid {
	b := img.Bounds()
	g := NewPixelGrid(b.Dx(), b.Dy())
	for y := 0; y < g.Height; y++ {
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(g.Pix[y*g.Width:(y+1)*g.Width], img.Pix[src:src+g.Width])
	}
	return g
}
