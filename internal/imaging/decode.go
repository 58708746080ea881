package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"
)

type decodeConfig struct {
	luminance       Luminance
	autoOrientation bool
	maxPixels       int64
}

// DecodeOption tunes Decode.
type DecodeOption func(*decodeConfig)

// WithLuminance selects the colour-to-gray reduction for multi-channel
// sources. Single-channel sources are never re-weighted.
func WithLuminance(l Luminance) DecodeOption {
	return func(c *decodeConfig) {
		c.luminance = l
	}
}

// WithAutoOrientation toggles applying the EXIF orientation tag of JPEG
// sources. Enabled by default.
func WithAutoOrientation(enabled bool) DecodeOption {
	return func(c *decodeConfig) {
		c.autoOrientation = enabled
	}
}

// WithMaxPixels rejects images whose header declares more than n pixels
// before any pixel data is decoded. n <= 0 disables the check.
func WithMaxPixels(n int64) DecodeOption {
	return func(c *decodeConfig) {
		c.maxPixels = n
	}
}

// Decode parses an encoded image container and reduces it to a grayscale grid.
//
// Parameters:
//   - buf: Encoded image bytes. PNG, JPEG, GIF, BMP and TIFF are recognized
//     by their headers; the caller's content type is not consulted.
//   - opts: Optional luminance model and orientation handling.
//
// Returns:
//   - *PixelGrid: A freshly allocated grid owned by the caller.
//   - error: A KindDecode *Error if buf is empty, truncated, not a
//     recognized image, or larger than the WithMaxPixels limit. No partial
//     grid is returned on failure.
//
// # Grayscale Conversion
//
// *image.Gray sources are copied verbatim. Every other colour model is
// converted to non-premultiplied RGBA first and then reduced with the
// selected Luminance (BT.601 by default). Alpha is ignored.
func Decode(buf []byte, opts ...DecodeOption) (*PixelGrid, error) {
	cfg := decodeConfig{
		luminance:       LuminanceBT601,
		autoOrientation: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(buf) == 0 {
		return nil, newError("decode", KindDecode, fmt.Errorf("empty buffer"))
	}

	if cfg.maxPixels > 0 {
		info, err := Inspect(buf)
		if err != nil {
			return nil, err
		}
		if info.Pixels() > cfg.maxPixels {
			return nil, newError("decode", KindDecode,
				fmt.Errorf("%s image is %dx%d, over the limit of %d pixels", info.Format, info.Width, info.Height, cfg.maxPixels))
		}
	}

	img, err := imaging.Decode(bytes.NewReader(buf), imaging.AutoOrientation(cfg.autoOrientation))
	if err != nil {
		return nil, newError("decode", KindDecode, err)
	}

	if gray, ok := img.(*image.Gray); ok {
		return gridFromGray(gray), nil
	}
	return reduceToGray(img, cfg.luminance), nil
}

// reduceToGray converts any image to a grid using the given luminance model.
func reduceToGray(img image.Image, lum Luminance) *PixelGrid {
	src, ok := img.(*image.NRGBA)
	if !ok || src.Rect.Min != (image.Point{}) {
		src = imaging.Clone(img)
	}
	width := src.Bounds().Dx()
	height := src.Bounds().Dy()
	grid := NewPixelGrid(width, height)

	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+width*4]
			out := grid.Pix[y*width : (y+1)*width]
			for x := 0; x < width; x++ {
				i := x * 4
				out[x] = lum.intensity(row[i], row[i+1], row[i+2])
			}
		}
	})

	return grid
}
