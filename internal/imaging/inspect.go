package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
)

// ImageInfo describes an encoded image without decoding its pixels.
type ImageInfo struct {
	// Width is the image width in pixels, before any EXIF rotation.
	Width int `json:"width"`

	// Height is the image height in pixels, before any EXIF rotation.
	Height int `json:"height"`

	// Format is the registered name of the container: "png", "jpeg", "gif",
	// "bmp" or "tiff". It is sniffed from the header, never from a file name
	// or content type.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the colour model can carry transparency.
	HasAlpha bool `json:"has_alpha"`
}

// Pixels returns Width*Height.
func (i *ImageInfo) Pixels() int64 {
	return int64(i.Width) * int64(i.Height)
}

// Inspect reads only the container header of buf.
//
// Returns a KindDecode *Error when buf is empty or its header is not a
// recognized image. A successful Inspect does not guarantee that Decode
// succeeds; the pixel data may still be truncated or corrupt.
func Inspect(buf []byte) (*ImageInfo, error) {
	if len(buf) == 0 {
		return nil, newError("inspect", KindDecode, fmt.Errorf("empty buffer"))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return nil, newError("inspect", KindDecode, err)
	}

	info := &ImageInfo{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Format:     format,
		ColorDepth: "8-bit",
	}

	if p, ok := cfg.ColorModel.(color.Palette); ok {
		info.HasAlpha = paletteHasAlpha(p)
		return info, nil
	}
	switch cfg.ColorModel {
	case color.NRGBAModel, color.AlphaModel:
		info.HasAlpha = true
	case color.NRGBA64Model, color.Alpha16Model:
		info.HasAlpha = true
		info.ColorDepth = "16-bit"
	case color.RGBA64Model, color.Gray16Model:
		info.ColorDepth = "16-bit"
	}

	return info, nil
}

func paletteHasAlpha(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return true
		}
	}
	return false
}
