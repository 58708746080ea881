package imaging

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Luminance selects how colour pixels are reduced to a single intensity.
type Luminance string

const (
	// LuminanceBT601 weights channels per ITU-R BT.601:
	// 0.299*R + 0.587*G + 0.114*B. This is the default and matches the
	// grayscale conversion used by most codecs and OpenCV.
	LuminanceBT601 Luminance = "bt601"

	// LuminanceBT709 weights channels per ITU-R BT.709 (HDTV primaries):
	// 0.2126*R + 0.7152*G + 0.0722*B.
	LuminanceBT709 Luminance = "bt709"

	// LuminanceLightness uses the CIE L* component of the pixel in
	// L*a*b* space, scaled from [0,1] to [0,255].
	LuminanceLightness Luminance = "lightness"
)

// ParseLuminance maps a configuration string onto a Luminance model.
func ParseLuminance(s string) (Luminance, error) {
	switch l := Luminance(s); l {
	case LuminanceBT601, LuminanceBT709, LuminanceLightness:
		return l, nil
	case "":
		return LuminanceBT601, nil
	default:
		return "", fmt.Errorf("unknown luminance model: %s", s)
	}
}

// intensity reduces 8-bit straight RGB components to one 8-bit value.
func (l Luminance) intensity(r, g, b uint8) uint8 {
	var v float64
	switch l {
	case LuminanceBT709:
		v = 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
	case LuminanceLightness:
		c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
		lightness, _, _ := c.Lab()
		v = lightness * 255.0
	default:
		v = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	}
	return clampToByte(v)
}

// clampToByte rounds half away from zero and clamps into [0, 255].
func clampToByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
