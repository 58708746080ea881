package imaging

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality matches the default quality of OpenCV's imencode.
const DefaultJPEGQuality = 95

type encodeConfig struct {
	quality int
}

// EncodeOption tunes Encode.
type EncodeOption func(*encodeConfig)

// WithQuality sets the JPEG quality (1-100). Values outside that range
// fall back to DefaultJPEGQuality.
func WithQuality(q int) EncodeOption {
	return func(c *encodeConfig) {
		c.quality = q
	}
}

// Encode serializes an edge map (or any grid) as a single-channel JPEG.
//
// Returns:
//   - []byte: The complete JPEG container.
//   - error: KindEmptyGrid or KindMalformedGrid for an unusable grid,
//     KindEncode if compression fails.
func Encode(edges *PixelGrid, opts ...EncodeOption) ([]byte, error) {
	cfg := encodeConfig{quality: DefaultJPEGQuality}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.quality < 1 || cfg.quality > 100 {
		cfg.quality = DefaultJPEGQuality
	}

	if err := edges.validate("encode"); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(edges.Pix) / 4)
	if err := imaging.Encode(&buf, edges.grayView(), imaging.JPEG, imaging.JPEGQuality(cfg.quality)); err != nil {
		return nil, newError("encode", KindEncode, err)
	}
	return buf.Bytes(), nil
}
