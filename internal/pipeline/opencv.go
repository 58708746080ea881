//go:build gocv

package pipeline

// OpenCV backend. Built only with -tags gocv and a local OpenCV 4 install;
// it runs the same stages through gocv's IMDecode, Canny and IMEncode.

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ironsheep/edge-map-service/internal/imaging"
)

func init() {
	register("opencv", newOpenCVBackend)
}

type opencvBackend struct {
	quality   int
	maxPixels int64
}

func newOpenCVBackend(opts BackendOptions) (Backend, error) {
	q := opts.JPEGQuality
	if q < 1 || q > 100 {
		q = imaging.DefaultJPEGQuality
	}
	return &opencvBackend{quality: q, maxPixels: opts.MaxPixels}, nil
}

func (b *opencvBackend) Name() string { return "opencv" }

// Decode lets OpenCV reduce the image to gray while decoding
// (IMReadGrayScale), which uses BT.601 weights for colour input.
func (b *opencvBackend) Decode(buf []byte) (*imaging.PixelGrid, error) {
	if len(buf) == 0 {
		return nil, &imaging.Error{Op: "decode", Kind: imaging.KindDecode, Err: fmt.Errorf("empty buffer")}
	}

	if b.maxPixels > 0 {
		info, err := imaging.Inspect(buf)
		if err != nil {
			return nil, err
		}
		if info.Pixels() > b.maxPixels {
			return nil, &imaging.Error{Op: "decode", Kind: imaging.KindDecode,
				Err: fmt.Errorf("%s image is %dx%d, over the limit of %d pixels", info.Format, info.Width, info.Height, b.maxPixels)}
		}
	}

	mat, err := gocv.IMDecode(buf, gocv.IMReadGrayScale)
	if err != nil {
		return nil, &imaging.Error{Op: "decode", Kind: imaging.KindDecode, Err: err}
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, &imaging.Error{Op: "decode", Kind: imaging.KindDecode, Err: fmt.Errorf("unrecognized image data")}
	}
	return matToGrid(mat), nil
}

func (b *opencvBackend) Detect(grid *imaging.PixelGrid, t imaging.Thresholds) (*imaging.PixelGrid, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	src, err := gocv.NewMatFromBytes(grid.Height, grid.Width, gocv.MatTypeCV8UC1, grid.Pix)
	if err != nil {
		return nil, &imaging.Error{Op: "detect", Kind: imaging.KindMalformedGrid, Err: err}
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	if err := gocv.Canny(src, &dst, float32(t.Low), float32(t.High)); err != nil {
		return nil, fmt.Errorf("opencv canny: %w", err)
	}
	return matToGrid(dst), nil
}

func (b *opencvBackend) Encode(edges *imaging.PixelGrid) ([]byte, error) {
	if err := edges.Validate(); err != nil {
		return nil, err
	}

	mat, err := gocv.NewMatFromBytes(edges.Height, edges.Width, gocv.MatTypeCV8UC1, edges.Pix)
	if err != nil {
		return nil, &imaging.Error{Op: "encode", Kind: imaging.KindEncode, Err: err}
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, b.quality})
	if err != nil {
		return nil, &imaging.Error{Op: "encode", Kind: imaging.KindEncode, Err: err}
	}
	defer buf.Close()

	// The native buffer is freed on Close
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// matToGrid copies a continuous single-channel 8-bit Mat.
func matToGrid(m gocv.Mat) *imaging.PixelGrid {
	return &imaging.PixelGrid{
		Width:  m.Cols(),
		Height: m.Rows(),
		Pix:    m.ToBytes(),
	}
}
