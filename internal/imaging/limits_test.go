package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"runtime"
	"strings"
	"testing"
)

// pngHeaderOnly returns a PNG signature and IHDR chunk declaring an 8-bit
// gray image, with no pixel data. It is enough for Inspect and costs a few
// bytes regardless of the declared size.
func pngHeaderOnly(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth, then color type 0 (gray), no interlace

	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	crc := crc32.NewIEEE()
	crc.Write([]byte("IHDR"))
	crc.Write(ihdr)
	buf.WriteString("IHDR")
	buf.Write(ihdr)
	binary.Write(&buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

func TestDecode_DeclaredAreaOverLimit(t *testing.T) {
	buf := pngHeaderOnly(7000, 7000)

	info, err := Inspect(buf)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Pixels() != 49_000_000 {
		t.Fatalf("Pixels: got %d, want 49000000", info.Pixels())
	}

	grid, err := Decode(buf, WithMaxPixels(16_000_000))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("got error %v, want ErrDecode", err)
	}
	if grid != nil {
		t.Error("expected no grid on failure")
	}
	// Rejected by the header check, not by running out of pixel data
	if !strings.Contains(err.Error(), "7000x7000, over the limit") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDetect_WorkingMemory(t *testing.T) {
	const width, height = 512, 512
	grid := createStepGrid(width, height, width/2, false)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	edges, err := Detect(grid, Thresholds{Low: 20, High: 60})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	runtime.ReadMemStats(&after)
	runtime.KeepAlive(edges)

	perPixel := float64(after.TotalAlloc-before.TotalAlloc) / (width * height)
	if perPixel > 20 {
		t.Errorf("Detect allocated %.1f bytes per pixel, want <= 20", perPixel)
	}
}

func TestPixelGrid_GrayViewAliases(t *testing.T) {
	grid := createGradientGrid(6, 3)
	view := grid.grayView()

	if view.Bounds().Dx() != 6 || view.Bounds().Dy() != 3 {
		t.Fatalf("bounds: got %v", view.Bounds())
	}
	if view.GrayAt(5, 2).Y != grid.At(5, 2) {
		t.Errorf("(5,2): got %d, want %d", view.GrayAt(5, 2).Y, grid.At(5, 2))
	}
	if &view.Pix[0] != &grid.Pix[0] {
		t.Error("grayView copied the pixels")
	}
}
