package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// encodePNG encodes img as PNG for use as decoder input.
func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// createGradientGrid builds a horizontal 0..255 ramp.
func createGradientGrid(width, height int) *PixelGrid {
	grid := NewPixelGrid(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			grid.Set(x, y, uint8(x*255/(width-1)))
		}
	}
	return grid
}

func TestDecode_GrayPNGRoundTrip(t *testing.T) {
	src := createNoisyRectGrid(64, 48, 5)

	grid, err := Decode(encodePNG(t, src.Gray()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if grid.Width != 64 || grid.Height != 48 {
		t.Fatalf("dimensions: got %dx%d, want 64x48", grid.Width, grid.Height)
	}
	for i := range src.Pix {
		if grid.Pix[i] != src.Pix[i] {
			t.Fatalf("pixel %d: got %d, want %d", i, grid.Pix[i], src.Pix[i])
		}
	}
}

func TestDecode_JPEGRoundTrip(t *testing.T) {
	src := createGradientGrid(128, 32)

	encoded, err := Encode(src)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	grid, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if grid.Width != src.Width || grid.Height != src.Height {
		t.Fatalf("dimensions: got %dx%d, want %dx%d", grid.Width, grid.Height, src.Width, src.Height)
	}

	// Lossy, but a smooth ramp at quality 95 stays close
	for i := range src.Pix {
		if d := abs(int(grid.Pix[i]) - int(src.Pix[i])); d > 8 {
			t.Fatalf("pixel %d: got %d, want %d±8", i, grid.Pix[i], src.Pix[i])
		}
	}
}

func TestDecode_ColorLuminance(t *testing.T) {
	tests := []struct {
		name  string
		model Luminance
		c     color.NRGBA
		want  uint8
	}{
		{"bt601 red", LuminanceBT601, color.NRGBA{255, 0, 0, 255}, 76},
		{"bt601 green", LuminanceBT601, color.NRGBA{0, 255, 0, 255}, 150},
		{"bt601 blue", LuminanceBT601, color.NRGBA{0, 0, 255, 255}, 29},
		{"bt601 white", LuminanceBT601, color.NRGBA{255, 255, 255, 255}, 255},
		{"bt709 red", LuminanceBT709, color.NRGBA{255, 0, 0, 255}, 54},
		{"bt709 green", LuminanceBT709, color.NRGBA{0, 255, 0, 255}, 182},
		{"lightness black", LuminanceLightness, color.NRGBA{0, 0, 0, 255}, 0},
		{"lightness white", LuminanceLightness, color.NRGBA{255, 255, 255, 255}, 255},
		{"alpha ignored", LuminanceBT601, color.NRGBA{255, 0, 0, 0}, 76},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
			for y := 0; y < 3; y++ {
				for x := 0; x < 4; x++ {
					img.SetNRGBA(x, y, tt.c)
				}
			}

			grid, err := Decode(encodePNG(t, img), WithLuminance(tt.model))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			for i, p := range grid.Pix {
				if p != tt.want {
					t.Fatalf("pixel %d: got %d, want %d", i, p, tt.want)
				}
			}
		})
	}
}

func TestDecode_GrayIgnoresLuminanceModel(t *testing.T) {
	src := createGradientGrid(16, 4)

	grid, err := Decode(encodePNG(t, src.Gray()), WithLuminance(LuminanceLightness))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for i := range src.Pix {
		if grid.Pix[i] != src.Pix[i] {
			t.Fatalf("pixel %d: got %d, want %d", i, grid.Pix[i], src.Pix[i])
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	valid := encodePNG(t, createGradientGrid(32, 32).Gray())

	tests := []struct {
		name string
		buf  []byte
	}{
		{"nil buffer", nil},
		{"empty buffer", []byte{}},
		{"not an image", []byte("not an image")},
		{"truncated PNG", valid[:len(valid)/2]},
		{"corrupt header", append([]byte{0x89, 'P', 'N', 'X'}, valid[4:]...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := Decode(tt.buf)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("got error %v, want ErrDecode", err)
			}
			if grid != nil {
				t.Error("expected no grid on failure")
			}
		})
	}
}

func TestGridFromGray_SubImage(t *testing.T) {
	full := createGradientGrid(20, 10).Gray()
	sub := full.SubImage(image.Rect(5, 2, 15, 8)).(*image.Gray)

	grid := gridFromGray(sub)

	if grid.Width != 10 || grid.Height != 6 {
		t.Fatalf("dimensions: got %dx%d, want 10x6", grid.Width, grid.Height)
	}
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if got, want := grid.At(x, y), full.GrayAt(x+5, y+2).Y; got != want {
				t.Fatalf("(%d,%d): got %d, want %d", x, y, got, want)
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
