package refimage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPrepare_ResizesToFrame(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}

	out, err := Prepare(encodePNG(t, src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if format != Format {
		t.Errorf("expected %s, got %s", Format, format)
	}
	if b := img.Bounds(); b.Dx() != Width || b.Dy() != Height {
		t.Errorf("expected %dx%d, got %dx%d", Width, Height, b.Dx(), b.Dy())
	}
	r, _, _, _ := img.At(Width/2, Height/2).RGBA()
	if r>>8 < 190 {
		t.Errorf("expected red preserved, got r=%d", r>>8)
	}
}

func TestPrepareFile_JPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.jpg")
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 32, 32)), nil); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := PrepareFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not PNG: %v", err)
	}
	if cfg.Width != Width || cfg.Height != Height {
		t.Errorf("unexpected size %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPrepare_Invalid(t *testing.T) {
	if _, err := Prepare([]byte("not an image")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := PrepareFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected read error")
	}
}

func TestRotate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	marker := color.RGBA{R: 255, A: 255}
	src.Set(0, 0, marker) // top-left

	tests := []struct {
		deg        int
		w, h, x, y int
	}{
		{90, 2, 3, 1, 0},
		{180, 3, 2, 2, 1},
		{270, 2, 3, 0, 2},
	}
	for _, tt := range tests {
		got := rotate(src, tt.deg)
		if b := got.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
			t.Errorf("rotate %d: expected %dx%d, got %dx%d", tt.deg, tt.w, tt.h, b.Dx(), b.Dy())
			continue
		}
		if c := color.RGBAModel.Convert(got.At(tt.x, tt.y)).(color.RGBA); c != marker {
			t.Errorf("rotate %d: marker not at (%d,%d)", tt.deg, tt.x, tt.y)
		}
	}
}

func TestExifOrientation_NoExif(t *testing.T) {
	if o := exifOrientation(encodePNG(t, image.NewGray(image.Rect(0, 0, 4, 4)))); o != 1 {
		t.Errorf("expected upright for image without EXIF, got %d", o)
	}
}
