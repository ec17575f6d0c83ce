package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"John 3:16":       "John_3:16.png",
		"  1  Cor\t13:4 ": "1_Cor_13:4.png",
		"":                "verse.png",
		"Ps 23/1":         "Ps_23-1.png",
	}
	for in, want := range tests {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSurfaceResizeClears(t *testing.T) {
	s := NewSurface(4, 3)
	s.Image().SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})
	s.Resize(4, 3)
	if got := s.Image().NRGBAAt(1, 1); got.A != 0 {
		t.Fatalf("resize should clear the surface, got %v", got)
	}
	s.Resize(8, 2)
	if s.Width() != 8 || s.Height() != 2 {
		t.Fatalf("unexpected size %dx%d", s.Width(), s.Height())
	}
}

func TestSurfaceFillAndEncode(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 14, 13))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 200, 100, 50, 255
	}
	s := NewSurface(4, 3)
	s.Fill(src)
	if got := s.Image().NRGBAAt(3, 2); got.R != 200 || got.A != 255 {
		t.Fatalf("fill should copy from src origin, got %v", got)
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, s); err != nil {
		t.Fatalf("EncodePNG error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("unexpected encoded size %v", b)
	}

	if err := EncodePNG(&buf, NewSurface(0, 0)); err == nil {
		t.Fatalf("expected error for empty surface")
	}
}
