package layout

import (
	"errors"
	"image"
	"math"
	"testing"
)

func TestComputeCropSquareFromLandscape(t *testing.T) {
	crop, err := ComputeCrop(1000, 500, 1)
	if err != nil {
		t.Fatalf("ComputeCrop error: %v", err)
	}
	if crop.OffsetX != 250 || crop.OffsetY != 0 || crop.Width != 500 || crop.Height != 500 {
		t.Fatalf("unexpected crop: %+v", crop)
	}
	if got, want := crop.Bounds(), image.Rect(250, 0, 750, 500); got != want {
		t.Fatalf("pixel bounds mismatch: got=%v want=%v", got, want)
	}
}

// TestComputeCropInvariants 覆盖尺寸与比例组合：不越界、比例正确、严格居中。
func TestComputeCropInvariants(t *testing.T) {
	sizes := [][2]int{{1000, 500}, {500, 1000}, {1, 1}, {1920, 1080}, {1080, 1920}, {4032, 3024}, {333, 777}, {7, 3}}
	ratios := []float64{9.0 / 16, 16.0 / 9, 16.0 / 10, 1, 4.0 / 3, 3.0 / 4, 3.0 / 2, 2.0 / 3, 2.39}
	const eps = 1e-9
	for _, sz := range sizes {
		for _, r := range ratios {
			w, h := sz[0], sz[1]
			crop, err := ComputeCrop(w, h, r)
			if err != nil {
				var dce *DegenerateCropError
				if errors.As(err, &dce) {
					continue
				}
				t.Fatalf("%dx%d r=%g: unexpected error %v", w, h, r, err)
			}
			if crop.Width > float64(w)+eps || crop.Height > float64(h)+eps {
				t.Fatalf("%dx%d r=%g: crop exceeds source: %+v", w, h, r, crop)
			}
			if got := crop.Width / crop.Height; math.Abs(got-r) > 1e-6 {
				t.Fatalf("%dx%d r=%g: ratio mismatch %g", w, h, r, got)
			}
			if math.Abs(crop.OffsetX*2+crop.Width-float64(w)) > eps || math.Abs(crop.OffsetY*2+crop.Height-float64(h)) > eps {
				t.Fatalf("%dx%d r=%g: crop not centered: %+v", w, h, r, crop)
			}
			// 必有一个方向占满源图
			if math.Abs(crop.Width-float64(w)) > eps && math.Abs(crop.Height-float64(h)) > 1e-6 {
				t.Fatalf("%dx%d r=%g: crop is not maximal: %+v", w, h, r, crop)
			}

			b := crop.Bounds()
			if !b.In(image.Rect(0, 0, w, h)) {
				t.Fatalf("%dx%d r=%g: pixel bounds %v outside source", w, h, r, b)
			}
			if d := w - b.Min.X*2 - b.Dx(); d < 0 || d > 1 {
				t.Fatalf("%dx%d r=%g: pixel bounds not centered: %v", w, h, r, b)
			}
			if d := h - b.Min.Y*2 - b.Dy(); d < 0 || d > 1 {
				t.Fatalf("%dx%d r=%g: pixel bounds not centered: %v", w, h, r, b)
			}
		}
	}
}

func TestComputeCropInvalidImage(t *testing.T) {
	for _, sz := range [][2]int{{0, 10}, {10, 0}, {-1, 5}} {
		_, err := ComputeCrop(sz[0], sz[1], 1)
		var iie *InvalidImageError
		if !errors.As(err, &iie) {
			t.Fatalf("%v: expected InvalidImageError, got %v", sz, err)
		}
	}
}

func TestComputeCropDegenerate(t *testing.T) {
	_, err := ComputeCrop(10, 1, 0.3)
	var dce *DegenerateCropError
	if !errors.As(err, &dce) {
		t.Fatalf("expected DegenerateCropError, got %v", err)
	}
}

func TestUnrecognizedRatioFallsBackToSquare(t *testing.T) {
	r, err := ParseRatio("cinemascope")
	var ure *UnrecognizedRatioError
	if !errors.As(err, &ure) || ure.Key != "cinemascope" {
		t.Fatalf("expected UnrecognizedRatioError, got %v", err)
	}
	if r != Square {
		t.Fatalf("expected square fallback, got %+v", r)
	}

	got, _, err := CropFor(1000, 500, "cinemascope")
	if err != nil {
		t.Fatalf("CropFor error: %v", err)
	}
	want, _, _ := CropFor(1000, 500, "square")
	if got != want {
		t.Fatalf("fallback crop %+v differs from square %+v", got, want)
	}
}

func TestRatioPresets(t *testing.T) {
	tests := []struct {
		key  string
		want float64
	}{
		{"phone-portrait", 9.0 / 16},
		{"phone-landscape", 16.0 / 9},
		{"desktop", 1.6},
		{"square", 1},
		{"4:3", 4.0 / 3},
		{"3:4", 0.75},
		{"3:2", 1.5},
		{"2:3", 2.0 / 3},
		{"16:9", 16.0 / 9},
		{" Square ", 1},
	}
	for _, tt := range tests {
		r, err := ParseRatio(tt.key)
		if err != nil {
			t.Fatalf("ParseRatio(%q) error: %v", tt.key, err)
		}
		if got := r.Value(100, 100); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ParseRatio(%q).Value = %g, want %g", tt.key, got, tt.want)
		}
	}

	all := Ratios()
	if len(all) != 9 {
		t.Fatalf("expected 9 presets, got %d", len(all))
	}
	if !all[0].Native || all[0].Key != "default" {
		t.Fatalf("native ratio should be listed first, got %+v", all[0])
	}
}

func TestNativeRatioKeepsWholeImage(t *testing.T) {
	crop, r, err := CropFor(640, 480, "native")
	if err != nil {
		t.Fatalf("CropFor error: %v", err)
	}
	if !r.Native {
		t.Fatalf("expected native ratio, got %+v", r)
	}
	if crop.Bounds() != image.Rect(0, 0, 640, 480) {
		t.Fatalf("native crop should cover the whole image, got %v", crop.Bounds())
	}
}

func TestCropImageHonorsBoundsOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 20, 210, 120)) // 200x100
	crop, _, err := CropImage(img, "square")
	if err != nil {
		t.Fatalf("CropImage error: %v", err)
	}
	if got, want := crop.Bounds(), image.Rect(60, 20, 160, 120); got != want {
		t.Fatalf("bounds mismatch: got=%v want=%v", got, want)
	}
	if _, _, err := CropImage(nil, "square"); err == nil {
		t.Fatalf("expected error for nil image")
	}
}
