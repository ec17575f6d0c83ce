package source

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg.png")
	if err := os.WriteFile(path, pngBytes(t, 30, 20), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(nil, nil)
	img, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Fatalf("unexpected size %v", b)
	}
	if _, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadURLAndPreset(t *testing.T) {
	data := pngBytes(t, 16, 9)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sunrise.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		case "/garbage.png":
			_, _ = w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(Gallery{{Name: "Sunrise", URL: srv.URL + "/sunrise.png"}}, nil)
	ctx := context.Background()

	img, err := l.Load(ctx, "preset:sunrise")
	if err != nil {
		t.Fatalf("preset load error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 9 {
		t.Fatalf("unexpected size %v", b)
	}
	if _, err := l.Load(ctx, "preset:nope"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
	if _, err := l.Load(ctx, srv.URL+"/missing.png"); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := l.Load(ctx, srv.URL+"/garbage.png"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadAsync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg.png")
	if err := os.WriteFile(path, pngBytes(t, 8, 8), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(nil, nil)
	res, ok := <-l.LoadAsync(context.Background(), path)
	if !ok || res.Err != nil || res.Image == nil || res.Ref != path {
		t.Fatalf("unexpected async result: %+v", res)
	}
	if _, ok := <-l.LoadAsync(context.Background(), path); !ok {
		t.Fatal("channel should deliver one result before closing")
	}
}
