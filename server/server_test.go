package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/ByLCY/versecard/layout"
	"github.com/ByLCY/versecard/renderer"
	"github.com/ByLCY/versecard/source"
	"github.com/ByLCY/versecard/verse"
)

type stubRenderer struct {
	mu     sync.Mutex
	blocks []layout.TextBlock
	styles []layout.StyleParams
}

func (r *stubRenderer) Render(surface *renderer.Surface, src image.Image, block layout.TextBlock, style layout.StyleParams, crop layout.CropRect) (*layout.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, block)
	r.styles = append(r.styles, style)
	w, h := crop.Size()
	surface.Resize(w, h)
	surface.Fill(image.NewUniform(color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	return &layout.Plan{Lines: []layout.PlacedLine{{Content: block.Body}}}, nil
}

func (r *stubRenderer) last(t *testing.T) (layout.TextBlock, layout.StyleParams) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.blocks) == 0 {
		t.Fatal("renderer was never called")
	}
	return r.blocks[len(r.blocks)-1], r.styles[len(r.styles)-1]
}

type stubFetcher struct {
	verses map[string]*verse.Verse
	err    error
}

func (f stubFetcher) Fetch(ctx context.Context, ref string) (*verse.Verse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.verses[ref]; ok {
		return v, nil
	}
	return nil, verse.ErrNotFound
}

func newTestServer(t *testing.T, f verse.Fetcher) (*httptest.Server, *stubRenderer) {
	t.Helper()
	r := &stubRenderer{}
	srv := New(Options{
		Renderer: r,
		Fetcher:  f,
		Loader:   source.NewLoader(source.Gallery{{Name: "sky", URL: "https://example.invalid/sky.jpg"}}, nil),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, r
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, target string, img []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if img != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write(img)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	req, err := http.NewRequest(http.MethodPost, target, &body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRatiosEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/ratios")
	if err != nil {
		t.Fatalf("GET /ratios: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out []ratioView
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(layout.Ratios()) || !out[0].Native {
		t.Fatalf("unexpected ratios: %+v", out)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatalf("missing request id header")
	}
}

func TestPresetsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/presets")
	if err != nil {
		t.Fatalf("GET /presets: %v", err)
	}
	defer resp.Body.Close()
	var out source.Gallery
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Name != "sky" {
		t.Fatalf("unexpected presets: %+v", out)
	}
}

func TestRenderUpload(t *testing.T) {
	ts, r := newTestServer(t, nil)
	req := multipartRequest(t, ts.URL+"/render", pngBytes(t, 200, 100), map[string]string{
		"ratio":    "square",
		"text":     "In the beginning was the Word",
		"subtitle": "John 1:1",
		"color":    "#ff0000",
		"align":    "left",
	})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /render: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "John_1:1.png") {
		t.Fatalf("content disposition = %q", cd)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Fatalf("output size = %v, want 100x100", b)
	}

	block, style := r.last(t)
	if block.Body != "In the beginning was the Word" || block.Subtitle != "John 1:1" {
		t.Fatalf("unexpected block: %+v", block)
	}
	if style.Align != layout.AlignStart || style.Color != (layout.Color{R: 255, A: 255}) {
		t.Fatalf("style fields not applied: %+v", style)
	}
}

func TestRenderNonASCIIFileName(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	req := multipartRequest(t, ts.URL+"/render", pngBytes(t, 40, 40), map[string]string{
		"text":     "No tendrás dioses ajenos delante de mí.",
		"subtitle": "Éxodo 20:3",
	})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /render: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	cd := resp.Header.Get("Content-Disposition")
	disposition, params, err := mime.ParseMediaType(cd)
	if err != nil {
		t.Fatalf("parse content disposition %q: %v", cd, err)
	}
	if disposition != "attachment" || params["filename"] != "Éxodo_20:3.png" {
		t.Fatalf("content disposition = %q, params = %v", cd, params)
	}
}

func TestRenderWithVerse(t *testing.T) {
	f := stubFetcher{verses: map[string]*verse.Verse{
		"Psalm 23:1": {Reference: "Psalm 23:1", Text: "The LORD is my shepherd; I shall not want."},
	}}
	ts, r := newTestServer(t, f)
	req := multipartRequest(t, ts.URL+"/render", pngBytes(t, 90, 160), map[string]string{"verse": "Psalm 23:1"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /render: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Psalm_23:1.png") {
		t.Fatalf("content disposition = %q", cd)
	}
	block, _ := r.last(t)
	if block.Body != "The LORD is my shepherd; I shall not want." || block.Subtitle != "Psalm 23:1" {
		t.Fatalf("unexpected block: %+v", block)
	}
}

func TestRenderVerseFailureKeepsText(t *testing.T) {
	ts, r := newTestServer(t, stubFetcher{err: verse.ErrNetwork})
	req := multipartRequest(t, ts.URL+"/render", pngBytes(t, 50, 50), map[string]string{
		"verse": "John 3:16",
		"text":  "kept",
	})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /render: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Verse-Error") == "" {
		t.Fatalf("expected X-Verse-Error header")
	}
	if block, _ := r.last(t); block.Body != "kept" {
		t.Fatalf("text should be kept on verse failure, got %+v", block)
	}
}

func TestRenderErrors(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	tests := []struct {
		name   string
		img    []byte
		fields map[string]string
	}{
		{"no image", nil, map[string]string{"text": "x"}},
		{"bad style", pngBytes(t, 10, 10), map[string]string{"size": "huge"}},
		{"bad offset", pngBytes(t, 10, 10), map[string]string{"offset": "10px"}},
		{"nan size", pngBytes(t, 10, 10), map[string]string{"size": "NaN"}},
		{"inf offset", pngBytes(t, 10, 10), map[string]string{"offset": "inf%"}},
		{"bad subtitle flag", pngBytes(t, 10, 10), map[string]string{"include_subtitle": "maybe"}},
		{"font file", pngBytes(t, 10, 10), map[string]string{"font": "/etc/fonts/evil.ttf"}},
		{"corrupt image", []byte("not a png"), nil},
		{"unknown preset", nil, map[string]string{"preset": "nope"}},
		{"non-http url", nil, map[string]string{"image_url": "file:///etc/passwd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.DefaultClient.Do(multipartRequest(t, ts.URL+"/render", tt.img, tt.fields))
			if err != nil {
				t.Fatalf("POST /render: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] == "" || body["request_id"] == "" {
				t.Fatalf("unexpected error body: %+v", body)
			}
		})
	}
}

func TestVerseEndpointStatus(t *testing.T) {
	f := stubFetcher{verses: map[string]*verse.Verse{"John 3:16": {Reference: "John 3:16", Text: "For God so loved the world"}}}
	ts, _ := newTestServer(t, f)
	tests := []struct {
		ref  string
		want int
	}{
		{"John 3:16", http.StatusOK},
		{"Hezekiah 1:1", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get(fmt.Sprintf("%s/verse?ref=%s", ts.URL, url.QueryEscape(tt.ref)))
		if err != nil {
			t.Fatalf("GET /verse: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Fatalf("%s: status = %d, want %d", tt.ref, resp.StatusCode, tt.want)
		}
	}

	ts2, _ := newTestServer(t, stubFetcher{err: fmt.Errorf("%w: boom", verse.ErrNetwork)})
	resp, err := http.Get(ts2.URL + "/verse?ref=John+3:16")
	if err != nil {
		t.Fatalf("GET /verse: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	const id = "0b7e3c1a-8f37-4c1e-9d55-2a4cc1f0f9b1"
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Fatalf("request id = %q, want %q", got, id)
	}
}
