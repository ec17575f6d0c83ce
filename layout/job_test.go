package layout

import (
	"errors"
	"testing"

	"github.com/ByLCY/versecard/dsl"
)

func parseJob(t *testing.T, src string) (*Job, error) {
	t.Helper()
	doc, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return BuildJob(doc, DefaultStyle())
}

func TestBuildJob(t *testing.T) {
	job, err := parseJob(t, `card "Morning" {
  image: "bg.jpg"
  verse: "Psalm 23:1"
  translation: web
  ratio: phone-portrait
  output: "out.png"
  text { "The Lord is my shepherd;" "I shall not want." }
  subtitle: "${reference}"
  style {
    size: 36pt
    color: gold
    align: left
    offset: -20%
    font: "embed:go-bold"
    subtitle: off
  }
}`)
	if err != nil {
		t.Fatalf("BuildJob error: %v", err)
	}
	if job.Name != "Morning" || job.Image != "bg.jpg" || job.Verse != "Psalm 23:1" || job.Translation != "web" {
		t.Fatalf("unexpected job header: %+v", job)
	}
	if job.Ratio != "phone-portrait" || job.Output != "out.png" {
		t.Fatalf("unexpected ratio/output: %+v", job)
	}
	if job.Template.Body != "The Lord is my shepherd; I shall not want." {
		t.Fatalf("unexpected body template %q", job.Template.Body)
	}
	s := job.Style
	if s.FontSize != 48 || s.Color != MustColor("gold") || s.Align != AlignStart || s.VerticalOffset != -20 || s.IncludeSubtitle {
		t.Fatalf("unexpected style: %+v", s)
	}
	if s.Font.Src != "embed:go-bold" {
		t.Fatalf("unexpected font: %+v", s.Font)
	}
}

func TestBuildJobDefaults(t *testing.T) {
	job, err := parseJob(t, `card minimal { verse: "John 11:35" }`)
	if err != nil {
		t.Fatalf("BuildJob error: %v", err)
	}
	if job.Ratio != "default" || job.Template.Body != DefaultBodyTemplate || job.Template.Subtitle != DefaultSubtitleTemplate {
		t.Fatalf("unexpected defaults: %+v", job)
	}
	if job.Style != DefaultStyle() {
		t.Fatalf("style should fall back to base: %+v", job.Style)
	}

	block := job.Bind(map[string]any{"text": "Jesus wept.\n", "reference": "John 11:35"})
	if block.Body != "Jesus wept." || block.Subtitle != "John 11:35" {
		t.Fatalf("unexpected bound block: %+v", block)
	}
}

func TestBuildJobRejectsUnknownKeys(t *testing.T) {
	if _, err := parseJob(t, `card x { colour: red }`); err == nil {
		t.Fatalf("expected error for unknown top-level key")
	}
	if _, err := parseJob(t, `card x { style { weight: bold } }`); err == nil {
		t.Fatalf("expected error for unknown style key")
	}
	if _, err := parseJob(t, `card x { style { offset: 10px } }`); err == nil {
		t.Fatalf("offset only accepts percentages")
	}
}

func TestApplyStyleField(t *testing.T) {
	s := DefaultStyle()
	if err := ApplyStyleField(&s, "font-size", "150%"); err != nil {
		t.Fatalf("ApplyStyleField error: %v", err)
	}
	if s.FontSize != 72 {
		t.Fatalf("150%% of 48 should be 72, got %g", s.FontSize)
	}
	if err := ApplyStyleField(&s, "size", "-3"); err == nil {
		t.Fatalf("negative font size should fail")
	}
	if err := ApplyStyleField(&s, "color", "nope"); err == nil {
		t.Fatalf("bad color should fail")
	}
}

func TestApplyStyleFieldRejectsNonFinite(t *testing.T) {
	tests := []struct{ field, raw string }{
		{"size", "NaN"},
		{"size", "Inf"},
		{"size", "-Inf"},
		{"font-size", "nan%"},
		{"offset", "NaN"},
		{"offset", "+Inf"},
		{"offset", "inf%"},
	}
	for _, tt := range tests {
		s := DefaultStyle()
		err := ApplyStyleField(&s, tt.field, tt.raw)
		var ise *InvalidStyleError
		if !errors.As(err, &ise) {
			t.Errorf("ApplyStyleField(%s=%q) = %v, want InvalidStyleError", tt.field, tt.raw, err)
		}
		if err := s.Validate(); err != nil {
			t.Errorf("%s=%q: rejected value leaked into style: %v", tt.field, tt.raw, err)
		}
	}
}
