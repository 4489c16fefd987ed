package config

import "testing"

func TestParse_OverridesOnlySetFields(t *testing.T) {
	yaml := []byte(`
page:
  margin:
    top: 90
typography:
  default_font_size: 11
solver:
  max_iterations: 5
`)
	r, err := Parse(yaml)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	def := Default()

	if r.Layout.Margins.Top != 90 {
		t.Errorf("expected overridden top margin 90, got %v", r.Layout.Margins.Top)
	}
	if r.Layout.Margins.Bottom != def.Layout.Margins.Bottom {
		t.Errorf("expected bottom margin to keep default %v, got %v", def.Layout.Margins.Bottom, r.Layout.Margins.Bottom)
	}
	if r.Layout.DefaultFontSize != 11 {
		t.Errorf("expected overridden font size 11, got %v", r.Layout.DefaultFontSize)
	}
	if r.Layout.PageWidth != def.Layout.PageWidth {
		t.Errorf("expected page width to keep default %v, got %v", def.Layout.PageWidth, r.Layout.PageWidth)
	}
	if r.Solver.MaxIterations != 5 {
		t.Errorf("expected overridden max_iterations 5, got %v", r.Solver.MaxIterations)
	}
	if r.Solver.TopK != def.Solver.TopK {
		t.Errorf("expected top_k to keep default %v, got %v", def.Solver.TopK, r.Solver.TopK)
	}
}

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	r, err := Load("/nonexistent/path/to/compose.yaml")
	if err != nil {
		t.Fatalf("expected no error for a missing config file, got %v", err)
	}
	def := Default()
	if r.Layout.PageWidth != def.Layout.PageWidth || r.Solver.MaxIterations != def.Solver.MaxIterations {
		t.Errorf("expected defaults for a missing file, got %+v", r)
	}
}

func TestParse_InvalidYAMLReturnsError(t *testing.T) {
	if _, err := Parse([]byte("page: [this is not a mapping")); err == nil {
		t.Fatalf("expected an error for malformed YAML")
	}
}
