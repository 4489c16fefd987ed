package metrics

import "testing"

// TestMeasureText_EqualsSumOfGlyphMeasures checks spec §8's round-trip law
// for the unembedded-font (Standard-14) fallback path: measure(text) equals
// the sum of measure_glyph over its runes.
func TestMeasureText_EqualsSumOfGlyphMeasures(t *testing.T) {
	p := NewProvider(nil)
	text := "Hello, World!"
	const size = 12.0

	want := 0.0
	for _, r := range text {
		want += p.MeasureGlyph("Helvetica", size, r)
	}
	got := p.MeasureText("Helvetica", size, text)

	const eps = 1e-9
	if diff := got - want; diff > eps || diff < -eps {
		t.Fatalf("MeasureText(%q) = %v, want sum of MeasureGlyph = %v", text, got, want)
	}
}

func TestMeasureText_EmptyStringIsZero(t *testing.T) {
	p := NewProvider(nil)
	if got := p.MeasureText("Helvetica", 12, ""); got != 0 {
		t.Errorf("expected 0 for empty text, got %v", got)
	}
}

func TestMeasureGlyph_UnknownFontFallsBackToStandard14(t *testing.T) {
	p := NewProvider(nil)
	w := p.MeasureGlyph("SomeFontNeverLoaded", 10, 'A')
	if w <= 0 {
		t.Errorf("expected a positive fallback advance width, got %v", w)
	}
}
