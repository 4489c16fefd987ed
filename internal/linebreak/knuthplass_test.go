package linebreak

import (
	"testing"

	"github.com/rbf22/compose/internal/boxes"
)

func word(text string, width float64) boxes.ParagraphItem {
	run := boxes.TextRun{Text: text, Font: "Helvetica", Size: 12}
	b := boxes.NewTextBox(run, width, 9, 3)
	return boxes.ParagraphItem{Kind: boxes.ItemBox, Box: b, Width: width}
}

func glue(w, stretch, shrink float64) boxes.ParagraphItem {
	return boxes.ParagraphItem{Kind: boxes.ItemGlue, Glue: boxes.Glue{Width: w, Stretch: stretch, Shrink: shrink}}
}

func forcedBreak() boxes.ParagraphItem {
	return boxes.ParagraphItem{Kind: boxes.ItemPenalty, Penalty: boxes.Penalty{Cost: boxes.ForceBreak}}
}

func constantWidth(w float64) LineWidth {
	return func(int) float64 { return w }
}

func TestBreak_SingleShortLineNoWrap(t *testing.T) {
	items := []boxes.ParagraphItem{
		word("Hello", 30),
		glue(5, 3, 2),
		word("world", 30),
		forcedBreak(),
	}
	lines, err := Break(items, constantWidth(200), DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Break returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if len(lines[0].Runs) != 2 {
		t.Fatalf("expected 2 runs on the line, got %d", len(lines[0].Runs))
	}
}

func TestBreak_WrapsWhenNarrow(t *testing.T) {
	var items []boxes.ParagraphItem
	words := []string{"one", "two", "three", "four", "five", "six", "seven", "eight"}
	for i, w := range words {
		items = append(items, word(w, 40))
		if i != len(words)-1 {
			items = append(items, glue(8, 4, 2))
		}
	}
	items = append(items, forcedBreak())

	lines, err := Break(items, constantWidth(120), DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Break returned error: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected multiple lines for a narrow column, got %d", len(lines))
	}
	for _, ln := range lines {
		if ln.AdjustmentRatio < -1-1e-9 {
			t.Errorf("adjustment ratio %f below feasible floor of -1", ln.AdjustmentRatio)
		}
	}
}

func TestBreak_EmptyStream(t *testing.T) {
	lines, err := Break(nil, constantWidth(100), DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Break returned error: %v", err)
	}
	if lines != nil {
		t.Fatalf("expected nil lines for empty stream, got %v", lines)
	}
}

func TestBreak_OverlongWordFallsBackToCharacterSplit(t *testing.T) {
	items := []boxes.ParagraphItem{
		word("supercalifragilisticexpialidocious", 500),
		forcedBreak(),
	}
	lines, err := Break(items, constantWidth(50), DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Break returned error: %v", err)
	}
	if len(lines) == 0 {
		t.Fatalf("expected at least one line from the fallback path")
	}
}

func TestFitnessClass(t *testing.T) {
	cases := []struct {
		r    float64
		want int
	}{
		{-0.9, 0},
		{0.0, 1},
		{0.7, 2},
		{1.5, 3},
	}
	for _, c := range cases {
		if got := fitnessClass(c.r); got != c.want {
			t.Errorf("fitnessClass(%f) = %d, want %d", c.r, got, c.want)
		}
	}
}
