package coords

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rbf22/compose/internal/boxes"
)

func sampleState() boxes.LayoutState {
	para := &boxes.ParagraphLayout{
		X: 50, Y: 700, Width: 400, LineLeading: 2,
		Lines: []boxes.Line{
			{
				BaselineY: 688, X: 50, Width: 120, Height: 14, Ascent: 11, Descent: 3,
				Runs: []boxes.Box{{Kind: boxes.KindTextRun, Width: 120, Height: 14, Run: boxes.TextRun{Text: "hello world"}}},
			},
		},
	}
	para.Height = para.TotalHeight()
	block := boxes.BlockLayout{
		ID: "p1", Kind: boxes.BlockParagraph,
		X: 50, Y: 700, Width: 400, Height: para.Height, Paragraph: para,
	}
	return boxes.LayoutState{
		Pages: []boxes.PageLayout{
			{Number: 1, Width: 612, Height: 792, Margins: boxes.Margins{Top: 72, Bottom: 72, Left: 72, Right: 72}, Blocks: []boxes.BlockLayout{block}},
		},
	}
}

// TestRender_DeterministicAcrossRuns checks spec §8's determinism property
// (Scenario F): rendering the same LayoutState twice yields byte-identical
// (here: element-wise equal) drawing call sequences.
func TestRender_DeterministicAcrossRuns(t *testing.T) {
	state := sampleState()

	a1 := NewTextAdapter()
	if err := Render(state, IdentityTransform, a1); err != nil {
		t.Fatalf("first render failed: %v", err)
	}
	a2 := NewTextAdapter()
	if err := Render(state, IdentityTransform, a2); err != nil {
		t.Fatalf("second render failed: %v", err)
	}

	if diff := cmp.Diff(a1.Pages, a2.Pages); diff != "" {
		t.Fatalf("render output differs between identical runs (-first +second):\n%s", diff)
	}
	if len(a1.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(a1.Pages))
	}
}
