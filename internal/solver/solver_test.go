package solver

import (
	"testing"

	"github.com/rbf22/compose/internal/boxes"
)

func testMargins() boxes.Margins { return boxes.Margins{Top: 50, Bottom: 50, Left: 50, Right: 50} }

func line(h float64) boxes.Line { return boxes.Line{Height: h, Ascent: h * 0.8, Descent: h * 0.2} }

// TestSolve_ResolvesOrphan builds a layout state where a 4-line paragraph
// was split so that only its first line landed at the bottom of page 1,
// with the remaining three lines starting page 2 (spec §8 Scenario
// "orphan"), and checks the solver reunites them on a single page.
func TestSolve_ResolvesOrphan(t *testing.T) {
	headPara := &boxes.ParagraphLayout{
		Y: 70, Width: 400, LineLeading: 0,
		Lines: []boxes.Line{line(20)},
	}
	headPara.Height = headPara.TotalHeight()
	head := boxes.BlockLayout{
		ID: "p1", Kind: boxes.BlockParagraph,
		X: 50, Y: 70, Width: 400, Height: headPara.Height,
		Breakable: true, Paragraph: headPara,
	}

	tailPara := &boxes.ParagraphLayout{
		Y: 750, Width: 400, LineLeading: 0,
		Lines: []boxes.Line{line(20), line(20), line(20)},
	}
	tailPara.Height = tailPara.TotalHeight()
	tail := boxes.BlockLayout{
		ID: "p1/cont", Kind: boxes.BlockParagraph,
		X: 50, Y: 750, Width: 400, Height: tailPara.Height,
		Breakable: false, ContinuationOf: "p1", Paragraph: tailPara,
	}

	state := boxes.LayoutState{
		Pages: []boxes.PageLayout{
			{Number: 1, Width: 500, Height: 800, Margins: testMargins(), Blocks: []boxes.BlockLayout{head}, UsedHeight: 20},
			{Number: 2, Width: 500, Height: 800, Margins: testMargins(), Blocks: []boxes.BlockLayout{tail}, UsedHeight: 60},
		},
	}

	rules := []Rule{noOrphanRule{}}
	s := New(DefaultConfig(), rules, nil)
	result := s.Solve(state)

	if len(result.ResidualViolations) != 0 {
		t.Fatalf("expected no residual violations, got %+v", result.ResidualViolations)
	}

	orphan := noOrphanRule{}
	if v := orphan.Check(&result, DefaultConfig()); len(v) != 0 {
		t.Fatalf("orphan still present after solve: %+v", v)
	}

	if len(result.Pages) < 1 {
		t.Fatalf("expected at least one page in result")
	}
	var found int
	for _, page := range result.Pages {
		for _, b := range page.Blocks {
			if b.ID == "p1" || b.ID == "p1/cont" {
				found++
			}
		}
	}
	if found != 2 {
		t.Fatalf("expected both paragraph pieces to survive, found %d", found)
	}

	// Both pieces must now share a page.
	pageOf := func(id boxes.BlockID) int {
		for pi, page := range result.Pages {
			for _, b := range page.Blocks {
				if b.ID == id {
					return pi
				}
			}
		}
		return -1
	}
	if pageOf("p1") != pageOf("p1/cont") {
		t.Errorf("expected p1 and p1/cont on the same page, got %d and %d", pageOf("p1"), pageOf("p1/cont"))
	}
}

// TestSolve_NoViolationsConverges checks the fixed-point loop terminates
// immediately when the initial state already satisfies every rule.
func TestSolve_NoViolationsConverges(t *testing.T) {
	p := &boxes.ParagraphLayout{Y: 700, Width: 400, Lines: []boxes.Line{line(20), line(20)}, LineLeading: 2}
	p.Height = p.TotalHeight()
	b := boxes.BlockLayout{ID: "only", Kind: boxes.BlockParagraph, X: 50, Y: 700, Width: 400, Height: p.Height, Paragraph: p}
	state := boxes.LayoutState{
		Pages: []boxes.PageLayout{
			{Number: 1, Width: 500, Height: 800, Margins: testMargins(), Blocks: []boxes.BlockLayout{b}, UsedHeight: p.Height},
		},
	}

	s := New(DefaultConfig(), DefaultRules(), nil)
	result := s.Solve(state)
	if len(result.ResidualViolations) != 0 {
		t.Fatalf("expected convergence with no violations, got %+v", result.ResidualViolations)
	}
}

func TestResolveConflicts_KeepsHigherSeverity(t *testing.T) {
	adjustments := []boxes.Adjustment{
		{Kind: boxes.AdjustAddSpacingBefore, Block: "b1", SourceSeverity: boxes.SeverityInfo},
		{Kind: boxes.AdjustMoveToNextPage, Block: "b1", SourceSeverity: boxes.SeverityError},
	}
	out := resolveConflicts(adjustments)
	if len(out) != 1 {
		t.Fatalf("expected conflicts collapsed to 1 adjustment, got %d", len(out))
	}
	if out[0].SourceSeverity != boxes.SeverityError {
		t.Errorf("expected the error-severity adjustment to win, got %v", out[0].SourceSeverity)
	}
}
