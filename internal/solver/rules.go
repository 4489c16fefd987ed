package solver

import (
	"fmt"

	"github.com/rbf22/compose/internal/boxes"
)

// findContinuationOf returns the block whose ContinuationOf equals id, and
// the index of the page it lives on, if any split produced one.
func findContinuationOf(state *boxes.LayoutState, id boxes.BlockID) (blk boxes.BlockLayout, pageIdx int, found bool) {
	for pi, page := range state.Pages {
		for _, b := range page.Blocks {
			if b.ContinuationOf == id {
				return b, pi, true
			}
		}
	}
	return boxes.BlockLayout{}, 0, false
}

// noOverflowRule flags a block whose bottom edge crosses the content
// rectangle (spec §4.5 table row 1). The generator does this only for a
// block taller than a fresh page's content area, which it places alone on
// that page; otherwise only a later adjustment (e.g. a grown gap) can
// introduce it, which is what apply's monotonicity guard watches for.
type noOverflowRule struct{}

func (noOverflowRule) ID() string              { return "no-overflow" }
func (noOverflowRule) Severity() boxes.Severity { return boxes.SeverityError }

func (noOverflowRule) Check(state *boxes.LayoutState, _ Config) []boxes.Violation {
	var out []boxes.Violation
	for pi, page := range state.Pages {
		_, _, _, contentHeight := page.Margins.ContentRect(page.Width, page.Height)
		for _, b := range page.Blocks {
			if b.Bottom() >= page.Margins.Bottom-1e-6 {
				continue
			}
			if b.KeepTogether && b.Height > contentHeight+1e-6 {
				// No page this block could move to would ever hold it whole
				// (spec §7: "a keep-together block taller than a page" is a
				// residual warning, not a fatal overflow).
				out = append(out, boxes.Violation{
					RuleID:         "keep-together",
					Severity:       boxes.SeverityWarning,
					OffendingBlock: b.ID,
					PageIndex:      pi,
					Description:    fmt.Sprintf("block %s (%.2fpt) is taller than the page content area (%.2fpt) and cannot be kept whole", b.ID, b.Height, contentHeight),
				})
				continue
			}
			out = append(out, boxes.Violation{
				RuleID:         "no-overflow",
				Severity:       boxes.SeverityError,
				OffendingBlock: b.ID,
				PageIndex:      pi,
				Description:    fmt.Sprintf("block %s overflows page %d by %.2fpt", b.ID, page.Number, page.Margins.Bottom-b.Bottom()),
			})
		}
	}
	return out
}

func (noOverflowRule) Suggest(v boxes.Violation, _ *boxes.LayoutState, _ Config) []boxes.Adjustment {
	return []boxes.Adjustment{{
		Kind:           boxes.AdjustMoveToNextPage,
		Block:          v.OffendingBlock,
		SourceRuleID:   "no-overflow",
		SourceSeverity: boxes.SeverityError,
	}}
}

// minSpacingRule flags a gap between consecutive blocks on the same page
// below the configured minimum (spec §4.5 table row 2).
type minSpacingRule struct{}

func (minSpacingRule) ID() string              { return "min-spacing" }
func (minSpacingRule) Severity() boxes.Severity { return boxes.SeverityInfo }

func (r minSpacingRule) Check(state *boxes.LayoutState, cfg Config) []boxes.Violation {
	var out []boxes.Violation
	for pi, page := range state.Pages {
		for i := 1; i < len(page.Blocks); i++ {
			prev, cur := page.Blocks[i-1], page.Blocks[i]
			gap := prev.Bottom() - cur.Y
			if gap < cfg.MinSpacing-1e-6 {
				out = append(out, boxes.Violation{
					RuleID:         "min-spacing",
					Severity:       boxes.SeverityInfo,
					OffendingBlock: cur.ID,
					PageIndex:      pi,
					Description:    fmt.Sprintf("gap before %s is %.2fpt, below minimum %.2fpt", cur.ID, gap, cfg.MinSpacing),
				})
			}
		}
	}
	return out
}

func (minSpacingRule) Suggest(v boxes.Violation, state *boxes.LayoutState, cfg Config) []boxes.Adjustment {
	pi, bi, ok := state.FindBlock(v.OffendingBlock)
	if !ok {
		return nil
	}
	page := state.Pages[pi]
	if bi == 0 {
		return nil
	}
	prev := page.Blocks[bi-1]
	cur := page.Blocks[bi]
	gap := prev.Bottom() - cur.Y
	return []boxes.Adjustment{{
		Kind:           boxes.AdjustAddSpacingBefore,
		Block:          v.OffendingBlock,
		Delta:          cfg.MinSpacing - gap,
		SourceRuleID:   "min-spacing",
		SourceSeverity: boxes.SeverityInfo,
	}}
}

// noOrphanRule flags a multi-line paragraph split so that only its first
// line remains on the page it started on (spec §4.5 table row 3). The
// fix moves the head (and, by extension, the continuation directly
// following it in document order) to start fresh on the next page.
type noOrphanRule struct{}

func (noOrphanRule) ID() string              { return "no-orphan" }
func (noOrphanRule) Severity() boxes.Severity { return boxes.SeverityWarning }

func (noOrphanRule) Check(state *boxes.LayoutState, _ Config) []boxes.Violation {
	var out []boxes.Violation
	for pi, page := range state.Pages {
		for _, b := range page.Blocks {
			if b.ContinuationOf != "" || b.Paragraph == nil {
				continue
			}
			if len(b.Paragraph.Lines) != 1 {
				continue
			}
			if _, contPage, has := findContinuationOf(state, b.ID); has && contPage != pi {
				out = append(out, boxes.Violation{
					RuleID:         "no-orphan",
					Severity:       boxes.SeverityWarning,
					OffendingBlock: b.ID,
					PageIndex:      pi,
					Description:    fmt.Sprintf("paragraph %s leaves a single orphan line on page %d", b.ID, page.Number),
				})
			}
		}
	}
	return out
}

func (noOrphanRule) Suggest(v boxes.Violation, _ *boxes.LayoutState, _ Config) []boxes.Adjustment {
	return []boxes.Adjustment{{
		Kind:           boxes.AdjustMoveToNextPage,
		Block:          v.OffendingBlock,
		SourceRuleID:   "no-orphan",
		SourceSeverity: boxes.SeverityWarning,
	}}
}

// noWidowRule flags a multi-line paragraph split so that only its last
// line starts the following page (spec §4.5 table row 4). The fix pulls
// one line back from the preceding head block.
type noWidowRule struct{}

func (noWidowRule) ID() string              { return "no-widow" }
func (noWidowRule) Severity() boxes.Severity { return boxes.SeverityWarning }

func (noWidowRule) Check(state *boxes.LayoutState, _ Config) []boxes.Violation {
	var out []boxes.Violation
	for pi, page := range state.Pages {
		if len(page.Blocks) == 0 {
			continue
		}
		b := page.Blocks[0]
		if b.ContinuationOf == "" || b.Paragraph == nil {
			continue
		}
		if len(b.Paragraph.Lines) == 1 {
			out = append(out, boxes.Violation{
				RuleID:         "no-widow",
				Severity:       boxes.SeverityWarning,
				OffendingBlock: b.ID,
				PageIndex:      pi,
				Description:    fmt.Sprintf("paragraph %s leaves a single widow line atop page %d", b.ID, page.Number),
			})
		}
	}
	return out
}

func (noWidowRule) Suggest(v boxes.Violation, _ *boxes.LayoutState, _ Config) []boxes.Adjustment {
	return []boxes.Adjustment{{
		Kind:           boxes.AdjustPullLineFromPrevious,
		Block:          v.OffendingBlock,
		SourceRuleID:   "no-widow",
		SourceSeverity: boxes.SeverityWarning,
	}}
}

// headingOrphanRule flags a keep-with-next heading that ends up the last
// block on its page, separated from the content it was meant to introduce
// (spec §4.5 table row 5).
type headingOrphanRule struct{}

func (headingOrphanRule) ID() string              { return "heading-orphan" }
func (headingOrphanRule) Severity() boxes.Severity { return boxes.SeverityWarning }

func (headingOrphanRule) Check(state *boxes.LayoutState, _ Config) []boxes.Violation {
	var out []boxes.Violation
	for pi, page := range state.Pages {
		if len(page.Blocks) == 0 {
			continue
		}
		last := page.Blocks[len(page.Blocks)-1]
		if last.KeepWithNext {
			out = append(out, boxes.Violation{
				RuleID:         "heading-orphan",
				Severity:       boxes.SeverityWarning,
				OffendingBlock: last.ID,
				PageIndex:      pi,
				Description:    fmt.Sprintf("heading %s is stranded at the bottom of page %d", last.ID, page.Number),
			})
		}
	}
	return out
}

func (headingOrphanRule) Suggest(v boxes.Violation, _ *boxes.LayoutState, _ Config) []boxes.Adjustment {
	return []boxes.Adjustment{{
		Kind:           boxes.AdjustMoveToNextPage,
		Block:          v.OffendingBlock,
		SourceRuleID:   "heading-orphan",
		SourceSeverity: boxes.SeverityWarning,
	}}
}

// keepTogetherRule flags a block marked KeepTogether that the generator
// nonetheless split across a page boundary (spec §4.5 table row 6). This
// can only happen to a Breakable block whose KeepTogether was set after
// generation by a pipeline that doesn't honor it at split time, or to a
// block the solver itself re-split; the fix re-merges it onto one page
// exactly as no-orphan does.
type keepTogetherRule struct{}

func (keepTogetherRule) ID() string              { return "keep-together" }
func (keepTogetherRule) Severity() boxes.Severity { return boxes.SeverityWarning }

func (keepTogetherRule) Check(state *boxes.LayoutState, _ Config) []boxes.Violation {
	var out []boxes.Violation
	for pi, page := range state.Pages {
		for _, b := range page.Blocks {
			if !b.KeepTogether || b.ContinuationOf != "" {
				continue
			}
			if _, contPage, has := findContinuationOf(state, b.ID); has && contPage != pi {
				out = append(out, boxes.Violation{
					RuleID:         "keep-together",
					Severity:       boxes.SeverityWarning,
					OffendingBlock: b.ID,
					PageIndex:      pi,
					Description:    fmt.Sprintf("block %s is marked keep-together but split across a page boundary", b.ID),
				})
			}
		}
	}
	return out
}

func (keepTogetherRule) Suggest(v boxes.Violation, _ *boxes.LayoutState, _ Config) []boxes.Adjustment {
	return []boxes.Adjustment{{
		Kind:           boxes.AdjustMoveToNextPage,
		Block:          v.OffendingBlock,
		SourceRuleID:   "keep-together",
		SourceSeverity: boxes.SeverityWarning,
	}}
}

// maxLinesPerPageRule flags a page whose total line count exceeds the
// configured cap (spec §4.5 table row 7): a density ceiling independent of
// physical overflow, for documents that want a visually consistent amount
// of text per page regardless of font size.
type maxLinesPerPageRule struct{}

func (maxLinesPerPageRule) ID() string              { return "max-lines-per-page" }
func (maxLinesPerPageRule) Severity() boxes.Severity { return boxes.SeverityInfo }

func countLines(b boxes.BlockLayout) int {
	n := 0
	if b.Paragraph != nil {
		n += len(b.Paragraph.Lines)
	}
	for _, c := range b.Children {
		n += countLines(c)
	}
	for _, row := range b.Cells {
		for _, c := range row {
			n += countLines(c)
		}
	}
	return n
}

func (maxLinesPerPageRule) Check(state *boxes.LayoutState, cfg Config) []boxes.Violation {
	var out []boxes.Violation
	for pi, page := range state.Pages {
		total := 0
		var last boxes.BlockLayout
		for _, b := range page.Blocks {
			total += countLines(b)
			last = b
		}
		if total > cfg.MaxLinesPerPage && len(page.Blocks) > 0 {
			out = append(out, boxes.Violation{
				RuleID:         "max-lines-per-page",
				Severity:       boxes.SeverityInfo,
				OffendingBlock: last.ID,
				PageIndex:      pi,
				Description:    fmt.Sprintf("page %d carries %d lines, above the %d-line cap", page.Number, total, cfg.MaxLinesPerPage),
			})
		}
	}
	return out
}

func (maxLinesPerPageRule) Suggest(v boxes.Violation, _ *boxes.LayoutState, _ Config) []boxes.Adjustment {
	return []boxes.Adjustment{{
		Kind:           boxes.AdjustForceBreakBefore,
		Block:          v.OffendingBlock,
		SourceRuleID:   "max-lines-per-page",
		SourceSeverity: boxes.SeverityInfo,
	}}
}

// minPageFullnessRule flags a non-terminal page whose used-height ratio
// falls below the configured threshold (spec §4.5 table row 8).
type minPageFullnessRule struct{}

func (minPageFullnessRule) ID() string              { return "min-page-fullness" }
func (minPageFullnessRule) Severity() boxes.Severity { return boxes.SeverityInfo }

func (minPageFullnessRule) Check(state *boxes.LayoutState, cfg Config) []boxes.Violation {
	var out []boxes.Violation
	for pi, page := range state.Pages {
		if pi == len(state.Pages)-1 {
			continue // terminal page is allowed to end early
		}
		if page.Fullness() < cfg.MinPageFullness && len(page.Blocks) > 0 {
			last := page.Blocks[len(page.Blocks)-1]
			out = append(out, boxes.Violation{
				RuleID:         "min-page-fullness",
				Severity:       boxes.SeverityInfo,
				OffendingBlock: last.ID,
				PageIndex:      pi,
				Description:    fmt.Sprintf("page %d is only %.0f%% full", page.Number, page.Fullness()*100),
			})
		}
	}
	return out
}

// Suggest asks apply to pull the content of the following pages back onto
// this one and re-flow forward from there. The adjustment names the page's
// last block and carries Hint "pull-forward", from which apply finds the
// page, since the fix isn't local to one block.
func (minPageFullnessRule) Suggest(v boxes.Violation, _ *boxes.LayoutState, _ Config) []boxes.Adjustment {
	return []boxes.Adjustment{{
		Kind:           boxes.AdjustForceBreakBefore,
		Block:          v.OffendingBlock,
		Hint:           "pull-forward",
		SourceRuleID:   "min-page-fullness",
		SourceSeverity: boxes.SeverityInfo,
	}}
}

// balancedSpacingRule flags consecutive inter-block gaps on a page that
// differ by more than the configured tolerance (spec §4.5 table row 9), a
// purely cosmetic consistency check.
type balancedSpacingRule struct{}

func (balancedSpacingRule) ID() string              { return "balanced-spacing" }
func (balancedSpacingRule) Severity() boxes.Severity { return boxes.SeverityInfo }

func (r balancedSpacingRule) Check(state *boxes.LayoutState, cfg Config) []boxes.Violation {
	var out []boxes.Violation
	for pi, page := range state.Pages {
		gaps := pageGaps(page)
		if len(gaps) < 2 {
			continue
		}
		mean := 0.0
		for _, g := range gaps {
			mean += g.gap
		}
		mean /= float64(len(gaps))
		for _, g := range gaps {
			if absFloat(g.gap-mean) > cfg.BalancedSpacingTol {
				out = append(out, boxes.Violation{
					RuleID:         "balanced-spacing",
					Severity:       boxes.SeverityInfo,
					OffendingBlock: g.blockID,
					PageIndex:      pi,
					Description:    fmt.Sprintf("gap before %s is %.2fpt, page average is %.2fpt", g.blockID, g.gap, mean),
				})
			}
		}
	}
	return out
}

type pageGap struct {
	blockID boxes.BlockID
	gap     float64
}

func pageGaps(page boxes.PageLayout) []pageGap {
	var gaps []pageGap
	for i := 1; i < len(page.Blocks); i++ {
		prev, cur := page.Blocks[i-1], page.Blocks[i]
		gaps = append(gaps, pageGap{blockID: cur.ID, gap: prev.Bottom() - cur.Y})
	}
	return gaps
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func (balancedSpacingRule) Suggest(v boxes.Violation, state *boxes.LayoutState, cfg Config) []boxes.Adjustment {
	pi, bi, ok := state.FindBlock(v.OffendingBlock)
	if !ok || bi == 0 {
		return nil
	}
	page := state.Pages[pi]
	gaps := pageGaps(page)
	mean := 0.0
	for _, g := range gaps {
		mean += g.gap
	}
	mean /= float64(len(gaps))
	cur := page.Blocks[bi]
	prev := page.Blocks[bi-1]
	gap := prev.Bottom() - cur.Y
	return []boxes.Adjustment{{
		Kind:           boxes.AdjustAddSpacingBefore,
		Block:          v.OffendingBlock,
		Delta:          mean - gap,
		SourceRuleID:   "balanced-spacing",
		SourceSeverity: boxes.SeverityInfo,
	}}
}
