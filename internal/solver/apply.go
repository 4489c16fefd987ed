package solver

import (
	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/observability"
)

// applyAdjustments applies each adjustment to state in order, enforcing
// anti-thrash (spec §4.5: never apply the same kind to the same block
// twice while nothing else has changed) and the no-overflow monotonicity
// guarantee (an adjustment batch is rejected wholesale if it would
// introduce an overflow the state didn't already have). Returns whether
// anything was applied.
func applyAdjustments(state *boxes.LayoutState, adjustments []boxes.Adjustment, logger observability.Logger) bool {
	before := overflowingBlocks(state)
	appliedAny := false

	for _, adj := range adjustments {
		pi, bi, ok := state.FindBlock(adj.Block)
		if !ok {
			continue
		}
		blk := &state.Pages[pi].Blocks[bi]
		if blk.AppliedAdjustments != nil && blk.AppliedAdjustments[adj.Kind] > 0 {
			// Anti-thrash: this exact (block, kind) pair already fired and
			// nothing about it changed in between, so re-applying would just
			// oscillate.
			continue
		}

		var ok2 bool
		switch adj.Kind {
		case boxes.AdjustAddSpacingBefore:
			ok2 = applyAddSpacingBefore(state, pi, bi, adj)
		case boxes.AdjustMoveToNextPage:
			ok2 = applyMoveToNextPage(state, pi, bi)
		case boxes.AdjustForceBreakBefore:
			if adj.Hint == "pull-forward" {
				ok2 = applyPullForward(state, pi)
			} else {
				ok2 = applyMoveToNextPage(state, pi, bi)
			}
		case boxes.AdjustPullLineFromPrevious:
			ok2 = applyPullLineFromPrevious(state, adj.Block)
		case boxes.AdjustRebreakParagraph:
			// The generator already broke this paragraph at generation time;
			// there is no further structural action the solver can safely
			// take without re-running the line breaker, which is out of
			// scope for a layout-only adjustment pass.
			logger.Debug("solver: rebreak-paragraph adjustment recorded, no structural change applied", observability.String("block", string(adj.Block)))
			ok2 = true
		}

		if !ok2 {
			continue
		}
		markApplied(state, adj.Block, adj.Kind)
		appliedAny = true
	}

	if !appliedAny {
		return false
	}

	after := overflowingBlocks(state)
	for id := range after {
		if _, had := before[id]; !had {
			logger.Warn("solver: adjustment batch would introduce new overflow, rejecting", observability.String("block", string(id)))
			return false
		}
	}
	return true
}

func overflowingBlocks(state *boxes.LayoutState) map[boxes.BlockID]struct{} {
	out := make(map[boxes.BlockID]struct{})
	for _, page := range state.Pages {
		for _, b := range page.Blocks {
			if b.Bottom() < page.Margins.Bottom-1e-6 {
				out[b.ID] = struct{}{}
			}
		}
	}
	return out
}

// markApplied re-locates the block by ID after repacking (its page/index
// may have moved) and records the adjustment kind for anti-thrash.
func markApplied(state *boxes.LayoutState, id boxes.BlockID, kind boxes.AdjustmentKind) {
	pi, bi, ok := state.FindBlock(id)
	if !ok {
		return
	}
	blk := &state.Pages[pi].Blocks[bi]
	if blk.AppliedAdjustments == nil {
		blk.AppliedAdjustments = map[boxes.AdjustmentKind]int{}
	}
	blk.AppliedAdjustments[kind]++
}

func applyAddSpacingBefore(state *boxes.LayoutState, pi, bi int, adj boxes.Adjustment) bool {
	if adj.Delta <= 0 {
		return false
	}
	state.Pages[pi].Blocks[bi].SpacingBefore += adj.Delta
	repackFrom(state, pi, bi, pi, false)
	return true
}

// applyMoveToNextPage truncates the block's page at its index and
// re-places everything from there (the block itself and every block after
// it in document order, including a paragraph continuation that already
// lives on the following page) starting fresh on a new page. This is the
// single mechanism behind no-overflow, no-orphan, heading-orphan,
// keep-together, and max-lines-per-page: because truncateAt always
// collects every page after the truncation point too, a split paragraph's
// head and its continuation are reunited and re-placed as one unit.
func applyMoveToNextPage(state *boxes.LayoutState, pi, bi int) bool {
	if pi == len(state.Pages)-1 && bi == 0 {
		// Already alone at the top of the last page; nowhere to move it.
		return false
	}
	repackFrom(state, pi, bi, pi, true)
	return true
}

// applyPullForward reclaims every block on pages after pageIdx and
// re-flows them starting from pageIdx's own trailing cursor, letting
// content that fits climb back onto an underfull page.
func applyPullForward(state *boxes.LayoutState, pageIdx int) bool {
	if pageIdx >= len(state.Pages)-1 {
		return false
	}
	repackFrom(state, pageIdx+1, 0, pageIdx, false)
	return true
}

// applyPullLineFromPrevious moves the last line of the widow's head block
// onto the front of the widow block itself, shrinking the head by one
// line and growing the tail, then re-flows from the head's position
// forward.
func applyPullLineFromPrevious(state *boxes.LayoutState, widowID boxes.BlockID) bool {
	tpi, tbi, ok := state.FindBlock(widowID)
	if !ok {
		return false
	}
	tail := state.Pages[tpi].Blocks[tbi]
	if tail.ContinuationOf == "" {
		return false
	}
	hpi, hbi, ok := state.FindBlock(tail.ContinuationOf)
	if !ok {
		return false
	}
	head := &state.Pages[hpi].Blocks[hbi]
	if head.Paragraph == nil || len(head.Paragraph.Lines) < 2 {
		// Pulling would leave the head empty; nothing safe to do.
		return false
	}

	pulled := head.Paragraph.Lines[len(head.Paragraph.Lines)-1]
	head.Paragraph.Lines = head.Paragraph.Lines[:len(head.Paragraph.Lines)-1]
	head.Paragraph.Height = head.Paragraph.TotalHeight()
	head.Height = head.Paragraph.Height

	tailBlk := &state.Pages[tpi].Blocks[tbi]
	newLines := append([]boxes.Line{pulled}, tailBlk.Paragraph.Lines...)
	base := newLines[0].BaselineY
	for i := range newLines {
		newLines[i].BaselineY -= base
	}
	tailBlk.Paragraph.Lines = newLines
	tailBlk.Paragraph.Height = tailBlk.Paragraph.TotalHeight()
	tailBlk.Height = tailBlk.Paragraph.Height
	tailBlk.Breakable = len(newLines) > 1

	repackFrom(state, hpi, hbi, hpi, false)
	return true
}
