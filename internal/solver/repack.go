package solver

import "github.com/rbf22/compose/internal/boxes"

// repacker re-flows a tail of blocks starting at a given page, the same
// fit-or-new-page logic the block layout generator uses, so that an
// adjustment applied to one block (a spacing change, a page move) correctly
// propagates to every block after it (spec §4.5 step 6, "re-layout any
// blocks whose upstream position changed").
type repacker struct {
	state            *boxes.LayoutState
	pageIdx          int
	cursorY          float64
	lastSpacingAfter float64
	firstOnPage      bool
}

// truncateAt drops blocks[fromIdx:] on page pageIdx and every page after
// it, returning the dropped blocks in document order so the caller can
// re-place them (possibly after inserting new ones, e.g. a split tail).
func truncateAt(state *boxes.LayoutState, pageIdx, fromIdx int) []boxes.BlockLayout {
	var tail []boxes.BlockLayout
	page := &state.Pages[pageIdx]
	tail = append(tail, page.Blocks[fromIdx:]...)
	for pi := pageIdx + 1; pi < len(state.Pages); pi++ {
		tail = append(tail, state.Pages[pi].Blocks...)
	}
	for i := range tail {
		resetToLocal(&tail[i])
	}

	page.Blocks = page.Blocks[:fromIdx]
	usedHeight := 0.0
	for _, b := range page.Blocks {
		usedHeight += b.Height
	}
	page.UsedHeight = usedHeight
	state.Pages = state.Pages[:pageIdx+1]
	return tail
}

// resetToLocal undoes shiftY's absolute positioning: since bl.Y currently
// holds exactly the dy a prior shiftY added, subtracting it returns the
// whole subtree to the local (Y=0 at top) coordinates the placement
// routines expect.
func resetToLocal(bl *boxes.BlockLayout) { shiftYTree(bl, -bl.Y) }

func shiftYTree(bl *boxes.BlockLayout, dy float64) {
	bl.Y += dy
	if bl.Paragraph != nil {
		bl.Paragraph.Y += dy
	}
	for i := range bl.Children {
		shiftYTree(&bl.Children[i], dy)
	}
	for r := range bl.Cells {
		for c := range bl.Cells[r] {
			shiftYTree(&bl.Cells[r][c], dy)
		}
	}
	for i := range bl.Boxes {
		bl.Boxes[i].Y += dy
	}
}

// repackFrom removes blocks[truncBlock:] on page truncPage (and every page
// after it), then re-places them starting from anchorPage, the page
// whose trailing cursor position repacking resumes from. anchorPage is
// normally equal to truncPage (resume right where the truncated block
// sat); min-page-fullness's "pull forward" fix passes an earlier
// anchorPage so the reclaimed content re-flows back onto an underfull
// page instead of starting a fresh one.
func repackFrom(state *boxes.LayoutState, truncPage, truncBlock, anchorPage int, forceNewPage bool) {
	tail := truncateAt(state, truncPage, truncBlock)
	for len(state.Pages)-1 > anchorPage {
		state.Pages = state.Pages[:len(state.Pages)-1]
	}
	r := newRepackerAt(state, anchorPage)
	if forceNewPage {
		r.newPage()
	}
	for _, b := range tail {
		r.place(b)
	}
	state.CursorPage = r.pageIdx
	state.CursorY = r.cursorY
}

func newRepackerAt(state *boxes.LayoutState, pageIdx int) *repacker {
	page := state.Pages[pageIdx]
	r := &repacker{state: state, pageIdx: pageIdx}
	_, top, _, _ := page.Margins.ContentRect(page.Width, page.Height)
	if len(page.Blocks) == 0 {
		r.cursorY = top
		r.firstOnPage = true
		return r
	}
	last := page.Blocks[len(page.Blocks)-1]
	r.cursorY = last.Bottom()
	r.lastSpacingAfter = last.SpacingAfter
	r.firstOnPage = false
	return r
}

func (r *repacker) newPage() {
	prev := r.state.Pages[r.pageIdx]
	r.state.Pages = append(r.state.Pages, boxes.PageLayout{
		Number:  len(r.state.Pages) + 1,
		Width:   prev.Width,
		Height:  prev.Height,
		Margins: prev.Margins,
	})
	r.pageIdx = len(r.state.Pages) - 1
	page := r.state.Pages[r.pageIdx]
	_, top, _, _ := page.Margins.ContentRect(page.Width, page.Height)
	r.cursorY = top
	r.lastSpacingAfter = 0
	r.firstOnPage = true
}

// place mirrors the generator's pagination loop: split a Breakable
// multi-line paragraph at the page boundary if it doesn't fully fit,
// otherwise move it whole to a new page.
func (r *repacker) place(bl boxes.BlockLayout) {
	for {
		page := r.state.Pages[r.pageIdx]
		gap := 0.0
		if !r.firstOnPage {
			gap = maxFloat(r.lastSpacingAfter, bl.SpacingBefore)
		}
		avail := r.cursorY - gap - page.Margins.Bottom

		if bl.Height <= avail+1e-6 {
			r.placeWhole(bl, gap)
			return
		}

		if bl.Breakable && bl.Paragraph != nil && len(bl.Paragraph.Lines) > 1 {
			if count := countFittingLines(bl.Paragraph, avail); count >= 1 && count < len(bl.Paragraph.Lines) {
				head, tail := splitParagraphBlock(bl, count)
				r.placeWhole(head, gap)
				r.newPage()
				bl = tail
				continue
			}
		}

		if r.firstOnPage {
			r.placeWhole(bl, 0)
			return
		}
		r.newPage()
	}
}

func (r *repacker) placeWhole(bl boxes.BlockLayout, gap float64) {
	top := r.cursorY - gap
	shiftYTree(&bl, top)

	page := &r.state.Pages[r.pageIdx]
	page.Blocks = append(page.Blocks, bl)
	page.UsedHeight += bl.Height + gap

	r.cursorY = top - bl.Height
	r.lastSpacingAfter = bl.SpacingAfter
	r.firstOnPage = false
}

func countFittingLines(p *boxes.ParagraphLayout, avail float64) int {
	h := 0.0
	for i, ln := range p.Lines {
		next := h + ln.Height
		if i > 0 {
			next += p.LineLeading
		}
		if next > avail+1e-6 {
			return i
		}
		h = next
	}
	return len(p.Lines)
}

func splitParagraphBlock(bl boxes.BlockLayout, n int) (head, tail boxes.BlockLayout) {
	p := *bl.Paragraph

	headLines := append([]boxes.Line(nil), p.Lines[:n]...)
	tailLines := append([]boxes.Line(nil), p.Lines[n:]...)
	baseline := tailLines[0].BaselineY
	for i := range tailLines {
		tailLines[i].BaselineY -= baseline
	}

	headPara := p
	headPara.Lines = headLines
	headPara.SpacingAfter = 0
	headPara.Height = headPara.TotalHeight()

	tailPara := p
	tailPara.Lines = tailLines
	tailPara.Y = 0
	tailPara.Height = tailPara.TotalHeight()

	head = bl
	head.Paragraph = &headPara
	head.Height = headPara.Height
	head.SpacingAfter = 0
	head.KeepWithNext = false

	tail = bl
	tail.ID = boxes.BlockID(string(bl.ID) + "/cont")
	tail.Paragraph = &tailPara
	tail.Height = tailPara.Height
	tail.SpacingBefore = 0
	tail.ContinuationOf = bl.ID
	tail.Breakable = len(tailLines) > 1
	tail.AppliedAdjustments = nil

	return head, tail
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
