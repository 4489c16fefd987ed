// Package layout implements the Block Layout Generator (spec §4.4): it
// walks a docast.Document in document order, invokes the line breaker for
// paragraph-like content, and composes a boxes.LayoutState one page at a
// time using CSS-like margin collapsing between blocks. Each block kind
// (paragraph, heading, list, table, code block, math block, rule, figure)
// has its own builder, but all of them emit an immutable LayoutState
// rather than drawing immediately, and all widths come from real font
// metrics plus the Knuth-Plass line breaker instead of an estimate.
package layout

import (
	"fmt"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/docast"
	"github.com/rbf22/compose/internal/linebreak"
	"github.com/rbf22/compose/internal/measure"
	"github.com/rbf22/compose/internal/metrics"
	"github.com/rbf22/compose/internal/observability"
)

// MathRenderer turns TeX source into a pre-measured, opaque math box (spec
// §4.4 "Math block"). The block layout generator never measures math
// itself; it only positions the box the math engine hands back.
type MathRenderer interface {
	RenderMath(texSource string, fontSize float64, display bool) (boxes.Box, error)
}

// ImageSizer resolves an image reference to its intrinsic size in points.
type ImageSizer interface {
	ImageSize(ref string) (width, height float64, err error)
}

type nopMathRenderer struct{}

func (nopMathRenderer) RenderMath(_ string, fontSize float64, _ bool) (boxes.Box, error) {
	run := boxes.TextRun{Text: "[math]", Font: "Helvetica-Oblique", Size: fontSize}
	return boxes.NewTextBox(run, fontSize*3, fontSize*0.7, fontSize*0.2), nil
}

type nopImageSizer struct{}

func (nopImageSizer) ImageSize(string) (float64, float64, error) { return 200, 120, nil }

// Generator builds LayoutStates from docast documents.
type Generator struct {
	cfg      Config
	metrics  *metrics.Provider
	cache    *measure.Cache
	math     MathRenderer
	images   ImageSizer
	logger   observability.Logger
	lbParams linebreak.Params

	idCounter int
}

// New constructs a Generator. math and images may be nil, in which case a
// trivial placeholder collaborator is used, useful for tests that don't
// exercise math or figures.
func New(cfg Config, metricsProvider *metrics.Provider, cache *measure.Cache, math MathRenderer, images ImageSizer, logger observability.Logger) *Generator {
	if math == nil {
		math = nopMathRenderer{}
	}
	if images == nil {
		images = nopImageSizer{}
	}
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Generator{
		cfg:      cfg,
		metrics:  metricsProvider,
		cache:    cache,
		math:     math,
		images:   images,
		logger:   logger,
		lbParams: linebreak.DefaultParams(),
	}
}

// SetLineBreakParams overrides the Knuth–Plass constants (spec §6
// "line_breaking" group).
func (g *Generator) SetLineBreakParams(p linebreak.Params) { g.lbParams = p }

func (g *Generator) nextID() boxes.BlockID {
	g.idCounter++
	return boxes.BlockID(fmt.Sprintf("b%d", g.idCounter))
}

// genState is the mutable pagination cursor the generator threads through
// Generate, not exported, and discarded once Generate returns (spec §9,
// "no global state").
type genState struct {
	pages           []boxes.PageLayout
	pageIdx         int
	cursorY         float64
	lastSpacingAfter float64
	firstOnPage     bool
}

// Generate walks doc in document order and returns the initial LayoutState
// the constraint solver will refine.
func (g *Generator) Generate(doc docast.Document) (boxes.LayoutState, error) {
	contentX, _, contentWidth, _ := g.cfg.Margins.ContentRect(g.cfg.PageWidth, g.cfg.PageHeight)

	gs := &genState{}
	gs.newPage(g.cfg)

	for _, block := range doc.Blocks {
		bl, err := g.buildBlock(block, contentX, contentWidth)
		if err != nil {
			return boxes.LayoutState{}, err
		}
		gs.place(g.cfg, bl)
	}

	return boxes.LayoutState{
		Pages:      gs.pages,
		CursorPage: gs.pageIdx,
		CursorY:    gs.cursorY,
	}, nil
}

func (gs *genState) newPage(cfg Config) {
	gs.pages = append(gs.pages, boxes.PageLayout{
		Number:  len(gs.pages) + 1,
		Width:   cfg.PageWidth,
		Height:  cfg.PageHeight,
		Margins: cfg.Margins,
	})
	gs.pageIdx = len(gs.pages) - 1
	_, top, _, _ := cfg.Margins.ContentRect(cfg.PageWidth, cfg.PageHeight)
	gs.cursorY = top
	gs.lastSpacingAfter = 0
	gs.firstOnPage = true
}

// place positions bl on the current page, applying CSS-like margin
// collapsing between consecutive blocks (spec §4.4 "Pagination"). A
// Breakable multi-line paragraph that doesn't fully fit is split at the
// last line boundary that does, with the remainder placed (and split
// again, if needed) starting a fresh page. This is what lets a heading
// and the first lines of a long paragraph that follows it share a page
// (spec §8 Scenario A), with the solver's no-orphan/no-widow rules patrol-
// ling the resulting split for a line stranded alone at either end.
// Blocks that aren't Breakable move to the next page whole.
func (gs *genState) place(cfg Config, bl boxes.BlockLayout) {
	for {
		gap := 0.0
		if !gs.firstOnPage {
			gap = maxFloat(gs.lastSpacingAfter, bl.SpacingBefore)
		}
		avail := gs.cursorY - gap - cfg.Margins.Bottom

		if bl.Height <= avail+1e-6 {
			gs.placeWhole(cfg, bl, gap)
			return
		}

		if bl.Breakable && bl.Paragraph != nil && len(bl.Paragraph.Lines) > 1 {
			if count := countFittingLines(bl.Paragraph, avail); count >= 1 && count < len(bl.Paragraph.Lines) {
				first, rest := splitParagraphBlock(bl, count)
				gs.placeWhole(cfg, first, gap)
				gs.newPage(cfg)
				bl = rest
				continue
			}
		}

		if gs.firstOnPage {
			// Nothing more a fresh page can do: place it anyway rather than
			// loop forever.
			gs.placeWhole(cfg, bl, 0)
			return
		}
		gs.newPage(cfg)
	}
}

func (gs *genState) placeWhole(cfg Config, bl boxes.BlockLayout, gap float64) {
	top := gs.cursorY - gap
	shiftY(&bl, top)

	page := &gs.pages[gs.pageIdx]
	page.Blocks = append(page.Blocks, bl)
	page.UsedHeight += bl.Height + gap

	gs.cursorY = top - bl.Height
	gs.lastSpacingAfter = bl.SpacingAfter
	gs.firstOnPage = false
}

// countFittingLines returns how many leading lines of p fit within avail
// (including inter-line leading), per the running ParagraphLayout height
// formula in boxes.ParagraphLayout.TotalHeight.
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

// splitParagraphBlock divides bl's paragraph at line index n into a kept
// head (lines [0:n)) and a continuation tail (lines [n:)), each a
// self-contained BlockLayout in local (Y=0-top) coordinates.
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

// shiftY adds dy to bl.Y and recursively to every descendant's absolute Y
// coordinates: BlockLayout.Y, an attached ParagraphLayout.Y, Children,
// Cells, and Boxes. Line.BaselineY is left untouched because the line
// breaker expresses it relative to its ParagraphLayout's Y.
func shiftY(bl *boxes.BlockLayout, dy float64) {
	bl.Y += dy
	if bl.Paragraph != nil {
		bl.Paragraph.Y += dy
	}
	for i := range bl.Children {
		shiftY(&bl.Children[i], dy)
	}
	for r := range bl.Cells {
		for c := range bl.Cells[r] {
			shiftY(&bl.Cells[r][c], dy)
		}
	}
	for i := range bl.Boxes {
		bl.Boxes[i].Y += dy
	}
}

// buildBlock dispatches to the per-kind builder (spec §4.4). x and width
// describe the content rectangle the block's top-left corner and extent
// must respect; every builder returns a block positioned with Y=0 at its
// own top, which place then shifts into absolute page coordinates.
func (g *Generator) buildBlock(ast docast.Block, x, width float64) (boxes.BlockLayout, error) {
	switch ast.Kind {
	case docast.BlockHeading:
		return g.buildHeading(ast, x, width)
	case docast.BlockParagraph:
		return g.buildParagraph(ast, x, width)
	case docast.BlockList:
		return g.buildList(ast, x, width)
	case docast.BlockTable:
		return g.buildTable(ast, x, width)
	case docast.BlockCodeBlock:
		return g.buildCodeBlock(ast, x, width)
	case docast.BlockMathBlock:
		return g.buildMathBlock(ast, x, width)
	case docast.BlockRule:
		return g.buildRule(ast, x, width)
	case docast.BlockFigure:
		return g.buildFigure(ast, x, width)
	default:
		return boxes.BlockLayout{}, fmt.Errorf("layout: unknown block kind %d", ast.Kind)
	}
}
