package boxes

// BlockKind tags the union BlockLayout carries (spec §3).
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockList
	BlockListItem
	BlockTable
	BlockCodeBlock
	BlockMathDisplay
	BlockRule
	BlockFigure
	BlockContainer
)

func (k BlockKind) String() string {
	names := [...]string{
		"paragraph", "heading", "list", "list-item", "table",
		"code-block", "math-display", "rule", "figure", "container",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// BlockID identifies a block within a document for violation reporting and
// anti-thrash bookkeeping; it is stable across solver iterations because it
// is assigned once by the block layout generator, never recomputed from
// position.
type BlockID string

// BlockLayout is a tagged union over the block kinds the spec names. Every
// variant carries its bounds, its child layouts, and the three flags the
// solver rules consult.
type BlockLayout struct {
	ID   BlockID
	Kind BlockKind

	X, Y, Width, Height float64

	KeepWithNext  bool
	KeepTogether  bool
	Breakable     bool

	Paragraph *ParagraphLayout // BlockParagraph, BlockHeading, BlockListItem text
	Children  []BlockLayout    // BlockList, BlockTable (rows), BlockContainer
	Cells     [][]BlockLayout  // BlockTable: row-major cells, each an independent paragraph layout
	Boxes     []Box            // BlockRule, BlockFigure, BlockMathDisplay, BlockCodeBlock lines

	SpacingBefore float64
	SpacingAfter  float64

	// ContinuationOf is non-empty when this block is the tail half of a
	// paragraph the generator or solver split across a page boundary; it
	// names the ID of the block holding the preceding lines. Empty for an
	// unsplit block.
	ContinuationOf BlockID

	// AppliedAdjustments records which adjustment kinds have already been
	// applied to this block, keyed by AdjustmentKind, to satisfy the
	// anti-thrash requirement in spec §4.5.
	AppliedAdjustments map[AdjustmentKind]int
}

// Bottom is the Y coordinate of the block's bottom edge in the engine's
// bottom-left-origin design space (Y decreases going down the page, so
// bottom = Y - Height). The engine does not use a top-origin space.
func (b BlockLayout) Bottom() float64 { return b.Y - b.Height }

// clone returns a deep copy of the block subtree so the solver can mutate a
// working copy without aliasing the previous iteration's state.
func (b BlockLayout) clone() BlockLayout {
	nb := b
	if b.Paragraph != nil {
		p := *b.Paragraph
		p.Lines = append([]Line(nil), b.Paragraph.Lines...)
		nb.Paragraph = &p
	}
	if b.Children != nil {
		nb.Children = make([]BlockLayout, len(b.Children))
		for i, c := range b.Children {
			nb.Children[i] = c.clone()
		}
	}
	if b.Cells != nil {
		nb.Cells = make([][]BlockLayout, len(b.Cells))
		for i, row := range b.Cells {
			nb.Cells[i] = make([]BlockLayout, len(row))
			for j, c := range row {
				nb.Cells[i][j] = c.clone()
			}
		}
	}
	if b.Boxes != nil {
		nb.Boxes = append([]Box(nil), b.Boxes...)
	}
	if b.AppliedAdjustments != nil {
		nb.AppliedAdjustments = make(map[AdjustmentKind]int, len(b.AppliedAdjustments))
		for k, v := range b.AppliedAdjustments {
			nb.AppliedAdjustments[k] = v
		}
	}
	return nb
}

// Margins is the page margin quadruple (spec §6 configuration).
type Margins struct {
	Top, Bottom, Left, Right float64
}

// ContentRect returns the page content rectangle a block must lie within
// (spec §3 page-layout invariant), in bottom-left-origin coordinates: y is
// the content area's top edge, measured up from the page bottom.
func (m Margins) ContentRect(pageWidth, pageHeight float64) (x, y, w, h float64) {
	x = m.Left
	y = pageHeight - m.Top
	w = pageWidth - m.Left - m.Right
	h = pageHeight - m.Top - m.Bottom
	return
}

// PageLayout is a page number, dimensions, margins, and the ordered blocks
// placed on it (spec §3).
type PageLayout struct {
	Number     int
	Width      float64
	Height     float64
	Margins    Margins
	Blocks     []BlockLayout
	UsedHeight float64
}

// Fullness is the page's UsedHeight divided by the content rectangle's
// height, consulted by the min-page-fullness rule.
func (p PageLayout) Fullness() float64 {
	_, _, _, h := p.Margins.ContentRect(p.Width, p.Height)
	if h <= 0 {
		return 0
	}
	return p.UsedHeight / h
}

func (p PageLayout) clone() PageLayout {
	np := p
	np.Blocks = make([]BlockLayout, len(p.Blocks))
	for i, b := range p.Blocks {
		np.Blocks[i] = b.clone()
	}
	return np
}
