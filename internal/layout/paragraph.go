package layout

import (
	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/docast"
	"github.com/rbf22/compose/internal/linebreak"
)

// buildParagraph implements spec §4.4's "Paragraph" rule: flatten inline
// content into a stream, break it with the Knuth–Plass line breaker at the
// content width, and wrap the resulting lines with configured spacing.
func (g *Generator) buildParagraph(ast docast.Block, x, width float64) (boxes.BlockLayout, error) {
	return g.buildParagraphLike(ast.Inline, x, width, g.cfg.DefaultFont, g.cfg.DefaultFontSize,
		boxes.BlockParagraph, g.cfg.ParagraphSpacingBefore, g.cfg.ParagraphSpacingAfter, false)
}

// buildHeading treats a heading as a paragraph at a larger size with
// keep-with-next set (spec §4.4 "Heading").
func (g *Generator) buildHeading(ast docast.Block, x, width float64) (boxes.BlockLayout, error) {
	size := g.cfg.headingSize(ast.Level)
	bl, err := g.buildParagraphLike(ast.Inline, x, width, g.cfg.DefaultFont, size,
		boxes.BlockHeading, g.cfg.HeadingSpacingBefore, g.cfg.HeadingSpacingAfter, true)
	return bl, err
}

func (g *Generator) buildParagraphLike(inlines []docast.Inline, x, width float64, font string, size float64,
	kind boxes.BlockKind, spacingBefore, spacingAfter float64, keepWithNext bool) (boxes.BlockLayout, error) {

	pb := &paraBuilder{}
	if err := g.flattenInline(inlines, pb, font, size, boxes.Color{}, boxes.DecorationNone); err != nil {
		return boxes.BlockLayout{}, err
	}
	pb.addForcedBreak()

	lineWidth := func(int) float64 { return width }
	params := g.lbParams
	params.LineLeading = g.cfg.lineLeading(size)
	lines, err := linebreak.Break(pb.items, lineWidth, params, g.logger)
	if err != nil {
		return boxes.BlockLayout{}, err
	}

	para := &boxes.ParagraphLayout{
		X:            x,
		Y:            0,
		Width:        width,
		Lines:        lines,
		LineLeading:  g.cfg.lineLeading(size),
		SpacingAfter: spacingAfter,
	}
	para.Height = para.TotalHeight()

	return boxes.BlockLayout{
		ID:            g.nextID(),
		Kind:          kind,
		X:             x,
		Y:             0,
		Width:         width,
		Height:        para.Height,
		Paragraph:     para,
		SpacingBefore: spacingBefore,
		SpacingAfter:  spacingAfter,
		KeepWithNext:  keepWithNext,
		Breakable:     !keepWithNext && len(lines) > 1,
	}, nil
}
