package layout

import (
	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/docast"
)

// buildMathBlock implements spec §4.4's "Math block" rule: the math box is
// opaque to the generator: it only centers the pre-measured box the math
// engine returns within the content area.
func (g *Generator) buildMathBlock(ast docast.Block, x, width float64) (boxes.BlockLayout, error) {
	b, err := g.math.RenderMath(ast.TeXSource, g.cfg.DefaultFontSize*1.2, true)
	if err != nil {
		return boxes.BlockLayout{}, err
	}
	b.X = x + (width-b.Width)/2
	b.Y = 0

	return boxes.BlockLayout{
		ID:            g.nextID(),
		Kind:          boxes.BlockMathDisplay,
		X:             x,
		Y:             0,
		Width:         width,
		Height:        b.Height,
		Boxes:         []boxes.Box{b},
		SpacingBefore: g.cfg.ParagraphSpacingBefore,
		SpacingAfter:  g.cfg.ParagraphSpacingAfter,
		Breakable:     false,
	}, nil
}
