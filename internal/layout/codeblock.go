package layout

import (
	"strings"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/docast"
	"github.com/rbf22/compose/internal/measure"
)

// buildCodeBlock implements spec §4.4's "Code block" rule: monospaced, no
// line breaking within source lines, one line layout per source line, with
// a filled rule as background.
func (g *Generator) buildCodeBlock(ast docast.Block, x, width float64) (boxes.BlockLayout, error) {
	font := g.cfg.MonospaceFont
	size := g.cfg.DefaultFontSize
	lineHeight := size * g.cfg.LineHeight
	pad := g.cfg.CodeBlockPadding

	lines := strings.Split(strings.TrimRight(ast.Text, "\n"), "\n")
	height := float64(len(lines))*lineHeight + 2*pad

	background := boxes.Box{
		Kind: boxes.KindRule, X: x, Width: width, Height: height,
		RuleColor: boxes.Color{R: 0.95, G: 0.95, B: 0.95},
	}
	out := []boxes.Box{background}

	info := g.metrics.FontMetrics(font, size)
	y := -pad
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		w := measure.CachedMeasureText(g.cache, g.metrics, font, size, line, int(boxes.DecorationCode))
		run := boxes.TextRun{Text: line, Font: font, Size: size, Decoration: boxes.DecorationCode}
		b := boxes.NewTextBox(run, w, info.Ascent, info.Descent)
		b.X = x + pad
		b.Y = y
		out = append(out, b)
		y -= lineHeight
	}

	return boxes.BlockLayout{
		ID:            g.nextID(),
		Kind:          boxes.BlockCodeBlock,
		X:             x,
		Y:             0,
		Width:         width,
		Height:        height,
		Boxes:         out,
		SpacingBefore: g.cfg.ParagraphSpacingBefore,
		SpacingAfter:  g.cfg.ParagraphSpacingAfter,
		Breakable:     false,
	}, nil
}
