package layout

import (
	"fmt"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/docast"
	"github.com/rbf22/compose/internal/measure"
)

// buildList implements spec §4.4's "List" rule: list items are indented
// paragraphs; the marker is a fixed-width box at the item's left gutter,
// sharing the first baseline of the item's first line. Markers and item
// bodies are emitted as a BlockList subtree with nested items positioned
// in local (pre-shift) coordinates, rather than drawn immediately.
func (g *Generator) buildList(ast docast.Block, x, width float64) (boxes.BlockLayout, error) {
	gutter := g.cfg.ListIndent
	itemX := x + gutter
	itemWidth := width - gutter
	if itemWidth < g.cfg.MinColumnWidth {
		itemWidth = g.cfg.MinColumnWidth
	}

	children := make([]boxes.BlockLayout, 0, len(ast.Items))
	cursor := 0.0

	for i, item := range ast.Items {
		marker := "•"
		if ast.Ordered {
			marker = fmt.Sprintf("%d.", ast.Start+i)
		}

		nested := make([]boxes.BlockLayout, 0, len(item.Blocks))
		localY := 0.0
		for _, nb := range item.Blocks {
			built, err := g.buildBlock(nb, itemX, itemWidth)
			if err != nil {
				return boxes.BlockLayout{}, err
			}
			shiftY(&built, -localY)
			nested = append(nested, built)
			localY += built.Height + g.cfg.ListItemSpacing
		}
		itemHeight := localY
		if len(nested) > 0 {
			itemHeight -= g.cfg.ListItemSpacing
		}

		markerBaselineY := 0.0
		if len(nested) > 0 && nested[0].Paragraph != nil && len(nested[0].Paragraph.Lines) > 0 {
			markerBaselineY = nested[0].Paragraph.Y + nested[0].Paragraph.Lines[0].BaselineY
		}
		info := g.metrics.FontMetrics(g.cfg.DefaultFont, g.cfg.DefaultFontSize)
		markerW := measure.CachedMeasureText(g.cache, g.metrics, g.cfg.DefaultFont, g.cfg.DefaultFontSize, marker, 0)
		markerBox := boxes.NewTextBox(
			boxes.TextRun{Text: marker, Font: g.cfg.DefaultFont, Size: g.cfg.DefaultFontSize},
			markerW, info.Ascent, info.Descent,
		)
		markerBox.X = x
		markerBox.Y = markerBaselineY

		itemBlock := boxes.BlockLayout{
			ID:       g.nextID(),
			Kind:     boxes.BlockListItem,
			X:        x,
			Y:        0,
			Width:    width,
			Height:   itemHeight,
			Children: nested,
			Boxes:    []boxes.Box{markerBox},
		}
		shiftY(&itemBlock, -cursor)
		children = append(children, itemBlock)
		cursor += itemHeight + g.cfg.ListItemSpacing
	}

	total := cursor
	if len(children) > 0 {
		total -= g.cfg.ListItemSpacing
	}

	return boxes.BlockLayout{
		ID:            g.nextID(),
		Kind:          boxes.BlockList,
		X:             x,
		Y:             0,
		Width:         width,
		Height:        total,
		Children:      children,
		SpacingBefore: g.cfg.ParagraphSpacingBefore,
		SpacingAfter:  g.cfg.ParagraphSpacingAfter,
		Breakable:     false,
	}, nil
}
