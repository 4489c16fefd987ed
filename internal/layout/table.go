package layout

import (
	"strings"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/docast"
	"github.com/rbf22/compose/internal/measure"
)

// buildTable implements spec §4.4's two-pass "Table" rule: compute min/max
// column widths, distribute proportionally, then lay out each cell as an
// independent paragraph at its column's width. Row height is the max cell
// height. The cells live in the table's Cells grid; each row container
// carries only one rule box along its top edge. No vertical rules are
// drawn between columns and no rule is drawn below the last row.
func (g *Generator) buildTable(ast docast.Block, x, width float64) (boxes.BlockLayout, error) {
	numCols := 0
	for _, row := range ast.Rows {
		cols := 0
		for _, cell := range row {
			cols += spanOf(cell)
		}
		if cols > numCols {
			numCols = cols
		}
	}
	if numCols == 0 {
		return boxes.BlockLayout{ID: g.nextID(), Kind: boxes.BlockTable, X: x, Y: 0, Width: width, Height: 0}, nil
	}

	minW := make([]float64, numCols)
	maxW := make([]float64, numCols)
	for _, row := range ast.Rows {
		col := 0
		for _, cell := range row {
			span := spanOf(cell)
			text := plainText(cell.Inline)
			mn := g.widestWordWidth(text, g.cfg.DefaultFont, g.cfg.DefaultFontSize) + 2*g.cfg.TableCellPadding
			mx := g.naturalTextWidth(text, g.cfg.DefaultFont, g.cfg.DefaultFontSize) + 2*g.cfg.TableCellPadding
			for k := 0; k < span && col+k < numCols; k++ {
				if v := mn / float64(span); v > minW[col+k] {
					minW[col+k] = v
				}
				if v := mx / float64(span); v > maxW[col+k] {
					maxW[col+k] = v
				}
			}
			col += span
		}
	}

	colWidths := distributeColumnWidths(minW, maxW, width, g.cfg.MinColumnWidth)

	rowChildren := make([]boxes.BlockLayout, 0, len(ast.Rows))
	cellsOut := make([][]boxes.BlockLayout, len(ast.Rows))
	cursor := 0.0

	for ri, row := range ast.Rows {
		colX := 0.0
		col := 0
		cellBlocks := make([]boxes.BlockLayout, 0, len(row))
		rowHeight := 0.0

		for _, cell := range row {
			span := spanOf(cell)
			cw := sumRange(colWidths, col, span)
			cellBlock, err := g.buildParagraphLike(cell.Inline, x+colX+g.cfg.TableCellPadding, cw-2*g.cfg.TableCellPadding,
				g.cfg.DefaultFont, g.cfg.DefaultFontSize, boxes.BlockParagraph, 0, 0, false)
			if err != nil {
				return boxes.BlockLayout{}, err
			}
			shiftY(&cellBlock, -g.cfg.TableCellPadding)
			cellBlock.Height += 2 * g.cfg.TableCellPadding
			cellBlock.X = x + colX
			cellBlock.Width = cw
			if cellBlock.Height > rowHeight {
				rowHeight = cellBlock.Height
			}
			cellBlocks = append(cellBlocks, cellBlock)
			colX += cw
			col += span
		}

		for i := range cellBlocks {
			cellBlocks[i].Height = rowHeight
		}
		cellsOut[ri] = cellBlocks

		borderBox := boxes.Box{
			Kind: boxes.KindRule, X: x, Width: width, Height: g.cfg.TableBorderWidth,
			RuleColor: boxes.Color{R: 0.6, G: 0.6, B: 0.6},
		}

		rowBlock := boxes.BlockLayout{
			ID:     g.nextID(),
			Kind:   boxes.BlockContainer,
			X:      x,
			Y:      0,
			Width:  width,
			Height: rowHeight,
			Boxes:  []boxes.Box{borderBox},
		}
		shiftY(&rowBlock, -cursor)
		for i := range cellBlocks {
			shiftY(&cellBlocks[i], -cursor)
		}
		rowChildren = append(rowChildren, rowBlock)
		cursor += rowHeight
	}

	return boxes.BlockLayout{
		ID:            g.nextID(),
		Kind:          boxes.BlockTable,
		X:             x,
		Y:             0,
		Width:         width,
		Height:        cursor,
		Children:      rowChildren,
		Cells:         cellsOut,
		SpacingBefore: g.cfg.ParagraphSpacingBefore,
		SpacingAfter:  g.cfg.ParagraphSpacingAfter,
		Breakable:     false,
	}, nil
}

func spanOf(cell docast.TableCell) int {
	if cell.ColSpan < 1 {
		return 1
	}
	return cell.ColSpan
}

func sumRange(vals []float64, start, count int) float64 {
	total := 0.0
	for i := start; i < start+count && i < len(vals); i++ {
		total += vals[i]
	}
	return total
}

func (g *Generator) widestWordWidth(text string, font string, size float64) float64 {
	max := 0.0
	for _, w := range strings.Fields(text) {
		if v := measure.CachedMeasureText(g.cache, g.metrics, font, size, w, 0); v > max {
			max = v
		}
	}
	if max == 0 {
		max = g.cfg.MinColumnWidth
	}
	return max
}

func (g *Generator) naturalTextWidth(text string, font string, size float64) float64 {
	return measure.CachedMeasureText(g.cache, g.metrics, font, size, text, 0)
}

// distributeColumnWidths implements spec §4.4's two-pass column sizing: if
// the natural (max) widths fit, grow them proportionally to fill the
// available width; if even the minimum widths overflow, shrink
// proportionally to the minimums; otherwise interpolate between min and max
// to land exactly on the available width.
func distributeColumnWidths(minW, maxW []float64, avail, floor float64) []float64 {
	n := len(maxW)
	out := make([]float64, n)
	sumMin, sumMax := 0.0, 0.0
	for i := 0; i < n; i++ {
		sumMin += minW[i]
		sumMax += maxW[i]
	}

	switch {
	case sumMax <= avail && sumMax > 0:
		extra := avail - sumMax
		for i := 0; i < n; i++ {
			out[i] = maxW[i] + extra*(maxW[i]/sumMax)
		}
	case sumMin >= avail && sumMin > 0:
		for i := 0; i < n; i++ {
			out[i] = minW[i] * avail / sumMin
		}
	case sumMax > sumMin:
		scale := (avail - sumMin) / (sumMax - sumMin)
		for i := 0; i < n; i++ {
			out[i] = minW[i] + scale*(maxW[i]-minW[i])
		}
	default:
		for i := 0; i < n; i++ {
			out[i] = avail / float64(n)
		}
	}

	for i := range out {
		if out[i] < floor {
			out[i] = floor
		}
	}
	return out
}
