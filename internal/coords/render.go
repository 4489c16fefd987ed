package coords

import "github.com/rbf22/compose/internal/boxes"

// Render walks every page of a solved LayoutState and drives a, applying
// xf to translate the engine's native coordinates into the adapter's
// space. Pass IdentityTransform for bottom-left-origin targets (PDF) and
// FlipY for top-left-origin ones (HTML, raster canvases).
func Render(state boxes.LayoutState, xf Transform, a Adapter) error {
	for _, page := range state.Pages {
		if err := a.BeginPage(page.Width, page.Height); err != nil {
			return err
		}
		for _, block := range page.Blocks {
			if err := renderBlock(block, page.Height, xf, a); err != nil {
				return err
			}
		}
		if err := a.EndPage(); err != nil {
			return err
		}
	}
	return nil
}

// renderBlock draws a block's own content (a Paragraph's lines and/or
// directly-placed Boxes) and then recurses into its Children and Cells.
// A BlockLayout can legitimately carry any combination, so this does not
// switch on Kind.
func renderBlock(bl boxes.BlockLayout, pageHeight float64, xf Transform, a Adapter) error {
	if bl.Paragraph != nil {
		if err := renderParagraph(*bl.Paragraph, pageHeight, xf, a); err != nil {
			return err
		}
	}
	for _, box := range bl.Boxes {
		y := box.Y
		if box.Kind == boxes.KindTextRun {
			// Directly-placed text boxes (code block lines) store Y as their
			// top edge, like every other box kind; DrawTextRun wants a
			// baseline.
			y = box.Y - box.Ascent
		}
		if err := renderBox(box, box.X, y, pageHeight, xf, a); err != nil {
			return err
		}
	}
	for _, child := range bl.Children {
		if err := renderBlock(child, pageHeight, xf, a); err != nil {
			return err
		}
	}
	for _, row := range bl.Cells {
		for _, cell := range row {
			if err := renderBlock(cell, pageHeight, xf, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderParagraph(p boxes.ParagraphLayout, pageHeight float64, xf Transform, a Adapter) error {
	for _, line := range p.Lines {
		lineTop := p.Y + line.BaselineY
		baseline := lineTop - line.Ascent
		for _, run := range line.Runs {
			absX := p.X + line.X + run.X
			if run.Kind == boxes.KindTextRun {
				if err := renderBox(run, absX, baseline, pageHeight, xf, a); err != nil {
					return err
				}
				continue
			}
			// A non-text run (inline image or math) sits on the shared line
			// baseline by its own ascent, not the line's tallest ascent.
			if err := renderBox(run, absX, baseline+run.Ascent, pageHeight, xf, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderBox draws a single box whose top-left corner (for non-text kinds)
// or baseline (for KindTextRun, where y is already the baseline) is
// (x, y) in the engine's native coordinate space.
func renderBox(b boxes.Box, x, y, pageHeight float64, xf Transform, a Adapter) error {
	ox, oy := xf(pageHeight, x, y)
	switch b.Kind {
	case boxes.KindTextRun:
		return a.DrawTextRun(ox, oy, b.Run.Font, b.Run.Size, b.Run.Color, b.Run.Text, b.Run.Decoration)
	case boxes.KindRule:
		return a.DrawRule(ox, oy, b.Width, b.Height, b.RuleColor)
	case boxes.KindImage:
		return a.DrawImage(ox, oy, b.Width, b.Height, b.ImageHandle)
	case boxes.KindMath:
		return a.DrawMath(ox, oy, b)
	default:
		return nil
	}
}
