package layout

import (
	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/docast"
)

// buildRule implements spec §4.4's "Rule" case: a single fixed-dimension
// block.
func (g *Generator) buildRule(_ docast.Block, x, width float64) (boxes.BlockLayout, error) {
	height := g.cfg.RuleThickness
	box := boxes.Box{Kind: boxes.KindRule, X: x, Width: width, Height: height, RuleColor: boxes.Color{R: 0.5, G: 0.5, B: 0.5}}
	return boxes.BlockLayout{
		ID:            g.nextID(),
		Kind:          boxes.BlockRule,
		X:             x,
		Y:             0,
		Width:         width,
		Height:        height,
		Boxes:         []boxes.Box{box},
		SpacingBefore: g.cfg.ParagraphSpacingBefore,
		SpacingAfter:  g.cfg.ParagraphSpacingAfter,
		Breakable:     false,
	}, nil
}

// buildFigure implements spec §4.4's "Figure" case: the image is sized via
// ImageSizer, scaled to fit the content width, with an optional caption
// paragraph beneath it.
func (g *Generator) buildFigure(ast docast.Block, x, width float64) (boxes.BlockLayout, error) {
	w, h, err := g.images.ImageSize(ast.ImageRef)
	if err != nil {
		g.logger.Warn("layout: figure image size lookup failed, using placeholder")
		w, h = width, width*0.6
	}
	if w > width {
		scale := width / w
		w = width
		h *= scale
	}

	imgBox := boxes.Box{Kind: boxes.KindImage, X: x + (width-w)/2, Width: w, Height: h, ImageHandle: ast.ImageRef}
	height := h
	var children []boxes.BlockLayout

	if len(ast.Caption) > 0 {
		capBlock, err := g.buildParagraphLike(ast.Caption, x, width, g.cfg.DefaultFont, g.cfg.DefaultFontSize*0.9,
			boxes.BlockParagraph, g.cfg.FigureCaptionGap, 0, false)
		if err != nil {
			return boxes.BlockLayout{}, err
		}
		shiftY(&capBlock, -(h + g.cfg.FigureCaptionGap))
		children = append(children, capBlock)
		height += g.cfg.FigureCaptionGap + capBlock.Height
	}

	return boxes.BlockLayout{
		ID:            g.nextID(),
		Kind:          boxes.BlockFigure,
		X:             x,
		Y:             0,
		Width:         width,
		Height:        height,
		Boxes:         []boxes.Box{imgBox},
		Children:      children,
		SpacingBefore: g.cfg.FigureSpacingBefore,
		SpacingAfter:  g.cfg.FigureSpacingAfter,
		Breakable:     false,
		KeepTogether:  true,
	}, nil
}
