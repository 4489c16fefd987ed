package coords

import (
	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/mathengine"
)

// mathGlyphDrawer paints one flattened math glyph at an absolute position
// in the adapter's own coordinate system.
type mathGlyphDrawer func(x, y float64, font string, size float64, text string) error

// drawMathRecursive flattens mathBox's MathHandle (if it's one
// internal/mathengine produced) and calls draw once per glyph, converting
// each glyph's top-left-relative, Y-down offset into an absolute position
// in the caller's coordinate system. yDown selects how offsets combine
// with the box's own top-left (topX, topY): false for a Y-up target
// (PDF), true for a Y-down one (HTML/CSS).
//
// If the handle isn't recognized, drawFallback is called once with the
// box's own top-left and extent so the caller can paint a placeholder.
func drawMathRecursive(boxTopX, boxTopY float64, mathBox boxes.Box, yDown bool, draw mathGlyphDrawer, drawFallback func(x, y, w, h float64) error) error {
	glyphs, ok := mathengine.Flatten(mathBox.MathHandle, mathBox.Ascent)
	if !ok {
		if drawFallback != nil {
			return drawFallback(boxTopX, boxTopY, mathBox.Width, mathBox.Height)
		}
		return nil
	}
	for _, g := range glyphs {
		gx := boxTopX + g.X
		gy := boxTopY - g.Y
		if yDown {
			gy = boxTopY + g.Y
		}
		if err := draw(gx, gy, g.Font, g.Size, g.Text); err != nil {
			return err
		}
	}
	return nil
}
