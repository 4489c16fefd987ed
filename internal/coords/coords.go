// Package coords walks a solved boxes.LayoutState and drives an Adapter
// with absolute-coordinate drawing calls, one page at a time. It is the
// seam spec §4.6 describes as the coordinate transform boundary: every
// other package in this module works in the engine's own cartesian,
// bottom-left-origin design space (Y increases upward, matching PDF's
// native space; see BlockLayout.Bottom and Margins.ContentRect). The
// engine has no top-origin design space. Backends whose coordinate system
// differs flip here, not upstream.
package coords

import "github.com/rbf22/compose/internal/boxes"

// Adapter receives absolute-position drawing calls for one page at a
// time, in the target coordinate system. Every concrete backend (PDF,
// HTML, plain text) implements the same small verb set directly, since
// each output format owns its own translation from verb to bytes.
type Adapter interface {
	// BeginPage starts a new page of the given dimensions, in the
	// adapter's own coordinate system (PDF: points, unflipped; HTML: CSS
	// pixels, Y flipped to top-left origin).
	BeginPage(width, height float64) error

	// DrawTextRun paints text with its baseline at (x, yBaseline).
	DrawTextRun(x, yBaseline float64, font string, size float64, color boxes.Color, text string, decoration boxes.Decoration) error

	// DrawRule paints a filled rectangle, used for thematic breaks and the
	// rule along the top of each table row. The math engine draws no
	// fraction bars.
	DrawRule(x, y, w, h float64, color boxes.Color) error

	// DrawImage paints an image resource at the given box.
	DrawImage(x, y, w, h float64, handle string) error

	// DrawMath paints a math.Box's measured content at its top-left
	// corner (x, y); the adapter type-asserts mathBox.MathHandle for
	// glyph-level detail, falling back to a plain rectangle if the handle
	// is unrecognized.
	DrawMath(x, y float64, mathBox boxes.Box) error

	// EndPage finishes the current page.
	EndPage() error
}

// Transform maps a point in the engine's native coordinate space to an
// adapter's output space. PDF uses IdentityTransform; HTML and other
// top-left-origin formats use FlipY.
type Transform func(pageHeight, x, y float64) (outX, outY float64)

// IdentityTransform passes coordinates through unchanged, correct for
// any bottom-left-origin target, PDF chief among them.
func IdentityTransform(_ float64, x, y float64) (float64, float64) { return x, y }

// FlipY converts the engine's bottom-left-origin Y to a top-left-origin
// Y, for targets like HTML/CSS and raster canvases where Y grows
// downward. x passes through unchanged.
func FlipY(pageHeight float64, x, y float64) (float64, float64) {
	return x, pageHeight - y
}
