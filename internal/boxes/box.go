// Package boxes defines the shared coordinate and box-model types that flow
// between the line breaker, the block layout generator, the constraint
// solver, and the coordinate adapter. Every type here is a plain value: no
// method touches I/O, and no type holds a pointer back into a parser or
// renderer.
package boxes

// Kind distinguishes the concrete shape stored in a Box.
type Kind int

const (
	KindTextRun Kind = iota
	KindRule
	KindImage
	KindMath
	KindTableCell
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindTextRun:
		return "text-run"
	case KindRule:
		return "rule"
	case KindImage:
		return "image"
	case KindMath:
		return "math"
	case KindTableCell:
		return "table-cell"
	case KindContainer:
		return "container"
	default:
		return "unknown"
	}
}

// Decoration flags for a text run.
type Decoration int

const (
	DecorationNone Decoration = 0
	DecorationBold Decoration = 1 << iota
	DecorationItalic
	DecorationStrike
	DecorationUnderline
	DecorationCode
)

func (d Decoration) Has(f Decoration) bool { return d&f != 0 }

// Color is an RGB color in the 0..1 range, the form internal/pdfdoc's
// content-stream builder expects so the coordinate adapter can hand boxes
// straight to it.
type Color struct{ R, G, B float64 }

// TextRun is an immutable run of text sharing font, size, color and
// decoration, the unit the line breaker assembles lines out of.
type TextRun struct {
	Text       string
	Font       string
	Size       float64
	Color      Color
	Decoration Decoration
}

// Box is a positioned rectangle with an intrinsic width, height, ascent and
// descent (spec §3). Exactly one of the Kind-specific fields is populated
// according to Kind.
type Box struct {
	Kind Kind

	X, Y           float64 // top-left corner; Y is measured up from the page bottom (bottom-left origin, not top-origin)
	Width, Height  float64
	Ascent, Descent float64

	// KindTextRun
	Run TextRun

	// KindRule
	RuleColor Color

	// KindImage
	ImageHandle string // opaque source handle, resolved by the adapter

	// KindMath
	MathHandle any // opaque box produced by the math engine

	// KindTableCell / KindContainer
	Children []Box
}

// Invariant reports whether the box satisfies spec §3's Box invariant:
// height = ascent + descent for text, and width/height strictly positive
// for every box.
func (b Box) Invariant() bool {
	if b.Width <= 0 || b.Height <= 0 {
		return false
	}
	if b.Kind == KindTextRun {
		const epsilon = 1e-6
		sum := b.Ascent + b.Descent
		if sum-b.Height > epsilon || b.Height-sum > epsilon {
			return false
		}
	}
	return true
}

// ParagraphItem is one element of the Knuth–Plass input stream: exactly one
// of Box, Glue, or Penalty is populated per ItemKind.
type ItemKind int

const (
	ItemBox ItemKind = iota
	ItemGlue
	ItemPenalty
)

// Glue is flexible whitespace: natural width w, stretchability y >= 0,
// shrinkability z >= 0.
type Glue struct {
	Width  float64
	Stretch float64
	Shrink  float64
}

// Penalty is a potential break point. Cost is in [-Inf, +Inf]; -Inf forces a
// break, +Inf forbids one. Flagged breaks (e.g. hyphens) on two consecutive
// lines are allowed but cost the breaker's extra flagged demerits.
type Penalty struct {
	Cost    float64
	Flagged bool
}

// ParagraphItem is a single node of the paragraph input stream consumed by
// the line breaker.
type ParagraphItem struct {
	Kind ItemKind

	Box     Box
	Glue    Glue
	Penalty Penalty

	// Width is the item's natural advance. The Knuth–Plass pass reads
	// Box.Width and Glue.Width directly and does not use this field; only
	// the greedy fallback reads it, and for boxes it uses Box.Width.
	Width float64
}

const (
	// ForceBreak is the Knuth–Plass mandatory-break penalty.
	ForceBreak = -1e6
	// ForbidBreak is the Knuth–Plass never-break penalty.
	ForbidBreak = 1e6
)

// NewTextBox builds a text-run Box with height = ascent + descent.
func NewTextBox(run TextRun, width, ascent, descent float64) Box {
	return Box{
		Kind:    KindTextRun,
		Run:     run,
		Width:   width,
		Ascent:  ascent,
		Descent: descent,
		Height:  ascent + descent,
	}
}
