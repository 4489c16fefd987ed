// Package pdfdoc is a trimmed semantic PDF document model: just enough to
// describe pages, fonts, and content-stream operations for a document built
// from a laid-out, paginated manuscript. It carries none of PDF's
// encryption, signing, linearization, AcroForm, or XFA machinery, since this
// module authors PDFs from Markdown and never edits or re-signs an existing
// one.
//
// Document/Page/Resources/Font/ContentStream map directly onto their PDF
// object counterparts, and the ContentStream builder exposes typed append
// methods (MoveText, ShowText, Rect, and so on) instead of letting callers
// assemble raw operator strings.
package pdfdoc

// Rectangle is a PDF rectangle, lower-left/upper-right in PDF's native
// bottom-left-origin point space.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Document is the semantic representation of the PDF this module emits.
type Document struct {
	Pages []*Page
	Info  DocumentInfo
}

// DocumentInfo populates the trailer's /Info dictionary.
type DocumentInfo struct {
	Title, Author, Creator, Producer string
}

// Page models a single page: its box, its resource dictionary, and the
// content stream(s) drawing onto it.
type Page struct {
	MediaBox  Rectangle
	Resources *Resources
	Contents  []*ContentStream
}

// Resources holds the named resources a page's content stream can
// reference: just fonts and image XObjects, the only two kinds
// a page's drawing calls ever emit.
type Resources struct {
	Fonts   map[string]*Font
	XObjects map[string]*XObject
}

// Font is a simple (non-CID, non-embedded) font resource: the Standard-14
// metrics internal/metrics falls back to need nothing more than a
// BaseFont name for the PDF viewer to substitute its own outlines.
type Font struct {
	Subtype  string // "Type1"
	BaseFont string
	Encoding string // "WinAnsiEncoding"
}

// XObject is an embedded raster image resource.
type XObject struct {
	Subtype          string // "Image"
	Width, Height    int
	ColorSpace       string // "DeviceRGB" or "DeviceGray"
	BitsPerComponent int
	Filter           string // "DCTDecode", "FlateDecode", or "" for raw
	Data             []byte
}

// ContentStream is an ordered sequence of drawing operations on a page.
type ContentStream struct {
	Operations []Operation
}

// Operation is one PDF content-stream operator plus its operands, in the
// order the operator expects them (operands precede the operator token in
// PDF's postfix syntax, spelled out explicitly here rather than inferred).
type Operation struct {
	Operator string
	Operands []Operand
}

// Operand is a type-safe content-stream operand value.
type Operand interface{ isOperand() }

type Number float64

func (Number) isOperand() {}

type Name string

func (Name) isOperand() {}

// String is a PDF literal string operand (parenthesized, with escaping
// applied at serialization time).
type String string

func (String) isOperand() {}

// NewContentStream returns an empty stream ready for Builder-style
// appends.
func NewContentStream() *ContentStream { return &ContentStream{} }

func (cs *ContentStream) op(operator string, operands ...Operand) {
	cs.Operations = append(cs.Operations, Operation{Operator: operator, Operands: operands})
}

// BeginText / EndText bracket a run of text-showing operators (BT/ET).
func (cs *ContentStream) BeginText() { cs.op("BT") }
func (cs *ContentStream) EndText()   { cs.op("ET") }

// SetFont emits Tf, selecting a resource-dictionary font name at a point
// size.
func (cs *ContentStream) SetFont(resourceName string, size float64) {
	cs.op("Tf", Name(resourceName), Number(size))
}

// MoveText emits Td, positioning the next ShowText call's origin relative
// to the current text line matrix.
func (cs *ContentStream) MoveText(x, y float64) {
	cs.op("Td", Number(x), Number(y))
}

// SetFillColorRGB emits rg (non-stroking RGB fill color), components in
// 0..1.
func (cs *ContentStream) SetFillColorRGB(r, g, b float64) {
	cs.op("rg", Number(r), Number(g), Number(b))
}

// ShowText emits Tj with the given string.
func (cs *ContentStream) ShowText(text string) {
	cs.op("Tj", String(text))
}

// Rect emits re, appending a rectangle to the current path.
func (cs *ContentStream) Rect(x, y, w, h float64) {
	cs.op("re", Number(x), Number(y), Number(w), Number(h))
}

// Fill emits f, filling the current path with the nonzero winding rule.
func (cs *ContentStream) Fill() { cs.op("f") }

// SetLineWidth emits w.
func (cs *ContentStream) SetLineWidth(width float64) {
	cs.op("w", Number(width))
}

// MoveTo / LineTo / Stroke build and paint a simple open path (used for
// rules).
func (cs *ContentStream) MoveTo(x, y float64) { cs.op("m", Number(x), Number(y)) }
func (cs *ContentStream) LineTo(x, y float64) { cs.op("l", Number(x), Number(y)) }
func (cs *ContentStream) Stroke()             { cs.op("S") }

// SaveState / RestoreState emit q/Q.
func (cs *ContentStream) SaveState()    { cs.op("q") }
func (cs *ContentStream) RestoreState() { cs.op("Q") }

// Translate/Scale via cm (current transformation matrix), used to place
// and size an image XObject.
func (cs *ContentStream) ConcatMatrix(a, b, c, d, e, f float64) {
	cs.op("cm", Number(a), Number(b), Number(c), Number(d), Number(e), Number(f))
}

// DrawXObject emits Do, painting the named image resource within the
// current transformation matrix's unit square.
func (cs *ContentStream) DrawXObject(resourceName string) {
	cs.op("Do", Name(resourceName))
}
