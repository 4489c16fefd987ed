package coords

import (
	"fmt"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/pdfdoc"
)

// ImageResolver supplies the embeddable PDF XObject for an image handle,
// implemented by internal/imageref.Resolver.
type ImageResolver interface {
	XObject(ref string, quality int) (*pdfdoc.XObject, error)
}

// PDFAdapter accumulates drawing calls into a pdfdoc.Document, one content
// stream per page. It uses IdentityTransform: the engine's native
// coordinate space is already PDF's bottom-left-origin cartesian space,
// so no flip happens here.
type PDFAdapter struct {
	Info   pdfdoc.DocumentInfo
	Images ImageResolver // optional; nil skips image embedding

	doc     pdfdoc.Document
	page    *pdfdoc.Page
	cs      *pdfdoc.ContentStream
	fonts   map[string]string // resolved font name -> resource name (F1, F2, ...)
	fontSeq int
	xobjs   map[string]*pdfdoc.XObject // handle -> resolved resource, shared across pages
}

// NewPDFAdapter returns an adapter ready to accept BeginPage calls.
func NewPDFAdapter() *PDFAdapter {
	return &PDFAdapter{fonts: map[string]string{}, xobjs: map[string]*pdfdoc.XObject{}}
}

// Document returns the accumulated document after the last EndPage call.
func (p *PDFAdapter) Document() *pdfdoc.Document {
	p.doc.Info = p.Info
	return &p.doc
}

func (p *PDFAdapter) BeginPage(width, height float64) error {
	p.page = &pdfdoc.Page{
		MediaBox:  pdfdoc.Rectangle{LLX: 0, LLY: 0, URX: width, URY: height},
		Resources: &pdfdoc.Resources{Fonts: map[string]*pdfdoc.Font{}},
	}
	p.cs = pdfdoc.NewContentStream()
	p.page.Contents = []*pdfdoc.ContentStream{p.cs}
	return nil
}

func (p *PDFAdapter) EndPage() error {
	p.doc.Pages = append(p.doc.Pages, p.page)
	p.page = nil
	p.cs = nil
	return nil
}

func (p *PDFAdapter) resourceName(font string) string {
	if name, ok := p.fonts[font]; ok {
		return name
	}
	p.fontSeq++
	name := fmt.Sprintf("F%d", p.fontSeq)
	p.fonts[font] = name
	p.page.Resources.Fonts[name] = &pdfdoc.Font{
		Subtype:  "Type1",
		BaseFont: pdfBaseFontName(font),
		Encoding: "WinAnsiEncoding",
	}
	return name
}

func (p *PDFAdapter) DrawTextRun(x, yBaseline float64, font string, size float64, color boxes.Color, text string, decoration boxes.Decoration) error {
	if text == "" {
		return nil
	}
	name := p.resourceName(font)
	p.cs.SaveState()
	p.cs.SetFillColorRGB(color.R, color.G, color.B)
	p.cs.BeginText()
	p.cs.SetFont(name, size)
	p.cs.MoveText(x, yBaseline)
	p.cs.ShowText(text)
	p.cs.EndText()
	if decoration.Has(boxes.DecorationUnderline) || decoration.Has(boxes.DecorationStrike) {
		p.drawTextLine(x, yBaseline, size, text, decoration)
	}
	p.cs.RestoreState()
	return nil
}

// drawTextLine approximates underline/strikethrough with a thin filled
// rectangle, since this module's Standard-14 font metrics don't expose
// the font program's own underline position/thickness.
func (p *PDFAdapter) drawTextLine(x, yBaseline, size float64, text string, decoration boxes.Decoration) {
	width := float64(len(text)) * size * 0.5
	thickness := size * 0.05
	y := yBaseline - size*0.08
	if decoration.Has(boxes.DecorationStrike) {
		y = yBaseline + size*0.3
	}
	p.cs.Rect(x, y, width, thickness)
	p.cs.Fill()
}

func (p *PDFAdapter) DrawRule(x, y, w, h float64, color boxes.Color) error {
	p.cs.SaveState()
	p.cs.SetFillColorRGB(color.R, color.G, color.B)
	// box top-left is (x, y); PDF rectangles grow up-right from their
	// lower-left corner, so the fill origin is (x, y-h).
	p.cs.Rect(x, y-h, w, h)
	p.cs.Fill()
	p.cs.RestoreState()
	return nil
}

func (p *PDFAdapter) DrawImage(x, y, w, h float64, handle string) error {
	name := p.ensureImageResource(handle)
	p.cs.SaveState()
	p.cs.ConcatMatrix(w, 0, 0, h, x, y-h)
	p.cs.DrawXObject(name)
	p.cs.RestoreState()
	return nil
}

// ensureImageResource resolves handle to a decoded XObject at most once
// per document (cached in p.xobjs) and registers it in the current
// page's resource dictionary under its own handle as the resource name.
func (p *PDFAdapter) ensureImageResource(handle string) string {
	if p.page.Resources.XObjects == nil {
		p.page.Resources.XObjects = map[string]*pdfdoc.XObject{}
	}

	xo, ok := p.xobjs[handle]
	if !ok {
		if p.Images != nil {
			if resolved, err := p.Images.XObject(handle, 85); err == nil {
				xo = resolved
			}
		}
		if xo == nil {
			xo = &pdfdoc.XObject{Subtype: "Image"}
		}
		p.xobjs[handle] = xo
	}
	p.page.Resources.XObjects[handle] = xo
	return handle
}

// DrawMath draws a measured math box by flattening it into positioned
// glyphs and showing each with its own Tj, falling back to a filled
// rectangle if the handle isn't the tree the math engine produces.
func (p *PDFAdapter) DrawMath(x, y float64, mathBox boxes.Box) error {
	black := boxes.Color{}
	return drawMathRecursive(x, y, mathBox, false,
		func(gx, gy float64, font string, size float64, text string) error {
			return p.DrawTextRun(gx, gy, font, size, black, text, boxes.DecorationNone)
		},
		func(fx, fy, w, h float64) error {
			return p.DrawRule(fx, fy, w, h, boxes.Color{R: 0.8, G: 0.8, B: 0.8})
		},
	)
}

func pdfBaseFontName(font string) string {
	if font == "" {
		return "Helvetica"
	}
	return font
}
