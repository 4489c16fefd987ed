package coords

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rbf22/compose/internal/boxes"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLAdapter renders a paginated document as a sequence of absolutely
// positioned <div>/<span> elements, one fixed-size page div per
// PageLayout, using golang.org/x/net/html to build and serialize the DOM
// rather than concatenating strings.
//
// HTMLAdapter expects FlipY: the engine's bottom-left-origin Y must be
// converted to CSS's top-left-origin, top-down Y before reaching this
// adapter.
type HTMLAdapter struct {
	doc  *html.Node
	body *html.Node
	page *html.Node
}

// NewHTMLAdapter returns an adapter with an empty <html><head><body>
// document ready for pages to be appended.
func NewHTMLAdapter() *HTMLAdapter {
	head := &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	head.AppendChild(styleNode())

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

	root := &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
	root.AppendChild(head)
	root.AppendChild(body)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(root)

	return &HTMLAdapter{doc: doc, body: body}
}

func styleNode() *html.Node {
	css := `.page{position:relative;background:#fff;overflow:hidden;margin:0 0 16px 0}
.run{position:absolute;white-space:pre}
.rule{position:absolute}
.img{position:absolute}`
	style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	return style
}

// WriteTo serializes the accumulated document.
func (h *HTMLAdapter) WriteTo(w io.Writer) error {
	return html.Render(w, h.doc)
}

// Bytes serializes the accumulated document into a byte slice.
func (h *HTMLAdapter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := h.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *HTMLAdapter) BeginPage(width, height float64) error {
	page := &html.Node{
		Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: "page"},
			{Key: "style", Val: fmt.Sprintf("width:%.2fpx;height:%.2fpx", width, height)},
		},
	}
	h.body.AppendChild(page)
	h.page = page
	return nil
}

func (h *HTMLAdapter) EndPage() error {
	h.page = nil
	return nil
}

func (h *HTMLAdapter) DrawTextRun(x, yBaseline float64, font string, size float64, color boxes.Color, text string, decoration boxes.Decoration) error {
	style := fmt.Sprintf("left:%.2fpx;top:%.2fpx;font-family:%s;font-size:%.2fpx;color:%s;%s",
		x, yBaseline-size, cssFontFamily(font), size, cssColor(color), cssDecoration(decoration))
	span := &html.Node{
		Type: html.ElementNode, Data: "span", DataAtom: atom.Span,
		Attr: []html.Attribute{{Key: "class", Val: "run"}, {Key: "style", Val: style}},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	h.page.AppendChild(span)
	return nil
}

func (h *HTMLAdapter) DrawRule(x, y, w, h2 float64, color boxes.Color) error {
	style := fmt.Sprintf("left:%.2fpx;top:%.2fpx;width:%.2fpx;height:%.2fpx;background:%s", x, y, w, h2, cssColor(color))
	div := &html.Node{
		Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
		Attr: []html.Attribute{{Key: "class", Val: "rule"}, {Key: "style", Val: style}},
	}
	h.page.AppendChild(div)
	return nil
}

func (h *HTMLAdapter) DrawImage(x, y, w, h2 float64, handle string) error {
	style := fmt.Sprintf("left:%.2fpx;top:%.2fpx;width:%.2fpx;height:%.2fpx", x, y, w, h2)
	img := &html.Node{
		Type: html.ElementNode, Data: "img", DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: "class", Val: "img"},
			{Key: "style", Val: style},
			{Key: "src", Val: handle},
		},
	}
	h.page.AppendChild(img)
	return nil
}

func (h *HTMLAdapter) DrawMath(x, y float64, mathBox boxes.Box) error {
	return drawMathRecursive(x, y, mathBox, true,
		func(gx, gy float64, font string, size float64, text string) error {
			return h.DrawTextRun(gx, gy, font, size, boxes.Color{}, text, boxes.DecorationNone)
		},
		func(fx, fy, w, h2 float64) error {
			return h.DrawRule(fx, fy, w, h2, boxes.Color{R: 0.8, G: 0.8, B: 0.8})
		},
	)
}

func cssFontFamily(font string) string {
	if font == "" {
		return "sans-serif"
	}
	return font + ", sans-serif"
}

func cssColor(c boxes.Color) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", clamp255(c.R), clamp255(c.G), clamp255(c.B))
}

func clamp255(v float64) int {
	n := int(v*255 + 0.5)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return n
}

func cssDecoration(d boxes.Decoration) string {
	s := ""
	if d.Has(boxes.DecorationBold) {
		s += "font-weight:bold;"
	}
	if d.Has(boxes.DecorationItalic) {
		s += "font-style:italic;"
	}
	if d.Has(boxes.DecorationCode) {
		s += "font-family:monospace;"
	}
	if d.Has(boxes.DecorationUnderline) && d.Has(boxes.DecorationStrike) {
		s += "text-decoration:underline line-through;"
	} else if d.Has(boxes.DecorationUnderline) {
		s += "text-decoration:underline;"
	} else if d.Has(boxes.DecorationStrike) {
		s += "text-decoration:line-through;"
	}
	return s
}
