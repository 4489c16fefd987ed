// Package mdparser is the thin "Inbound from the Parser" adapter spec §6
// names as an external collaborator: it turns a Markdown source document
// into the docast.Document the core consumes, and never measures, breaks,
// or positions anything itself. It walks goldmark's AST directly rather
// than round-tripping through rendered HTML, and registers
// wyatt915/goldmark-treeblood as a goldmark extension for "$...$"/"$$...$$"
// math spans for the reference HTML preview path (RenderPreviewHTML), but
// recognizes math spans itself for the primary docast conversion, so the
// shape of internal/docast.Inline's MathInline node (raw TeX source, not
// MathML) never depends on treeblood's internal AST node types.
package mdparser

import (
	"bytes"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	extensionast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	treeblood "github.com/wyatt915/goldmark-treeblood"

	"github.com/rbf22/compose/internal/docast"
)

// md is the shared goldmark instance used for the primary AST walk: GFM
// tables and strikethrough, but not treeblood's math extension: math spans
// are recognized by Parse's own pre-scan (see extractMath) so the resulting
// docast tree carries raw TeX source per spec §6, independent of whatever
// AST shape treeblood's extension produces.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// previewMD additionally renders math spans to MathML, for RenderPreviewHTML
// a debugging/preview path entirely outside the layout pipeline.
var previewMD = goldmark.New(goldmark.WithExtensions(extension.GFM, treeblood.MathML()))

// Parse converts Markdown source into a docast.Document.
func Parse(source []byte) (docast.Document, error) {
	prepared, spans := extractMath(source)
	reader := text.NewReader(prepared)
	root := md.Parser().Parse(reader)

	w := &walker{source: prepared, spans: spans}
	doc := docast.Document{}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		blocks, err := w.block(n)
		if err != nil {
			return docast.Document{}, err
		}
		doc.Blocks = append(doc.Blocks, blocks...)
	}
	return doc, nil
}

// RenderPreviewHTML renders source to HTML with math spans resolved to real
// MathML via treeblood, for previewing outside the PDF/HTML adapters this
// module ships. It is not part of the layout pipeline.
func RenderPreviewHTML(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := previewMD.Convert(source, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type walker struct {
	source []byte
	spans  map[string]mathSpan
}

// block converts a single top-level or nested block node into zero or more
// docast.Block values. Most node kinds produce exactly one; a paragraph
// holding only display math produces a BlockMathBlock instead of a
// BlockParagraph, and an
// image-only paragraph promotes to a BlockFigure (spec §6 names Figure as
// a distinct node kind, but CommonMark has no native figure syntax; an
// image standing alone in its own paragraph is the idiomatic source for
// one).
func (w *walker) block(n ast.Node) ([]docast.Block, error) {
	switch n.Kind() {
	case ast.KindHeading:
		h := n.(*ast.Heading)
		inline, err := w.inlines(n)
		if err != nil {
			return nil, err
		}
		return []docast.Block{{Kind: docast.BlockHeading, Level: h.Level, Inline: inline}}, nil

	case ast.KindParagraph, ast.KindTextBlock:
		if mb, ok := w.soleMathChild(n); ok {
			return []docast.Block{mb}, nil
		}
		if fig, ok := w.soleImageChild(n); ok {
			return []docast.Block{fig}, nil
		}
		inline, err := w.inlines(n)
		if err != nil {
			return nil, err
		}
		return []docast.Block{{Kind: docast.BlockParagraph, Inline: inline}}, nil

	case ast.KindBlockquote:
		var blocks []docast.Block
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			bs, err := w.block(c)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, bs...)
		}
		// A blockquote is a container of blocks indented under one marker;
		// docast models it as a single-item list so the generator's
		// existing indent/gutter logic (spec §4.4 "List") lays it out
		// without a bespoke container block kind.
		return []docast.Block{{
			Kind:  docast.BlockList,
			Items: []docast.Block{{Kind: docast.BlockListItem, Blocks: blocks}},
		}}, nil

	case ast.KindList:
		l := n.(*ast.List)
		var items []docast.Block
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if c.Kind() != ast.KindListItem {
				continue
			}
			var itemBlocks []docast.Block
			for gc := c.FirstChild(); gc != nil; gc = gc.NextSibling() {
				bs, err := w.block(gc)
				if err != nil {
					return nil, err
				}
				itemBlocks = append(itemBlocks, bs...)
			}
			items = append(items, docast.Block{Kind: docast.BlockListItem, Blocks: itemBlocks})
		}
		start := l.Start
		if start == 0 {
			start = 1
		}
		return []docast.Block{{Kind: docast.BlockList, Ordered: l.IsOrdered(), Start: start, Items: items}}, nil

	case ast.KindCodeBlock, ast.KindFencedCodeBlock:
		text := linesText(n, w.source)
		lang := ""
		if fcb, ok := n.(*ast.FencedCodeBlock); ok && fcb.Info != nil {
			lang = string(fcb.Language(w.source))
		}
		return []docast.Block{{Kind: docast.BlockCodeBlock, Language: lang, Text: text}}, nil

	case ast.KindThematicBreak:
		return []docast.Block{{Kind: docast.BlockRule}}, nil

	case ast.KindHTMLBlock:
		// Out of scope (spec §1 treats embedded HTML as outside the core's
		// remit); dropped rather than mis-rendered as a text paragraph.
		return nil, nil

	case extensionast.KindTable:
		return []docast.Block{w.table(n)}, nil

	default:
		return nil, nil
	}
}

func (w *walker) table(n ast.Node) docast.Block {
	tbl := n.(*extensionast.Table)
	aligns := make([]docast.Alignment, len(tbl.Alignments))
	for i, a := range tbl.Alignments {
		aligns[i] = alignmentOf(a)
	}

	var rows [][]docast.TableCell
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.Kind() {
		case extensionast.KindTableHeader:
			rows = append(rows, w.tableRow(c, true))
		case extensionast.KindTableRow:
			rows = append(rows, w.tableRow(c, false))
		}
	}
	return docast.Block{Kind: docast.BlockTable, Rows: rows, Alignments: aligns}
}

func (w *walker) tableRow(n ast.Node, header bool) []docast.TableCell {
	var cells []docast.TableCell
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		inline, _ := w.inlineChildren(c)
		cells = append(cells, docast.TableCell{Inline: inline, Header: header, ColSpan: 1})
	}
	return cells
}

func alignmentOf(a extensionast.Alignment) docast.Alignment {
	switch a {
	case extensionast.AlignLeft:
		return docast.AlignLeft
	case extensionast.AlignRight:
		return docast.AlignRight
	case extensionast.AlignCenter:
		return docast.AlignCenter
	default:
		return docast.AlignDefault
	}
}

// linesText concatenates a code block's raw source lines.
func linesText(n ast.Node, source []byte) string {
	lines := n.Lines()
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// soleMathChild reports whether n's only content is a single display-math
// placeholder, promoting it to a BlockMathBlock.
func (w *walker) soleMathChild(n ast.Node) (docast.Block, bool) {
	only := soleChild(n)
	if only == nil || only.Kind() != ast.KindText {
		return docast.Block{}, false
	}
	t := only.(*ast.Text)
	key := string(t.Segment.Value(w.source))
	span, ok := w.spans[key]
	if !ok || !span.display {
		return docast.Block{}, false
	}
	return docast.Block{Kind: docast.BlockMathBlock, TeXSource: span.tex}, true
}

// soleImageChild reports whether n's only content is a single image inline,
// promoting it to a BlockFigure; any trailing text becomes the caption.
func (w *walker) soleImageChild(n ast.Node) (docast.Block, bool) {
	first := n.FirstChild()
	if first == nil || first.Kind() != ast.KindImage {
		return docast.Block{}, false
	}
	img := first.(*ast.Image)
	var caption []docast.Inline
	for c := first.NextSibling(); c != nil; c = c.NextSibling() {
		in, err := w.inline(c)
		if err != nil {
			continue
		}
		caption = append(caption, in...)
	}
	return docast.Block{Kind: docast.BlockFigure, ImageRef: string(img.Destination), Caption: caption}, true
}

func soleChild(n ast.Node) ast.Node {
	c := n.FirstChild()
	if c == nil || c.NextSibling() != nil {
		return nil
	}
	return c
}

// inlines walks n's children into a flat docast.Inline slice (spec §6
// "Inline node kinds").
func (w *walker) inlines(n ast.Node) ([]docast.Inline, error) {
	return w.inlineChildren(n)
}

func (w *walker) inlineChildren(n ast.Node) ([]docast.Inline, error) {
	var out []docast.Inline
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		in, err := w.inline(c)
		if err != nil {
			return nil, err
		}
		out = append(out, in...)
	}
	return out, nil
}

func (w *walker) inline(n ast.Node) ([]docast.Inline, error) {
	switch n.Kind() {
	case ast.KindText:
		t := n.(*ast.Text)
		key := string(t.Segment.Value(w.source))
		if span, ok := w.spans[key]; ok {
			return []docast.Inline{{Kind: docast.InlineMath, TeXSource: span.tex, Display: span.display}}, nil
		}
		out := []docast.Inline{{Kind: docast.InlineText, Text: key}}
		if t.HardLineBreak() {
			out = append(out, docast.Inline{Kind: docast.InlineHardBreak})
		} else if t.SoftLineBreak() {
			out = append(out, docast.Inline{Kind: docast.InlineSoftBreak})
		}
		return out, nil

	case ast.KindString:
		s := n.(*ast.String)
		return []docast.Inline{{Kind: docast.InlineText, Text: string(s.Value)}}, nil

	case ast.KindEmphasis:
		e := n.(*ast.Emphasis)
		children, err := w.inlineChildren(n)
		if err != nil {
			return nil, err
		}
		kind := docast.InlineEmphasis
		if e.Level >= 2 {
			kind = docast.InlineStrong
		}
		return []docast.Inline{{Kind: kind, Children: children}}, nil

	case extensionast.KindStrikethrough:
		children, err := w.inlineChildren(n)
		if err != nil {
			return nil, err
		}
		return []docast.Inline{{Kind: docast.InlineStrikethrough, Children: children}}, nil

	case ast.KindCodeSpan:
		return []docast.Inline{{Kind: docast.InlineCode, Text: string(textOf(n, w.source))}}, nil

	case ast.KindLink:
		l := n.(*ast.Link)
		children, err := w.inlineChildren(n)
		if err != nil {
			return nil, err
		}
		return []docast.Inline{{Kind: docast.InlineLink, URL: string(l.Destination), Children: children}}, nil

	case ast.KindAutoLink:
		a := n.(*ast.AutoLink)
		url := string(a.URL(w.source))
		return []docast.Inline{{Kind: docast.InlineLink, URL: url, Children: []docast.Inline{{Kind: docast.InlineText, Text: url}}}}, nil

	case ast.KindImage:
		img := n.(*ast.Image)
		alt := string(textOf(n, w.source))
		return []docast.Inline{{Kind: docast.InlineImage, Src: string(img.Destination), Alt: alt}}, nil

	default:
		return w.inlineChildren(n)
	}
}

// textOf concatenates the plain text content of n's descendants.
// CodeSpan and Image alt text have no single segment of their own in
// goldmark's AST, only Text children.
func textOf(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if n.Kind() == ast.KindText {
			buf.Write(n.(*ast.Text).Segment.Value(source))
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return buf.Bytes()
}

// mathSpan is one recognized "$...$"/"$$...$$" math span.
type mathSpan struct {
	tex     string
	display bool
}

// Sentinel control bytes delimiting a math placeholder token: both are
// valid single-byte UTF-8 but rare in Markdown source (extractMath does not
// escape ones already present), and goldmark treats them as ordinary text
// bytes with no markdown significance, so substitution can't perturb the
// surrounding block structure.
const (
	placeholderStart = '\x02'
	placeholderEnd   = '\x03'
)

// extractMath scans source for "$$...$$" and "$...$" spans (skipping
// fenced/inline code, where a literal "$" is not math) and replaces each
// with a placeholder token, so the primary goldmark parse never sees LaTeX
// syntax it doesn't understand. The returned map keys a placeholder's exact
// text to the TeX source and display flag it stands for; the walker looks
// each Text node's content up in this map before treating it as plain text.
func extractMath(source []byte) ([]byte, map[string]mathSpan) {
	spans := make(map[string]mathSpan)
	var out bytes.Buffer
	n := len(source)
	inFence := false
	i := 0
	for i < n {
		// Track fenced code blocks line-by-line so a "$" inside one is
		// never mistaken for math.
		if isLineStart(source, i) && hasFencePrefix(source, i) {
			inFence = !inFence
		}
		if inFence || source[i] == '`' {
			// Skip to the end of an inline code span verbatim too.
			if source[i] == '`' && !inFence {
				j := i + 1
				for j < n && source[j] != '`' {
					j++
				}
				if j < n {
					j++
				}
				out.Write(source[i:j])
				i = j
				continue
			}
			out.WriteByte(source[i])
			i++
			continue
		}
		if source[i] == '$' {
			display := i+1 < n && source[i+1] == '$'
			delim := "$"
			start := i + 1
			if display {
				delim = "$$"
				start = i + 2
			}
			end := indexFrom(source, delim, start)
			if end < 0 {
				out.WriteByte(source[i])
				i++
				continue
			}
			tex := string(source[start:end])
			key := strconv.Itoa(len(spans))
			token := string(placeholderStart) + key + string(placeholderEnd)
			spans[token] = mathSpan{tex: tex, display: display}
			out.WriteString(token)
			i = end + len(delim)
			continue
		}
		out.WriteByte(source[i])
		i++
	}
	return out.Bytes(), spans
}

func isLineStart(source []byte, i int) bool {
	return i == 0 || source[i-1] == '\n'
}

func hasFencePrefix(source []byte, i int) bool {
	return i+3 <= len(source) && (bytes.Equal(source[i:i+3], []byte("```")) || bytes.Equal(source[i:i+3], []byte("~~~")))
}

func indexFrom(source []byte, sub string, from int) int {
	idx := bytes.Index(source[from:], []byte(sub))
	if idx < 0 {
		return -1
	}
	return from + idx
}
