// Package pdfwriter serializes an internal/pdfdoc.Document to PDF bytes: a
// classic (non-cross-reference-stream) PDF 1.7 file with a conventional
// xref table and trailer. Objects are framed as "%d %d obj\n", dictionary
// keys are sorted before serialization for deterministic output, object
// numbers are allocated sequentially, font resources are deduplicated by
// BaseFont, and content streams are compressed with compress/flate for
// FlateDecode.
package pdfwriter

import (
	"bytes"
	"compress/flate"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/rbf22/compose/internal/pdfdoc"
)

// Write serializes doc into a complete PDF file. The output is
// deterministic: identical input produces identical bytes, satisfying the
// determinism property spec §8 names for the adapter's call sequence one
// level further down, at the level of the bytes those calls eventually
// produce.
func Write(doc *pdfdoc.Document) ([]byte, error) {
	w := &writer{objects: map[int][]byte{}, fontRefs: map[string]int{}, xobjRefs: map[string]int{}}
	return w.write(doc)
}

type writer struct {
	nextNum  int
	objects  map[int][]byte // object number -> serialized "N G obj\n...\nendobj\n"
	order    []int
	fontRefs map[string]int
	xobjRefs map[string]int
}

func (w *writer) allocRef() int {
	w.nextNum++
	return w.nextNum
}

func (w *writer) putObject(num int, body string) {
	w.objects[num] = []byte(fmt.Sprintf("%d 0 obj\n%sendobj\n", num, body))
	w.order = append(w.order, num)
}

func (w *writer) write(doc *pdfdoc.Document) ([]byte, error) {
	// Object 1 is reserved for the catalog, 2 for the Pages root: structural
	// objects are allocated first.
	catalogRef := w.allocRef()
	pagesRef := w.allocRef()

	pageRefs := make([]int, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		ref, err := w.writePage(page, pagesRef)
		if err != nil {
			return nil, fmt.Errorf("pdfwriter: page %d: %w", len(pageRefs), err)
		}
		pageRefs = append(pageRefs, ref)
	}

	kids := make([]string, len(pageRefs))
	for i, r := range pageRefs {
		kids[i] = fmt.Sprintf("%d 0 R", r)
	}
	w.putObject(pagesRef, dict(map[string]string{
		"Type":  "/Pages",
		"Kids":  "[" + strings.Join(kids, " ") + "]",
		"Count": fmt.Sprintf("%d", len(pageRefs)),
	}))

	w.putObject(catalogRef, dict(map[string]string{
		"Type":  "/Catalog",
		"Pages": fmt.Sprintf("%d 0 R", pagesRef),
	}))

	infoRef := 0
	if doc.Info != (pdfdoc.DocumentInfo{}) {
		infoRef = w.allocRef()
		w.putObject(infoRef, dict(map[string]string{
			"Title":    literalString(doc.Info.Title),
			"Author":   literalString(doc.Info.Author),
			"Creator":  literalString(doc.Info.Creator),
			"Producer": literalString(doc.Info.Producer),
		}))
	}

	return w.assemble(doc, catalogRef, infoRef)
}

func (w *writer) writePage(page *pdfdoc.Page, parentRef int) (int, error) {
	ref := w.allocRef()

	resDict, err := w.writeResources(page.Resources)
	if err != nil {
		return 0, err
	}

	contentRefs := make([]string, 0, len(page.Contents))
	for _, cs := range page.Contents {
		cref, err := w.writeContentStream(cs)
		if err != nil {
			return 0, err
		}
		contentRefs = append(contentRefs, fmt.Sprintf("%d 0 R", cref))
	}

	fields := map[string]string{
		"Type":      "/Page",
		"Parent":    fmt.Sprintf("%d 0 R", parentRef),
		"MediaBox":  rectangle(page.MediaBox),
		"Resources": resDict,
	}
	if len(contentRefs) == 1 {
		fields["Contents"] = contentRefs[0]
	} else if len(contentRefs) > 1 {
		fields["Contents"] = "[" + strings.Join(contentRefs, " ") + "]"
	}
	w.putObject(ref, dict(fields))
	return ref, nil
}

// writeResources returns an inline resource dictionary (not its own
// object) referencing shared font/XObject objects, deduplicated across
// pages by BaseFont.
func (w *writer) writeResources(res *pdfdoc.Resources) (string, error) {
	if res == nil {
		return "<< >>", nil
	}

	// Visit resources in name order so object numbers are deterministic.
	fontNames := make([]string, 0, len(res.Fonts))
	for name := range res.Fonts {
		fontNames = append(fontNames, name)
	}
	sort.Strings(fontNames)
	fontEntries := map[string]string{}
	for _, name := range fontNames {
		ref, err := w.ensureFont(res.Fonts[name])
		if err != nil {
			return "", err
		}
		fontEntries[name] = fmt.Sprintf("%d 0 R", ref)
	}
	xobjNames := make([]string, 0, len(res.XObjects))
	for name := range res.XObjects {
		xobjNames = append(xobjNames, name)
	}
	sort.Strings(xobjNames)
	xobjEntries := map[string]string{}
	for _, name := range xobjNames {
		ref, err := w.ensureXObject(name, res.XObjects[name])
		if err != nil {
			return "", err
		}
		xobjEntries[name] = fmt.Sprintf("%d 0 R", ref)
	}

	var b strings.Builder
	b.WriteString("<<")
	if len(fontEntries) > 0 {
		b.WriteString("/Font ")
		b.WriteString(dictInline(fontEntries))
	}
	if len(xobjEntries) > 0 {
		b.WriteString("/XObject ")
		b.WriteString(dictInline(xobjEntries))
	}
	b.WriteString(">>")
	return b.String(), nil
}

func (w *writer) ensureFont(font *pdfdoc.Font) (int, error) {
	base, subtype, encoding := "Helvetica", "Type1", "WinAnsiEncoding"
	if font != nil {
		if font.BaseFont != "" {
			base = font.BaseFont
		}
		if font.Subtype != "" {
			subtype = font.Subtype
		}
		if font.Encoding != "" {
			encoding = font.Encoding
		}
	}
	key := subtype + "|" + base + "|" + encoding
	if ref, ok := w.fontRefs[key]; ok {
		return ref, nil
	}
	ref := w.allocRef()
	w.putObject(ref, dict(map[string]string{
		"Type":     "/Font",
		"Subtype":  "/" + subtype,
		"BaseFont": "/" + pdfName(base),
		"Encoding": "/" + encoding,
	}))
	w.fontRefs[key] = ref
	return ref, nil
}

func (w *writer) ensureXObject(name string, xo *pdfdoc.XObject) (int, error) {
	if ref, ok := w.xobjRefs[name]; ok {
		return ref, nil
	}
	ref := w.allocRef()

	data := xo.Data
	filter := xo.Filter
	if filter == "" {
		compressed, err := deflate(data)
		if err != nil {
			return 0, err
		}
		data = compressed
		filter = "FlateDecode"
	}

	colorSpace := xo.ColorSpace
	if colorSpace == "" {
		colorSpace = "DeviceRGB"
	}
	bpc := xo.BitsPerComponent
	if bpc == 0 {
		bpc = 8
	}

	header := dict(map[string]string{
		"Type":             "/XObject",
		"Subtype":          "/Image",
		"Width":            fmt.Sprintf("%d", xo.Width),
		"Height":           fmt.Sprintf("%d", xo.Height),
		"ColorSpace":       "/" + colorSpace,
		"BitsPerComponent": fmt.Sprintf("%d", bpc),
		"Filter":           "/" + filter,
		"Length":           fmt.Sprintf("%d", len(data)),
	})
	w.objects[ref] = streamObject(ref, header, data)
	w.order = append(w.order, ref)
	w.xobjRefs[name] = ref
	return ref, nil
}

func (w *writer) writeContentStream(cs *pdfdoc.ContentStream) (int, error) {
	ref := w.allocRef()
	raw := serializeOperations(cs.Operations)
	compressed, err := deflate(raw)
	if err != nil {
		return 0, err
	}
	header := dict(map[string]string{
		"Filter": "/FlateDecode",
		"Length": fmt.Sprintf("%d", len(compressed)),
	})
	w.objects[ref] = streamObject(ref, header, compressed)
	w.order = append(w.order, ref)
	return ref, nil
}

func streamObject(num int, headerDict string, data []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d 0 obj\n%s\nstream\n", num, headerDict)
	b.Write(data)
	b.WriteString("\nendstream\nendobj\n")
	return b.Bytes()
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// assemble concatenates every object in the order it was written (not
// object-number order: the catalog and page tree root come last), then
// appends a classic xref table, indexed by object number, and trailer.
func (w *writer) assemble(doc *pdfdoc.Document, catalogRef, infoRef int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	offsets := make(map[int]int64, len(w.order))
	maxNum := 0
	for _, num := range w.order {
		offsets[num] = int64(buf.Len())
		buf.Write(w.objects[num])
		if num > maxNum {
			maxNum = num
		}
	}

	xrefOffset := buf.Len()
	size := maxNum + 1
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", size))
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num < size; num++ {
		off, ok := offsets[num]
		if !ok {
			buf.WriteString("0000000000 00000 f \n")
			continue
		}
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}

	id := deterministicID(doc)
	trailerFields := map[string]string{
		"Size": fmt.Sprintf("%d", size),
		"Root": fmt.Sprintf("%d 0 R", catalogRef),
		"ID":   fmt.Sprintf("[<%x> <%x>]", id, id),
	}
	if infoRef != 0 {
		trailerFields["Info"] = fmt.Sprintf("%d 0 R", infoRef)
	}
	buf.WriteString("trailer\n")
	buf.WriteString(dict(trailerFields))
	buf.WriteString(fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xrefOffset))

	return buf.Bytes(), nil
}

// deterministicID hashes the document's visible content so the same
// manuscript always produces the same file identifier.
func deterministicID(doc *pdfdoc.Document) []byte {
	h := sha256.New()
	h.Write([]byte(doc.Info.Title))
	h.Write([]byte(doc.Info.Author))
	fmt.Fprintf(h, "%d", len(doc.Pages))
	for _, p := range doc.Pages {
		fmt.Fprintf(h, "%f-%f-%f-%f", p.MediaBox.LLX, p.MediaBox.LLY, p.MediaBox.URX, p.MediaBox.URY)
		for _, cs := range p.Contents {
			fmt.Fprintf(h, "%d", len(cs.Operations))
		}
	}
	sum := h.Sum(nil)
	return sum[:16]
}

func serializeOperations(ops []pdfdoc.Operation) []byte {
	var b bytes.Buffer
	for _, op := range ops {
		for _, operand := range op.Operands {
			b.Write(serializeOperand(operand))
			b.WriteByte(' ')
		}
		b.WriteString(op.Operator)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

func serializeOperand(o pdfdoc.Operand) []byte {
	switch v := o.(type) {
	case pdfdoc.Number:
		return []byte(formatNumber(float64(v)))
	case pdfdoc.Name:
		return []byte("/" + pdfName(string(v)))
	case pdfdoc.String:
		return literalStringBytes(string(v))
	default:
		return []byte("null")
	}
}

func formatNumber(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// pdfName escapes the handful of delimiter characters PDF names can't
// carry literally (font and resource names in this module are always
// short ASCII identifiers, so this is deliberately not a full name-object
// escaper).
func pdfName(s string) string {
	r := strings.NewReplacer(" ", "#20", "/", "#2F", "(", "#28", ")", "#29")
	return r.Replace(s)
}

func literalString(s string) string {
	return string(literalStringBytes(s))
}

func literalStringBytes(s string) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}

// dict renders a PDF dictionary object body (one line per key, sorted for
// determinism).
func dict(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if fields[k] == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("<<\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "/%s %s\n", k, fields[k])
	}
	b.WriteString(">>\n")
	return b.String()
}

// dictInline is dict without the object-body newlines, for nesting inside
// another dictionary's value position.
func dictInline(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("<<")
	for _, k := range keys {
		fmt.Fprintf(&b, "/%s %s ", k, fields[k])
	}
	b.WriteString(">>")
	return b.String()
}

func rectangle(r pdfdoc.Rectangle) string {
	return fmt.Sprintf("[%s %s %s %s]", formatNumber(r.LLX), formatNumber(r.LLY), formatNumber(r.URX), formatNumber(r.URY))
}
