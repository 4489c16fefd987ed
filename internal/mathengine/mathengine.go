// Package mathengine implements the layout.MathRenderer collaborator: it
// turns a block or inline math node's raw TeX source into a single sized
// boxes.Box, the way internal/layout's buildMathBlock and inline math
// handling expect.
//
// Math boxes are built by a small self-contained TeX subset parser
// (symbols, fractions, sub/superscripts, square roots) and a recursive
// measurement pass over the resulting tree, with a fixed 0.7 script-size
// reduction for nested sub/superscripts and fraction numerator/denominator,
// and vertical fraction stacking. Glyph ascent/descent come from the real
// internal/metrics provider rather than a fixed approximation.
package mathengine

import (
	"fmt"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/metrics"
)

// scriptScale is the size reduction factor applied to sub/superscripts
// and fraction numerator/denominator.
const scriptScale = 0.7

// Engine renders TeX math source into boxes.Box values, implementing
// internal/layout.MathRenderer.
type Engine struct {
	metrics *metrics.Provider
	font    string
}

// New constructs an Engine. font names the face used for math symbols
// (ordinarily the document's default text font, so math blends with body
// text the way spec §4.4's math-block case expects).
func New(provider *metrics.Provider, font string) *Engine {
	return &Engine{metrics: provider, font: font}
}

// RenderMath implements internal/layout.MathRenderer.
func (e *Engine) RenderMath(texSource string, fontSize float64, display bool) (boxes.Box, error) {
	tokens := tokenize(texSource)
	p := &parser{tokens: tokens}
	node, err := p.parseRow(0)
	if err != nil {
		return boxes.Box{}, fmt.Errorf("mathengine: parsing %q: %w", texSource, err)
	}
	mb := e.measure(node, fontSize)
	box := boxes.Box{
		Kind:        boxes.KindMath,
		Width:       mb.width,
		Height:      mb.ascent + mb.descent,
		Ascent:      mb.ascent,
		Descent:     mb.descent,
		MathHandle:  mb,
	}
	// Display vs. inline placement (centering, surrounding spacing) is the
	// caller's concern (internal/layout's buildMathBlock); this renderer
	// only ever returns the box's intrinsic metrics.
	return box, nil
}

// mbox is the measured-tree node an adapter can type-assert MathHandle to
// for glyph-level drawing; position fields are relative to the parent's
// top-left origin.
type mbox struct {
	width, ascent, descent float64
	// kind-specific drawing data
	text     string
	font     string
	size     float64
	children []positionedMbox
}

type positionedMbox struct {
	x, y float64 // y offset from this box's own baseline
	box  mbox
}

func (e *Engine) measure(n node, size float64) mbox {
	switch t := n.(type) {
	case *symNode:
		return e.measureSymbol(t.text, size)

	case *rowNode:
		return e.measureRow(t.children, size)

	case *fracNode:
		return e.measureFrac(t.num, t.den, size)

	case *scriptNode:
		return e.measureScript(t.base, t.sup, t.sub, size)

	case *sqrtNode:
		return e.measureSqrt(t.radicand, size)

	default:
		return e.measureSymbol("?", size)
	}
}

func (e *Engine) measureSymbol(text string, size float64) mbox {
	fm := e.metrics.FontMetrics(e.font, size)
	w := e.metrics.MeasureText(e.font, size, text)
	if w <= 0 {
		w = size * 0.6 * float64(len([]rune(text)))
	}
	return mbox{width: w, ascent: fm.Ascent, descent: fm.Descent, text: text, font: e.font, size: size}
}

func (e *Engine) measureRow(children []node, size float64) mbox {
	var row mbox
	x := 0.0
	maxAscent, maxDescent := 0.0, 0.0
	var placed []positionedMbox
	for _, c := range children {
		cb := e.measure(c, size)
		placed = append(placed, positionedMbox{x: x, y: 0, box: cb})
		x += cb.width
		if cb.ascent > maxAscent {
			maxAscent = cb.ascent
		}
		if cb.descent > maxDescent {
			maxDescent = cb.descent
		}
	}
	row.width = x
	row.ascent = maxAscent
	row.descent = maxDescent
	row.children = placed
	return row
}

// measureFrac stacks numerator over denominator at scriptScale size,
// separated by a ruleGap-high gap. No fraction bar is drawn: the box holds
// only the two stacked operands.
func (e *Engine) measureFrac(num, den node, size float64) mbox {
	scriptSize := size * scriptScale
	numBox := e.measure(num, scriptSize)
	denBox := e.measure(den, scriptSize)

	width := numBox.width
	if denBox.width > width {
		width = denBox.width
	}
	const ruleGap = 1.0
	ascent := numBox.ascent + numBox.descent + ruleGap + size*0.3
	descent := denBox.ascent + denBox.descent + ruleGap

	numX := (width - numBox.width) / 2
	denX := (width - denBox.width) / 2

	return mbox{
		width:   width,
		ascent:  ascent,
		descent: descent,
		children: []positionedMbox{
			{x: numX, y: -(ascent - numBox.ascent), box: numBox},
			{x: denX, y: denBox.ascent + ruleGap, box: denBox},
		},
	}
}

// measureScript positions an optional superscript and subscript against a
// base, at scriptScale size.
func (e *Engine) measureScript(base, sup, sub node, size float64) mbox {
	baseBox := e.measure(base, size)
	scriptSize := size * scriptScale

	width := baseBox.width
	ascent := baseBox.ascent
	descent := baseBox.descent
	var children []positionedMbox
	children = append(children, positionedMbox{x: 0, y: 0, box: baseBox})

	if sup != nil {
		supBox := e.measure(sup, scriptSize)
		children = append(children, positionedMbox{x: baseBox.width, y: -(baseBox.ascent * 0.6), box: supBox})
		if w := baseBox.width + supBox.width; w > width {
			width = w
		}
		if a := baseBox.ascent*0.6 + supBox.ascent + supBox.descent; a > ascent {
			ascent = a
		}
	}
	if sub != nil {
		subBox := e.measure(sub, scriptSize)
		children = append(children, positionedMbox{x: baseBox.width, y: baseBox.descent * 0.6, box: subBox})
		if w := baseBox.width + subBox.width; w > width {
			width = w
		}
		if d := baseBox.descent*0.6 + subBox.ascent + subBox.descent; d > descent {
			descent = d
		}
	}
	return mbox{width: width, ascent: ascent, descent: descent, children: children}
}

func (e *Engine) measureSqrt(radicand node, size float64) mbox {
	inner := e.measure(radicand, size)
	pad := size * 0.3
	return mbox{
		width:   inner.width + pad*2,
		ascent:  inner.ascent + pad*0.5,
		descent: inner.descent,
		children: []positionedMbox{
			{x: pad, y: -pad * 0.5, box: inner},
		},
	}
}

// --- TeX subset tokenizer + recursive-descent parser ---

type token struct {
	kind string // "char", "command", "brace-open", "brace-close", "sup", "sub"
	text string
}

func tokenize(src string) []token {
	var out []token
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			continue
		case r == '{':
			out = append(out, token{kind: "brace-open"})
		case r == '}':
			out = append(out, token{kind: "brace-close"})
		case r == '^':
			out = append(out, token{kind: "sup"})
		case r == '_':
			out = append(out, token{kind: "sub"})
		case r == '\\':
			j := i + 1
			for j < len(runes) && isLetter(runes[j]) {
				j++
			}
			if j == i+1 {
				// a single escaped punctuation character, e.g. "\,"
				if j < len(runes) {
					j++
				}
			}
			out = append(out, token{kind: "command", text: string(runes[i+1 : j])})
			i = j - 1
		default:
			out = append(out, token{kind: "char", text: string(r)})
		}
	}
	return out
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

type node interface{}

type rowNode struct{ children []node }
type symNode struct{ text string }
type fracNode struct{ num, den node }
type sqrtNode struct{ radicand node }
type scriptNode struct {
	base, sup, sub node
}

// commandSymbols maps common TeX macros with no arguments to a display
// glyph or short literal.
var commandSymbols = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ",
	"epsilon": "ε", "theta": "θ", "lambda": "λ", "mu": "μ",
	"pi": "π", "sigma": "σ", "phi": "φ", "omega": "ω",
	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ",
	"Sigma": "Σ", "Phi": "Φ", "Omega": "Ω",
	"times": "×", "cdot": "·", "div": "÷", "pm": "±",
	"leq": "≤", "geq": "≥", "neq": "≠", "approx": "≈",
	"infty": "∞", "partial": "∂", "nabla": "∇",
	"sum": "∑", "int": "∫", "prod": "∏",
	"to": "→", "rightarrow": "→", "leftarrow": "←",
	"left": "", "right": "", // sizing hints; no visible glyph of their own
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// parseRow parses a sequence of atoms until a brace-close or end of input,
// applying postfix ^ and _ to the most recently parsed atom.
func (p *parser) parseRow(depth int) (node, error) {
	var children []node
	for {
		t, ok := p.peek()
		if !ok || t.kind == "brace-close" {
			break
		}
		switch t.kind {
		case "sup", "sub":
			if len(children) == 0 {
				return nil, fmt.Errorf("mathengine: %s with no base", t.kind)
			}
			p.next()
			arg, err := p.parseArg()
			if err != nil {
				return nil, err
			}
			base := children[len(children)-1]
			sn, ok := base.(*scriptNode)
			if !ok {
				sn = &scriptNode{base: base}
			}
			if t.kind == "sup" {
				sn.sup = arg
			} else {
				sn.sub = arg
			}
			children[len(children)-1] = sn
		default:
			atom, err := p.parseAtom()
			if err != nil {
				return nil, err
			}
			children = append(children, atom)
		}
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &rowNode{children: children}, nil
}

// parseArg parses one script/fraction argument: either a brace group or a
// single atom, matching TeX's "^x" vs "^{xy}" rule.
func (p *parser) parseArg() (node, error) {
	if t, ok := p.peek(); ok && t.kind == "brace-open" {
		return p.parseAtom()
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (node, error) {
	t, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("mathengine: unexpected end of input")
	}
	switch t.kind {
	case "brace-open":
		n, err := p.parseRow(1)
		if err != nil {
			return nil, err
		}
		if _, ok := p.next(); !ok {
			return nil, fmt.Errorf("mathengine: unterminated group")
		}
		return n, nil
	case "char":
		return &symNode{text: t.text}, nil
	case "command":
		return p.parseCommand(t.text)
	default:
		return nil, fmt.Errorf("mathengine: unexpected token %q", t.kind)
	}
}

// Glyph is one positioned, flattened leaf of a measured math box tree: the
// form an output adapter needs to paint a formula symbol by symbol rather
// than treating boxes.Box.MathHandle as opaque. X/Y are offsets from the
// math box's own top-left corner, Y increasing downward.
type Glyph struct {
	X, Y float64
	Font string
	Size float64
	Text string
}

// Flatten decomposes the MathHandle a Box carries (as produced by
// (*Engine).RenderMath) into a flat, draw-ordered list of glyphs. ok is
// false if handle isn't a tree this engine produced, in which case the
// caller should fall back to drawing the box's plain bounding rectangle.
func Flatten(handle any, ascent float64) (glyphs []Glyph, ok bool) {
	root, ok := handle.(mbox)
	if !ok {
		return nil, false
	}
	flattenInto(root, 0, ascent, &glyphs)
	return glyphs, true
}

// flattenInto walks the tree accumulating absolute (x, y) offsets from
// the root's top-left corner; baseY starts at the root's own ascent since
// every mbox's internal y offsets are expressed relative to its parent's
// baseline, not its top edge.
func flattenInto(b mbox, x, baseY float64, out *[]Glyph) {
	if b.text != "" {
		*out = append(*out, Glyph{X: x, Y: baseY, Font: b.font, Size: b.size, Text: b.text})
	}
	for _, c := range b.children {
		flattenInto(c.box, x+c.x, baseY+c.y, out)
	}
}

func (p *parser) parseCommand(name string) (node, error) {
	switch name {
	case "frac":
		num, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		den, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return &fracNode{num: num, den: den}, nil
	case "sqrt":
		inner, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return &sqrtNode{radicand: inner}, nil
	case "text", "mathrm":
		return p.parseAtom()
	default:
		if sym, ok := commandSymbols[name]; ok {
			if sym == "" {
				// A sizing hint like \left / \right with no following
				// delimiter rendered as a symbol of its own; the next atom
				// (the delimiter character) is parsed normally.
				return &symNode{text: ""}, nil
			}
			return &symNode{text: sym}, nil
		}
		return &symNode{text: name}, nil
	}
}
