// Package metrics implements the Font Metrics Provider (spec §4.1): a pure,
// side-effect-free lookup from (font, size[, codepoint]) to advance widths
// and font-wide metrics. Shaping of embedded TrueType/OpenType fonts is
// delegated to github.com/go-text/typesetting (HarfBuzz shaper); fonts for
// which no program was loaded fall back to built-in Adobe Standard-14
// advance-width tables, which is also the .notdef fallback path spec §4.1
// requires.
package metrics

import (
	"bytes"
	"fmt"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/rbf22/compose/internal/observability"
)

// FontInfo is the font-wide metrics spec §4.1 requires, already scaled to
// the requested size in points.
type FontInfo struct {
	Ascent    float64
	Descent   float64
	XHeight   float64
	CapHeight float64
	LineGap   float64
}

// loadedFace holds a parsed font program plus its units-per-em, used to
// convert font-unit metrics to points.
type loadedFace struct {
	face       gofont.Face
	sfntFont   *sfnt.Font
	unitsPerEm int32
}

// Provider is the Font Metrics Provider. It is safe for concurrent reads
// once construction (LoadFont calls) has finished; the core never mutates a
// Provider while laying out, matching spec §5's read-only-after-init rule.
type Provider struct {
	mu     sync.RWMutex
	faces  map[string]*loadedFace
	logger observability.Logger
}

// NewProvider returns a Provider with no embedded fonts loaded; every
// lookup falls back to the Standard-14 tables until LoadFont is called.
func NewProvider(logger observability.Logger) *Provider {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Provider{faces: make(map[string]*loadedFace), logger: logger}
}

// LoadFont parses a TrueType/OpenType font program and registers it under
// name, so subsequent MeasureGlyph/FontMetrics/MeasureText calls for that
// name use real shaped advances instead of the Standard-14 approximation.
func (p *Provider) LoadFont(name string, data []byte) error {
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("metrics: parse font %q: %w", name, err)
	}
	sf, err := sfnt.Parse(data)
	if err != nil {
		return fmt.Errorf("metrics: parse sfnt for %q: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.faces[name] = &loadedFace{face: face, sfntFont: sf, unitsPerEm: int32(sf.UnitsPerEm())}
	return nil
}

// FontMetrics returns {ascent, descent, x-height, cap-height, line_gap} for
// (font, size), converted from font units to points (spec §4.1).
func (p *Provider) FontMetrics(font string, size float64) FontInfo {
	p.mu.RLock()
	lf, ok := p.faces[font]
	p.mu.RUnlock()
	if !ok {
		return standard14Metrics(font, size)
	}

	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(lf.unitsPerEm << 6)
	m, err := lf.sfntFont.Metrics(buf, ppem, 0)
	if err != nil {
		p.logger.Warn("metrics: failed to read font metrics, using standard-14 fallback",
			observability.String("font", font), observability.Error("err", err))
		return standard14Metrics(font, size)
	}
	scale := size / float64(lf.unitsPerEm)
	return FontInfo{
		Ascent:    float64(m.Ascent) / 64 * scale,
		Descent:   float64(m.Descent) / 64 * scale,
		XHeight:   float64(m.XHeight) / 64 * scale,
		CapHeight: float64(m.CapHeight) / 64 * scale,
		LineGap:   float64(m.Height-m.Ascent-m.Descent) / 64 * scale,
	}
}

// MeasureGlyph returns the advance width, in points, of a single codepoint
// at (font, size). Missing glyphs fall back to the font's .notdef advance
// (approximated here as half the em) and log a warning (spec §4.1).
func (p *Provider) MeasureGlyph(font string, size float64, r rune) float64 {
	p.mu.RLock()
	lf, ok := p.faces[font]
	p.mu.RUnlock()
	if !ok {
		return standard14Advance(r) * size
	}

	out := shapeRunes(lf.face, []rune{r}, language.Latin)
	if len(out) == 0 {
		p.logger.Warn("metrics: glyph not found, using .notdef advance",
			observability.String("font", font))
		return size * 0.5
	}
	scale := size / 1000 / 64
	return float64(out[0].XAdvance) * scale
}

// MeasureText returns the total advance width, in points, of shaping text
// at (font, size), the primitive the Measurement Cache memoizes and the
// line breaker's box widths are built from.
func (p *Provider) MeasureText(font string, size float64, text string) float64 {
	if text == "" {
		return 0
	}
	p.mu.RLock()
	lf, ok := p.faces[font]
	p.mu.RUnlock()
	if !ok {
		return standard14Width(text) * size
	}

	runes := []rune(text)
	script := detectScript(runes)
	out := shapeRunes(lf.face, runes, script)
	scale := size / 1000 / 64
	total := 0.0
	for _, g := range out {
		total += float64(g.XAdvance) * scale
	}
	return total
}

func shapeRunes(face gofont.Face, runes []rune, script language.Script) []shaping.Glyph {
	shaper := &shaping.HarfbuzzShaper{}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      face,
		Size:      fixed.Int26_6(1000 * 64), // shape at 1000 units/em, rescaled by caller
		Script:    script,
		Language:  language.DefaultLanguage(),
	}
	return shaper.Shape(input).Glyphs
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

func detectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	best, bestCount := language.Latin, 0
	for _, r := range runes {
		s := scriptFromRune(r)
		if s == language.Unknown {
			continue
		}
		counts[s]++
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}
	return best
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Han, r):
		return language.Han
	case unicode.Is(unicode.Hiragana, r):
		return language.Hiragana
	case unicode.Is(unicode.Katakana, r):
		return language.Katakana
	case unicode.Is(unicode.Hangul, r):
		return language.Hangul
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	}
	return language.Unknown
}
