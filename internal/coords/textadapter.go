package coords

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/mathengine"
)

// TextAdapter transcribes a page's drawing calls into reading-order plain
// text, for smoke tests that want to assert on extracted words without
// decoding a PDF or an HTML document. It buffers calls per page (drawing
// order is visual, not necessarily reading order for overlapping blocks)
// and sorts by (y descending, x ascending) before flattening: top-to-
// bottom, left-to-right in the engine's bottom-left-origin space.
type TextAdapter struct {
	Pages []string

	current []textItem
}

type textItem struct {
	x, y float64
	text string
}

// NewTextAdapter returns an adapter using IdentityTransform semantics
// (consult Pages's resulting text, not coordinates, so either transform
// works, IdentityTransform is the natural pairing since text order
// follows the engine's own Y-descending page flow).
func NewTextAdapter() *TextAdapter {
	return &TextAdapter{}
}

func (t *TextAdapter) BeginPage(_, _ float64) error {
	t.current = nil
	return nil
}

func (t *TextAdapter) DrawTextRun(x, yBaseline float64, _ string, _ float64, _ boxes.Color, text string, _ boxes.Decoration) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	t.current = append(t.current, textItem{x: x, y: yBaseline, text: text})
	return nil
}

func (t *TextAdapter) DrawRule(_, _, _, _ float64, _ boxes.Color) error { return nil }

func (t *TextAdapter) DrawImage(x, y, _, _ float64, handle string) error {
	t.current = append(t.current, textItem{x: x, y: y, text: fmt.Sprintf("[image: %s]", handle)})
	return nil
}

func (t *TextAdapter) DrawMath(x, y float64, mathBox boxes.Box) error {
	glyphs, ok := mathengine.Flatten(mathBox.MathHandle, mathBox.Ascent)
	if !ok {
		t.current = append(t.current, textItem{x: x, y: y, text: "[math]"})
		return nil
	}
	var sb strings.Builder
	for _, g := range glyphs {
		sb.WriteString(g.Text)
	}
	t.current = append(t.current, textItem{x: x, y: y, text: sb.String()})
	return nil
}

func (t *TextAdapter) EndPage() error {
	items := append([]textItem(nil), t.current...)
	sort.SliceStable(items, func(i, j int) bool {
		const lineTolerance = 2.0
		if diff := items[i].y - items[j].y; diff > lineTolerance || diff < -lineTolerance {
			return items[i].y > items[j].y
		}
		return items[i].x < items[j].x
	})

	var sb strings.Builder
	lastY := 0.0
	first := true
	for _, it := range items {
		if first {
			first = false
		} else if lastY-it.y > 2.0 {
			sb.WriteByte('\n')
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(it.text)
		lastY = it.y
	}
	t.Pages = append(t.Pages, sb.String())
	return nil
}
