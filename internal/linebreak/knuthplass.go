// Package linebreak implements the Line Breaker (spec §4.3): a
// Knuth-Plass-style dynamic program over a stream of boxes, glues and
// penalties that finds the breakpoint chain minimizing total demerits.
package linebreak

import (
	"math"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/observability"
)

// Params configures the breaker (spec §6 "line_breaking" configuration
// group).
type Params struct {
	ToleranceFirstPass  float64 // rho_max for the first pass; default 2.0
	ToleranceSecondPass float64 // rho_max for the emergency-stretch retry; default +Inf
	FlaggedDemerits     float64 // alpha; default 100
	FitnessDemerits     float64 // beta; default 3000
	LineLeading         float64 // inter-line leading added between lines
}

// DefaultParams returns the constants spec §4.3/§6 name.
func DefaultParams() Params {
	return Params{
		ToleranceFirstPass:  2.0,
		ToleranceSecondPass: math.Inf(1),
		FlaggedDemerits:     100,
		FitnessDemerits:     3000,
	}
}

// LineWidth returns the target width for the line at the given zero-based
// index, allowing running indents (spec §4.3).
type LineWidth func(lineIndex int) float64

type candidate struct {
	pos      int // index of last item consumed (break occurs after this item), -1 = start of paragraph
	line     int // number of lines produced so far
	demerits float64
	fitness  int
	flagged  bool
	prev     *candidate
}

// Break runs the Knuth–Plass DP over items and returns the resulting lines.
// lineWidth supplies the target width per line (e.g. a constant column
// width, or a function of line index for running indents).
func Break(items []boxes.ParagraphItem, lineWidth LineWidth, params Params, logger observability.Logger) ([]boxes.Line, error) {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	if len(items) == 0 {
		return nil, nil
	}

	lines, ok := tryBreak(items, lineWidth, params.ToleranceFirstPass, params, logger)
	if !ok {
		logger.Warn("linebreak: no feasible chain at first-pass tolerance, retrying with emergency stretch")
		lines, ok = tryBreak(items, lineWidth, params.ToleranceSecondPass, params, logger)
	}
	if !ok {
		logger.Warn("linebreak: no feasible chain at emergency tolerance, falling back to greedy packing of whole items")
		return splitAtCharacterBoundaries(items, lineWidth, params), nil
	}
	return lines, nil
}

// tryBreak runs the DP at a single tolerance value, returning ok=false if no
// chain reaches the end of the stream.
func tryBreak(items []boxes.ParagraphItem, lineWidth LineWidth, tolerance float64, params Params, logger observability.Logger) ([]boxes.Line, bool) {
	root := &candidate{pos: -1, line: 0, fitness: 1}
	active := []*candidate{root}
	rescued := false

	for i, item := range items {
		if !isFeasibleBreakItem(items, i) {
			continue
		}
		forced := item.Kind == boxes.ItemPenalty && item.Penalty.Cost <= boxes.ForceBreak
		p := float64(0)
		flagged := false
		if item.Kind == boxes.ItemPenalty {
			p = item.Penalty.Cost
			flagged = item.Penalty.Flagged
			if forced {
				p = 0
			}
		}

		var best *candidate
		bestDemerits := math.Inf(1)
		bestFitness := 1

		for _, c := range active {
			natural, stretch, shrink := sumSegment(items, c.pos+1, i)
			target := lineWidth(c.line)
			r, feasible := adjustmentRatio(natural, stretch, shrink, target, tolerance)
			if forced && r > 0 {
				// A line ending in a forced break may be left short; its glue
				// stays at natural width.
				r, feasible = 0, true
			}
			if !feasible {
				continue
			}
			if r < -1 {
				r = -1 // cannot shrink past fully-shrunk
			}
			fc := fitnessClass(r)
			mismatch := 0.0
			if absInt(fc-c.fitness) > 1 {
				mismatch = 1
			}
			consecFlagged := 0.0
			if flagged && c.flagged {
				consecFlagged = 1
			}
			badness := 1 + 100*math.Pow(math.Abs(r), 3) + p
			d := badness*badness + params.FlaggedDemerits*consecFlagged*consecFlagged + params.FitnessDemerits*mismatch
			total := c.demerits + d

			if total < bestDemerits-1e-9 {
				bestDemerits, best, bestFitness = total, c, fc
			} else if math.Abs(total-bestDemerits) <= 1e-9 && best != nil {
				// Tie-break: fewer lines, then earlier break (spec §4.3).
				if c.line < best.line || (c.line == best.line && c.pos < best.pos) {
					bestDemerits, best, bestFitness = total, c, fc
				}
			}
		}

		if best == nil {
			if forced {
				// No active candidate could feasibly reach a forced break;
				// still must break here to honor the mandatory break. Fall
				// back to the least-bad active candidate, and report the
				// chain as infeasible so the caller can retry.
				for _, c := range active {
					if best == nil || c.demerits < best.demerits {
						best = c
					}
				}
				bestFitness = 1
				rescued = true
			} else {
				continue
			}
		}

		nc := &candidate{
			pos:      i,
			line:     best.line + 1,
			demerits: bestDemerits,
			fitness:  bestFitness,
			flagged:  flagged,
			prev:     best,
		}
		if forced {
			// No later line may span a forced break.
			active = []*candidate{nc}
		} else {
			active = append(active, nc)
		}
	}

	last := active[len(active)-1]
	if last.pos != len(items)-1 {
		// Stream didn't end on a recognized breakpoint (e.g. no trailing
		// penalty); treat the final item as a forced break.
		var best *candidate
		for _, c := range active {
			if best == nil || c.demerits < best.demerits {
				best = c
			}
		}
		if best == nil {
			return nil, false
		}
		last = &candidate{pos: len(items) - 1, line: best.line + 1, demerits: best.demerits, prev: best}
	}

	chain := reconstructChain(last)
	if len(chain) == 0 {
		return nil, false
	}
	return materializeLines(items, chain, lineWidth, params), !rescued
}

func reconstructChain(last *candidate) []*candidate {
	var chain []*candidate
	for c := last; c != nil && c.pos >= 0; c = c.prev {
		chain = append([]*candidate{c}, chain...)
	}
	return chain
}

func materializeLines(items []boxes.ParagraphItem, chain []*candidate, lineWidth LineWidth, params Params) []boxes.Line {
	lines := make([]boxes.Line, 0, len(chain))
	start := 0
	for lineIdx, c := range chain {
		segItems := trimSegment(items, start, c.pos)
		target := lineWidth(lineIdx)
		natural, stretch, shrink := sumSegment(items, start, c.pos)
		r, _ := adjustmentRatio(natural, stretch, shrink, target, math.Inf(1))
		if r < -1 {
			r = -1
		}

		line := assembleLine(segItems, r, target)
		line.AdjustmentRatio = r
		lines = append(lines, line)
		start = c.pos + 1
	}
	for i := range lines {
		if i > 0 {
			lines[i].BaselineY = lines[i-1].BaselineY - lines[i-1].Height - params.LineLeading
		}
	}
	return lines
}

// assembleLine lays out the boxes of a single line left to right, expanding
// glue by the adjustment ratio, and returns the resulting Line with each
// run's X set relative to the line's left edge.
func assembleLine(segItems []boxes.ParagraphItem, ratio float64, targetWidth float64) boxes.Line {
	var runs []boxes.Box
	x := 0.0
	ascent, descent := 0.0, 0.0
	for _, item := range segItems {
		switch item.Kind {
		case boxes.ItemBox:
			b := item.Box
			b.X = x
			runs = append(runs, b)
			x += b.Width
			if b.Ascent > ascent {
				ascent = b.Ascent
			}
			if b.Descent > descent {
				descent = b.Descent
			}
		case boxes.ItemGlue:
			w := item.Glue.Width
			if ratio >= 0 {
				w += ratio * item.Glue.Stretch
			} else {
				w += ratio * item.Glue.Shrink
			}
			x += w
		case boxes.ItemPenalty:
			// Penalties contribute no width to a realized line.
		}
	}
	if ascent == 0 && descent == 0 && len(runs) > 0 {
		ascent, descent = runs[0].Ascent, runs[0].Descent
	}
	return boxes.Line{
		Runs:    runs,
		Width:   x,
		Height:  ascent + descent,
		Ascent:  ascent,
		Descent: descent,
	}
}

// trimSegment drops leading/trailing discardable glue from items[start:end]
// inclusive of end, per Knuth's rule that glue at a line boundary is
// discarded rather than rendered.
func trimSegment(items []boxes.ParagraphItem, start, end int) []boxes.ParagraphItem {
	if start > end {
		return nil
	}
	seg := items[start : end+1]
	lo := 0
	for lo < len(seg) && seg[lo].Kind == boxes.ItemGlue {
		lo++
	}
	hi := len(seg)
	for hi > lo && seg[hi-1].Kind != boxes.ItemBox {
		hi--
	}
	return seg[lo:hi]
}

// sumSegment returns the natural width, total stretch, and total shrink of
// items[start:end] inclusive of end, with leading glue discarded.
func sumSegment(items []boxes.ParagraphItem, start, end int) (natural, stretch, shrink float64) {
	if start > end {
		return 0, 0, 0
	}
	seg := trimSegment(items, start, end)
	for _, item := range seg {
		switch item.Kind {
		case boxes.ItemBox:
			natural += item.Box.Width
		case boxes.ItemGlue:
			natural += item.Glue.Width
			stretch += item.Glue.Stretch
			shrink += item.Glue.Shrink
		}
	}
	return
}

func adjustmentRatio(natural, stretch, shrink, target, tolerance float64) (float64, bool) {
	diff := target - natural
	switch {
	case diff == 0:
		return 0, true
	case diff > 0:
		if stretch <= 0 {
			return math.Inf(1), false
		}
		r := diff / stretch
		return r, r <= tolerance
	default:
		if shrink <= 0 {
			return math.Inf(-1), false
		}
		r := diff / shrink
		return r, r >= -1
	}
}

func fitnessClass(r float64) int {
	switch {
	case r < -0.5:
		return 0 // tight
	case r < 0.5:
		return 1 // normal
	case r < 1.0:
		return 2 // loose
	default:
		return 3 // very loose
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// isFeasibleBreakItem reports whether items[i] is a legal breakpoint:
// glue immediately preceded by a box, or a penalty with cost < +Inf.
func isFeasibleBreakItem(items []boxes.ParagraphItem, i int) bool {
	item := items[i]
	switch item.Kind {
	case boxes.ItemPenalty:
		return item.Penalty.Cost < boxes.ForbidBreak
	case boxes.ItemGlue:
		return i > 0 && items[i-1].Kind == boxes.ItemBox
	default:
		return false
	}
}

// splitAtCharacterBoundaries is the last-resort fallback: when even
// emergency stretch cannot produce a feasible chain, it packs whole items
// greedily into lines, starting a new line when the next item would pass
// the target width. Boxes are not split at character boundaries, so a box
// wider than the line still overflows it on a line of its own.
func splitAtCharacterBoundaries(items []boxes.ParagraphItem, lineWidth LineWidth, params Params) []boxes.Line {
	var lines []boxes.Line
	var current []boxes.ParagraphItem
	x := 0.0
	lineIdx := 0
	target := lineWidth(lineIdx)

	flush := func() {
		if len(current) == 0 {
			return
		}
		line := assembleLine(current, 0, target)
		lines = append(lines, line)
		current = nil
		x = 0
		lineIdx++
		target = lineWidth(lineIdx)
	}

	for _, item := range items {
		w := item.Width
		if item.Kind == boxes.ItemBox {
			w = item.Box.Width
		}
		if x+w > target && len(current) > 0 {
			flush()
		}
		current = append(current, item)
		x += w
	}
	flush()

	for i := range lines {
		if i > 0 {
			lines[i].BaselineY = lines[i-1].BaselineY - lines[i-1].Height - params.LineLeading
		}
	}
	return lines
}
