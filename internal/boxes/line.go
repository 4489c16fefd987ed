package boxes

// Line is an ordered set of text runs produced by the line breaker (spec
// §3). AdjustmentRatio is the r used to set inter-word glue; Width is the
// set width of the line, with its glue already stretched or shrunk by that
// ratio (the runs' X offsets include it too).
type Line struct {
	Runs            []Box
	BaselineY       float64
	X               float64
	Width           float64
	Height          float64
	Ascent          float64
	Descent         float64
	AdjustmentRatio float64
}

// ParagraphLayout is an ordered sequence of lines with a position and a
// derived height (spec §3): sum of line heights plus inter-line leading.
type ParagraphLayout struct {
	X, Y         float64
	Width        float64
	Height       float64
	Lines        []Line
	LineLeading  float64
	SpacingAfter float64
}

// TotalHeight recomputes the paragraph's height as the sum of line heights
// plus leading between them, used by the height invariant test (spec §8
// universal invariant 2).
func (p ParagraphLayout) TotalHeight() float64 {
	if len(p.Lines) == 0 {
		return 0
	}
	h := 0.0
	for i, ln := range p.Lines {
		h += ln.Height
		if i > 0 {
			h += p.LineLeading
		}
	}
	return h
}
