package measure

// TextMeasurer is the subset of the Font Metrics Provider the cache needs:
// a pure function from (font, size, text) to an advance width. Defined here
// rather than imported from package metrics so measure has no dependency on
// any particular metrics backend; a test can supply a trivial stub.
type TextMeasurer interface {
	MeasureText(font string, size float64, text string) float64
}

// CachedMeasureText memoizes calls to measurer.MeasureText keyed by
// (text, font, size, styleFlags), satisfying spec §4.2's run key shape.
func CachedMeasureText(cache *Cache, measurer TextMeasurer, font string, size float64, text string, styleFlags int) float64 {
	key := RunKey{Text: text, Font: font, Size: size, StyleFlags: styleFlags}
	if v, ok := cache.GetRun(key); ok {
		return v
	}
	v := measurer.MeasureText(font, size, text)
	cache.PutRun(key, v)
	return v
}
