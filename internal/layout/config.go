package layout

import "github.com/rbf22/compose/internal/boxes"

// Config carries the page/typography configuration group the block layout
// generator needs (spec §6, "page" and "typography" groups). Individual
// fields can be overridden with the With-prefixed functional options below.
type Config struct {
	PageWidth  float64
	PageHeight float64
	Margins    boxes.Margins

	DefaultFont     string
	MonospaceFont   string
	DefaultFontSize float64
	LineHeight      float64 // multiplier, e.g. 1.2

	HeadingSizeMultipliers []float64 // indexed by level-1; last entry repeats for deeper levels

	ParagraphSpacingBefore float64
	ParagraphSpacingAfter  float64
	HeadingSpacingBefore   float64
	HeadingSpacingAfter    float64

	ListIndent      float64
	ListItemSpacing float64

	TableCellPadding float64
	TableBorderWidth float64
	MinColumnWidth   float64

	CodeBlockPadding float64
	RuleThickness    float64

	FigureSpacingBefore float64
	FigureSpacingAfter  float64
	FigureCaptionGap    float64
}

// DefaultConfig returns A4 page dimensions, 50pt margins, Helvetica 12 at
// 1.2 line height, and the block-kind spacing and table/list/code geometry
// the rest of the block set requires.
func DefaultConfig() Config {
	return Config{
		PageWidth:  595.28,
		PageHeight: 841.89,
		Margins:    boxes.Margins{Top: 50, Bottom: 50, Left: 50, Right: 50},

		DefaultFont:     "Helvetica",
		MonospaceFont:   "Courier",
		DefaultFontSize: 12,
		LineHeight:      1.2,

		HeadingSizeMultipliers: []float64{2.0, 1.5, 1.25, 1.1, 1.0, 1.0},

		ParagraphSpacingBefore: 0,
		ParagraphSpacingAfter:  8,
		HeadingSpacingBefore:   14,
		HeadingSpacingAfter:    10,

		ListIndent:      18,
		ListItemSpacing: 4,

		TableCellPadding: 5,
		TableBorderWidth: 1,
		MinColumnWidth:   30,

		CodeBlockPadding: 6,
		RuleThickness:    1,

		FigureSpacingBefore: 8,
		FigureSpacingAfter:  8,
		FigureCaptionGap:    4,
	}
}

// Option mutates a Config in place.
type Option func(*Config)

func WithPageSize(width, height float64) Option {
	return func(c *Config) { c.PageWidth, c.PageHeight = width, height }
}

func WithMargins(m boxes.Margins) Option {
	return func(c *Config) { c.Margins = m }
}

func WithDefaultFont(name string, size float64) Option {
	return func(c *Config) { c.DefaultFont, c.DefaultFontSize = name, size }
}

func WithMonospaceFont(name string) Option {
	return func(c *Config) { c.MonospaceFont = name }
}

func WithLineHeight(multiplier float64) Option {
	return func(c *Config) { c.LineHeight = multiplier }
}

func WithListIndent(indent float64) Option {
	return func(c *Config) { c.ListIndent = indent }
}

// NewConfig applies opts over DefaultConfig.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c Config) headingSize(level int) float64 {
	idx := level - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.HeadingSizeMultipliers) {
		idx = len(c.HeadingSizeMultipliers) - 1
	}
	return c.DefaultFontSize * c.HeadingSizeMultipliers[idx]
}

func (c Config) lineLeading(fontSize float64) float64 {
	return fontSize*c.LineHeight - fontSize
}
