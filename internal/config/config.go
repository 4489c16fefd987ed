// Package config loads the document's page/typography/line-breaking/
// rules/solver settings (spec §6) from YAML, populating the defaults each
// collaborator package already exposes (layout.DefaultConfig,
// solver.DefaultConfig, linebreak.DefaultParams) rather than introducing
// a parallel settings shape.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rbf22/compose/internal/layout"
	"github.com/rbf22/compose/internal/linebreak"
	"github.com/rbf22/compose/internal/solver"
)

// Document is the root of a compose YAML configuration file. Every
// section is optional; omitted sections keep the package default they
// shadow.
type Document struct {
	Page         *Page         `yaml:"page"`
	Typography   *Typography   `yaml:"typography"`
	LineBreaking *LineBreaking `yaml:"line_breaking"`
	Rules        *Rules        `yaml:"rules"`
	Solver       *Solver       `yaml:"solver"`
}

type Page struct {
	Width  *float64 `yaml:"width"`
	Height *float64 `yaml:"height"`
	Margin *Margin  `yaml:"margin"`
}

type Margin struct {
	Top    *float64 `yaml:"top"`
	Bottom *float64 `yaml:"bottom"`
	Left   *float64 `yaml:"left"`
	Right  *float64 `yaml:"right"`
}

type Typography struct {
	DefaultFont     *string  `yaml:"default_font"`
	MonospaceFont   *string  `yaml:"monospace_font"`
	DefaultFontSize *float64 `yaml:"default_font_size"`
	LineHeight      *float64 `yaml:"line_height"`
}

type LineBreaking struct {
	ToleranceFirstPass *float64 `yaml:"tolerance_first_pass"`
	FlaggedDemerits    *float64 `yaml:"flagged_demerits"`
	FitnessDemerits    *float64 `yaml:"fitness_demerits"`
}

type Rules struct {
	MaxLinesPerPage *int     `yaml:"max_lines_per_page"`
	MinPageFullness *float64 `yaml:"min_page_fullness"`
	MinSpacing      *float64 `yaml:"min_spacing"`
}

type Solver struct {
	MaxIterations *int `yaml:"max_iterations"`
	TopK          *int `yaml:"top_k"`
}

// Resolved bundles the three collaborator configs a fully wired Generator
// + Solver pipeline needs, after a Document's overrides are applied to
// each package's own defaults.
type Resolved struct {
	Layout    layout.Config
	Solver    solver.Config
	LineBreak linebreak.Params
}

// Load reads and parses a YAML file at path, returning the resolved
// collaborator configs. A missing file is not an error: Default() is
// returned instead, since every section is optional and an absent file is
// the all-sections-absent case.
func Load(path string) (Resolved, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Resolved{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes and resolves them against the package
// defaults.
func Parse(data []byte) (Resolved, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Resolved{}, fmt.Errorf("config: parsing yaml: %w", err)
	}
	return doc.Resolve(), nil
}

// Default returns the collaborator defaults unmodified.
func Default() Resolved {
	return Resolved{
		Layout:    layout.DefaultConfig(),
		Solver:    solver.DefaultConfig(),
		LineBreak: linebreak.DefaultParams(),
	}
}

// Resolve overlays doc's set fields onto the package defaults.
func (doc Document) Resolve() Resolved {
	r := Default()

	if p := doc.Page; p != nil {
		if p.Width != nil {
			r.Layout.PageWidth = *p.Width
		}
		if p.Height != nil {
			r.Layout.PageHeight = *p.Height
		}
		if m := p.Margin; m != nil {
			if m.Top != nil {
				r.Layout.Margins.Top = *m.Top
			}
			if m.Bottom != nil {
				r.Layout.Margins.Bottom = *m.Bottom
			}
			if m.Left != nil {
				r.Layout.Margins.Left = *m.Left
			}
			if m.Right != nil {
				r.Layout.Margins.Right = *m.Right
			}
		}
	}

	if t := doc.Typography; t != nil {
		if t.DefaultFont != nil {
			r.Layout.DefaultFont = *t.DefaultFont
		}
		if t.MonospaceFont != nil {
			r.Layout.MonospaceFont = *t.MonospaceFont
		}
		if t.DefaultFontSize != nil {
			r.Layout.DefaultFontSize = *t.DefaultFontSize
		}
		if t.LineHeight != nil {
			r.Layout.LineHeight = *t.LineHeight
		}
	}

	if lb := doc.LineBreaking; lb != nil {
		if lb.ToleranceFirstPass != nil {
			r.LineBreak.ToleranceFirstPass = *lb.ToleranceFirstPass
		}
		if lb.FlaggedDemerits != nil {
			r.LineBreak.FlaggedDemerits = *lb.FlaggedDemerits
		}
		if lb.FitnessDemerits != nil {
			r.LineBreak.FitnessDemerits = *lb.FitnessDemerits
		}
	}

	if ru := doc.Rules; ru != nil {
		if ru.MaxLinesPerPage != nil {
			r.Solver.MaxLinesPerPage = *ru.MaxLinesPerPage
		}
		if ru.MinPageFullness != nil {
			r.Solver.MinPageFullness = *ru.MinPageFullness
		}
		if ru.MinSpacing != nil {
			r.Solver.MinSpacing = *ru.MinSpacing
		}
	}

	if sv := doc.Solver; sv != nil {
		if sv.MaxIterations != nil {
			r.Solver.MaxIterations = *sv.MaxIterations
		}
		if sv.TopK != nil {
			r.Solver.TopK = *sv.TopK
		}
	}

	return r
}
