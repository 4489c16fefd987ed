// Package pluginrules lets a document author add solver.Rule instances
// written in JavaScript instead of Go, evaluated against a read-only
// projection of the current boxes.LayoutState. Each invocation gets a
// fresh goja.Runtime with Go callbacks exposed via vm.Set, and the
// LayoutState is handed to the script only through proxy structs
// (pageView/blockView) that project a read-only view of the real value
// instead of the value itself.
package pluginrules

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/solver"
)

// Rule wraps a JavaScript source string as a solver.Rule. The script runs
// once from Check on each solver pass (to populate violations by calling
// the host `report` function) and once more from Suggest for each of its
// violations the solver selects (to populate adjustments by calling
// `suggest`). Both runs share the same script text: a rule
// author writes one function that inspects `doc` and calls the host
// functions that are defined for whichever phase is active.
type Rule struct {
	id       string
	severity boxes.Severity
	source   string
}

// New compiles source to check for syntax errors early and returns a Rule
// ready to register with solver.New's rule table.
func New(id string, severity boxes.Severity, source string) (*Rule, error) {
	if _, err := goja.Compile(id, source, false); err != nil {
		return nil, fmt.Errorf("pluginrules: compiling %s: %w", id, err)
	}
	return &Rule{id: id, severity: severity, source: source}, nil
}

func (r *Rule) ID() string             { return r.id }
func (r *Rule) Severity() boxes.Severity { return r.severity }

// Check runs the script with a `report(blockID, pageIndex, description)`
// host function bound, and returns one Violation per call the script
// makes.
func (r *Rule) Check(state *boxes.LayoutState, cfg solver.Config) []boxes.Violation {
	vm := goja.New()
	var violations []boxes.Violation

	vm.Set("doc", newDocView(state))
	vm.Set("config", configView{cfg})
	vm.Set("report", func(call goja.FunctionCall) goja.Value {
		blockID := argString(call, 0)
		pageIndex := int(argNumber(call, 1))
		description := argString(call, 2)
		violations = append(violations, boxes.Violation{
			RuleID:         r.id,
			Severity:       r.severity,
			OffendingBlock: boxes.BlockID(blockID),
			PageIndex:      pageIndex,
			Description:    description,
		})
		return goja.Undefined()
	})

	if _, err := vm.RunString(r.source); err != nil {
		violations = append(violations, boxes.Violation{
			RuleID:      r.id,
			Severity:    boxes.SeverityError,
			Description: fmt.Sprintf("script error: %v", err),
		})
	}
	return violations
}

// Suggest re-runs the script with `violation` describing the specific
// violation being resolved and a `suggest(kind, blockID, delta, hint)`
// host function bound; each call appends one Adjustment.
func (r *Rule) Suggest(v boxes.Violation, state *boxes.LayoutState, cfg solver.Config) []boxes.Adjustment {
	vm := goja.New()
	var adjustments []boxes.Adjustment

	vm.Set("doc", newDocView(state))
	vm.Set("config", configView{cfg})
	vm.Set("violation", violationView{v})
	vm.Set("suggest", func(call goja.FunctionCall) goja.Value {
		kind := adjustmentKindFromName(argString(call, 0))
		blockID := argString(call, 1)
		delta := argNumber(call, 2)
		hint := argString(call, 3)
		adjustments = append(adjustments, boxes.Adjustment{
			Kind:           kind,
			Block:          boxes.BlockID(blockID),
			Delta:          delta,
			Hint:           hint,
			SourceRuleID:   r.id,
			SourceSeverity: r.severity,
		})
		return goja.Undefined()
	})

	if _, err := vm.RunString(r.source); err != nil {
		return nil
	}
	return adjustments
}

func argString(call goja.FunctionCall, i int) string {
	if i >= len(call.Arguments) {
		return ""
	}
	return call.Arguments[i].String()
}

func argNumber(call goja.FunctionCall, i int) float64 {
	if i >= len(call.Arguments) {
		return 0
	}
	return call.Arguments[i].ToFloat()
}

func adjustmentKindFromName(name string) boxes.AdjustmentKind {
	switch name {
	case "move-to-next-page":
		return boxes.AdjustMoveToNextPage
	case "pull-line-from-previous":
		return boxes.AdjustPullLineFromPrevious
	case "add-spacing-before":
		return boxes.AdjustAddSpacingBefore
	case "force-break-before":
		return boxes.AdjustForceBreakBefore
	case "rebreak-paragraph":
		return boxes.AdjustRebreakParagraph
	default:
		return boxes.AdjustAddSpacingBefore
	}
}

// docView is the read-only projection of a LayoutState a script sees as
// `doc`: plain data, no method that could mutate the real state. No
// FieldNameMapper is installed, so goja exposes Go exported field names
// as-is to JS, and a rule script reads doc.Pages[0].Blocks[0].ID.
type docView struct {
	Pages []pageView
}

type pageView struct {
	Number     int
	Width      float64
	Height     float64
	Fullness   float64
	UsedHeight float64
	Blocks     []blockView
}

type blockView struct {
	ID           string
	Kind         string
	X            float64
	Y            float64
	Width        float64
	Height       float64
	KeepWithNext bool
	KeepTogether bool
	Breakable    bool
}

func newDocView(state *boxes.LayoutState) docView {
	dv := docView{Pages: make([]pageView, len(state.Pages))}
	for i, p := range state.Pages {
		pv := pageView{
			Number: p.Number, Width: p.Width, Height: p.Height,
			Fullness: p.Fullness(), UsedHeight: p.UsedHeight,
			Blocks: make([]blockView, len(p.Blocks)),
		}
		for j, b := range p.Blocks {
			pv.Blocks[j] = blockView{
				ID: string(b.ID), Kind: b.Kind.String(),
				X: b.X, Y: b.Y, Width: b.Width, Height: b.Height,
				KeepWithNext: b.KeepWithNext, KeepTogether: b.KeepTogether, Breakable: b.Breakable,
			}
		}
		dv.Pages[i] = pv
	}
	return dv
}

type configView struct {
	solver.Config
}

type violationView struct {
	boxes.Violation
}
