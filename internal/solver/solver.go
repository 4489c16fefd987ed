// Package solver implements the Constraint Solver (spec §4.5): a
// fixed-point loop that runs a table of rules over the current
// LayoutState, ranks the violations they report, resolves conflicting
// adjustments, applies the survivors to a cloned state, and repeats until
// no violations remain, the violation set stops changing, or an
// iteration cap is reached.
package solver

import (
	"sort"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/observability"
)

// Config carries the §6 "rules" and "solver" configuration groups.
type Config struct {
	MaxIterations      int
	TopK               int
	MinSpacing         float64
	MaxLinesPerPage    int
	MinPageFullness    float64
	BalancedSpacingTol float64
}

// DefaultConfig matches the defaults spec §4.5 names (N=10 iterations,
// K=3 top violations per pass).
func DefaultConfig() Config {
	return Config{
		MaxIterations:      10,
		TopK:               3,
		MinSpacing:         4,
		MaxLinesPerPage:    60,
		MinPageFullness:    0.6,
		BalancedSpacingTol: 6,
	}
}

// Rule is the unit of the solver's rule table (spec §4.5).
type Rule interface {
	ID() string
	Severity() boxes.Severity
	Check(state *boxes.LayoutState, cfg Config) []boxes.Violation
	Suggest(v boxes.Violation, state *boxes.LayoutState, cfg Config) []boxes.Adjustment
}

// DefaultRules returns the nine built-in rules in spec §4.5's table, in the
// order they're listed there.
func DefaultRules() []Rule {
	return []Rule{
		noOverflowRule{},
		minSpacingRule{},
		noOrphanRule{},
		noWidowRule{},
		headingOrphanRule{},
		keepTogetherRule{},
		maxLinesPerPageRule{},
		minPageFullnessRule{},
		balancedSpacingRule{},
	}
}

// Solver runs the fixed-point loop.
type Solver struct {
	rules  []Rule
	cfg    Config
	logger observability.Logger
}

// New constructs a Solver with the given rule table; pass DefaultRules()
// for the built-in set.
func New(cfg Config, rules []Rule, logger observability.Logger) *Solver {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Solver{rules: rules, cfg: cfg, logger: logger}
}

// Solve runs the iteration described in spec §4.5 and returns the final
// state, with any residual violations recorded on it.
func (s *Solver) Solve(initial boxes.LayoutState) boxes.LayoutState {
	state := initial
	var prevSignature string

	for iter := 0; iter < s.cfg.MaxIterations; iter++ {
		state.Iteration = iter

		violations := s.checkAll(&state)
		if len(violations) == 0 {
			state.ResidualViolations = nil
			return state
		}

		sortViolations(violations)
		signature := signatureOf(violations)
		if signature == prevSignature {
			// Fixed point with residual violations (spec §4.5 condition b).
			state.ResidualViolations = violations
			return state
		}
		prevSignature = signature

		top := violations
		if len(top) > s.cfg.TopK {
			top = top[:s.cfg.TopK]
		}

		adjustments := s.gatherAdjustments(&state, top)
		if len(adjustments) == 0 {
			state.ResidualViolations = violations
			return state
		}

		next := state.Clone()
		applied := applyAdjustments(&next, adjustments, s.logger)
		if !applied {
			// Nothing could be applied without violating anti-thrash or the
			// no-overflow monotonicity guarantee; treat as converged.
			state.ResidualViolations = violations
			return state
		}
		state = next
	}

	violations := s.checkAll(&state)
	state.ResidualViolations = violations
	return state
}

func (s *Solver) checkAll(state *boxes.LayoutState) []boxes.Violation {
	var all []boxes.Violation
	for _, r := range s.rules {
		all = append(all, r.Check(state, s.cfg)...)
	}
	return all
}

func (s *Solver) gatherAdjustments(state *boxes.LayoutState, violations []boxes.Violation) []boxes.Adjustment {
	var all []boxes.Adjustment
	rulesByID := make(map[string]Rule, len(s.rules))
	for _, r := range s.rules {
		rulesByID[r.ID()] = r
	}
	for _, v := range violations {
		r, ok := rulesByID[v.RuleID]
		if !ok {
			continue
		}
		all = append(all, r.Suggest(v, state, s.cfg)...)
	}
	return resolveConflicts(all)
}

// sortViolations orders by (severity=error first, page ascending, stable
// within page) per spec §4.5 step 2.
func sortViolations(vs []boxes.Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Severity != vs[j].Severity {
			return vs[i].Severity < vs[j].Severity
		}
		return vs[i].PageIndex < vs[j].PageIndex
	})
}

func signatureOf(vs []boxes.Violation) string {
	s := ""
	for _, v := range vs {
		s += v.RuleID + "|" + string(v.OffendingBlock) + ";"
	}
	return s
}

// resolveConflicts keeps, for each target block, only the adjustment from
// the highest-severity rule (spec §4.5 step 4).
func resolveConflicts(adjustments []boxes.Adjustment) []boxes.Adjustment {
	best := make(map[boxes.BlockID]boxes.Adjustment)
	var unkeyed []boxes.Adjustment
	for _, a := range adjustments {
		if a.Block == "" {
			unkeyed = append(unkeyed, a)
			continue
		}
		cur, ok := best[a.Block]
		if !ok || a.SourceSeverity < cur.SourceSeverity {
			best[a.Block] = a
		}
	}
	out := make([]boxes.Adjustment, 0, len(best)+len(unkeyed))
	for _, a := range best {
		out = append(out, a)
	}
	out = append(out, unkeyed...)
	return out
}
