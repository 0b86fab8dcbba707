package mode

import (
	"cmp"
	"slices"

	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/world"
)

// Context is the read-only data shared by every rule during a step.
type Context struct {
	World  world.Environment
	Params Params
}

// Rule describes a single locomotion mode. Rules hold no state and are shared by every character using the
// set they are registered in.
type Rule struct {
	Mode movement.Mode
	Name string
	// Priority orders rules when more than one is eligible. Higher priorities win; equal priorities are
	// resolved by registration order.
	Priority int
	// From restricts the modes this rule may be entered from. An empty From allows entry from any mode. A
	// rule may always keep control once it is active.
	From []movement.Mode

	// Eligible reports whether the mode may be active for the next tick.
	Eligible func(ctx *Context, s movement.State, in movement.Input) bool
	// Enter applies the effect of entering the mode. It may be nil.
	Enter func(ctx *Context, s movement.State, in movement.Input) movement.State
	// Step advances the state by dt seconds while the mode is active.
	Step func(ctx *Context, s movement.State, in movement.Input, dt float64) movement.State
}

// allows returns true if the rule may take control from the mode passed.
func (r Rule) allows(from movement.Mode) bool {
	return from == r.Mode || len(r.From) == 0 || slices.Contains(r.From, from)
}

// Set is an immutable, priority ordered table of rules. A Set is safe for concurrent use.
type Set struct {
	rules []Rule
}

// NewSet validates the rules passed and returns a set ordering them by descending priority.
func NewSet(rules ...Rule) (*Set, error) {
	if len(rules) == 0 {
		return nil, oerror.Configuration("modes", "at least one rule must be registered")
	}
	sorted := slices.Clone(rules)
	for i, r := range sorted {
		if r.Eligible == nil || r.Step == nil {
			return nil, oerror.Configuration("modes", "rule %s has no eligibility or step function", r.Mode)
		}
		for _, other := range sorted[:i] {
			if other.Mode == r.Mode {
				return nil, oerror.Configuration("modes", "mode %s is registered twice", r.Mode)
			}
		}
		if r.Name == "" {
			sorted[i].Name = r.Mode.String()
		}
	}
	for _, r := range sorted {
		for _, from := range r.From {
			if !slices.ContainsFunc(sorted, func(o Rule) bool { return o.Mode == from }) {
				return nil, oerror.Configuration("modes", "rule %s may be entered from unregistered mode %s", r.Mode, from)
			}
		}
	}
	slices.SortStableFunc(sorted, func(a, b Rule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return &Set{rules: sorted}, nil
}

// MustNewSet calls NewSet and panics on error.
func MustNewSet(rules ...Rule) *Set {
	set, err := NewSet(rules...)
	if err != nil {
		panic(err)
	}
	return set
}

// Require returns a ConfigurationError if any of the modes passed is not registered in the set.
func (set *Set) Require(modes ...movement.Mode) error {
	for _, m := range modes {
		if _, ok := set.Lookup(m); !ok {
			return oerror.Configuration("modes", "mode %s is not registered", m)
		}
	}
	return nil
}

// Lookup returns the rule registered for the mode passed.
func (set *Set) Lookup(m movement.Mode) (Rule, bool) {
	for _, r := range set.rules {
		if r.Mode == m {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns the rules of the set in evaluation order.
func (set *Set) Rules() []Rule {
	return slices.Clone(set.rules)
}

// Modes returns the registered modes in evaluation order.
func (set *Set) Modes() []movement.Mode {
	modes := make([]movement.Mode, len(set.rules))
	for i, r := range set.rules {
		modes[i] = r.Mode
	}
	return modes
}

// EvaluateTransition returns the mode that should be active for the tick following s. It returns false
// if no rule is eligible, in which case the current mode is retained.
func (set *Set) EvaluateTransition(ctx *Context, s movement.State, in movement.Input) (movement.Mode, bool) {
	for _, r := range set.rules {
		if r.allows(s.Mode) && r.Eligible(ctx, s, in) {
			return r.Mode, true
		}
	}
	return s.Mode, false
}
