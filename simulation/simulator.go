package simulation

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/mode"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/world"
)

// Role is the authority a simulator runs with. It does not change how a step is computed, only how the
// caller treats the result.
type Role uint8

const (
	// RoleAuthority produces the source of truth.
	RoleAuthority Role = iota
	// RolePredictive produces provisional states that are subject to correction.
	RolePredictive
)

func (r Role) String() string {
	if r == RoleAuthority {
		return "authority"
	}
	return "predictive"
}

// Options configures a Simulator.
type Options struct {
	// Precision is the number of decimal places position, velocity and rotation are rounded to after every
	// step. Zero disables rounding.
	Precision int
}

// Simulator advances movement states one fixed tick at a time. A Simulator holds no per-character state
// and is safe for concurrent use.
type Simulator struct {
	modes *mode.Set
	ctx   mode.Context
	opts  Options
}

// New returns a simulator stepping through the modes of set inside env.
func New(set *mode.Set, env world.Environment, params mode.Params, opts Options) (*Simulator, error) {
	if set == nil {
		return nil, oerror.Configuration("modes", "a mode set is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if opts.Precision < 0 || opts.Precision > 15 {
		return nil, oerror.Configuration("precision", "must be in [0, 15], got %d", opts.Precision)
	}
	return &Simulator{modes: set, ctx: mode.Context{World: env, Params: params}, opts: opts}, nil
}

// Modes returns the mode set used by the simulator.
func (s *Simulator) Modes() *mode.Set {
	return s.modes
}

// Params returns the physics tunables used by the simulator.
func (s *Simulator) Params() mode.Params {
	return s.ctx.Params
}

// Step returns the state following prev after applying in for dt seconds. Step is deterministic: the same
// arguments always produce the same state.
func (s *Simulator) Step(prev movement.State, in movement.Input, dt float64) movement.State {
	ctx := s.ctx
	next, _ := s.modes.EvaluateTransition(&ctx, prev, in)

	st := prev
	rule, ok := s.modes.Lookup(next)
	if !ok {
		// The state carries a mode this set does not know and no registered mode could take over. The
		// character is held in place until one can.
		st.Tick = prev.Tick + 1
		st.Vel = mgl64.Vec3{}
		st.Input = in
		return st
	}

	if next != prev.Mode {
		st.Mode = next
		st.Payload = nil
		if rule.Enter != nil {
			st = rule.Enter(&ctx, st, in)
		}
	}
	st = rule.Step(&ctx, st, in, dt)

	st.Tick = prev.Tick + 1
	st.Mode = next
	st.Input = in
	if p := s.opts.Precision; p > 0 {
		st.Pos = game.RoundVec64(st.Pos, p)
		st.Vel = game.RoundVec64(st.Vel, p)
		st.Rotation = game.RoundVec64(st.Rotation, p)
	}
	return st
}

// Replay steps from through every input in turn and returns the resulting states, one per input.
func (s *Simulator) Replay(from movement.State, inputs []movement.Input, dt float64) []movement.State {
	out := make([]movement.State, 0, len(inputs))
	st := from
	for _, in := range inputs {
		st = s.Step(st, in, dt)
		out = append(out, st)
	}
	return out
}

// Verify re-steps prev with the input stored in expected and returns a NonDeterminismFault if the result
// differs from expected.
func (s *Simulator) Verify(prev, expected movement.State, dt float64) error {
	actual := s.Step(prev, expected.Input, dt)
	want, got := movement.Checksum(expected), movement.Checksum(actual)
	if want == got {
		return nil
	}
	return &oerror.NonDeterminismFault{
		Tick:     expected.Tick,
		Mode:     expected.Mode.String(),
		Expected: want,
		Actual:   got,
	}
}
