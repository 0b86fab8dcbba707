package anim

import (
	"slices"

	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
)

// StateSource provides the latest committed movement state without blocking.
type StateSource interface {
	Latest() (movement.State, bool)
}

// Evaluator runs a fixed list of solvers every animation frame. An Evaluator belongs to a single character and
// must only be used by the goroutine rendering it.
type Evaluator struct {
	source  StateSource
	solvers []Solver

	trajectory *Trajectory
	features   []float32
	lastTick   uint64
	recorded   bool
	clock      float32
}

// NewEvaluator returns an evaluator running the solvers passed in order. The trajectory may be nil, in which
// case trajectory features must be supplied by the host.
func NewEvaluator(source StateSource, trajectory *Trajectory, solvers ...Solver) (*Evaluator, error) {
	if source == nil {
		return nil, oerror.Configuration("state source", "a state source is required")
	}
	for i, s := range solvers {
		if s == nil {
			return nil, oerror.Configuration("solvers", "solver %d is nil", i)
		}
		if slices.ContainsFunc(solvers[:i], func(o Solver) bool { return o.ID() == s.ID() }) {
			return nil, oerror.Configuration("solvers", "%s is registered more than once", s.ID())
		}
	}
	return &Evaluator{
		source:     source,
		solvers:    slices.Clone(solvers),
		trajectory: trajectory,
		features:   DefaultFeatureTimes(),
	}, nil
}

// SetFeatureTimes sets the times, in seconds relative to now, at which trajectory features are sampled.
func (e *Evaluator) SetFeatureTimes(times ...float32) {
	e.features = slices.Clone(times)
}

// Solvers returns the solvers of the evaluator in evaluation order.
func (e *Evaluator) Solvers() []Solver {
	return slices.Clone(e.solvers)
}

// GetWarpTargets evaluates every solver against the latest committed state and returns the targets produced,
// in solver order. It returns nil if no state has been committed.
func (e *Evaluator) GetWarpTargets(frame FrameContext) []WarpTarget {
	s, ok := e.source.Latest()
	if !ok {
		return nil
	}
	frame.State = s
	e.clock += frame.DeltaSeconds

	if e.trajectory != nil {
		if !e.recorded || s.Tick != e.lastTick {
			e.trajectory.Record(SampleOf(s, e.clock))
			e.lastTick, e.recorded = s.Tick, true
		}
		if len(frame.Trajectory) == 0 {
			frame.Trajectory = e.trajectory.Features(frame.Facing, e.features...)
		}
	}

	targets := make([]WarpTarget, 0, len(e.solvers))
	for _, solver := range e.solvers {
		t, ok := solver.Solve(&frame)
		if !ok {
			continue
		}
		t.Source = solver.ID()
		t.Alpha = clamp01(t.Alpha)
		targets = append(targets, t)
	}
	return targets
}

func clamp01(v float32) float32 {
	return max(0, min(v, 1))
}
