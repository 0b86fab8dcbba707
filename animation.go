package locomotion

import (
	"github.com/oomph-ac/locomotion/anim"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/simulation"
)

// MantleAnimation is the animation whose warp window moves the root onto a ledge being mantled.
const MantleAnimation = "mantle"

// Evaluator returns a new animation evaluator for the character with the ID passed. Solvers that need a motion
// database are only added if one is configured. Corrections of predictive characters are smoothed by the
// evaluator returned, replacing the smoother of any evaluator created before for the same character.
func (l *Locomotion) Evaluator(id string) (*anim.Evaluator, error) {
	c, ok := l.group.Character(id)
	if !ok {
		return nil, oerror.New("no character with id %s", id)
	}
	conf, err := l.conf.Solvers()
	if err != nil {
		return nil, err
	}
	traj, err := anim.NewTrajectory(conf.Trajectory)
	if err != nil {
		return nil, err
	}

	var solvers []anim.Solver
	if c.Role() == simulation.RolePredictive {
		sm, err := anim.NewCorrectionSmoother(conf.BlendWindow)
		if err != nil {
			return nil, err
		}
		l.smoothMu.Lock()
		l.smoothers[id] = sm
		l.smoothMu.Unlock()
		solvers = append(solvers, sm)
	}

	orientation, err := anim.NewOrientationWarp(conf.Orientation)
	if err != nil {
		return nil, err
	}
	loco, err := anim.NewLocomotion(conf.Locomotion)
	if err != nil {
		return nil, err
	}
	turn, err := anim.NewTurnInPlace(conf.TurnInPlace)
	if err != nil {
		return nil, err
	}
	mantle, err := anim.NewWarpWindow("ledge", MantleAnimation, 0, conf.MantleSeconds)
	if err != nil {
		return nil, err
	}
	solvers = append(solvers, orientation, loco, turn, anim.Windowed(mantle, anim.MantleWarp{}))

	if l.db != nil {
		dm, err := anim.NewDistanceMatching(l.db, conf.DistanceMatching)
		if err != nil {
			return nil, err
		}
		ps, err := anim.NewPoseSearch(l.db, conf.PoseSearch)
		if err != nil {
			return nil, err
		}
		solvers = append(solvers, dm, ps)
	}
	return anim.NewEvaluator(c, traj, solvers...)
}

// smoother returns the correction smoother of the character, shared between the evaluator rendering it and the
// goroutine delivering authoritative states.
func (l *Locomotion) smoother(id string) (*anim.CorrectionSmoother, bool) {
	l.smoothMu.Lock()
	defer l.smoothMu.Unlock()
	sm, ok := l.smoothers[id]
	return sm, ok
}
