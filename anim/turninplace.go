package anim

import (
	"github.com/chewxy/math32"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/oerror"
)

// TurnInPlaceConfig ...
type TurnInPlaceConfig struct {
	// Threshold is the yaw difference, in degrees, between the root and the look direction that starts a turn.
	Threshold float32
	// RotationRate is the speed of the turn in degrees per second.
	RotationRate float32
	// MaxSpeed is the ground speed above which the character is not considered stationary.
	MaxSpeed float32
	// Turn90Clip and Turn180Clip are played for turns of up to 90 degrees and turns above it respectively.
	Turn90Clip  string
	Turn180Clip string
}

// DefaultTurnInPlaceConfig ...
func DefaultTurnInPlaceConfig() TurnInPlaceConfig {
	return TurnInPlaceConfig{
		Threshold:    60,
		RotationRate: 180,
		MaxSpeed:     0.05,
		Turn90Clip:   "turn_90",
		Turn180Clip:  "turn_180",
	}
}

// Validate ...
func (c TurnInPlaceConfig) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 180 {
		return oerror.Configuration("turn in place threshold", "must be in (0, 180], got %v", c.Threshold)
	}
	if c.RotationRate <= 0 {
		return oerror.Configuration("turn in place rotation rate", "must be positive, got %v", c.RotationRate)
	}
	return nil
}

// TurnState describes a turn in progress.
type TurnState struct {
	Active bool
	// TargetYaw is the yaw the turn ends at.
	TargetYaw float32
	// Scale is the factor the root rotation of the turn clip is scaled by to land on TargetYaw.
	Scale float32
	// TimeRemaining is the time, in seconds, left until TargetYaw is reached.
	TimeRemaining float32
	Clip          string
}

// TurnInPlace turns the root of a stationary character towards its look direction once the two differ by more
// than a threshold.
type TurnInPlace struct {
	conf  TurnInPlaceConfig
	state TurnState
}

// NewTurnInPlace ...
func NewTurnInPlace(conf TurnInPlaceConfig) (*TurnInPlace, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &TurnInPlace{conf: conf}, nil
}

func (*TurnInPlace) ID() SolverID { return SolverTurnInPlace }

// State returns the turn in progress, if any.
func (t *TurnInPlace) State() TurnState {
	return t.state
}

// Solve ...
func (t *TurnInPlace) Solve(frame *FrameContext) (WarpTarget, bool) {
	if !frame.State.OnGround || frame.GroundSpeed() > t.conf.MaxSpeed {
		t.state = TurnState{}
		return WarpTarget{}, false
	}
	desired := game.NormalizeAxis32(float32(frame.State.Yaw()))
	delta := game.WrapYawDelta(frame.Facing, desired)

	if !t.state.Active {
		if math32.Abs(delta) < t.conf.Threshold {
			return WarpTarget{}, false
		}
		t.state = TurnState{Active: true, Scale: TurnYawScale(delta), Clip: t.conf.Turn90Clip}
		if math32.Abs(delta) > 90 {
			t.state.Clip = t.conf.Turn180Clip
		}
	}
	t.state.TargetYaw = desired

	yaw := game.FixedTurn(frame.Facing, desired, t.conf.RotationRate*max(frame.DeltaSeconds, 0))
	remaining := math32.Abs(game.WrapYawDelta(yaw, desired))
	t.state.TimeRemaining = remaining / t.conf.RotationRate
	clip := t.state.Clip
	if remaining <= 1e-3 {
		t.state = TurnState{}
	}
	return WarpTarget{
		Location: frame.Position(),
		Yaw:      yaw,
		Clip:     clip,
		Alpha:    1,
	}, true
}

// TurnYawScale returns the factor a turn clip is scaled by to rotate by yaw degrees. Turns of up to 90 degrees
// scale the 90 degree clip and larger turns the 180 degree clip.
func TurnYawScale(yaw float32) float32 {
	a := math32.Abs(yaw)
	if a <= 90 {
		return a / 90
	}
	return a / 180
}
