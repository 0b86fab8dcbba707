package anim

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/oerror"
)

// RotationMethod is the way OrientationWarp rotates the root towards its target.
type RotationMethod uint8

const (
	// RotationSlerp spherically interpolates towards the target without a rate limit.
	RotationSlerp RotationMethod = iota
	// RotationClampedSlerp spherically interpolates towards the target, limiting each frame to the maximum
	// turn rate.
	RotationClampedSlerp
	// RotationConstantRate rotates at the maximum turn rate until the target is reached.
	RotationConstantRate
)

func (m RotationMethod) String() string {
	switch m {
	case RotationSlerp:
		return "slerp"
	case RotationClampedSlerp:
		return "clamped_slerp"
	case RotationConstantRate:
		return "constant_rate"
	default:
		return "unknown"
	}
}

// ParseRotationMethod parses the name returned by RotationMethod.String.
func ParseRotationMethod(s string) (RotationMethod, error) {
	for _, m := range []RotationMethod{RotationSlerp, RotationClampedSlerp, RotationConstantRate} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, oerror.Configuration("rotation method", "unknown method %q", s)
}

// OrientationWarpConfig ...
type OrientationWarpConfig struct {
	// BlendFrames is the number of frames over which the root is blended towards the movement direction.
	BlendFrames int
	// MaxTurnRate is the maximum rotation of the root in degrees per second.
	MaxTurnRate float32
	Method      RotationMethod
	// MinSpeed is the ground speed below which the movement direction is taken from input instead of velocity.
	MinSpeed float32
}

// DefaultOrientationWarpConfig ...
func DefaultOrientationWarpConfig() OrientationWarpConfig {
	return OrientationWarpConfig{
		BlendFrames: 6,
		MaxTurnRate: 540,
		Method:      RotationClampedSlerp,
		MinSpeed:    0.1,
	}
}

// Validate ...
func (c OrientationWarpConfig) Validate() error {
	if c.BlendFrames < 1 {
		return oerror.Configuration("orientation warp blend frames", "must be at least 1, got %d", c.BlendFrames)
	}
	if c.MaxTurnRate <= 0 && c.Method != RotationSlerp {
		return oerror.Configuration("orientation warp max turn rate", "must be positive, got %v", c.MaxTurnRate)
	}
	if c.Method > RotationConstantRate {
		return oerror.Configuration("orientation warp method", "unknown method %d", c.Method)
	}
	return nil
}

// OrientationWarp rotates the root towards the direction the character is moving in.
type OrientationWarp struct {
	conf OrientationWarpConfig
}

// NewOrientationWarp ...
func NewOrientationWarp(conf OrientationWarpConfig) (*OrientationWarp, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &OrientationWarp{conf: conf}, nil
}

func (*OrientationWarp) ID() SolverID { return SolverOrientationWarp }

// Solve ...
func (o *OrientationWarp) Solve(frame *FrameContext) (WarpTarget, bool) {
	target, ok := o.movementYaw(frame)
	if !ok {
		return WarpTarget{}, false
	}
	yaw := o.Rotate(frame.Facing, target, frame.DeltaSeconds)
	return WarpTarget{
		Location: frame.Position(),
		Yaw:      yaw,
		Alpha:    1 / float32(o.conf.BlendFrames),
	}, true
}

// Rotate returns the yaw reached after rotating from current towards target for dt seconds.
func (o *OrientationWarp) Rotate(current, target, dt float32) float32 {
	alpha := 1 / float32(o.conf.BlendFrames)
	maxDelta := o.conf.MaxTurnRate * dt

	switch o.conf.Method {
	case RotationSlerp:
		return SlerpYaw(current, target, alpha)
	case RotationClampedSlerp:
		return game.FixedTurn(current, SlerpYaw(current, target, alpha), maxDelta)
	default:
		return game.FixedTurn(current, target, maxDelta)
	}
}

func (o *OrientationWarp) movementYaw(frame *FrameContext) (float32, bool) {
	vel := frame.Velocity()
	vel[1] = 0
	if vel.Len() >= o.conf.MinSpeed && vel.Len() > mgl32.Epsilon {
		return game.YawFromDirection32(vel), true
	}
	in := frame.State.Input
	if !in.Moving() {
		return 0, false
	}
	dir := game.Vec64To32(game.RotateXZ(in.Move, in.Yaw))
	if dir.LenSqr() <= mgl32.Epsilon {
		return 0, false
	}
	return game.YawFromDirection32(dir), true
}

// SlerpYaw spherically interpolates between two yaws, always taking the shortest path.
func SlerpYaw(from, to, alpha float32) float32 {
	q0, q1 := yawQuat(from), yawQuat(to)
	if q0.Dot(q1) < 0 {
		q1 = q1.Scale(-1)
	}
	return quatYaw(mgl32.QuatSlerp(q0, q1, mgl32.Clamp(alpha, 0, 1)))
}

// yawQuat returns the rotation about the vertical axis for the yaw passed. Positive yaws turn from +Z towards -X,
// so the rotation angle is negated.
func yawQuat(yaw float32) mgl32.Quat {
	return mgl32.QuatRotate(mgl32.DegToRad(-yaw), mgl32.Vec3{0, 1, 0})
}

func quatYaw(q mgl32.Quat) float32 {
	forward := q.Rotate(mgl32.Vec3{0, 0, 1})
	if math32.Abs(forward.X()) <= mgl32.Epsilon && math32.Abs(forward.Z()) <= mgl32.Epsilon {
		return 0
	}
	return game.YawFromDirection32(forward)
}
