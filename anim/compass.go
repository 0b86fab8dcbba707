package anim

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/oerror"
)

// Compass is the direction of movement relative to the facing of the root, in 45 degree buckets.
type Compass uint8

const (
	CompassBack180 Compass = iota
	CompassLeft135
	CompassLeft90
	CompassLeft45
	CompassFront0
	CompassRight45
	CompassRight90
	CompassRight135
)

func (c Compass) String() string {
	switch c {
	case CompassBack180:
		return "back_180"
	case CompassLeft135:
		return "left_135"
	case CompassLeft90:
		return "left_90"
	case CompassLeft45:
		return "left_45"
	case CompassFront0:
		return "front_0"
	case CompassRight45:
		return "right_45"
	case CompassRight90:
		return "right_90"
	case CompassRight135:
		return "right_135"
	default:
		return "unknown"
	}
}

// Angle returns the angle at the centre of the compass bucket.
func (c Compass) Angle() float32 {
	if c == CompassBack180 {
		return 180
	}
	return float32(c)*45 - 180
}

// Quadrant is the quarter of the circle a movement angle falls into.
type Quadrant uint8

const (
	QuadrantFrontRight Quadrant = iota
	QuadrantBackRight
	QuadrantBackLeft
	QuadrantFrontLeft
)

func (q Quadrant) String() string {
	switch q {
	case QuadrantFrontRight:
		return "front_right"
	case QuadrantBackRight:
		return "back_right"
	case QuadrantBackLeft:
		return "back_left"
	default:
		return "front_left"
	}
}

// QuadrantOf returns the quadrant of an angle in degrees, positive angles turning right.
func QuadrantOf(angle float32) Quadrant {
	angle = game.NormalizeAxis32(angle)
	switch {
	case angle >= 0 && angle <= 90:
		return QuadrantFrontRight
	case angle > 90:
		return QuadrantBackRight
	case angle >= -90:
		return QuadrantFrontLeft
	default:
		return QuadrantBackLeft
	}
}

// CompassMode is the number of directions a locomotion set is authored for.
type CompassMode uint8

const (
	// CompassNonStrafing always faces the movement direction.
	CompassNonStrafing CompassMode = iota
	CompassStrafing4Way
	CompassStrafing8Way
)

func (m CompassMode) String() string {
	switch m {
	case CompassNonStrafing:
		return "non_strafing"
	case CompassStrafing4Way:
		return "4way"
	case CompassStrafing8Way:
		return "8way"
	default:
		return "unknown"
	}
}

// ParseCompassMode parses the name returned by CompassMode.String.
func ParseCompassMode(s string) (CompassMode, error) {
	for _, m := range []CompassMode{CompassNonStrafing, CompassStrafing4Way, CompassStrafing8Way} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, oerror.Configuration("compass mode", "unknown mode %q", s)
}

type compassRange struct {
	c        Compass
	min, max float32
}

// Back is handled separately for both tables since its range wraps around.
var (
	eightWay = []compassRange{
		{CompassLeft135, -157.5, -112.5},
		{CompassLeft90, -112.5, -67.5},
		{CompassLeft45, -67.5, -22.5},
		{CompassFront0, -22.5, 22.5},
		{CompassRight45, 22.5, 67.5},
		{CompassRight90, 67.5, 112.5},
		{CompassRight135, 112.5, 157.5},
	}
	fourWay = []compassRange{
		{CompassLeft90, -125, -50},
		{CompassFront0, -50, 50},
		{CompassRight90, 50, 125},
	}
)

const (
	eightWayBack   = 157.5
	fourWayBack    = 125
	eightWayBuffer = 10
	fourWayBuffer  = 5
)

// CompassFor returns the compass bucket of an angle in degrees. The current bucket is kept while the angle stays
// within buffer degrees of it so that the selected direction does not flicker at bucket edges.
func CompassFor(mode CompassMode, current Compass, angle float32, useCurrent bool) Compass {
	angle = game.NormalizeAxis32(angle)
	table, back, buffer := eightWay, float32(eightWayBack), float32(eightWayBuffer)
	switch mode {
	case CompassNonStrafing:
		return CompassFront0
	case CompassStrafing4Way:
		table, back, buffer = fourWay, fourWayBack, fourWayBuffer
	}

	if useCurrent {
		if current == CompassBack180 {
			if math32.Abs(angle) >= back-buffer {
				return current
			}
		} else {
			for _, r := range table {
				if r.c == current && angle >= r.min-buffer && angle <= r.max+buffer {
					return current
				}
			}
		}
	}
	if math32.Abs(angle) >= back {
		return CompassBack180
	}
	for _, r := range table {
		if angle >= r.min && angle < r.max {
			return r.c
		}
	}
	return CompassBack180
}

// OrientationAngle returns the yaw offset the root is rotated by so that a clip authored for the compass
// direction passed plays along the actual movement angle.
func OrientationAngle(angle float32, c Compass) float32 {
	return game.WrapYawDelta(c.Angle(), angle)
}

// StrideWarpRatio returns the play rate that matches the stride of a clip authored at animSpeed to the ground
// speed of the character. It returns 1 if the clip does not move.
func StrideWarpRatio(groundSpeed, animSpeed float32) float32 {
	if animSpeed <= mgl32.Epsilon {
		return 1
	}
	return groundSpeed / animSpeed
}

// LocomotionConfig ...
type LocomotionConfig struct {
	Mode CompassMode
	// MinSpeed is the ground speed below which the compass is not updated.
	MinSpeed float32
	// MinPlayRate and MaxPlayRate clamp the stride warp ratio.
	MinPlayRate float32
	MaxPlayRate float32
}

// DefaultLocomotionConfig ...
func DefaultLocomotionConfig() LocomotionConfig {
	return LocomotionConfig{Mode: CompassStrafing8Way, MinSpeed: 0.1, MinPlayRate: 0.5, MaxPlayRate: 2}
}

// Validate ...
func (c LocomotionConfig) Validate() error {
	if c.Mode > CompassStrafing8Way {
		return oerror.Configuration("locomotion compass mode", "unknown mode %d", c.Mode)
	}
	if c.MinPlayRate <= 0 || c.MaxPlayRate < c.MinPlayRate {
		return oerror.Configuration("locomotion play rate", "range [%v, %v] is invalid", c.MinPlayRate, c.MaxPlayRate)
	}
	return nil
}

// Locomotion selects the directional clip of a locomotion set and warps its stride to the ground speed.
type Locomotion struct {
	conf     LocomotionConfig
	compass  Compass
	quadrant Quadrant
	has      bool
}

// NewLocomotion ...
func NewLocomotion(conf LocomotionConfig) (*Locomotion, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &Locomotion{conf: conf, compass: CompassFront0}, nil
}

func (*Locomotion) ID() SolverID { return SolverStrideWarp }

// Compass returns the direction last selected.
func (l *Locomotion) Compass() Compass {
	return l.compass
}

// Quadrant returns the quadrant of the movement angle last seen.
func (l *Locomotion) Quadrant() Quadrant {
	return l.quadrant
}

// Solve ...
func (l *Locomotion) Solve(frame *FrameContext) (WarpTarget, bool) {
	speed := frame.GroundSpeed()
	if speed < l.conf.MinSpeed || !frame.State.OnGround {
		l.has = false
		return WarpTarget{}, false
	}
	vel := frame.Velocity()
	angle := game.WrapYawDelta(game.YawFromDirection32(vel), frame.Facing)
	if l.conf.Mode == CompassNonStrafing {
		angle = 0
	}
	l.compass = CompassFor(l.conf.Mode, l.compass, angle, l.has)
	l.quadrant = QuadrantOf(angle)
	l.has = true

	rate := StrideWarpRatio(speed, frame.AnimationSpeed)
	return WarpTarget{
		Location: frame.Position(),
		Yaw:      game.NormalizeAxis32(frame.Facing - OrientationAngle(angle, l.compass)),
		PlayRate: mgl32.Clamp(rate, l.conf.MinPlayRate, l.conf.MaxPlayRate),
		Alpha:    1,
	}, true
}
