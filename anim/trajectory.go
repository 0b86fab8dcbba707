package anim

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/motiondb"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/utils"
)

// maxPredictionStep is the longest step, in seconds, used when integrating a future trajectory.
const maxPredictionStep = 1.0 / 33

// timeEpsilon absorbs rounding when looking up samples by time.
const timeEpsilon = 1e-4

// DefaultFeatureTimes returns the times, relative to now, at which trajectory features are sampled by default.
func DefaultFeatureTimes() []float32 {
	return []float32{-0.2, 0.2, 0.4, 0.8}
}

// Sample is a recorded movement sample.
type Sample struct {
	// Time is the time of the sample in seconds.
	Time     float32
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Yaw      float32
	// Braking is true if the character had no movement input.
	Braking bool
}

// SampleOf returns the sample of a movement state recorded at time t.
func SampleOf(s movement.State, t float32) Sample {
	return Sample{
		Time:     t,
		Position: game.Vec64To32(s.Pos),
		Velocity: game.Vec64To32(s.Vel),
		Yaw:      game.NormalizeAxis32(float32(s.Yaw())),
		Braking:  !s.Input.Moving(),
	}
}

// TrajectoryConfig ...
type TrajectoryConfig struct {
	// History is the number of samples kept.
	History int
	// Deceleration is the braking deceleration in units per second squared.
	Deceleration float32
	// MaxSpeed limits the speed reached in predictions. Zero disables the limit.
	MaxSpeed float32
	// PivotAngle is the angle, in degrees, between acceleration and velocity above which a pivot is predicted.
	// It is clamped to [90, 179].
	PivotAngle float32
}

// DefaultTrajectoryConfig ...
func DefaultTrajectoryConfig() TrajectoryConfig {
	return TrajectoryConfig{History: 32, Deceleration: 12, MaxSpeed: 5.6, PivotAngle: 120}
}

// Validate ...
func (c TrajectoryConfig) Validate() error {
	if c.History < 2 {
		return oerror.Configuration("trajectory history", "must hold at least 2 samples, got %d", c.History)
	}
	if c.Deceleration <= 0 {
		return oerror.Configuration("trajectory deceleration", "must be positive, got %v", c.Deceleration)
	}
	return nil
}

// Trajectory tracks the recent movement of a character and predicts where it is going.
type Trajectory struct {
	conf    TrajectoryConfig
	samples *utils.CircularQueue[Sample]
}

// NewTrajectory ...
func NewTrajectory(conf TrajectoryConfig) (*Trajectory, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	conf.PivotAngle = mgl32.Clamp(conf.PivotAngle, 90, 179)
	return &Trajectory{conf: conf, samples: utils.NewCircularQueue[Sample](conf.History, nil)}, nil
}

// Record adds a sample. Samples older than the latest recorded are ignored.
func (t *Trajectory) Record(s Sample) {
	if latest, ok := t.samples.Latest(); ok && s.Time < latest.Time {
		return
	}
	_ = t.samples.Append(s)
}

// Len returns the number of samples held.
func (t *Trajectory) Len() int {
	return t.samples.Len()
}

// Latest returns the most recent sample.
func (t *Trajectory) Latest() (Sample, bool) {
	return t.samples.Latest()
}

// Samples returns the samples held from oldest to newest.
func (t *Trajectory) Samples() []Sample {
	out := make([]Sample, 0, t.samples.Len())
	for s := range t.samples.Iter() {
		out = append(out, s)
	}
	return out
}

// Clear ...
func (t *Trajectory) Clear() {
	t.samples.Clear()
}

// Acceleration returns the horizontal acceleration between the two latest samples.
func (t *Trajectory) Acceleration() mgl32.Vec3 {
	if t.samples.Len() < 2 {
		return mgl32.Vec3{}
	}
	prev, _ := t.samples.Get(t.samples.Len() - 2)
	cur, _ := t.samples.Get(t.samples.Len() - 1)
	span := cur.Time - prev.Time
	if span <= mgl32.Epsilon {
		return mgl32.Vec3{}
	}
	a := cur.Velocity.Sub(prev.Velocity).Mul(1 / span)
	a[1] = 0
	return a
}

// PredictAt returns the sample the character is predicted to reach after the seconds passed, integrating the
// current acceleration, or braking if the character has no movement input.
func (t *Trajectory) PredictAt(seconds float32) (Sample, bool) {
	s, ok := t.samples.Latest()
	if !ok {
		return Sample{}, false
	}
	if seconds <= 0 {
		return s, true
	}
	accel := t.Acceleration()
	vel := s.Velocity
	vel[1] = 0

	steps := int(math32.Ceil(seconds / maxPredictionStep))
	dt := seconds / float32(steps)
	for range steps {
		if s.Braking {
			speed := vel.Len()
			if speed <= mgl32.Epsilon {
				break
			}
			vel = vel.Mul(max(speed-t.conf.Deceleration*dt, 0) / speed)
		} else {
			vel = vel.Add(accel.Mul(dt))
			if speed := vel.Len(); t.conf.MaxSpeed > 0 && speed > t.conf.MaxSpeed {
				vel = vel.Mul(t.conf.MaxSpeed / speed)
			}
		}
		s.Position = s.Position.Add(vel.Mul(dt))
		if vel.Len() > mgl32.Epsilon {
			s.Yaw = game.YawFromDirection32(vel)
		}
	}
	s.Time += seconds
	s.Velocity = vel
	return s, true
}

// At returns the sample at the time passed relative to the latest sample. Negative times look up the history
// and positive times are predicted.
func (t *Trajectory) At(rel float32) (Sample, bool) {
	if rel > 0 {
		return t.PredictAt(rel)
	}
	latest, ok := t.samples.Latest()
	if !ok {
		return Sample{}, false
	}
	want := latest.Time + rel + timeEpsilon
	for _, s := range t.samples.Backward() {
		if s.Time <= want {
			return s, true
		}
	}
	oldest, _ := t.samples.Get(0)
	return oldest, true
}

// Features returns trajectory features relative to the latest position and the facing passed, sampled at the
// times passed.
func (t *Trajectory) Features(facing float32, times ...float32) motiondb.Trajectory {
	latest, ok := t.samples.Latest()
	if !ok {
		return nil
	}
	inv := yawQuat(facing).Inverse()
	out := make(motiondb.Trajectory, 0, len(times))
	for _, rel := range times {
		s, _ := t.At(rel)
		out = append(out, motiondb.TrajectoryPoint{
			Offset: inv.Rotate(s.Position.Sub(latest.Position)),
			Facing: game.WrapYawDelta(facing, s.Yaw),
		})
	}
	return out
}

// Stop returns the offset from the latest position at which a braking character comes to rest.
func (t *Trajectory) Stop() (mgl32.Vec3, bool) {
	s, ok := t.samples.Latest()
	if !ok || !s.Braking {
		return mgl32.Vec3{}, false
	}
	vel := s.Velocity
	vel[1] = 0
	return PredictStop(vel, t.conf.Deceleration)
}

// Pivot returns the offset from the latest position at which the character changes direction.
func (t *Trajectory) Pivot() (mgl32.Vec3, bool) {
	s, ok := t.samples.Latest()
	if !ok || s.Braking {
		return mgl32.Vec3{}, false
	}
	vel := s.Velocity
	vel[1] = 0
	return PredictPivot(t.Acceleration(), vel, t.conf.PivotAngle)
}

// PredictStop returns the offset at which a body moving at vel comes to rest under a constant deceleration.
func PredictStop(vel mgl32.Vec3, deceleration float32) (mgl32.Vec3, bool) {
	speedSqr := vel.LenSqr()
	if speedSqr <= mgl32.Epsilon || deceleration <= 0 {
		return mgl32.Vec3{}, false
	}
	return vel.Normalize().Mul(speedSqr / (2 * deceleration)), true
}

// PredictPivot returns the offset at which a body moving at vel under the acceleration accel stops moving along
// the acceleration and turns around. A pivot is only predicted if the angle between the two exceeds angle
// degrees.
func PredictPivot(accel, vel mgl32.Vec3, angle float32) (mgl32.Vec3, bool) {
	accelLen := accel.Len()
	if accelLen <= mgl32.Epsilon || vel.LenSqr() <= mgl32.Epsilon {
		return mgl32.Vec3{}, false
	}
	dir := accel.Mul(1 / accelLen)
	along := vel.Dot(dir)
	if along >= 0 {
		return mgl32.Vec3{}, false
	}
	cos := mgl32.Clamp(along/vel.Len(), -1, 1)
	if mgl32.RadToDeg(math32.Acos(cos)) < mgl32.Clamp(angle, 90, 179) {
		return mgl32.Vec3{}, false
	}
	t := -along / accelLen
	return vel.Mul(t).Add(accel.Mul(0.5 * t * t)), true
}
