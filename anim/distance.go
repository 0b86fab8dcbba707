package anim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/motiondb"
	"github.com/oomph-ac/locomotion/oerror"
)

// DistanceMatchingConfig ...
type DistanceMatchingConfig struct {
	// Clip is the stop clip whose distance curve is matched against.
	Clip string
	// Deceleration is the braking deceleration, in units per second squared, used to predict the stop point.
	Deceleration float32
	// MinSpeed is the ground speed below which the character is considered stopped.
	MinSpeed float32
}

// DefaultDistanceMatchingConfig ...
func DefaultDistanceMatchingConfig() DistanceMatchingConfig {
	return DistanceMatchingConfig{Clip: "stop", Deceleration: 12, MinSpeed: 0.05}
}

// Validate ...
func (c DistanceMatchingConfig) Validate() error {
	if c.Clip == "" {
		return oerror.Configuration("distance matching clip", "must not be empty")
	}
	if c.Deceleration <= 0 {
		return oerror.Configuration("distance matching deceleration", "must be positive, got %v", c.Deceleration)
	}
	return nil
}

// DistanceMatching keeps a stop animation in sync with the distance left until the character comes to rest, so
// that the feet do not slide when braking distances differ from the authored clip.
type DistanceMatching struct {
	conf DistanceMatchingConfig
	db   motiondb.Database
}

// NewDistanceMatching returns a solver matching against the clip configured, which must exist in db.
func NewDistanceMatching(db motiondb.Database, conf DistanceMatchingConfig) (*DistanceMatching, error) {
	if db == nil {
		return nil, oerror.Configuration("distance matching database", "a motion database is required")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if _, ok := db.Clip(conf.Clip); !ok {
		return nil, oerror.Configuration("distance matching clip", "clip %q is not in the motion database", conf.Clip)
	}
	return &DistanceMatching{conf: conf, db: db}, nil
}

func (*DistanceMatching) ID() SolverID { return SolverDistanceMatching }

// Solve emits a target only while the character is braking without movement input.
func (d *DistanceMatching) Solve(frame *FrameContext) (WarpTarget, bool) {
	if frame.State.Input.Moving() || !frame.State.OnGround {
		return WarpTarget{}, false
	}
	vel := frame.Velocity()
	vel[1] = 0
	if vel.Len() < d.conf.MinSpeed {
		return WarpTarget{}, false
	}
	offset, ok := PredictStop(vel, d.conf.Deceleration)
	if !ok {
		return WarpTarget{}, false
	}
	clip, ok := d.db.Clip(d.conf.Clip)
	if !ok {
		return WarpTarget{}, false
	}
	t := MatchRemainingDistance(clip, offset.Len())
	return WarpTarget{
		Location:       frame.Position().Add(offset),
		Yaw:            frame.Facing,
		Clip:           clip.Name,
		PlaybackOffset: t - frame.PlaybackTime,
		Alpha:          1,
	}, true
}

// MatchRemainingDistance returns the playback time of the clip at which the distance left until the end of the
// clip equals remaining.
func MatchRemainingDistance(clip motiondb.Clip, remaining float32) float32 {
	return clip.TimeAtRemainingDistance(mgl32.Clamp(remaining, 0, clip.TotalDistance()))
}
