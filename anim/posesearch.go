package anim

import (
	"github.com/oomph-ac/locomotion/motiondb"
	"github.com/oomph-ac/locomotion/oerror"
)

// PoseSearchConfig ...
type PoseSearchConfig struct {
	// MaxCost is the highest search cost accepted. Zero accepts every match.
	MaxCost float32
}

// DefaultPoseSearchConfig ...
func DefaultPoseSearchConfig() PoseSearchConfig {
	return PoseSearchConfig{}
}

// PoseSearch selects the animation frame from a motion database that best continues the current pose along the
// desired trajectory.
type PoseSearch struct {
	conf PoseSearchConfig
	db   motiondb.Database

	last motiondb.Match
	has  bool
}

// NewPoseSearch ...
func NewPoseSearch(db motiondb.Database, conf PoseSearchConfig) (*PoseSearch, error) {
	if db == nil {
		return nil, oerror.Configuration("pose search database", "a motion database is required")
	}
	if conf.MaxCost < 0 {
		return nil, oerror.Configuration("pose search max cost", "must not be negative, got %v", conf.MaxCost)
	}
	return &PoseSearch{conf: conf, db: db}, nil
}

func (*PoseSearch) ID() SolverID { return SolverPoseSearch }

// Last returns the match last selected.
func (p *PoseSearch) Last() (motiondb.Match, bool) {
	return p.last, p.has
}

// Solve ...
func (p *PoseSearch) Solve(frame *FrameContext) (WarpTarget, bool) {
	if len(frame.Pose) == 0 {
		return WarpTarget{}, false
	}
	match, ok := p.db.FindNearest(frame.Pose, frame.Trajectory)
	if !ok || (p.conf.MaxCost > 0 && match.Cost > p.conf.MaxCost) {
		return WarpTarget{}, false
	}
	p.last, p.has = match, true

	// Offsets into another clip are absolute since that clip is not playing yet.
	offset := match.Time
	if match.Clip == frame.Animation {
		offset -= frame.PlaybackTime
	}
	return WarpTarget{
		Location:       frame.Position(),
		Yaw:            frame.Facing,
		Clip:           match.Clip,
		PlaybackOffset: offset,
		Alpha:          1 / (1 + match.Cost),
	}, true
}
