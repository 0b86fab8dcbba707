package anim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/motiondb"
	"github.com/oomph-ac/locomotion/movement"
)

// SolverID identifies the solver that produced a warp target.
type SolverID uint8

const (
	SolverOrientationWarp SolverID = iota + 1
	SolverDistanceMatching
	SolverPoseSearch
	SolverCorrection
	SolverTurnInPlace
	SolverStrideWarp
	SolverMantleWarp
)

func (id SolverID) String() string {
	switch id {
	case SolverOrientationWarp:
		return "orientation_warp"
	case SolverDistanceMatching:
		return "distance_matching"
	case SolverPoseSearch:
		return "pose_search"
	case SolverCorrection:
		return "correction"
	case SolverTurnInPlace:
		return "turn_in_place"
	case SolverStrideWarp:
		return "stride_warp"
	case SolverMantleWarp:
		return "mantle_warp"
	default:
		return "unknown"
	}
}

// WarpTarget is a correction applied to animation playback for a single frame. Warp targets are produced and
// consumed within one call to Evaluator.GetWarpTargets.
type WarpTarget struct {
	Source SolverID
	// Location is the world position the root should be moved towards.
	Location mgl32.Vec3
	// Yaw is the yaw, in degrees, the root should face.
	Yaw float32
	// Clip is the clip the target refers to. It is empty for targets that apply to the current animation.
	Clip string
	// PlaybackOffset is added to the playback time of Clip, or of the current animation if Clip is empty.
	PlaybackOffset float32
	// PlayRate scales the playback speed. Zero means the play rate is left unchanged.
	PlayRate float32
	// Alpha is the weight of the target in the range [0, 1].
	Alpha float32
}

// FrameContext is the data the animation host passes for every frame evaluated.
type FrameContext struct {
	// State is the latest committed movement state. It is set by the Evaluator.
	State movement.State

	Pose motiondb.Pose
	// Trajectory holds trajectory features of the character. If left empty, the Evaluator fills it from the
	// trajectory it tracks.
	Trajectory motiondb.Trajectory

	DeltaSeconds float32
	// Facing is the yaw, in degrees, of the rendered root.
	Facing float32

	Animation            string
	PlaybackTime         float32
	PreviousPlaybackTime float32
	PlayRate             float32
	// AnimationSpeed is the speed the current animation was authored at, used for stride warping.
	AnimationSpeed float32
}

// Position returns the position of the latest state in render precision.
func (f *FrameContext) Position() mgl32.Vec3 {
	return game.Vec64To32(f.State.Pos)
}

// Velocity returns the velocity of the latest state in render precision.
func (f *FrameContext) Velocity() mgl32.Vec3 {
	return game.Vec64To32(f.State.Vel)
}

// GroundSpeed returns the horizontal speed of the latest state.
func (f *FrameContext) GroundSpeed() float32 {
	v := f.Velocity()
	v[1] = 0
	return v.Len()
}

// Solver adjusts animation playback once per frame.
type Solver interface {
	ID() SolverID
	// Solve returns the warp target for the frame, or false if the solver has nothing to contribute.
	Solve(frame *FrameContext) (WarpTarget, bool)
}
