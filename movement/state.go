package movement

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/game"
)

// Input is the snapshot of player intent consumed by a single simulation tick.
type Input struct {
	// Move is the (strafe, forward) movement vector, each axis in [-1, 1].
	Move mgl64.Vec2
	// Yaw and Pitch are the look angles in degrees.
	Yaw   float64
	Pitch float64

	Jump   bool
	Crouch bool
	Sprint bool
}

// Moving returns true if the input requests horizontal movement.
func (in Input) Moving() bool {
	return in.Move.LenSqr() > 1e-8
}

// Payload is mode-specific data carried by a State. Implementations must be comparable value types so
// that two states can be compared with ==.
type Payload interface {
	Mode() Mode
}

// State is the simulation-relevant snapshot of a character at a tick.
type State struct {
	Tick uint64

	Pos mgl64.Vec3
	Vel mgl64.Vec3
	// Rotation holds pitch, yaw and roll in degrees.
	Rotation mgl64.Vec3

	Mode     Mode
	OnGround bool
	Payload  Payload

	// Input is the input snapshot that produced this state.
	Input Input
}

// SetPos sets the position of the state.
func (s *State) SetPos(pos mgl64.Vec3) {
	s.Pos = pos
}

// SetVel sets the velocity of the state.
func (s *State) SetVel(vel mgl64.Vec3) {
	s.Vel = vel
}

// SetRotation sets the pitch, yaw and roll of the state.
func (s *State) SetRotation(rot mgl64.Vec3) {
	s.Rotation = rot
}

// Yaw returns the yaw of the state in degrees.
func (s State) Yaw() float64 {
	return s.Rotation.Y()
}

// Orientation returns the rotation of the state as a quaternion.
func (s State) Orientation() mgl64.Quat {
	return game.RotationQuat(s.Rotation)
}

// Equal returns true if both states are identical, payload included.
func (s State) Equal(o State) bool {
	return s == o
}

// PayloadOf returns the payload of the state as T if the state carries one of that type.
func PayloadOf[T Payload](s State) (T, bool) {
	p, ok := s.Payload.(T)
	return p, ok
}

// ClimbPayload is carried while climbing.
type ClimbPayload struct {
	// Normal is the horizontal surface normal of the climbed volume, pointing towards the character.
	Normal mgl64.Vec3
}

func (ClimbPayload) Mode() Mode { return ModeClimbing }

// MantlePayload is carried while mantling over a ledge.
type MantlePayload struct {
	Start    mgl64.Vec3
	Target   mgl64.Vec3
	Elapsed  uint32
	Duration uint32
}

func (MantlePayload) Mode() Mode { return ModeMantling }

// Done returns true once the mantle has run for its full duration.
func (p MantlePayload) Done() bool {
	return p.Elapsed >= p.Duration
}

// SwimPayload is carried while swimming.
type SwimPayload struct {
	// Immersion is the fraction of the character's height below the water surface.
	Immersion float64
}

func (SwimPayload) Mode() Mode { return ModeSwimming }
