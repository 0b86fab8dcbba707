package game

const (
	// DefaultTickRate is the number of fixed simulation ticks per second.
	DefaultTickRate = 30
	// DefaultHistorySize is the number of ticks of predicted history kept per character.
	DefaultHistorySize = 128

	DefaultGravity        = 9.8
	DefaultTerminalSpeed  = 40.0
	DefaultWalkSpeed      = 4.5
	DefaultSprintSpeed    = 7.0
	DefaultCrouchSpeed    = 2.0
	DefaultJumpVelocity   = 5.2
	DefaultGroundAccel    = 30.0
	DefaultGroundFriction = 8.0
	DefaultBrakingDecel   = 12.0
	DefaultAirControl     = 0.35
	DefaultAirDrag        = 0.02

	DefaultSwimSpeed     = 3.0
	DefaultSwimDrag      = 2.5
	DefaultBuoyancy      = 11.0
	DefaultSwimImmersion = 0.6

	DefaultClimbSpeed     = 2.2
	DefaultClimbReach     = 0.45
	DefaultMantleHeight   = 1.6
	DefaultMantleReach    = 0.6
	DefaultMantleDuration = 12

	StepHeight = 0.5

	// CharacterWidth and CharacterHeight describe the collision box of a standing character.
	CharacterWidth  = 0.6
	CharacterHeight = 1.8
)
