package mode

import (
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/oerror"
)

// Params holds the physics tunables read by the built-in rules. All speeds are in units per second.
type Params struct {
	Gravity       float64
	TerminalSpeed float64

	WalkSpeed      float64
	SprintSpeed    float64
	CrouchSpeed    float64
	JumpVelocity   float64
	GroundAccel    float64
	BrakingDecel   float64
	AirControl     float64
	AirDrag        float64
	StepHeight     float64

	SwimSpeed     float64
	SwimDrag      float64
	Buoyancy      float64
	SwimImmersion float64

	ClimbSpeed float64
	ClimbReach float64

	MantleHeight   float64
	MantleReach    float64
	MantleDuration uint32

	Width  float64
	Height float64
}

// DefaultParams returns the default physics tunables.
func DefaultParams() Params {
	return Params{
		Gravity:        game.DefaultGravity,
		TerminalSpeed:  game.DefaultTerminalSpeed,
		WalkSpeed:      game.DefaultWalkSpeed,
		SprintSpeed:    game.DefaultSprintSpeed,
		CrouchSpeed:    game.DefaultCrouchSpeed,
		JumpVelocity:   game.DefaultJumpVelocity,
		GroundAccel:    game.DefaultGroundAccel,
		BrakingDecel:   game.DefaultBrakingDecel,
		AirControl:     game.DefaultAirControl,
		AirDrag:        game.DefaultAirDrag,
		StepHeight:     game.StepHeight,
		SwimSpeed:      game.DefaultSwimSpeed,
		SwimDrag:       game.DefaultSwimDrag,
		Buoyancy:       game.DefaultBuoyancy,
		SwimImmersion:  game.DefaultSwimImmersion,
		ClimbSpeed:     game.DefaultClimbSpeed,
		ClimbReach:     game.DefaultClimbReach,
		MantleHeight:   game.DefaultMantleHeight,
		MantleReach:    game.DefaultMantleReach,
		MantleDuration: game.DefaultMantleDuration,
		Width:          game.CharacterWidth,
		Height:         game.CharacterHeight,
	}
}

// Validate returns a ConfigurationError for the first tunable that is out of range.
func (p Params) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"gravity", p.Gravity},
		{"terminal speed", p.TerminalSpeed},
		{"walk speed", p.WalkSpeed},
		{"ground acceleration", p.GroundAccel},
		{"width", p.Width},
		{"height", p.Height},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return oerror.Configuration(f.name, "must be positive, got %v", f.value)
		}
	}
	if p.SwimImmersion <= 0 || p.SwimImmersion > 1 {
		return oerror.Configuration("swim immersion", "must be in (0, 1], got %v", p.SwimImmersion)
	}
	if p.MantleHeight < p.StepHeight {
		return oerror.Configuration("mantle height", "must not be below the step height (%v < %v)", p.MantleHeight, p.StepHeight)
	}
	if p.MantleDuration == 0 {
		return oerror.Configuration("mantle duration", "must be at least one tick")
	}
	return nil
}
