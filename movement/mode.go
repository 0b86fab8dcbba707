package movement

import "fmt"

// Mode is the active locomotion mode of a character. Exactly one mode is active per tick.
type Mode uint16

const (
	ModeGrounded Mode = iota
	ModeFalling
	ModeSwimming
	ModeClimbing
	ModeMantling
)

// customModeBase is the first Mode value available to custom modes.
const customModeBase Mode = 0x100

// Custom returns the Mode for the custom mode ID passed. Custom modes must be registered with a mode set
// before they are used.
func Custom(id uint8) Mode {
	return customModeBase + Mode(id)
}

// IsCustom returns true if the mode was created with Custom.
func (m Mode) IsCustom() bool {
	return m >= customModeBase
}

// CustomID returns the ID the custom mode was created with.
func (m Mode) CustomID() (uint8, bool) {
	if !m.IsCustom() || m-customModeBase > 0xff {
		return 0, false
	}
	return uint8(m - customModeBase), true
}

func (m Mode) String() string {
	switch m {
	case ModeGrounded:
		return "Grounded"
	case ModeFalling:
		return "Falling"
	case ModeSwimming:
		return "Swimming"
	case ModeClimbing:
		return "Climbing"
	case ModeMantling:
		return "Mantling"
	}
	if id, ok := m.CustomID(); ok {
		return fmt.Sprintf("Custom(%d)", id)
	}
	return fmt.Sprintf("Mode(%d)", uint16(m))
}
