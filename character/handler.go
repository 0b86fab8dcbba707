package character

import (
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/reconcile"
)

// Handler receives the events of a character. Handlers are called from the goroutine that ticks the character
// or delivers authoritative states, and must not call back into the character's Tick or OnAuthoritativeState.
type Handler interface {
	// HandleTick is called after every tick with the state it produced.
	HandleTick(c *Character, s movement.State)
	// HandleCorrection is called after the history was snapped to an authoritative state and replayed.
	HandleCorrection(c *Character, res reconcile.Result)
}

// NopHandler implements Handler and does nothing.
type NopHandler struct{}

// HandleTick ...
func (NopHandler) HandleTick(*Character, movement.State) {}

// HandleCorrection ...
func (NopHandler) HandleCorrection(*Character, reconcile.Result) {}
