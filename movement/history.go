package movement

import (
	"iter"

	"github.com/oomph-ac/locomotion/oerror"
)

type historySlot struct {
	state State
	valid bool
}

// History is a bounded ring of predicted states indexed by tick modulo capacity. Lookups are O(1) and
// never return a state that has been evicted. History is not safe for concurrent use.
type History struct {
	slots  []historySlot
	latest uint64
	first  uint64
	empty  bool
}

// NewHistory returns a history retaining the last capacity ticks.
func NewHistory(capacity int) (*History, error) {
	if capacity <= 0 {
		return nil, oerror.Configuration("history capacity", "must be positive, got %d", capacity)
	}
	return &History{slots: make([]historySlot, capacity), empty: true}, nil
}

// Capacity returns the maximum number of ticks retained.
func (h *History) Capacity() int {
	return len(h.slots)
}

// Record stores the state for the tick passed. Recording a tick newer than the latest one advances the
// window, evicting ticks that fall out of it. Recording a tick that is still retained overwrites it.
// A tick older than the retained window yields a StaleAuthorityError.
func (h *History) Record(tick uint64, state State) error {
	state.Tick = tick
	if h.empty {
		h.empty = false
		h.first, h.latest = tick, tick
	} else if tick > h.latest {
		h.latest = tick
	} else if oldest, _ := h.Oldest(); tick < oldest {
		return &oerror.StaleAuthorityError{Tick: tick, Oldest: oldest, Latest: h.latest}
	}
	h.slots[h.index(tick)] = historySlot{state: state, valid: true}
	return nil
}

// Lookup returns the state recorded at the tick passed. It returns false if the tick was never recorded or
// has been evicted.
func (h *History) Lookup(tick uint64) (State, bool) {
	if !h.retains(tick) {
		return State{}, false
	}
	slot := h.slots[h.index(tick)]
	if !slot.valid || slot.state.Tick != tick {
		return State{}, false
	}
	return slot.state, true
}

// Latest returns the most recently recorded tick and its state.
func (h *History) Latest() (State, bool) {
	if h.empty {
		return State{}, false
	}
	return h.Lookup(h.latest)
}

// LatestTick returns the newest tick in the window.
func (h *History) LatestTick() (uint64, bool) {
	return h.latest, !h.empty
}

// Oldest returns the oldest tick still inside the retained window. The tick itself may not have been
// recorded if the window contains gaps.
func (h *History) Oldest() (uint64, bool) {
	if h.empty {
		return 0, false
	}
	capacity := uint64(len(h.slots))
	if h.latest-h.first < capacity {
		return h.first, true
	}
	return h.latest - capacity + 1, true
}

// Len returns the number of states currently retained.
func (h *History) Len() (n int) {
	for range h.Since(0) {
		n++
	}
	return n
}

// Ticks yields every retained tick from oldest to newest.
func (h *History) Ticks() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for s := range h.Since(0) {
			if !yield(s.Tick) {
				return
			}
		}
	}
}

// Since yields the retained states with a tick of at least from, oldest first.
func (h *History) Since(from uint64) iter.Seq[State] {
	return func(yield func(State) bool) {
		oldest, ok := h.Oldest()
		if !ok {
			return
		}
		for tick := max(from, oldest); tick <= h.latest; tick++ {
			if s, ok := h.Lookup(tick); ok && !yield(s) {
				return
			}
		}
	}
}

// Clear discards every retained state.
func (h *History) Clear() {
	clear(h.slots)
	h.latest, h.first, h.empty = 0, 0, true
}

func (h *History) retains(tick uint64) bool {
	oldest, ok := h.Oldest()
	return ok && tick >= oldest && tick <= h.latest
}

func (h *History) index(tick uint64) int {
	return int(tick % uint64(len(h.slots)))
}
