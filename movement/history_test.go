package movement

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/oerror"
)

func stateAt(tick uint64) State {
	return State{Tick: tick, Pos: mgl64.Vec3{float64(tick), 0, 0}}
}

func TestHistoryRejectsInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -4} {
		if _, err := NewHistory(capacity); !oerror.IsKind(err, oerror.KindConfiguration) {
			t.Fatalf("capacity %d: expected configuration error, got %v", capacity, err)
		}
	}
}

func TestHistoryBoundedAndEvicts(t *testing.T) {
	h, err := NewHistory(8)
	if err != nil {
		t.Fatal(err)
	}
	for tick := uint64(1); tick <= 50; tick++ {
		if err := h.Record(tick, stateAt(tick)); err != nil {
			t.Fatalf("record %d: %v", tick, err)
		}
		if h.Len() > h.Capacity() {
			t.Fatalf("history grew past capacity: %d > %d", h.Len(), h.Capacity())
		}
	}
	for tick := uint64(1); tick <= 42; tick++ {
		if _, ok := h.Lookup(tick); ok {
			t.Fatalf("expected tick %d to be evicted", tick)
		}
	}
	for tick := uint64(43); tick <= 50; tick++ {
		s, ok := h.Lookup(tick)
		if !ok || s.Pos.X() != float64(tick) {
			t.Fatalf("expected tick %d to be retained, got %v (ok=%v)", tick, s, ok)
		}
	}
	if _, ok := h.Lookup(51); ok {
		t.Fatal("expected unrecorded tick to be absent")
	}
}

func TestHistoryOverwriteDoesNotDuplicate(t *testing.T) {
	h, _ := NewHistory(4)
	for tick := uint64(10); tick < 14; tick++ {
		_ = h.Record(tick, stateAt(tick))
	}
	replacement := stateAt(12)
	replacement.Pos[1] = 5
	if err := h.Record(12, replacement); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 4 {
		t.Fatalf("expected 4 retained states, got %d", h.Len())
	}
	if s, _ := h.Lookup(12); s.Pos.Y() != 5 {
		t.Fatalf("expected overwrite, got %v", s.Pos)
	}

	var prev uint64
	for s := range h.Since(0) {
		if s.Tick <= prev {
			t.Fatalf("ticks are not strictly increasing: %d after %d", s.Tick, prev)
		}
		prev = s.Tick
	}
}

func TestHistoryRecordOlderThanWindow(t *testing.T) {
	h, _ := NewHistory(4)
	for tick := uint64(10); tick < 20; tick++ {
		_ = h.Record(tick, stateAt(tick))
	}
	err := h.Record(3, stateAt(3))
	if !oerror.IsKind(err, oerror.KindStaleAuthority) {
		t.Fatalf("expected stale authority error, got %v", err)
	}
}

func TestHistoryGapsAreAbsent(t *testing.T) {
	h, _ := NewHistory(4)
	_ = h.Record(1, stateAt(1))
	_ = h.Record(3, stateAt(3))
	if _, ok := h.Lookup(2); ok {
		t.Fatal("expected gap tick to be absent")
	}
	// Slot 5 % 4 == 1 still holds tick 1, which is now outside of the window.
	_ = h.Record(5, stateAt(5))
	if _, ok := h.Lookup(1); ok {
		t.Fatal("expected tick 1 to be evicted")
	}
	if oldest, _ := h.Oldest(); oldest != 2 {
		t.Fatalf("expected oldest tick 2, got %d", oldest)
	}
	h.Clear()
	if _, ok := h.Latest(); ok {
		t.Fatal("expected empty history after clear")
	}
}
