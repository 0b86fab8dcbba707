package utils

import (
	"testing"

	"github.com/elliotchance/orderedmap/v2"
)

func TestCircularQueueOverwritesOldest(t *testing.T) {
	q := NewCircularQueue[int](3, nil)
	for i := 1; i <= 5; i++ {
		if err := q.Append(i); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if q.Len() != 3 || q.Cap() != 3 {
		t.Fatalf("expected len=3 cap=3, got len=%d cap=%d", q.Len(), q.Cap())
	}
	var got []int
	for v := range q.Iter() {
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Fatalf("expected [3 4 5], got %v", got)
	}
	if latest, ok := q.Latest(); !ok || latest != 5 {
		t.Fatalf("expected latest 5, got %d (ok=%v)", latest, ok)
	}
	if _, err := q.Get(3); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestCircularQueueBackwardAndPop(t *testing.T) {
	q := NewCircularQueue[int](4, nil)
	for i := range 4 {
		_ = q.Append(i)
	}
	var order []int
	for _, v := range q.Backward() {
		order = append(order, v)
	}
	if order[0] != 3 || order[3] != 0 {
		t.Fatalf("expected newest first, got %v", order)
	}
	if v, ok := q.Pop(); !ok || v != 0 {
		t.Fatalf("expected pop 0, got %d", v)
	}
	q.Clear()
	if _, ok := q.Latest(); ok {
		t.Fatal("expected empty queue after clear")
	}
}

func TestCircularQueueZeroCapacity(t *testing.T) {
	q := NewCircularQueue[int](0, nil)
	if err := q.Append(1); err == nil {
		t.Fatal("expected error appending to a zero-capacity queue")
	}
}

func TestOrderedMapToString(t *testing.T) {
	m := orderedmap.NewOrderedMap[string, any]()
	m.Set("tick", 100)
	m.Set("divergence", 0.5)
	if got := OrderedMapToString(m); got != "[tick=100 divergence=0.5]" {
		t.Fatalf("unexpected %q", got)
	}
	if got := KeyValsToString([]any{"a", 1, "b"}); got != "[a=1]" {
		t.Fatalf("unexpected %q", got)
	}
}
