package worker

import (
	"sync/atomic"
	"testing"
)

func TestPoolRunsEveryIndex(t *testing.T) {
	for _, size := range []int{1, 4, 0} {
		p := NewPool(size)
		seen := make([]int32, 100)
		p.Run(len(seen), func(i int) {
			atomic.AddInt32(&seen[i], 1)
		})
		for i, n := range seen {
			if n != 1 {
				t.Fatalf("size %d: index %d ran %d times", p.Size(), i, n)
			}
		}
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(3)
	var running, peak int32
	p.Run(50, func(int) {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		atomic.AddInt32(&running, -1)
	})
	if peak > 3 {
		t.Fatalf("expected at most 3 concurrent calls, got %d", peak)
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	p := NewPool(2)
	var done int32
	p.Run(4, func(i int) {
		if i == 1 {
			panic("boom")
		}
		atomic.AddInt32(&done, 1)
	})
	if done != 3 {
		t.Fatalf("expected the other calls to complete, got %d", done)
	}
}
