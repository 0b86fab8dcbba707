package stats

import (
	"math"
	"strings"
	"sync"
	"testing"
)

func TestCountersSnapshot(t *testing.T) {
	c := New(4)
	c.Accepted.Add(3)
	c.Corrected.Inc()
	for _, d := range []float64{1, 2, 3, 4, 5} {
		c.ObserveDivergence(d)
	}
	c.ObserveDivergence(math.Inf(1))

	s := c.Snapshot()
	if s.Samples != 4 {
		t.Fatalf("expected the window to hold 4 samples, got %d", s.Samples)
	}
	if s.DivergenceMean != 3.5 || s.DivergenceMax != 5 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.ModeMismatches != 1 {
		t.Fatalf("expected one mode mismatch, got %d", s.ModeMismatches)
	}
	if s.CorrectionRate() != 0.25 {
		t.Fatalf("expected a correction rate of 0.25, got %v", s.CorrectionRate())
	}
	if !strings.Contains(s.String(), "accepted=3") {
		t.Fatalf("unexpected rendering %q", s.String())
	}
}

func TestCountersConcurrent(t *testing.T) {
	c := New(16)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				c.Stale.Inc()
				c.ObserveDivergence(0.5)
			}
		}()
	}
	wg.Wait()
	if got := c.Snapshot().Stale; got != 8000 {
		t.Fatalf("expected 8000 stale samples, got %d", got)
	}
}

func TestNilCounters(t *testing.T) {
	var c *Counters
	c.ObserveDivergence(1)
	if s := c.Snapshot(); s.Samples != 0 {
		t.Fatal("expected an empty snapshot from nil counters")
	}
}

func TestSnapshotAdd(t *testing.T) {
	a := Snapshot{Accepted: 2, Samples: 1, DivergenceMean: 1}
	b := Snapshot{Accepted: 3, Corrected: 1, Samples: 5, DivergenceMean: 2}
	sum := a.Add(b)
	if sum.Accepted != 5 || sum.Corrected != 1 || sum.DivergenceMean != 2 {
		t.Fatalf("unexpected sum %+v", sum)
	}
}
