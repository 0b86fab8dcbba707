package stats

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/utils"
	"go.uber.org/atomic"
)

// DefaultWindow is the number of divergence samples summarised by default.
const DefaultWindow = 256

// Counters tracks reconciliation activity. Counters is safe for concurrent use, and a nil *Counters
// discards everything recorded to it.
type Counters struct {
	Accepted         atomic.Uint64
	Corrected        atomic.Uint64
	Stale            atomic.Uint64
	Discarded        atomic.Uint64
	Replayed         atomic.Uint64
	DivergentReplays atomic.Uint64
	ModeMismatches   atomic.Uint64
	Faults           atomic.Uint64

	mu     sync.Mutex
	window *utils.CircularQueue[float64]
}

// New returns counters keeping the last window divergence samples.
func New(window int) *Counters {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Counters{window: utils.NewCircularQueue[float64](window, nil)}
}

// ObserveDivergence records a divergence sample. Infinite samples, produced by mode mismatches, are counted
// but kept out of the summary.
func (c *Counters) ObserveDivergence(d float64) {
	if c == nil {
		return
	}
	if math.IsInf(d, 1) {
		c.ModeMismatches.Inc()
		return
	}
	c.mu.Lock()
	_ = c.window.Append(d)
	c.mu.Unlock()
}

// Snapshot is a point-in-time copy of a set of counters.
type Snapshot struct {
	Accepted         uint64
	Corrected        uint64
	Stale            uint64
	Discarded        uint64
	Replayed         uint64
	DivergentReplays uint64
	ModeMismatches   uint64
	Faults           uint64

	Samples          int
	DivergenceMean   float64
	DivergenceMedian float64
	DivergenceStdDev float64
	DivergenceMax    float64
}

// Snapshot returns the current value of every counter along with a summary of the divergence window.
func (c *Counters) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	samples := slices.Collect(c.window.Iter())
	c.mu.Unlock()

	return Snapshot{
		Accepted:         c.Accepted.Load(),
		Corrected:        c.Corrected.Load(),
		Stale:            c.Stale.Load(),
		Discarded:        c.Discarded.Load(),
		Replayed:         c.Replayed.Load(),
		DivergentReplays: c.DivergentReplays.Load(),
		ModeMismatches:   c.ModeMismatches.Load(),
		Faults:           c.Faults.Load(),
		Samples:          len(samples),
		DivergenceMean:   game.Mean(samples),
		DivergenceMedian: game.Median(samples),
		DivergenceStdDev: game.StandardDeviation(samples),
		DivergenceMax:    game.Max(samples),
	}
}

// CorrectionRate returns the fraction of authoritative samples that required a correction.
func (s Snapshot) CorrectionRate() float64 {
	total := s.Accepted + s.Corrected
	if total == 0 {
		return 0
	}
	return float64(s.Corrected) / float64(total)
}

// Add returns the sum of two snapshots. Divergence summaries are taken from whichever snapshot has more
// samples.
func (s Snapshot) Add(o Snapshot) Snapshot {
	out := s
	if o.Samples > s.Samples {
		out = o
	}
	out.Accepted = s.Accepted + o.Accepted
	out.Corrected = s.Corrected + o.Corrected
	out.Stale = s.Stale + o.Stale
	out.Discarded = s.Discarded + o.Discarded
	out.Replayed = s.Replayed + o.Replayed
	out.DivergentReplays = s.DivergentReplays + o.DivergentReplays
	out.ModeMismatches = s.ModeMismatches + o.ModeMismatches
	out.Faults = s.Faults + o.Faults
	return out
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"accepted=%s corrected=%s (%.1f%%) stale=%s replayed=%s divergent=%s mismatches=%s faults=%s divergence[mean=%s median=%s sd=%s max=%s]",
		humanize.Comma(int64(s.Accepted)),
		humanize.Comma(int64(s.Corrected)),
		s.CorrectionRate()*100,
		humanize.Comma(int64(s.Stale)),
		humanize.Comma(int64(s.Replayed)),
		humanize.Comma(int64(s.DivergentReplays)),
		humanize.Comma(int64(s.ModeMismatches)),
		humanize.Comma(int64(s.Faults)),
		humanize.FormatFloat("#,###.####", s.DivergenceMean),
		humanize.FormatFloat("#,###.####", s.DivergenceMedian),
		humanize.FormatFloat("#,###.####", s.DivergenceStdDev),
		humanize.FormatFloat("#,###.####", s.DivergenceMax),
	)
}

// Accept counts an accepted authoritative sample.
func (c *Counters) Accept() {
	if c != nil {
		c.Accepted.Inc()
	}
}

// Correct counts a correction that re-simulated the number of ticks passed.
func (c *Counters) Correct(replayed int) {
	if c != nil {
		c.Corrected.Inc()
		c.Replayed.Add(uint64(replayed))
	}
}

// MarkStale counts an authoritative sample for a tick that was no longer retained.
func (c *Counters) MarkStale() {
	if c != nil {
		c.Stale.Inc()
	}
}

// Discard counts an authoritative sample that arrived after its character was closed.
func (c *Counters) Discard() {
	if c != nil {
		c.Discarded.Inc()
	}
}

// DivergentReplay counts a replayed tick that no longer matches its earlier prediction.
func (c *Counters) DivergentReplay() {
	if c != nil {
		c.DivergentReplays.Inc()
	}
}

// Fault counts a non-determinism fault.
func (c *Counters) Fault() {
	if c != nil {
		c.Faults.Inc()
	}
}
