package reconcile

import (
	"math"
	"sync"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/getsentry/sentry-go"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/assert"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/simulation"
	"github.com/oomph-ac/locomotion/stats"
	"github.com/oomph-ac/locomotion/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Outcome is the result of reconciling a single authoritative sample.
type Outcome uint8

const (
	// OutcomeAccepted means the prediction was within tolerance and nothing changed.
	OutcomeAccepted Outcome = iota
	// OutcomeCorrected means the history was snapped to the authoritative state and replayed.
	OutcomeCorrected
	// OutcomeStale means the predicted state for the tick is no longer, or was never, retained.
	OutcomeStale
	// OutcomeDiscarded means the engine was closed.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeCorrected:
		return "corrected"
	case OutcomeStale:
		return "stale"
	default:
		return "discarded"
	}
}

// Record pairs the prediction made for a tick with the state the authority reported for it.
type Record struct {
	Tick          uint64
	Predicted     movement.State
	Authoritative movement.State
	Divergence    float64
}

// Result is returned by Engine.OnAuthoritativeState.
type Result struct {
	Outcome Outcome
	Record  Record
	// Reason holds the StaleAuthorityError for stale samples.
	Reason error

	// Latest is the newest state in the history once the sample has been handled.
	Latest movement.State
	// Replayed is the number of ticks re-simulated after a correction.
	Replayed int
	// Residual is the previous latest position minus the corrected latest position, and ResidualYaw the
	// matching yaw difference in degrees. Both are zero unless the outcome is OutcomeCorrected.
	Residual    mgl64.Vec3
	ResidualYaw float64
}

// Options configures an Engine.
type Options struct {
	// Tolerance is the largest divergence accepted without correction.
	Tolerance float64
	// OrientationWeight converts angular distance in degrees into divergence units.
	OrientationWeight float64
	// TickDuration is the fixed delta time of a tick in seconds.
	TickDuration float64
	// VerifyDeterminism re-steps accepted ticks and compares their checksums.
	VerifyDeterminism bool
	// StaleLogInterval limits how often stale samples are logged.
	StaleLogInterval time.Duration
}

// DefaultOptions returns the default reconciliation options.
func DefaultOptions() Options {
	return Options{
		Tolerance:         0.1,
		OrientationWeight: 0.01,
		TickDuration:      1.0 / game.DefaultTickRate,
		StaleLogInterval:  time.Second,
	}
}

// Validate ...
func (o Options) Validate() error {
	if o.Tolerance < 0 || math.IsNaN(o.Tolerance) || math.IsInf(o.Tolerance, 0) {
		return oerror.Configuration("tolerance", "must be a finite non-negative number, got %v", o.Tolerance)
	}
	if o.OrientationWeight < 0 || math.IsNaN(o.OrientationWeight) || math.IsInf(o.OrientationWeight, 0) {
		return oerror.Configuration("orientation weight", "must be a finite non-negative number, got %v", o.OrientationWeight)
	}
	if o.TickDuration <= 0 {
		return oerror.Configuration("tick duration", "must be positive, got %v", o.TickDuration)
	}
	return nil
}

// Engine owns the predicted history of a single character and reconciles it against authoritative
// states. All methods are safe for concurrent use: history mutation is serialised by the engine.
type Engine struct {
	mu      sync.Mutex
	sim     *simulation.Simulator
	history *movement.History
	opts    Options
	closed  bool

	log     *logrus.Entry
	stats   *stats.Counters
	limiter *rate.Limiter
	publish func(movement.State)
}

// Config holds the collaborators of an Engine.
type Config struct {
	Simulator *simulation.Simulator
	Capacity  int
	Options   Options
	// Log receives debug and fault output. A nil Log discards it.
	Log *logrus.Entry
	// Stats receives counters. It may be nil.
	Stats *stats.Counters
	// Publish is called with the latest state after every prediction and correction.
	Publish func(movement.State)
}

// New returns an engine whose history starts at the initial state passed.
func New(conf Config, initial movement.State) (*Engine, error) {
	if conf.Simulator == nil {
		return nil, oerror.Configuration("simulator", "a simulator is required")
	}
	if err := conf.Options.Validate(); err != nil {
		return nil, err
	}
	if err := conf.Simulator.Modes().Require(initial.Mode); err != nil {
		return nil, err
	}
	history, err := movement.NewHistory(conf.Capacity)
	if err != nil {
		return nil, err
	}
	if conf.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		conf.Log = logrus.NewEntry(l)
	}

	limit := rate.Inf
	if conf.Options.StaleLogInterval > 0 {
		limit = rate.Every(conf.Options.StaleLogInterval)
	}
	e := &Engine{
		sim:     conf.Simulator,
		history: history,
		opts:    conf.Options,
		log:     conf.Log,
		stats:   conf.Stats,
		limiter: rate.NewLimiter(limit, 1),
		publish: conf.Publish,
	}
	if err := history.Record(initial.Tick, initial); err != nil {
		return nil, err
	}
	e.doPublish(initial)
	return e, nil
}

// Predict steps the latest state with the input passed, records the result and returns it.
func (e *Engine) Predict(in movement.Input) (movement.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return movement.State{}, false
	}

	latest, ok := e.history.Latest()
	assert.IsTrue(ok, "reconcile: history of an open engine is empty")
	next := e.sim.Step(latest, in, e.opts.TickDuration)
	if err := e.history.Record(next.Tick, next); err != nil {
		// Unreachable: the next tick is always newer than the latest.
		e.log.Errorf("unable to record tick %d: %v", next.Tick, err)
	}
	e.doPublish(next)
	return next, true
}

// Latest returns the newest state in the history.
func (e *Engine) Latest() (movement.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return movement.State{}, false
	}
	return e.history.Latest()
}

// Lookup returns the predicted state recorded for the tick passed.
func (e *Engine) Lookup(tick uint64) (movement.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return movement.State{}, false
	}
	return e.history.Lookup(tick)
}

// OnAuthoritativeState reconciles the authoritative state for the tick passed against the prediction made
// for it. Samples for ticks that are not retained are skipped. If the divergence exceeds the tolerance, the
// history is snapped to auth at tick and every later tick is replayed with its recorded input.
func (e *Engine) OnAuthoritativeState(tick uint64, auth movement.State) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		e.stats.Discard()
		return Result{Outcome: OutcomeDiscarded}, nil
	}
	if _, ok := e.sim.Modes().Lookup(auth.Mode); !ok {
		return Result{Outcome: OutcomeDiscarded}, oerror.Configuration("modes", "authority reported unregistered mode %s", auth.Mode)
	}
	auth.Tick = tick

	predicted, ok := e.history.Lookup(tick)
	if !ok {
		return e.stale(tick), nil
	}

	rec := Record{Tick: tick, Predicted: predicted, Authoritative: auth, Divergence: e.Divergence(predicted, auth)}
	e.stats.ObserveDivergence(rec.Divergence)
	latest, _ := e.history.Latest()

	if rec.Divergence <= e.opts.Tolerance {
		e.stats.Accept()
		if e.opts.VerifyDeterminism {
			e.verify(tick, predicted)
		}
		return Result{Outcome: OutcomeAccepted, Record: rec, Latest: latest}, nil
	}
	return e.correct(rec, latest), nil
}

// Divergence returns the distance between a predicted and an authoritative state. States in different modes
// are infinitely divergent.
func (e *Engine) Divergence(predicted, auth movement.State) float64 {
	if predicted.Mode != auth.Mode {
		return math.Inf(1)
	}
	d := predicted.Pos.Sub(auth.Pos).Len()
	if w := e.opts.OrientationWeight; w > 0 {
		d += w * game.AngularDistance(predicted.Orientation(), auth.Orientation())
	}
	return d
}

// Close discards the history. A correction in progress completes before the history is discarded, and
// every later call reports OutcomeDiscarded.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.history.Clear()
}

// Closed returns true once Close has been called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) correct(rec Record, previous movement.State) Result {
	tick := rec.Tick
	if err := e.history.Record(tick, rec.Authoritative); err != nil {
		// Unreachable: the tick was just found in the history.
		return e.stale(tick)
	}

	latestTick, _ := e.history.LatestTick()
	st, in := rec.Authoritative, rec.Authoritative.Input
	replayed := 0
	for t := tick + 1; t <= latestTick; t++ {
		old, ok := e.history.Lookup(t)
		if ok {
			in = old.Input
		}
		st = e.sim.Step(st, in, e.opts.TickDuration)
		if ok && !st.Equal(old) {
			e.divergentReplay(&oerror.DivergentReplayWarning{Tick: t, Distance: st.Pos.Sub(old.Pos).Len()})
		}
		if err := e.history.Record(t, st); err != nil {
			// Unreachable: every replayed tick lies between the corrected tick and the latest.
			e.log.Errorf("unable to record replayed tick %d: %v", t, err)
		}
		replayed++
	}

	e.stats.Correct(replayed)
	e.doPublish(st)

	res := Result{
		Outcome:     OutcomeCorrected,
		Record:      rec,
		Latest:      st,
		Replayed:    replayed,
		Residual:    previous.Pos.Sub(st.Pos),
		ResidualYaw: game.NormalizeAxis(previous.Yaw() - st.Yaw()),
	}

	if e.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		data := orderedmap.NewOrderedMap[string, any]()
		data.Set("tick", tick)
		data.Set("divergence", game.Round64(rec.Divergence, 4))
		data.Set("predicted", rec.Predicted.Mode)
		data.Set("authority", rec.Authoritative.Mode)
		data.Set("replayed", replayed)
		data.Set("residual", game.Round64(res.Residual.Len(), 4))
		e.log.Debugf("corrected prediction %s", utils.OrderedMapToString(data))
	}
	return res
}

func (e *Engine) stale(tick uint64) Result {
	e.stats.MarkStale()
	oldest, _ := e.history.Oldest()
	latest, _ := e.history.LatestTick()
	err := &oerror.StaleAuthorityError{Tick: tick, Oldest: oldest, Latest: latest}
	if e.limiter.Allow() {
		e.log.Debugf("skipping authoritative state: %v", err)
	}
	st, _ := e.history.Latest()
	return Result{Outcome: OutcomeStale, Reason: err, Latest: st}
}

func (e *Engine) verify(tick uint64, predicted movement.State) {
	if tick == 0 {
		return
	}
	prev, ok := e.history.Lookup(tick - 1)
	if !ok {
		return
	}
	err := e.sim.Verify(prev, predicted, e.opts.TickDuration)
	if err == nil {
		return
	}
	e.stats.Fault()
	e.log.Errorf("%v", err)
	if assert.Fault(err) != nil {
		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("mode", predicted.Mode.String())
		})
		hub.CaptureException(err)
	}
}

func (e *Engine) divergentReplay(w *oerror.DivergentReplayWarning) {
	e.stats.DivergentReplay()
	e.log.Debugf("%v", w)
}

func (e *Engine) doPublish(s movement.State) {
	if e.publish != nil {
		e.publish(s)
	}
}
