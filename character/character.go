package character

import (
	"sync"

	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/reconcile"
	"github.com/oomph-ac/locomotion/simulation"
	"github.com/oomph-ac/locomotion/stats"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Config holds the settings a character is created with.
type Config struct {
	ID        string
	Role      simulation.Role
	Simulator *simulation.Simulator
	// History is the number of ticks retained for reconciliation.
	History int
	Options reconcile.Options

	Log   *logrus.Logger
	Stats *stats.Counters
}

// Character is a single simulated character. It is ticked by one goroutine at a time, while authoritative
// states may be delivered from another. The latest state is published through an atomic cell so that render
// code never waits on the simulation.
type Character struct {
	id   string
	role simulation.Role
	log  *logrus.Entry

	engine *reconcile.Engine
	latest atomic.Pointer[movement.State]

	inputMu sync.Mutex
	input   movement.Input

	hMutex sync.RWMutex
	h      Handler

	closed atomic.Bool
}

// New creates a character starting at the initial state passed.
func New(conf Config, initial movement.State) (*Character, error) {
	if conf.ID == "" {
		return nil, oerror.Configuration("character id", "must not be empty")
	}
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	c := &Character{
		id:   conf.ID,
		role: conf.Role,
		log:  conf.Log.WithField("character", conf.ID),
		h:    NopHandler{},
	}
	engine, err := reconcile.New(reconcile.Config{
		Simulator: conf.Simulator,
		Capacity:  conf.History,
		Options:   conf.Options,
		Log:       c.log,
		Stats:     conf.Stats,
		Publish:   c.publish,
	}, initial)
	if err != nil {
		return nil, err
	}
	c.engine = engine
	return c, nil
}

// ID returns the identifier of the character.
func (c *Character) ID() string {
	return c.id
}

// Role returns whether the character is simulated authoritatively or predicted.
func (c *Character) Role() simulation.Role {
	return c.role
}

// Handle sets the handler of the character.
func (c *Character) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	c.hMutex.Lock()
	c.h = h
	c.hMutex.Unlock()
}

// SetInput sets the input used by the next call to Tick.
func (c *Character) SetInput(in movement.Input) {
	c.inputMu.Lock()
	c.input = in
	c.inputMu.Unlock()
}

// Input returns the input that will be used by the next call to Tick.
func (c *Character) Input() movement.Input {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	return c.input
}

// Tick advances the character by one tick using the input last set with SetInput.
func (c *Character) Tick() (movement.State, bool) {
	return c.Step(c.Input())
}

// Step advances the character by one tick using the input passed.
func (c *Character) Step(in movement.Input) (movement.State, bool) {
	if c.closed.Load() {
		return movement.State{}, false
	}
	s, ok := c.engine.Predict(in)
	if !ok {
		return movement.State{}, false
	}
	c.handler().HandleTick(c, s)
	return s, true
}

// Latest returns the latest committed state of the character without blocking.
func (c *Character) Latest() (movement.State, bool) {
	s := c.latest.Load()
	if s == nil {
		return movement.State{}, false
	}
	return *s, true
}

// Lookup returns the state recorded for the tick passed.
func (c *Character) Lookup(tick uint64) (movement.State, bool) {
	return c.engine.Lookup(tick)
}

// OnAuthoritativeState reconciles the character against the state the authority computed for the tick
// passed. Authoritative characters are never reconciled.
func (c *Character) OnAuthoritativeState(tick uint64, s movement.State) (reconcile.Result, error) {
	if c.role == simulation.RoleAuthority {
		return reconcile.Result{Outcome: reconcile.OutcomeDiscarded}, oerror.New("character %s is authoritative and cannot be reconciled", c.id)
	}
	res, err := c.engine.OnAuthoritativeState(tick, s)
	if err != nil {
		return res, err
	}
	if res.Outcome == reconcile.OutcomeCorrected {
		c.handler().HandleCorrection(c, res)
	}
	return res, nil
}

// Close discards the history of the character. Any reconciliation in progress finishes first.
func (c *Character) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.engine.Close()
	c.latest.Store(nil)
	return nil
}

// Closed ...
func (c *Character) Closed() bool {
	return c.closed.Load()
}

// publish is called by the engine, with its lock held, whenever the latest state changes.
func (c *Character) publish(s movement.State) {
	if c.closed.Load() {
		return
	}
	c.latest.Store(&s)
}

func (c *Character) handler() Handler {
	c.hMutex.RLock()
	defer c.hMutex.RUnlock()
	return c.h
}
