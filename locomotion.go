package locomotion

import (
	"context"
	"sync"

	"github.com/oomph-ac/locomotion/anim"
	"github.com/oomph-ac/locomotion/character"
	"github.com/oomph-ac/locomotion/mode"
	"github.com/oomph-ac/locomotion/motiondb"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/reconcile"
	"github.com/oomph-ac/locomotion/settings"
	"github.com/oomph-ac/locomotion/simulation"
	"github.com/oomph-ac/locomotion/stats"
	"github.com/oomph-ac/locomotion/transport"
	"github.com/oomph-ac/locomotion/worker"
	"github.com/oomph-ac/locomotion/world"
	"github.com/sirupsen/logrus"
)

// Config holds everything a Locomotion instance is created with.
type Config struct {
	Settings settings.Settings
	Role     simulation.Role
	// Environment is the static world characters collide with.
	Environment world.Environment
	// Modes is the set of locomotion modes characters may use. If nil, mode.DefaultSet is used.
	Modes *mode.Set
	// MotionDB is searched by the animation solvers. If nil and a path is configured in the settings, the
	// database is loaded from that path.
	MotionDB motiondb.Database
	Log      *logrus.Logger
	// Spawn returns the initial state of a character first seen through the transport. It is only used by
	// authorities. If nil, characters spawn at the origin.
	Spawn func(id string) movement.State
}

// Locomotion runs the characters of one side of a connection. A predictive instance ticks its characters at a
// fixed rate and sends their inputs to the authority, which simulates them and sends back the states it
// computed for reconciliation.
type Locomotion struct {
	conf  settings.Settings
	role  simulation.Role
	log   *logrus.Logger
	sim   *simulation.Simulator
	group *character.Group
	stats *stats.Counters
	db    motiondb.Database
	spawn func(id string) movement.State

	tMutex sync.RWMutex
	t      transport.Transport

	hMutex sync.RWMutex
	h      character.Handler

	smoothMu  sync.Mutex
	smoothers map[string]*anim.CorrectionSmoother
}

// New returns a new Locomotion instance. The settings are validated and a ConfigurationError is returned if they
// are invalid.
func New(conf Config) (*Locomotion, error) {
	if err := conf.Settings.Validate(); err != nil {
		return nil, err
	}
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	if conf.Modes == nil {
		conf.Modes = mode.DefaultSet()
	}
	if conf.Spawn == nil {
		conf.Spawn = func(string) movement.State {
			return movement.State{Mode: movement.ModeGrounded}
		}
	}
	sim, err := simulation.New(conf.Modes, conf.Environment, conf.Settings.Simulation.Params, conf.Settings.SimulationOptions())
	if err != nil {
		return nil, err
	}
	if conf.MotionDB == nil && conf.Settings.MotionDB.Path != "" {
		m, err := motiondb.OpenSQLite(context.Background(), conf.Settings.MotionDB.Path, conf.Settings.Weights())
		if err != nil {
			return nil, err
		}
		conf.Log.Infof("loaded motion database with %d exemplars", m.Len())
		conf.MotionDB = m
	}
	return &Locomotion{
		conf:      conf.Settings,
		role:      conf.Role,
		log:       conf.Log,
		sim:       sim,
		group:     character.NewGroup(worker.NewPool(conf.Settings.Workers)),
		stats:     stats.New(stats.DefaultWindow),
		db:        conf.MotionDB,
		spawn:     conf.Spawn,
		t:         nopTransport{},
		h:         character.NopHandler{},
		smoothers: make(map[string]*anim.CorrectionSmoother),
	}, nil
}

// Role ...
func (l *Locomotion) Role() simulation.Role {
	return l.role
}

// Simulator returns the simulator shared by every character.
func (l *Locomotion) Simulator() *simulation.Simulator {
	return l.sim
}

// Connect sets the transport packets are sent through. Packets received by the transport must be passed to
// OnReceive.
func (l *Locomotion) Connect(t transport.Transport) {
	if t == nil {
		t = nopTransport{}
	}
	l.tMutex.Lock()
	l.t = t
	l.tMutex.Unlock()
}

// Handle sets a handler called for the events of every character, after they were processed.
func (l *Locomotion) Handle(h character.Handler) {
	if h == nil {
		h = character.NopHandler{}
	}
	l.hMutex.Lock()
	l.h = h
	l.hMutex.Unlock()
}

// Spawn adds a character starting at the initial state passed.
func (l *Locomotion) Spawn(id string, initial movement.State) (*character.Character, error) {
	c, err := character.New(character.Config{
		ID:        id,
		Role:      l.role,
		Simulator: l.sim,
		History:   l.conf.Simulation.History,
		Options:   l.conf.ReconcileOptions(),
		Log:       l.log,
		Stats:     l.stats,
	}, initial)
	if err != nil {
		return nil, err
	}
	if err := l.group.Add(c); err != nil {
		return nil, err
	}
	c.Handle(netHandler{l: l})
	l.log.WithField("character", id).Debugf("spawned %s character", l.role)
	return c, nil
}

// Despawn closes and removes the character with the ID passed.
func (l *Locomotion) Despawn(id string) bool {
	c, ok := l.group.Remove(id)
	if !ok {
		return false
	}
	_ = c.Close()
	l.smoothMu.Lock()
	delete(l.smoothers, id)
	l.smoothMu.Unlock()
	return true
}

// Character returns the character with the ID passed.
func (l *Locomotion) Character(id string) (*character.Character, bool) {
	return l.group.Character(id)
}

// Characters returns every character that was spawned and not despawned.
func (l *Locomotion) Characters() []*character.Character {
	return l.group.Characters()
}

// Step ticks every predictive character once with its current input. Authorities are stepped by the inputs they
// receive, so Step does nothing for them.
func (l *Locomotion) Step() {
	if l.role == simulation.RoleAuthority {
		return
	}
	l.group.Step()
}

// Run calls Step at the configured tick rate until the context is cancelled.
func (l *Locomotion) Run(ctx context.Context) error {
	if l.role == simulation.RoleAuthority {
		<-ctx.Done()
		return ctx.Err()
	}
	return l.group.Run(ctx, l.conf.Simulation.TickRate)
}

// Stats returns a snapshot of the reconciliation counters of every character.
func (l *Locomotion) Stats() stats.Snapshot {
	return l.stats.Snapshot()
}

// OnReceive handles a packet received from the other side of the connection. It implements transport.Handler.
func (l *Locomotion) OnReceive(p transport.Packet) {
	log := l.log.WithField("character", p.Character)
	var err error
	switch {
	case p.Kind == transport.KindInput && l.role == simulation.RoleAuthority:
		err = l.handleInput(p)
	case p.Kind == transport.KindState && l.role == simulation.RolePredictive:
		err = l.handleState(p)
	default:
		log.Debugf("ignoring %s packet as %s", p.Kind, l.role)
		return
	}
	if err != nil {
		if oerror.IsKind(err, oerror.KindStaleAuthority) {
			log.Debugf("dropped packet for tick %d: %v", p.Tick, err)
			return
		}
		log.Errorf("error handling %s packet for tick %d: %v", p.Kind, p.Tick, err)
	}
}

// handleInput steps the authoritative character by the input received and sends the resulting state back.
func (l *Locomotion) handleInput(p transport.Packet) error {
	in, err := p.Input()
	if err != nil {
		return err
	}
	c, ok := l.group.Character(p.Character)
	if !ok {
		initial := l.spawn(p.Character)
		if p.Tick > 0 {
			// The first state produced must carry the tick of the input that produced it.
			initial.Tick = p.Tick - 1
		}
		if c, err = l.Spawn(p.Character, initial); err != nil {
			return err
		}
		l.log.WithField("character", p.Character).Info("character joined")
	}
	latest, ok := c.Latest()
	if !ok {
		return oerror.New("character %s is closed", p.Character)
	}
	if p.Tick <= latest.Tick {
		// Only inputs past the latest simulated tick are accepted.
		return &oerror.StaleAuthorityError{Tick: p.Tick, Oldest: latest.Tick + 1, Latest: latest.Tick + 1}
	}
	if c, err = l.fillGap(c, latest, p.Tick); err != nil {
		return err
	}
	s, ok := c.Step(in)
	if !ok {
		return oerror.New("character %s is closed", p.Character)
	}
	state, err := transport.StatePacket(c.ID(), s)
	if err != nil {
		return err
	}
	return l.transport().Deliver(state)
}

// fillGap brings an authoritative character up to the tick before the one passed, so that the next step
// produces exactly that tick. Missed ticks are stepped with the last input received. Gaps longer than the
// history are not stepped: the character is respawned at its latest state, rebased onto the new tick.
func (l *Locomotion) fillGap(c *character.Character, latest movement.State, tick uint64) (*character.Character, error) {
	gap := tick - latest.Tick - 1
	if gap == 0 {
		return c, nil
	}
	log := l.log.WithField("character", c.ID())
	if gap > uint64(l.conf.Simulation.History) {
		log.Debugf("input for tick %d is %d ticks ahead, resynchronising", tick, gap)
		latest.Tick = tick - 1
		l.Despawn(c.ID())
		return l.Spawn(c.ID(), latest)
	}
	log.Debugf("input for tick %d skips %d ticks, stepping them with the last input", tick, gap)
	for range gap {
		if _, ok := c.Step(latest.Input); !ok {
			return nil, oerror.New("character %s is closed", c.ID())
		}
	}
	return c, nil
}

// handleState reconciles the predicted character against the authoritative state received.
func (l *Locomotion) handleState(p transport.Packet) error {
	s, err := p.State()
	if err != nil {
		return err
	}
	c, ok := l.group.Character(p.Character)
	if !ok {
		return oerror.New("state received for unknown character %s", p.Character)
	}
	res, err := c.OnAuthoritativeState(p.Tick, s)
	if err != nil {
		return err
	}
	if res.Outcome == reconcile.OutcomeStale {
		return res.Reason
	}
	return nil
}

// Close closes the transport and every character.
func (l *Locomotion) Close() error {
	for _, c := range l.group.Characters() {
		l.Despawn(c.ID())
	}
	return l.transport().Close()
}

func (l *Locomotion) transport() transport.Transport {
	l.tMutex.RLock()
	defer l.tMutex.RUnlock()
	return l.t
}

func (l *Locomotion) handler() character.Handler {
	l.hMutex.RLock()
	defer l.hMutex.RUnlock()
	return l.h
}

// netHandler sends the inputs of predictive characters to the authority and forwards corrections to the
// animation smoother of the character.
type netHandler struct {
	l *Locomotion
}

func (h netHandler) HandleTick(c *character.Character, s movement.State) {
	if c.Role() == simulation.RolePredictive {
		if err := h.l.transport().Deliver(transport.InputPacket(c.ID(), s.Tick, s.Input)); err != nil {
			h.l.log.WithField("character", c.ID()).Debugf("error sending input for tick %d: %v", s.Tick, err)
		}
	}
	h.l.handler().HandleTick(c, s)
}

func (h netHandler) HandleCorrection(c *character.Character, res reconcile.Result) {
	if sm, ok := h.l.smoother(c.ID()); ok {
		sm.AddCorrection(res)
	}
	h.l.handler().HandleCorrection(c, res)
}

type nopTransport struct{}

func (nopTransport) Deliver(transport.Packet) error { return nil }
func (nopTransport) Close() error                   { return nil }
