package character

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/mode"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/reconcile"
	"github.com/oomph-ac/locomotion/simulation"
	"github.com/oomph-ac/locomotion/worker"
	"github.com/oomph-ac/locomotion/world"
	"github.com/sirupsen/logrus"
)

type recordingHandler struct {
	mu          sync.Mutex
	ticks       int
	corrections []reconcile.Result
}

func (h *recordingHandler) HandleTick(*Character, movement.State) {
	h.mu.Lock()
	h.ticks++
	h.mu.Unlock()
}

func (h *recordingHandler) HandleCorrection(_ *Character, res reconcile.Result) {
	h.mu.Lock()
	h.corrections = append(h.corrections, res)
	h.mu.Unlock()
}

func testSimulator(t *testing.T) *simulation.Simulator {
	t.Helper()
	sim, err := simulation.New(mode.DefaultSet(), world.NewStatic().Floor(0, 500), mode.DefaultParams(), simulation.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func testCharacter(t *testing.T, id string, role simulation.Role) *Character {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	c, err := New(Config{
		ID:        id,
		Role:      role,
		Simulator: testSimulator(t),
		History:   64,
		Options:   reconcile.DefaultOptions(),
		Log:       log,
	}, movement.State{Mode: movement.ModeGrounded, OnGround: true})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewRequiresID(t *testing.T) {
	if _, err := New(Config{Simulator: testSimulator(t), History: 8, Options: reconcile.DefaultOptions()}, movement.State{}); !oerror.IsKind(err, oerror.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTickPublishesLatest(t *testing.T) {
	c := testCharacter(t, "a", simulation.RolePredictive)
	h := &recordingHandler{}
	c.Handle(h)

	if s, ok := c.Latest(); !ok || s.Tick != 0 {
		t.Fatalf("expected the initial state to be published, got %+v", s)
	}
	c.SetInput(movement.Input{Move: mgl64.Vec2{0, 1}})
	for range 10 {
		c.Tick()
	}
	latest, ok := c.Latest()
	if !ok || latest.Tick != 10 || latest.Pos.Z() <= 0 {
		t.Fatalf("expected to have walked forward for 10 ticks, got %+v", latest)
	}
	if h.ticks != 10 {
		t.Fatalf("expected 10 tick events, got %d", h.ticks)
	}
}

func TestCorrectionNotifiesHandler(t *testing.T) {
	c := testCharacter(t, "a", simulation.RolePredictive)
	h := &recordingHandler{}
	c.Handle(h)
	for range 20 {
		c.Step(movement.Input{})
	}
	auth, _ := c.Lookup(10)
	auth.Pos[0] += 3
	res, err := c.OnAuthoritativeState(10, auth)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != reconcile.OutcomeCorrected || len(h.corrections) != 1 {
		t.Fatalf("expected one correction, got %s (%d)", res.Outcome, len(h.corrections))
	}
	latest, _ := c.Latest()
	if !latest.Equal(res.Latest) {
		t.Fatal("expected the corrected state to be published")
	}
}

func TestAuthorityIsNotReconciled(t *testing.T) {
	c := testCharacter(t, "server", simulation.RoleAuthority)
	c.Step(movement.Input{})
	if _, err := c.OnAuthoritativeState(1, movement.State{Mode: movement.ModeGrounded}); err == nil {
		t.Fatal("expected authoritative characters to refuse reconciliation")
	}
}

func TestCloseDiscardsState(t *testing.T) {
	c := testCharacter(t, "a", simulation.RolePredictive)
	c.Step(movement.Input{})
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Latest(); ok {
		t.Fatal("expected no latest state after close")
	}
	if _, ok := c.Step(movement.Input{}); ok {
		t.Fatal("expected stepping a closed character to fail")
	}
	res, err := c.OnAuthoritativeState(1, movement.State{Mode: movement.ModeGrounded})
	if err != nil || res.Outcome != reconcile.OutcomeDiscarded {
		t.Fatalf("expected discarded outcome, got %s (%v)", res.Outcome, err)
	}
}

func TestGroupStepsInParallel(t *testing.T) {
	g := NewGroup(worker.NewPool(4))
	for i := range 16 {
		c := testCharacter(t, fmt.Sprint(i), simulation.RolePredictive)
		c.SetInput(movement.Input{Move: mgl64.Vec2{0, 1}, Yaw: float64(i * 20)})
		if err := g.Add(c); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Add(testCharacter(t, "3", simulation.RolePredictive)); !oerror.IsKind(err, oerror.KindConfiguration) {
		t.Fatalf("expected duplicate ids to be rejected, got %v", err)
	}
	for range 30 {
		g.Step()
	}

	// Every character must match a sequential simulation of the same inputs.
	sim := testSimulator(t)
	for _, c := range g.Characters() {
		s := movement.State{Mode: movement.ModeGrounded, OnGround: true}
		for range 30 {
			s = sim.Step(s, c.Input(), reconcile.DefaultOptions().TickDuration)
		}
		latest, _ := c.Latest()
		if !latest.Equal(s) {
			t.Fatalf("character %s diverged from a sequential simulation", c.ID())
		}
	}
}

func TestGroupRunPrunesClosed(t *testing.T) {
	g := NewGroup(nil)
	a, b := testCharacter(t, "a", simulation.RolePredictive), testCharacter(t, "b", simulation.RolePredictive)
	_ = g.Add(a)
	_ = g.Add(b)
	_ = b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := g.Run(ctx, 100); err != context.DeadlineExceeded {
		t.Fatalf("expected the deadline to stop the loop, got %v", err)
	}
	if g.Len() != 1 {
		t.Fatalf("expected the closed character to be removed, got %d characters", g.Len())
	}
	if s, _ := a.Latest(); s.Tick == 0 {
		t.Fatal("expected the open character to have been ticked")
	}
	if err := g.Run(context.Background(), 0); !oerror.IsKind(err, oerror.KindConfiguration) {
		t.Fatalf("expected configuration error for a zero tick rate, got %v", err)
	}
}
