package mode

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/world"
)

func always(*Context, movement.State, movement.Input) bool { return true }

func identity(_ *Context, s movement.State, _ movement.Input, _ float64) movement.State { return s }

func TestNewSetValidation(t *testing.T) {
	cases := map[string][]Rule{
		"empty":     nil,
		"duplicate": {{Mode: movement.ModeGrounded, Eligible: always, Step: identity}, {Mode: movement.ModeGrounded, Eligible: always, Step: identity}},
		"nil step":  {{Mode: movement.ModeGrounded, Eligible: always}},
		"from":      {{Mode: movement.ModeGrounded, Eligible: always, Step: identity, From: []movement.Mode{movement.Custom(4)}}},
	}
	for name, rules := range cases {
		if _, err := NewSet(rules...); !oerror.IsKind(err, oerror.KindConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", name, err)
		}
	}
}

func TestRequireUnregisteredMode(t *testing.T) {
	set := DefaultSet()
	if err := set.Require(movement.ModeClimbing, movement.ModeMantling); err != nil {
		t.Fatalf("expected builtin modes to be registered: %v", err)
	}
	if err := set.Require(movement.Custom(1)); !oerror.IsKind(err, oerror.KindConfiguration) {
		t.Fatalf("expected configuration error for unregistered custom mode, got %v", err)
	}
}

func TestEvaluateTransitionPriorityAndTies(t *testing.T) {
	glide, dash := movement.Custom(1), movement.Custom(2)
	set := MustNewSet(
		Rule{Mode: movement.ModeFalling, Priority: 0, Eligible: always, Step: identity},
		Rule{Mode: glide, Priority: 50, Eligible: always, Step: identity},
		Rule{Mode: dash, Priority: 50, Eligible: always, Step: identity},
	)
	if got := set.Modes(); got[0] != glide || got[1] != dash || got[2] != movement.ModeFalling {
		t.Fatalf("unexpected evaluation order %v", got)
	}
	for range 100 {
		m, ok := set.EvaluateTransition(&Context{}, movement.State{}, movement.Input{})
		if !ok || m != glide {
			t.Fatalf("expected the first registered of two equal priorities, got %s", m)
		}
	}
}

func TestEvaluateTransitionRetainsWhenNoneEligible(t *testing.T) {
	never := func(*Context, movement.State, movement.Input) bool { return false }
	set := MustNewSet(Rule{Mode: movement.ModeGrounded, Eligible: never, Step: identity})
	m, ok := set.EvaluateTransition(&Context{}, movement.State{Mode: movement.ModeSwimming}, movement.Input{})
	if ok || m != movement.ModeSwimming {
		t.Fatalf("expected current mode to be retained, got %s (ok=%v)", m, ok)
	}
}

func TestFromRestrictsEntry(t *testing.T) {
	set := DefaultSet()
	env := world.NewStatic().Add(world.VolumeClimbable, cube.Box(0.5, 0, -1, 0.7, 4, 1))
	ctx := &Context{World: env, Params: DefaultParams()}
	in := movement.Input{Move: mgl64.Vec2{0, 1}, Yaw: -90}

	s := movement.State{Mode: movement.ModeFalling}
	if m, _ := set.EvaluateTransition(ctx, s, in); m != movement.ModeClimbing {
		t.Fatalf("expected to start climbing from falling, got %s", m)
	}
	s.Mode = movement.ModeMantling
	s.Payload = movement.MantlePayload{Duration: 4, Elapsed: 4}
	if m, _ := set.EvaluateTransition(ctx, s, in); m == movement.ModeClimbing {
		t.Fatal("climbing must not be entered directly from a mantle")
	}
}

func TestMantleHandsControlBack(t *testing.T) {
	env := world.NewStatic().Floor(0, 20).Add(world.VolumeSolid, cube.Box(0.4, 0, -2, 3, 1.2, 2))
	ctx := &Context{World: env, Params: DefaultParams()}
	set := DefaultSet()
	in := movement.Input{Move: mgl64.Vec2{0, 1}, Yaw: -90, Jump: true}

	s := movement.State{Mode: movement.ModeGrounded, OnGround: true}
	m, _ := set.EvaluateTransition(ctx, s, in)
	if m != movement.ModeMantling {
		t.Fatalf("expected to mantle onto the ledge, got %s", m)
	}
	rule, _ := set.Lookup(m)
	s.Mode = m
	s = rule.Enter(ctx, s, in)
	for range ctx.Params.MantleDuration {
		if m, _ := set.EvaluateTransition(ctx, s, movement.Input{}); m != movement.ModeMantling {
			t.Fatalf("mantle released control early at %+v", s.Payload)
		}
		s = rule.Step(ctx, s, movement.Input{}, 1.0/30)
	}
	if s.Pos.Y() != 1.2 {
		t.Fatalf("expected to finish on top of the ledge, got %v", s.Pos)
	}
	if m, _ := set.EvaluateTransition(ctx, s, movement.Input{}); m != movement.ModeGrounded {
		t.Fatalf("expected control to return to grounded, got %s", m)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params must be valid: %v", err)
	}
	p := DefaultParams()
	p.SwimImmersion = 0
	if err := p.Validate(); !oerror.IsKind(err, oerror.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
