package world

import (
	"math"
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

func TestMoveLandsOnFloor(t *testing.T) {
	env := NewStatic().Floor(0, 50)
	box := BoxAt(mgl64.Vec3{0, 0.3, 0}, 0.6, 1.8)

	res := Move(env, box, mgl64.Vec3{0, -1, 0}, false, 0.5)
	if !res.OnGround || !res.CollideY {
		t.Fatalf("expected to land, got %+v", res)
	}
	if feet := FeetOf(res.Box); math.Abs(feet.Y()) > 1e-9 {
		t.Fatalf("expected feet at y=0, got %v", feet)
	}
}

func TestMoveBlockedByWall(t *testing.T) {
	env := NewStatic().Floor(0, 50).Add(VolumeSolid, cube.Box(1, 0, -5, 2, 3, 5))
	box := BoxAt(mgl64.Vec3{0, 0, 0}, 0.6, 1.8)

	res := Move(env, box, mgl64.Vec3{2, 0, 0}, true, 0.5)
	if !res.CollideX {
		t.Fatalf("expected a collision on X, got %+v", res)
	}
	if got := res.Box.Max().X(); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected to stop against the wall at x=1, got %v", got)
	}
	if !res.OnGround {
		t.Fatal("expected to remain grounded")
	}
}

func TestMoveStepsUp(t *testing.T) {
	env := NewStatic().Floor(0, 50).Add(VolumeSolid, cube.Box(0.5, 0, -5, 3, 0.4, 5))
	box := BoxAt(mgl64.Vec3{0, 0, 0}, 0.6, 1.8)

	res := Move(env, box, mgl64.Vec3{0.5, -0.01, 0}, true, 0.5)
	feet := FeetOf(res.Box)
	if math.Abs(feet.Y()-0.4) > 1e-9 {
		t.Fatalf("expected to step onto the 0.4 high step, got %v", feet)
	}
	if math.Abs(feet.X()-0.5) > 1e-9 {
		t.Fatalf("expected full horizontal movement, got %v", feet)
	}
}

func TestMoveNilEnvironment(t *testing.T) {
	box := BoxAt(mgl64.Vec3{}, 0.6, 1.8)
	res := Move(nil, box, mgl64.Vec3{1, 2, 3}, false, 0.5)
	if FeetOf(res.Box) != (mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("unexpected result %v", FeetOf(res.Box))
	}
}

func TestSupported(t *testing.T) {
	env := NewStatic().Floor(0, 50)
	if !Supported(env, BoxAt(mgl64.Vec3{0, 0.05, 0}, 0.6, 1.8), 0.1) {
		t.Fatal("expected floor to support the box")
	}
	if Supported(env, BoxAt(mgl64.Vec3{0, 2, 0}, 0.6, 1.8), 0.1) {
		t.Fatal("did not expect support two units above the floor")
	}
}

func TestImmersion(t *testing.T) {
	env := NewStatic().Add(VolumeWater, cube.Box(-10, -10, -10, 10, 0.9, 10))
	if got := Immersion(env, BoxAt(mgl64.Vec3{}, 0.6, 1.8)); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected half immersion, got %v", got)
	}
	if got := Immersion(env, BoxAt(mgl64.Vec3{0, -5, 0}, 0.6, 1.8)); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected full immersion, got %v", got)
	}
}

func TestClimbSurfaceNormal(t *testing.T) {
	env := NewStatic().Add(VolumeClimbable, cube.Box(0.5, 0, -1, 0.7, 4, 1))
	normal, ok := ClimbSurface(env, BoxAt(mgl64.Vec3{}, 0.6, 1.8), 0.45)
	if !ok {
		t.Fatal("expected a climbable surface within reach")
	}
	if normal != (mgl64.Vec3{-1, 0, 0}) {
		t.Fatalf("expected normal pointing towards -X, got %v", normal)
	}
	if _, ok := ClimbSurface(env, BoxAt(mgl64.Vec3{-3, 0, 0}, 0.6, 1.8), 0.45); ok {
		t.Fatal("did not expect a surface out of reach")
	}
}

func TestFindLedge(t *testing.T) {
	env := NewStatic().Floor(0, 50).Add(VolumeSolid, cube.Box(0.4, 0, -2, 3, 1.2, 2))
	box := BoxAt(mgl64.Vec3{}, 0.6, 1.8)

	ledge, ok := FindLedge(env, box, mgl64.Vec3{1, 0, 0}, 0.6, 0.5, 1.6)
	if !ok {
		t.Fatal("expected a ledge")
	}
	if math.Abs(ledge.Height-1.2) > 1e-9 || math.Abs(ledge.Target.Y()-1.2) > 1e-9 {
		t.Fatalf("unexpected ledge %+v", ledge)
	}

	tall := NewStatic().Floor(0, 50).Add(VolumeSolid, cube.Box(0.4, 0, -2, 3, 4, 2))
	if _, ok := FindLedge(tall, box, mgl64.Vec3{1, 0, 0}, 0.6, 0.5, 1.6); ok {
		t.Fatal("did not expect a ledge on a wall taller than the mantle height")
	}
}
