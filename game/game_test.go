package game

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNormalizeAxis(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		180:  180,
		-180: 180,
		190:  -170,
		-190: 170,
		720:  0,
	}
	for in, want := range cases {
		if got := NormalizeAxis(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("NormalizeAxis(%v): expected %v, got %v", in, want, got)
		}
	}
}

func TestFixedTurnClamps(t *testing.T) {
	if got := FixedTurn(0, 90, 18); got != 18 {
		t.Fatalf("expected 18, got %v", got)
	}
	if got := FixedTurn(170, -170, 30); got != -170 {
		t.Fatalf("expected turn across the seam to reach -170, got %v", got)
	}
	if got := FixedTurn(0, -90, 10); got != -10 {
		t.Fatalf("expected -10, got %v", got)
	}
}

func TestYawRoundTrip(t *testing.T) {
	for _, yaw := range []float64{0, 45, 90, -90, 135, 180} {
		dir := DirectionVector(yaw, 0)
		if got := YawFromDirection(dir); math.Abs(NormalizeAxis(got-yaw)) > 1e-9 {
			t.Errorf("yaw %v round tripped to %v", yaw, got)
		}
	}
}

func TestRotateXZForward(t *testing.T) {
	v := RotateXZ(mgl64.Vec2{0, 1}, 90)
	dir := DirectionVector(90, 0)
	if !v.ApproxEqualThreshold(dir, 1e-9) {
		t.Fatalf("forward input at yaw 90 should match facing %v, got %v", dir, v)
	}
}

func TestAngularDistance(t *testing.T) {
	a := RotationQuat(mgl64.Vec3{0, 0, 0})
	b := RotationQuat(mgl64.Vec3{0, 90, 0})
	if got := AngularDistance(a, b); math.Abs(got-90) > 1e-6 {
		t.Fatalf("expected 90 degrees, got %v", got)
	}
	if got := AngularDistance(a, a); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestStatistics(t *testing.T) {
	data := []float64{3, 1, 2, 4}
	if Mean(data) != 2.5 {
		t.Fatalf("unexpected mean %v", Mean(data))
	}
	if Median(data) != 2.5 {
		t.Fatalf("unexpected median %v", Median(data))
	}
	if data[0] != 3 {
		t.Fatal("median must not reorder its input")
	}
	if Max(data) != 4 {
		t.Fatalf("unexpected max %v", Max(data))
	}
	if sd := StandardDeviation([]float64{2, 2, 2}); sd != 0 {
		t.Fatalf("expected zero deviation, got %v", sd)
	}
}
