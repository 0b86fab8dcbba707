package motiondb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/oerror"
)

func walkStop() Clip {
	return Clip{
		Name:     "walk_stop",
		Duration: 1,
		Distance: []CurveKey{{0, 0}, {0.5, 0.8}, {1, 1}},
	}
}

func TestClipCurve(t *testing.T) {
	c := walkStop()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if d := c.DistanceAt(0.25); d != 0.4 {
		t.Fatalf("expected 0.4 at t=0.25, got %v", d)
	}
	if tm := c.TimeAtDistance(0.9); mgl32.Abs(tm-0.75) > 1e-5 {
		t.Fatalf("expected t=0.75 at d=0.9, got %v", tm)
	}
	if tm := c.TimeAtRemainingDistance(0.2); mgl32.Abs(tm-0.5) > 1e-5 {
		t.Fatalf("expected t=0.5 with 0.2 remaining, got %v", tm)
	}
	if c.TimeAtDistance(5) != 1 || c.TimeAtDistance(-1) != 0 {
		t.Fatal("expected lookups outside the curve to clamp")
	}
	if c.TotalDistance() != 1 {
		t.Fatalf("expected total distance 1, got %v", c.TotalDistance())
	}

	bad := Clip{Name: "bad", Distance: []CurveKey{{0, 1}, {1, 0}}}
	if err := bad.Validate(); !oerror.IsKind(err, oerror.KindConfiguration) {
		t.Fatalf("expected configuration error for a decreasing curve, got %v", err)
	}
}

func TestFindNearestWeightedCost(t *testing.T) {
	m := NewMemory(Weights{Pose: 1, Trajectory: 2})
	forward := Trajectory{{Offset: mgl32.Vec3{0, 0, 1}}}
	left := Trajectory{{Offset: mgl32.Vec3{-1, 0, 0}, Facing: -90}}

	_, _ = m.AddExemplar(Exemplar{Clip: "a", Pose: Pose{0, 0}, Trajectory: left})
	_, _ = m.AddExemplar(Exemplar{Clip: "b", Pose: Pose{1, 0}, Trajectory: forward})
	_, _ = m.AddExemplar(Exemplar{Clip: "c", Pose: Pose{0, 0}, Trajectory: forward})

	match, ok := m.FindNearest(Pose{0, 0}, forward)
	if !ok || match.Clip != "c" || match.Cost != 0 {
		t.Fatalf("expected exact match c, got %+v", match)
	}
	match, _ = m.FindNearest(Pose{1, 0}, left)
	if match.Clip != "a" || match.PoseCost != 1 || match.Cost != 1 {
		t.Fatalf("expected trajectory weight to favour a, got %+v", match)
	}
}

func TestFindNearestTieBreaksByIndex(t *testing.T) {
	m := NewMemory(DefaultWeights())
	for _, clip := range []string{"first", "second", "third"} {
		if _, err := m.AddExemplar(Exemplar{Clip: clip, Pose: Pose{1}}); err != nil {
			t.Fatal(err)
		}
	}
	for range 50 {
		match, ok := m.FindNearest(Pose{0}, nil)
		if !ok || match.Index != 0 || match.Clip != "first" {
			t.Fatalf("expected the lowest index to win a tie, got %+v", match)
		}
	}
	if _, err := m.AddExemplar(Exemplar{Pose: Pose{1, 2}}); !oerror.IsKind(err, oerror.KindConfiguration) {
		t.Fatalf("expected configuration error for a mismatched pose dimension, got %v", err)
	}
	if _, ok := NewMemory(DefaultWeights()).FindNearest(Pose{0}, nil); ok {
		t.Fatal("expected an empty database to find nothing")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "motion.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if err := CreateSchema(ctx, db); err != nil {
		t.Fatal(err)
	}

	src := NewMemory(DefaultWeights())
	if err := src.AddClip(walkStop()); err != nil {
		t.Fatal(err)
	}
	traj := Trajectory{{Offset: mgl32.Vec3{0, 0, 0.5}, Facing: 3}, {Offset: mgl32.Vec3{0.1, 0, 1}, Facing: 10}}
	_, _ = src.AddExemplar(Exemplar{Clip: "walk_stop", Time: 0.25, Pose: Pose{0.1, 0.2, 0.3}, Trajectory: traj})
	_, _ = src.AddExemplar(Exemplar{Clip: "walk_stop", Time: 0.5, Pose: Pose{0.4, 0.5, 0.6}})
	if err := SaveSQLite(ctx, db, src); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	m, err := OpenSQLite(ctx, path, DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 exemplars, got %d", m.Len())
	}
	clip, ok := m.Clip("walk_stop")
	if !ok || len(clip.Distance) != 3 || clip.DistanceAt(0.5) != 0.8 {
		t.Fatalf("unexpected clip %+v", clip)
	}
	match, ok := m.FindNearest(Pose{0.1, 0.2, 0.3}, traj)
	if !ok || match.Index != 0 || match.Cost != 0 || match.Time != 0.25 {
		t.Fatalf("expected the first exemplar to match exactly, got %+v", match)
	}

	if _, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "missing.db"), DefaultWeights()); err == nil {
		t.Fatal("expected an empty database file to fail loading")
	}
}
