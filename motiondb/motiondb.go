package motiondb

import (
	"slices"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/oerror"
)

// Pose is a feature vector describing a skeletal pose, such as foot positions and velocities relative to the
// root. All poses searched together must have the same dimension.
type Pose []float32

// TrajectoryPoint is a sample of a root trajectory relative to the current root.
type TrajectoryPoint struct {
	Offset mgl32.Vec3
	// Facing is the yaw of the root at the sample, in degrees, relative to the current facing.
	Facing float32
}

// Trajectory is a sequence of past and future trajectory samples.
type Trajectory []TrajectoryPoint

// Exemplar is a single searchable frame of an animation clip.
type Exemplar struct {
	// Index is assigned when the exemplar is added to a database and breaks ties between equal costs.
	Index      int
	Clip       string
	Time       float32
	Pose       Pose
	Trajectory Trajectory
}

// Match is the result of a search.
type Match struct {
	Exemplar
	Cost           float32
	PoseCost       float32
	TrajectoryCost float32
}

// Weights scales the two components of the search cost.
type Weights struct {
	Pose       float32
	Trajectory float32
}

// DefaultWeights ...
func DefaultWeights() Weights {
	return Weights{Pose: 1, Trajectory: 1}
}

// CurveKey is a single key of a clip curve.
type CurveKey struct {
	Time  float32
	Value float32
}

// Clip describes an animation clip by the distance its root travels over time.
type Clip struct {
	Name     string
	Duration float32
	// Distance holds the distance travelled by the root since the start of the clip, sorted by time. The
	// distance never decreases.
	Distance []CurveKey
}

// Validate ...
func (c Clip) Validate() error {
	if c.Name == "" {
		return oerror.Configuration("clip", "name must not be empty")
	}
	if len(c.Distance) < 2 {
		return oerror.Configuration("clip "+c.Name, "distance curve needs at least two keys, got %d", len(c.Distance))
	}
	for i := 1; i < len(c.Distance); i++ {
		prev, cur := c.Distance[i-1], c.Distance[i]
		if cur.Time < prev.Time || cur.Value < prev.Value {
			return oerror.Configuration("clip "+c.Name, "distance curve must be sorted and non-decreasing at key %d", i)
		}
	}
	return nil
}

// TotalDistance returns the distance travelled over the whole clip.
func (c Clip) TotalDistance() float32 {
	if len(c.Distance) == 0 {
		return 0
	}
	return c.Distance[len(c.Distance)-1].Value - c.Distance[0].Value
}

// DistanceAt returns the distance travelled at the time passed, interpolating linearly between keys.
func (c Clip) DistanceAt(t float32) float32 {
	keys := c.Distance
	if len(keys) == 0 {
		return 0
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time >= t })
	switch i {
	case 0:
		return keys[0].Value
	case len(keys):
		return keys[len(keys)-1].Value
	}
	return lerpKey(keys[i-1].Time, keys[i].Time, keys[i-1].Value, keys[i].Value, t)
}

// TimeAtDistance returns the earliest time at which the root has travelled the distance passed.
func (c Clip) TimeAtDistance(d float32) float32 {
	keys := c.Distance
	if len(keys) == 0 {
		return 0
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Value >= d })
	switch i {
	case 0:
		return keys[0].Time
	case len(keys):
		return keys[len(keys)-1].Time
	}
	return lerpKey(keys[i-1].Value, keys[i].Value, keys[i-1].Time, keys[i].Time, d)
}

// TimeAtRemainingDistance returns the time at which the root is the distance passed away from the end of the
// clip.
func (c Clip) TimeAtRemainingDistance(remaining float32) float32 {
	if len(c.Distance) == 0 {
		return 0
	}
	end := c.Distance[len(c.Distance)-1].Value
	return c.TimeAtDistance(end - remaining)
}

func lerpKey(x0, x1, y0, y1, x float32) float32 {
	span := x1 - x0
	if span <= 1e-6 {
		return y0
	}
	return mgl32.Clamp(y0+(y1-y0)*(x-x0)/span, min(y0, y1), max(y0, y1))
}

// Database is a read-only motion search index.
type Database interface {
	// FindNearest returns the exemplar with the lowest weighted cost against the pose and trajectory passed.
	FindNearest(pose Pose, trajectory Trajectory) (Match, bool)
	// Clip returns the clip with the name passed.
	Clip(name string) (Clip, bool)
}

// Memory is a Database held entirely in memory. It must not be modified once searches start.
type Memory struct {
	weights   Weights
	exemplars []Exemplar
	clips     []Clip
}

// NewMemory returns an empty database using the weights passed.
func NewMemory(weights Weights) *Memory {
	return &Memory{weights: weights}
}

// Weights ...
func (m *Memory) Weights() Weights {
	return m.weights
}

// AddClip adds a clip to the database, replacing any clip with the same name.
func (m *Memory) AddClip(c Clip) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.Distance = slices.Clone(c.Distance)
	if i := slices.IndexFunc(m.clips, func(o Clip) bool { return o.Name == c.Name }); i != -1 {
		m.clips[i] = c
		return nil
	}
	m.clips = append(m.clips, c)
	return nil
}

// AddExemplar adds an exemplar to the database and returns its index.
func (m *Memory) AddExemplar(e Exemplar) (int, error) {
	if len(m.exemplars) > 0 && len(e.Pose) != len(m.exemplars[0].Pose) {
		return -1, oerror.Configuration("exemplar pose", "dimension %d does not match %d", len(e.Pose), len(m.exemplars[0].Pose))
	}
	e.Index = len(m.exemplars)
	e.Pose = slices.Clone(e.Pose)
	e.Trajectory = slices.Clone(e.Trajectory)
	m.exemplars = append(m.exemplars, e)
	return e.Index, nil
}

// Len returns the number of exemplars in the database.
func (m *Memory) Len() int {
	return len(m.exemplars)
}

// Exemplars returns the exemplars in the order they were added.
func (m *Memory) Exemplars() []Exemplar {
	return slices.Clone(m.exemplars)
}

// Clips returns the clips in the order they were added.
func (m *Memory) Clips() []Clip {
	return slices.Clone(m.clips)
}

// Clip ...
func (m *Memory) Clip(name string) (Clip, bool) {
	i := slices.IndexFunc(m.clips, func(c Clip) bool { return c.Name == name })
	if i == -1 {
		return Clip{}, false
	}
	return m.clips[i], true
}

// FindNearest scans every exemplar. Ties are broken by the lowest cost and then the lowest index, so the
// result does not depend on anything but the contents of the database.
func (m *Memory) FindNearest(pose Pose, trajectory Trajectory) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for _, e := range m.exemplars {
		if len(e.Pose) != len(pose) {
			continue
		}
		pc, tc := PoseCost(pose, e.Pose), TrajectoryCost(trajectory, e.Trajectory)
		cost := m.weights.Pose*pc + m.weights.Trajectory*tc
		if math32.IsNaN(cost) {
			continue
		}
		if !found || cost < best.Cost {
			best = Match{Exemplar: e, Cost: cost, PoseCost: pc, TrajectoryCost: tc}
			found = true
		}
	}
	return best, found
}

// PoseCost returns the squared distance between two poses of the same dimension.
func PoseCost(a, b Pose) float32 {
	var cost float32
	for i := range min(len(a), len(b)) {
		d := a[i] - b[i]
		cost += d * d
	}
	return cost
}

// TrajectoryCost returns the sum of squared offset errors and normalised facing errors between two
// trajectories. Samples missing from either trajectory count as a full error of one.
func TrajectoryCost(a, b Trajectory) float32 {
	var cost float32
	n := min(len(a), len(b))
	for i := range n {
		cost += a[i].Offset.Sub(b[i].Offset).LenSqr()
		f := game.WrapYawDelta(a[i].Facing, b[i].Facing) / 180
		cost += f * f
	}
	return cost + float32(max(len(a), len(b))-n)
}
