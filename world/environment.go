package world

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// VolumeKind identifies what a volume in an environment represents.
type VolumeKind uint8

const (
	// VolumeSolid blocks movement.
	VolumeSolid VolumeKind = iota
	// VolumeClimbable may be climbed when the character is next to it.
	VolumeClimbable
	// VolumeWater allows swimming once the character is immersed deeply enough.
	VolumeWater
)

// Environment is the read-only geometry the simulation moves characters through. Implementations must
// return volumes in a deterministic order, as the order in which collisions are resolved affects the
// result of a step.
type Environment interface {
	// Volumes returns every volume of the kind passed that intersects area.
	Volumes(kind VolumeKind, area cube.BBox) []cube.BBox
}

// Static is an Environment made of a fixed list of volumes. The zero value is an empty environment. A
// Static must not be modified once characters are simulated in it.
type Static struct {
	volumes [3][]cube.BBox
}

// NewStatic returns an empty static environment.
func NewStatic() *Static {
	return &Static{}
}

// Add adds a volume of the kind passed and returns the environment so calls can be chained.
func (s *Static) Add(kind VolumeKind, box cube.BBox) *Static {
	s.volumes[kind] = append(s.volumes[kind], box)
	return s
}

// Floor adds a solid slab whose top face is at height y, spanning [-extent, extent] on X and Z.
func (s *Static) Floor(y, extent float64) *Static {
	return s.Add(VolumeSolid, cube.Box(-extent, y-1, -extent, extent, y, extent))
}

// Volumes ...
func (s *Static) Volumes(kind VolumeKind, area cube.BBox) []cube.BBox {
	if int(kind) >= len(s.volumes) {
		return nil
	}
	var out []cube.BBox
	for _, box := range s.volumes[kind] {
		if box.IntersectsWith(area) {
			out = append(out, box)
		}
	}
	return out
}

// BoxAt returns the collision box of a character of the given size standing at pos. pos is the centre of
// the bottom face.
func BoxAt(pos mgl64.Vec3, width, height float64) cube.BBox {
	half := width * 0.5
	return cube.Box(pos[0]-half, pos[1], pos[2]-half, pos[0]+half, pos[1]+height, pos[2]+half)
}

// FeetOf returns the centre of the bottom face of box.
func FeetOf(box cube.BBox) mgl64.Vec3 {
	return mgl64.Vec3{
		(box.Min().X() + box.Max().X()) * 0.5,
		box.Min().Y(),
		(box.Min().Z() + box.Max().Z()) * 0.5,
	}
}
