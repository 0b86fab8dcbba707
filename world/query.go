package world

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// Immersion returns the fraction, in [0, 1], of the height of box that is below the surface of the water
// volumes it intersects.
func Immersion(env Environment, box cube.BBox) float64 {
	if env == nil {
		return 0
	}
	height := box.Height()
	if height <= 0 {
		return 0
	}

	var submerged float64
	for _, water := range env.Volumes(VolumeWater, box) {
		depth := math.Min(box.Max().Y(), water.Max().Y()) - math.Max(box.Min().Y(), water.Min().Y())
		submerged = math.Max(submerged, depth)
	}
	return math.Min(submerged/height, 1)
}

// ClimbSurface returns the horizontal normal of the first climbable volume within reach of box. The normal
// points from the volume towards the box along the axis on which they are closest.
func ClimbSurface(env Environment, box cube.BBox, reach float64) (mgl64.Vec3, bool) {
	if env == nil {
		return mgl64.Vec3{}, false
	}
	vols := env.Volumes(VolumeClimbable, box.GrowVec3(mgl64.Vec3{reach, 0, reach}))
	if len(vols) == 0 {
		return mgl64.Vec3{}, false
	}
	return surfaceNormal(vols[0], box), true
}

// surfaceNormal returns the horizontal axis-aligned normal of the face of vol closest to box.
func surfaceNormal(vol, box cube.BBox) mgl64.Vec3 {
	gaps := [4]float64{
		box.Min().X() - vol.Max().X(), // +X face
		vol.Min().X() - box.Max().X(), // -X face
		box.Min().Z() - vol.Max().Z(), // +Z face
		vol.Min().Z() - box.Max().Z(), // -Z face
	}
	normals := [4]mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 0, 1}, {0, 0, -1}}

	best := 0
	for i := 1; i < len(gaps); i++ {
		if gaps[i] > gaps[best] {
			best = i
		}
	}
	return normals[best]
}

// Ledge describes a surface a character may mantle onto.
type Ledge struct {
	// Target is the position the character stands at once on top of the ledge.
	Target mgl64.Vec3
	// Height is the height of the ledge above the bottom of the character.
	Height float64
}

// FindLedge searches for a solid top face in front of box, along the horizontal direction dir, that is
// higher than minHeight and at most maxHeight above the bottom of box, with enough clearance above it for
// box to stand on.
func FindLedge(env Environment, box cube.BBox, dir mgl64.Vec3, reach, minHeight, maxHeight float64) (Ledge, bool) {
	if env == nil {
		return Ledge{}, false
	}
	dir[1] = 0
	if dir.LenSqr() < 1e-12 {
		return Ledge{}, false
	}
	dir = dir.Normalize()

	baseY := box.Min().Y()
	probe := box.Translate(dir.Mul(reach))
	if extra := maxHeight - box.Height(); extra > 0 {
		probe = probe.Extend(mgl64.Vec3{0, extra})
	}

	var (
		ledge Ledge
		found bool
	)
	for _, vol := range env.Volumes(VolumeSolid, probe) {
		top := vol.Max().Y() - baseY
		if top <= minHeight || top > maxHeight {
			continue
		}
		if found && top >= ledge.Height {
			continue
		}
		feet := FeetOf(box).Add(dir.Mul(reach))
		feet[1] = vol.Max().Y()
		if len(env.Volumes(VolumeSolid, BoxAt(feet, box.Width(), box.Height()).Grow(-1e-4))) != 0 {
			continue
		}
		ledge, found = Ledge{Target: feet, Height: top}, true
	}
	return ledge, found
}
