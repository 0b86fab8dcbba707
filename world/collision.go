package world

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

type clipCollideResult struct {
	depenetratingAxis     int
	penetration           float64
	clippedVelocity       mgl64.Vec3
	depenetratingVelocity mgl64.Vec3
}

// ClipCollide clips the displacement of a moving box against a stationary one so that it does not move into
// it. If the boxes already overlap, the displacement is adjusted to push the moving box out along the axis
// of least penetration.
func ClipCollide(stationary, moving cube.BBox, disp mgl64.Vec3) mgl64.Vec3 {
	return doClipCollide(stationary, moving, disp).depenetratingVelocity
}

func doClipCollide(stationary, moving cube.BBox, velocity mgl64.Vec3) (result clipCollideResult) {
	result.clippedVelocity = velocity
	result.depenetratingVelocity = velocity

	if stationary.Min() == stationary.Max() {
		return
	}

	axisPenetrations := [3]float64{}
	axisPenetrationsSigned := [3]float64{}
	normalDirs := [3]float64{}
	separatingAxes, separatingAxis := 0, 0
	resultPenetration := math.MaxFloat64 - 1

	for i := range 3 {
		minPenetration := moving.Max()[i] - stationary.Min()[i]
		maxPenetration := stationary.Max()[i] - moving.Min()[i]

		if math.Abs(minPenetration) <= 1e-7 {
			minPenetration = 0
		}
		if math.Abs(maxPenetration) <= 1e-7 {
			maxPenetration = 0
		}

		minPositive := math.Max(0, minPenetration)
		maxPositive := math.Max(0, maxPenetration)

		if minPositive == 0 {
			axisPenetrationsSigned[i] = minPenetration
			normalDirs[i] = -1
			separatingAxes++
			separatingAxis = i
		} else if maxPositive == 0 {
			axisPenetrationsSigned[i] = maxPenetration
			normalDirs[i] = 1
			separatingAxes++
			separatingAxis = i
		} else if minPositive < maxPositive {
			axisPenetrations[i] = minPositive
			axisPenetrationsSigned[i] = minPositive
			normalDirs[i] = -1
		} else {
			axisPenetrations[i] = maxPositive
			axisPenetrationsSigned[i] = maxPositive
			normalDirs[i] = 1
		}

		if separatingAxes > 1 {
			return
		}
		resultPenetration = math.Min(resultPenetration, axisPenetrations[i])
	}

	// No separating axes means the boxes already overlap.
	if separatingAxes == 0 {
		result.penetration = resultPenetration
		bestAxis := 0
		for i := 1; i < 3; i++ {
			if axisPenetrations[i] < axisPenetrations[bestAxis] {
				bestAxis = i
			}
		}

		desired := axisPenetrations[bestAxis] * normalDirs[bestAxis]
		if desired > 0 {
			result.depenetratingVelocity[bestAxis] = math.Max(desired, velocity[bestAxis])
		} else {
			result.depenetratingVelocity[bestAxis] = math.Min(desired, velocity[bestAxis])
		}
		result.depenetratingAxis = bestAxis
		return
	}

	sweptPenetration := axisPenetrationsSigned[separatingAxis] - (normalDirs[separatingAxis] * velocity[separatingAxis])
	if sweptPenetration <= 0 {
		return
	}

	resolved := axisPenetrationsSigned[separatingAxis] * normalDirs[separatingAxis]
	result.clippedVelocity[separatingAxis] = resolved
	result.depenetratingVelocity[separatingAxis] = resolved
	return
}

// MoveResult is the outcome of moving a box through an environment.
type MoveResult struct {
	Box  cube.BBox
	Disp mgl64.Vec3

	CollideX bool
	CollideY bool
	CollideZ bool
	OnGround bool
}

// Move sweeps box by disp through the solid volumes of env, resolving the Y axis first, then X, then Z.
// When the box is grounded and blocked horizontally, it attempts to step up by at most stepHeight.
func Move(env Environment, box cube.BBox, disp mgl64.Vec3, onGround bool, stepHeight float64) MoveResult {
	if env == nil {
		return MoveResult{Box: box.Translate(disp), Disp: disp, OnGround: onGround && disp.Y() == 0}
	}

	area := box.Extend(disp)
	if stepHeight > 0 {
		area = area.Extend(mgl64.Vec3{0, stepHeight})
	}
	boxes := env.Volumes(VolumeSolid, area)

	collisionBB, collisionDisp := sweep(boxes, box, disp)
	xCollision := disp.X() != collisionDisp.X()
	yCollision := disp.Y() != collisionDisp.Y()
	zCollision := disp.Z() != collisionDisp.Z()
	grounded := onGround || (yCollision && disp.Y() < 0)

	if grounded && stepHeight > 0 && (xCollision || zCollision) {
		stepBB, stepDisp := sweep(boxes, box, mgl64.Vec3{disp.X(), stepHeight, disp.Z()})

		down := mgl64.Vec3{0, -stepDisp.Y() + math.Min(disp.Y(), 0)}
		for i := len(boxes) - 1; i >= 0; i-- {
			down = ClipCollide(boxes[i], stepBB, down)
		}
		stepBB = stepBB.Translate(down)
		stepDisp = stepDisp.Add(down)

		if hzLenSqr(collisionDisp) < hzLenSqr(stepDisp) {
			collisionBB, collisionDisp = stepBB, stepDisp
		}
	}

	res := MoveResult{
		Box:      collisionBB,
		Disp:     collisionDisp,
		CollideX: math.Abs(disp.X()-collisionDisp.X()) >= 1e-7,
		CollideY: math.Abs(disp.Y()-collisionDisp.Y()) >= 1e-7,
		CollideZ: math.Abs(disp.Z()-collisionDisp.Z()) >= 1e-7,
	}
	res.OnGround = (res.CollideY && disp.Y() < 0) || (onGround && !res.CollideY && math.Abs(disp.Y()) <= 1e-7)
	return res
}

// Supported returns true if a solid volume lies directly below box within distance.
func Supported(env Environment, box cube.BBox, distance float64) bool {
	if env == nil {
		return false
	}
	probe := mgl64.Vec3{0, -distance}
	boxes := env.Volumes(VolumeSolid, box.Extend(probe))
	for i := len(boxes) - 1; i >= 0; i-- {
		probe = ClipCollide(boxes[i], box, probe)
	}
	return probe.Y() > -distance
}

func sweep(boxes []cube.BBox, box cube.BBox, disp mgl64.Vec3) (cube.BBox, mgl64.Vec3) {
	yDisp := mgl64.Vec3{0, disp.Y()}
	for i := len(boxes) - 1; i >= 0; i-- {
		yDisp = ClipCollide(boxes[i], box, yDisp)
	}
	box = box.Translate(yDisp)

	xDisp := mgl64.Vec3{disp.X()}
	for i := len(boxes) - 1; i >= 0; i-- {
		xDisp = ClipCollide(boxes[i], box, xDisp)
	}
	box = box.Translate(xDisp)

	zDisp := mgl64.Vec3{0, 0, disp.Z()}
	for i := len(boxes) - 1; i >= 0; i-- {
		zDisp = ClipCollide(boxes[i], box, zDisp)
	}
	box = box.Translate(zDisp)

	return box, yDisp.Add(xDisp).Add(zDisp)
}

func hzLenSqr(v mgl64.Vec3) float64 {
	return v.X()*v.X() + v.Z()*v.Z()
}
