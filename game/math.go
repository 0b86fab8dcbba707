package game

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// ClampFloat clamps the given value to the given range.
func ClampFloat(num, min, max float64) float64 {
	if num < min {
		return min
	}
	return math.Min(num, max)
}

// ClampFloat32 clamps the given value to the given range.
func ClampFloat32(num, min, max float32) float32 {
	if num < min {
		return min
	}
	return math32.Min(num, max)
}

// Round32 will round a float32 to a given precision.
func Round32(val float32, precision int) float32 {
	pwr := math32.Pow(10, float32(precision))
	return math32.Round(val*pwr) / pwr
}

// Round64 will round a float64 to a given precision.
func Round64(val float64, precision int) float64 {
	pwr := math.Pow(10, float64(precision))
	return math.Round(val*pwr) / pwr
}

// RoundVec64 will round a 64-bit vector to a given precision.
func RoundVec64(v mgl64.Vec3, p int) mgl64.Vec3 {
	return mgl64.Vec3{Round64(v.X(), p), Round64(v.Y(), p), Round64(v.Z(), p)}
}

// Float32ApproxEq determines whether two floating point numbers are close enough to each other
// by a threshold of 1e-5.
func Float32ApproxEq(a, b float32) bool {
	return math32.Abs(a-b) <= 1e-5
}

// Vec32To64 converts a 32-bit vector to a 64-bit one.
func Vec32To64(vec3 mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(vec3[0]), float64(vec3[1]), float64(vec3[2])}
}

// Vec64To32 converts a 64-bit vector to a 32-bit one.
func Vec64To32(vec3 mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(vec3[0]), float32(vec3[1]), float32(vec3[2])}
}

// DirectionVector returns a direction vector from the given yaw and pitch values. A yaw of zero faces +Z.
func DirectionVector(yaw, pitch float64) mgl64.Vec3 {
	yawRad, pitchRad := mgl64.DegToRad(yaw), mgl64.DegToRad(pitch)
	m := math.Cos(pitchRad)

	return mgl64.Vec3{
		-m * math.Sin(yawRad),
		-math.Sin(pitchRad),
		m * math.Cos(yawRad),
	}
}

// YawFromDirection returns the yaw, in degrees, that faces along the horizontal part of dir. It is the
// inverse of DirectionVector for a pitch of zero.
func YawFromDirection(dir mgl64.Vec3) float64 {
	return NormalizeAxis(mgl64.RadToDeg(math.Atan2(-dir.X(), dir.Z())))
}

// YawFromDirection32 is the float32 counterpart of YawFromDirection.
func YawFromDirection32(dir mgl32.Vec3) float32 {
	return NormalizeAxis32(mgl32.RadToDeg(math32.Atan2(-dir.X(), dir.Z())))
}

// RotateXZ rotates the horizontal input vector (strafe, forward) by yaw degrees.
func RotateXZ(move mgl64.Vec2, yaw float64) mgl64.Vec3 {
	rad := mgl64.DegToRad(yaw)
	sin, cos := math.Sin(rad), math.Cos(rad)
	strafe, forward := move.X(), move.Y()
	return mgl64.Vec3{strafe*cos - forward*sin, 0, forward*cos + strafe*sin}
}

// NormalizeAxis wraps an angle in degrees into the range (-180, 180].
func NormalizeAxis(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle > 180 {
		angle -= 360
	} else if angle <= -180 {
		angle += 360
	}
	return angle
}

// NormalizeAxis32 wraps an angle in degrees into the range (-180, 180].
func NormalizeAxis32(angle float32) float32 {
	angle = math32.Mod(angle, 360)
	if angle > 180 {
		angle -= 360
	} else if angle <= -180 {
		angle += 360
	}
	return angle
}

// WrapYawDelta returns the signed shortest rotation from one yaw to another.
func WrapYawDelta(from, to float32) float32 {
	return NormalizeAxis32(to - from)
}

// FixedTurn rotates current towards target by at most maxDelta degrees.
func FixedTurn(current, target, maxDelta float32) float32 {
	delta := WrapYawDelta(current, target)
	if math32.Abs(delta) <= maxDelta {
		return NormalizeAxis32(target)
	}
	if delta < 0 {
		maxDelta = -maxDelta
	}
	return NormalizeAxis32(current + maxDelta)
}

// AngleDifferenceXY returns the signed horizontal angle, in degrees, between a and b.
func AngleDifferenceXY(a, b mgl64.Vec3) float64 {
	a[1], b[1] = 0, 0
	if a.LenSqr() < 1e-12 || b.LenSqr() < 1e-12 {
		return 0
	}
	return NormalizeAxis(YawFromDirection(b) - YawFromDirection(a))
}

// Vec3HzDistSqr returns the squared horizontal distance in a vector.
func Vec3HzDistSqr(vec3 mgl64.Vec3) float64 {
	return vec3.X()*vec3.X() + vec3.Z()*vec3.Z()
}

// Vec3Hz returns the vector with its vertical component removed.
func Vec3Hz(vec3 mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{vec3.X(), 0, vec3.Z()}
}

// RotationQuat converts a pitch/yaw/roll rotation in degrees to a quaternion. Yaw rotates about the
// vertical axis.
func RotationQuat(rotation mgl64.Vec3) mgl64.Quat {
	return mgl64.AnglesToQuat(
		mgl64.DegToRad(-rotation.Y()),
		mgl64.DegToRad(rotation.X()),
		mgl64.DegToRad(rotation.Z()),
		mgl64.YXZ,
	)
}

// AngularDistance returns the angle, in degrees, between two orientations.
func AngularDistance(a, b mgl64.Quat) float64 {
	dot := math.Abs(a.Dot(b))
	if dot >= 1 {
		return 0
	}
	return mgl64.RadToDeg(2 * math.Acos(dot))
}
