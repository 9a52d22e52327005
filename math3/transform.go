package math3

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// PosEpsilon is the residual position error at which a blend snaps to its target.
	PosEpsilon = 0.005
	// AngEpsilon is the residual rotation error (radians) at which a blend snaps.
	AngEpsilon = 0.01
)

// Transform is a rigid transform: a rotation followed by a translation.
type Transform struct {
	Pos mgl64.Vec3
	Rot mgl64.Quat
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rot: mgl64.QuatIdent()}
}

// Mul composes t with o, applying o in t's space.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Pos: t.Pos.Add(t.Rot.Rotate(o.Pos)),
		Rot: t.Rot.Mul(o.Rot).Normalize(),
	}
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	inv := t.Rot.Inverse()
	return Transform{
		Pos: inv.Rotate(t.Pos.Mul(-1)),
		Rot: inv.Normalize(),
	}
}

// TransformPoint maps a point from t's local space outward.
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Pos.Add(t.Rot.Rotate(p))
}

// InversePoint maps a point from the outer space into t's local space.
func (t Transform) InversePoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rot.Inverse().Rotate(p.Sub(t.Pos))
}

// ApproxEqual reports whether two transforms are within eps in position and
// AngEpsilon-scaled rotation.
func (t Transform) ApproxEqual(o Transform, eps float64) bool {
	return t.Pos.Sub(o.Pos).Len() <= eps && AngleBetween(t.Rot, o.Rot) <= AngEpsilon
}

// Lerp linearly interpolates between two points.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Slerp interpolates along the shorter arc between two rotations.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t)
}

// AngleBetween returns the absolute angle of the rotation taking a to b.
func AngleBetween(a, b mgl64.Quat) float64 {
	d := math.Abs(a.Normalize().Dot(b.Normalize()))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Blend moves t toward target by factor and reports whether the result
// landed on the target. Inside the snap epsilons the target is returned
// exactly so callers can stop blending.
func Blend(t, target Transform, factor float64) (Transform, bool) {
	if factor >= 1 {
		return target, true
	}
	if factor < 0 {
		factor = 0
	}
	out := Transform{
		Pos: Lerp(t.Pos, target.Pos, factor),
		Rot: Slerp(t.Rot, target.Rot, factor).Normalize(),
	}
	if out.Pos.Sub(target.Pos).Len() <= PosEpsilon && AngleBetween(out.Rot, target.Rot) <= AngEpsilon {
		return target, true
	}
	return out, false
}
