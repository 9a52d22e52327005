package math3

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	worldUp      = mgl64.Vec3{0, 1, 0}
	worldForward = mgl64.Vec3{0, 0, -1}
)

// parallelDot is the |axis.up| threshold past which the up-based pivot
// reference degenerates and world forward takes over.
const parallelDot = 0.999

// PivotReference returns the in-plane direction treated as zero rotation for
// a pivot axis: world up projected into the plane perpendicular to the axis,
// or world forward crossed with the axis when the two are nearly parallel.
func PivotReference(axis mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(axis.Dot(worldUp)) > parallelDot {
		return worldForward.Cross(axis).Normalize()
	}
	return worldUp.Sub(axis.Mul(worldUp.Dot(axis))).Normalize()
}

// PivotRotation returns the shortest-arc rotation about axis taking the
// canonical reference direction onto the projection of p into the plane
// perpendicular to axis. Rotating a hand around the axis therefore rotates
// the held object by the same angle. Identity when p has no in-plane part.
func PivotRotation(axis, p mgl64.Vec3) mgl64.Quat {
	if axis.Dot(axis) < 1e-12 {
		return mgl64.QuatIdent()
	}
	axis = axis.Normalize()
	proj := p.Sub(axis.Mul(p.Dot(axis)))
	if proj.Dot(proj) < 1e-12 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatBetweenVectors(PivotReference(axis), proj).Normalize()
}

// DualPivotRotation is the spherical midpoint of the pivot rotations of two
// points around the same axis.
func DualPivotRotation(axis, p1, p2 mgl64.Vec3) mgl64.Quat {
	return Slerp(PivotRotation(axis, p1), PivotRotation(axis, p2), 0.5).Normalize()
}

// LookRotation builds the orientation whose forward (-Z) axis points from
// source to target, with up as the secondary axis. QuatLookAtV yields the
// view rotation; the orientation is its inverse.
func LookRotation(source, target, up mgl64.Vec3) mgl64.Quat {
	dir := target.Sub(source)
	if dir.Dot(dir) < 1e-12 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatLookAtV(source, target, up).Inverse().Normalize()
}

// RelativeTransform returns the delta d with target.Mul(d) == source.
func RelativeTransform(source, target Transform) Transform {
	inv := target.Rot.Inverse()
	return Transform{
		Pos: inv.Rotate(source.Pos.Sub(target.Pos)),
		Rot: inv.Mul(source.Rot).Normalize(),
	}
}

// RelativeRotation returns inverse(target) * source, normalized.
func RelativeRotation(source, target mgl64.Quat) mgl64.Quat {
	return target.Inverse().Mul(source).Normalize()
}
