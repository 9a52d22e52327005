package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/handgrab/grab"
	"github.com/milk9111/handgrab/math3"
)

// cpNode adapts a Chipmunk body to grab.Node on the z = 0 plane, rotating
// about +Z. Chipmunk bodies have no parent, so local and world agree.
type cpNode struct {
	body *cp.Body
}

func (n *cpNode) World() math3.Transform {
	p := n.body.Position()
	return math3.Transform{
		Pos: mgl64.Vec3{p.X, p.Y, 0},
		Rot: mgl64.QuatRotate(n.body.Angle(), mgl64.Vec3{0, 0, 1}),
	}
}

func (n *cpNode) SetWorld(t math3.Transform) {
	n.body.SetPosition(cp.Vector{X: t.Pos.X(), Y: t.Pos.Y()})
	// Project the rotation onto the plane's rotation axis.
	x := t.Rot.Rotate(mgl64.Vec3{1, 0, 0})
	n.body.SetAngle(math.Atan2(x.Y(), x.X()))
}

func (n *cpNode) Local() math3.Transform     { return n.World() }
func (n *cpNode) SetLocal(t math3.Transform) { n.SetWorld(t) }
func (n *cpNode) Parent() grab.Node          { return nil }

func (n *cpNode) ToWorld(p mgl64.Vec3) mgl64.Vec3 {
	return n.World().TransformPoint(p)
}

func (n *cpNode) ToLocal(p mgl64.Vec3) mgl64.Vec3 {
	return n.World().InversePoint(p)
}

// cpBody adapts a Chipmunk body to grab.Body. Kinematic bodies follow the
// grab core's transform writes; dynamic bodies follow the simulation.
type cpBody struct {
	body *cp.Body
}

func (b *cpBody) Kinematic() bool {
	return b.body.GetType() == cp.BODY_KINEMATIC
}

func (b *cpBody) SetKinematic(kinematic bool) {
	if kinematic {
		b.body.SetType(cp.BODY_KINEMATIC)
		b.body.SetVelocityVector(cp.Vector{})
		b.body.SetAngularVelocity(0)
		return
	}
	b.body.SetType(cp.BODY_DYNAMIC)
}

func (b *cpBody) SetLinearVelocity(v mgl64.Vec3) {
	b.body.SetVelocityVector(cp.Vector{X: v.X(), Y: v.Y()})
}

func (b *cpBody) SetAngularVelocity(v mgl64.Vec3) {
	// Only the plane's rotation axis survives the projection.
	b.body.SetAngularVelocity(v.Z())
}
