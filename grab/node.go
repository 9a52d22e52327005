// Package grab implements the interactor/grabbable state machine: finding a
// handle to hold, reproducing a stable transform while one or two hands hold
// it, and handing the object back to physics with a throw on release.
//
// The package drives, but does not own, its collaborators. The scene graph,
// the physics engine, overlap queries, and device poses are injected through
// the small interfaces below.
package grab

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/handgrab/math3"
	"github.com/milk9111/handgrab/motion"
)

// Node is the spatial-node capability the grab core reads and writes.
type Node interface {
	World() math3.Transform
	SetWorld(math3.Transform)
	Local() math3.Transform
	SetLocal(math3.Transform)
	Parent() Node
	// ToWorld maps a point from the node's local space to world space.
	ToWorld(p mgl64.Vec3) mgl64.Vec3
	// ToLocal maps a world-space point into the node's local space.
	ToLocal(p mgl64.Vec3) mgl64.Vec3
}

// Body is the physics-body capability of a grabbable. While kinematic, the
// body follows transform writes; while dynamic, the simulation drives it.
// Ownership of the transform switches exactly at grab/release boundaries.
type Body interface {
	Kinematic() bool
	SetKinematic(bool)
	SetLinearVelocity(mgl64.Vec3)
	SetAngularVelocity(mgl64.Vec3)
}

// OverlapQuery reports the nodes currently overlapping an interactor's query
// shape. Optional; without it only distance search works.
type OverlapQuery interface {
	Overlapping() []Node
}

// PoseSource supplies tracked-device pose samples for an interactor.
// Optional; without it motion sampling falls back to finite differences.
type PoseSource interface {
	// Pose returns the current device pose. ok is false when the device has
	// no sample this frame.
	Pose() (p motion.Pose, ok bool)
}
