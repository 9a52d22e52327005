// Package scene provides a minimal parented spatial node implementing
// grab.Node. Hosts with their own scene graph adapt it instead; this one
// backs the tests and the playground.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/handgrab/grab"
	"github.com/milk9111/handgrab/math3"
)

// Node is a spatial node with a local transform and an optional parent.
// World transforms are computed by walking the parent chain.
type Node struct {
	name   string
	parent *Node
	local  math3.Transform
}

// NewNode creates a root node with an identity transform.
func NewNode(name string) *Node {
	return &Node{name: name, local: math3.Identity()}
}

// NewChild creates a node parented to n with an identity local transform.
func (n *Node) NewChild(name string) *Node {
	return &Node{name: name, parent: n, local: math3.Identity()}
}

// Name returns the node's name.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	return n.name
}

// Parent returns the parent node, or nil for roots.
func (n *Node) Parent() grab.Node {
	if n == nil || n.parent == nil {
		return nil
	}
	return n.parent
}

// Local returns the local transform.
func (n *Node) Local() math3.Transform {
	if n == nil {
		return math3.Identity()
	}
	return n.local
}

// SetLocal replaces the local transform.
func (n *Node) SetLocal(t math3.Transform) {
	if n == nil {
		return
	}
	n.local = t
}

// World returns the transform composed down from the root.
func (n *Node) World() math3.Transform {
	if n == nil {
		return math3.Identity()
	}
	if n.parent == nil {
		return n.local
	}
	return n.parent.World().Mul(n.local)
}

// SetWorld writes a world transform back through the parent chain.
func (n *Node) SetWorld(t math3.Transform) {
	if n == nil {
		return
	}
	if n.parent == nil {
		n.local = t
		return
	}
	n.local = math3.RelativeTransform(t, n.parent.World())
}

// ToWorld maps a local-space point to world space.
func (n *Node) ToWorld(p mgl64.Vec3) mgl64.Vec3 {
	return n.World().TransformPoint(p)
}

// ToLocal maps a world-space point into the node's local space.
func (n *Node) ToLocal(p mgl64.Vec3) mgl64.Vec3 {
	return n.World().InversePoint(p)
}
