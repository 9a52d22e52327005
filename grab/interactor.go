package grab

import (
	"fmt"
	"math"
)

// Handedness identifies which tracked hand an interactor represents.
type Handedness int

const (
	HandLeft Handedness = iota
	HandRight
)

func (h Handedness) String() string {
	if h == HandRight {
		return "right"
	}
	return "left"
}

// Interactor is one tracked hand or controller. It searches the scene for
// the closest eligible grab point, starts and stops grabs, and forwards
// device pose data to whatever it holds. Its grabbed reference is set and
// cleared exclusively by grab/release transitions.
type Interactor struct {
	hand  Handedness
	node  Node
	scene *Scene

	overlap OverlapQuery
	pose    PoseSource

	grabbed *Grabbable

	// touching caches nodes reported by persistent trigger collisions,
	// feeding the overlap search path alongside the live query.
	touching map[Node]struct{}
}

// NewInteractor creates an interactor attached to a spatial node and scene.
// Both collaborators are required; missing either is a setup error.
func NewInteractor(hand Handedness, node Node, scene *Scene) (*Interactor, error) {
	if node == nil {
		return nil, fmt.Errorf("grab: %s interactor: nil node", hand)
	}
	if scene == nil {
		return nil, fmt.Errorf("grab: %s interactor: nil scene", hand)
	}
	in := &Interactor{
		hand:     hand,
		node:     node,
		scene:    scene,
		touching: make(map[Node]struct{}),
	}
	scene.addInteractor(in)
	return in, nil
}

// Hand returns the interactor's handedness.
func (in *Interactor) Hand() Handedness {
	if in == nil {
		return HandLeft
	}
	return in.hand
}

// Node returns the attached spatial node.
func (in *Interactor) Node() Node {
	if in == nil {
		return nil
	}
	return in.node
}

// Grabbed returns the currently held grabbable, if any.
func (in *Interactor) Grabbed() *Grabbable {
	if in == nil {
		return nil
	}
	return in.grabbed
}

// SetOverlapQuery attaches an optional live collision/overlap query.
func (in *Interactor) SetOverlapQuery(q OverlapQuery) {
	if in == nil {
		return
	}
	in.overlap = q
}

// SetPoseSource attaches an optional device pose source.
func (in *Interactor) SetPoseSource(p PoseSource) {
	if in == nil {
		return
	}
	in.pose = p
}

// PoseSource returns the attached pose source, if any.
func (in *Interactor) PoseSource() PoseSource {
	if in == nil {
		return nil
	}
	return in.pose
}

// OnTriggerEnter records a node entering the interactor's trigger volume.
// Hosts wire this to their collision-event subscription.
func (in *Interactor) OnTriggerEnter(n Node) {
	if in == nil || n == nil {
		return
	}
	in.touching[n] = struct{}{}
}

// OnTriggerExit removes a node from the trigger cache.
func (in *Interactor) OnTriggerExit(n Node) {
	if in == nil || n == nil {
		return
	}
	delete(in.touching, n)
}

// CheckForNearbyInteractables scans every active grabbable in the scene for
// the closest qualifying grab point and grabs it. Distance points qualify by
// squared distance within their max distance; overlap points additionally
// need a hit in the overlap candidate set. Ties go to the first point found.
// Returns whether a grab started.
func (in *Interactor) CheckForNearbyInteractables() bool {
	if in == nil || in.grabbed != nil || in.scene == nil || in.node == nil {
		return false
	}

	candidates := in.overlapSet()
	pos := in.node.World().Pos

	var best *GrabPoint
	bestDist := math.MaxFloat64
	for _, g := range in.scene.Grabbables() {
		if g == nil || g.node == nil {
			continue
		}
		for _, p := range g.points {
			if h := p.holder; h != nil && h != in && !p.cfg.Transferable {
				continue
			}
			diff := p.WorldPosition().Sub(pos)
			d2 := diff.Dot(diff)
			if p.cfg.MaxDistance > 0 && d2 > p.cfg.MaxDistance*p.cfg.MaxDistance {
				continue
			}
			if p.cfg.Search == SearchOverlap {
				if _, ok := candidates[g.node]; !ok {
					continue
				}
			}
			if d2 < bestDist {
				bestDist = d2
				best = p
			}
		}
	}
	if best == nil {
		return false
	}
	if prev := best.holder; prev != nil && prev != in {
		// Transferable handle held by another hand: steal it.
		prev.StopInteraction()
	}
	return best.owner.Grab(in, best.index)
}

// StopInteraction releases whatever this interactor currently holds. Calling
// it with nothing held is a no-op.
func (in *Interactor) StopInteraction() {
	if in == nil || in.grabbed == nil {
		return
	}
	in.grabbed.Release(in)
}

// overlapSet unions the live overlap query with the trigger cache.
func (in *Interactor) overlapSet() map[Node]struct{} {
	set := make(map[Node]struct{}, len(in.touching))
	for n := range in.touching {
		set[n] = struct{}{}
	}
	if in.overlap != nil {
		for _, n := range in.overlap.Overlapping() {
			if n != nil {
				set[n] = struct{}{}
			}
		}
	}
	return set
}
