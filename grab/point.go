package grab

import "github.com/go-gl/mathgl/mgl64"

// SearchMode selects how an interactor qualifies a grab point.
type SearchMode int

const (
	// SearchDistance qualifies a point by squared Euclidean distance.
	SearchDistance SearchMode = iota
	// SearchOverlap qualifies a point by a hit in the interactor's overlap set.
	SearchOverlap
)

// SnapMode selects how the grabbable aligns to the hand at grab time.
type SnapMode int

const (
	// SnapNone keeps whatever offset hand and grabbable had at grab time.
	SnapNone SnapMode = iota
	// SnapPositionRotation aligns the grab point's transform onto the hand.
	SnapPositionRotation
)

// VisualHint mirrors point state for host-side rendering.
type VisualHint int

const (
	HintIdle VisualHint = iota
	HintHighlighted
	HintHeld
)

// PointConfig configures one grab point.
type PointConfig struct {
	Search       SearchMode
	Snap         SnapMode
	MaxDistance  float64
	Transferable bool
	// LocalOffset places the point in the grabbable's local space.
	LocalOffset mgl64.Vec3
}

// GrabPoint is a passive handle descriptor on a grabbable. It has no
// behavior beyond accessors; invalid configuration is a caller error at
// setup time. The holder back-reference is weak: set only by the owning
// grabbable's grab/release transitions and used for lookups, never for
// ownership.
type GrabPoint struct {
	owner  *Grabbable
	index  int
	cfg    PointConfig
	holder *Interactor
	hint   VisualHint
}

// Owner returns the grabbable this point belongs to.
func (p *GrabPoint) Owner() *Grabbable {
	if p == nil {
		return nil
	}
	return p.owner
}

// Index returns the point's index on its owner.
func (p *GrabPoint) Index() int {
	if p == nil {
		return 0
	}
	return p.index
}

// Config returns the point's configuration.
func (p *GrabPoint) Config() PointConfig {
	if p == nil {
		return PointConfig{}
	}
	return p.cfg
}

// Holder returns the interactor currently holding this point, if any.
func (p *GrabPoint) Holder() *Interactor {
	if p == nil {
		return nil
	}
	return p.holder
}

// Hint returns the current visual-state hint.
func (p *GrabPoint) Hint() VisualHint {
	if p == nil {
		return HintIdle
	}
	return p.hint
}

// SetHint lets hosts override the visual-state hint, e.g. for highlighting.
func (p *GrabPoint) SetHint(h VisualHint) {
	if p == nil {
		return
	}
	p.hint = h
}

// WorldPosition returns the point's position in world space.
func (p *GrabPoint) WorldPosition() mgl64.Vec3 {
	if p == nil || p.owner == nil || p.owner.node == nil {
		return mgl64.Vec3{}
	}
	return p.owner.node.ToWorld(p.cfg.LocalOffset)
}
