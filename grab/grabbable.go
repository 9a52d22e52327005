package grab

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/handgrab/math3"
	"github.com/milk9111/handgrab/motion"
)

// RotationMode selects how a held grabbable derives its rotation.
type RotationMode int

const (
	// RotateHand follows the holding hand's rotation.
	RotateHand RotationMode = iota
	// RotateAroundPivot rotates about a fixed local axis, driven by the
	// hand's position relative to that axis. Hinge/wheel manipulation.
	RotateAroundPivot
)

// AxisConstraint bounds one local translation axis. A locked axis is pinned
// to its grab-start value; Min < Max clamps to that range; anything else
// leaves the axis free.
type AxisConstraint struct {
	Locked bool
	Min    float64
	Max    float64
}

// Config tunes a grabbable.
type Config struct {
	Rotation  RotationMode
	PivotAxis mgl64.Vec3

	Constraints [3]AxisConstraint

	CanThrow              bool
	ThrowLinearIntensity  float64
	ThrowAngularIntensity float64

	// ReleaseDistance / ReleaseDistanceDual auto-release a grab whose anchor
	// drifts further than this from the holding hand. <= 0 disables the check.
	ReleaseDistance     float64
	ReleaseDistanceDual float64

	// LerpFactor blends the pose toward its target each frame until the
	// residual error drops under the snap epsilon. 0 writes the target
	// directly every frame.
	LerpFactor float64

	// AutoSetPrimaryGrab keeps grabs in arrival order. When unset, grab
	// point 0 is forced into the primary slot on a two-hand hold.
	AutoSetPrimaryGrab bool

	// UseControllerVelocityData prefers device-reported velocity for motion
	// sampling when the primary hand has a pose source.
	UseControllerVelocityData bool

	Points []PointConfig
}

// grabData is the transient record of one active grab.
type grabData struct {
	interactor *Interactor
	pointIndex int

	// delta reproduces the held pose: interactor world * delta.
	delta math3.Transform
	// anchorLocal is the grab point's position in grabbable local space at
	// grab time, used for release-distance checks.
	anchorLocal mgl64.Vec3
	// pivotBase composes with the per-frame pivot rotation in
	// RotateAroundPivot mode.
	pivotBase mgl64.Quat
}

// Grabbable is an object that can be picked up, held by one or two
// interactors, constrained, and thrown. All state transitions happen in
// Grab/Release; Update only recomputes the transform from current inputs.
type Grabbable struct {
	name  string
	node  Node
	body  Body
	cfg   Config
	scene *Scene

	points []*GrabPoint
	grabs  []*grabData // slot 0 is primary

	tracker *motion.Tracker

	wasKinematic   bool
	blending       bool
	grabStartLocal mgl64.Vec3

	// dual-hold data, derived when the second grab starts.
	dualUpLocal mgl64.Vec3
	dualDelta   math3.Transform

	listeners []func(Event)
}

// NewGrabbable creates a grabbable driving node. A grabbable created without
// a spatial node is a setup error. When cfg carries no points, one implicit
// distance point at the local origin is added.
func NewGrabbable(name string, node Node, cfg Config) (*Grabbable, error) {
	if node == nil {
		return nil, fmt.Errorf("grab: grabbable %q: nil node", name)
	}
	if len(cfg.Points) == 0 {
		cfg.Points = []PointConfig{{Search: SearchDistance}}
	}
	g := &Grabbable{
		name:    name,
		node:    node,
		cfg:     cfg,
		tracker: motion.NewTracker(motion.DefaultDepth),
	}
	for i, pc := range cfg.Points {
		g.points = append(g.points, &GrabPoint{owner: g, index: i, cfg: pc})
	}
	return g, nil
}

// SetBody attaches an optional physics body. Grabbables need not be physical.
func (g *Grabbable) SetBody(b Body) {
	if g == nil {
		return
	}
	g.body = b
}

// Name returns the grabbable's name.
func (g *Grabbable) Name() string {
	if g == nil {
		return ""
	}
	return g.name
}

// Node returns the driven spatial node.
func (g *Grabbable) Node() Node {
	if g == nil {
		return nil
	}
	return g.node
}

// Body returns the attached physics body, if any.
func (g *Grabbable) Body() Body {
	if g == nil {
		return nil
	}
	return g.body
}

// Config returns the current tuning.
func (g *Grabbable) Config() Config {
	if g == nil {
		return Config{}
	}
	return g.cfg
}

// Points returns the grab points.
func (g *Grabbable) Points() []*GrabPoint {
	if g == nil {
		return nil
	}
	return g.points
}

// ActiveGrabs returns the number of hands currently holding the grabbable.
func (g *Grabbable) ActiveGrabs() int {
	if g == nil {
		return 0
	}
	return len(g.grabs)
}

// Held reports whether at least one hand holds the grabbable.
func (g *Grabbable) Held() bool {
	return g.ActiveGrabs() > 0
}

// PrimaryInteractor returns the interactor in the primary grab slot.
func (g *Grabbable) PrimaryInteractor() *Interactor {
	if g == nil || len(g.grabs) == 0 {
		return nil
	}
	return g.grabs[0].interactor
}

// HeldBy reports whether in holds one of the grabbable's points.
func (g *Grabbable) HeldBy(in *Interactor) bool {
	if g == nil || in == nil {
		return false
	}
	for _, d := range g.grabs {
		if d.interactor == in {
			return true
		}
	}
	return false
}

// Tracker returns the motion history tracker.
func (g *Grabbable) Tracker() *motion.Tracker {
	if g == nil {
		return nil
	}
	return g.tracker
}

// AddListener registers a synchronous event observer.
func (g *Grabbable) AddListener(fn func(Event)) {
	if g == nil || fn == nil {
		return
	}
	g.listeners = append(g.listeners, fn)
}

// Retune replaces the scalar tuning of the grabbable without touching its
// grab points or active grabs. Used for hot-reloaded specs.
func (g *Grabbable) Retune(cfg Config) {
	if g == nil {
		return
	}
	cfg.Points = g.cfg.Points
	g.cfg = cfg
}

// Grab attaches an interactor to the given grab point. It is a silent no-op
// when both slots are full, the interactor already holds something, the
// point index is invalid, or the point is held by a non-transferable holder.
// Returns whether the grab took effect.
func (g *Grabbable) Grab(in *Interactor, pointIndex int) bool {
	if g == nil || in == nil || in.node == nil {
		return false
	}
	if len(g.grabs) >= 2 || in.grabbed != nil {
		return false
	}
	if pointIndex < 0 || pointIndex >= len(g.points) {
		return false
	}
	point := g.points[pointIndex]
	if prev := point.holder; prev != nil {
		if !point.cfg.Transferable {
			return false
		}
		g.Release(prev)
		if len(g.grabs) >= 2 {
			return false
		}
	}

	d := &grabData{interactor: in, pointIndex: pointIndex}
	world := g.node.World()
	hand := in.node.World()
	switch point.cfg.Snap {
	case SnapPositionRotation:
		// Delta between the grabbable and the snapping source, so that
		// source * delta reproduces the exact held pose with the point on
		// the hand.
		source := world.Mul(math3.Transform{Pos: point.cfg.LocalOffset, Rot: mgl64.QuatIdent()})
		d.delta = math3.RelativeTransform(world, source)
	default:
		d.delta = math3.RelativeTransform(world, hand)
	}
	d.anchorLocal = g.node.ToLocal(point.WorldPosition())
	d.pivotBase = math3.RelativeRotation(g.node.Local().Rot, math3.PivotRotation(g.cfg.PivotAxis, g.handleLocal(in)))

	g.grabs = append(g.grabs, d)
	if !g.cfg.AutoSetPrimaryGrab && len(g.grabs) == 2 && d.pointIndex == 0 {
		// The designated main handle stays primary during two-hand holds.
		g.grabs[0], g.grabs[1] = g.grabs[1], g.grabs[0]
	}

	point.holder = in
	point.hint = HintHeld
	in.grabbed = g
	g.blending = true

	if len(g.grabs) == 1 {
		if g.body != nil {
			g.wasKinematic = g.body.Kinematic()
			g.body.SetKinematic(true)
		}
		g.tracker.Reset(world)
		g.grabStartLocal = g.node.Local().Pos
		g.emit(Event{Kind: EventGrabStart, Grabbable: g, Interactor: in})
	} else {
		g.initDualHold()
	}
	return true
}

// Release detaches an interactor. Releasing an interactor that does not hold
// the grabbable is a no-op. When the last grab ends the body returns to
// physics control, with a throw when configured.
func (g *Grabbable) Release(in *Interactor) {
	if g == nil || in == nil {
		return
	}
	idx := -1
	for i, d := range g.grabs {
		if d.interactor == in {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	d := g.grabs[idx]
	g.grabs = append(g.grabs[:idx], g.grabs[idx+1:]...)
	if d.pointIndex >= 0 && d.pointIndex < len(g.points) {
		p := g.points[d.pointIndex]
		p.holder = nil
		p.hint = HintIdle
	}
	if in.grabbed == g {
		in.grabbed = nil
	}

	switch len(g.grabs) {
	case 1:
		// Re-anchor the remaining hand to the current pose so it does not jump.
		rem := g.grabs[0]
		rem.delta = math3.RelativeTransform(g.node.World(), rem.interactor.node.World())
		rem.pivotBase = math3.RelativeRotation(g.node.Local().Rot, math3.PivotRotation(g.cfg.PivotAxis, g.handleLocal(rem.interactor)))
		g.blending = true
	case 0:
		g.emit(Event{Kind: EventGrabEnd, Grabbable: g, Interactor: in})
		if g.body != nil {
			if g.cfg.CanThrow {
				g.throw(in)
			} else {
				g.body.SetKinematic(g.wasKinematic)
			}
		}
	}
}

// Update recomputes the transform from the current hand poses and samples
// motion. It runs only while at least one grab is active and never mutates
// the grab list except through auto-release.
func (g *Grabbable) Update(dt float64) {
	if g == nil || len(g.grabs) == 0 {
		return
	}
	g.checkAutoRelease()
	if len(g.grabs) == 0 {
		return
	}

	switch {
	case len(g.grabs) == 1 && g.cfg.Rotation == RotateHand:
		d := g.grabs[0]
		g.applyWorld(d.interactor.node.World().Mul(d.delta))
	case len(g.grabs) == 1:
		g.applyPivot(math3.PivotRotation(g.cfg.PivotAxis, g.handleLocal(g.grabs[0].interactor)))
	case g.cfg.Rotation == RotateHand:
		g.applyWorld(g.dualTarget())
	default:
		rot := math3.DualPivotRotation(g.cfg.PivotAxis,
			g.handleLocal(g.grabs[0].interactor),
			g.handleLocal(g.grabs[1].interactor))
		g.applyPivot(rot)
	}

	g.applyConstraints()
	g.sampleMotion(dt)
}

func (g *Grabbable) checkAutoRelease() {
	threshold := g.cfg.ReleaseDistance
	if len(g.grabs) == 2 {
		threshold = g.cfg.ReleaseDistanceDual
	}
	if threshold <= 0 {
		return
	}
	// Release mutates the grab list; walk a copy.
	active := append([]*grabData(nil), g.grabs...)
	for _, d := range active {
		anchor := g.node.ToWorld(d.anchorLocal)
		diff := anchor.Sub(d.interactor.node.World().Pos)
		if diff.Dot(diff) > threshold*threshold {
			g.Release(d.interactor)
		}
	}
}

func (g *Grabbable) applyWorld(target math3.Transform) {
	if !g.blending || g.cfg.LerpFactor <= 0 {
		g.blending = false
		g.node.SetWorld(target)
		return
	}
	next, done := math3.Blend(g.node.World(), target, g.cfg.LerpFactor)
	g.node.SetWorld(next)
	if done {
		g.blending = false
	}
}

func (g *Grabbable) applyPivot(rot mgl64.Quat) {
	local := g.node.Local()
	local.Rot = rot.Mul(g.grabs[0].pivotBase).Normalize()
	g.node.SetLocal(local)
}

// dualTarget anchors a look rotation at the primary hand, pointing along the
// line between the two hands, then re-applies the displacement captured when
// the second hand grabbed.
func (g *Grabbable) dualTarget() math3.Transform {
	p := g.grabs[0].interactor.node.World()
	s := g.grabs[1].interactor.node.World()
	up := s.Rot.Rotate(g.dualUpLocal)
	look := math3.LookRotation(p.Pos, s.Pos, up)
	return math3.Transform{Pos: p.Pos, Rot: look}.Mul(g.dualDelta)
}

// initDualHold derives the combined two-hand relative transform. The up axis
// is whichever of the secondary hand's up/forward vectors is more vertically
// aligned at grab time.
func (g *Grabbable) initDualHold() {
	p := g.grabs[0].interactor.node.World()
	s := g.grabs[1].interactor.node.World()

	localUp := mgl64.Vec3{0, 1, 0}
	localFwd := mgl64.Vec3{0, 0, -1}
	worldUp := mgl64.Vec3{0, 1, 0}
	g.dualUpLocal = localUp
	if absDot(s.Rot.Rotate(localFwd), worldUp) > absDot(s.Rot.Rotate(localUp), worldUp) {
		g.dualUpLocal = localFwd
	}

	look := math3.LookRotation(p.Pos, s.Pos, s.Rot.Rotate(g.dualUpLocal))
	g.dualDelta = math3.RelativeTransform(g.node.World(), math3.Transform{Pos: p.Pos, Rot: look})

	g.grabs[0].pivotBase = math3.RelativeRotation(g.node.Local().Rot, math3.DualPivotRotation(g.cfg.PivotAxis,
		g.handleLocal(g.grabs[0].interactor),
		g.handleLocal(g.grabs[1].interactor)))
	g.blending = true
}

// handleLocal returns the hand position relative to the grabbable's pivot,
// in the grabbable's parent space.
func (g *Grabbable) handleLocal(in *Interactor) mgl64.Vec3 {
	hand := in.node.World().Pos
	if parent := g.node.Parent(); parent != nil {
		hand = parent.ToLocal(hand)
	}
	return hand.Sub(g.node.Local().Pos)
}

func (g *Grabbable) applyConstraints() {
	local := g.node.Local()
	changed := false
	for i := 0; i < 3; i++ {
		c := g.cfg.Constraints[i]
		v := local.Pos[i]
		switch {
		case c.Locked:
			v = g.grabStartLocal[i]
		case c.Min < c.Max:
			if v < c.Min {
				v = c.Min
			}
			if v > c.Max {
				v = c.Max
			}
		default:
			continue
		}
		if v != local.Pos[i] {
			local.Pos[i] = v
			changed = true
		}
	}
	if changed {
		g.node.SetLocal(local)
	}
}

func (g *Grabbable) sampleMotion(dt float64) {
	primary := g.grabs[0].interactor
	if g.cfg.UseControllerVelocityData && primary.pose != nil {
		if p, ok := primary.pose.Pose(); ok {
			g.tracker.UpdateFromPose(p, g.node.World(), dt)
			return
		}
	}
	g.tracker.Update(g.node.World(), dt)
}

// throw hands the body back to the simulation with the tracker's smoothed
// velocities. The lever-arm term adds the tangential velocity induced by
// rotating about an off-center hand.
func (g *Grabbable) throw(in *Interactor) {
	g.body.SetKinematic(g.wasKinematic)
	lin := g.tracker.Velocity().Mul(g.cfg.ThrowLinearIntensity)
	ang := g.tracker.Angular().Mul(g.cfg.ThrowAngularIntensity)
	lever := in.node.World().Pos.Sub(g.node.World().Pos)
	lin = lin.Add(ang.Cross(lever))
	g.body.SetLinearVelocity(lin)
	g.body.SetAngularVelocity(ang)
	g.emit(Event{
		Kind:            EventThrow,
		Grabbable:       g,
		Interactor:      in,
		LinearVelocity:  lin,
		AngularVelocity: ang,
	})
}

func (g *Grabbable) emit(evt Event) {
	for _, fn := range g.listeners {
		fn(evt)
	}
	if g.scene != nil {
		g.scene.push(evt)
	}
}

func absDot(a, b mgl64.Vec3) float64 {
	d := a.Dot(b)
	if d < 0 {
		return -d
	}
	return d
}
