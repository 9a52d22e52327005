package grab_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/handgrab/grab"
	"github.com/milk9111/handgrab/math3"
	"github.com/milk9111/handgrab/motion"
	"github.com/milk9111/handgrab/scene"
)

const dt = 1.0 / 60

type fakeBody struct {
	kinematic bool
	linear    mgl64.Vec3
	angular   mgl64.Vec3
}

func (b *fakeBody) Kinematic() bool                 { return b.kinematic }
func (b *fakeBody) SetKinematic(k bool)             { b.kinematic = k }
func (b *fakeBody) SetLinearVelocity(v mgl64.Vec3)  { b.linear = v }
func (b *fakeBody) SetAngularVelocity(v mgl64.Vec3) { b.angular = v }

type fakePose struct {
	pose motion.Pose
	ok   bool
}

func (p *fakePose) Pose() (motion.Pose, bool) { return p.pose, p.ok }

func nodeAt(name string, pos mgl64.Vec3) *scene.Node {
	n := scene.NewNode(name)
	n.SetLocal(math3.Transform{Pos: pos, Rot: mgl64.QuatIdent()})
	return n
}

func mustGrabbable(t *testing.T, s *grab.Scene, name string, pos mgl64.Vec3, cfg grab.Config) (*grab.Grabbable, *scene.Node) {
	t.Helper()
	n := nodeAt(name, pos)
	g, err := grab.NewGrabbable(name, n, cfg)
	if err != nil {
		t.Fatalf("NewGrabbable: %v", err)
	}
	s.AddGrabbable(g)
	return g, n
}

func mustInteractor(t *testing.T, s *grab.Scene, hand grab.Handedness, pos mgl64.Vec3) (*grab.Interactor, *scene.Node) {
	t.Helper()
	n := nodeAt(hand.String(), pos)
	in, err := grab.NewInteractor(hand, n, s)
	if err != nil {
		t.Fatalf("NewInteractor: %v", err)
	}
	return in, n
}

func moveTo(n *scene.Node, pos mgl64.Vec3) {
	tr := n.Local()
	tr.Pos = pos
	n.SetLocal(tr)
}

func TestNewGrabbableValidation(t *testing.T) {
	if _, err := grab.NewGrabbable("broken", nil, grab.Config{}); err == nil {
		t.Fatalf("expected error for nil node")
	}

	g, err := grab.NewGrabbable("bare", scene.NewNode("bare"), grab.Config{})
	if err != nil {
		t.Fatalf("NewGrabbable: %v", err)
	}
	if len(g.Points()) != 1 {
		t.Fatalf("expected one implicit grab point, got %d", len(g.Points()))
	}
}

func TestGrabReleaseLifecycle(t *testing.T) {
	s := grab.NewScene()
	g, _ := mustGrabbable(t, s, "cube", mgl64.Vec3{0, 1, 0}, grab.Config{})
	in, _ := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{0, 1, 0})

	if !g.Grab(in, 0) {
		t.Fatalf("grab should succeed")
	}
	if !g.Held() || !g.HeldBy(in) || in.Grabbed() != g {
		t.Fatalf("grab state not established")
	}
	p := g.Points()[0]
	if p.Holder() != in || p.Hint() != grab.HintHeld {
		t.Fatalf("point holder/hint not set")
	}

	g.Release(in)
	if g.Held() || in.Grabbed() != nil {
		t.Fatalf("release did not clear state")
	}
	if p.Holder() != nil || p.Hint() != grab.HintIdle {
		t.Fatalf("point holder/hint not cleared")
	}

	evts := s.Events().Drain()
	if len(evts) != 2 || evts[0].Kind != grab.EventGrabStart || evts[1].Kind != grab.EventGrabEnd {
		t.Fatalf("expected grab_start then grab_end, got %v", evts)
	}

	// Releasing a non-holder is a no-op.
	g.Release(in)
	if got := s.Events().Drain(); len(got) != 0 {
		t.Fatalf("double release must not emit, got %v", got)
	}
}

func TestGrabMutualExclusion(t *testing.T) {
	s := grab.NewScene()
	g1, _ := mustGrabbable(t, s, "a", mgl64.Vec3{}, grab.Config{})
	g2, _ := mustGrabbable(t, s, "b", mgl64.Vec3{1, 0, 0}, grab.Config{})
	in, _ := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{})

	if !g1.Grab(in, 0) {
		t.Fatalf("first grab should succeed")
	}
	if g2.Grab(in, 0) {
		t.Fatalf("one interactor must not hold two grabbables")
	}
	if g1.Grab(in, 0) {
		t.Fatalf("re-grabbing while holding must fail")
	}
	if g1.Grab(in, 5) {
		t.Fatalf("invalid point index must fail")
	}
}

func TestGrabRejectsThirdHand(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{
		AutoSetPrimaryGrab: true,
		Points:             []grab.PointConfig{{}, {}, {}},
	}
	g, _ := mustGrabbable(t, s, "bar", mgl64.Vec3{}, cfg)
	inA, _ := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{})
	inB, _ := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{1, 0, 0})
	inC, _ := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{2, 0, 0})

	if !g.Grab(inA, 0) || !g.Grab(inB, 1) {
		t.Fatalf("two-hand hold should succeed")
	}
	if g.Grab(inC, 2) {
		t.Fatalf("third hand must be rejected")
	}
	if g.ActiveGrabs() != 2 {
		t.Fatalf("expected 2 active grabs, got %d", g.ActiveGrabs())
	}
}

func TestSingleGrabFollowsHand(t *testing.T) {
	s := grab.NewScene()
	g, gn := mustGrabbable(t, s, "cube", mgl64.Vec3{0, 1, 0}, grab.Config{})
	in, hn := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{0.1, 1, 0})

	if !g.Grab(in, 0) {
		t.Fatalf("grab should succeed")
	}
	// The offset at grab time must be preserved while held.
	offset := gn.World().Pos.Sub(hn.World().Pos)

	moveTo(hn, mgl64.Vec3{2, 3, -1})
	s.Update(dt)

	want := hn.World().Pos.Add(offset)
	if gn.World().Pos.Sub(want).Len() > 1e-9 {
		t.Fatalf("grabbable drifted: want %v, got %v", want, gn.World().Pos)
	}
	if math3.AngleBetween(gn.World().Rot, mgl64.QuatIdent()) > 1e-9 {
		t.Fatalf("rotation should track the unrotated hand")
	}
}

func TestSnapPositionRotationPutsPointOnHand(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{
		Points: []grab.PointConfig{{
			Snap:        grab.SnapPositionRotation,
			LocalOffset: mgl64.Vec3{0.15, 0, 0},
		}},
	}
	g, gn := mustGrabbable(t, s, "tool", mgl64.Vec3{0, 1, 0}, cfg)
	in, hn := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{2, 0, 1})

	if !g.Grab(in, 0) {
		t.Fatalf("grab should succeed")
	}
	s.Update(dt)

	pointWorld := gn.ToWorld(mgl64.Vec3{0.15, 0, 0})
	if pointWorld.Sub(hn.World().Pos).Len() > 1e-9 {
		t.Fatalf("snap should place the grab point on the hand: point %v, hand %v", pointWorld, hn.World().Pos)
	}

	moveTo(hn, mgl64.Vec3{-1, 4, 0.5})
	s.Update(dt)
	pointWorld = gn.ToWorld(mgl64.Vec3{0.15, 0, 0})
	if pointWorld.Sub(hn.World().Pos).Len() > 1e-9 {
		t.Fatalf("snap must hold through movement: point %v, hand %v", pointWorld, hn.World().Pos)
	}
}

func TestBlendedGrabConverges(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{
		LerpFactor: 0.35,
		Points: []grab.PointConfig{{
			Snap: grab.SnapPositionRotation,
		}},
	}
	g, gn := mustGrabbable(t, s, "cube", mgl64.Vec3{0, 1, 0}, cfg)
	in, hn := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{1, 1, 0})

	if !g.Grab(in, 0) {
		t.Fatalf("grab should succeed")
	}

	s.Update(dt)
	first := gn.World().Pos.Sub(hn.World().Pos).Len()
	if first < 1e-6 {
		t.Fatalf("blend should not land on the first frame")
	}

	for i := 0; i < 64; i++ {
		s.Update(dt)
	}
	if gn.World().Pos.Sub(hn.World().Pos).Len() > 1e-9 {
		t.Fatalf("blend never converged: %v vs %v", gn.World().Pos, hn.World().Pos)
	}
}

func TestAutoReleaseThrowsBeyondDistance(t *testing.T) {
	s := grab.NewScene()
	body := &fakeBody{}
	cfg := grab.Config{
		CanThrow:              true,
		ThrowLinearIntensity:  1,
		ThrowAngularIntensity: 1,
		ReleaseDistance:       0.25,
	}
	g, _ := mustGrabbable(t, s, "cube", mgl64.Vec3{0, 1, 0}, cfg)
	g.SetBody(body)
	in, hn := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{0, 1, 0})

	if !g.Grab(in, 0) {
		t.Fatalf("grab should succeed")
	}
	if !body.kinematic {
		t.Fatalf("held body must be kinematic")
	}
	s.Events().Drain()

	moveTo(hn, mgl64.Vec3{0, 1, 0.3})
	s.Update(dt)

	if g.Held() || in.Grabbed() != nil {
		t.Fatalf("drifting past the release distance must release the grab")
	}
	if body.kinematic {
		t.Fatalf("released body must return to physics control")
	}

	evts := s.Events().Drain()
	if len(evts) != 2 || evts[0].Kind != grab.EventGrabEnd || evts[1].Kind != grab.EventThrow {
		t.Fatalf("expected grab_end then throw, got %v", evts)
	}
}

func TestThrowVelocityFromMotionHistory(t *testing.T) {
	s := grab.NewScene()
	body := &fakeBody{}
	cfg := grab.Config{
		CanThrow:              true,
		ThrowLinearIntensity:  1.2,
		ThrowAngularIntensity: 1,
	}
	g, _ := mustGrabbable(t, s, "cube", mgl64.Vec3{}, cfg)
	g.SetBody(body)
	in, hn := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{})

	if !g.Grab(in, 0) {
		t.Fatalf("grab should succeed")
	}

	// 1 m/s along +X for a full tracker window.
	step := 0.1
	pos := mgl64.Vec3{}
	for i := 0; i < g.Tracker().Depth(); i++ {
		pos = pos.Add(mgl64.Vec3{1 * step, 0, 0})
		moveTo(hn, pos)
		s.Update(step)
	}

	in.StopInteraction()

	if math.Abs(body.linear.X()-1.2) > 1e-9 {
		t.Fatalf("expected thrown velocity 1.2 m/s, got %v", body.linear)
	}
	if body.angular.Len() > 1e-9 {
		t.Fatalf("straight-line throw should carry no spin, got %v", body.angular)
	}
}

func TestReleaseWithoutThrowRestoresKinematicState(t *testing.T) {
	s := grab.NewScene()
	body := &fakeBody{kinematic: true}
	g, _ := mustGrabbable(t, s, "panel", mgl64.Vec3{}, grab.Config{})
	g.SetBody(body)
	in, _ := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{})

	g.Grab(in, 0)
	g.Release(in)

	if !body.kinematic {
		t.Fatalf("a body kinematic before the grab must stay kinematic after")
	}
	for _, evt := range s.Events().Drain() {
		if evt.Kind == grab.EventThrow {
			t.Fatalf("no throw expected when CanThrow is unset")
		}
	}
}

func TestPrimarySlotOrdering(t *testing.T) {
	points := []grab.PointConfig{{}, {}}

	t.Run("main_handle_forced_primary", func(t *testing.T) {
		s := grab.NewScene()
		g, _ := mustGrabbable(t, s, "rifle", mgl64.Vec3{}, grab.Config{Points: points})
		inA, _ := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{0.2, 0, 0})
		inB, _ := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{-0.2, 0, 0})

		g.Grab(inA, 1)
		g.Grab(inB, 0)
		if g.PrimaryInteractor() != inB {
			t.Fatalf("grab point 0 must take the primary slot")
		}
	})

	t.Run("arrival_order_kept", func(t *testing.T) {
		s := grab.NewScene()
		g, _ := mustGrabbable(t, s, "rifle", mgl64.Vec3{}, grab.Config{AutoSetPrimaryGrab: true, Points: points})
		inA, _ := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{0.2, 0, 0})
		inB, _ := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{-0.2, 0, 0})

		g.Grab(inA, 1)
		g.Grab(inB, 0)
		if g.PrimaryInteractor() != inA {
			t.Fatalf("AutoSetPrimaryGrab must keep arrival order")
		}
	})
}

func TestDualHoldTranslationInvariance(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{
		AutoSetPrimaryGrab: true,
		Points:             []grab.PointConfig{{}, {}},
	}
	g, gn := mustGrabbable(t, s, "crate", mgl64.Vec3{0.5, 0, 0}, cfg)
	inA, hnA := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{})
	inB, hnB := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{1, 0, 0})

	if !g.Grab(inA, 0) || !g.Grab(inB, 1) {
		t.Fatalf("dual grab should succeed")
	}

	s.Update(dt)
	before := gn.World()

	shift := mgl64.Vec3{0.3, -0.2, 0.5}
	moveTo(hnA, hnA.World().Pos.Add(shift))
	moveTo(hnB, hnB.World().Pos.Add(shift))
	s.Update(dt)

	after := gn.World()
	if after.Pos.Sub(before.Pos.Add(shift)).Len() > 1e-9 {
		t.Fatalf("moving both hands together must translate the hold exactly: %v vs %v", after.Pos, before.Pos.Add(shift))
	}
	if math3.AngleBetween(after.Rot, before.Rot) > 1e-9 {
		t.Fatalf("pure translation must not rotate the hold")
	}
}

func TestDualHoldRotatesWithHandLine(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{
		AutoSetPrimaryGrab: true,
		Points:             []grab.PointConfig{{}, {}},
	}
	g, gn := mustGrabbable(t, s, "crate", mgl64.Vec3{0.5, 0, 0}, cfg)
	inA, _ := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{})
	inB, hnB := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{1, 0, 0})

	g.Grab(inA, 0)
	g.Grab(inB, 1)
	s.Update(dt)
	before := gn.World().Rot

	// Swing the secondary hand a quarter turn about the primary, around Y.
	moveTo(hnB, mgl64.Vec3{0, 0, -1})
	s.Update(dt)

	got := math3.AngleBetween(gn.World().Rot, before)
	if math.Abs(got-math.Pi/2) > 1e-6 {
		t.Fatalf("expected a quarter-turn of the hold, got %v", got)
	}
}

func TestDualToSingleContinuity(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{
		AutoSetPrimaryGrab: true,
		Points:             []grab.PointConfig{{}, {}},
	}
	g, gn := mustGrabbable(t, s, "crate", mgl64.Vec3{0.5, 0.2, 0}, cfg)
	inA, hnA := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{})
	inB, hnB := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{1, 0, 0})

	g.Grab(inA, 0)
	g.Grab(inB, 1)

	moveTo(hnA, mgl64.Vec3{0.1, 0.4, 0})
	moveTo(hnB, mgl64.Vec3{0.9, 0.1, 0.3})
	s.Update(dt)

	g.Release(inB)
	before := gn.World()

	// The remaining hand has not moved; the pose must not jump.
	s.Update(dt)
	after := gn.World()
	if after.Pos.Sub(before.Pos).Len() > 1e-9 {
		t.Fatalf("dual-to-single transition jumped: %v vs %v", after.Pos, before.Pos)
	}
	if math3.AngleBetween(after.Rot, before.Rot) > 1e-9 {
		t.Fatalf("dual-to-single transition rotated")
	}
}

func TestPivotRotationFollowsHand(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{
		Rotation:  grab.RotateAroundPivot,
		PivotAxis: mgl64.Vec3{0, 0, 1},
		Constraints: [3]grab.AxisConstraint{
			{Locked: true}, {Locked: true}, {Locked: true},
		},
	}
	g, gn := mustGrabbable(t, s, "valve", mgl64.Vec3{}, cfg)
	in, hn := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{0, 1, 0})

	if !g.Grab(in, 0) {
		t.Fatalf("grab should succeed")
	}

	moveTo(hn, mgl64.Vec3{-1, 0, 0})
	s.Update(dt)

	want := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	if math3.AngleBetween(gn.Local().Rot, want) > 1e-6 {
		t.Fatalf("expected quarter turn about the pivot, got %v", gn.Local().Rot)
	}
	if gn.Local().Pos.Len() > 1e-9 {
		t.Fatalf("locked axes must pin the position, got %v", gn.Local().Pos)
	}
}

func TestAxisConstraints(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{
		Constraints: [3]grab.AxisConstraint{
			{Min: -0.5, Max: 0.5}, // clamp X
			{},                    // free Y
			{Locked: true},        // pin Z
		},
	}
	g, gn := mustGrabbable(t, s, "slider", mgl64.Vec3{}, cfg)
	in, hn := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{})

	if !g.Grab(in, 0) {
		t.Fatalf("grab should succeed")
	}

	moveTo(hn, mgl64.Vec3{2, 3, 4})
	s.Update(dt)

	local := gn.Local().Pos
	if math.Abs(local.X()-0.5) > 1e-9 {
		t.Fatalf("X should clamp to 0.5, got %v", local.X())
	}
	if math.Abs(local.Y()-3) > 1e-9 {
		t.Fatalf("Y should be free, got %v", local.Y())
	}
	if math.Abs(local.Z()) > 1e-9 {
		t.Fatalf("Z should stay pinned at its grab-start value, got %v", local.Z())
	}
}

func TestControllerVelocityPreferred(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{UseControllerVelocityData: true}
	g, _ := mustGrabbable(t, s, "cube", mgl64.Vec3{}, cfg)
	in, _ := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{})
	in.SetPoseSource(&fakePose{
		pose: motion.Pose{
			Rotation:       mgl64.QuatIdent(),
			LinearVelocity: mgl64.Vec3{0, 5, 0},
			HasVelocity:    true,
		},
		ok: true,
	})

	g.Grab(in, 0)
	for i := 0; i < g.Tracker().Depth(); i++ {
		s.Update(dt)
	}

	got := g.Tracker().Velocity()
	if math.Abs(got.Y()-5) > 1e-9 {
		t.Fatalf("device velocity should drive the tracker, got %v", got)
	}
}

func TestListenersSeeEvents(t *testing.T) {
	s := grab.NewScene()
	g, _ := mustGrabbable(t, s, "cube", mgl64.Vec3{}, grab.Config{})
	in, _ := mustInteractor(t, s, grab.HandLeft, mgl64.Vec3{})

	var kinds []grab.EventKind
	g.AddListener(func(evt grab.Event) {
		kinds = append(kinds, evt.Kind)
	})

	g.Grab(in, 0)
	g.Release(in)

	if len(kinds) != 2 || kinds[0] != grab.EventGrabStart || kinds[1] != grab.EventGrabEnd {
		t.Fatalf("listener missed events: %v", kinds)
	}
}

func TestRemoveGrabbableReleasesGrabs(t *testing.T) {
	s := grab.NewScene()
	g, _ := mustGrabbable(t, s, "cube", mgl64.Vec3{}, grab.Config{})
	in, _ := mustInteractor(t, s, grab.HandRight, mgl64.Vec3{})

	g.Grab(in, 0)
	s.RemoveGrabbable(g)

	if in.Grabbed() != nil || g.Held() {
		t.Fatalf("removing a held grabbable must release it")
	}
	if len(s.Grabbables()) != 0 {
		t.Fatalf("grabbable still registered")
	}
}

func TestRetuneKeepsPoints(t *testing.T) {
	s := grab.NewScene()
	cfg := grab.Config{
		LerpFactor: 0.2,
		Points:     []grab.PointConfig{{MaxDistance: 0.3}, {MaxDistance: 0.5}},
	}
	g, _ := mustGrabbable(t, s, "cube", mgl64.Vec3{}, cfg)

	g.Retune(grab.Config{LerpFactor: 0.9})

	if got := g.Config().LerpFactor; got != 0.9 {
		t.Fatalf("retune did not apply, got %v", got)
	}
	if len(g.Points()) != 2 {
		t.Fatalf("retune must not touch grab points, got %d", len(g.Points()))
	}
}
