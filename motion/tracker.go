package motion

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/handgrab/math3"
)

// DefaultDepth is the number of samples a Tracker retains.
const DefaultDepth = 4

// Pose is one frame of tracked-device data. Velocities are device-reported
// and optional; HasVelocity says whether they were supplied.
type Pose struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	HasVelocity     bool
}

// Tracker keeps a rolling window of linear and angular velocity samples and
// reports their means. It serves both per-frame smoothing and throw
// estimation. The window is fixed at construction; no allocation happens
// after that.
type Tracker struct {
	linear  []mgl64.Vec3
	angular []mgl64.Vec3
	next    int

	lastPos mgl64.Vec3
	lastRot mgl64.Quat
	primed  bool
}

// NewTracker creates a tracker with the given window depth. Depth <= 0 uses
// DefaultDepth.
func NewTracker(depth int) *Tracker {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Tracker{
		linear:  make([]mgl64.Vec3, depth),
		angular: make([]mgl64.Vec3, depth),
		lastRot: mgl64.QuatIdent(),
	}
}

// Depth returns the window size.
func (t *Tracker) Depth() int {
	if t == nil {
		return 0
	}
	return len(t.linear)
}

// Reset zeroes the window and records the pose as the finite-difference
// baseline.
func (t *Tracker) Reset(tr math3.Transform) {
	if t == nil {
		return
	}
	for i := range t.linear {
		t.linear[i] = mgl64.Vec3{}
		t.angular[i] = mgl64.Vec3{}
	}
	t.next = 0
	t.lastPos = tr.Pos
	t.lastRot = tr.Rot
	t.primed = true
}

// Update appends a finite-difference sample from the current pose. The
// angular sample comes from the quaternion delta against the previous frame.
func (t *Tracker) Update(tr math3.Transform, dt float64) {
	if t == nil || dt <= 0 {
		return
	}
	if !t.primed {
		t.Reset(tr)
		return
	}
	lin := tr.Pos.Sub(t.lastPos).Mul(1 / dt)
	ang := angularDelta(tr.Rot, t.lastRot, dt)
	t.push(lin, ang)
	t.lastPos = tr.Pos
	t.lastRot = tr.Rot
}

// UpdateFromPose stores device-reported velocities when the pose carries
// them and falls back to Update otherwise. Hardware velocity is lower-noise
// than finite differences, so it wins when available.
func (t *Tracker) UpdateFromPose(p Pose, tr math3.Transform, dt float64) {
	if t == nil {
		return
	}
	if !p.HasVelocity {
		t.Update(tr, dt)
		return
	}
	t.push(p.LinearVelocity, p.AngularVelocity)
	t.lastPos = tr.Pos
	t.lastRot = tr.Rot
	t.primed = true
}

// Velocity returns the mean linear velocity over the whole window.
func (t *Tracker) Velocity() mgl64.Vec3 {
	if t == nil {
		return mgl64.Vec3{}
	}
	return mean(t.linear)
}

// Angular returns the mean angular velocity over the whole window.
func (t *Tracker) Angular() mgl64.Vec3 {
	if t == nil {
		return mgl64.Vec3{}
	}
	return mean(t.angular)
}

func (t *Tracker) push(lin, ang mgl64.Vec3) {
	t.linear[t.next] = lin
	t.angular[t.next] = ang
	t.next = (t.next + 1) % len(t.linear)
}

func mean(samples []mgl64.Vec3) mgl64.Vec3 {
	var sum mgl64.Vec3
	if len(samples) == 0 {
		return sum
	}
	for _, s := range samples {
		sum = sum.Add(s)
	}
	return sum.Mul(1 / float64(len(samples)))
}

// angularDelta converts the rotation from prev to cur into an axis-angle
// rate vector.
func angularDelta(cur, prev mgl64.Quat, dt float64) mgl64.Vec3 {
	d := cur.Mul(prev.Inverse())
	if d.W < 0 {
		d = d.Scale(-1)
	}
	w := d.W
	if w > 1 {
		w = 1
	}
	angle := 2 * math.Acos(w)
	if angle < 1e-9 {
		return mgl64.Vec3{}
	}
	n := d.V.Len()
	if n < 1e-12 {
		return mgl64.Vec3{}
	}
	return d.V.Mul(angle / (n * dt))
}
