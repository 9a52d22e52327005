package grab

// Scene is the registry of active grabbables and interactors. It owns the
// per-tick update order and the event queue. All grab logic runs inside a
// single Update call; input callbacks may fire between ticks but never
// concurrently with it.
type Scene struct {
	grabbables  []*Grabbable
	interactors []*Interactor
	events      EventQueue
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

// AddGrabbable registers a grabbable as active.
func (s *Scene) AddGrabbable(g *Grabbable) {
	if s == nil || g == nil {
		return
	}
	g.scene = s
	s.grabbables = append(s.grabbables, g)
}

// RemoveGrabbable releases any active grabs on g and unregisters it.
func (s *Scene) RemoveGrabbable(g *Grabbable) {
	if s == nil || g == nil {
		return
	}
	for _, d := range append([]*grabData(nil), g.grabs...) {
		g.Release(d.interactor)
	}
	for i, cur := range s.grabbables {
		if cur == g {
			s.grabbables = append(s.grabbables[:i], s.grabbables[i+1:]...)
			break
		}
	}
	g.scene = nil
}

// Grabbables returns the active grabbables in registration order.
func (s *Scene) Grabbables() []*Grabbable {
	if s == nil {
		return nil
	}
	return s.grabbables
}

// Interactors returns the registered interactors.
func (s *Scene) Interactors() []*Interactor {
	if s == nil {
		return nil
	}
	return s.interactors
}

// Update ticks every held grabbable with the frame delta.
func (s *Scene) Update(dt float64) {
	if s == nil {
		return
	}
	for _, g := range s.grabbables {
		if g.Held() {
			g.Update(dt)
		}
	}
}

// Events returns the scene event queue. Drain it once per tick.
func (s *Scene) Events() *EventQueue {
	if s == nil {
		return nil
	}
	return &s.events
}

func (s *Scene) addInteractor(in *Interactor) {
	s.interactors = append(s.interactors, in)
}

func (s *Scene) push(evt Event) {
	if s == nil {
		return
	}
	s.events.Push(evt)
}
