package script

import (
	"testing"

	"github.com/d5/tengo/v2"

	"github.com/milk9111/handgrab/grab"
	"github.com/milk9111/handgrab/scene"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := New("missing.tengo"); err == nil {
		t.Fatalf("expected error for missing script")
	}
}

func TestNewCompilesEmbeddedScript(t *testing.T) {
	rt, err := New("grab_events.tengo")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if rt.Path() != "grab_events.tengo" {
		t.Fatalf("unexpected path %q", rt.Path())
	}
}

func TestPhaseFor(t *testing.T) {
	cases := []struct {
		kind grab.EventKind
		want string
	}{
		{grab.EventGrabStart, "grab_start"},
		{grab.EventGrabEnd, "grab_end"},
		{grab.EventThrow, "throw"},
		{grab.EventKind("unknown"), ""},
	}
	for _, c := range cases {
		if got := phaseFor(c.kind); got != c.want {
			t.Fatalf("phaseFor(%q) = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestStatePersistsAcrossPhases(t *testing.T) {
	rt, err := New("grab_events.tengo")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	g, err := grab.NewGrabbable("cube", scene.NewNode("cube"), grab.Config{})
	if err != nil {
		t.Fatalf("NewGrabbable: %v", err)
	}
	evt := grab.Event{Kind: grab.EventGrabStart, Grabbable: g}

	for i := 0; i < 2; i++ {
		if err := rt.runPhase("grab_start", buildEngine(evt)); err != nil {
			t.Fatalf("runPhase: %v", err)
		}
	}

	got, ok := rt.stateData.Value["grabs"].(*tengo.Int)
	if !ok || got.Value != 2 {
		t.Fatalf("expected state.grabs == 2, got %v", rt.stateData.Value["grabs"])
	}
}

func TestBindRunsLifecycleHooks(t *testing.T) {
	rt, err := New("grab_events.tengo")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s := grab.NewScene()
	g, err := grab.NewGrabbable("cube", scene.NewNode("cube"), grab.Config{})
	if err != nil {
		t.Fatalf("NewGrabbable: %v", err)
	}
	s.AddGrabbable(g)
	in, err := grab.NewInteractor(grab.HandRight, scene.NewNode("hand"), s)
	if err != nil {
		t.Fatalf("NewInteractor: %v", err)
	}

	rt.Bind(g)
	g.Grab(in, 0)
	rt.Update(g)
	g.Release(in)

	got, ok := rt.stateData.Value["grabs"].(*tengo.Int)
	if !ok || got.Value != 1 {
		t.Fatalf("grab_start hook did not run, state: %v", rt.stateData.Value)
	}
}

func TestBuildEngineEmptyEvent(t *testing.T) {
	engine := buildEngine(grab.Event{})
	name, ok := engine.Value["name"].(*tengo.String)
	if !ok || name.Value != "" {
		t.Fatalf("expected empty name, got %v", engine.Value["name"])
	}
	if _, ok := engine.Value["position"].(*tengo.Array); !ok {
		t.Fatalf("position missing")
	}
}
