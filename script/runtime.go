// Package script attaches tengo lifecycle hooks to grabbables. A script
// defines onGrabStart, onGrabEnd, onThrow, and update functions; the runtime
// dispatches into them synchronously as grab events fire.
package script

import (
	"fmt"
	"log"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/milk9111/handgrab/grab"
	"github.com/milk9111/handgrab/prefabs"
)

const grabLifecycleDispatchScript = `
if __phase == "grab_start" {
	onGrabStart(__engine, __state)
} else if __phase == "grab_end" {
	onGrabEnd(__engine, __state)
} else if __phase == "throw" {
	onThrow(__engine, __state)
} else if __phase == "update" {
	update(__engine, __state)
}
`

// Runtime is one compiled grab-lifecycle script with persistent state.
type Runtime struct {
	scriptPath string
	compiled   *tengo.Compiled
	stateData  *tengo.Map
}

// New compiles the named script from the prefabs script store.
func New(path string) (*Runtime, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("script: empty script path")
	}
	scriptBytes, err := prefabs.LoadScript(path)
	if err != nil {
		return nil, fmt.Errorf("script: load %s: %w", path, err)
	}

	src := string(scriptBytes) + "\n" + grabLifecycleDispatchScript
	s := tengo.NewScript([]byte(src))
	_ = s.Add("__phase", "")
	_ = s.Add("__engine", map[string]any{})
	_ = s.Add("__state", map[string]any{})

	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", path, err)
	}

	return &Runtime{
		scriptPath: path,
		compiled:   compiled,
		stateData:  &tengo.Map{Value: map[string]tengo.Object{}},
	}, nil
}

// Path returns the script path the runtime was compiled from.
func (rt *Runtime) Path() string {
	if rt == nil {
		return ""
	}
	return rt.scriptPath
}

// Bind registers the runtime as an event listener on g. Script errors are
// logged, never fatal.
func (rt *Runtime) Bind(g *grab.Grabbable) {
	if rt == nil || g == nil {
		return
	}
	g.AddListener(func(evt grab.Event) {
		phase := phaseFor(evt.Kind)
		if phase == "" {
			return
		}
		if err := rt.runPhase(phase, buildEngine(evt)); err != nil {
			log.Printf("script: %s %s error: %v", rt.scriptPath, phase, err)
		}
	})
}

// Update runs the per-tick hook for a held grabbable.
func (rt *Runtime) Update(g *grab.Grabbable) {
	if rt == nil || g == nil || !g.Held() {
		return
	}
	evt := grab.Event{Kind: "", Grabbable: g}
	if err := rt.runPhase("update", buildEngine(evt)); err != nil {
		log.Printf("script: %s update error: %v", rt.scriptPath, err)
	}
}

func (rt *Runtime) runPhase(phase string, engine *tengo.ImmutableMap) error {
	if rt == nil || rt.compiled == nil {
		return fmt.Errorf("script: nil runtime")
	}
	if engine == nil {
		engine = &tengo.ImmutableMap{Value: map[string]tengo.Object{}}
	}
	if err := rt.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := rt.compiled.Set("__engine", engine); err != nil {
		return err
	}
	if err := rt.compiled.Set("__state", rt.stateData); err != nil {
		return err
	}
	return rt.compiled.Run()
}

func phaseFor(kind grab.EventKind) string {
	switch kind {
	case grab.EventGrabStart:
		return "grab_start"
	case grab.EventGrabEnd:
		return "grab_end"
	case grab.EventThrow:
		return "throw"
	}
	return ""
}

func buildEngine(evt grab.Event) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	name := ""
	var pos [3]float64
	if evt.Grabbable != nil {
		name = evt.Grabbable.Name()
		if node := evt.Grabbable.Node(); node != nil {
			p := node.World().Pos
			pos = [3]float64{p.X(), p.Y(), p.Z()}
		}
	}
	values["name"] = &tengo.String{Value: name}
	values["position"] = &tengo.Array{Value: []tengo.Object{
		&tengo.Float{Value: pos[0]},
		&tengo.Float{Value: pos[1]},
		&tengo.Float{Value: pos[2]},
	}}

	hand := ""
	if evt.Interactor != nil {
		hand = evt.Interactor.Hand().String()
	}
	values["hand"] = &tengo.String{Value: hand}
	values["speed"] = &tengo.Float{Value: evt.LinearVelocity.Len()}

	return &tengo.ImmutableMap{Value: values}
}
