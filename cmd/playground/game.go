package main

import (
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"golang.org/x/image/colornames"

	"github.com/milk9111/handgrab/grab"
	"github.com/milk9111/handgrab/math3"
	"github.com/milk9111/handgrab/prefabs"
	"github.com/milk9111/handgrab/scene"
	"github.com/milk9111/handgrab/script"
)

const (
	baseWidth  = 1280
	baseHeight = 720

	// pixels per world unit
	worldScale = 100.0

	tickDT = 1.0 / 60.0

	gravity = 9.8
)

type playBox struct {
	grabbable *grab.Grabbable
	body      *cp.Body
	script    *script.Runtime
	spec      string
	size      float64
}

// Game wires the grab core to a Chipmunk plane driven by the mouse. The left
// button grabs; flinging the cursor and releasing throws.
type Game struct {
	debug  bool
	frames int

	gscene     *grab.Scene
	space      *cp.Space
	cursor     *scene.Node
	interactor *grab.Interactor
	boxes      []*playBox

	watcher *prefabs.Watcher
}

// NewGame builds the playground scene.
func NewGame(debug, watch bool) (*Game, error) {
	space := cp.NewSpace()
	space.Iterations = 20
	space.SetGravity(cp.Vector{X: 0, Y: gravity})

	g := &Game{
		debug:  debug,
		gscene: grab.NewScene(),
		space:  space,
		cursor: scene.NewNode("cursor"),
	}
	g.buildWalls()

	in, err := grab.NewInteractor(grab.HandRight, g.cursor, g.gscene)
	if err != nil {
		return nil, err
	}
	g.interactor = in

	spawns := []struct {
		spec string
		x, y float64
	}{
		{"cube.yaml", 4, 2},
		{"cube.yaml", 6, 1.5},
		{"cube.yaml", 8, 2.5},
	}
	for i, sp := range spawns {
		box, err := g.spawnBox(fmt.Sprintf("%s-%d", sp.spec, i), sp.spec, sp.x, sp.y)
		if err != nil {
			return nil, err
		}
		g.boxes = append(g.boxes, box)
	}

	if watch {
		w, err := prefabs.NewWatcher("prefabs")
		if err != nil {
			log.Printf("playground: spec watcher disabled: %v", err)
		} else {
			g.watcher = w
		}
	}

	return g, nil
}

// Close releases the spec watcher.
func (g *Game) Close() {
	if g.watcher != nil {
		_ = g.watcher.Close()
	}
}

func (g *Game) spawnBox(name, specFile string, x, y float64) (*playBox, error) {
	spec, err := prefabs.LoadGrabbableSpec(specFile)
	if err != nil {
		return nil, err
	}
	cfg, err := spec.Config()
	if err != nil {
		return nil, err
	}

	const size = 0.4
	mass := 1.0
	body := cp.NewBody(mass, cp.MomentForBox(mass, size, size))
	body.SetPosition(cp.Vector{X: x, Y: y})
	shape := cp.NewBox(body, size, size, 0)
	shape.SetFriction(0.8)
	shape.SetElasticity(0.2)
	g.space.AddBody(body)
	g.space.AddShape(shape)

	grabbable, err := grab.NewGrabbable(name, &cpNode{body: body}, cfg)
	if err != nil {
		return nil, err
	}
	grabbable.SetBody(&cpBody{body: body})
	g.gscene.AddGrabbable(grabbable)

	box := &playBox{grabbable: grabbable, body: body, spec: specFile, size: size}
	if spec.Script != "" {
		rt, err := script.New(spec.Script)
		if err != nil {
			log.Printf("playground: %s: %v", name, err)
		} else {
			rt.Bind(grabbable)
			box.script = rt
		}
	}
	return box, nil
}

func (g *Game) buildWalls() {
	w := float64(baseWidth) / worldScale
	h := float64(baseHeight) / worldScale
	segments := []struct {
		a cp.Vector
		b cp.Vector
	}{
		{a: cp.Vector{X: 0, Y: 0}, b: cp.Vector{X: w, Y: 0}},
		{a: cp.Vector{X: 0, Y: h}, b: cp.Vector{X: w, Y: h}},
		{a: cp.Vector{X: 0, Y: 0}, b: cp.Vector{X: 0, Y: h}},
		{a: cp.Vector{X: w, Y: 0}, b: cp.Vector{X: w, Y: h}},
	}
	for _, seg := range segments {
		shape := cp.NewSegment(g.space.StaticBody, seg.a, seg.b, 0.01)
		shape.SetFriction(0.8)
		shape.SetElasticity(0.4)
		g.space.AddShape(shape)
	}
}

// Update advances input, grab logic, scripts, and physics one tick.
func (g *Game) Update() error {
	g.frames++

	mx, my := ebiten.CursorPosition()
	cur := g.cursor.Local()
	cur.Pos = math3.Lerp(cur.Pos, worldPos(mx, my), 0.8)
	g.cursor.SetLocal(cur)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.interactor.CheckForNearbyInteractables()
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.interactor.StopInteraction()
	}

	g.gscene.Update(tickDT)
	for _, box := range g.boxes {
		if box.script != nil {
			box.script.Update(box.grabbable)
		}
	}
	g.space.Step(tickDT)

	for _, evt := range g.gscene.Events().Drain() {
		if g.debug {
			log.Printf("playground: %s %s by %s hand", evt.Kind, evt.Grabbable.Name(), evt.Interactor.Hand())
		}
	}

	g.drainWatcher()
	return nil
}

// drainWatcher re-applies edited specs to live grabbables.
func (g *Game) drainWatcher() {
	if g.watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-g.watcher.Events:
			if !ok {
				g.watcher = nil
				return
			}
			g.reloadSpecs(path)
		case err, ok := <-g.watcher.Errors:
			if ok && err != nil {
				log.Printf("playground: spec watcher: %v", err)
			}
		default:
			return
		}
	}
}

func (g *Game) reloadSpecs(path string) {
	log.Printf("playground: reloading specs after change to %s", path)
	for _, box := range g.boxes {
		spec, err := prefabs.LoadGrabbableSpec(box.spec)
		if err != nil {
			log.Printf("playground: reload %s: %v", box.spec, err)
			continue
		}
		cfg, err := spec.Config()
		if err != nil {
			log.Printf("playground: reload %s: %v", box.spec, err)
			continue
		}
		box.grabbable.Retune(cfg)
	}
}

// Draw renders the boxes, the cursor, and the grab line.
func (g *Game) Draw(screen *ebiten.Image) {
	for _, box := range g.boxes {
		g.drawBox(screen, box)
	}

	cx, cy := screenPos(g.cursor.World().Pos)
	cross := float32(6)
	vector.StrokeLine(screen, cx-cross, cy, cx+cross, cy, 2, colornames.White, true)
	vector.StrokeLine(screen, cx, cy-cross, cx, cy+cross, 2, colornames.White, true)

	if held := g.interactor.Grabbed(); held != nil {
		hx, hy := screenPos(held.Node().World().Pos)
		vector.StrokeLine(screen, cx, cy, hx, hy, 2, colornames.Lightgrey, true)
	}

	if g.debug {
		held := "nothing"
		if grabbed := g.interactor.Grabbed(); grabbed != nil {
			held = grabbed.Name()
		}
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.2f    holding: %s", ebiten.ActualFPS(), held))
	}
}

func (g *Game) drawBox(screen *ebiten.Image, box *playBox) {
	pos := box.body.Position()
	angle := box.body.Angle()
	half := box.size / 2

	corners := [4][2]float64{
		{-half, -half},
		{half, -half},
		{half, half},
		{-half, half},
	}
	sin, cos := math.Sin(angle), math.Cos(angle)

	col := colornames.Skyblue
	if box.grabbable.Held() {
		col = colornames.Orange
	}

	var px, py [4]float32
	for i, c := range corners {
		wx := pos.X + c[0]*cos - c[1]*sin
		wy := pos.Y + c[0]*sin + c[1]*cos
		px[i] = float32(wx * worldScale)
		py[i] = float32(wy * worldScale)
	}
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		vector.StrokeLine(screen, px[i], py[i], px[j], py[j], 2, col, true)
	}
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return baseWidth, baseHeight
}

func worldPos(mx, my int) mgl64.Vec3 {
	return mgl64.Vec3{float64(mx) / worldScale, float64(my) / worldScale, 0}
}

func screenPos(p mgl64.Vec3) (float32, float32) {
	return float32(p.X() * worldScale), float32(p.Y() * worldScale)
}
