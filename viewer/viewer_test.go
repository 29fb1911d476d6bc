package viewer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spaghettifunk/animaview/engine"
	"github.com/spaghettifunk/animaview/engine/assets"
	"github.com/spaghettifunk/animaview/engine/assets/assettest"
	"github.com/spaghettifunk/animaview/engine/config"
	"github.com/spaghettifunk/animaview/engine/control"
	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/platform"
	"github.com/spaghettifunk/animaview/engine/renderer"
	"github.com/spaghettifunk/animaview/engine/systems"
)

var (
	samba   = assettest.Options{Clips: []string{"samba"}, Morphs: []string{"smile", "blink"}, Texture: true, Skinned: true}
	walking = assettest.Options{Clips: []string{"walk"}, Texture: true, Skinned: true}
)

// ground and grid each hold a geometry and a material
const fixtureHandles = 4

type running struct {
	viewer  *Viewer
	engine  *engine.Engine
	surface *control.Surface
	dir     string
}

func start(t *testing.T) *running {
	t.Helper()
	dir := t.TempDir()
	if _, err := assettest.WriteGLB(dir, "Samba Dancing", samba); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := assettest.WriteGLB(dir, "Walking", walking); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg := config.Default()
	cfg.Assets.Dir = dir
	cfg.Assets.Names = []string{"Samba Dancing", "Walking"}
	cfg.Window.TargetFPS = 200
	cfg.Control.PushEveryFrames = 1

	surface := control.NewSurface()
	t.Cleanup(surface.Close)
	v, err := New(cfg, surface)
	if err != nil {
		t.Fatalf("new viewer: %v", err)
	}
	e, err := engine.New(v.Game, platform.NewHeadless())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("loop did not stop")
		}
		_ = e.Shutdown()
	})
	return &running{viewer: v, engine: e, surface: surface, dir: dir}
}

// onLoop runs fn on the engine loop and waits for it.
func (r *running) onLoop(t *testing.T, fn func()) {
	t.Helper()
	finished := make(chan struct{})
	if err := r.engine.Dispatch(func() { fn(); close(finished) }); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not run dispatched work")
	}
}

func (r *running) eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		r.onLoop(t, func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (r *running) waitLive(t *testing.T, name string) {
	t.Helper()
	r.eventually(t, name+" to be live", func() bool {
		swap := r.viewer.Swap()
		st, _ := swap.State()
		return st == systems.SwapStateLive && swap.Live().Name == name
	})
}

func TestViewerLoadsInitialAsset(t *testing.T) {
	r := start(t)
	r.waitLive(t, "Samba Dancing")

	var roots, live int
	r.onLoop(t, func() {
		roots = len(r.viewer.Scene().Roots())
		live = r.viewer.Renderer().LiveCount()
	})
	if roots != 1 {
		t.Fatalf("expected 1 root, got %d", roots)
	}
	if want := fixtureHandles + samba.Handles(); live != want {
		t.Fatalf("expected %d live handles, got %d", want, live)
	}

	snap := r.surface.Snapshot()
	if snap.Current != "Samba Dancing" || snap.State != systems.SwapStateLive.String() {
		t.Fatalf("surface shows %q %s", snap.Current, snap.State)
	}
	if len(snap.Morphs) != 2 || !snap.MorphsVisible {
		t.Fatalf("expected 2 visible morph controls, got %+v", snap.Morphs)
	}
	r.eventually(t, "stats to be published", func() bool {
		return r.surface.Snapshot().Stats.Roots == 1
	})
}

func TestDigitKeysSwapAssets(t *testing.T) {
	r := start(t)
	r.waitLive(t, "Samba Dancing")

	if err := r.viewer.PressKey(core.KEY_2); err != nil {
		t.Fatalf("press key: %v", err)
	}
	r.waitLive(t, "Walking")
	var roots, live int
	r.onLoop(t, func() {
		roots = len(r.viewer.Scene().Roots())
		live = r.viewer.Renderer().LiveCount()
	})
	if roots != 1 {
		t.Fatalf("expected 1 root, got %d", roots)
	}
	if want := fixtureHandles + walking.Handles(); live != want {
		t.Fatalf("expected %d live handles after swap, got %d", want, live)
	}
	if snap := r.surface.Snapshot(); len(snap.Morphs) != 0 || snap.MorphsVisible {
		t.Fatalf("expected no morph controls, got %+v", snap.Morphs)
	}

	// key 9 has no asset bound
	if err := r.viewer.PressKey(core.KEY_9); err != nil {
		t.Fatalf("press key: %v", err)
	}
	var st systems.SwapState
	r.onLoop(t, func() { st, _ = r.viewer.Swap().State() })
	if st != systems.SwapStateLive {
		t.Fatalf("unbound key changed state to %s", st)
	}
}

func TestPauseAndRestart(t *testing.T) {
	r := start(t)
	r.waitLive(t, "Samba Dancing")

	if err := r.viewer.PressKey(core.KEY_P); err != nil {
		t.Fatalf("press key: %v", err)
	}
	var playing bool
	r.onLoop(t, func() { playing = r.viewer.Swap().Player().Playing() })
	if playing {
		t.Fatalf("expected player paused")
	}
	if err := r.viewer.PressKey(core.KEY_R); err != nil {
		t.Fatalf("press key: %v", err)
	}
	elapsed := -1.0
	r.onLoop(t, func() { elapsed = r.viewer.Swap().Player().Elapsed() })
	if elapsed != 0 {
		t.Fatalf("expected restart at 0, got %v", elapsed)
	}
}

func TestMorphWeightFromController(t *testing.T) {
	r := start(t)
	r.waitLive(t, "Samba Dancing")

	id := r.surface.Snapshot().Morphs[0].ID
	if err := r.viewer.SetMorphWeight(id, 0.8); err != nil {
		t.Fatalf("set weight: %v", err)
	}
	var weight float32
	r.onLoop(t, func() {
		if d, ok := r.viewer.Swap().Morph(id); ok {
			weight = d.Weight()
		}
	})
	if weight != 0.8 {
		t.Fatalf("descriptor %s weight = %v", id, weight)
	}
	if m, _ := r.surface.Morph(id); m.Weight != 0.8 {
		t.Fatalf("surface weight = %v", m.Weight)
	}

	// an id from nowhere is ignored
	if err := r.viewer.SetMorphWeight("nope-0", 1); err != nil {
		t.Fatalf("set weight: %v", err)
	}
}

func TestHotReloadOfLiveAsset(t *testing.T) {
	r := start(t)
	r.waitLive(t, "Samba Dancing")

	var first *assets.Asset
	r.onLoop(t, func() { first = r.viewer.Swap().Live() })

	if _, err := assettest.WriteGLB(r.dir, "Samba Dancing", samba); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}
	r.eventually(t, "the asset to reload", func() bool {
		swap := r.viewer.Swap()
		st, _ := swap.State()
		return st == systems.SwapStateLive && swap.Live() != first
	})
	var roots int
	r.onLoop(t, func() { roots = len(r.viewer.Scene().Roots()) })
	if roots != 1 {
		t.Fatalf("expected 1 root after reload, got %d", roots)
	}
}

func TestDumpLive(t *testing.T) {
	r := start(t)
	r.waitLive(t, "Samba Dancing")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dump, err := r.viewer.DumpLive(ctx)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	for _, want := range []string{"Samba Dancing", "smile", "samba"} {
		if !strings.Contains(dump, want) {
			t.Fatalf("dump is missing %q:\n%s", want, dump)
		}
	}
}

func TestControllerBeforeStart(t *testing.T) {
	v, err := New(config.Default(), nil)
	if err != nil {
		t.Fatalf("new viewer: %v", err)
	}
	if err := v.SelectAsset("Walking"); err != core.ErrEngineStopped {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
}

func TestSceneRig(t *testing.T) {
	r, _ := renderer.New(renderer.Headless)
	cfg := config.Default().Scene
	s, err := buildScene(cfg, r)
	if err != nil {
		t.Fatalf("build scene: %v", err)
	}
	if len(s.Fixtures()) != 2 || r.LiveCount() != fixtureHandles {
		t.Fatalf("expected ground and grid, got %d fixtures / %d handles", len(s.Fixtures()), r.LiveCount())
	}
	if len(s.Lights) != 2 || !s.Lights[1].CastShadow || s.Lights[1].Shadow.Top != 180 || s.Lights[1].Shadow.Right != 120 {
		t.Fatalf("unexpected lights %+v", s.Lights)
	}
	if c := hexColor(0xa0a0a0); c[0] != float32(0xa0)/255 || s.Background != c {
		t.Fatalf("unexpected background %v", s.Background)
	}
	if !s.Fixtures()[0].ReceiveShadow {
		t.Fatalf("ground must receive shadows")
	}

	releaseFixtures(s, r)
	if r.LiveCount() != 0 {
		t.Fatalf("fixtures leaked %d handles", r.LiveCount())
	}

	camera := buildCamera(cfg, 1280, 720)
	if camera.Aspect != float32(1280)/720 || camera.Position[2] != 300 {
		t.Fatalf("unexpected camera %+v", camera)
	}
}
