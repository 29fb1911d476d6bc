package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/platform"
)

type recordingGame struct {
	engine   *Engine
	log      []string
	updates  int
	resizes  [][2]uint32
	quitAt   int
	shutdown bool
}

func (g *recordingGame) game() *Game {
	return &Game{
		ApplicationConfig: &ApplicationConfig{Name: "test", StartWidth: 800, StartHeight: 600},
		FnInitialize: func(e *Engine) error {
			g.engine = e
			return nil
		},
		FnUpdate: func(deltaTime float64) error {
			g.updates++
			g.log = append(g.log, "update")
			if g.updates == g.quitAt {
				return g.engine.Quit()
			}
			return nil
		},
		FnRender: func(deltaTime float64) error {
			g.log = append(g.log, "render")
			return nil
		},
		FnOnResize: func(width, height uint32) error {
			g.resizes = append(g.resizes, [2]uint32{width, height})
			return nil
		},
		FnShutdown: func() error {
			g.shutdown = true
			return nil
		},
	}
}

func newTestEngine(t *testing.T, g *recordingGame) *Engine {
	t.Helper()
	e, err := New(g.game(), platform.NewHeadless())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return e
}

func TestDispatchRunsBeforeUpdate(t *testing.T) {
	g := &recordingGame{quitAt: 2}
	e := newTestEngine(t, g)

	if err := e.Dispatch(func() { g.log = append(g.log, "dispatched") }); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"dispatched", "update", "render", "update", "render"}
	if len(g.log) != len(want) {
		t.Fatalf("expected %v, got %v", want, g.log)
	}
	for i := range want {
		if g.log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, g.log)
		}
	}
	if e.Metrics().FrameTime() < 0 {
		t.Fatal("negative frame time")
	}
}

func TestShutdownRefusesDispatch(t *testing.T) {
	g := &recordingGame{}
	e := newTestEngine(t, g)

	ran := false
	_ = e.Dispatch(func() { ran = true })
	if err := e.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !ran || !g.shutdown {
		t.Fatal("shutdown must run queued work and the game shutdown")
	}
	if err := e.Dispatch(func() {}); !errors.Is(err, core.ErrEngineStopped) {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
	if e.Stage() != EngineStageShuttingDown {
		t.Fatalf("unexpected stage %d", e.Stage())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	g := &recordingGame{}
	e := newTestEngine(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if g.updates == 0 {
		t.Fatal("loop never ran")
	}
}

func TestEscapeQuits(t *testing.T) {
	g := &recordingGame{}
	e := newTestEngine(t, g)

	_ = e.Dispatch(func() {
		e.Events().Fire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_ESCAPE}})
	})
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if g.updates != 0 {
		t.Fatalf("expected no frame after escape, got %d", g.updates)
	}
}

func TestResizeReachesGame(t *testing.T) {
	g := &recordingGame{quitAt: 1}
	e := newTestEngine(t, g)

	_ = e.Dispatch(func() {
		e.Events().Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 1024, WindowHeight: 768}})
	})
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// the first resize comes from Initialize
	if len(g.resizes) != 2 || g.resizes[1] != [2]uint32{1024, 768} {
		t.Fatalf("unexpected resizes %v", g.resizes)
	}
	if w, h := e.GetFramebufferSize(); w != 1024 || h != 768 {
		t.Fatalf("unexpected framebuffer %dx%d", w, h)
	}
}

func TestUpdateErrorStopsRun(t *testing.T) {
	g := &recordingGame{}
	game := g.game()
	boom := errors.New("boom")
	game.FnUpdate = func(float64) error { return boom }
	e, err := New(game, platform.NewHeadless())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := e.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
