package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/platform"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Engine runs the single threaded loop: platform messages, dispatched work,
// game update and render, in that order, once per frame. Only Dispatch and
// Quit may be called from other goroutines.
type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     platform.Platform
	events       *core.EventBus
	metrics      *core.Metrics
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64

	dispatchMu    sync.Mutex
	dispatchQueue []func()
	stopped       bool
}

func New(g *Game, p platform.Platform) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("engine needs a game with an application config")
	}
	if g.FnUpdate == nil || g.FnRender == nil {
		return nil, errors.New("game must provide update and render functions")
	}
	e := &Engine{
		currentStage: EngineStageBooting,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		events:       core.NewEventBus(),
		metrics:      core.NewMetrics(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}
	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	cfg := e.gameInstance.ApplicationConfig
	if err := e.platform.Startup(e.events, cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.StartWidth, cfg.StartHeight); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the loop until the platform or a quit event stops it, or ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64
	if fps := e.gameInstance.ApplicationConfig.TargetFPS; fps > 0 {
		targetFrameSeconds = 1.0 / float64(fps)
	}

	for e.isRunning {
		if ctx.Err() != nil {
			core.LogInfo("context cancelled, shutting down.")
			break
		}
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		e.drainDispatch()
		if !e.isRunning {
			break
		}

		if e.isSuspended {
			e.platform.Sleep(10)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("Game update failed, shutting down: %s", err)
			return fmt.Errorf("update: %w", err)
		}
		if err := e.gameInstance.FnRender(delta); err != nil {
			core.LogError("Game render failed, shutting down: %s", err)
			return fmt.Errorf("render: %w", err)
		}

		frameElapsedTime := e.platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)

		if remainingSeconds := targetFrameSeconds - frameElapsedTime; remainingSeconds > 0 {
			e.platform.Sleep(remainingSeconds * 1000)
		}

		e.lastTime = currentTime
	}
	return nil
}

// Dispatch queues fn to run on the loop before the next update. It fails
// with core.ErrEngineStopped once shutdown has begun.
func (e *Engine) Dispatch(fn func()) error {
	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()
	if e.stopped {
		return core.ErrEngineStopped
	}
	e.dispatchQueue = append(e.dispatchQueue, fn)
	return nil
}

func (e *Engine) drainDispatch() {
	e.dispatchMu.Lock()
	queue := e.dispatchQueue
	e.dispatchQueue = nil
	e.dispatchMu.Unlock()

	for _, fn := range queue {
		fn()
	}
}

// Quit asks the loop to stop after the current frame.
func (e *Engine) Quit() error {
	return e.Dispatch(func() {
		e.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	})
}

// Shutdown refuses further dispatches, shuts the game down, runs whatever
// was still queued and stops the platform.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	e.dispatchMu.Lock()
	e.stopped = true
	e.dispatchMu.Unlock()

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	e.drainDispatch()

	if err := e.events.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if err := e.platform.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		e.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	return false
}
