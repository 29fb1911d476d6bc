// Package viewer is the model viewer application run by the engine.
package viewer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/animaview/engine"
	"github.com/spaghettifunk/animaview/engine/assets"
	"github.com/spaghettifunk/animaview/engine/config"
	"github.com/spaghettifunk/animaview/engine/control"
	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/renderer"
	"github.com/spaghettifunk/animaview/engine/resources"
	"github.com/spaghettifunk/animaview/engine/scene"
	"github.com/spaghettifunk/animaview/engine/systems"
)

type Viewer struct {
	*engine.Game
}

type viewerState struct {
	cfg config.Config

	engine   *engine.Engine
	renderer *renderer.Renderer
	scene    *scene.Scene
	camera   *scene.Camera
	assets   *assets.AssetManager
	systems  *systems.SystemManager

	// nil when the control surface is disabled
	surface *control.Surface

	frames    uint64
	lastStats renderer.FrameStats
}

// New builds the viewer. surface may be nil.
func New(cfg config.Config, surface *control.Surface) (*Viewer, error) {
	level, err := core.LookupLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	v := &Viewer{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				StartPosX:   cfg.Window.X,
				StartPosY:   cfg.Window.Y,
				StartWidth:  cfg.Window.Width,
				StartHeight: cfg.Window.Height,
				Name:        cfg.Window.Name,
				LogLevel:    level,
				TargetFPS:   cfg.Window.TargetFPS,
			},
			State: &viewerState{
				cfg:     cfg,
				surface: surface,
			},
		},
	}

	v.FnInitialize = v.Initialize
	v.FnUpdate = v.Update
	v.FnRender = v.Render
	v.FnOnResize = v.OnResize
	v.FnShutdown = v.Shutdown

	return v, nil
}

func (v *Viewer) state() *viewerState {
	return v.State.(*viewerState)
}

func (v *Viewer) Initialize(e *engine.Engine) error {
	core.LogDebug("viewer Initialize fn....")
	state := v.state()
	state.engine = e
	cfg := state.cfg

	r, err := renderer.New(renderer.Headless)
	if err != nil {
		return err
	}
	if err := r.Initialize(cfg.Window.Name, cfg.Window.Width, cfg.Window.Height); err != nil {
		return err
	}
	state.renderer = r

	state.scene, err = buildScene(cfg.Scene, r)
	if err != nil {
		return fmt.Errorf("scene rig: %w", err)
	}
	state.camera = buildCamera(cfg.Scene, cfg.Window.Width, cfg.Window.Height)

	am, err := assets.NewAssetManager(cfg.Assets.Dir, cfg.Assets.Extension, cfg.Assets.Names, r)
	if err != nil {
		return err
	}
	state.assets = am
	if cfg.Assets.Watch {
		if err := am.Initialize(); err != nil {
			core.LogWarn("asset directory is not watched: %s", err)
		} else {
			am.OnChange(v.onFileChanged)
		}
	}

	var surface systems.ControlSurface = systems.NopSurface{}
	if state.surface != nil {
		surface = state.surface
		state.surface.SetAssetOptions(cfg.Assets.Names)
	}
	state.systems, err = systems.NewSystemManager(systems.SystemManagerConfig{
		Workers:         cfg.Jobs.Workers,
		QueueSize:       cfg.Jobs.QueueSize,
		DiagnosticsSize: cfg.Control.DiagnosticsSize,
		Loader:          am,
		Allocator:       r,
		Scene:           state.scene,
		Dispatcher:      e,
		Surface:         surface,
	})
	if err != nil {
		return err
	}

	state.systems.Swap().OnLive(v.onLive)
	e.Events().Register(core.EVENT_CODE_KEY_PRESSED, v, v.onKey)
	e.Events().Register(core.EVENT_CODE_ASSET_CHANGED, v, v.onAssetChanged)

	state.systems.Swap().LoadAsset(cfg.InitialAsset())
	return nil
}

func (v *Viewer) Update(deltaTime float64) error {
	v.state().systems.Swap().Update(deltaTime)
	return nil
}

// Render draws the frame. Drawing a released resource is fatal.
func (v *Viewer) Render(deltaTime float64) error {
	state := v.state()
	stats, err := state.renderer.RenderFrame(state.scene, state.camera, deltaTime)
	if err != nil {
		return err
	}
	state.lastStats = stats
	state.frames++
	every := uint64(state.cfg.Control.PushEveryFrames)
	if every > 0 && state.frames%every == 0 {
		v.publishStats()
	}
	return nil
}

func (v *Viewer) OnResize(width uint32, height uint32) error {
	state := v.state()
	state.camera.SetAspect(width, height)
	return state.renderer.OnResize(width, height)
}

// Shutdown stops the loaders, releases the live asset and the rig, then the
// renderer.
func (v *Viewer) Shutdown() error {
	core.LogDebug("viewer Shutdown fn....")
	state := v.state()
	var errs []error
	if state.systems != nil {
		if err := state.systems.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if state.assets != nil {
		if err := state.assets.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if state.scene != nil {
		releaseFixtures(state.scene, state.renderer)
	}
	if state.renderer != nil {
		if n := state.renderer.LiveCount(); n > 0 {
			core.LogWarn("%d resources still live at shutdown", n)
		}
		if err := state.renderer.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Swap exposes the swap system, on the loop only.
func (v *Viewer) Swap() *systems.AssetSwapSystem {
	return v.state().systems.Swap()
}

func (v *Viewer) Diagnostics() *systems.Diagnostics {
	return v.state().systems.Diagnostics()
}

func (v *Viewer) Renderer() *renderer.Renderer {
	return v.state().renderer
}

func (v *Viewer) Scene() *scene.Scene {
	return v.state().scene
}

func (v *Viewer) Camera() *scene.Camera {
	return v.state().camera
}

func (v *Viewer) publishStats() {
	state := v.state()
	if state.surface == nil {
		return
	}
	fps, frameTime := state.engine.Metrics().Frame()
	stats := control.Stats{
		Frame:         state.lastStats.FrameNumber,
		FPS:           fps,
		FrameTimeMs:   frameTime,
		Roots:         state.lastStats.Roots,
		DrawCalls:     state.lastStats.DrawCalls,
		Meshes:        state.lastStats.Meshes,
		ShadowCasters: state.lastStats.ShadowCasters,
		MorphMeshes:   state.lastStats.MorphMeshes,
		LiveResources: state.renderer.LiveCount(),
		LiveBytes:     state.renderer.LiveBytes(),
	}
	if p := state.systems.Swap().Player(); p != nil {
		stats.Clip = p.Clip().Name
		stats.Elapsed = p.Elapsed()
	}
	state.surface.SetStats(stats)
	state.surface.Publish()
}

// onLive pushes the new asset to clients without waiting for the next stats
// tick.
func (v *Viewer) onLive(a *assets.Asset) {
	core.LogDebug("'%s' live with %d resources", a.Name, len(a.Handles))
	v.publishStats()
}

func (v *Viewer) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	swap := v.state().systems.Swap()
	names := v.state().cfg.Assets.Names

	if idx, ok := core.DigitIndex(ke.KeyCode); ok {
		if idx > len(names) {
			core.LogDebug("no asset bound to key %d", idx)
			return false
		}
		swap.LoadAsset(names[idx-1])
		return true
	}

	switch ke.KeyCode {
	case core.KEY_P:
		if p := swap.Player(); p != nil {
			if p.Playing() {
				p.Pause()
			} else {
				p.Resume()
			}
		}
		return true
	case core.KEY_R:
		if p := swap.Player(); p != nil {
			p.Reset()
		}
		return true
	}
	return false
}

// onFileChanged runs on the watcher goroutine.
func (v *Viewer) onFileChanged(name, path string) {
	e := v.state().engine
	err := e.Dispatch(func() {
		e.Events().Fire(core.EventContext{
			Type: core.EVENT_CODE_ASSET_CHANGED,
			Data: &core.AssetEvent{Name: name, Path: path},
		})
	})
	if err != nil {
		core.LogDebug("ignoring change of '%s': %s", name, err)
	}
}

// onAssetChanged reloads the live asset, or restarts its pending load, when
// its file was rewritten.
func (v *Viewer) onAssetChanged(context core.EventContext) bool {
	ae, ok := context.Data.(*core.AssetEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	swap := v.state().systems.Swap()
	switch st, loading := swap.State(); st {
	case systems.SwapStateLoading:
		// a reload still reading the old bytes is superseded
		if loading != ae.Name {
			return false
		}
	case systems.SwapStateLive:
		if swap.Live().Name != ae.Name {
			return false
		}
	default:
		return false
	}
	core.LogInfo("'%s' changed on disk, reloading", ae.Name)
	swap.LoadAsset(ae.Name)
	return true
}

func hexColor(c uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32((c>>16)&0xff) / 255,
		float32((c>>8)&0xff) / 255,
		float32(c&0xff) / 255,
	}
}

func buildCamera(cfg config.SceneConfig, width, height uint32) *scene.Camera {
	camera := scene.NewPerspectiveCamera(cfg.FovY, 1, cfg.Near, cfg.Far)
	camera.SetAspect(width, height)
	camera.Position = mgl32.Vec3(cfg.CameraPosition)
	camera.Target = mgl32.Vec3(cfg.CameraTarget)
	return camera
}

// buildScene sets up the backdrop, the light rig, the ground and the grid.
func buildScene(cfg config.SceneConfig, alloc resources.Allocator) (*scene.Scene, error) {
	s := scene.New()
	s.Background = hexColor(cfg.Background)
	s.Fog = &scene.Fog{Color: hexColor(cfg.FogColor), Near: cfg.FogNear, Far: cfg.FogFar}

	s.AddLight(scene.Light{
		Kind:        scene.LightHemisphere,
		Color:       mgl32.Vec3{1, 1, 1},
		GroundColor: hexColor(0x444444),
		Intensity:   1,
		Position:    mgl32.Vec3{0, 200, 0},
	})
	extent := cfg.ShadowExtent
	s.AddLight(scene.Light{
		Kind:       scene.LightDirectional,
		Color:      mgl32.Vec3{1, 1, 1},
		Intensity:  1,
		Position:   mgl32.Vec3{0, 200, 100},
		CastShadow: true,
		Shadow: scene.ShadowFrustum{
			Top:    extent,
			Bottom: -extent * 5 / 9,
			Left:   -extent * 2 / 3,
			Right:  extent * 2 / 3,
		},
	})

	ground, err := scene.NewGround(alloc, cfg.GroundSize)
	if err != nil {
		return nil, err
	}
	s.AddFixture(ground)

	grid, err := scene.NewGrid(alloc, cfg.GroundSize, cfg.GridDivisions)
	if err != nil {
		releaseFixtures(s, alloc)
		return nil, err
	}
	s.AddFixture(grid)
	return s, nil
}

func releaseFixtures(s *scene.Scene, alloc resources.Allocator) {
	if alloc == nil {
		return
	}
	release := func(h resources.Handle) {
		if !h.Valid() {
			return
		}
		if err := alloc.Release(h); err != nil {
			core.LogWarn("releasing fixture resource %s: %s", h.Name, err)
		}
	}
	for _, f := range s.Fixtures() {
		scene.Traverse(f, func(n *scene.Node) bool {
			if n.Mesh == nil {
				return true
			}
			for _, p := range n.Mesh.Primitives {
				release(p.Geometry)
				if p.Material != nil {
					release(p.Material.Handle)
				}
			}
			return true
		})
	}
}
