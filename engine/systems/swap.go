package systems

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/animaview/engine/animation"
	"github.com/spaghettifunk/animaview/engine/assets"
	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/resources"
	"github.com/spaghettifunk/animaview/engine/scene"
)

// LoadToken identifies one LoadAsset request. Tokens are strictly
// increasing; only the latest one may become live.
type LoadToken uint64

type SwapState uint8

const (
	SwapStateEmpty SwapState = iota
	SwapStateLoading
	SwapStateLive
)

func (s SwapState) String() string {
	switch s {
	case SwapStateEmpty:
		return "empty"
	case SwapStateLoading:
		return "loading"
	case SwapStateLive:
		return "live"
	default:
		return fmt.Sprintf("swap-state(%d)", uint8(s))
	}
}

// LoadResult is delivered to OnLoadComplete once a load resolves. Exactly
// one of Asset and Err is set.
type LoadResult struct {
	Token LoadToken
	Name  string
	Asset *assets.Asset
	Err   error
}

// LoadError reports a failed load. It matches core.ErrLoadFailure as well as
// the underlying cause.
type LoadError struct {
	Name  string
	Token LoadToken
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading asset '%s' (request %d): %s", e.Name, e.Token, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{core.ErrLoadFailure, e.Err}
}

// AssetLoader loads an asset by name. It is called from job workers.
type AssetLoader interface {
	Load(ctx context.Context, name string) (*assets.Asset, error)
}

// Dispatcher runs fn on the engine loop.
type Dispatcher interface {
	Dispatch(fn func()) error
}

// SceneGraph is the part of the scene the swap system mutates.
type SceneGraph interface {
	Attach(node *scene.Node) error
	Detach(node *scene.Node) error
}

/** @brief The asset swap system configuration. */
type AssetSwapSystemConfig struct {
	Loader     AssetLoader
	Allocator  resources.Allocator
	Scene      SceneGraph
	Jobs       *JobSystem
	Dispatcher Dispatcher
	/** @brief Optional. Defaults to NopSurface. */
	Surface ControlSurface
	/** @brief Optional. Failures are only logged when nil. */
	Diagnostics *Diagnostics
}

// AssetSwapSystem owns the live asset, the animation player bound to it and
// its morph descriptors. Every method except the job callbacks runs on the
// engine loop.
type AssetSwapSystem struct {
	loader      AssetLoader
	alloc       resources.Allocator
	scene       SceneGraph
	jobs        *JobSystem
	dispatcher  Dispatcher
	surface     ControlSurface
	diagnostics *Diagnostics

	latest  LoadToken
	state   SwapState
	loading string
	live    *assets.Asset
	player  *animation.Player
	morphs  []*MorphDescriptor

	onLive []func(*assets.Asset)
}

func NewAssetSwapSystem(config AssetSwapSystemConfig) (*AssetSwapSystem, error) {
	if config.Loader == nil || config.Allocator == nil || config.Scene == nil || config.Jobs == nil || config.Dispatcher == nil {
		err := fmt.Errorf("func NewAssetSwapSystem - loader, allocator, scene, jobs and dispatcher are required")
		core.LogError(err.Error())
		return nil, err
	}
	s := &AssetSwapSystem{
		loader:      config.Loader,
		alloc:       config.Allocator,
		scene:       config.Scene,
		jobs:        config.Jobs,
		dispatcher:  config.Dispatcher,
		surface:     config.Surface,
		diagnostics: config.Diagnostics,
	}
	if s.surface == nil {
		s.surface = NopSurface{}
	}
	s.surface.SetMorphFolderVisible(false)
	return s, nil
}

// LoadAsset starts loading name and returns the token of the request. The
// live asset, if any, stays attached until the load resolves.
func (s *AssetSwapSystem) LoadAsset(name string) LoadToken {
	s.latest++
	token := s.latest
	s.state = SwapStateLoading
	s.loading = name
	s.surface.SetCurrentAsset(name, s.state)
	core.LogInfo("loading asset '%s' (request %d)", name, token)

	s.jobs.AddWorkNonBlocking(JobTask{
		Name: "load " + name,
		OnStart: func(ctx context.Context) (interface{}, error) {
			return s.loader.Load(ctx, name)
		},
		OnComplete: func(result interface{}) {
			s.deliver(LoadResult{Token: token, Name: name, Asset: result.(*assets.Asset)})
		},
		OnFailure: func(err error) {
			s.deliver(LoadResult{Token: token, Name: name, Err: err})
		},
	})
	return token
}

// deliver hands a result to the loop. When the loop is gone a loaded asset
// is released right here; the allocator is safe for concurrent use.
func (s *AssetSwapSystem) deliver(res LoadResult) {
	if err := s.dispatcher.Dispatch(func() { s.OnLoadComplete(res) }); err != nil {
		if res.Asset != nil {
			core.LogDebug("loop gone, releasing '%s' (request %d)", res.Name, res.Token)
			s.dispose(res.Asset)
		}
	}
}

// OnLoadComplete resolves a load on the engine loop.
func (s *AssetSwapSystem) OnLoadComplete(res LoadResult) {
	if res.Token != s.latest || s.state != SwapStateLoading {
		if res.Asset != nil && res.Asset != s.live {
			n := s.dispose(res.Asset)
			core.LogDebug("discarded stale asset '%s' (request %d, latest %d), released %d resources", res.Name, res.Token, s.latest, n)
		}
		return
	}

	if res.Err != nil || res.Asset == nil {
		cause := res.Err
		if cause == nil {
			cause = core.ErrUnknown
		}
		s.fail(&LoadError{Name: res.Name, Token: res.Token, Err: cause})
		return
	}

	// bind the player before anything of the live asset is touched
	var player *animation.Player
	if next := res.Asset; len(next.Clips) > 0 {
		p, err := animation.NewPlayer(next.Root, next.Clips[0])
		if err != nil {
			s.dispose(next)
			s.fail(&LoadError{Name: res.Name, Token: res.Token, Err: fmt.Errorf("clip '%s': %w", next.Clips[0].Name, err)})
			return
		}
		player = p
	}

	s.swap(res.Asset, player)
}

func (s *AssetSwapSystem) fail(err *LoadError) {
	core.LogError(err.Error())
	if s.diagnostics != nil {
		s.diagnostics.Report(err)
	}
	s.surface.ReportFailure(err)

	s.loading = ""
	if s.live != nil {
		s.state = SwapStateLive
		s.surface.SetCurrentAsset(s.live.Name, s.state)
		return
	}
	s.state = SwapStateEmpty
	s.surface.SetCurrentAsset("", s.state)
}

func (s *AssetSwapSystem) swap(next *assets.Asset, player *animation.Player) {
	if prev := s.live; prev != nil {
		n := s.dispose(prev)
		if err := s.scene.Detach(prev.Root); err != nil {
			core.LogWarn("detaching '%s': %s", prev.Name, err)
		}
		core.LogDebug("released %d resources of '%s'", n, prev.Name)
	}
	s.live = nil
	s.player = nil

	if err := s.scene.Attach(next.Root); err != nil {
		// the root is fresh from the loader, so this cannot be a double attach
		core.LogError("attaching '%s': %s", next.Name, err)
	}
	s.live = next
	s.state = SwapStateLive
	s.loading = ""

	if player != nil {
		player.Reset()
		s.player = player
	}

	s.rebuildMorphs(next)

	for _, mesh := range next.Meshes() {
		mesh.CastShadow = true
		mesh.ReceiveShadow = true
	}

	s.surface.SetCurrentAsset(next.Name, s.state)
	core.LogInfo("asset '%s' is live (%d meshes, %d clips, %d morph channels)",
		next.Name, len(next.Meshes()), len(next.Clips), len(s.morphs))
	for _, fn := range s.onLive {
		fn(next)
	}
}

func (s *AssetSwapSystem) rebuildMorphs(next *assets.Asset) {
	for _, d := range s.morphs {
		s.surface.RemoveMorphControl(d)
	}
	s.morphs = BuildMorphDescriptors(next.Root)
	for _, d := range s.morphs {
		s.surface.AddMorphControl(d)
	}
	s.surface.SetMorphFolderVisible(len(s.morphs) > 0)
}

// Update advances the bound player.
func (s *AssetSwapSystem) Update(deltaTime float64) {
	if s.player != nil {
		s.player.Advance(deltaTime)
	}
}

// OnLive registers fn to run on the loop after each successful swap.
func (s *AssetSwapSystem) OnLive(fn func(*assets.Asset)) {
	s.onLive = append(s.onLive, fn)
}

// State returns the current state and, while loading, the requested name.
func (s *AssetSwapSystem) State() (SwapState, string) {
	return s.state, s.loading
}

func (s *AssetSwapSystem) Live() *assets.Asset {
	return s.live
}

func (s *AssetSwapSystem) Player() *animation.Player {
	return s.player
}

func (s *AssetSwapSystem) Morphs() []*MorphDescriptor {
	return append([]*MorphDescriptor(nil), s.morphs...)
}

// Morph looks a descriptor up by ID.
func (s *AssetSwapSystem) Morph(id string) (*MorphDescriptor, bool) {
	for _, d := range s.morphs {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

func (s *AssetSwapSystem) LatestToken() LoadToken {
	return s.latest
}

// Shutdown releases the live asset and makes every pending load stale.
func (s *AssetSwapSystem) Shutdown() error {
	s.latest++
	s.state = SwapStateEmpty
	s.loading = ""
	s.player = nil
	for _, d := range s.morphs {
		s.surface.RemoveMorphControl(d)
	}
	s.morphs = nil
	s.surface.SetMorphFolderVisible(false)

	prev := s.live
	s.live = nil
	if prev == nil {
		return nil
	}
	s.dispose(prev)
	return s.scene.Detach(prev.Root)
}

// dispose releases every resource owned by asset exactly once and returns
// how many were released. Failures are logged and skipped.
func (s *AssetSwapSystem) dispose(asset *assets.Asset) int {
	d := &disposer{alloc: s.alloc, released: make(map[uint32]struct{})}
	scene.Walk(asset.Root, d)
	for _, h := range asset.Handles {
		if _, ok := d.released[h.ID]; !ok {
			core.LogWarn("'%s' holds %s outside its node tree", asset.Name, h)
			d.release(h)
		}
	}
	return d.count
}

// disposer releases the resources of each node kind. Handles shared between
// nodes are released once.
type disposer struct {
	alloc    resources.Allocator
	released map[uint32]struct{}
	count    int
}

var _ scene.Visitor = &disposer{}

func (d *disposer) VisitGroup(n *scene.Node) {}

func (d *disposer) VisitMesh(n *scene.Node) {
	d.releaseMesh(n.Mesh)
}

func (d *disposer) VisitSkinnedMesh(n *scene.Node) {
	if n.Skeleton != nil {
		d.release(n.Skeleton.Handle)
	}
	d.releaseMesh(n.Mesh)
}

func (d *disposer) releaseMesh(mesh *scene.MeshData) {
	if mesh == nil {
		return
	}
	for _, p := range mesh.Primitives {
		if p.Material != nil {
			for _, m := range p.Material.Maps {
				d.release(m.Texture)
			}
			d.release(p.Material.Handle)
		}
		d.release(p.Geometry)
	}
}

func (d *disposer) release(h resources.Handle) {
	if !h.Valid() {
		return
	}
	if _, ok := d.released[h.ID]; ok {
		return
	}
	d.released[h.ID] = struct{}{}
	if err := d.alloc.Release(h); err != nil {
		if errors.Is(err, resources.ErrAlreadyReleased) {
			core.LogWarn("%s", err)
			return
		}
		core.LogError("releasing %s: %s", h, err)
		return
	}
	d.count++
}
