package renderer

import (
	"fmt"

	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/resources"
	"github.com/spaghettifunk/animaview/engine/scene"
)

type RendererType uint8

const (
	Headless RendererType = iota
)

// FrameStats summarizes one rendered frame.
type FrameStats struct {
	FrameNumber   uint64
	Roots         int
	DrawCalls     int
	Meshes        int
	ShadowCasters int
	MorphMeshes   int
}

type Renderer struct {
	backend RendererBackend
}

var _ resources.Allocator = &Renderer{}

func New(rendererType RendererType) (*Renderer, error) {
	switch rendererType {
	case Headless:
		return &Renderer{backend: NewHeadlessBackend()}, nil
	default:
		return nil, fmt.Errorf("renderer type %d is not supported", rendererType)
	}
}

// NewWithBackend wraps an existing backend, mostly for tests.
func NewWithBackend(backend RendererBackend) *Renderer {
	return &Renderer{backend: backend}
}

func (r *Renderer) Initialize(appName string, appWidth, appHeight uint32) error {
	return r.backend.Initialize(appName, appWidth, appHeight)
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

func (r *Renderer) OnResize(width, height uint32) error {
	return r.backend.Resized(width, height)
}

func (r *Renderer) Acquire(kind resources.Kind, name string, size uint64) (resources.Handle, error) {
	return r.backend.Acquire(kind, name, size)
}

func (r *Renderer) Release(h resources.Handle) error {
	return r.backend.Release(h)
}

func (r *Renderer) IsLive(h resources.Handle) bool {
	return r.backend.IsLive(h)
}

func (r *Renderer) Live() []resources.Handle {
	return r.backend.Live()
}

// LiveCount is the number of outstanding handles.
func (r *Renderer) LiveCount() int {
	return len(r.backend.Live())
}

// LiveBytes is the summed size of every outstanding handle.
func (r *Renderer) LiveBytes() uint64 {
	var total uint64
	for _, h := range r.backend.Live() {
		total += h.Size
	}
	return total
}

// RenderFrame draws the fixtures and every attached root. A draw that
// touches a released resource aborts the frame with ErrReleasedResource.
func (r *Renderer) RenderFrame(s *scene.Scene, camera *scene.Camera, deltaTime float64) (FrameStats, error) {
	stats := FrameStats{}
	if err := r.backend.BeginFrame(deltaTime); err != nil {
		core.LogError(err.Error())
		return stats, err
	}

	viewProjection := camera.Projection().Mul4(camera.View())
	roots := s.Roots()
	stats.Roots = len(roots)
	var drawErr error
	draw := func(n *scene.Node) bool {
		if !n.IsMesh() {
			return true
		}
		if err := r.backend.DrawMesh(n, viewProjection.Mul4(n.Transform.GetWorld())); err != nil {
			drawErr = err
			return false
		}
		stats.Meshes++
		stats.DrawCalls += len(n.Mesh.Primitives)
		if n.CastShadow {
			stats.ShadowCasters++
		}
		if n.Mesh.Morph.Len() > 0 {
			stats.MorphMeshes++
		}
		return true
	}
	for _, n := range append(s.Fixtures(), roots...) {
		if !scene.Traverse(n, draw) {
			break
		}
	}

	if err := r.backend.EndFrame(deltaTime); err != nil {
		core.LogError("renderer EndFrame failed: %s", err)
		return stats, err
	}
	stats.FrameNumber = r.backend.FrameNumber()
	if drawErr != nil {
		return stats, drawErr
	}
	return stats, nil
}
