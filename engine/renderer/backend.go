package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/animaview/engine/resources"
	"github.com/spaghettifunk/animaview/engine/scene"
)

type RendererBackend interface {
	resources.Allocator

	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	Resized(width, height uint32) error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error
	// DrawMesh records one draw per primitive of the node.
	DrawMesh(node *scene.Node, mvp mgl32.Mat4) error
	// IsLive reports whether the handle was acquired and not yet released.
	IsLive(h resources.Handle) bool
	// Live returns every outstanding handle, in acquisition order.
	Live() []resources.Handle
	FrameNumber() uint64
}
