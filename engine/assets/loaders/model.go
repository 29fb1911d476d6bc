package loaders

import (
	"context"

	"github.com/spaghettifunk/animaview/engine/animation"
	"github.com/spaghettifunk/animaview/engine/resources"
	"github.com/spaghettifunk/animaview/engine/scene"
)

// Model is what a loader produces: a node tree whose meshes own the handles
// acquired for it, plus the clips bound to that tree.
type Model struct {
	Root  *scene.Node
	Clips []*animation.Clip
	// Handles lists every resource acquired while building the model, in
	// acquisition order.
	Handles []resources.Handle
}

// ModelLoader turns a file into a Model. Every handle is acquired from
// alloc; on error nothing acquired by the call may stay live.
type ModelLoader interface {
	Load(ctx context.Context, path string, alloc resources.Allocator) (*Model, error)
}
