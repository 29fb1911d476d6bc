package assets

import (
	"github.com/spaghettifunk/animaview/engine/animation"
	"github.com/spaghettifunk/animaview/engine/assets/loaders"
	"github.com/spaghettifunk/animaview/engine/resources"
	"github.com/spaghettifunk/animaview/engine/scene"
)

// Loader is implemented by every file format the manager can read.
type Loader = loaders.ModelLoader

// Asset is a loaded model owned by whoever holds it: its handles stay live
// until they are released through the allocator they came from.
type Asset struct {
	Name  string
	Path  string
	Root  *scene.Node
	Clips []*animation.Clip
	// Handles are the resources acquired for the asset, in acquisition order.
	Handles []resources.Handle
}

// Meshes returns every mesh and skinned mesh of the asset.
func (a *Asset) Meshes() []*scene.Node {
	return scene.Meshes(a.Root)
}
