package systems

import (
	"fmt"

	"github.com/spaghettifunk/animaview/engine/math"
	"github.com/spaghettifunk/animaview/engine/scene"
)

// MorphDescriptor is the control handle for one blend shape channel of one
// mesh. Weights are read and written on the engine loop only.
type MorphDescriptor struct {
	// ID is the mesh uuid and the channel index, unique across assets and
	// safe to use in a URL path.
	ID      string
	Mesh    *scene.Node
	Channel string
	Index   int
}

// Folder is the group the control is shown under, the mesh label.
func (d *MorphDescriptor) Folder() string {
	return d.Mesh.Label()
}

func (d *MorphDescriptor) Weight() float32 {
	return d.Mesh.Mesh.Morph.Influences[d.Index]
}

// SetWeight writes the influence, clamped to [0,1], and returns the value
// that was stored.
func (d *MorphDescriptor) SetWeight(w float32) float32 {
	w = math.Clamp(w, 0, 1)
	d.Mesh.Mesh.Morph.Influences[d.Index] = w
	return w
}

// BuildMorphDescriptors returns one descriptor per morph channel of every
// mesh under root, in traversal order.
func BuildMorphDescriptors(root *scene.Node) []*MorphDescriptor {
	var out []*MorphDescriptor
	for _, mesh := range scene.Meshes(root) {
		morph := mesh.Mesh.Morph
		for i := 0; i < morph.Len(); i++ {
			out = append(out, &MorphDescriptor{
				ID:      fmt.Sprintf("%s-%d", mesh.ID, i),
				Mesh:    mesh,
				Channel: morph.Names[i],
				Index:   i,
			})
		}
	}
	return out
}
