package animation

import (
	"fmt"

	"github.com/spaghettifunk/animaview/engine/scene"
)

// Path is the node property a channel drives.
type Path uint8

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
	PathWeights
)

func (p Path) String() string {
	switch p {
	case PathTranslation:
		return "translation"
	case PathRotation:
		return "rotation"
	case PathScale:
		return "scale"
	case PathWeights:
		return "weights"
	default:
		return fmt.Sprintf("path(%d)", uint8(p))
	}
}

// Stride is the number of floats per keyframe the path needs, or 0 for
// weights, which have one per morph target.
func (p Path) Stride() int {
	switch p {
	case PathTranslation, PathScale:
		return 3
	case PathRotation:
		return 4
	default:
		return 0
	}
}

type Interpolation uint8

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
)

// Channel animates one property of one node. Values holds Stride floats per
// keyframe: 3 for translation/scale, 4 for rotation (x,y,z,w), one per morph
// target for weights.
type Channel struct {
	Target        *scene.Node
	Path          Path
	Interpolation Interpolation
	Times         []float32
	Values        []float32
	Stride        int
}

// Clip is a named, fixed length motion bound to the nodes of one asset.
// Clips are never modified after loading.
type Clip struct {
	Name     string
	Duration float64
	Channels []*Channel
}

// NewClip builds a clip and computes its duration from the last keyframe of
// every channel.
func NewClip(name string, channels []*Channel) (*Clip, error) {
	c := &Clip{Name: name, Channels: channels}
	for i, ch := range channels {
		if ch.Target == nil {
			return nil, fmt.Errorf("clip %q channel %d: no target node", name, i)
		}
		if want := ch.Path.Stride(); ch.Stride <= 0 || (want > 0 && ch.Stride != want) {
			return nil, fmt.Errorf("clip %q channel %d: invalid stride %d for %s", name, i, ch.Stride, ch.Path)
		}
		if len(ch.Times) == 0 || len(ch.Values) != len(ch.Times)*ch.Stride {
			return nil, fmt.Errorf("clip %q channel %d: %d keyframes but %d values (stride %d)",
				name, i, len(ch.Times), len(ch.Values), ch.Stride)
		}
		if last := float64(ch.Times[len(ch.Times)-1]); last > c.Duration {
			c.Duration = last
		}
	}
	return c, nil
}

// BoundTo reports whether every channel of the clip targets a node in root's tree.
func (c *Clip) BoundTo(root *scene.Node) bool {
	for _, ch := range c.Channels {
		if !root.Contains(ch.Target) {
			return false
		}
	}
	return true
}
