package animation

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/animaview/engine/math"
	"github.com/spaghettifunk/animaview/engine/scene"
)

// Player plays one clip on one asset root. Advancing only changes node
// transforms and morph influences.
type Player struct {
	root    *scene.Node
	clip    *Clip
	time    float64
	playing bool
	Loop    bool
	Speed   float64
}

// NewPlayer binds clip to root and starts playback from time zero.
func NewPlayer(root *scene.Node, clip *Clip) (*Player, error) {
	if root == nil || clip == nil {
		return nil, fmt.Errorf("animation: player needs a root and a clip")
	}
	if !clip.BoundTo(root) {
		return nil, fmt.Errorf("animation: clip %q targets nodes outside %s", clip.Name, root.Label())
	}
	p := &Player{
		root:    root,
		clip:    clip,
		playing: true,
		Loop:    true,
		Speed:   1,
	}
	p.apply()
	return p, nil
}

func (p *Player) Root() *scene.Node {
	return p.root
}

func (p *Player) Clip() *Clip {
	return p.clip
}

// Elapsed is the current playback position in seconds, within [0, Duration].
func (p *Player) Elapsed() float64 {
	return p.time
}

func (p *Player) Playing() bool {
	return p.playing
}

func (p *Player) Pause() {
	p.playing = false
}

func (p *Player) Resume() {
	p.playing = true
}

// Reset rewinds to time zero and poses the first frame.
func (p *Player) Reset() {
	p.time = 0
	p.apply()
}

// Advance moves playback forward by dt seconds and poses the nodes.
func (p *Player) Advance(dt float64) {
	if !p.playing || dt <= 0 {
		return
	}
	p.time += dt * p.Speed
	if p.Loop {
		p.time = math.Wrap(p.time, p.clip.Duration)
	} else if p.time >= p.clip.Duration {
		p.time = p.clip.Duration
		p.playing = false
	}
	p.apply()
}

func (p *Player) apply() {
	t := float32(p.time)
	for _, ch := range p.clip.Channels {
		sample := ch.sample(t)
		target := ch.Target
		switch ch.Path {
		case PathTranslation:
			target.Transform.SetPosition(mgl32.Vec3{sample[0], sample[1], sample[2]})
		case PathScale:
			target.Transform.SetScale(mgl32.Vec3{sample[0], sample[1], sample[2]})
		case PathRotation:
			target.Transform.SetRotation(mgl32.Quat{W: sample[3], V: mgl32.Vec3{sample[0], sample[1], sample[2]}}.Normalize())
		case PathWeights:
			applyWeights(target, sample)
		}
	}
}

func applyWeights(target *scene.Node, weights []float32) {
	if target.Mesh == nil || target.Mesh.Morph == nil {
		return
	}
	infl := target.Mesh.Morph.Influences
	for i := 0; i < len(infl) && i < len(weights); i++ {
		infl[i] = math.Clamp(weights[i], 0, 1)
	}
}

// sample returns the channel value at time t. Times before the first
// keyframe hold the first value, times after the last hold the last.
func (ch *Channel) sample(t float32) []float32 {
	n := len(ch.Times)
	out := make([]float32, ch.Stride)
	key := func(i int) []float32 {
		return ch.Values[i*ch.Stride : (i+1)*ch.Stride]
	}
	if n == 1 || t <= ch.Times[0] {
		copy(out, key(0))
		return out
	}
	if t >= ch.Times[n-1] {
		copy(out, key(n-1))
		return out
	}

	// First keyframe strictly after t.
	next := sort.Search(n, func(i int) bool { return ch.Times[i] > t })
	prev := next - 1
	if ch.Interpolation == InterpolationStep {
		copy(out, key(prev))
		return out
	}

	span := ch.Times[next] - ch.Times[prev]
	f := float32(0)
	if span > 0 {
		f = (t - ch.Times[prev]) / span
	}
	a, b := key(prev), key(next)
	if ch.Path == PathRotation {
		qa := mgl32.Quat{W: a[3], V: mgl32.Vec3{a[0], a[1], a[2]}}
		qb := mgl32.Quat{W: b[3], V: mgl32.Vec3{b[0], b[1], b[2]}}
		q := mgl32.QuatSlerp(qa, qb, f)
		out[0], out[1], out[2], out[3] = q.V[0], q.V[1], q.V[2], q.W
		return out
	}
	for i := range out {
		out[i] = math.Lerp(a[i], b[i], f)
	}
	return out
}
