package renderer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/resources"
	"github.com/spaghettifunk/animaview/engine/scene"
)

var (
	ErrReleasedResource = errors.New("draw references a released resource")
	ErrNotInFrame       = errors.New("draw outside of BeginFrame/EndFrame")
)

// HeadlessBackend keeps the resource table a GPU backend would keep and
// validates every draw against it, without talking to a device. Acquire and
// Release may be called from any goroutine; frame calls belong to the loop.
type HeadlessBackend struct {
	mu     sync.Mutex
	nextID uint32
	live   map[uint32]resources.Handle
	bytes  uint64

	width, height uint32
	inFrame       bool
	frameNumber   uint64
	draws         uint32
}

var _ RendererBackend = &HeadlessBackend{}

func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{
		live: make(map[uint32]resources.Handle),
	}
}

func (b *HeadlessBackend) Initialize(appName string, appWidth, appHeight uint32) error {
	b.width, b.height = appWidth, appHeight
	core.LogInfo("headless renderer initialized for '%s' (%dx%d)", appName, appWidth, appHeight)
	return nil
}

// Shutdown logs and drops whatever is still allocated.
func (b *HeadlessBackend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.live); n > 0 {
		core.LogWarn("renderer shutdown with %d live resources (%d bytes)", n, b.bytes)
	}
	b.live = make(map[uint32]resources.Handle)
	b.bytes = 0
	return nil
}

func (b *HeadlessBackend) Resized(width, height uint32) error {
	b.width, b.height = width, height
	return nil
}

func (b *HeadlessBackend) Acquire(kind resources.Kind, name string, size uint64) (resources.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	h := resources.Handle{ID: b.nextID, Kind: kind, Name: name, Size: size}
	b.live[h.ID] = h
	b.bytes += size
	return h, nil
}

func (b *HeadlessBackend) Release(h resources.Handle) error {
	if !h.Valid() {
		return resources.ErrInvalidHandle
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.live[h.ID]; !ok {
		if h.ID <= b.nextID {
			return fmt.Errorf("release %s: %w", h, resources.ErrAlreadyReleased)
		}
		return fmt.Errorf("release %s: %w", h, resources.ErrUnknownHandle)
	}
	delete(b.live, h.ID)
	b.bytes -= h.Size
	return nil
}

func (b *HeadlessBackend) IsLive(h resources.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.live[h.ID]
	return ok
}

func (b *HeadlessBackend) Live() []resources.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]resources.Handle, 0, len(b.live))
	for _, h := range b.live {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LiveBytes is the summed size of every outstanding handle.
func (b *HeadlessBackend) LiveBytes() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bytes
}

func (b *HeadlessBackend) BeginFrame(deltaTime float64) error {
	b.inFrame = true
	b.draws = 0
	return nil
}

func (b *HeadlessBackend) EndFrame(deltaTime float64) error {
	b.inFrame = false
	b.frameNumber++
	return nil
}

func (b *HeadlessBackend) DrawMesh(node *scene.Node, mvp mgl32.Mat4) error {
	if !b.inFrame {
		return ErrNotInFrame
	}
	if node.Skeleton != nil && !b.IsLive(node.Skeleton.Handle) {
		return fmt.Errorf("%s skeleton %s: %w", node.Label(), node.Skeleton.Handle, ErrReleasedResource)
	}
	for _, p := range node.Mesh.Primitives {
		if !b.IsLive(p.Geometry) {
			return fmt.Errorf("%s geometry %s: %w", node.Label(), p.Geometry, ErrReleasedResource)
		}
		if p.Material == nil {
			continue
		}
		if !b.IsLive(p.Material.Handle) {
			return fmt.Errorf("%s material %s: %w", node.Label(), p.Material.Handle, ErrReleasedResource)
		}
		for _, m := range p.Material.Maps {
			if !b.IsLive(m.Texture) {
				return fmt.Errorf("%s %s texture %s: %w", node.Label(), m.Slot, m.Texture, ErrReleasedResource)
			}
		}
		b.draws++
	}
	return nil
}

func (b *HeadlessBackend) FrameNumber() uint64 {
	return b.frameNumber
}
