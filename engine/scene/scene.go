package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrAlreadyAttached = errors.New("node already attached to the scene")
	ErrNotAttached     = errors.New("node is not attached to the scene")
)

type Fog struct {
	Color mgl32.Vec3
	Near  float32
	Far   float32
}

type LightKind uint8

const (
	LightHemisphere LightKind = iota
	LightDirectional
)

// ShadowFrustum is the orthographic box a directional light renders its
// shadow map from.
type ShadowFrustum struct {
	Top, Bottom, Left, Right float32
}

type Light struct {
	Kind        LightKind
	Color       mgl32.Vec3
	GroundColor mgl32.Vec3
	Intensity   float32
	Position    mgl32.Vec3
	CastShadow  bool
	Shadow      ShadowFrustum
}

// Scene holds the static fixtures (ground, grid, lights) and the attached
// asset roots. Roots are only mutated from the engine loop; the mutex keeps
// read-only observers on other goroutines (control surface, debug dumps)
// consistent.
type Scene struct {
	mu sync.RWMutex

	Background mgl32.Vec3
	Fog        *Fog
	Lights     []Light

	fixtures []*Node
	roots    []*Node
}

func New() *Scene {
	return &Scene{}
}

// Attach adds an asset root. A root can only be attached once.
func (s *Scene) Attach(node *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.roots {
		if r == node {
			return fmt.Errorf("attach %s: %w", node.Label(), ErrAlreadyAttached)
		}
	}
	s.roots = append(s.roots, node)
	return nil
}

// Detach removes an asset root.
func (s *Scene) Detach(node *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.roots {
		if r == node {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("detach %s: %w", node.Label(), ErrNotAttached)
}

func (s *Scene) IsAttached(node *Node) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roots {
		if r == node {
			return true
		}
	}
	return false
}

// Roots returns a copy of the attached asset roots.
func (s *Scene) Roots() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Node(nil), s.roots...)
}

func (s *Scene) AddFixture(node *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures = append(s.fixtures, node)
}

func (s *Scene) Fixtures() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Node(nil), s.fixtures...)
}

func (s *Scene) AddLight(l Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lights = append(s.Lights, l)
}
