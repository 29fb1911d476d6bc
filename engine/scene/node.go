package scene

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/math"
	"github.com/spaghettifunk/animaview/engine/resources"
)

// NodeKind tags what a Node carries. Code that needs to handle every kind
// should go through Walk and a Visitor rather than switching by hand.
type NodeKind uint8

const (
	NodeKindGroup NodeKind = iota
	NodeKindMesh
	NodeKindSkinnedMesh
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindGroup:
		return "group"
	case NodeKindMesh:
		return "mesh"
	case NodeKindSkinnedMesh:
		return "skinned-mesh"
	default:
		return fmt.Sprintf("node-kind(%d)", uint8(k))
	}
}

type Node struct {
	ID        uuid.UUID
	Name      string
	Kind      NodeKind
	Transform *math.Transform
	Parent    *Node
	Children  []*Node

	// Set for NodeKindMesh and NodeKindSkinnedMesh.
	Mesh *MeshData
	// Set for NodeKindSkinnedMesh only.
	Skeleton *Skeleton

	CastShadow    bool
	ReceiveShadow bool
}

// MeshData is the drawable part of a mesh node: one geometry buffer per
// primitive plus the material it is drawn with.
type MeshData struct {
	Primitives []*Primitive
	Morph      *MorphTargets
}

type Primitive struct {
	Geometry resources.Handle
	Material *Material
}

// MorphTargets holds the named blend-shape channels of a mesh. Influences
// is indexed like Names.
type MorphTargets struct {
	Names      []string
	Influences []float32
}

func (m *MorphTargets) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Names)
}

// TextureMap binds a texture to a material slot ("baseColor", "normal", ...).
type TextureMap struct {
	Slot    string
	Texture resources.Handle
}

type Material struct {
	Handle resources.Handle
	Name   string
	Maps   []TextureMap
}

type Skeleton struct {
	Handle resources.Handle
	Joints []*Node
}

func newNode(name string, kind NodeKind) *Node {
	return &Node{
		ID:        core.NewIdentifier(),
		Name:      name,
		Kind:      kind,
		Transform: math.TransformCreate(),
	}
}

func NewGroup(name string) *Node {
	return newNode(name, NodeKindGroup)
}

func NewMesh(name string, mesh *MeshData) *Node {
	n := newNode(name, NodeKindMesh)
	n.Mesh = mesh
	return n
}

func NewSkinnedMesh(name string, mesh *MeshData, skeleton *Skeleton) *Node {
	n := newNode(name, NodeKindSkinnedMesh)
	n.Mesh = mesh
	n.Skeleton = skeleton
	return n
}

// Label is the node name, or its uuid when it has none.
func (n *Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.String()
}

// IsMesh reports whether the node draws geometry.
func (n *Node) IsMesh() bool {
	return n.Kind == NodeKindMesh || n.Kind == NodeKindSkinnedMesh
}

// Add appends child and links both the node and transform hierarchies.
func (n *Node) Add(child *Node) {
	child.Parent = n
	child.Transform.Parent = n.Transform
	n.Children = append(n.Children, child)
}

// Find returns the first node in the subtree with the given name.
func (n *Node) Find(name string) *Node {
	var found *Node
	Traverse(n, func(c *Node) bool {
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// Contains reports whether target is n or one of its descendants.
func (n *Node) Contains(target *Node) bool {
	for c := target; c != nil; c = c.Parent {
		if c == n {
			return true
		}
	}
	return false
}
