package scene

import "fmt"

// Visitor has one method per NodeKind, so adding a kind breaks every
// visitor at compile time instead of silently skipping nodes.
type Visitor interface {
	VisitGroup(n *Node)
	VisitMesh(n *Node)
	VisitSkinnedMesh(n *Node)
}

// Walk visits root and its descendants depth-first, parents before children.
func Walk(root *Node, v Visitor) {
	if root == nil {
		return
	}
	switch root.Kind {
	case NodeKindGroup:
		v.VisitGroup(root)
	case NodeKindMesh:
		v.VisitMesh(root)
	case NodeKindSkinnedMesh:
		v.VisitSkinnedMesh(root)
	default:
		panic(fmt.Sprintf("scene: unhandled %s", root.Kind))
	}
	for _, c := range root.Children {
		Walk(c, v)
	}
}

// Traverse calls fn for root and its descendants depth-first. Returning
// false from fn stops the traversal.
func Traverse(root *Node, fn func(*Node) bool) bool {
	if root == nil {
		return true
	}
	if !fn(root) {
		return false
	}
	for _, c := range root.Children {
		if !Traverse(c, fn) {
			return false
		}
	}
	return true
}

// Meshes returns every mesh and skinned mesh under root.
func Meshes(root *Node) []*Node {
	var out []*Node
	Traverse(root, func(n *Node) bool {
		if n.IsMesh() {
			out = append(out, n)
		}
		return true
	})
	return out
}
