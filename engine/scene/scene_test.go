package scene

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/animaview/engine/resources"
)

type countingVisitor struct {
	groups, meshes, skinned int
}

func (v *countingVisitor) VisitGroup(*Node)       { v.groups++ }
func (v *countingVisitor) VisitMesh(*Node)        { v.meshes++ }
func (v *countingVisitor) VisitSkinnedMesh(*Node) { v.skinned++ }

type fakeAllocator struct {
	next     uint32
	released []resources.Handle
}

func (a *fakeAllocator) Acquire(kind resources.Kind, name string, size uint64) (resources.Handle, error) {
	a.next++
	return resources.Handle{ID: a.next, Kind: kind, Name: name, Size: size}, nil
}

func (a *fakeAllocator) Release(h resources.Handle) error {
	a.released = append(a.released, h)
	return nil
}

func TestWalkVisitsEveryKind(t *testing.T) {
	root := NewGroup("root")
	armature := NewGroup("armature")
	body := NewSkinnedMesh("body", &MeshData{}, &Skeleton{})
	hat := NewMesh("", &MeshData{})
	root.Add(armature)
	armature.Add(body)
	body.Add(hat)

	v := &countingVisitor{}
	Walk(root, v)
	if v.groups != 2 || v.meshes != 1 || v.skinned != 1 {
		t.Fatalf("unexpected counts %+v", v)
	}
	if got := len(Meshes(root)); got != 2 {
		t.Fatalf("expected 2 meshes, got %d", got)
	}
	if hat.Label() != hat.ID.String() {
		t.Fatalf("unnamed node should be labelled by uuid, got %q", hat.Label())
	}
	if root.Find("body") != body || !root.Contains(hat) || armature.Contains(root) {
		t.Fatal("hierarchy lookups are wrong")
	}
	if hat.Transform.Parent != body.Transform {
		t.Fatal("Add must link transforms")
	}
}

func TestSceneAttachDetach(t *testing.T) {
	s := New()
	a := NewGroup("a")

	if err := s.Attach(a); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := s.Attach(a); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("expected ErrAlreadyAttached, got %v", err)
	}
	if !s.IsAttached(a) || len(s.Roots()) != 1 {
		t.Fatal("expected a single attached root")
	}
	if err := s.Detach(a); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if err := s.Detach(a); !errors.Is(err, ErrNotAttached) {
		t.Fatalf("expected ErrNotAttached, got %v", err)
	}
}

func TestGroundReceivesShadows(t *testing.T) {
	alloc := &fakeAllocator{}
	ground, err := NewGround(alloc, 2000)
	if err != nil {
		t.Fatalf("ground: %v", err)
	}
	if !ground.ReceiveShadow || ground.CastShadow {
		t.Fatal("ground should only receive shadows")
	}
	if alloc.next != 2 {
		t.Fatalf("expected geometry and material handles, got %d", alloc.next)
	}
}

func TestCameraAspect(t *testing.T) {
	c := NewPerspectiveCamera(45, 1, 1, 2000)
	c.SetAspect(1920, 1080)
	if c.Aspect != float32(1920)/1080 {
		t.Fatalf("unexpected aspect %f", c.Aspect)
	}
	c.SetAspect(100, 0)
	if c.Aspect != float32(1920)/1080 {
		t.Fatal("minimized window must not change the aspect")
	}
}
