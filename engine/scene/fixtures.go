package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/animaview/engine/resources"
)

// NewGround builds the static floor plane: a single quad lying in the XZ
// plane that only receives shadows.
func NewGround(alloc resources.Allocator, size float32) (*Node, error) {
	ledger := resources.NewLedger(alloc)
	geometry, err := ledger.Acquire(resources.KindGeometry, "ground", 4*32+6*4)
	if err != nil {
		return nil, fmt.Errorf("ground geometry: %w", err)
	}
	material, err := ledger.Acquire(resources.KindMaterial, "ground", 0)
	if err != nil {
		_ = ledger.Rollback()
		return nil, fmt.Errorf("ground material: %w", err)
	}

	n := NewMesh("ground", &MeshData{
		Primitives: []*Primitive{{
			Geometry: geometry,
			Material: &Material{Handle: material, Name: "ground"},
		}},
	})
	n.Transform.SetRotation(mgl32.QuatRotate(-mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0}))
	n.Transform.SetScale(mgl32.Vec3{size, size, 1})
	n.ReceiveShadow = true
	return n, nil
}

// NewGrid builds the helper grid drawn over the ground, as line geometry.
func NewGrid(alloc resources.Allocator, size float32, divisions int) (*Node, error) {
	ledger := resources.NewLedger(alloc)
	lines := uint64(divisions+1) * 2
	geometry, err := ledger.Acquire(resources.KindGeometry, "grid", lines*2*12)
	if err != nil {
		return nil, fmt.Errorf("grid geometry: %w", err)
	}
	material, err := ledger.Acquire(resources.KindMaterial, "grid", 0)
	if err != nil {
		_ = ledger.Rollback()
		return nil, fmt.Errorf("grid material: %w", err)
	}

	n := NewMesh("grid", &MeshData{
		Primitives: []*Primitive{{
			Geometry: geometry,
			Material: &Material{Handle: material, Name: "grid"},
		}},
	})
	n.Transform.SetScale(mgl32.Vec3{size, 1, size})
	return n, nil
}
