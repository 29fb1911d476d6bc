package systems

import (
	"testing"

	"github.com/google/uuid"

	"github.com/spaghettifunk/animaview/engine/scene"
)

func morphMesh(name, id string, channels ...string) *scene.Node {
	n := scene.NewMesh(name, &scene.MeshData{Morph: &scene.MorphTargets{
		Names:      channels,
		Influences: make([]float32, len(channels)),
	}})
	n.ID = uuid.MustParse(id)
	return n
}

func TestMorphIDsDistinguishMeshesWithCommonPrefix(t *testing.T) {
	root := scene.NewGroup("Duet")
	root.Add(morphMesh("Body", "5f3c2a10-0000-4000-8000-000000000001", "smile"))
	root.Add(morphMesh("Face", "5f3c2a10-0000-4000-8000-000000000002", "smile", "jaw"))

	morphs := BuildMorphDescriptors(root)
	if len(morphs) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(morphs))
	}
	seen := make(map[string]bool)
	for _, d := range morphs {
		if seen[d.ID] {
			t.Fatalf("id %s assigned twice", d.ID)
		}
		seen[d.ID] = true
	}
	if morphs[0].ID != "5f3c2a10-0000-4000-8000-000000000001-0" {
		t.Fatalf("unexpected id %s", morphs[0].ID)
	}
}
