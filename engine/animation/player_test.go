package animation

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/animaview/engine/scene"
)

func riggedRoot() (*scene.Node, *scene.Node, *scene.Node) {
	root := scene.NewGroup("root")
	hips := scene.NewGroup("hips")
	face := scene.NewMesh("face", &scene.MeshData{
		Morph: &scene.MorphTargets{Names: []string{"smile", "blink"}, Influences: []float32{0, 0}},
	})
	root.Add(hips)
	hips.Add(face)
	return root, hips, face
}

func walkClip(t *testing.T, hips, face *scene.Node) *Clip {
	t.Helper()
	clip, err := NewClip("walk", []*Channel{
		{
			Target: hips,
			Path:   PathTranslation,
			Times:  []float32{0, 1, 2},
			Values: []float32{0, 0, 0, 10, 0, 0, 20, 0, 0},
			Stride: 3,
		},
		{
			Target: hips,
			Path:   PathRotation,
			Times:  []float32{0, 2},
			Values: []float32{0, 0, 0, 1, 0, 1, 0, 0},
			Stride: 4,
		},
		{
			Target:        face,
			Path:          PathWeights,
			Interpolation: InterpolationStep,
			Times:         []float32{0, 1},
			Values:        []float32{0, 0, 1, 0.5},
			Stride:        2,
		},
	})
	if err != nil {
		t.Fatalf("new clip: %v", err)
	}
	return clip
}

func TestNewClipDuration(t *testing.T) {
	_, hips, face := riggedRoot()
	clip := walkClip(t, hips, face)
	if clip.Duration != 2 {
		t.Fatalf("expected duration 2, got %f", clip.Duration)
	}
}

func TestNewClipRejectsMismatchedValues(t *testing.T) {
	_, hips, _ := riggedRoot()
	_, err := NewClip("broken", []*Channel{{
		Target: hips, Path: PathScale, Times: []float32{0, 1}, Values: []float32{1, 1, 1}, Stride: 3,
	}})
	if err == nil {
		t.Fatal("expected an error for a short value buffer")
	}
}

func TestPlayerStartsAtZeroAndInterpolates(t *testing.T) {
	root, hips, face := riggedRoot()
	p, err := NewPlayer(root, walkClip(t, hips, face))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if p.Elapsed() != 0 {
		t.Fatalf("expected elapsed 0, got %f", p.Elapsed())
	}

	p.Advance(0.5)
	if got := hips.Transform.Position; !got.ApproxEqual(mgl32.Vec3{5, 0, 0}) {
		t.Fatalf("expected hips at x=5, got %v", got)
	}
	if face.Mesh.Morph.Influences[0] != 0 {
		t.Fatalf("step interpolation must hold the first key, got %v", face.Mesh.Morph.Influences)
	}

	p.Advance(0.75)
	if got := face.Mesh.Morph.Influences; got[0] != 1 || got[1] != 0.5 {
		t.Fatalf("expected weights [1 0.5], got %v", got)
	}

	// Halfway through the rotation: 90 degrees around Y.
	p.Reset()
	p.Advance(1)
	want := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	if !hips.Transform.Rotation.ApproxEqualThreshold(want, 1e-4) {
		t.Fatalf("expected %v, got %v", want, hips.Transform.Rotation)
	}
}

func TestPlayerLoopsAndStops(t *testing.T) {
	root, hips, face := riggedRoot()
	p, _ := NewPlayer(root, walkClip(t, hips, face))

	p.Advance(2.5)
	if p.Elapsed() != 0.5 {
		t.Fatalf("looping player should wrap to 0.5, got %f", p.Elapsed())
	}

	p.Loop = false
	p.Advance(5)
	if p.Elapsed() != 2 || p.Playing() {
		t.Fatalf("non-looping player should stop at the end, elapsed=%f playing=%v", p.Elapsed(), p.Playing())
	}

	p.Pause()
	p.Reset()
	p.Advance(1)
	if p.Elapsed() != 0 {
		t.Fatalf("paused player must not advance, got %f", p.Elapsed())
	}
}

func TestNewPlayerRejectsForeignClip(t *testing.T) {
	_, hips, face := riggedRoot()
	other := scene.NewGroup("other")
	if _, err := NewPlayer(other, walkClip(t, hips, face)); err == nil {
		t.Fatal("expected an error binding a clip to another asset")
	}
}

func TestNewClipRejectsStrideForPath(t *testing.T) {
	_, hips, _ := riggedRoot()
	cases := []struct {
		path   Path
		stride int
	}{
		{PathRotation, 3},
		{PathTranslation, 2},
		{PathScale, 1},
		{PathTranslation, 4},
	}
	for _, c := range cases {
		_, err := NewClip("bad", []*Channel{{
			Target: hips,
			Path:   c.path,
			Times:  []float32{0, 1},
			Values: make([]float32, 2*c.stride),
			Stride: c.stride,
		}})
		if err == nil {
			t.Fatalf("%s with stride %d was accepted", c.path, c.stride)
		}
	}
}
