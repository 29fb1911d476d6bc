// Package assettest writes small binary glTF files for tests.
package assettest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Options describes the character to generate. The zero value is a single
// static triangle with an untextured material.
type Options struct {
	// Clips names one animation per entry, each moving the root joint.
	Clips []string
	// Morphs names the blend shapes of the body mesh.
	Morphs []string
	// Weights are the default morph influences.
	Weights []float32
	// FaceMorphs adds a second mesh, "Face", with its own blend shapes. It
	// shares the body material.
	FaceMorphs []string
	// RotationFromVec3 drives the first clip's rotation with three floats
	// per key, a shape loaders must refuse.
	RotationFromVec3 bool
	Texture bool
	Skinned bool
}

// Handles is the number of resources a loader acquires for a model built
// from o.
func (o Options) Handles() int {
	n := 2 // geometry + material
	if o.Texture {
		n++
	}
	if o.Skinned {
		n++
	}
	if len(o.FaceMorphs) > 0 {
		n++ // face geometry
	}
	return n
}

// Document builds the glTF document: an "Armature" group holding a "Hips"
// joint, a "Body" mesh and optionally a "Face" mesh.
func Document(o Options) (*gltf.Document, error) {
	doc := gltf.NewDocument()

	positions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}})
	indices := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	prim := &gltf.Primitive{
		Attributes: map[string]uint32{"POSITION": positions},
		Indices:    gltf.Index(indices),
		Material:   gltf.Index(0),
	}
	addTargets(doc, prim, len(o.Morphs))

	mesh := &gltf.Mesh{Name: "body", Primitives: []*gltf.Primitive{prim}}
	if len(o.Morphs) > 0 {
		mesh.Extras = map[string]interface{}{"targetNames": o.Morphs}
		mesh.Weights = o.Weights
	}
	doc.Meshes = append(doc.Meshes, mesh)

	if len(o.FaceMorphs) > 0 {
		facePrim := &gltf.Primitive{
			Attributes: map[string]uint32{"POSITION": positions},
			Indices:    gltf.Index(indices),
			Material:   gltf.Index(0),
		}
		addTargets(doc, facePrim, len(o.FaceMorphs))
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name:       "face",
			Primitives: []*gltf.Primitive{facePrim},
			Extras:     map[string]interface{}{"targetNames": o.FaceMorphs},
		})
	}

	material := &gltf.Material{Name: "skin", PBRMetallicRoughness: &gltf.PBRMetallicRoughness{}}
	if o.Texture {
		img, err := modeler.WriteImage(doc, "albedo", "image/png", bytes.NewReader(pngBytes()))
		if err != nil {
			return nil, err
		}
		doc.Textures = append(doc.Textures, &gltf.Texture{Name: "albedo", Source: gltf.Index(img)})
		material.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: 0}
	}
	doc.Materials = append(doc.Materials, material)

	armature := &gltf.Node{Name: "Armature", Children: []uint32{1, 2}}
	hips := &gltf.Node{Name: "Hips"}
	body := &gltf.Node{Name: "Body", Mesh: gltf.Index(0)}
	nodes := []*gltf.Node{armature, hips, body}
	if len(o.FaceMorphs) > 0 {
		armature.Children = append(armature.Children, 3)
		nodes = append(nodes, &gltf.Node{Name: "Face", Mesh: gltf.Index(1)})
	}
	for _, n := range nodes {
		n.Rotation = [4]float32{0, 0, 0, 1}
		n.Scale = [3]float32{1, 1, 1}
	}
	if o.Skinned {
		doc.Skins = append(doc.Skins, &gltf.Skin{Name: "rig", Joints: []uint32{1}})
		body.Skin = gltf.Index(0)
	}
	doc.Nodes = append(doc.Nodes, nodes...)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	for i, name := range o.Clips {
		times := writeFloats(doc, gltf.AccessorScalar, []float32{0, 1})
		values := writeFloats(doc, gltf.AccessorVec3, []float32{0, 0, 0, 0, float32(10 * (i + 1)), 0})
		path := gltf.TRSTranslation
		if i == 0 && o.RotationFromVec3 {
			path = gltf.TRSRotation
		}
		doc.Animations = append(doc.Animations, &gltf.Animation{
			Name: name,
			Samplers: []*gltf.AnimationSampler{{
				Input:         gltf.Index(times),
				Output:        gltf.Index(values),
				Interpolation: gltf.InterpolationLinear,
			}},
			Channels: []*gltf.Channel{{
				Sampler: gltf.Index(0),
				Target:  gltf.ChannelTarget{Node: gltf.Index(1), Path: path},
			}},
		})
	}
	return doc, nil
}

// addTargets gives prim n position morph targets, each lifting every vertex
// by its index.
func addTargets(doc *gltf.Document, prim *gltf.Primitive, n int) {
	for i := 0; i < n; i++ {
		offset := float32(i + 1)
		target := modeler.WritePosition(doc, [][3]float32{{0, offset, 0}, {0, offset, 0}, {0, offset, 0}})
		prim.Targets = append(prim.Targets, map[string]uint32{"POSITION": target})
	}
}

// WriteGLB writes <dir>/<name>.glb and returns its path.
func WriteGLB(dir, name string, o Options) (string, error) {
	doc, err := Document(o)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".glb")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	encoder := gltf.NewEncoder(f)
	encoder.AsBinary = true
	if err := encoder.Encode(doc); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCorrupt writes a file with the model extension that no loader can
// decode.
func WriteCorrupt(dir, name string) (string, error) {
	path := filepath.Join(dir, name+".glb")
	return path, os.WriteFile(path, []byte("glTF but not really"), 0o644)
}

// writeFloats appends tightly packed float data to the last buffer and
// returns the accessor index.
func writeFloats(doc *gltf.Document, typ gltf.AccessorType, data []float32) uint32 {
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	}
	buffer := doc.Buffers[len(doc.Buffers)-1]
	for len(buffer.Data)%4 != 0 {
		buffer.Data = append(buffer.Data, 0)
	}
	offset := len(buffer.Data)
	for _, f := range data {
		buffer.Data = binary.LittleEndian.AppendUint32(buffer.Data, math.Float32bits(f))
	}
	buffer.ByteLength = uint32(len(buffer.Data))

	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     uint32(len(doc.Buffers) - 1),
		ByteOffset: uint32(offset),
		ByteLength: uint32(len(data) * 4),
	})
	components := 1
	if typ == gltf.AccessorVec3 {
		components = 3
	}
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(uint32(len(doc.BufferViews) - 1)),
		ComponentType: gltf.ComponentFloat,
		Count:         uint32(len(data) / components),
		Type:          typ,
	})
	return uint32(len(doc.Accessors) - 1)
}

func pngBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
