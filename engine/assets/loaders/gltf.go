package loaders

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/spaghettifunk/animaview/engine/animation"
	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/resources"
	"github.com/spaghettifunk/animaview/engine/scene"
)

// GLTFLoader reads .glb and .gltf files.
type GLTFLoader struct{}

var _ ModelLoader = &GLTFLoader{}

func (l *GLTFLoader) Load(ctx context.Context, path string, alloc resources.Allocator) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	ledger := resources.NewLedger(alloc)
	b := &gltfBuilder{
		ctx:       ctx,
		doc:       doc,
		name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		dir:       filepath.Dir(path),
		ledger:    ledger,
		meshes:    make(map[uint32][]*scene.Primitive),
		materials: make(map[uint32]*scene.Material),
		textures:  make(map[uint32]resources.Handle),
		skeletons: make(map[uint32]*scene.Skeleton),
	}
	model, err := b.build()
	if err != nil {
		if rerr := ledger.Rollback(); rerr != nil {
			core.LogWarn("rollback of %s left resources behind: %s", path, rerr)
		}
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	model.Handles = ledger.Handles()
	core.LogDebug("loaded %s: %d nodes, %d clips, %d handles", path, len(b.nodes), len(model.Clips), len(model.Handles))
	return model, nil
}

type gltfBuilder struct {
	ctx    context.Context
	doc    *gltf.Document
	name   string
	dir    string
	ledger *resources.Ledger

	nodes     []*scene.Node
	meshes    map[uint32][]*scene.Primitive
	materials map[uint32]*scene.Material
	textures  map[uint32]resources.Handle
	skeletons map[uint32]*scene.Skeleton
}

func (b *gltfBuilder) build() (*Model, error) {
	b.nodes = make([]*scene.Node, len(b.doc.Nodes))
	for i, n := range b.doc.Nodes {
		if err := b.ctx.Err(); err != nil {
			return nil, err
		}
		node, err := b.node(n)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, n.Name, err)
		}
		b.nodes[i] = node
	}

	for i, n := range b.doc.Nodes {
		for _, c := range n.Children {
			if int(c) >= len(b.nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
			child := b.nodes[c]
			if child.Parent != nil {
				return nil, fmt.Errorf("node %d: child %d has more than one parent", i, c)
			}
			if child.Contains(b.nodes[i]) {
				return nil, fmt.Errorf("node %d: child %d forms a cycle", i, c)
			}
			b.nodes[i].Add(child)
		}
	}

	for idx, skel := range b.skeletons {
		for _, j := range b.doc.Skins[idx].Joints {
			if int(j) >= len(b.nodes) {
				return nil, fmt.Errorf("skin %d: joint %d out of range", idx, j)
			}
			skel.Joints = append(skel.Joints, b.nodes[j])
		}
	}

	root := scene.NewGroup(b.name)
	for _, n := range b.sceneRoots() {
		root.Add(n)
	}

	clips := make([]*animation.Clip, 0, len(b.doc.Animations))
	for i, anim := range b.doc.Animations {
		clip, err := b.clip(i, anim)
		if err != nil {
			return nil, fmt.Errorf("animation %d (%s): %w", i, anim.Name, err)
		}
		if clip != nil {
			clips = append(clips, clip)
		}
	}

	return &Model{Root: root, Clips: clips}, nil
}

// sceneRoots returns the top level nodes of the default scene, or every
// parentless node when the file declares no scene.
func (b *gltfBuilder) sceneRoots() []*scene.Node {
	var s *gltf.Scene
	if b.doc.Scene != nil && int(*b.doc.Scene) < len(b.doc.Scenes) {
		s = b.doc.Scenes[*b.doc.Scene]
	} else if len(b.doc.Scenes) > 0 {
		s = b.doc.Scenes[0]
	}

	var roots []*scene.Node
	if s != nil {
		for _, i := range s.Nodes {
			if int(i) < len(b.nodes) && b.nodes[i].Parent == nil {
				roots = append(roots, b.nodes[i])
			}
		}
		return roots
	}
	for _, n := range b.nodes {
		if n.Parent == nil {
			roots = append(roots, n)
		}
	}
	return roots
}

func (b *gltfBuilder) node(n *gltf.Node) (*scene.Node, error) {
	var node *scene.Node
	switch {
	case n.Mesh == nil:
		node = scene.NewGroup(n.Name)
	default:
		mesh, err := b.mesh(*n.Mesh, n)
		if err != nil {
			return nil, err
		}
		if n.Skin == nil {
			node = scene.NewMesh(n.Name, mesh)
			break
		}
		skel, err := b.skeleton(*n.Skin)
		if err != nil {
			return nil, err
		}
		node = scene.NewSkinnedMesh(n.Name, mesh, skel)
	}

	pos, rot, scale := nodeTRS(n)
	node.Transform.SetPositionRotationScale(pos, rot, scale)
	return node, nil
}

// nodeTRS returns the local transform of a node, decomposing its matrix
// when one is given instead of separate components.
func nodeTRS(n *gltf.Node) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	m := mgl32.Mat4(n.Matrix)
	if m != mgl32.Ident4() && m != (mgl32.Mat4{}) {
		pos := m.Col(3).Vec3()
		sx, sy, sz := m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()
		rot := mgl32.Ident4()
		if sx != 0 && sy != 0 && sz != 0 {
			rot.SetCol(0, m.Col(0).Mul(1/sx))
			rot.SetCol(1, m.Col(1).Mul(1/sy))
			rot.SetCol(2, m.Col(2).Mul(1/sz))
			rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
		}
		return pos, mgl32.Mat4ToQuat(rot).Normalize(), mgl32.Vec3{sx, sy, sz}
	}

	rot := mgl32.Quat{W: n.Rotation[3], V: mgl32.Vec3{n.Rotation[0], n.Rotation[1], n.Rotation[2]}}
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	scale := mgl32.Vec3(n.Scale)
	if scale == (mgl32.Vec3{}) {
		scale = mgl32.Vec3{1, 1, 1}
	}
	return mgl32.Vec3(n.Translation), rot.Normalize(), scale
}

// mesh returns the mesh data for one node. Geometry and materials are shared
// between nodes instancing the same mesh; morph influences are per node.
func (b *gltfBuilder) mesh(index uint32, n *gltf.Node) (*scene.MeshData, error) {
	if int(index) >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", index)
	}
	m := b.doc.Meshes[index]

	prims, ok := b.meshes[index]
	if !ok {
		for i, p := range m.Primitives {
			prim, err := b.primitive(m, i, p)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", index, i, err)
			}
			prims = append(prims, prim)
		}
		b.meshes[index] = prims
	}

	data := &scene.MeshData{Primitives: prims}
	if morph := morphTargets(m, n); morph.Len() > 0 {
		data.Morph = morph
	}
	return data, nil
}

func (b *gltfBuilder) primitive(m *gltf.Mesh, i int, p *gltf.Primitive) (*scene.Primitive, error) {
	var size uint64
	for _, a := range p.Attributes {
		if int(a) >= len(b.doc.Accessors) {
			return nil, fmt.Errorf("attribute accessor %d out of range", a)
		}
		size += accessorBytes(b.doc.Accessors[a])
	}
	if p.Indices != nil {
		if int(*p.Indices) >= len(b.doc.Accessors) {
			return nil, fmt.Errorf("index accessor %d out of range", *p.Indices)
		}
		size += accessorBytes(b.doc.Accessors[*p.Indices])
	}
	for _, target := range p.Targets {
		for _, a := range target {
			if int(a) < len(b.doc.Accessors) {
				size += accessorBytes(b.doc.Accessors[a])
			}
		}
	}

	geometry, err := b.ledger.Acquire(resources.KindGeometry, fmt.Sprintf("%s/%d", m.Name, i), size)
	if err != nil {
		return nil, err
	}
	prim := &scene.Primitive{Geometry: geometry}
	if p.Material != nil {
		if prim.Material, err = b.material(*p.Material); err != nil {
			return nil, err
		}
	}
	return prim, nil
}

// morphTargets names the blend shapes of a mesh. Names come from the
// exporter's extras.targetNames when present; the node's weights override
// the mesh defaults.
func morphTargets(m *gltf.Mesh, n *gltf.Node) *scene.MorphTargets {
	count := 0
	for _, p := range m.Primitives {
		if len(p.Targets) > count {
			count = len(p.Targets)
		}
	}
	if count == 0 {
		return nil
	}

	names := targetNames(m.Extras)
	morph := &scene.MorphTargets{
		Names:      make([]string, count),
		Influences: make([]float32, count),
	}
	for i := range morph.Names {
		if i < len(names) && names[i] != "" {
			morph.Names[i] = names[i]
		} else {
			morph.Names[i] = fmt.Sprintf("morph_%d", i)
		}
	}
	weights := m.Weights
	if len(n.Weights) > 0 {
		weights = n.Weights
	}
	for i, w := range weights {
		if i < count {
			morph.Influences[i] = float32(w)
		}
	}
	return morph
}

func targetNames(extras interface{}) []string {
	fields, ok := extras.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := fields["targetNames"].([]interface{})
	if !ok {
		return nil
	}
	names := make([]string, len(raw))
	for i, v := range raw {
		names[i], _ = v.(string)
	}
	return names
}

func (b *gltfBuilder) material(index uint32) (*scene.Material, error) {
	if mat, ok := b.materials[index]; ok {
		return mat, nil
	}
	if int(index) >= len(b.doc.Materials) {
		return nil, fmt.Errorf("material %d out of range", index)
	}
	m := b.doc.Materials[index]

	slots := map[string]*uint32{}
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			slots["baseColor"] = gltf.Index(pbr.BaseColorTexture.Index)
		}
		if pbr.MetallicRoughnessTexture != nil {
			slots["metallicRoughness"] = gltf.Index(pbr.MetallicRoughnessTexture.Index)
		}
	}
	if m.NormalTexture != nil && m.NormalTexture.Index != nil {
		slots["normal"] = m.NormalTexture.Index
	}
	if m.OcclusionTexture != nil && m.OcclusionTexture.Index != nil {
		slots["occlusion"] = m.OcclusionTexture.Index
	}
	if m.EmissiveTexture != nil {
		slots["emissive"] = gltf.Index(m.EmissiveTexture.Index)
	}

	handle, err := b.ledger.Acquire(resources.KindMaterial, m.Name, 0)
	if err != nil {
		return nil, err
	}
	mat := &scene.Material{Handle: handle, Name: m.Name}
	for _, slot := range []string{"baseColor", "metallicRoughness", "normal", "occlusion", "emissive"} {
		idx, ok := slots[slot]
		if !ok {
			continue
		}
		tex, err := b.texture(*idx)
		if err != nil {
			return nil, fmt.Errorf("material %d %s: %w", index, slot, err)
		}
		mat.Maps = append(mat.Maps, scene.TextureMap{Slot: slot, Texture: tex})
	}
	b.materials[index] = mat
	return mat, nil
}

func (b *gltfBuilder) texture(index uint32) (resources.Handle, error) {
	if h, ok := b.textures[index]; ok {
		return h, nil
	}
	if int(index) >= len(b.doc.Textures) {
		return resources.Handle{}, fmt.Errorf("texture %d out of range", index)
	}
	t := b.doc.Textures[index]

	var info TextureInfo
	name := t.Name
	if t.Source != nil {
		if int(*t.Source) >= len(b.doc.Images) {
			return resources.Handle{}, fmt.Errorf("image %d out of range", *t.Source)
		}
		img := b.doc.Images[*t.Source]
		data, err := imageData(b.doc, img, b.dir)
		if err != nil {
			return resources.Handle{}, fmt.Errorf("image %d: %w", *t.Source, err)
		}
		if info, err = DecodeTextureHeader(data); err != nil {
			return resources.Handle{}, fmt.Errorf("image %d (%s): %w", *t.Source, img.MimeType, errors.Join(core.ErrUnsupportedAsset, err))
		}
		if name == "" {
			name = img.Name
		}
	} else {
		core.LogDebug("texture %d of %s has no source image", index, b.name)
	}

	h, err := b.ledger.Acquire(resources.KindTexture, name, info.Size())
	if err != nil {
		return resources.Handle{}, err
	}
	b.textures[index] = h
	return h, nil
}

func (b *gltfBuilder) skeleton(index uint32) (*scene.Skeleton, error) {
	if s, ok := b.skeletons[index]; ok {
		return s, nil
	}
	if int(index) >= len(b.doc.Skins) {
		return nil, fmt.Errorf("skin %d out of range", index)
	}
	skin := b.doc.Skins[index]
	h, err := b.ledger.Acquire(resources.KindSkeleton, skin.Name, uint64(len(skin.Joints))*64)
	if err != nil {
		return nil, err
	}
	s := &scene.Skeleton{Handle: h}
	b.skeletons[index] = s
	return s, nil
}

func (b *gltfBuilder) clip(i int, anim *gltf.Animation) (*animation.Clip, error) {
	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("clip_%d", i)
	}

	var channels []*animation.Channel
	for ci, c := range anim.Channels {
		if c.Target.Node == nil || c.Sampler == nil {
			continue
		}
		if int(*c.Target.Node) >= len(b.nodes) || int(*c.Sampler) >= len(anim.Samplers) {
			return nil, fmt.Errorf("channel %d: target or sampler out of range", ci)
		}
		s := anim.Samplers[*c.Sampler]
		if s.Input == nil || s.Output == nil {
			return nil, fmt.Errorf("channel %d: sampler without input or output", ci)
		}
		times, _, err := readFloats(b.doc, *s.Input)
		if err != nil {
			return nil, fmt.Errorf("channel %d input: %w", ci, err)
		}
		values, _, err := readFloats(b.doc, *s.Output)
		if err != nil {
			return nil, fmt.Errorf("channel %d output: %w", ci, err)
		}
		if len(times) == 0 {
			continue
		}

		ch := &animation.Channel{
			Target:        b.nodes[*c.Target.Node],
			Times:         times,
			Interpolation: animation.InterpolationLinear,
		}
		switch c.Target.Path {
		case gltf.TRSTranslation:
			ch.Path = animation.PathTranslation
		case gltf.TRSRotation:
			ch.Path = animation.PathRotation
		case gltf.TRSScale:
			ch.Path = animation.PathScale
		case gltf.TRSWeights:
			ch.Path = animation.PathWeights
		default:
			continue
		}

		perKey := len(values) / len(times)
		switch s.Interpolation {
		case gltf.InterpolationStep:
			ch.Interpolation = animation.InterpolationStep
		case gltf.InterpolationCubicSpline:
			// keep the keyframe values, drop the tangents
			perKey /= 3
			values = splineValues(values, len(times), perKey)
		}
		ch.Stride = perKey
		ch.Values = values
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		return nil, nil
	}
	return animation.NewClip(name, channels)
}

// splineValues extracts the value element of each (in-tangent, value,
// out-tangent) triple of a cubic spline output.
func splineValues(values []float32, keys, stride int) []float32 {
	out := make([]float32, 0, keys*stride)
	for k := 0; k < keys; k++ {
		start := (k*3 + 1) * stride
		if start+stride > len(values) {
			break
		}
		out = append(out, values[start:start+stride]...)
	}
	return out
}
