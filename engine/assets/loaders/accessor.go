package loaders

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
)

func componentSize(c gltf.ComponentType) int {
	switch c {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	default:
		return 4
	}
}

func componentCount(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	default:
		return 0
	}
}

// accessorBytes is the size of the data an accessor describes, as it would
// be uploaded.
func accessorBytes(acr *gltf.Accessor) uint64 {
	return uint64(acr.Count) * uint64(componentCount(acr.Type)) * uint64(componentSize(acr.ComponentType))
}

// readFloats decodes an accessor into a flat float slice. Normalized integer
// components are mapped to [0,1] or [-1,1] the way glTF defines them.
func readFloats(doc *gltf.Document, index uint32) ([]float32, int, error) {
	if int(index) >= len(doc.Accessors) {
		return nil, 0, fmt.Errorf("accessor %d out of range", index)
	}
	acr := doc.Accessors[index]
	n := componentCount(acr.Type)
	if n == 0 {
		return nil, 0, fmt.Errorf("accessor %d: unsupported type %v", index, acr.Type)
	}
	out := make([]float32, int(acr.Count)*n)
	if acr.BufferView == nil {
		// sparse-only or zero-filled accessor
		return out, n, nil
	}
	if int(*acr.BufferView) >= len(doc.BufferViews) {
		return nil, 0, fmt.Errorf("accessor %d: buffer view %d out of range", index, *acr.BufferView)
	}
	view := doc.BufferViews[*acr.BufferView]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil, 0, fmt.Errorf("accessor %d: buffer %d out of range", index, view.Buffer)
	}
	data := doc.Buffers[view.Buffer].Data

	size := componentSize(acr.ComponentType)
	stride := int(view.ByteStride)
	if stride == 0 {
		stride = size * n
	}
	base := int(view.ByteOffset) + int(acr.ByteOffset)
	last := base + (int(acr.Count)-1)*stride + size*n
	if acr.Count > 0 && last > len(data) {
		return nil, 0, fmt.Errorf("accessor %d: needs %d bytes, buffer has %d", index, last, len(data))
	}

	for i := 0; i < int(acr.Count); i++ {
		for c := 0; c < n; c++ {
			off := base + i*stride + c*size
			out[i*n+c] = readComponent(data[off:], acr.ComponentType, acr.Normalized)
		}
	}
	return out, n, nil
}

func readComponent(b []byte, c gltf.ComponentType, normalized bool) float32 {
	switch c {
	case gltf.ComponentFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltf.ComponentUbyte:
		if normalized {
			return float32(b[0]) / 255
		}
		return float32(b[0])
	case gltf.ComponentByte:
		if normalized {
			return float32(math.Max(float64(int8(b[0]))/127, -1))
		}
		return float32(int8(b[0]))
	case gltf.ComponentUshort:
		v := binary.LittleEndian.Uint16(b)
		if normalized {
			return float32(v) / 65535
		}
		return float32(v)
	case gltf.ComponentShort:
		v := int16(binary.LittleEndian.Uint16(b))
		if normalized {
			return float32(math.Max(float64(v)/32767, -1))
		}
		return float32(v)
	default:
		return float32(binary.LittleEndian.Uint32(b))
	}
}
