package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// TextureInfo is what the viewer needs to know about an image before it is
// uploaded: its dimensions and the RGBA size on the device.
type TextureInfo struct {
	Width  int
	Height int
	Format string
}

func (t TextureInfo) Size() uint64 {
	return uint64(t.Width) * uint64(t.Height) * 4
}

// DecodeTextureHeader decodes only the header of an encoded image.
func DecodeTextureHeader(data []byte) (TextureInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return TextureInfo{}, err
	}
	return TextureInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// imageData returns the encoded bytes of a glTF image, whether it lives in
// a buffer view, a data URI or a file next to the model.
func imageData(doc *gltf.Document, img *gltf.Image, dir string) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		if int(*img.BufferView) >= len(doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", *img.BufferView)
		}
		view := doc.BufferViews[*img.BufferView]
		if int(view.Buffer) >= len(doc.Buffers) {
			return nil, fmt.Errorf("buffer %d out of range", view.Buffer)
		}
		data := doc.Buffers[view.Buffer].Data
		start, end := int(view.ByteOffset), int(view.ByteOffset)+int(view.ByteLength)
		if end > len(data) {
			return nil, fmt.Errorf("buffer view %d exceeds buffer", *img.BufferView)
		}
		return data[start:end], nil
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		uri := filepath.FromSlash(img.URI)
		if filepath.IsAbs(uri) || strings.HasPrefix(filepath.Clean(uri), "..") {
			return nil, fmt.Errorf("image uri %q escapes the model directory", img.URI)
		}
		return os.ReadFile(filepath.Join(dir, uri))
	default:
		return nil, fmt.Errorf("image %q has no data", img.Name)
	}
}
