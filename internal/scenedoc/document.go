// Package scenedoc holds the parsed scene document the export pipeline
// works on and the glTF parser that produces it.
package scenedoc

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/Faultbox/assetpipe/pkg/math"
)

// Errors.
var (
	ErrInvalidReference = errors.New("scenedoc: invalid reference")
	ErrParse            = errors.New("scenedoc: cannot parse document")
	ErrExternalImage    = errors.New("scenedoc: image is not embedded")
)

// Ref is an optional index into one of the document's sequences.
// The zero value is None.
type Ref struct {
	index int
	set   bool
}

// None is the absent reference.
var None = Ref{}

// Index returns a reference to entry i.
func Index(i int) Ref {
	return Ref{index: i, set: true}
}

// Get returns the index and whether the reference is present.
func (r Ref) Get() (int, bool) {
	return r.index, r.set
}

// IsSet reports whether the reference is present.
func (r Ref) IsSet() bool {
	return r.set
}

// validFor reports whether the reference is absent or within [0, n).
func (r Ref) validFor(n int) bool {
	return !r.set || (r.index >= 0 && r.index < n)
}

func (r Ref) String() string {
	if !r.set {
		return "none"
	}
	return fmt.Sprintf("#%d", r.index)
}

// ImageType is the declared encoding of an image.
type ImageType int

const (
	ImageUnknown ImageType = iota
	ImagePng
	ImageJpg
)

// Ext returns the file extension used when the image is written out.
// Anything that is not JPEG is written as PNG.
func (t ImageType) Ext() string {
	if t == ImageJpg {
		return "jpg"
	}
	return "png"
}

// ImageTypeFromMIME maps a MIME type to an ImageType.
func ImageTypeFromMIME(mime string) ImageType {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ImageJpg
	case "image/png":
		return ImagePng
	}
	return ImageUnknown
}

// Document is a parsed scene graph.
type Document struct {
	Scenes       []Scene
	DefaultScene Ref
	Nodes        []Node
	Meshes       []Mesh
	Materials    []Material
	Textures     []Texture
	Images       []Image
	BufferViews  []BufferView
	Buffers      []Buffer
	Skins        []Skin
}

// Scene lists root nodes.
type Scene struct {
	Name  string
	Nodes []int
}

// Node is one entry of the node graph.
type Node struct {
	Name        string
	Children    []int
	Mesh        Ref
	Skin        Ref
	HasMatrix   bool
	Matrix      math.Mat4
	Translation [3]float32
	Rotation    [4]float32 // x, y, z, w
	Scale       [3]float32
}

// Local returns the node's local transform: its matrix when one is given,
// otherwise T * R * S.
func (n *Node) Local() math.Mat4 {
	if n.HasMatrix {
		return n.Matrix
	}
	return math.FromTRS(n.Translation, n.Rotation, n.Scale)
}

// Mesh is a list of primitives.
type Mesh struct {
	Name       string
	Primitives []Primitive
}

// Primitive holds decoded vertex streams.
type Primitive struct {
	Positions [][3]float32
	Normals   [][3]float32
	TexCoords [][2]float32
	Joints    [][4]uint16
	Weights   [][4]float32
	// Indices is nil for non-indexed primitives.
	Indices   []uint32
	Material  Ref
	Triangles bool
}

// Material is a metallic-roughness material.
type Material struct {
	Name                     string
	BaseColorTexture         Ref // into Textures
	MetallicRoughnessTexture Ref
	NormalTexture            Ref
	BaseColorFactor          [4]float32
	MetallicFactor           float32
	RoughnessFactor          float32
}

// Texture points at an image.
type Texture struct {
	Name   string
	Source Ref // into Images
}

// Image is embedded when its bytes live in the document, either decoded
// from a data URI into Data or behind BufferView. Otherwise URI names an
// external file.
type Image struct {
	Name       string
	URI        string
	MimeType   string
	Type       ImageType
	BufferView Ref
	Data       []byte
}

// Embedded reports whether the document owns the image bytes.
func (img *Image) Embedded() bool {
	return len(img.Data) > 0 || img.BufferView.IsSet()
}

// BufferView is a byte range of a buffer.
type BufferView struct {
	Buffer int
	Offset int
	Length int
}

// Buffer is a block of binary data.
type Buffer struct {
	URI  string
	Data []byte
}

// Skin lists joint nodes.
type Skin struct {
	Name   string
	Joints []int
}

// ImageData returns the bytes of embedded image i.
func (d *Document) ImageData(i int) ([]byte, error) {
	if i < 0 || i >= len(d.Images) {
		return nil, errors.Wrapf(ErrInvalidReference, "image %d", i)
	}
	img := &d.Images[i]
	if len(img.Data) > 0 {
		return img.Data, nil
	}
	bv, ok := img.BufferView.Get()
	if !ok {
		return nil, errors.Wrapf(ErrExternalImage, "image %d (%s)", i, img.URI)
	}
	return d.bufferViewData(bv)
}

func (d *Document) bufferViewData(i int) ([]byte, error) {
	if i < 0 || i >= len(d.BufferViews) {
		return nil, errors.Wrapf(ErrInvalidReference, "buffer view %d", i)
	}
	view := d.BufferViews[i]
	if view.Buffer < 0 || view.Buffer >= len(d.Buffers) {
		return nil, errors.Wrapf(ErrInvalidReference, "buffer view %d: buffer %d", i, view.Buffer)
	}
	data := d.Buffers[view.Buffer].Data
	end := view.Offset + view.Length
	if view.Offset < 0 || view.Length < 0 || end > len(data) {
		return nil, errors.Wrapf(ErrInvalidReference, "buffer view %d: range [%d:%d] of %d bytes",
			i, view.Offset, end, len(data))
	}
	return data[view.Offset:end], nil
}

// EmbeddedImageCount returns how many images are embedded.
func (d *Document) EmbeddedImageCount() int {
	n := 0
	for i := range d.Images {
		if d.Images[i].Embedded() {
			n++
		}
	}
	return n
}

// Roots returns the root nodes: the default scene's nodes, the first
// scene's when no default is set, or every node without a parent.
func (d *Document) Roots() []int {
	if i, ok := d.DefaultScene.Get(); ok && i < len(d.Scenes) {
		return d.Scenes[i].Nodes
	}
	if len(d.Scenes) > 0 {
		return d.Scenes[0].Nodes
	}
	hasParent := make([]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

// Reset drops every entry.
func (d *Document) Reset() {
	*d = Document{}
}
