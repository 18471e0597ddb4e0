// Package scenedoctest builds small glTF documents for tests.
package scenedoctest

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Builder accumulates a glTF document.
type Builder struct {
	Doc *gltf.Document
}

// New starts an empty document with one default scene.
func New() *Builder {
	return &Builder{Doc: gltf.NewDocument()}
}

// Image embeds data behind a buffer view and returns the image index.
func (b *Builder) Image(mime string, data []byte) uint32 {
	idx, err := modeler.WriteImage(b.Doc, "", mime, bytes.NewReader(data))
	if err != nil {
		panic(err)
	}
	return idx
}

// DataURIImage embeds data as a base64 data URI.
func (b *Builder) DataURIImage(mime string, data []byte) uint32 {
	b.Doc.Images = append(b.Doc.Images, &gltf.Image{
		URI: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
	})
	return uint32(len(b.Doc.Images) - 1)
}

// ExternalImage references an image by URI.
func (b *Builder) ExternalImage(uri string) uint32 {
	b.Doc.Images = append(b.Doc.Images, &gltf.Image{URI: uri})
	return uint32(len(b.Doc.Images) - 1)
}

// Texture adds a texture sampling image.
func (b *Builder) Texture(image uint32) uint32 {
	b.Doc.Textures = append(b.Doc.Textures, &gltf.Texture{Source: gltf.Index(image)})
	return uint32(len(b.Doc.Textures) - 1)
}

// MaterialSpec describes a material; nil texture fields are left unset.
type MaterialSpec struct {
	Name              string
	BaseColor         *uint32
	MetallicRoughness *uint32
	Normal            *uint32
	BaseColorFactor   *[4]float32
	Metallic          *float32
	Roughness         *float32
}

// Material adds a material.
func (b *Builder) Material(spec MaterialSpec) uint32 {
	pbr := &gltf.PBRMetallicRoughness{
		BaseColorFactor: spec.BaseColorFactor,
		MetallicFactor:  spec.Metallic,
		RoughnessFactor: spec.Roughness,
	}
	if spec.BaseColor != nil {
		pbr.BaseColorTexture = &gltf.TextureInfo{Index: *spec.BaseColor}
	}
	if spec.MetallicRoughness != nil {
		pbr.MetallicRoughnessTexture = &gltf.TextureInfo{Index: *spec.MetallicRoughness}
	}
	m := &gltf.Material{Name: spec.Name, PBRMetallicRoughness: pbr}
	if spec.Normal != nil {
		m.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(*spec.Normal)}
	}
	b.Doc.Materials = append(b.Doc.Materials, m)
	return uint32(len(b.Doc.Materials) - 1)
}

// Geometry is one triangle primitive.
type Geometry struct {
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   []uint32
	Material  *uint32
}

// Triangle returns a unit right triangle in the XY plane offset by x.
func Triangle(x float32) Geometry {
	return Geometry{
		Positions: [][3]float32{{x, 0, 0}, {x + 1, 0, 0}, {x, 1, 0}},
		UVs:       [][2]float32{{0, 0}, {1, 0}, {0, 1}},
		Indices:   []uint32{0, 1, 2},
	}
}

// Mesh adds a mesh with one primitive per geometry.
func (b *Builder) Mesh(name string, geoms ...Geometry) uint32 {
	mesh := &gltf.Mesh{Name: name}
	for _, g := range geoms {
		attrs := map[string]uint32{
			gltf.POSITION: modeler.WritePosition(b.Doc, g.Positions),
		}
		if g.Normals != nil {
			attrs[gltf.NORMAL] = modeler.WriteNormal(b.Doc, g.Normals)
		}
		if g.UVs != nil {
			attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(b.Doc, g.UVs)
		}
		prim := &gltf.Primitive{
			Attributes: attrs,
			Material:   g.Material,
		}
		if g.Indices != nil {
			prim.Indices = gltf.Index(modeler.WriteIndices(b.Doc, g.Indices))
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	b.Doc.Meshes = append(b.Doc.Meshes, mesh)
	return uint32(len(b.Doc.Meshes) - 1)
}

// Node adds a node. mesh may be nil.
func (b *Builder) Node(name string, mesh *uint32, children ...uint32) uint32 {
	b.Doc.Nodes = append(b.Doc.Nodes, &gltf.Node{
		Name:     name,
		Mesh:     mesh,
		Children: children,
	})
	return uint32(len(b.Doc.Nodes) - 1)
}

// Root adds node to the default scene.
func (b *Builder) Root(node uint32) {
	b.Doc.Scenes[0].Nodes = append(b.Doc.Scenes[0].Nodes, node)
}

// GLB encodes the document as binary glTF.
func (b *Builder) GLB() []byte {
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(b.Doc); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// PNG returns a w x h PNG filled with c.
func PNG(w, h int, c color.Color) []byte {
	return encode(w, h, c, imgio.PNGEncoder())
}

// JPEG returns a w x h JPEG filled with c.
func JPEG(w, h int, c color.Color) []byte {
	return encode(w, h, c, imgio.JPEGEncoder(90))
}

func encode(w, h int, c color.Color, enc imgio.Encoder) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
