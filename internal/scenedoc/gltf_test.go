package scenedoc

import (
	"image/color"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetpipe/internal/scenedoc/scenedoctest"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

func newFS(t *testing.T) *vfs.Server {
	t.Helper()
	s, err := vfs.NewMem(vfs.DefaultAssigns("/proj"))
	require.NoError(t, err)
	return s
}

func TestParseGLB(t *testing.T) {
	b := scenedoctest.New()
	img := b.Image("image/png", scenedoctest.PNG(4, 4, color.White))
	b.ExternalImage("textures/wood.jpg")
	tex := b.Texture(img)
	mat := b.Material(scenedoctest.MaterialSpec{
		Name:            "wood",
		BaseColor:       &tex,
		BaseColorFactor: &[4]float32{0.5, 0.5, 0.5, 1},
		Roughness:       scenedoctest.Ptr[float32](0.25),
	})
	geom := scenedoctest.Triangle(0)
	geom.Material = &mat
	mesh := b.Mesh("seat", geom)
	child := b.Node("leg", nil)
	root := b.Node("chair", &mesh, child)
	b.Root(root)

	fs := newFS(t)
	require.NoError(t, vfs.WriteAll(fs, "src:props/chair.glb", b.GLB()))

	doc, err := NewGLTFParser(fs).Parse("src:props/chair.glb")
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "leg", doc.Nodes[0].Name)
	assert.Equal(t, []int{0}, doc.Nodes[1].Children)
	assert.Equal(t, []int{1}, doc.Roots())

	require.Len(t, doc.Meshes, 1)
	prim := doc.Meshes[0].Primitives[0]
	assert.True(t, prim.Triangles)
	assert.Equal(t, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, prim.Positions)
	assert.Equal(t, []uint32{0, 1, 2}, prim.Indices)
	assert.Len(t, prim.TexCoords, 3)
	assert.Equal(t, Index(0), prim.Material)

	require.Len(t, doc.Materials, 1)
	m := doc.Materials[0]
	assert.Equal(t, "wood", m.Name)
	assert.Equal(t, Index(0), m.BaseColorTexture)
	assert.Equal(t, None, m.MetallicRoughnessTexture)
	assert.Equal(t, None, m.NormalTexture)
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, m.BaseColorFactor)
	assert.Equal(t, float32(1), m.MetallicFactor)
	assert.Equal(t, float32(0.25), m.RoughnessFactor)

	require.Len(t, doc.Images, 2)
	assert.True(t, doc.Images[0].Embedded())
	assert.Equal(t, ImagePng, doc.Images[0].Type)
	assert.False(t, doc.Images[1].Embedded())
	assert.Equal(t, ImageJpg, doc.Images[1].Type)

	data, err := doc.ImageData(0)
	require.NoError(t, err)
	assert.Equal(t, scenedoctest.PNG(4, 4, color.White), data)
}

func TestParseDataURIImage(t *testing.T) {
	b := scenedoctest.New()
	b.DataURIImage("image/jpeg", scenedoctest.JPEG(2, 2, color.Black))
	b.Root(b.Node("empty", nil))

	fs := newFS(t)
	require.NoError(t, vfs.WriteAll(fs, "src:props/a.glb", b.GLB()))

	doc, err := NewGLTFParser(fs).Parse("src:props/a.glb")
	require.NoError(t, err)
	require.Len(t, doc.Images, 1)
	assert.True(t, doc.Images[0].Embedded())
	assert.Equal(t, ImageJpg, doc.Images[0].Type)
	assert.Equal(t, "image/jpeg", doc.Images[0].MimeType)
}

func TestParseFailures(t *testing.T) {
	fs := newFS(t)

	_, err := NewGLTFParser(fs).Parse("src:props/missing.gltf")
	assert.ErrorIs(t, err, ErrParse)

	require.NoError(t, vfs.WriteAll(fs, "src:props/garbage.gltf", []byte("{not json")))
	_, err = NewGLTFParser(fs).Parse("src:props/garbage.gltf")
	assert.ErrorIs(t, err, ErrParse)

	b := scenedoctest.New()
	b.Texture(4) // no such image
	require.NoError(t, vfs.WriteAll(fs, "src:props/bad.glb", b.GLB()))
	_, err = NewGLTFParser(fs).Parse("src:props/bad.glb")
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseExternalBuffer(t *testing.T) {
	fs := newFS(t)
	// one triangle: three float32 positions followed by three uint16 indices
	positions := []byte{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0x80, 0x3f, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0x80, 0x3f, 0, 0, 0, 0,
		0, 0, 1, 0, 2, 0,
	}
	require.NoError(t, vfs.WriteAll(fs, "src:props/tri.bin", positions))
	doc := `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"mesh": 0}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}],
  "buffers": [{"uri": "tri.bin", "byteLength": 42}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0,0,0], "max": [1,1,0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ]
}`
	require.NoError(t, vfs.WriteAll(fs, "src:props/tri.gltf", []byte(doc)))

	parsed, err := NewGLTFParser(fs).Parse("src:props/tri.gltf")
	require.NoError(t, err)
	prim := parsed.Meshes[0].Primitives[0]
	assert.Equal(t, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, prim.Positions)
	assert.Equal(t, []uint32{0, 1, 2}, prim.Indices)
}

func TestConvertPrimitiveWithoutPositions(t *testing.T) {
	src := gltf.NewDocument()
	src.Meshes = []*gltf.Mesh{{Name: "empty", Primitives: []*gltf.Primitive{{}}}}
	src.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	src.Scenes[0].Nodes = []uint32{0}

	doc, err := Convert(src)
	require.NoError(t, err)
	require.Len(t, doc.Meshes, 1)
	require.Len(t, doc.Meshes[0].Primitives, 1)
	assert.Empty(t, doc.Meshes[0].Primitives[0].Positions)
	assert.Empty(t, doc.Meshes[0].Primitives[0].Indices)
}
