package scenedoc

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetpipe/internal/scenedoc/scenedoctest"
)

func TestRef(t *testing.T) {
	var zero Ref
	assert.Equal(t, None, zero)
	assert.False(t, zero.IsSet())
	_, ok := zero.Get()
	assert.False(t, ok)

	r := Index(3)
	i, ok := r.Get()
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	assert.True(t, r.validFor(4))
	assert.False(t, r.validFor(3))
	assert.True(t, None.validFor(0))
	assert.Equal(t, "#3", r.String())
	assert.Equal(t, "none", None.String())
}

func TestImageTypeExt(t *testing.T) {
	assert.Equal(t, "jpg", ImageJpg.Ext())
	assert.Equal(t, "png", ImagePng.Ext())
	assert.Equal(t, "png", ImageUnknown.Ext())
	assert.Equal(t, ImageJpg, ImageTypeFromMIME("image/JPEG"))
	assert.Equal(t, ImageUnknown, ImageTypeFromMIME("image/ktx2"))
}

func TestImageData(t *testing.T) {
	doc := &Document{
		Buffers:     []Buffer{{Data: []byte("0123456789")}},
		BufferViews: []BufferView{{Buffer: 0, Offset: 2, Length: 3}},
		Images: []Image{
			{BufferView: Index(0)},
			{Data: []byte("raw")},
			{URI: "wood.png"},
		},
	}

	data, err := doc.ImageData(0)
	require.NoError(t, err)
	assert.Equal(t, "234", string(data))

	data, err = doc.ImageData(1)
	require.NoError(t, err)
	assert.Equal(t, "raw", string(data))

	_, err = doc.ImageData(2)
	assert.ErrorIs(t, err, ErrExternalImage)

	assert.Equal(t, 2, doc.EmbeddedImageCount())
}

func TestImageTypeSniffing(t *testing.T) {
	doc := &Document{
		Images: []Image{
			{Data: scenedoctest.JPEG(2, 2, color.White)},
			{Data: scenedoctest.PNG(2, 2, color.White)},
			{URI: "a/b/wood.JPG"},
			{URI: "wood.ktx2"},
			{MimeType: "image/png", Data: scenedoctest.JPEG(2, 2, color.White)},
		},
	}
	want := []ImageType{ImageJpg, ImagePng, ImageJpg, ImageUnknown, ImagePng}
	for i, w := range want {
		assert.Equal(t, w, doc.imageType(i), "image %d", i)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Document {
		return &Document{
			Scenes:       []Scene{{Nodes: []int{0}}},
			DefaultScene: Index(0),
			Nodes:        []Node{{Mesh: Index(0), Children: []int{1}}, {}},
			Meshes: []Mesh{{Primitives: []Primitive{{
				Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Indices:   []uint32{0, 1, 2},
				Material:  Index(0),
			}}}},
			Materials: []Material{{BaseColorTexture: Index(0)}},
			Textures:  []Texture{{Source: Index(0)}},
			Images:    []Image{{BufferView: Index(0)}},
			BufferViews: []BufferView{{
				Buffer: 0, Offset: 0, Length: 4,
			}},
			Buffers: []Buffer{{Data: make([]byte, 4)}},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(d *Document)
	}{
		{"texture source", func(d *Document) { d.Textures[0].Source = Index(5) }},
		{"base color slot", func(d *Document) { d.Materials[0].BaseColorTexture = Index(1) }},
		{"metallic slot", func(d *Document) { d.Materials[0].MetallicRoughnessTexture = Index(9) }},
		{"normal slot", func(d *Document) { d.Materials[0].NormalTexture = Index(2) }},
		{"image buffer view", func(d *Document) { d.Images[0].BufferView = Index(1) }},
		{"buffer view range", func(d *Document) { d.BufferViews[0].Length = 5 }},
		{"primitive material", func(d *Document) { d.Meshes[0].Primitives[0].Material = Index(1) }},
		{"vertex index", func(d *Document) { d.Meshes[0].Primitives[0].Indices[2] = 3 }},
		{"node mesh", func(d *Document) { d.Nodes[0].Mesh = Index(1) }},
		{"node child", func(d *Document) { d.Nodes[0].Children = []int{7} }},
		{"node skin", func(d *Document) { d.Nodes[0].Skin = Index(0) }},
		{"scene node", func(d *Document) { d.Scenes[0].Nodes = []int{2} }},
		{"default scene", func(d *Document) { d.DefaultScene = Index(1) }},
		{"cycle", func(d *Document) { d.Nodes[1].Children = []int{0} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			assert.ErrorIs(t, d.Validate(), ErrInvalidReference)
		})
	}
}

func TestRoots(t *testing.T) {
	nodes := []Node{{Children: []int{1}}, {}, {}}

	d := &Document{Nodes: nodes, Scenes: []Scene{{Nodes: []int{2}}, {Nodes: []int{0}}}, DefaultScene: Index(1)}
	assert.Equal(t, []int{0}, d.Roots())

	d.DefaultScene = None
	assert.Equal(t, []int{2}, d.Roots())

	d.Scenes = nil
	assert.Equal(t, []int{0, 2}, d.Roots())
}

func TestNodeLocal(t *testing.T) {
	n := Node{Translation: [3]float32{1, 2, 3}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{2, 2, 2}}
	assert.Equal(t, [3]float32{3, 4, 5}, n.Local().TransformPoint([3]float32{1, 1, 1}))

	n.HasMatrix = true
	n.Matrix[0], n.Matrix[5], n.Matrix[10], n.Matrix[15] = 1, 1, 1, 1
	n.Matrix[12] = 10
	assert.Equal(t, [3]float32{11, 1, 1}, n.Local().TransformPoint([3]float32{1, 1, 1}))
}

func TestReset(t *testing.T) {
	d := &Document{Nodes: []Node{{}}, Materials: []Material{{}}}
	d.Reset()
	assert.Empty(t, d.Nodes)
	assert.Empty(t, d.Materials)
}
