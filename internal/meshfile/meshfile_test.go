package meshfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetpipe/internal/scene"
	"github.com/Faultbox/assetpipe/internal/scenedoc"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

func quad(skinned bool) *scene.Mesh {
	m := &scene.Mesh{
		Vertices: []scene.Vertex{
			{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 0}},
			{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{1, 0}},
			{Position: [3]float32{1, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{1, 1}},
			{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
		Groups: []scene.Group{
			{Name: "seat", Material: scenedoc.Index(2), FirstIndex: 0, IndexCount: 3},
			{Name: "", Material: scenedoc.None, FirstIndex: 3, IndexCount: 3},
		},
		Bounds:  scene.Bounds{Max: [3]float32{1, 1, 0}},
		Skinned: skinned,
	}
	if skinned {
		for i := range m.Vertices {
			m.Vertices[i].Joints = [4]uint16{uint16(i), 0, 0, 0}
			m.Vertices[i].Weights = [4]float32{1, 0, 0, 0}
		}
	}
	return m
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
		skinned  bool
	}{
		{"pc static", PC, false},
		{"ps3 static", PS3, false},
		{"pc skinned", PC, true},
		{"xbox360 skinned", Xbox360, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quad(tt.skinned)
			data, err := Encode(m, tt.platform)
			require.NoError(t, err)
			assert.Equal(t, "AMSH", string(data[:4]))
			assert.Equal(t, byte(tt.platform), data[4])

			f, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.platform, f.Platform)
			assert.Equal(t, uint8(Version), f.Version)
			assert.Equal(t, m, f.Mesh)
		})
	}
}

func TestByteOrder(t *testing.T) {
	m := quad(false)
	le, err := Encode(m, PC)
	require.NoError(t, err)
	be, err := Encode(m, PS3)
	require.NoError(t, err)

	require.Equal(t, len(le), len(be))
	// flags (uint16) follow the 6 byte preamble, then the vertex count
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(le[8:12]))
	assert.Equal(t, uint32(4), binary.BigEndian.Uint32(be[8:12]))
}

func TestStaticOmitsSkinData(t *testing.T) {
	static, err := Encode(quad(false), PC)
	require.NoError(t, err)
	skinned, err := Encode(quad(true), PC)
	require.NoError(t, err)
	assert.Equal(t, len(static)+4*(8+16), len(skinned))
}

func TestEmptyMesh(t *testing.T) {
	data, err := Encode(&scene.Mesh{}, PC)
	require.NoError(t, err)
	f, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, f.Mesh.Vertices)
	assert.Empty(t, f.Mesh.Indices)
	assert.Empty(t, f.Mesh.Groups)
}

func TestDecodeErrors(t *testing.T) {
	good, err := Encode(quad(false), PC)
	require.NoError(t, err)

	badMagic := append([]byte("GRSM"), good[4:]...)
	badPlatform := append([]byte(nil), good...)
	badPlatform[4] = 9
	badVersion := append([]byte(nil), good...)
	badVersion[5] = 7

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", []byte("AM"), ErrTruncated},
		{"magic", badMagic, ErrInvalidMagic},
		{"platform", badPlatform, ErrUnknownPlatform},
		{"version", badVersion, ErrUnsupportedVersion},
		{"truncated body", good[:len(good)-3], ErrTruncated},
		{"truncated header", good[:10], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodeUnknownPlatform(t *testing.T) {
	_, err := Encode(quad(false), Platform(42))
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestSaveRead(t *testing.T) {
	fs, err := vfs.NewMem(vfs.DefaultAssigns("/proj"))
	require.NoError(t, err)

	m := quad(false)
	require.NoError(t, Save(fs, "msh:props/chair.mesh", m, PS3))
	assert.True(t, fs.FileExists("msh:props/chair.mesh"))

	f, err := Read(fs, "msh:props/chair.mesh")
	require.NoError(t, err)
	assert.Equal(t, PS3, f.Platform)
	assert.Equal(t, m, f.Mesh)

	_, err = Read(fs, "msh:props/missing.mesh")
	assert.Error(t, err)
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("PS3")
	require.NoError(t, err)
	assert.Equal(t, PS3, p)
	assert.Equal(t, "ps3", p.String())

	_, err = ParsePlatform("dreamcast")
	assert.ErrorIs(t, err, ErrUnknownPlatform)

	var q Platform
	require.NoError(t, q.UnmarshalText([]byte("xbox360")))
	assert.Equal(t, Xbox360, q)
	assert.Equal(t, "unknown", Platform(9).String())
}
