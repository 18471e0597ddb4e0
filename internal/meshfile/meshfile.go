// Package meshfile reads and writes the engine's binary mesh format.
//
// Layout (byte order chosen by the platform byte):
//
//	magic    [4]byte "AMSH"
//	platform uint8
//	version  uint8
//	flags    uint16   bit 0: skinned
//	counts   3 x uint32 vertices, indices, groups
//	bounds   6 x float32 min, max
//	groups   name (uint16 length + bytes), material int32 (-1 none), first, count uint32
//	vertices position, normal [3]float32, texcoord [2]float32
//	         skinned: joints [4]uint16, weights [4]float32
//	indices  uint32
package meshfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/Faultbox/assetpipe/internal/scene"
	"github.com/Faultbox/assetpipe/internal/scenedoc"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// Version is the format version written by Save.
const Version = 1

const magic = "AMSH"

const flagSkinned = 1 << 0

// Errors.
var (
	ErrInvalidMagic       = errors.New("meshfile: invalid magic, expected 'AMSH'")
	ErrUnsupportedVersion = errors.New("meshfile: unsupported version")
	ErrUnknownPlatform    = errors.New("meshfile: unknown platform")
	ErrTruncated          = errors.New("meshfile: truncated data")
	ErrTooLarge           = errors.New("meshfile: mesh too large")
)

// File is a decoded mesh file.
type File struct {
	Platform Platform
	Version  uint8
	Mesh     *scene.Mesh
}

type header struct {
	Flags       uint16
	VertexCount uint32
	IndexCount  uint32
	GroupCount  uint32
	Min, Max    [3]float32
}

type staticVertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Save encodes m for platform p and writes it to uri.
func Save(fs vfs.FS, uri string, m *scene.Mesh, p Platform) error {
	data, err := Encode(m, p)
	if err != nil {
		return err
	}
	return vfs.WriteAll(fs, uri, data)
}

// Encode serializes m in the layout for platform p.
func Encode(m *scene.Mesh, p Platform) ([]byte, error) {
	if !p.valid() {
		return nil, errors.Wrapf(ErrUnknownPlatform, "%d", p)
	}
	if uint64(len(m.Vertices)) > math.MaxUint32 || uint64(len(m.Indices)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	order := p.ByteOrder()
	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.WriteByte(byte(p))
	buf.WriteByte(Version)

	h := header{
		VertexCount: uint32(len(m.Vertices)),
		IndexCount:  uint32(len(m.Indices)),
		GroupCount:  uint32(len(m.Groups)),
		Min:         m.Bounds.Min,
		Max:         m.Bounds.Max,
	}
	if m.Skinned {
		h.Flags |= flagSkinned
	}
	binary.Write(&buf, order, &h)

	for _, g := range m.Groups {
		if len(g.Name) > math.MaxUint16 {
			return nil, errors.Wrapf(ErrTooLarge, "group name %q", g.Name)
		}
		binary.Write(&buf, order, uint16(len(g.Name)))
		buf.WriteString(g.Name)
		material := int32(-1)
		if i, ok := g.Material.Get(); ok {
			material = int32(i)
		}
		binary.Write(&buf, order, material)
		binary.Write(&buf, order, uint32(g.FirstIndex))
		binary.Write(&buf, order, uint32(g.IndexCount))
	}

	if m.Skinned {
		binary.Write(&buf, order, m.Vertices)
	} else {
		verts := make([]staticVertex, len(m.Vertices))
		for i, v := range m.Vertices {
			verts[i] = staticVertex{Position: v.Position, Normal: v.Normal, TexCoord: v.TexCoord}
		}
		binary.Write(&buf, order, verts)
	}
	binary.Write(&buf, order, m.Indices)
	return buf.Bytes(), nil
}

// Read loads and decodes the mesh file at uri.
func Read(fs vfs.FS, uri string) (*File, error) {
	data, err := vfs.ReadAll(fs, uri)
	if err != nil {
		return nil, err
	}
	f, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", uri)
	}
	return f, nil
}

// Decode parses an encoded mesh.
func Decode(data []byte) (*File, error) {
	if len(data) < 6 {
		return nil, ErrTruncated
	}
	if string(data[:4]) != magic {
		return nil, ErrInvalidMagic
	}
	f := &File{Platform: Platform(data[4]), Version: data[5]}
	if !f.Platform.valid() {
		return nil, errors.Wrapf(ErrUnknownPlatform, "%d", data[4])
	}
	if f.Version != Version {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "%d", f.Version)
	}

	order := f.Platform.ByteOrder()
	r := bytes.NewReader(data[6:])
	var h header
	if err := binary.Read(r, order, &h); err != nil {
		return nil, ErrTruncated
	}
	// every group, vertex and index takes at least 4 bytes
	if uint64(h.GroupCount)+uint64(h.VertexCount)+uint64(h.IndexCount) > uint64(r.Len()/4) {
		return nil, ErrTruncated
	}

	m := &scene.Mesh{
		Skinned: h.Flags&flagSkinned != 0,
		Bounds:  scene.Bounds{Min: h.Min, Max: h.Max},
		Groups:  make([]scene.Group, h.GroupCount),
	}
	for i := range m.Groups {
		g, err := readGroup(r, order)
		if err != nil {
			return nil, err
		}
		m.Groups[i] = g
	}

	m.Vertices = make([]scene.Vertex, h.VertexCount)
	if m.Skinned {
		if err := binary.Read(r, order, m.Vertices); err != nil {
			return nil, ErrTruncated
		}
	} else {
		verts := make([]staticVertex, h.VertexCount)
		if err := binary.Read(r, order, verts); err != nil {
			return nil, ErrTruncated
		}
		for i, v := range verts {
			m.Vertices[i] = scene.Vertex{Position: v.Position, Normal: v.Normal, TexCoord: v.TexCoord}
		}
	}

	m.Indices = make([]uint32, h.IndexCount)
	if err := binary.Read(r, order, m.Indices); err != nil {
		return nil, ErrTruncated
	}
	f.Mesh = m
	return f, nil
}

func readGroup(r *bytes.Reader, order binary.ByteOrder) (scene.Group, error) {
	var g scene.Group
	var n uint16
	if err := binary.Read(r, order, &n); err != nil {
		return g, ErrTruncated
	}
	name := make([]byte, n)
	if _, err := io.ReadFull(r, name); err != nil {
		return g, ErrTruncated
	}
	var rec struct {
		Material   int32
		FirstIndex uint32
		IndexCount uint32
	}
	if err := binary.Read(r, order, &rec); err != nil {
		return g, ErrTruncated
	}
	g.Name = string(name)
	if rec.Material >= 0 {
		g.Material = scenedoc.Index(int(rec.Material))
	}
	g.FirstIndex = int(rec.FirstIndex)
	g.IndexCount = int(rec.IndexCount)
	return g, nil
}
