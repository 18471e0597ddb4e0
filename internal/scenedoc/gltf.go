package scenedoc

import (
	"bytes"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/assetpipe/internal/vfs"
	"github.com/Faultbox/assetpipe/pkg/math"
)

// Parser turns a source URI into a validated Document.
type Parser interface {
	Parse(uri string) (*Document, error)
}

// GLTFParser reads .gltf and .glb documents through a vfs.FS.
// External buffers are resolved relative to the document.
type GLTFParser struct {
	fs vfs.FS
}

// NewGLTFParser creates a parser reading through fs.
func NewGLTFParser(fs vfs.FS) *GLTFParser {
	return &GLTFParser{fs: fs}
}

// Parse decodes, converts and validates the document at uri. Every error
// wraps ErrParse.
func (p *GLTFParser) Parse(uri string) (*Document, error) {
	data, err := vfs.ReadAll(p.fs, uri)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}

	src := new(gltf.Document)
	dec := gltf.NewDecoderFS(bytes.NewReader(data), &dirFS{fs: p.fs, dir: uriDir(uri)})
	if err := dec.Decode(src); err != nil {
		return nil, errors.Wrapf(ErrParse, "%s: %v", uri, err)
	}

	doc, err := Convert(src)
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "%s: %v", uri, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, errors.Wrapf(ErrParse, "%s: %v", uri, err)
	}
	return doc, nil
}

// uriDir returns the directory part of a virtual URI, keeping the prefix.
func uriDir(uri string) string {
	i := strings.LastIndex(uri, "/")
	if i < 0 {
		if j := strings.Index(uri, ":"); j >= 0 {
			return uri[:j+1]
		}
		return ""
	}
	return uri[:i]
}

// Convert maps a decoded glTF document onto a Document, reading every
// accessor the pipeline uses.
func Convert(src *gltf.Document) (*Document, error) {
	doc := &Document{
		DefaultScene: optional(src.Scene),
	}

	for _, s := range src.Scenes {
		doc.Scenes = append(doc.Scenes, Scene{Name: s.Name, Nodes: ints(s.Nodes)})
	}

	for _, n := range src.Nodes {
		node := Node{
			Name:        n.Name,
			Children:    ints(n.Children),
			Mesh:        optional(n.Mesh),
			Skin:        optional(n.Skin),
			Translation: n.Translation,
			Rotation:    n.RotationOrDefault(),
			Scale:       n.ScaleOrDefault(),
		}
		if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
			node.HasMatrix = true
			node.Matrix = math.Mat4(m)
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	for i, m := range src.Meshes {
		mesh := Mesh{Name: m.Name}
		for j, p := range m.Primitives {
			prim, err := convertPrimitive(src, p)
			if err != nil {
				return nil, errors.Wrapf(err, "mesh %d primitive %d", i, j)
			}
			mesh.Primitives = append(mesh.Primitives, prim)
		}
		doc.Meshes = append(doc.Meshes, mesh)
	}

	for _, m := range src.Materials {
		doc.Materials = append(doc.Materials, convertMaterial(m))
	}

	for _, t := range src.Textures {
		doc.Textures = append(doc.Textures, Texture{Name: t.Name, Source: optional(t.Source)})
	}

	for _, b := range src.Buffers {
		doc.Buffers = append(doc.Buffers, Buffer{URI: b.URI, Data: b.Data})
	}
	for _, v := range src.BufferViews {
		doc.BufferViews = append(doc.BufferViews, BufferView{
			Buffer: int(v.Buffer),
			Offset: int(v.ByteOffset),
			Length: int(v.ByteLength),
		})
	}

	for i, img := range src.Images {
		image := Image{
			Name:       img.Name,
			MimeType:   img.MimeType,
			BufferView: optional(img.BufferView),
		}
		if img.IsEmbeddedResource() {
			data, err := img.MarshalData()
			if err != nil {
				return nil, errors.Wrapf(err, "image %d", i)
			}
			image.Data = data
			if image.MimeType == "" {
				image.MimeType = dataURIMime(img.URI)
			}
		} else {
			image.URI = img.URI
		}
		doc.Images = append(doc.Images, image)
	}
	for i := range doc.Images {
		doc.Images[i].Type = doc.imageType(i)
	}

	for _, s := range src.Skins {
		doc.Skins = append(doc.Skins, Skin{Name: s.Name, Joints: ints(s.Joints)})
	}

	return doc, nil
}

func convertPrimitive(src *gltf.Document, p *gltf.Primitive) (Primitive, error) {
	prim := Primitive{
		Material:  optional(p.Material),
		Triangles: p.Mode == gltf.PrimitiveTriangles,
	}

	// POSITION is optional; such a primitive carries no geometry.
	pos, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return prim, nil
	}
	if int(pos) >= len(src.Accessors) {
		return prim, errors.Wrapf(ErrInvalidReference, "accessor %d", pos)
	}
	var err error
	if prim.Positions, err = modeler.ReadPosition(src, src.Accessors[pos], nil); err != nil {
		return prim, errors.Wrap(err, "reading positions")
	}

	if idx, ok := p.Attributes[gltf.NORMAL]; ok && int(idx) < len(src.Accessors) {
		if prim.Normals, err = modeler.ReadNormal(src, src.Accessors[idx], nil); err != nil {
			return prim, errors.Wrap(err, "reading normals")
		}
	}
	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok && int(idx) < len(src.Accessors) {
		if prim.TexCoords, err = modeler.ReadTextureCoord(src, src.Accessors[idx], nil); err != nil {
			return prim, errors.Wrap(err, "reading texture coordinates")
		}
	}
	if idx, ok := p.Attributes[gltf.JOINTS_0]; ok && int(idx) < len(src.Accessors) {
		if prim.Joints, err = modeler.ReadJoints(src, src.Accessors[idx], nil); err != nil {
			return prim, errors.Wrap(err, "reading joints")
		}
	}
	if idx, ok := p.Attributes[gltf.WEIGHTS_0]; ok && int(idx) < len(src.Accessors) {
		if prim.Weights, err = modeler.ReadWeights(src, src.Accessors[idx], nil); err != nil {
			return prim, errors.Wrap(err, "reading weights")
		}
	}
	if p.Indices != nil {
		if int(*p.Indices) >= len(src.Accessors) {
			return prim, errors.Wrapf(ErrInvalidReference, "accessor %d", *p.Indices)
		}
		if prim.Indices, err = modeler.ReadIndices(src, src.Accessors[*p.Indices], nil); err != nil {
			return prim, errors.Wrap(err, "reading indices")
		}
	}
	return prim, nil
}

func convertMaterial(m *gltf.Material) Material {
	mat := Material{
		Name:            m.Name,
		BaseColorFactor: [4]float32{1, 1, 1, 1},
		MetallicFactor:  1,
		RoughnessFactor: 1,
	}
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			mat.BaseColorFactor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			mat.MetallicFactor = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			mat.RoughnessFactor = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			mat.BaseColorTexture = Index(int(pbr.BaseColorTexture.Index))
		}
		if pbr.MetallicRoughnessTexture != nil {
			mat.MetallicRoughnessTexture = Index(int(pbr.MetallicRoughnessTexture.Index))
		}
	}
	if m.NormalTexture != nil && m.NormalTexture.Index != nil {
		mat.NormalTexture = Index(int(*m.NormalTexture.Index))
	}
	return mat
}

// imageType resolves the declared type of image i from its MIME type,
// then its content, then its URI extension.
func (d *Document) imageType(i int) ImageType {
	img := &d.Images[i]
	if t := ImageTypeFromMIME(img.MimeType); t != ImageUnknown {
		return t
	}
	if img.Embedded() {
		if data, err := d.ImageData(i); err == nil {
			if kind, err := filetype.Match(data); err == nil {
				if t := ImageTypeFromMIME(kind.MIME.Value); t != ImageUnknown {
					return t
				}
			}
		}
	}
	switch strings.ToLower(path.Ext(img.URI)) {
	case ".jpg", ".jpeg":
		return ImageJpg
	case ".png":
		return ImagePng
	}
	return ImageUnknown
}

// dataURIMime extracts the media type of a data URI.
func dataURIMime(uri string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ""
	}
	mime, _, _ := strings.Cut(rest, ";")
	return mime
}

func optional(i *uint32) Ref {
	if i == nil {
		return None
	}
	return Index(int(*i))
}

func ints(in []uint32) []int {
	if len(in) == 0 {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
