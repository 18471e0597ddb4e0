package surface

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/assetpipe/internal/assetpath"
	"github.com/Faultbox/assetpipe/internal/scenedoc"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// Errors.
var (
	ErrUnresolvedReference = errors.New("surface: external texture cannot be resolved")
	ErrDuplicateMaterial   = errors.New("surface: duplicate material name")
)

// Generator writes one surface per material.
type Generator struct {
	fs  vfs.FS
	log *zap.Logger
}

// NewGenerator creates a Generator. log may be nil.
func NewGenerator(fs vfs.FS, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{fs: fs, log: log}
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// MaterialName returns the file-safe surface name of material i. Names
// are NFC normalised so composed and decomposed spellings share a file.
func MaterialName(doc *scenedoc.Document, i int) string {
	name := doc.Materials[i].Name
	if name == "" {
		return fmt.Sprintf("material%d", i)
	}
	return nameReplacer.Replace(norm.NFC.String(name))
}

// Build returns the descriptors for every material of doc without
// touching the filesystem.
func (g *Generator) Build(doc *scenedoc.Document, id assetpath.Identity, template string) ([]Descriptor, error) {
	seen := make(map[string]int, len(doc.Materials))
	descs := make([]Descriptor, 0, len(doc.Materials))

	for i := range doc.Materials {
		name := MaterialName(doc, i)
		if prev, dup := seen[name]; dup {
			return nil, errors.Wrapf(ErrDuplicateMaterial, "%q used by materials %d and %d", name, prev, i)
		}
		seen[name] = i

		d, err := build(doc, id, i, name, template)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

func build(doc *scenedoc.Document, id assetpath.Identity, i int, name, template string) (Descriptor, error) {
	m := &doc.Materials[i]

	slots := []struct {
		param    string
		ref      scenedoc.Ref
		fallback string
	}{
		{ParamBaseColorTexture, m.BaseColorTexture, DefaultTexture},
		{ParamMetallicRoughnessTexture, m.MetallicRoughnessTexture, DefaultTexture},
		{ParamNormalTexture, m.NormalTexture, NoBumpTexture},
	}

	d := Descriptor{Name: name, Template: template}
	for _, s := range slots {
		path, err := resolve(doc, id, s.ref, s.fallback)
		if err != nil {
			return d, errors.Wrapf(err, "material %q %s", name, s.param)
		}
		d.Bindings = append(d.Bindings, TextureBinding(s.param, path))
	}
	d.Bindings = append(d.Bindings,
		Vec4Binding(ParamBaseColorFactor, m.BaseColorFactor),
		ScalarBinding(ParamMetallicFactor, m.MetallicFactor),
		ScalarBinding(ParamRoughnessFactor, m.RoughnessFactor),
	)
	return d, nil
}

// resolve maps a texture reference to the extracted texture path.
func resolve(doc *scenedoc.Document, id assetpath.Identity, ref scenedoc.Ref, fallback string) (string, error) {
	t, ok := ref.Get()
	if !ok {
		return fallback, nil
	}
	if t >= len(doc.Textures) {
		return "", errors.Wrapf(scenedoc.ErrInvalidReference, "texture %d", t)
	}
	img, ok := doc.Textures[t].Source.Get()
	if !ok {
		return "", errors.Wrapf(ErrUnresolvedReference, "texture %d has no source image", t)
	}
	if img >= len(doc.Images) {
		return "", errors.Wrapf(scenedoc.ErrInvalidReference, "texture %d: image %d", t, img)
	}
	if !doc.Images[img].Embedded() {
		return "", errors.Wrapf(ErrUnresolvedReference, "texture %d: image %d (%s)", t, img, doc.Images[img].URI)
	}
	return id.TextureRef(img), nil
}

// Generate replaces the asset's surface directory with one surface per
// material and returns how many were written. A document without
// materials leaves the directory alone.
func (g *Generator) Generate(doc *scenedoc.Document, id assetpath.Identity, template string) (int, error) {
	if len(doc.Materials) == 0 {
		return 0, nil
	}

	descs, err := g.Build(doc, id, template)
	if err != nil {
		return 0, err
	}

	dir := id.SurfaceDir()
	if g.fs.DirectoryExists(dir) {
		if err := g.fs.DeleteDirectory(dir); err != nil {
			g.log.Warn("cannot purge surface directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	if err := g.fs.CreateDirectory(dir); err != nil {
		g.log.Warn("cannot create surface directory", zap.String("dir", dir), zap.Error(err))
	}

	for i := range descs {
		if err := Write(g.fs, id.SurfacePath(descs[i].Name), &descs[i]); err != nil {
			return i, err
		}
		g.log.Debug("surface written", zap.String("asset", id.String()), zap.String("surface", descs[i].Name))
	}
	return len(descs), nil
}

// Write serialises d to uri.
func Write(fs vfs.FS, uri string, d *Descriptor) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return errors.Wrapf(err, "encoding surface %s", d.Name)
	}
	return vfs.WriteAll(fs, uri, data)
}

// Read loads the surface at uri.
func Read(fs vfs.FS, uri string) (*Descriptor, error) {
	data, err := vfs.ReadAll(fs, uri)
	if err != nil {
		return nil, err
	}
	d := new(Descriptor)
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, errors.Wrapf(err, "decoding surface %s", uri)
	}
	return d, nil
}
