// Package assetpath derives every artifact location of an asset from its
// category and base name.
package assetpath

import (
	"fmt"
	"path"
	"strings"

	"github.com/Faultbox/assetpipe/internal/vfs"
)

// Identity names one source asset.
type Identity struct {
	Category string // containing directory name
	Name     string // file name without extension
	Ext      string // extension without the dot, e.g. "gltf"
}

// FromPath derives an identity from a source path or URI such as
// "src:props/chair.gltf" or "/proj/assets/props/chair.glb".
func FromPath(p string) Identity {
	if _, rest, ok := strings.Cut(p, ":"); ok {
		p = rest
	}
	p = strings.ReplaceAll(p, "\\", "/")
	file := path.Base(p)
	ext := path.Ext(file)
	dir := path.Dir(p)

	category := path.Base(dir)
	if dir == "." || dir == "/" {
		category = ""
	}
	return Identity{
		Category: category,
		Name:     strings.TrimSuffix(file, ext),
		Ext:      strings.TrimPrefix(ext, "."),
	}
}

// String returns "category/name".
func (id Identity) String() string {
	return id.Category + "/" + id.Name
}

func (id Identity) uri(prefix, suffix string) string {
	return fmt.Sprintf("%s:%s/%s%s", prefix, id.Category, id.Name, suffix)
}

// Source is the source document, "src:C/F.ext".
func (id Identity) Source() string { return id.uri(vfs.Source, "."+id.Ext) }

// Model is "mdl:C/F.model".
func (id Identity) Model() string { return id.uri(vfs.Model, ".model") }

// PhysicsModel is "phys:C/F.physmodel".
func (id Identity) PhysicsModel() string { return id.uri(vfs.Physics, ".physmodel") }

// Mesh is "msh:C/F.mesh".
func (id Identity) Mesh() string { return id.uri(vfs.Mesh, ".mesh") }

// PhysicsMesh is "msh:C/F_ph.mesh".
func (id Identity) PhysicsMesh() string { return id.uri(vfs.Mesh, "_ph.mesh") }

// Animation is "ani:C/F.anim".
func (id Identity) Animation() string { return id.uri(vfs.Animation, ".anim") }

// Constants is "src:C/F.constants".
func (id Identity) Constants() string { return id.uri(vfs.Source, ".constants") }

// Attributes is "src:C/F.attributes".
func (id Identity) Attributes() string { return id.uri(vfs.Source, ".attributes") }

// Physics is "src:C/F.physics".
func (id Identity) Physics() string { return id.uri(vfs.Source, ".physics") }

// TextureDir is "tex:C/F_ext".
func (id Identity) TextureDir() string { return id.uri(vfs.Texture, "_"+id.Ext) }

// SurfaceDir is "sur:C/F_ext".
func (id Identity) SurfaceDir() string { return id.uri(vfs.Surface, "_"+id.Ext) }

// TextureRef is the extension-less texture reference bound into surfaces
// for image index i.
func (id Identity) TextureRef(i int) string {
	return fmt.Sprintf("%s/%d", id.TextureDir(), i)
}

// SurfacePath is the surface file for a material.
func (id Identity) SurfacePath(material string) string {
	return fmt.Sprintf("%s/%s.sur", id.SurfaceDir(), material)
}

// SurfaceRef is the extension-less surface reference stored in models.
func (id Identity) SurfaceRef(material string) string {
	return fmt.Sprintf("%s/%s", id.SurfaceDir(), material)
}

// BasePath is the source category directory, "src:C/".
func (id Identity) BasePath() string {
	return fmt.Sprintf("%s:%s/", vfs.Source, id.Category)
}
