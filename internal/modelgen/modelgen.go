// Package modelgen writes the model and physics-model resources of an
// exported asset once its mesh and surfaces exist.
package modelgen

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/assetpipe/internal/assetpath"
	"github.com/Faultbox/assetpipe/internal/meshfile"
	"github.com/Faultbox/assetpipe/internal/scene"
	"github.com/Faultbox/assetpipe/internal/surface"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// Errors.
var (
	ErrNoMesh         = errors.New("modelgen: scene has not been flattened")
	ErrInvalidPhysics = errors.New("modelgen: invalid physics config")
	ErrBasePath       = errors.New("modelgen: base path does not match asset")
)

// Collider is the collision shape of a physics model.
type Collider string

const (
	ColliderNone Collider = "none"
	ColliderBox  Collider = "box"
	ColliderMesh Collider = "mesh"
)

// Model is the YAML form of a .model file.
type Model struct {
	Name     string       `yaml:"name"`
	Category string       `yaml:"category"`
	Mode     scene.Mode   `yaml:"mode"`
	Flags    []string     `yaml:"flags,omitempty"`
	Scale    float32      `yaml:"scale"`
	Mesh     string       `yaml:"mesh"`
	Bounds   scene.Bounds `yaml:"bounds"`
	Groups   []Group      `yaml:"groups"`
	Joints   []Joint      `yaml:"joints,omitempty"`
}

// Group binds an index range of the mesh to a surface.
type Group struct {
	Name       string `yaml:"name"`
	Surface    string `yaml:"surface,omitempty"`
	FirstIndex int    `yaml:"first_index"`
	IndexCount int    `yaml:"index_count"`
}

// Joint is one skeleton bone. Parent is -1 for roots.
type Joint struct {
	Name   string `yaml:"name"`
	Parent int    `yaml:"parent"`
}

// Physics is the YAML form of a .physics source config.
type Physics struct {
	Collider Collider `yaml:"collider"`
	Mass     float32  `yaml:"mass,omitempty"`
}

// PhysicsModel is the YAML form of a .physmodel file.
type PhysicsModel struct {
	Name     string        `yaml:"name"`
	Collider Collider      `yaml:"collider"`
	Mass     float32       `yaml:"mass,omitempty"`
	Bounds   *scene.Bounds `yaml:"bounds,omitempty"`
	Mesh     string        `yaml:"mesh,omitempty"`
}

// SceneWriter generates the model resources of one flattened scene.
type SceneWriter struct {
	fs       vfs.FS
	scene    *scene.Scene
	id       assetpath.Identity
	platform meshfile.Platform
	log      *zap.Logger
}

// NewSceneWriter binds a writer to s. log may be nil.
func NewSceneWriter(fs vfs.FS, s *scene.Scene, id assetpath.Identity, platform meshfile.Platform, log *zap.Logger) *SceneWriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &SceneWriter{fs: fs, scene: s, id: id, platform: platform, log: log}
}

// GenerateModels writes mdl:C/F.model and phys:C/F.physmodel, plus the
// physics mesh when the physics config asks for a mesh collider.
// basePath is the asset's source directory, "src:C/".
func (w *SceneWriter) GenerateModels(basePath string, flags scene.Flags, mode scene.Mode) error {
	if basePath != w.id.BasePath() {
		return errors.Wrapf(ErrBasePath, "%s for %s", basePath, w.id)
	}
	mesh := w.scene.Mesh()
	if mesh == nil {
		return ErrNoMesh
	}

	phys, err := w.readPhysics(basePath)
	if err != nil {
		return err
	}

	model := w.buildModel(mesh, flags, mode)
	if err := writeYAML(w.fs, w.id.Model(), model); err != nil {
		return err
	}

	pm := PhysicsModel{Name: w.id.Name, Collider: phys.Collider, Mass: phys.Mass}
	switch phys.Collider {
	case ColliderBox:
		b := mesh.Bounds
		pm.Bounds = &b
	case ColliderMesh:
		pm.Mesh = w.id.PhysicsMesh()
		if err := meshfile.Save(w.fs, pm.Mesh, collisionMesh(mesh), w.platform); err != nil {
			return err
		}
	}
	if err := writeYAML(w.fs, w.id.PhysicsModel(), pm); err != nil {
		return err
	}

	w.log.Debug("models generated",
		zap.String("asset", w.id.String()),
		zap.Int("groups", len(model.Groups)),
		zap.String("collider", string(phys.Collider)))
	return nil
}

func (w *SceneWriter) readPhysics(basePath string) (Physics, error) {
	phys := Physics{Collider: ColliderNone}
	uri := basePath + w.id.Name + ".physics"
	if !w.fs.FileExists(uri) {
		return phys, nil
	}
	data, err := vfs.ReadAll(w.fs, uri)
	if err != nil {
		return phys, err
	}
	if err := yaml.Unmarshal(data, &phys); err != nil {
		return phys, errors.Wrapf(ErrInvalidPhysics, "%s: %v", uri, err)
	}
	phys.Collider = Collider(strings.ToLower(string(phys.Collider)))
	switch phys.Collider {
	case "":
		phys.Collider = ColliderNone
	case ColliderNone, ColliderBox, ColliderMesh:
	default:
		return phys, errors.Wrapf(ErrInvalidPhysics, "%s: unknown collider %q", uri, phys.Collider)
	}
	if phys.Mass < 0 {
		return phys, errors.Wrapf(ErrInvalidPhysics, "%s: negative mass", uri)
	}
	return phys, nil
}

func (w *SceneWriter) buildModel(mesh *scene.Mesh, flags scene.Flags, mode scene.Mode) Model {
	s := w.scene
	m := Model{
		Name:     w.id.Name,
		Category: w.id.Category,
		Mode:     mode,
		Flags:    flags.Names(),
		Scale:    s.Scale,
		Mesh:     w.id.Mesh(),
		Bounds:   mesh.Bounds,
		Groups:   make([]Group, len(mesh.Groups)),
	}
	doc := s.Document()
	for i, g := range mesh.Groups {
		mg := Group{Name: g.Name, FirstIndex: g.FirstIndex, IndexCount: g.IndexCount}
		if mi, ok := g.Material.Get(); ok && doc != nil && mi < len(doc.Materials) {
			mg.Surface = w.id.SurfaceRef(surface.MaterialName(doc, mi))
		}
		m.Groups[i] = mg
	}
	if mode == scene.Character {
		for _, j := range s.Skeleton {
			parent := -1
			if p, ok := j.Parent.Get(); ok {
				parent = p
			}
			m.Joints = append(m.Joints, Joint{Name: j.Name, Parent: parent})
		}
	}
	return m
}

// collisionMesh keeps positions and indices only.
func collisionMesh(m *scene.Mesh) *scene.Mesh {
	out := &scene.Mesh{
		Vertices: make([]scene.Vertex, len(m.Vertices)),
		Indices:  m.Indices,
		Bounds:   m.Bounds,
		Groups:   []scene.Group{{Name: "physics", IndexCount: len(m.Indices)}},
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = scene.Vertex{Position: v.Position}
	}
	return out
}

func writeYAML(fs vfs.FS, uri string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", uri)
	}
	return vfs.WriteAll(fs, uri, data)
}

// ReadModel loads a .model file.
func ReadModel(fs vfs.FS, uri string) (*Model, error) {
	data, err := vfs.ReadAll(fs, uri)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", uri)
	}
	return &m, nil
}

// ReadPhysicsModel loads a .physmodel file.
func ReadPhysicsModel(fs vfs.FS, uri string) (*PhysicsModel, error) {
	data, err := vfs.ReadAll(fs, uri)
	if err != nil {
		return nil, err
	}
	var pm PhysicsModel
	if err := yaml.Unmarshal(data, &pm); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", uri)
	}
	return &pm, nil
}
