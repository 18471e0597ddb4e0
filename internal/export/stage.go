package export

import (
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/assetpipe/internal/assetpath"
	"github.com/Faultbox/assetpipe/internal/attributes"
	"github.com/Faultbox/assetpipe/internal/meshfile"
	"github.com/Faultbox/assetpipe/internal/metrics"
	"github.com/Faultbox/assetpipe/internal/scene"
	"github.com/Faultbox/assetpipe/internal/scenedoc"
	"github.com/Faultbox/assetpipe/internal/surface"
	"github.com/Faultbox/assetpipe/internal/texture"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// Job is the state one export threads through its stages.
type Job struct {
	Identity assetpath.Identity
	Settings attributes.Settings
	Document *scenedoc.Document
	Scene    *scene.Scene
	Stats    Stats
}

// Stats counts what an export produced.
type Stats struct {
	Textures  int
	Surfaces  int
	Vertices  int
	Triangles int
}

// Stage is one step of the export pipeline.
type Stage interface {
	Name() string
	Run(j *Job) error
}

// MeshSaver writes a merged mesh for a platform.
type MeshSaver interface {
	Save(uri string, m *scene.Mesh, p meshfile.Platform) error
}

// MeshSaverFunc adapts a function to MeshSaver.
type MeshSaverFunc func(uri string, m *scene.Mesh, p meshfile.Platform) error

// Save calls f.
func (f MeshSaverFunc) Save(uri string, m *scene.Mesh, p meshfile.Platform) error {
	return f(uri, m, p)
}

// FileMeshSaver writes meshes with meshfile.Save.
func FileMeshSaver(fs vfs.FS) MeshSaver {
	return MeshSaverFunc(func(uri string, m *scene.Mesh, p meshfile.Platform) error {
		return meshfile.Save(fs, uri, m, p)
	})
}

// textureStage extracts and converts embedded images.
type textureStage struct {
	extractor *texture.Extractor
	metrics   *metrics.Recorder
}

func (textureStage) Name() string { return "textures" }

func (s textureStage) Run(j *Job) error {
	n, err := s.extractor.Extract(j.Document, j.Identity.TextureDir())
	if err != nil {
		return err
	}
	j.Stats.Textures = n
	s.metrics.AddTextures(n)
	return nil
}

// surfaceStage writes one surface per material. Documents without
// materials leave the surface directory alone.
type surfaceStage struct {
	generator *surface.Generator
	metrics   *metrics.Recorder
}

func (surfaceStage) Name() string { return "surfaces" }

func (s surfaceStage) Run(j *Job) error {
	if len(j.Document.Materials) == 0 {
		return nil
	}
	template := surface.StaticTemplate
	if j.Settings.Mode == scene.Character {
		template = surface.SkinnedTemplate
	}
	n, err := s.generator.Generate(j.Document, j.Identity, template)
	if err != nil {
		return err
	}
	j.Stats.Surfaces = n
	s.metrics.AddSurfaces(n)
	return nil
}

// meshStage transforms the document, flattens it and saves the mesh.
type meshStage struct {
	saver    MeshSaver
	platform meshfile.Platform
	metrics  *metrics.Recorder
	log      *zap.Logger
}

func (meshStage) Name() string { return "mesh" }

func (s meshStage) Run(j *Job) error {
	start := time.Now()
	if err := j.Scene.Setup(j.Document, j.Settings.Flags, j.Settings.Mode, j.Settings.Scale); err != nil {
		return err
	}
	mesh, err := j.Scene.Flatten()
	if err != nil {
		return err
	}
	if err := s.saver.Save(j.Identity.Mesh(), mesh, s.platform); err != nil {
		return err
	}

	j.Stats.Vertices = len(mesh.Vertices)
	j.Stats.Triangles = mesh.TriangleCount()
	s.metrics.ObserveMesh(j.Stats.Triangles)
	s.log.Debug("mesh generated",
		zap.String("asset", j.Identity.String()),
		zap.Int("vertices", j.Stats.Vertices),
		zap.Int("triangles", j.Stats.Triangles),
		zap.Int64("ms", time.Since(start).Milliseconds()))
	return nil
}
