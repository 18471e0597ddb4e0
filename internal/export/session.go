// Package export drives the asset export pipeline: dependency check,
// document parse, texture extraction, surface generation, scene flattening
// and mesh output, followed by a deferred model generation phase.
package export

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/assetpipe/internal/assetpath"
	"github.com/Faultbox/assetpipe/internal/attributes"
	"github.com/Faultbox/assetpipe/internal/depcheck"
	"github.com/Faultbox/assetpipe/internal/meshfile"
	"github.com/Faultbox/assetpipe/internal/metrics"
	"github.com/Faultbox/assetpipe/internal/modelgen"
	"github.com/Faultbox/assetpipe/internal/scene"
	"github.com/Faultbox/assetpipe/internal/scenedoc"
	"github.com/Faultbox/assetpipe/internal/surface"
	"github.com/Faultbox/assetpipe/internal/texture"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// State is the lifecycle state of a Session.
type State int

const (
	Closed State = iota
	Open
	Exporting
	AwaitingFinalize
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Exporting:
		return "exporting"
	case AwaitingFinalize:
		return "awaiting-finalize"
	default:
		return "unknown"
	}
}

// ModelGenerator is the second export phase. It runs once the mesh and
// surfaces of an asset exist.
type ModelGenerator interface {
	GenerateModels(basePath string, flags scene.Flags, mode scene.Mode) error
}

// ModelWriterFactory binds a ModelGenerator to a flattened scene.
type ModelWriterFactory func(s *scene.Scene, id assetpath.Identity, platform meshfile.Platform) ModelGenerator

// SceneWriterFactory creates modelgen scene writers on fs.
func SceneWriterFactory(fs vfs.FS, log *zap.Logger) ModelWriterFactory {
	return func(s *scene.Scene, id assetpath.Identity, platform meshfile.Platform) ModelGenerator {
		return modelgen.NewSceneWriter(fs, s, id, platform, log)
	}
}

// Config wires a Session. FS is required; every other nil field gets the
// default implementation.
type Config struct {
	FS        vfs.FS
	Parser    scenedoc.Parser
	Converter texture.Converter
	Meshes    MeshSaver
	Models    ModelWriterFactory
	Platform  meshfile.Platform
	// Force exports assets even when nothing is stale.
	Force   bool
	Metrics *metrics.Recorder
	Log     *zap.Logger
}

// Pending is the result of a successful StartExport. It must be handed to
// EndExport on the same session.
type Pending struct {
	session  *Session
	id       assetpath.Identity
	settings attributes.Settings
	writer   ModelGenerator
	stats    Stats
	elapsed  time.Duration
}

// Identity returns the asset being exported.
func (p *Pending) Identity() assetpath.Identity { return p.id }

// Stats returns what the first phase produced.
func (p *Pending) Stats() Stats { return p.stats }

// Session exports one asset at a time. It is not safe for concurrent use.
type Session struct {
	fs       vfs.FS
	parser   scenedoc.Parser
	analyzer *depcheck.Analyzer
	stages   []Stage
	models   ModelWriterFactory
	platform meshfile.Platform
	force    bool
	log      *zap.Logger

	state   State
	scene   *scene.Scene
	doc     *scenedoc.Document
	pending *Pending
}

// NewSession creates a closed session.
func NewSession(cfg Config) *Session {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Parser == nil {
		cfg.Parser = scenedoc.NewGLTFParser(cfg.FS)
	}
	if cfg.Converter == nil {
		cfg.Converter = texture.NewImageConverter(cfg.FS, texture.DefaultOptions(), log)
	}
	if cfg.Meshes == nil {
		cfg.Meshes = FileMeshSaver(cfg.FS)
	}
	if cfg.Models == nil {
		cfg.Models = SceneWriterFactory(cfg.FS, log)
	}

	return &Session{
		fs:       cfg.FS,
		parser:   cfg.Parser,
		analyzer: depcheck.NewAnalyzer(cfg.FS, log),
		stages: []Stage{
			textureStage{extractor: texture.NewExtractor(cfg.FS, cfg.Converter, log), metrics: cfg.Metrics},
			surfaceStage{generator: surface.NewGenerator(cfg.FS, log), metrics: cfg.Metrics},
			meshStage{saver: cfg.Meshes, platform: cfg.Platform, metrics: cfg.Metrics, log: log},
		},
		models:   cfg.Models,
		platform: cfg.Platform,
		force:    cfg.Force,
		log:      log,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Platform returns the target platform of written meshes.
func (s *Session) Platform() meshfile.Platform { return s.platform }

// Open acquires a fresh scene.
func (s *Session) Open() error {
	if s.state != Closed {
		return errors.Wrapf(ErrInvalidState, "open while %s", s.state)
	}
	s.scene = scene.New(s.log)
	s.state = Open
	return nil
}

// Close releases the scene.
func (s *Session) Close() error {
	if s.state != Open {
		return errors.Wrapf(ErrInvalidState, "close while %s", s.state)
	}
	s.scene.Reset()
	s.scene = nil
	s.state = Closed
	return nil
}

// StartExport runs the first export phase for the source at path. It
// returns ErrUpToDate without touching anything when no derived artifact
// is stale. On any failure the session is back in the Open state.
func (s *Session) StartExport(path string, settings attributes.Settings) (*Pending, error) {
	if s.state != Open {
		return nil, errors.Wrapf(ErrInvalidState, "start export while %s", s.state)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	id := assetpath.FromPath(path)
	log := s.log.With(zap.String("asset", id.String()))
	if !s.force && !s.analyzer.NeedsExport(path) {
		log.Debug("asset is up to date")
		return nil, ErrUpToDate
	}

	start := time.Now()
	s.state = Exporting
	pending, err := s.run(id, settings)
	if err != nil {
		s.release()
		log.Warn("export failed", zap.Error(err))
		return nil, err
	}
	pending.elapsed = time.Since(start)

	s.pending = pending
	s.state = AwaitingFinalize
	log.Info("export prepared",
		zap.Int("textures", pending.stats.Textures),
		zap.Int("surfaces", pending.stats.Surfaces),
		zap.Int("triangles", pending.stats.Triangles),
		zap.Int64("ms", pending.elapsed.Milliseconds()))
	return pending, nil
}

func (s *Session) run(id assetpath.Identity, settings attributes.Settings) (*Pending, error) {
	doc, err := s.parser.Parse(id.Source())
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "%s: %v", id.Source(), err)
	}
	s.doc = doc

	s.scene.Name = id.Name
	s.scene.Category = id.Category
	job := &Job{Identity: id, Settings: settings, Document: doc, Scene: s.scene}
	for _, st := range s.stages {
		if err := st.Run(job); err != nil {
			return nil, errors.Wrapf(err, "%s stage", st.Name())
		}
	}

	return &Pending{
		session:  s,
		id:       id,
		settings: settings,
		writer:   s.models(s.scene, id, s.platform),
		stats:    job.Stats,
	}, nil
}

// EndExport runs the model generation phase for p and returns the session
// to the Open state, whether or not generation succeeds.
func (s *Session) EndExport(p *Pending) error {
	if s.state != AwaitingFinalize {
		return errors.Wrapf(ErrInvalidState, "end export while %s", s.state)
	}
	if p == nil || p != s.pending || p.session != s {
		return errors.Wrap(ErrInvalidState, "end export with a foreign pending export")
	}

	start := time.Now()
	err := p.writer.GenerateModels(p.id.BasePath(), p.settings.Flags, p.settings.Mode)
	p.writer = nil
	s.release()

	log := s.log.With(zap.String("asset", p.id.String()))
	if err != nil {
		log.Warn("model generation failed", zap.Error(err))
		return errors.Wrap(err, "generating models")
	}
	p.elapsed += time.Since(start)
	log.Info("export finished", zap.Int64("ms", p.elapsed.Milliseconds()))
	return nil
}

// release drops the document and any pending export.
func (s *Session) release() {
	if s.doc != nil {
		s.doc.Reset()
		s.doc = nil
	}
	s.pending = nil
	s.state = Open
}
