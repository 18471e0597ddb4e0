package export

import (
	"path"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/assetpipe/internal/assetpath"
	"github.com/Faultbox/assetpipe/internal/attributes"
	"github.com/Faultbox/assetpipe/internal/metrics"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// DefaultPatterns are the source documents a directory export picks up.
var DefaultPatterns = []string{"*.gltf", "*.glb"}

// AttributeSource returns the export settings of an asset.
type AttributeSource interface {
	Settings(id assetpath.Identity) (attributes.Settings, error)
}

// Status is the outcome of one asset in a batch.
type Status int

const (
	StatusExported Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusExported:
		return "exported"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result is the outcome of exporting one asset.
type Result struct {
	Identity assetpath.Identity
	Status   Status
	Err      error
	Duration time.Duration
}

// Kind classifies the result's error.
func (r Result) Kind() Kind {
	if r.Status == StatusSkipped {
		return KindSkipped
	}
	return Classify(r.Err)
}

// Summary counts results by status.
type Summary struct {
	Exported int
	Skipped  int
	Failed   int
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusExported:
			s.Exported++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Exporter runs a session over single files, categories or the whole
// source tree. One failing asset never stops a batch.
type Exporter struct {
	session  *Session
	fs       vfs.FS
	attrs    AttributeSource
	patterns []string
	metrics  *metrics.Recorder
	log      *zap.Logger
}

// NewExporter creates a batch driver over an open session. Empty patterns
// select DefaultPatterns.
func NewExporter(session *Session, attrs AttributeSource, patterns []string, rec *metrics.Recorder, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Exporter{
		session:  session,
		fs:       session.fs,
		attrs:    attrs,
		patterns: patterns,
		metrics:  rec,
		log:      log,
	}
}

// ExportFile exports the source document at path, a URI such as
// "src:props/chair.gltf".
func (e *Exporter) ExportFile(path string) Result {
	start := time.Now()
	id := assetpath.FromPath(path)
	res := Result{Identity: id}

	err := e.export(path, id)
	res.Duration = time.Since(start)
	switch {
	case err == nil:
		res.Status = StatusExported
	case errors.Is(err, ErrUpToDate):
		res.Status = StatusSkipped
	default:
		res.Status = StatusFailed
		res.Err = err
		e.metrics.RecordError(Classify(err).String())
		e.log.Error("export failed",
			zap.String("asset", id.String()),
			zap.Stringer("kind", Classify(err)),
			zap.Error(err))
	}
	e.metrics.RecordAsset(id.Category, res.Status.String(), res.Duration)
	return res
}

func (e *Exporter) export(path string, id assetpath.Identity) error {
	settings, err := e.attrs.Settings(id)
	if err != nil {
		return err
	}
	pending, err := e.session.StartExport(path, settings)
	if err != nil {
		return err
	}
	return e.session.EndExport(pending)
}

// Sources lists the source documents of a category, sorted by name.
func (e *Exporter) Sources(category string) ([]string, error) {
	dir := vfs.Source + ":" + category
	seen := make(map[string]bool)
	var names []string
	for _, pattern := range e.patterns {
		files, err := e.fs.ListFiles(dir, pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s", dir)
		}
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				names = append(names, f)
			}
		}
	}
	sort.Strings(names)

	uris := make([]string, len(names))
	for i, n := range names {
		uris[i] = dir + "/" + path.Base(n)
	}
	return uris, nil
}

// ExportDir exports every source document in a category.
func (e *Exporter) ExportDir(category string) ([]Result, error) {
	sources, err := e.Sources(category)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		results = append(results, e.ExportFile(src))
	}

	sum := Summarize(results)
	e.log.Info("category exported",
		zap.String("category", category),
		zap.Int("exported", sum.Exported),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	return results, nil
}

// ExportAll exports every category under the source root.
func (e *Exporter) ExportAll() ([]Result, error) {
	categories, err := e.fs.ListDirectories(vfs.Source + ":")
	if err != nil {
		return nil, errors.Wrap(err, "listing categories")
	}
	var results []Result
	for _, c := range categories {
		r, err := e.ExportDir(c)
		if err != nil {
			e.log.Warn("cannot list category", zap.String("category", c), zap.Error(err))
			continue
		}
		results = append(results, r...)
	}
	return results, nil
}
