// Package metrics records export statistics as Prometheus metrics and
// writes them in the node-exporter textfile format after a batch run.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the export metrics on a private registry. A nil
// *Recorder discards everything.
type Recorder struct {
	reg *prometheus.Registry

	assets    *prometheus.CounterVec
	errors    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	textures  prometheus.Counter
	surfaces  prometheus.Counter
	triangles prometheus.Histogram
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		assets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetpipe_assets_total",
				Help: "Assets processed, by outcome",
			},
			[]string{"status"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetpipe_errors_total",
				Help: "Failed exports, by error kind",
			},
			[]string{"kind"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assetpipe_export_duration_seconds",
				Help:    "Time taken to export one asset",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"category"},
		),
		textures: f.NewCounter(prometheus.CounterOpts{
			Name: "assetpipe_textures_extracted_total",
			Help: "Embedded images converted into textures",
		}),
		surfaces: f.NewCounter(prometheus.CounterOpts{
			Name: "assetpipe_surfaces_written_total",
			Help: "Surface descriptors written",
		}),
		triangles: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "assetpipe_mesh_triangles",
			Help:    "Triangle count of merged meshes",
			Buckets: prometheus.ExponentialBuckets(16, 4, 8),
		}),
	}
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// RecordAsset counts one processed asset. Only non-skipped assets
// contribute to the duration histogram.
func (r *Recorder) RecordAsset(category, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.assets.WithLabelValues(status).Inc()
	if status != "skipped" {
		r.duration.WithLabelValues(category).Observe(d.Seconds())
	}
}

// RecordError counts one failed export.
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errors.WithLabelValues(kind).Inc()
}

// AddTextures counts converted textures.
func (r *Recorder) AddTextures(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.textures.Add(float64(n))
}

// AddSurfaces counts written surfaces.
func (r *Recorder) AddSurfaces(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.surfaces.Add(float64(n))
}

// ObserveMesh records the size of a merged mesh.
func (r *Recorder) ObserveMesh(triangles int) {
	if r == nil {
		return
	}
	r.triangles.Observe(float64(triangles))
}

// WriteTextfile writes every metric to path in the text exposition
// format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return errors.Wrapf(prometheus.WriteToTextfile(path, r.reg), "writing metrics to %s", path)
}
