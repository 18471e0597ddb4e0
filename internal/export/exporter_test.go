package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetpipe/internal/attributes"
	"github.com/Faultbox/assetpipe/internal/metrics"
	"github.com/Faultbox/assetpipe/internal/modelgen"
	"github.com/Faultbox/assetpipe/internal/scene"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

func sourceTree(t *testing.T) *countingFS {
	t.Helper()
	fs := newFS(t)
	writeSource(t, fs, "src:props/chair.glb", chairGLB())
	writeSource(t, fs, "src:props/broken.gltf", []byte("{"))
	writeSource(t, fs, "src:props/notes.txt", []byte("ignored"))
	writeSource(t, fs, "src:chars/hero.glb", chairGLB())
	writeSource(t, fs, "src:chars/hero.attributes", []byte("mode: character\n"))
	writeSource(t, fs, "src:chars/bad.glb", plainGLB())
	writeSource(t, fs, "src:chars/bad.attributes", []byte("scale: 0\n"))
	return fs
}

func newExporter(t *testing.T, fs *countingFS, rec *metrics.Recorder) *Exporter {
	t.Helper()
	s := openSession(t, Config{FS: fs, Metrics: rec})
	return NewExporter(s, attributes.NewDatabase(fs, attributes.Default(), nil), nil, rec, nil)
}

func statuses(results []Result) map[string]Status {
	out := make(map[string]Status, len(results))
	for _, r := range results {
		out[r.Identity.String()] = r.Status
	}
	return out
}

func TestSources(t *testing.T) {
	e := newExporter(t, sourceTree(t), nil)
	got, err := e.Sources("props")
	require.NoError(t, err)
	assert.Equal(t, []string{"src:props/broken.gltf", "src:props/chair.glb"}, got)

	_, err = e.Sources("missing")
	assert.Error(t, err)
}

func TestExportAll(t *testing.T) {
	fs := sourceTree(t)
	rec := metrics.New()
	e := newExporter(t, fs, rec)

	results, err := e.ExportAll()
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "chars/bad", results[0].Identity.String())
	assert.Equal(t, map[string]Status{
		"chars/bad":    StatusFailed,
		"chars/hero":   StatusExported,
		"props/broken": StatusFailed,
		"props/chair":  StatusExported,
	}, statuses(results))
	assert.Equal(t, Summary{Exported: 2, Failed: 2}, Summarize(results))
	assert.Equal(t, KindParse, results[0].Kind())
	assert.Equal(t, KindParse, results[2].Kind())
	assert.Equal(t, KindNone, results[1].Kind())

	m, err := modelgen.ReadModel(fs, "mdl:chars/hero.model")
	require.NoError(t, err)
	assert.Equal(t, scene.Character, m.Mode)

	again, err := e.ExportAll()
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 2, Failed: 2}, Summarize(again))
	assert.Equal(t, KindSkipped, again[1].Kind())
	assert.NoError(t, again[1].Err)

	path := filepath.Join(t.TempDir(), "assetpipe.prom")
	require.NoError(t, rec.WriteTextfile(path))
	text, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(text), `assetpipe_assets_total{status="exported"} 2`)
	assert.Contains(t, string(text), `assetpipe_assets_total{status="skipped"} 2`)
	assert.Contains(t, string(text), `assetpipe_errors_total{kind="parse"} 4`)
	assert.Contains(t, string(text), "assetpipe_textures_extracted_total 2")
}

func TestExportDirContinuesAfterFailure(t *testing.T) {
	fs := sourceTree(t)
	e := newExporter(t, fs, nil)

	results, err := e.ExportDir("props")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, ErrParse)
	assert.Equal(t, StatusExported, results[1].Status)
	assert.Equal(t, Open, e.session.State())

	_, err = e.ExportDir("missing")
	assert.Error(t, err)
}

func TestExportFile(t *testing.T) {
	fs := sourceTree(t)
	e := newExporter(t, fs, nil)

	r := e.ExportFile("src:props/chair.glb")
	assert.Equal(t, StatusExported, r.Status)
	assert.NoError(t, r.Err)
	assert.True(t, fs.FileExists("mdl:props/chair.model"))

	r = e.ExportFile("src:props/chair.glb")
	assert.Equal(t, StatusSkipped, r.Status)

	r = e.ExportFile("src:props/broken.gltf")
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, KindParse, r.Kind())

	// nothing derived exists either, so the asset counts as stale
	r = e.ExportFile("src:props/ghost.glb")
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, KindParse, r.Kind())
	assert.False(t, fs.FileExists("mdl:props/ghost.model"))
}

func TestCustomPatterns(t *testing.T) {
	fs := sourceTree(t)
	s := openSession(t, Config{FS: fs})
	e := NewExporter(s, attributes.NewDatabase(fs, attributes.Default(), nil), []string{"*.glb"}, nil, nil)

	got, err := e.Sources("props")
	require.NoError(t, err)
	assert.Equal(t, []string{"src:props/chair.glb"}, got)
	assert.Equal(t, vfs.Source+":props/chair.glb", got[0])
}
