// assetexport converts glTF scene documents into engine meshes, surfaces,
// textures and model resources, skipping assets whose outputs are current.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/assetpipe/internal/assetpath"
	"github.com/Faultbox/assetpipe/internal/attributes"
	"github.com/Faultbox/assetpipe/internal/config"
	"github.com/Faultbox/assetpipe/internal/depcheck"
	"github.com/Faultbox/assetpipe/internal/export"
	"github.com/Faultbox/assetpipe/internal/logger"
	"github.com/Faultbox/assetpipe/internal/meshfile"
	"github.com/Faultbox/assetpipe/internal/metrics"
	"github.com/Faultbox/assetpipe/internal/texture"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

func main() {
	flag.Usage = printUsage
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "file":
		cmdFile(args)
	case "dir":
		cmdDir(args)
	case "all":
		cmdAll(args)
	case "check":
		cmdCheck(args)
	case "paths":
		cmdPaths(args)
	case "texture", "tex":
		cmdTexture(args)
	case "inspect":
		cmdInspect(args)
	case "init":
		cmdInit(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`assetexport - glTF asset export pipeline

Usage:
  assetexport [flags] <command> [options]

Flags:
  -config <file>     Config file (default ./assetexport.yaml)
  -root <dir>        Project root with assets/, export/ and temp/
  -platform <name>   Mesh platform: pc, ps3, xbox360
  -force             Export even when nothing is stale
  -debug             Debug logging
  -log <file>        Also log to a rotating file
  -metrics <file>    Write Prometheus textfile metrics after the run

Commands:
  file <asset>                Export one asset (src:props/chair.glb or props/chair.glb)
  dir <category>              Export every source document in a category
  all                         Export every category
  check <asset>               Show the dependency checks of an asset
  paths <asset>               Show every derived artifact location
  texture <image> <out_dir>   Convert a single image file
  inspect <mesh>              Show the contents of a binary mesh
  init [-global]              Write the effective config to assetexport.yaml

Examples:
  assetexport -root ./game file props/chair.glb
  assetexport -platform ps3 dir props
  assetexport -force -metrics export.prom all
  assetexport check props/chair.glb`)
}

// app holds what every command needs.
type app struct {
	cfg     *config.Config
	fs      *vfs.Server
	log     *zap.Logger
	metrics *metrics.Recorder
}

func setup() *app {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	assigns := cfg.VirtualAssigns()
	for prefix, dir := range assigns {
		abs, err := filepath.Abs(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving %s: %v\n", dir, err)
			os.Exit(1)
		}
		assigns[prefix] = filepath.ToSlash(abs)
	}

	a := &app{
		cfg: cfg,
		fs:  vfs.NewOS(assigns),
		log: logger.Log,
	}
	if cfg.Metrics.Textfile != "" {
		a.metrics = metrics.New()
	}
	return a
}

func (a *app) close() {
	if a.metrics != nil {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	logger.Sync()
}

func (a *app) exporter() *export.Exporter {
	platform, _ := a.cfg.Platform()
	defaults, _ := a.cfg.DefaultSettings()

	session := export.NewSession(export.Config{
		FS:        a.fs,
		Converter: texture.NewImageConverter(a.fs, a.cfg.TextureOptions(), logger.Named("texture")),
		Platform:  platform,
		Force:     a.cfg.Export.Force,
		Metrics:   a.metrics,
		Log:       logger.Named("export"),
	})
	if err := session.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	attrs := attributes.NewDatabase(a.fs, defaults, logger.Named("attributes"))
	return export.NewExporter(session, attrs, a.cfg.Export.Patterns, a.metrics, logger.Named("batch"))
}

// sourceURI accepts "src:props/chair.glb" or "props/chair.glb".
func sourceURI(arg string) string {
	if strings.Contains(arg, ":") {
		return arg
	}
	return vfs.Source + ":" + filepath.ToSlash(arg)
}

func cmdFile(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: assetexport file <asset>")
		os.Exit(1)
	}

	a := setup()
	r := a.exporter().ExportFile(sourceURI(args[0]))
	a.close()
	report([]export.Result{r})
}

func cmdDir(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: assetexport dir <category>")
		os.Exit(1)
	}

	a := setup()
	results, err := a.exporter().ExportDir(args[0])
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	report(results)
}

func cmdAll(args []string) {
	a := setup()
	results, err := a.exporter().ExportAll()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	report(results)
}

// report prints one line per asset and exits non-zero if any failed.
func report(results []export.Result) {
	for _, r := range results {
		line := fmt.Sprintf("%-9s %-40s %6dms", r.Status, r.Identity, r.Duration.Milliseconds())
		if r.Err != nil {
			line += fmt.Sprintf("  [%s] %v", r.Kind(), r.Err)
		}
		fmt.Println(line)
	}

	sum := export.Summarize(results)
	fmt.Fprintf(os.Stderr, "\n(%d exported, %d skipped, %d failed)\n", sum.Exported, sum.Skipped, sum.Failed)
	if sum.Failed > 0 {
		os.Exit(1)
	}
}

func cmdCheck(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: assetexport check <asset>")
		os.Exit(1)
	}

	a := setup()
	defer a.close()

	rep := depcheck.NewAnalyzer(a.fs, a.log).Check(sourceURI(args[0]))
	fmt.Printf("Asset: %s\n", rep.Asset)
	for _, c := range rep.Checks {
		state := "fresh"
		if c.Stale {
			state = "STALE"
		}
		fmt.Printf("  %-20s %-5s  %s -> %s\n", c.Name, state, c.Driver, c.Derived)
	}
	if rep.Stale() {
		fmt.Println("Needs export: yes")
	} else {
		fmt.Println("Needs export: no")
	}
}

func cmdPaths(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: assetexport paths <asset>")
		os.Exit(1)
	}

	a := setup()
	defer a.close()

	id := assetpath.FromPath(sourceURI(args[0]))
	rows := []struct{ name, uri string }{
		{"source", id.Source()},
		{"model", id.Model()},
		{"physics model", id.PhysicsModel()},
		{"mesh", id.Mesh()},
		{"physics mesh", id.PhysicsMesh()},
		{"animation", id.Animation()},
		{"constants", id.Constants()},
		{"attributes", id.Attributes()},
		{"physics", id.Physics()},
		{"textures", id.TextureDir()},
		{"surfaces", id.SurfaceDir()},
	}
	for _, r := range rows {
		resolved, err := a.fs.Resolve(r.uri)
		if err != nil {
			resolved = err.Error()
		}
		fmt.Printf("%-14s %-40s /%s\n", r.name, r.uri, resolved)
	}
}

func cmdTexture(args []string) {
	fs := flag.NewFlagSet("texture", flag.ExitOnError)
	maxSize := fs.Int("max", 0, "Maximum width/height (0 = config value)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: assetexport texture [-max N] <image> <out_dir>")
		os.Exit(1)
	}

	a := setup()
	defer a.close()

	src, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dst, err := filepath.Abs(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	work, err := os.MkdirTemp("", "assetexport-texture")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating workspace: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(work)

	opts := a.cfg.TextureOptions()
	if *maxSize > 0 {
		opts.MaxSize = *maxSize
	}
	conv := texture.NewImageConverter(a.fs, opts, logger.Named("texture"))
	if err := a.fs.CreateDirectory(filepath.ToSlash(dst)); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}
	if err := conv.Convert(filepath.ToSlash(src), filepath.ToSlash(work), filepath.ToSlash(dst)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Converted: %s -> %s\n", src, dst)
}

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	groups := fs.Bool("groups", true, "List index groups")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: assetexport inspect [-groups=false] <mesh>")
		os.Exit(1)
	}

	a := setup()
	defer a.close()

	uri := fs.Arg(0)
	if !strings.Contains(uri, ":") {
		uri = vfs.Mesh + ":" + filepath.ToSlash(uri)
	}
	f, err := meshfile.Read(a.fs, uri)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m := f.Mesh
	fmt.Printf("Mesh:      %s\n", uri)
	fmt.Printf("Platform:  %s (v%d)\n", f.Platform, f.Version)
	fmt.Printf("Skinned:   %v\n", m.Skinned)
	fmt.Printf("Vertices:  %d\n", len(m.Vertices))
	fmt.Printf("Triangles: %d\n", m.TriangleCount())
	fmt.Printf("Bounds:    %v - %v\n", m.Bounds.Min, m.Bounds.Max)
	if !*groups {
		return
	}
	fmt.Println()
	fmt.Println("Groups:")
	for i, g := range m.Groups {
		fmt.Printf("  %3d %-24s material %-5s indices %d+%d\n", i, g.Name, g.Material, g.FirstIndex, g.IndexCount)
	}
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	global := fs.Bool("global", false, "Write to the user config directory")
	force := fs.Bool("f", false, "Overwrite an existing file")
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	path := config.FileName
	if *global {
		path = filepath.Join(config.ConfigDir(), config.FileName)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists (use -f to overwrite)\n", path)
		os.Exit(1)
	}

	if *global {
		err = cfg.Save()
	} else {
		err = cfg.SaveTo(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}
