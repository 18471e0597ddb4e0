package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagRoot     = flag.String("root", "", "Project root (assets/, export/, temp/)")
	flagPlatform = flag.String("platform", "", "Target platform: pc, ps3, xbox360")
	flagForce    = flag.Bool("force", false, "Export even when nothing is stale")
	flagLog      = flag.String("log", "", "Log file path")
	flagMetrics  = flag.String("metrics", "", "Write Prometheus textfile metrics to this path")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagRoot != "" {
		cfg.Root = *flagRoot
	}
	if *flagPlatform != "" {
		cfg.Export.Platform = *flagPlatform
	}
	if *flagForce {
		cfg.Export.Force = true
	}
	if *flagLog != "" {
		cfg.Logging.LogFile = *flagLog
	}
	if *flagMetrics != "" {
		cfg.Metrics.Textfile = *flagMetrics
	}
}
