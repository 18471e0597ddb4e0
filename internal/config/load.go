package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project root, the working
// directory and the user config directory.
const FileName = "assetexport.yaml"

// EnvConfig names an environment variable holding a config path. The
// -config flag wins over it.
const EnvConfig = "ASSETEXPORT_CONFIG"

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	if configPath == "" {
		configPath = findConfigFile(*flagRoot)
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Flags win over everything
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config among root, the
// working directory and ConfigDir.
func findConfigFile(root string) string {
	var candidates []string
	if root != "" {
		candidates = append(candidates, filepath.Join(root, FileName))
	}
	candidates = append(candidates,
		"./"+FileName,
		filepath.Join(ConfigDir(), FileName),
	)

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "AssetPipe")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "AssetPipe")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "assetpipe")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "assetpipe")
	}
}

// loadFromFile merges the YAML file at path into cfg. Unknown keys are
// rejected. A relative root is taken relative to the file's directory.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	root := cfg.Root
	cfg.Root = ""

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		cfg.Root = root
		return err
	}

	switch {
	case cfg.Root == "":
		cfg.Root = root
	case !filepath.IsAbs(cfg.Root):
		cfg.Root = filepath.Join(filepath.Dir(path), cfg.Root)
	}
	return nil
}
