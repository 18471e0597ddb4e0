// Package config handles exporter configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/assetpipe/internal/attributes"
	"github.com/Faultbox/assetpipe/internal/export"
	"github.com/Faultbox/assetpipe/internal/meshfile"
	"github.com/Faultbox/assetpipe/internal/scene"
	"github.com/Faultbox/assetpipe/internal/texture"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// Config holds all exporter settings.
type Config struct {
	Root    string            `yaml:"root"`    // Project root the default assigns derive from
	Assigns map[string]string `yaml:"assigns"` // Virtual prefix overrides, e.g. tex: /mnt/textures
	Export  ExportConfig      `yaml:"export"`
	Texture TextureConfig     `yaml:"texture"`
	Logging LoggingConfig     `yaml:"logging"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// ExportConfig holds pipeline settings.
type ExportConfig struct {
	Platform string   `yaml:"platform"`
	Patterns []string `yaml:"patterns"` // Source documents picked up by dir/all
	Force    bool     `yaml:"force"`

	// Defaults for assets without an .attributes file
	Mode  string   `yaml:"mode"`
	Flags []string `yaml:"flags"`
	Scale float32  `yaml:"scale"`
}

// TextureConfig holds texture conversion settings.
type TextureConfig struct {
	MaxSize     int `yaml:"max_size"`
	JPEGQuality int `yaml:"jpeg_quality"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// MetricsConfig holds metrics output settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // Written after batch runs when set
}

// Default returns a Config with sensible default values.
func Default() *Config {
	opts := texture.DefaultOptions()
	return &Config{
		Root: ".",
		Export: ExportConfig{
			Platform: "pc",
			Patterns: append([]string(nil), export.DefaultPatterns...),
			Force:    false,
			Mode:     "static",
			Scale:    1,
		},
		Texture: TextureConfig{
			MaxSize:     opts.MaxSize,
			JPEGQuality: opts.JPEGQuality,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// VirtualAssigns returns the prefix bindings: the defaults derived from
// Root, overridden by Assigns.
func (c *Config) VirtualAssigns() map[string]string {
	assigns := vfs.DefaultAssigns(c.Root)
	for prefix, dir := range c.Assigns {
		assigns[prefix] = dir
	}
	return assigns
}

// Platform parses the target platform.
func (c *Config) Platform() (meshfile.Platform, error) {
	return meshfile.ParsePlatform(c.Export.Platform)
}

// DefaultSettings returns the export settings used for assets without
// an attributes file.
func (c *Config) DefaultSettings() (attributes.Settings, error) {
	mode, err := scene.ParseMode(c.Export.Mode)
	if err != nil {
		return attributes.Settings{}, err
	}
	flags, err := scene.ParseFlags(c.Export.Flags)
	if err != nil {
		return attributes.Settings{}, err
	}
	s := attributes.Settings{Flags: flags, Mode: mode, Scale: c.Export.Scale}
	return s, s.Validate()
}

// TextureOptions returns the converter options.
func (c *Config) TextureOptions() texture.Options {
	return texture.Options{MaxSize: c.Texture.MaxSize, JPEGQuality: c.Texture.JPEGQuality}
}

// Validate checks every value that is parsed later.
func (c *Config) Validate() error {
	if _, err := c.Platform(); err != nil {
		return err
	}
	if _, err := c.DefaultSettings(); err != nil {
		return err
	}
	if c.Texture.MaxSize <= 0 {
		return fmt.Errorf("texture.max_size must be positive, got %d", c.Texture.MaxSize)
	}
	if c.Texture.JPEGQuality < 1 || c.Texture.JPEGQuality > 100 {
		return fmt.Errorf("texture.jpeg_quality must be within 1..100, got %d", c.Texture.JPEGQuality)
	}
	for prefix := range c.Assigns {
		if !knownPrefix(prefix) {
			return fmt.Errorf("assigns: unknown prefix %q", prefix)
		}
	}
	return nil
}

func knownPrefix(p string) bool {
	for _, known := range vfs.Prefixes {
		if p == known {
			return true
		}
	}
	return false
}
