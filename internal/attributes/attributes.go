// Package attributes looks up per-asset export settings.
package attributes

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/assetpipe/internal/assetpath"
	"github.com/Faultbox/assetpipe/internal/scene"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// ErrInvalid reports an unreadable or out-of-range attributes file.
var ErrInvalid = errors.New("attributes: invalid settings")

// Settings are the export settings of one asset. They do not change
// during an export.
type Settings struct {
	Flags scene.Flags
	Mode  scene.Mode
	Scale float32
}

// Default returns static mode, no flags and unit scale.
func Default() Settings {
	return Settings{Mode: scene.Static, Scale: 1}
}

// Validate checks that the scale is positive.
func (s Settings) Validate() error {
	if !(s.Scale > 0) {
		return errors.Wrapf(ErrInvalid, "scale must be positive, got %v", s.Scale)
	}
	return nil
}

// file is the YAML form of an .attributes file. Missing keys keep the
// database defaults.
type file struct {
	Mode  *scene.Mode `yaml:"mode"`
	Scale *float32    `yaml:"scale"`
	Flags *[]string   `yaml:"flags"`
}

// Database resolves settings from src:C/F.attributes files.
type Database struct {
	fs       vfs.FS
	defaults Settings
	log      *zap.Logger
}

// NewDatabase creates a database that falls back to defaults for assets
// without an attributes file. log may be nil.
func NewDatabase(fs vfs.FS, defaults Settings, log *zap.Logger) *Database {
	if log == nil {
		log = zap.NewNop()
	}
	return &Database{fs: fs, defaults: defaults, log: log}
}

// Defaults returns the fallback settings.
func (d *Database) Defaults() Settings {
	return d.defaults
}

// Settings returns the export settings of id.
func (d *Database) Settings(id assetpath.Identity) (Settings, error) {
	s := d.defaults
	uri := id.Attributes()
	if !d.fs.FileExists(uri) {
		return s, s.Validate()
	}

	data, err := vfs.ReadAll(d.fs, uri)
	if err != nil {
		return s, err
	}
	s, err = Parse(data, s)
	if err != nil {
		return s, errors.Wrapf(err, "%s", uri)
	}
	d.log.Debug("attributes loaded",
		zap.String("asset", id.String()),
		zap.Stringer("mode", s.Mode),
		zap.Float32("scale", s.Scale),
		zap.Strings("flags", s.Flags.Names()))
	return s, nil
}

// Parse applies the YAML attributes in data on top of base.
func Parse(data []byte, base Settings) (Settings, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return base, errors.Wrap(ErrInvalid, err.Error())
	}

	s := base
	if f.Mode != nil {
		s.Mode = *f.Mode
	}
	if f.Scale != nil {
		s.Scale = *f.Scale
	}
	if f.Flags != nil {
		flags, err := scene.ParseFlags(*f.Flags)
		if err != nil {
			return base, errors.Wrap(ErrInvalid, err.Error())
		}
		s.Flags = flags
	}
	if err := s.Validate(); err != nil {
		return base, err
	}
	return s, nil
}

// Marshal renders s in the attributes file format.
func Marshal(s Settings) ([]byte, error) {
	flags := s.Flags.Names()
	if flags == nil {
		flags = []string{}
	}
	return yaml.Marshal(file{Mode: &s.Mode, Scale: &s.Scale, Flags: &flags})
}
