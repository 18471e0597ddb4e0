// Package vfs resolves virtual asset URIs such as "msh:props/chair.mesh"
// against assigned root directories and performs the file operations the
// export pipeline needs on top of a hackpadfs backend.
package vfs

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// Virtual prefixes used by the pipeline.
const (
	Source    = "src"
	Model     = "mdl"
	Physics   = "phys"
	Mesh      = "msh"
	Animation = "ani"
	Texture   = "tex"
	Surface   = "sur"
	Temp      = "temp"
)

// Prefixes lists every virtual prefix in a stable order.
var Prefixes = []string{Source, Model, Physics, Mesh, Animation, Texture, Surface, Temp}

// Errors.
var (
	ErrUnknownAssign = errors.New("vfs: unknown assign")
	ErrStreamOpen    = errors.New("vfs: cannot open stream")
)

// FS is the location service the pipeline components depend on.
type FS interface {
	DirectoryExists(uri string) bool
	FileExists(uri string) bool
	CreateDirectory(uri string) error
	// DeleteDirectory removes uri and everything below it.
	DeleteDirectory(uri string) error
	// ListFiles returns the names of regular files in dir matching a
	// path.Match pattern, sorted.
	ListFiles(dir, pattern string) ([]string, error)
	ListDirectories(dir string) ([]string, error)
	CreateStream(uri string) (io.WriteCloser, error)
	OpenStream(uri string) (io.ReadCloser, error)
	// ModTime returns the modification time of uri and whether it exists.
	ModTime(uri string) (time.Time, bool)
}

// ReadAll reads the whole file at uri.
func ReadAll(fs FS, uri string) ([]byte, error) {
	r, err := fs.OpenStream(uri)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", uri)
	}
	return data, nil
}

// WriteAll replaces the file at uri with data.
func WriteAll(fs FS, uri string, data []byte) error {
	w, err := fs.CreateStream(uri)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing %s", uri)
	}
	return errors.Wrapf(w.Close(), "closing %s", uri)
}
