package scenedoc

import (
	"bytes"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/Faultbox/assetpipe/internal/vfs"
)

// dirFS exposes the directory of a document as an fs.FS so the glTF
// decoder can load external buffers through the vfs.
type dirFS struct {
	fs  vfs.FS
	dir string
}

func (d *dirFS) uri(name string) string {
	if d.dir == "" || strings.HasSuffix(d.dir, ":") {
		return d.dir + name
	}
	return d.dir + "/" + name
}

func (d *dirFS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	data, err := vfs.ReadAll(d.fs, d.uri(name))
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (d *dirFS) Open(name string) (fs.File, error) {
	data, err := d.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &memFile{Reader: bytes.NewReader(data), name: path.Base(name), size: int64(len(data))}, nil
}

type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }
func (f *memFile) Name() string               { return f.name }
func (f *memFile) Size() int64                { return f.size }
func (f *memFile) Mode() fs.FileMode          { return 0o444 }
func (f *memFile) ModTime() time.Time         { return time.Time{} }
func (f *memFile) IsDir() bool                { return false }
func (f *memFile) Sys() any                   { return nil }
