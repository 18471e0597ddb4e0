package vfs

import (
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	osfs "github.com/hack-pad/hackpadfs/os"
	"github.com/pkg/errors"
)

// Server is an FS over a hackpadfs backend rooted at "/".
// Assigns map a prefix to a directory on the backend.
type Server struct {
	backend hackpadfs.FS
	assigns map[string]string
}

// New creates a Server over backend with the given assigns.
func New(backend hackpadfs.FS, assigns map[string]string) *Server {
	s := &Server{
		backend: backend,
		assigns: make(map[string]string, len(assigns)),
	}
	for prefix, dir := range assigns {
		s.Assign(prefix, dir)
	}
	return s
}

// NewOS creates a Server on the host filesystem. Assigned directories are
// absolute host paths.
func NewOS(assigns map[string]string) *Server {
	return New(osfs.NewFS(), assigns)
}

// NewMem creates a Server on an empty in-memory filesystem.
func NewMem(assigns map[string]string) (*Server, error) {
	backend, err := mem.NewFS()
	if err != nil {
		return nil, errors.Wrap(err, "creating memory filesystem")
	}
	return New(backend, assigns), nil
}

// DefaultAssigns lays out every prefix below a project root.
func DefaultAssigns(root string) map[string]string {
	return map[string]string{
		Source:    path.Join(root, "assets"),
		Model:     path.Join(root, "export", "models"),
		Physics:   path.Join(root, "export", "physics"),
		Mesh:      path.Join(root, "export", "meshes"),
		Animation: path.Join(root, "export", "anims"),
		Texture:   path.Join(root, "export", "textures"),
		Surface:   path.Join(root, "export", "surfaces"),
		Temp:      path.Join(root, "temp"),
	}
}

// Assign binds prefix to dir, replacing any previous binding.
func (s *Server) Assign(prefix, dir string) {
	s.assigns[prefix] = normPath(dir)
}

// Resolve maps a URI to a backend path. URIs without a prefix are taken
// as backend paths.
func (s *Server) Resolve(uri string) (string, error) {
	prefix, rest, ok := strings.Cut(uri, ":")
	if !ok || strings.Contains(prefix, "/") {
		return normPath(uri), nil
	}
	dir, ok := s.assigns[prefix]
	if !ok {
		return "", errors.Wrapf(ErrUnknownAssign, "%q in %s", prefix, uri)
	}
	return normPath(path.Join(dir, rest)), nil
}

// normPath cleans p and makes it non-rooted, as hackpadfs paths must be.
func normPath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}

func (s *Server) stat(uri string) (hackpadfs.FileInfo, bool) {
	p, err := s.Resolve(uri)
	if err != nil {
		return nil, false
	}
	info, err := hackpadfs.Stat(s.backend, p)
	if err != nil {
		return nil, false
	}
	return info, true
}

// DirectoryExists reports whether uri is an existing directory.
func (s *Server) DirectoryExists(uri string) bool {
	info, ok := s.stat(uri)
	return ok && info.IsDir()
}

// FileExists reports whether uri is an existing regular file.
func (s *Server) FileExists(uri string) bool {
	info, ok := s.stat(uri)
	return ok && !info.IsDir()
}

// ModTime returns the modification time of uri.
func (s *Server) ModTime(uri string) (time.Time, bool) {
	info, ok := s.stat(uri)
	if !ok {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// CreateDirectory creates uri and any missing parents.
func (s *Server) CreateDirectory(uri string) error {
	p, err := s.Resolve(uri)
	if err != nil {
		return err
	}
	return errors.Wrapf(hackpadfs.MkdirAll(s.backend, p, 0o755), "creating %s", uri)
}

// DeleteDirectory removes uri recursively. A missing directory is not an error.
func (s *Server) DeleteDirectory(uri string) error {
	p, err := s.Resolve(uri)
	if err != nil {
		return err
	}
	return errors.Wrapf(hackpadfs.RemoveAll(s.backend, p), "deleting %s", uri)
}

func (s *Server) readDir(dir string) ([]hackpadfs.DirEntry, error) {
	p, err := s.Resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := hackpadfs.ReadDir(s.backend, p)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}
	return entries, nil
}

// ListFiles returns the sorted names of files in dir matching pattern.
func (s *Server) ListFiles(dir, pattern string) ([]string, error) {
	entries, err := s.readDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := path.Match(pattern, e.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", pattern)
		}
		if ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListDirectories returns the sorted names of subdirectories of dir.
func (s *Server) ListDirectories(dir string) ([]string, error) {
	entries, err := s.readDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// CreateStream opens uri for writing, truncating it. Missing parent
// directories are created.
func (s *Server) CreateStream(uri string) (io.WriteCloser, error) {
	p, err := s.Resolve(uri)
	if err != nil {
		return nil, errors.Wrap(ErrStreamOpen, err.Error())
	}
	if err := hackpadfs.MkdirAll(s.backend, path.Dir(p), 0o755); err != nil {
		return nil, errors.Wrapf(ErrStreamOpen, "%s: %v", uri, err)
	}
	f, err := hackpadfs.OpenFile(s.backend, p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(ErrStreamOpen, "%s: %v", uri, err)
	}
	return &writeStream{file: f}, nil
}

// OpenStream opens uri for reading.
func (s *Server) OpenStream(uri string) (io.ReadCloser, error) {
	p, err := s.Resolve(uri)
	if err != nil {
		return nil, errors.Wrap(ErrStreamOpen, err.Error())
	}
	f, err := hackpadfs.OpenFile(s.backend, p, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(ErrStreamOpen, "%s: %v", uri, err)
	}
	return f, nil
}

// Chtimes sets the modification time of uri.
func (s *Server) Chtimes(uri string, mtime time.Time) error {
	p, err := s.Resolve(uri)
	if err != nil {
		return err
	}
	return errors.Wrapf(hackpadfs.Chtimes(s.backend, p, mtime, mtime), "touching %s", uri)
}

type writeStream struct {
	file hackpadfs.File
}

func (w *writeStream) Write(p []byte) (int, error) {
	return hackpadfs.WriteFile(w.file, p)
}

func (w *writeStream) Close() error {
	return w.file.Close()
}
