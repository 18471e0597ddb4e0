package vfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewMem(DefaultAssigns("/proj"))
	require.NoError(t, err)
	return s
}

func TestResolve(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		uri  string
		want string
	}{
		{"msh:props/chair.mesh", "proj/export/meshes/props/chair.mesh"},
		{"src:props/", "proj/assets/props"},
		{"tex:props/chair_gltf/0.png", "proj/export/textures/props/chair_gltf/0.png"},
		{"/plain/path.txt", "plain/path.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := s.Resolve(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := s.Resolve("nope:x")
	assert.ErrorIs(t, err, ErrUnknownAssign)
}

func TestStreamsAndExistence(t *testing.T) {
	s := newTestServer(t)

	assert.False(t, s.FileExists("mdl:props/chair.model"))
	require.NoError(t, WriteAll(s, "mdl:props/chair.model", []byte("name: chair\n")))

	assert.True(t, s.FileExists("mdl:props/chair.model"))
	assert.True(t, s.DirectoryExists("mdl:props"))
	assert.False(t, s.DirectoryExists("mdl:props/chair.model"))

	data, err := ReadAll(s, "mdl:props/chair.model")
	require.NoError(t, err)
	assert.Equal(t, "name: chair\n", string(data))

	// truncates on rewrite
	require.NoError(t, WriteAll(s, "mdl:props/chair.model", []byte("x")))
	data, err = ReadAll(s, "mdl:props/chair.model")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	_, err = s.OpenStream("mdl:props/missing.model")
	assert.ErrorIs(t, err, ErrStreamOpen)
}

func TestDirectories(t *testing.T) {
	s := newTestServer(t)

	require.NoError(t, s.CreateDirectory("tex:props/chair_gltf"))
	require.NoError(t, WriteAll(s, "tex:props/chair_gltf/0.png", []byte{1}))
	assert.True(t, s.DirectoryExists("tex:props/chair_gltf"))

	require.NoError(t, s.DeleteDirectory("tex:props/chair_gltf"))
	assert.False(t, s.DirectoryExists("tex:props/chair_gltf"))
	assert.False(t, s.FileExists("tex:props/chair_gltf/0.png"))

	// deleting again is fine
	assert.NoError(t, s.DeleteDirectory("tex:props/chair_gltf"))
}

func TestListing(t *testing.T) {
	s := newTestServer(t)

	for _, uri := range []string{
		"src:props/table.glb",
		"src:props/chair.gltf",
		"src:props/chair.attributes",
		"src:vehicles/car.gltf",
	} {
		require.NoError(t, WriteAll(s, uri, nil))
	}
	require.NoError(t, s.CreateDirectory("src:props/sub"))

	files, err := s.ListFiles("src:props", "*.gltf")
	require.NoError(t, err)
	assert.Equal(t, []string{"chair.gltf"}, files)

	files, err = s.ListFiles("src:props", "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"chair.attributes", "chair.gltf", "table.glb"}, files)

	dirs, err := s.ListDirectories("src:")
	require.NoError(t, err)
	assert.Equal(t, []string{"props", "vehicles"}, dirs)

	_, err = s.ListFiles("src:missing", "*")
	assert.Error(t, err)
}

func TestModTime(t *testing.T) {
	s := newTestServer(t)

	_, ok := s.ModTime("src:props/chair.gltf")
	assert.False(t, ok)

	require.NoError(t, WriteAll(s, "src:props/chair.gltf", nil))
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Chtimes("src:props/chair.gltf", stamp))

	got, ok := s.ModTime("src:props/chair.gltf")
	require.True(t, ok)
	assert.True(t, got.Equal(stamp), "got %v want %v", got, stamp)
}
