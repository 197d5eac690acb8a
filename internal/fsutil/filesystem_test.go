package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fsys FileSystem, name, content string) {
	t.Helper()
	w, err := fsys.Create(name)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestFileSystems(t *testing.T) {
	t.Parallel()
	impls := map[string]func(t *testing.T) (FileSystem, string){
		"os": func(t *testing.T) (FileSystem, string) {
			return OSFileSystem{}, t.TempDir()
		},
		"memory": func(t *testing.T) (FileSystem, string) {
			return NewMemoryFileSystem(), "/reports"
		},
	}
	for name, newFS := range impls {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fsys, root := newFS(t)
			dir := filepath.Join(root, "session-1")

			require.NoError(t, fsys.MkdirAll(dir, 0o755))
			assert.True(t, fsys.Exists(dir))

			path := filepath.Join(dir, "summary.json")
			assert.False(t, fsys.Exists(path))
			writeFile(t, fsys, path, `{"version":1}`)
			assert.True(t, fsys.Exists(path))

			data, err := fsys.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, `{"version":1}`, string(data))

			writeFile(t, fsys, path, "x")
			data, err = fsys.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "x", string(data))

			_, err = fsys.ReadFile(filepath.Join(dir, "missing.png"))
			assert.True(t, errors.Is(err, fs.ErrNotExist))
		})
	}
}

func TestMemoryFileSystem_CreateRequiresDir(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()
	_, err := m.Create("/nowhere/risk.html")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	w, err := m.Create("top-level.json")
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestMemoryFileSystem_ContentVisibleOnClose(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/out", 0o755))

	w, err := m.Create("/out/velocity.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("png"))
	require.NoError(t, err)

	data, err := m.ReadFile("/out/velocity.png")
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, w.Close())
	data, err = m.ReadFile("/out/velocity.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestMemoryFileSystem_Files(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/out/a/b", 0o755))
	assert.True(t, m.Exists("/out/a"))

	writeFile(t, m, "/out/a/z.json", "")
	writeFile(t, m, "/out/a/b/c.png", "")
	writeFile(t, m, "/out/a.xlsx", "")

	assert.Equal(t, []string{"/out/a/b/c.png", "/out/a/z.json"}, m.Files("/out/a"))
	assert.Empty(t, m.Files("/elsewhere"))
}

func TestMemoryFileSystem_ReadReturnsCopy(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()
	writeFile(t, m, "f", "abc")

	data, err := m.ReadFile("f")
	require.NoError(t, err)
	data[0] = 'x'

	again, err := m.ReadFile("f")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
