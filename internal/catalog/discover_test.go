package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.MP4"))
	touch(t, filepath.Join(root, "a.mkv"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "L01", "V002.mov"))
	touch(t, filepath.Join(root, "L01", "V001.avi"))
	touch(t, filepath.Join(root, "L01", "thumb.jpg"))

	videos, err := Discover(root)
	require.NoError(t, err)

	var ids []string
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"L01/V001", "L01/V002", "a", "b"}, ids)
	assert.Equal(t, filepath.Join(root, "L01", "V001.avi"), videos[0].Path)
}

func TestDiscoverEmpty(t *testing.T) {
	videos, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrDirectoryNotFound)

	file := filepath.Join(t.TempDir(), "clip.mp4")
	touch(t, file)
	_, err = Discover(file)
	assert.ErrorIs(t, err, ErrDirectoryNotFound)
}

func TestIsVideo(t *testing.T) {
	assert.True(t, IsVideo("x/y.Mov"))
	assert.False(t, IsVideo("x/y.mp4.txt"))
	assert.False(t, IsVideo("mp4"))
}
