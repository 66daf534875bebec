package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscoverSlideFiles(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.ome.tiff"))
	b := touch(t, filepath.Join(dir, "b.ome_tif"))
	touch(t, filepath.Join(dir, "plain.tif"))
	nested := touch(t, filepath.Join(dir, "sub", "c.ome.tiff"))

	files, err := discoverSlideFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)

	files, err = discoverSlideFiles([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b, nested}, files)
}

func TestDiscoverSlideFilesAcceptsExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.ome.tiff"))

	files, err := discoverSlideFiles([]string{a}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, files)
}

func TestDiscoverSlideFilesPatterns(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.ome.tiff"))
	touch(t, filepath.Join(dir, "skip.ome.tiff"))

	files, err := discoverSlideFiles([]string{dir}, false, []string{"a.*"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, files)

	files, err = discoverSlideFiles([]string{dir}, false, nil, []string{"skip.*"})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, files)
}

func TestDiscoverSlideFilesMissingPath(t *testing.T) {
	_, err := discoverSlideFiles([]string{filepath.Join(t.TempDir(), "absent")}, false, nil, nil)
	assert.ErrorContains(t, err, "cannot access")
}
