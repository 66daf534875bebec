package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteOMETIFF renders the spec into dir and returns the file path.
func WriteOMETIFF(t *testing.T, dir, name string, spec SlideSpec) string {
	t.Helper()
	if name == "" {
		name = "synthetic.ome.tiff"
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, BuildOMETIFF(spec), 0o600))
	return path
}

// TempOMETIFF renders the spec into a fresh temp dir.
func TempOMETIFF(t *testing.T, spec SlideSpec) string {
	t.Helper()
	return WriteOMETIFF(t, t.TempDir(), "", spec)
}
