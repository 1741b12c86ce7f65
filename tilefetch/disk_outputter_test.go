package tilefetch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskOutputterSave(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tiles")

	outputter, err := NewDiskOutputter(root, "mvt")
	require.NoError(t, err)
	require.NoError(t, outputter.CreateTiles())

	id := NewTileID(1, 2, 3, SchemeXYZ)
	require.NoError(t, outputter.Save(id, []byte("tile data")))
	require.NoError(t, outputter.Close())

	data, err := os.ReadFile(filepath.Join(root, "3", "1", "2.mvt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("tile data"), data)
}

func TestDiskOutputterRejectsFileRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(root, []byte("in the way"), 0644))

	outputter, err := NewDiskOutputter(root, "mvt")
	require.NoError(t, err)
	assert.Error(t, outputter.CreateTiles())
}
