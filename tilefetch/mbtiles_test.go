package tilefetch

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestArchive(t *testing.T, tiles map[TileID][]byte) string {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.mbtiles")
	outputter, err := NewMbtilesOutputter(dsn, 0, nil)
	require.NoError(t, err)
	require.NoError(t, outputter.CreateTiles())

	for id, data := range tiles {
		require.NoError(t, outputter.Save(id, data))
	}

	bounds := orb.Bound{Min: orb.Point{-180, -85}, Max: orb.Point{180, 85}}
	require.NoError(t, outputter.AssignSpatialMetadata(bounds, 0, 3))
	require.NoError(t, outputter.Close())

	return dsn
}

func TestMbtilesRoundTrip(t *testing.T) {
	a := NewTileID(1, 2, 3, SchemeXYZ)
	b := NewTileID(0, 0, 0, SchemeXYZ)

	dsn := writeTestArchive(t, map[TileID][]byte{
		a: []byte("tile a"),
		b: []byte("tile b"),
	})

	reader, err := NewMbtilesReader(dsn)
	require.NoError(t, err)
	defer reader.Close()

	data, err := reader.GetTile(a)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile a"), data)

	// TMS addressing reaches the same stored row.
	data, err = reader.GetTile(NewTileID(1, 5, 3, SchemeTMS))
	require.NoError(t, err)
	assert.Equal(t, []byte("tile a"), data)

	_, err = reader.GetTile(NewTileID(7, 7, 3, SchemeXYZ))
	assert.Equal(t, ErrTileNotFound, err)
}

func TestMbtilesVisitAllTiles(t *testing.T) {
	a := NewTileID(1, 2, 3, SchemeXYZ)
	b := NewTileID(0, 0, 0, SchemeXYZ)

	dsn := writeTestArchive(t, map[TileID][]byte{
		a: []byte("tile a"),
		b: []byte("tile b"),
	})

	reader, err := NewMbtilesReader(dsn)
	require.NoError(t, err)
	defer reader.Close()

	visited := make(map[maptile.Tile][]byte)
	require.NoError(t, reader.VisitAllTiles(func(id TileID, data []byte) {
		assert.Equal(t, SchemeTMS, id.Scheme)
		visited[id.MapTile()] = data
	}))

	require.Len(t, visited, 2)
	assert.Equal(t, []byte("tile a"), visited[a.MapTile()])
	assert.Equal(t, []byte("tile b"), visited[b.MapTile()])
}

func TestMbtilesMetadata(t *testing.T) {
	dsn := writeTestArchive(t, map[TileID][]byte{
		NewTileID(0, 0, 0, SchemeXYZ): []byte("tile"),
	})

	reader, err := NewMbtilesReader(dsn)
	require.NoError(t, err)
	defer reader.Close()

	metadata, err := reader.Metadata()
	require.NoError(t, err)

	bounds, err := metadata.Bounds()
	require.NoError(t, err)
	assert.InDelta(t, -180.0, bounds.Min.X(), 1e-6)
	assert.InDelta(t, 85.0, bounds.Max.Y(), 1e-6)

	minZoom, err := metadata.MinZoom()
	require.NoError(t, err)
	assert.Equal(t, uint(0), minZoom)

	maxZoom, err := metadata.MaxZoom()
	require.NoError(t, err)
	assert.Equal(t, uint(3), maxZoom)
}

func TestRemoteVFSNamesAreUnique(t *testing.T) {
	// Each remote reader registers its own VFS; a shared name would make
	// every later connection read from the first reader's URL.
	seen := map[string]struct{}{}
	for i := 0; i < 3; i++ {
		name := nextRemoteVFSName()
		_, dup := seen[name]
		assert.False(t, dup, "vfs name %s reused", name)
		seen[name] = struct{}{}
	}
}

func TestMbtilesFileSource(t *testing.T) {
	a := NewTileID(1, 2, 3, SchemeXYZ)
	dsn := writeTestArchive(t, map[TileID][]byte{a: []byte("tile a")})

	reader, err := NewMbtilesReader(dsn)
	require.NoError(t, err)
	defer reader.Close()

	src := NewMbtilesFileSource(reader)
	bt := NewBlobTile(a, XYZResolver{})

	done := make(chan struct{})
	bt.Initialize(a, "{z}/{x}/{y}", src, func() { close(done) })
	waitDone(t, done)

	assert.Equal(t, StateLoaded, bt.State())
	assert.Equal(t, "", bt.Err())
	assert.Equal(t, []byte("tile a"), bt.Data())
}
