package tilefetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileSetReconcile(t *testing.T) {
	set := NewTileSet(nil)

	a := NewTileID(0, 0, 1, SchemeXYZ)
	b := NewTileID(1, 0, 1, SchemeXYZ)
	c := NewTileID(0, 1, 1, SchemeXYZ)

	factory := func(id TileID) *Tile {
		return NewTile(id, XYZResolver{}, &stubDecoder{})
	}

	created := set.Reconcile([]TileID{a, b}, factory)
	require.Len(t, created, 2)
	assert.Equal(t, 2, set.Len())
	assert.NotNil(t, set.Get(a))
	assert.NotNil(t, set.Get(b))

	// Overlapping cover: only the new tile is created, the survivor is
	// the same instance.
	survivor := set.Get(b)
	created = set.Reconcile([]TileID{b, c}, factory)
	require.Len(t, created, 1)
	assert.Equal(t, c, created[0].ID())
	assert.Equal(t, 2, set.Len())
	assert.Nil(t, set.Get(a))
	assert.Same(t, survivor, set.Get(b))
}

func TestTileSetReconcileCancelsAndNotifiesEvicted(t *testing.T) {
	var evicted []TileID
	var evictedStates []TileState

	set := NewTileSet(func(id TileID, tile *Tile) {
		evicted = append(evicted, id)
		evictedStates = append(evictedStates, tile.State())
	})

	a := NewTileID(0, 0, 1, SchemeXYZ)
	b := NewTileID(1, 0, 1, SchemeXYZ)

	src := &fakeSource{}
	created := set.Reconcile([]TileID{a, b}, func(id TileID) *Tile {
		return NewTile(id, XYZResolver{}, &stubDecoder{})
	})

	done := 0
	for _, tile := range created {
		tile.Initialize(tile.ID(), "{z}/{x}/{y}", src, func() { done++ })
	}

	set.Reconcile([]TileID{b}, func(id TileID) *Tile {
		t.Fatalf("unexpected tile created for %s", id)
		return nil
	})

	// The evicted tile was cancelled before the notification, and its
	// completion callback never fired.
	require.Equal(t, []TileID{a}, evicted)
	require.Equal(t, []TileState{StateCanceled}, evictedStates)
	assert.Equal(t, 0, done)

	assert.Equal(t, 1, set.Len())
	assert.Equal(t, StateLoading, set.Get(b).State())
}

func TestTileSetGetMissing(t *testing.T) {
	set := NewTileSet(nil)
	assert.Nil(t, set.Get(NewTileID(0, 0, 0, SchemeXYZ)))
	assert.Equal(t, 0, set.Len())
}
