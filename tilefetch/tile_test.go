package tilefetch

import (
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileIDString(t *testing.T) {
	tests := []struct {
		name string
		id   TileID
		want string
	}{
		{"xyz", NewTileID(1, 2, 3, SchemeXYZ), "xyz:3/1/2"},
		{"tms", NewTileID(4, 5, 6, SchemeTMS), "tms:6/4/5"},
		{"zero", TileID{}, "xyz:0/0/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.String(); got != tt.want {
				t.Errorf("TileID.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTileIDMapTile(t *testing.T) {
	tests := []struct {
		name string
		id   TileID
		want maptile.Tile
	}{
		{"xyz passthrough", NewTileID(1, 2, 3, SchemeXYZ), maptile.New(1, 2, 3)},
		{"tms flips rows", NewTileID(1, 2, 3, SchemeTMS), maptile.New(1, 5, 3)},
		{"z0 has one row", NewTileID(0, 0, 0, SchemeTMS), maptile.New(0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.MapTile(); got != tt.want {
				t.Errorf("TileID.MapTile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTileIDTmsRow(t *testing.T) {
	// The two schemes round-trip through the same stored row.
	xyz := NewTileID(1, 2, 3, SchemeXYZ)
	tms := NewTileID(1, 5, 3, SchemeTMS)

	assert.Equal(t, uint32(5), xyz.tmsRow())
	assert.Equal(t, uint32(5), tms.tmsRow())
	assert.Equal(t, xyz.MapTile(), tms.MapTile())
}

func TestTileIDBound(t *testing.T) {
	b := NewTileID(0, 0, 0, SchemeXYZ).Bound()

	assert.InDelta(t, -180.0, b.Min.X(), 1e-6)
	assert.InDelta(t, 180.0, b.Max.X(), 1e-6)
	assert.InDelta(t, -webMercatorLatLimit, b.Min.Y(), 1e-6)
	assert.InDelta(t, webMercatorLatLimit, b.Max.Y(), 1e-6)
}

func TestParseTilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    TileID
		wantErr bool
	}{
		{"bare", "3/1/2", NewTileID(1, 2, 3, SchemeXYZ), false},
		{"with extension", "10/163/395.mvt", NewTileID(163, 395, 10, SchemeXYZ), false},
		{"not a path", "nope", TileID{}, true},
		{"missing row", "3/1", TileID{}, true},
		{"empty", "", TileID{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTilePath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
