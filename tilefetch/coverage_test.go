package tilefetch

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
)

func worldBounds() orb.Bound {
	return orb.Bound{
		Min: orb.Point{-180.0, -90.0},
		Max: orb.Point{180.0, 90.0},
	}
}

func TestCoverBoundsWorld(t *testing.T) {
	cover := CoverBounds(&CoverBoundsOptions{
		Bounds: worldBounds(),
		Zooms:  []maptile.Zoom{0, 1, 2},
		Scheme: SchemeXYZ,
	})

	// 1 + 4 + 16
	assert.Len(t, cover, 21)

	seen := make(map[TileID]struct{}, len(cover))
	for _, id := range cover {
		if _, dup := seen[id]; dup {
			t.Errorf("duplicate tile %s in cover", id)
		}
		seen[id] = struct{}{}
	}
}

func TestCoverBoundsSmallArea(t *testing.T) {
	// Minneapolis/St. Paul.
	bounds := orb.Bound{
		Min: orb.Point{-93.5778, 44.6848},
		Max: orb.Point{-92.7482, 45.2020},
	}

	cover := CoverBounds(&CoverBoundsOptions{
		Bounds: bounds,
		Zooms:  []maptile.Zoom{0, 1, 2, 3, 4, 5},
		Scheme: SchemeXYZ,
	})

	// The area fits inside a single tile at every requested zoom.
	assert.Len(t, cover, 6)
	assert.Contains(t, cover, NewTileID(0, 0, 0, SchemeXYZ))
	assert.Contains(t, cover, NewTileID(7, 11, 5, SchemeXYZ))
}

func TestCoverBoundsAntimeridian(t *testing.T) {
	// Min X > max X: the box crosses the antimeridian and splits in two.
	bounds := orb.Bound{
		Min: orb.Point{170.0, -10.0},
		Max: orb.Point{-170.0, 10.0},
	}

	cover := CoverBounds(&CoverBoundsOptions{
		Bounds: bounds,
		Zooms:  []maptile.Zoom{1},
		Scheme: SchemeXYZ,
	})

	// Both columns at z1, both rows each.
	assert.Len(t, cover, 4)
	assert.Contains(t, cover, NewTileID(0, 0, 1, SchemeXYZ))
	assert.Contains(t, cover, NewTileID(0, 1, 1, SchemeXYZ))
	assert.Contains(t, cover, NewTileID(1, 0, 1, SchemeXYZ))
	assert.Contains(t, cover, NewTileID(1, 1, 1, SchemeXYZ))
}

func TestCoverBoundsTMS(t *testing.T) {
	cover := CoverBounds(&CoverBoundsOptions{
		Bounds: worldBounds(),
		Zooms:  []maptile.Zoom{1},
		Scheme: SchemeTMS,
	})

	assert.Len(t, cover, 4)
	for _, id := range cover {
		assert.Equal(t, SchemeTMS, id.Scheme)
	}

	// The same cells as XYZ once normalized.
	normalized := make(map[maptile.Tile]struct{}, len(cover))
	for _, id := range cover {
		normalized[id.MapTile()] = struct{}{}
	}
	assert.Len(t, normalized, 4)
}

func TestCoverBoundsClampsLatitude(t *testing.T) {
	// Poles are outside web mercator; the cover stays within the grid.
	cover := CoverBounds(&CoverBoundsOptions{
		Bounds: worldBounds(),
		Zooms:  []maptile.Zoom{1},
		Scheme: SchemeXYZ,
	})

	for _, id := range cover {
		assert.Less(t, id.Y, uint32(2))
	}
}
