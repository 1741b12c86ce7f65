package tilefetch

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const webMercatorLatLimit float64 = 85.05112877980659

// CoverBoundsOptions selects the tiles CoverBounds enumerates.
type CoverBoundsOptions struct {
	Bounds orb.Bound
	Zooms  []maptile.Zoom
	Scheme Scheme
}

// CoverBounds returns the ID of every tile covering the bounds at the
// given zooms. Bounds crossing the antimeridian (min X > max X) are split
// into two boxes; latitudes are clamped to the web mercator limit.
func CoverBounds(opts *CoverBoundsOptions) []TileID {
	bounds := opts.Bounds

	var boxes []orb.Bound
	if bounds.Min.X() > bounds.Max.X() {
		boxes = []orb.Bound{
			{
				Min: orb.Point{-180.0, bounds.Min.Y()},
				Max: bounds.Max,
			},
			{
				Min: bounds.Min,
				Max: orb.Point{180.0, bounds.Max.Y()},
			},
		}
	} else {
		boxes = []orb.Bound{bounds}
	}

	var cover []TileID

	for _, box := range boxes {
		clamped := orb.Bound{
			Min: orb.Point{
				math.Max(-180.0, box.Min.X()),
				math.Max(-webMercatorLatLimit, box.Min.Y()),
			},
			Max: orb.Point{
				math.Min(180.0-0.00000001, box.Max.X()),
				math.Min(webMercatorLatLimit, box.Max.Y()),
			},
		}

		for _, z := range opts.Zooms {
			minTile := maptile.At(clamped.Min, z)
			maxTile := maptile.At(clamped.Max, z)

			// XYZ counts rows from the north, so the southern corner has
			// the larger Y.
			maxTile.Y, minTile.Y = minTile.Y, maxTile.Y

			for x := minTile.X; x <= maxTile.X; x++ {
				for y := minTile.Y; y <= maxTile.Y; y++ {
					tileY := y
					if opts.Scheme == SchemeTMS {
						tileY = uint32(1)<<uint32(z) - 1 - y
					}

					cover = append(cover, NewTileID(x, tileY, z, opts.Scheme))
				}
			}
		}
	}

	return cover
}
