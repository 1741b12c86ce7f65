package tilefetch

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Scheme identifies the Y-axis convention of a tile grid.
type Scheme uint8

const (
	// SchemeXYZ counts rows from the north (slippy map convention).
	SchemeXYZ Scheme = iota
	// SchemeTMS counts rows from the south.
	SchemeTMS
)

func (s Scheme) String() string {
	if s == SchemeTMS {
		return "tms"
	}
	return "xyz"
}

// TileID is the immutable coordinate key of a single tile. It is a plain
// value and safe to use as a map key.
type TileID struct {
	X, Y   uint32
	Z      maptile.Zoom
	Scheme Scheme
}

func NewTileID(x, y uint32, z maptile.Zoom, scheme Scheme) TileID {
	return TileID{X: x, Y: y, Z: z, Scheme: scheme}
}

// MapTile returns the XYZ-normalized maptile for this ID. TMS rows are
// flipped to the slippy map convention.
func (id TileID) MapTile() maptile.Tile {
	y := id.Y
	if id.Scheme == SchemeTMS {
		y = uint32(1)<<uint32(id.Z) - 1 - id.Y
	}
	return maptile.New(id.X, y, id.Z)
}

// tmsRow returns the row counted from the south, which is what mbtiles
// archives store.
func (id TileID) tmsRow() uint32 {
	if id.Scheme == SchemeTMS {
		return id.Y
	}
	return uint32(1)<<uint32(id.Z) - 1 - id.Y
}

// Bound returns the geographic bounds of the tile.
func (id TileID) Bound() orb.Bound {
	return id.MapTile().Bound()
}

func (id TileID) String() string {
	return fmt.Sprintf("%s:%d/%d/%d", id.Scheme, id.Z, id.X, id.Y)
}

// ParseTilePath parses a "z/x/y" tile path into an XYZ TileID. Anything
// trailing the Y value (a file extension, typically) is ignored.
func ParseTilePath(path string) (TileID, error) {
	var z, x, y uint32
	if n, err := fmt.Sscanf(path, "%d/%d/%d", &z, &x, &y); err != nil || n != 3 {
		return TileID{}, fmt.Errorf("invalid tile path %q", path)
	}
	return NewTileID(x, y, maptile.Zoom(z), SchemeXYZ), nil
}
