package tilefetch

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// TileOutputter persists fetched tile payloads.
type TileOutputter interface {
	CreateTiles() error
	Save(id TileID, data []byte) error
	AssignSpatialMetadata(bound orb.Bound, minZoom maptile.Zoom, maxZoom maptile.Zoom) error
	Close() error
}
