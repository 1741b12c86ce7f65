package tilefetch

import (
	"github.com/paulmach/orb/encoding/mvt"
)

// VectorTile is a tile whose payload is a Mapbox vector tile, possibly
// gzipped the way mbtiles archives store them.
type VectorTile struct {
	Tile
	layers mvt.Layers
}

func NewVectorTile(id TileID, resolver ResourceResolver) *VectorTile {
	vt := &VectorTile{}
	vt.bind(id, resolver, vectorDecoder{vt})
	return vt
}

type vectorDecoder struct {
	t *VectorTile
}

func (d vectorDecoder) Decode(data []byte) error {
	var layers mvt.Layers
	var err error

	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return err
	}

	d.t.layers = layers
	return nil
}

// Layers returns the decoded vector layers, or nil before a successful
// load.
func (t *VectorTile) Layers() mvt.Layers {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layers
}
