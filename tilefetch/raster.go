package tilefetch

import (
	"bytes"
	"image"

	_ "image/jpeg" // raster tile servers commonly emit jpeg or png
	_ "image/png"
)

// RasterTile is a tile whose payload is an encoded raster image.
type RasterTile struct {
	Tile
	img image.Image
}

func NewRasterTile(id TileID, resolver ResourceResolver) *RasterTile {
	rt := &RasterTile{}
	rt.bind(id, resolver, rasterDecoder{rt})
	return rt
}

type rasterDecoder struct {
	t *RasterTile
}

func (d rasterDecoder) Decode(data []byte) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	d.t.img = img
	return nil
}

// Image returns the decoded raster, or nil before a successful load.
func (t *RasterTile) Image() image.Image {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.img
}
