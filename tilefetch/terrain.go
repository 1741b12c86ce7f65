package tilefetch

import (
	"bytes"
	"fmt"
	"image/png"
)

// TerrainTile is a tile whose payload is a Terrain-RGB encoded elevation
// grid: height = -10000 + (R*65536 + G*256 + B) * 0.1 meters.
type TerrainTile struct {
	Tile
	width      int
	height     int
	elevations []float64
}

func NewTerrainTile(id TileID, resolver ResourceResolver) *TerrainTile {
	tt := &TerrainTile{}
	tt.bind(id, resolver, terrainDecoder{tt})
	return tt
}

type terrainDecoder struct {
	t *TerrainTile
}

func (d terrainDecoder) Decode(data []byte) error {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("empty terrain tile")
	}

	elevations := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; scale back to 8 bits.
			v := (r>>8)<<16 | (g>>8)<<8 | bl>>8
			elevations = append(elevations, -10000.0+float64(v)*0.1)
		}
	}

	d.t.width = b.Dx()
	d.t.height = b.Dy()
	d.t.elevations = elevations
	return nil
}

// ElevationAt returns the height in meters at pixel (x, y) of the grid.
// The second return is false before a successful load or out of bounds.
func (t *TerrainTile) ElevationAt(x, y int) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return 0, false
	}
	return t.elevations[y*t.width+x], true
}
