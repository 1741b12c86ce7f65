package tilefetch

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerrainTileDecode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	// R*65536 + G*256 + B = 100000 -> -10000 + 100000*0.1 = 0 meters.
	img.Set(0, 0, color.RGBA{R: 1, G: 134, B: 160, A: 255})
	// All zero -> the encoding's floor at -10000 meters.
	img.Set(1, 0, color.RGBA{A: 255})

	id := NewTileID(1, 2, 3, SchemeXYZ)
	src := &fakeSource{}
	tt := NewTerrainTile(id, XYZResolver{})

	done := 0
	tt.Initialize(id, "{z}/{x}/{y}.png", src, func() { done++ })
	src.request(t, 0).respond(Response{Data: encodePNG(t, img)})

	require.Equal(t, StateLoaded, tt.State())
	require.Equal(t, "", tt.Err())
	assert.Equal(t, 1, done)

	sea, ok := tt.ElevationAt(0, 0)
	require.True(t, ok)
	assert.InDelta(t, 0.0, sea, 1e-9)

	floor, ok := tt.ElevationAt(1, 0)
	require.True(t, ok)
	assert.InDelta(t, -10000.0, floor, 1e-9)
}

func TestTerrainTileElevationOutOfBounds(t *testing.T) {
	id := NewTileID(1, 2, 3, SchemeXYZ)
	tt := NewTerrainTile(id, XYZResolver{})

	// Nothing loaded yet.
	_, ok := tt.ElevationAt(0, 0)
	assert.False(t, ok)

	src := &fakeSource{}
	tt.Initialize(id, "{z}/{x}/{y}.png", src, nil)

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{A: 255})
	src.request(t, 0).respond(Response{Data: encodePNG(t, img)})

	_, ok = tt.ElevationAt(1, 0)
	assert.False(t, ok)
	_, ok = tt.ElevationAt(-1, 0)
	assert.False(t, ok)
}

func TestTerrainTileDecodeGarbage(t *testing.T) {
	id := NewTileID(1, 2, 3, SchemeXYZ)
	src := &fakeSource{}
	tt := NewTerrainTile(id, XYZResolver{})

	tt.Initialize(id, "{z}/{x}/{y}.png", src, nil)
	src.request(t, 0).respond(Response{Data: []byte("not a png")})

	assert.Equal(t, StateLoaded, tt.State())
	assert.Equal(t, DecodeFailedError, tt.Err())
}
