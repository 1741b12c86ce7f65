package tilefetch

// BlobTile keeps the raw payload verbatim, for pipelines that persist
// tiles without interpreting them (prefetching into mbtiles or pmtiles).
type BlobTile struct {
	Tile
	data []byte
}

func NewBlobTile(id TileID, resolver ResourceResolver) *BlobTile {
	bt := &BlobTile{}
	bt.bind(id, resolver, blobDecoder{bt})
	return bt
}

type blobDecoder struct {
	t *BlobTile
}

func (d blobDecoder) Decode(data []byte) error {
	d.t.data = data
	return nil
}

// Data returns the fetched payload, or nil before a successful load.
func (t *BlobTile) Data() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}
