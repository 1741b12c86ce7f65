package tilefetch

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"hash"
	"hash/fnv"
	"io"
	"log/slog"
	"os"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/protomaps/go-pmtiles/pmtiles"
)

type offsetLen struct {
	offset uint64
	length uint32
}

type pmtilesOutputter struct {
	tileset        *roaring64.Bitmap
	hashFunc       hash.Hash
	offsetMap      map[string]offsetLen
	tileData       *os.File
	entries        []pmtiles.EntryV3
	compressBuffer *bytes.Buffer
	compressor     *gzip.Writer
	header         pmtiles.HeaderV3
	metadata       *MbtilesMetadata
	outFile        *os.File
}

// NewPmtilesOutputter writes a pmtiles v3 archive at dsn. Tile data is
// staged in a temp file and assembled behind the directories on Close.
func NewPmtilesOutputter(dsn string, metadata *MbtilesMetadata) (*pmtilesOutputter, error) {
	tmpFile, err := os.CreateTemp("", "pmtiles-tiledata")
	if err != nil {
		return nil, fmt.Errorf("error creating temp file: %w", err)
	}

	outFile, err := os.Create(dsn)
	if err != nil {
		return nil, fmt.Errorf("error creating pmtiles output file: %w", err)
	}

	if metadata == nil {
		metadata = NewMbtilesMetadata(map[string]string{})
	}

	compressBuffer := bytes.NewBuffer(nil)

	return &pmtilesOutputter{
		outFile:        outFile,
		tileset:        roaring64.New(),
		hashFunc:       fnv.New128a(),
		tileData:       tmpFile,
		offsetMap:      make(map[string]offsetLen),
		entries:        make([]pmtiles.EntryV3, 0),
		compressBuffer: compressBuffer,
		compressor:     gzip.NewWriter(compressBuffer),
		header:         pmtiles.HeaderV3{},
		metadata:       metadata,
	}, nil
}

func (p *pmtilesOutputter) CreateTiles() error {
	return nil
}

// Save appends one tile, deduplicating payloads by content hash. Payloads
// are gzipped unless they already are.
func (p *pmtilesOutputter) Save(id TileID, data []byte) error {
	mt := id.MapTile()

	// pmtiles addresses tiles in XYZ z/x/y order on a hilbert curve.
	tid := pmtiles.ZxyToID(uint8(mt.Z), mt.X, mt.Y)
	p.tileset.Add(tid)

	p.hashFunc.Reset()
	p.hashFunc.Write(data)
	sumString := string(p.hashFunc.Sum(nil))

	found, ok := p.offsetMap[sumString]
	if !ok {
		offset, err := p.tileData.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}

		var newData []byte
		if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
			newData = data
		} else {
			p.compressBuffer.Reset()
			p.compressor.Reset(p.compressBuffer)
			p.compressor.Write(data)
			p.compressor.Close()
			newData = p.compressBuffer.Bytes()
		}

		bytesWritten, err := p.tileData.Write(newData)
		if err != nil {
			return err
		}

		found = offsetLen{
			offset: uint64(offset),
			length: uint32(bytesWritten),
		}
		p.offsetMap[sumString] = found
	}

	p.entries = append(p.entries, pmtiles.EntryV3{
		TileID:    tid,
		Offset:    found.offset,
		Length:    found.length,
		RunLength: 1,
	})

	return nil
}

func (p *pmtilesOutputter) AssignSpatialMetadata(bound orb.Bound, minZoom maptile.Zoom, maxZoom maptile.Zoom) error {
	center := bound.Center()

	p.header.MinLonE7 = int32(bound.Min.X() * 10000000)
	p.header.MinLatE7 = int32(bound.Min.Y() * 10000000)
	p.header.MaxLonE7 = int32(bound.Max.X() * 10000000)
	p.header.MaxLatE7 = int32(bound.Max.Y() * 10000000)
	p.header.CenterLonE7 = int32(center.X() * 10000000)
	p.header.CenterLatE7 = int32(center.Y() * 10000000)
	p.header.MinZoom = uint8(minZoom)
	p.header.MaxZoom = uint8(maxZoom)
	p.header.CenterZoom = uint8(minZoom)

	return nil
}

func (p *pmtilesOutputter) Close() error {
	slog.Info("writing pmtiles archive", "tiles", p.tileset.GetCardinality())

	p.header.AddressedTilesCount = p.tileset.GetCardinality()
	p.header.TileEntriesCount = uint64(len(p.entries))
	p.header.TileContentsCount = uint64(len(p.offsetMap))

	defer p.outFile.Close()
	defer os.Remove(p.tileData.Name())

	rootBytes, leavesBytes, numLeaves := optimizeDirectories(p.entries, 16384-pmtiles.HeaderV3LenBytes, pmtiles.Gzip)
	if numLeaves > 0 {
		slog.Debug("pmtiles directories",
			"root_bytes", len(rootBytes),
			"leaves_bytes", len(leavesBytes),
			"num_leaves", numLeaves)
	}

	jsonMetadata := make(map[string]interface{})
	for _, k := range p.metadata.Keys() {
		v, _ := p.metadata.Get(k)
		jsonMetadata[k] = v
	}

	metadataBytes, err := pmtiles.SerializeMetadata(jsonMetadata, pmtiles.Gzip)
	if err != nil {
		return fmt.Errorf("error serializing pmtiles metadata: %w", err)
	}

	offset, err := p.tileData.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	p.header.InternalCompression = pmtiles.Gzip
	p.header.TileCompression = pmtiles.Gzip
	p.header.RootOffset = pmtiles.HeaderV3LenBytes
	p.header.RootLength = uint64(len(rootBytes))
	p.header.MetadataOffset = p.header.RootOffset + p.header.RootLength
	p.header.MetadataLength = uint64(len(metadataBytes))
	p.header.LeafDirectoryOffset = p.header.MetadataOffset + p.header.MetadataLength
	p.header.LeafDirectoryLength = uint64(len(leavesBytes))
	p.header.TileDataOffset = p.header.LeafDirectoryOffset + p.header.LeafDirectoryLength
	p.header.TileDataLength = uint64(offset)

	headerBytes := pmtiles.SerializeHeader(p.header)

	for _, chunk := range [][]byte{headerBytes, rootBytes, metadataBytes, leavesBytes} {
		if _, err := p.outFile.Write(chunk); err != nil {
			return fmt.Errorf("error writing pmtiles section: %w", err)
		}
	}

	if _, err := p.tileData.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking to start of tile data: %w", err)
	}

	if _, err := io.Copy(p.outFile, p.tileData); err != nil {
		return fmt.Errorf("error copying tile data to outfile: %w", err)
	}

	return nil
}

// optimizeDirectories packs entries into a root directory small enough to
// ride along with the header, spilling to leaf directories when needed.
func optimizeDirectories(entries []pmtiles.EntryV3, targetRootLen int, compression pmtiles.Compression) ([]byte, []byte, int) {
	if len(entries) < 16384 {
		testRootBytes := pmtiles.SerializeEntries(entries, compression)
		if len(testRootBytes) <= targetRootLen {
			return testRootBytes, make([]byte, 0), 0
		}
	}

	// Iterate on the leaf size until the root of leaf pointers fits.
	leafSize := float32(len(entries)) / 3500
	if leafSize < 4096 {
		leafSize = 4096
	}

	for {
		rootBytes, leavesBytes, numLeaves := buildRootsLeaves(entries, int(leafSize), compression)
		if len(rootBytes) <= targetRootLen {
			return rootBytes, leavesBytes, numLeaves
		}
		leafSize *= 1.2
	}
}

func buildRootsLeaves(entries []pmtiles.EntryV3, leafSize int, compression pmtiles.Compression) ([]byte, []byte, int) {
	rootEntries := make([]pmtiles.EntryV3, 0)
	leavesBytes := make([]byte, 0)
	numLeaves := 0

	for i := 0; i < len(entries); i += leafSize {
		numLeaves++
		end := i + leafSize
		if end > len(entries) {
			end = len(entries)
		}
		serialized := pmtiles.SerializeEntries(entries[i:end], compression)

		rootEntries = append(rootEntries, pmtiles.EntryV3{
			TileID:    entries[i].TileID,
			Offset:    uint64(len(leavesBytes)),
			Length:    uint32(len(serialized)),
			RunLength: 0,
		})
		leavesBytes = append(leavesBytes, serialized...)
	}

	rootBytes := pmtiles.SerializeEntries(rootEntries, compression)
	return rootBytes, leavesBytes, numLeaves
}
