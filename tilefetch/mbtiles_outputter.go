package tilefetch

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // Register sqlite3 database driver
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const defaultBatchSize = 1000

// NewMbtilesOutputter creates an outputter writing an mbtiles archive at
// dsn. Rows are committed in batches of batchSize (a default is applied
// when <= 0).
func NewMbtilesOutputter(dsn string, batchSize int, metadata *MbtilesMetadata) (*mbtilesOutputter, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	if metadata == nil {
		metadata = NewMbtilesMetadata(map[string]string{})
	}

	return &mbtilesOutputter{
		db:        db,
		batchSize: batchSize,
		metadata:  metadata,
	}, nil
}

type mbtilesOutputter struct {
	db         *sql.DB
	txn        *sql.Tx
	batchSize  int
	batchCount int
	hasTiles   bool
	metadata   *MbtilesMetadata
}

func (o *mbtilesOutputter) Close() error {
	var err error

	if o.txn != nil {
		err = o.txn.Commit()
		o.txn = nil
	}

	if o.db != nil {
		if err2 := o.db.Close(); err2 != nil {
			err = err2
		}
	}

	return err
}

func (o *mbtilesOutputter) CreateTiles() error {
	if o.hasTiles {
		return nil
	}

	if _, err := o.db.Exec(`
		BEGIN TRANSACTION;
		CREATE TABLE IF NOT EXISTS map (
			zoom_level INTEGER NOT NULL,
			tile_column INTEGER NOT NULL,
			tile_row INTEGER NOT NULL,
			tile_id TEXT NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS map_index ON map (zoom_level, tile_column, tile_row);
		CREATE TABLE IF NOT EXISTS images (
			tile_data BLOB NOT NULL,
			tile_id TEXT NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS images_id ON images (tile_id);
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT,
			value TEXT
		);
		CREATE UNIQUE INDEX IF NOT EXISTS name ON metadata (name);
		CREATE VIEW IF NOT EXISTS tiles AS
		SELECT
			map.zoom_level AS zoom_level,
			map.tile_column AS tile_column,
			map.tile_row AS tile_row,
			images.tile_data AS tile_data
		FROM map
		JOIN images ON images.tile_id = map.tile_id;
		COMMIT;
	    PRAGMA synchronous=OFF;
	`); err != nil {
		return err
	}

	o.hasTiles = true
	return nil
}

// Save writes one tile, deduplicating payloads by md5 content hash. Rows
// are stored with south-counted rows per the mbtiles spec.
func (o *mbtilesOutputter) Save(id TileID, data []byte) error {
	if err := o.CreateTiles(); err != nil {
		return err
	}

	if o.txn == nil {
		tx, err := o.db.Begin()
		if err != nil {
			return err
		}
		o.txn = tx
	}

	hash := md5.Sum(data)
	tileID := hex.EncodeToString(hash[:])

	if _, err := o.txn.Exec("INSERT OR REPLACE INTO images (tile_id, tile_data) VALUES (?, ?);", tileID, data); err != nil {
		return err
	}

	if _, err := o.txn.Exec("INSERT OR REPLACE INTO map (zoom_level, tile_column, tile_row, tile_id) VALUES (?, ?, ?, ?);", id.Z, id.X, id.tmsRow(), tileID); err != nil {
		return err
	}

	o.batchCount++

	if o.batchCount%o.batchSize == 0 {
		if err := o.txn.Commit(); err != nil {
			return err
		}
		o.batchCount = 0
		o.txn = nil
	}

	return nil
}

// AssignSpatialMetadata writes bounds, center and zoom range into the
// metadata table, merged with any metadata supplied at construction.
func (o *mbtilesOutputter) AssignSpatialMetadata(bound orb.Bound, minZoom maptile.Zoom, maxZoom maptile.Zoom) error {
	if err := o.CreateTiles(); err != nil {
		return err
	}

	// Commit any pending tile batch so the metadata writes below don't
	// contend with its write lock.
	if o.txn != nil {
		if err := o.txn.Commit(); err != nil {
			return err
		}
		o.txn = nil
		o.batchCount = 0
	}

	center := bound.Center()

	o.metadata.Set("bounds", fmt.Sprintf("%f,%f,%f,%f", bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y()))
	o.metadata.Set("center", fmt.Sprintf("%f,%f", center.X(), center.Y()))
	o.metadata.Set("minzoom", fmt.Sprintf("%d", minZoom))
	o.metadata.Set("maxzoom", fmt.Sprintf("%d", maxZoom))

	for _, k := range o.metadata.Keys() {
		v, _ := o.metadata.Get(k)
		if _, err := o.db.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?);", k, v); err != nil {
			return err
		}
	}

	return nil
}
