package tilefetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3" // Register sqlite3 database driver
	"github.com/paulmach/orb/maptile"
	"github.com/psanford/sqlite3vfs"
	"github.com/psanford/sqlite3vfshttp"
)

// ErrTileNotFound is returned by MbtilesReader.GetTile when the archive
// has no row for the requested tile.
var ErrTileNotFound = errors.New("tile not found in archive")

// MbtilesReader reads tiles out of an mbtiles (sqlite) archive.
type MbtilesReader interface {
	Close() error
	GetTile(id TileID) ([]byte, error)
	Metadata() (*MbtilesMetadata, error)
	VisitAllTiles(visitor func(TileID, []byte)) error
}

// remoteVFSCount distinguishes VFS registrations: sqlite resolves a VFS by
// name, and each registered HttpVFS is pinned to one URL.
var remoteVFSCount uint64

func nextRemoteVFSName() string {
	return fmt.Sprintf("httpvfs-%d", atomic.AddUint64(&remoteVFSCount, 1))
}

// NewMbtilesReader opens a local mbtiles file, or a remote one over HTTP
// range requests when dsn starts with http(s)://.
func NewMbtilesReader(dsn string) (MbtilesReader, error) {
	if strings.HasPrefix(dsn, "http") {
		vfs := sqlite3vfshttp.HttpVFS{URL: dsn}

		vfsName := nextRemoteVFSName()
		if err := sqlite3vfs.RegisterVFS(vfsName, &vfs); err != nil {
			return nil, err
		}

		// The file name is ignored by the http VFS.
		db, err := sql.Open("sqlite3", fmt.Sprintf("remote.db?vfs=%s&mode=ro", vfsName))
		if err != nil {
			return nil, err
		}
		return &mbtilesReader{db: db}, nil
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	return &mbtilesReader{db: db}, nil
}

// NewMbtilesReaderWithDatabase wraps an already opened sqlite handle.
func NewMbtilesReaderWithDatabase(db *sql.DB) (MbtilesReader, error) {
	return &mbtilesReader{db: db}, nil
}

type mbtilesReader struct {
	db *sql.DB
}

// Close gracefully tears down the mbtiles connection.
func (o *mbtilesReader) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}

// GetTile returns data for the given tile, or ErrTileNotFound. The lookup
// flips to the south-counted rows mbtiles archives store.
func (o *mbtilesReader) GetTile(id TileID) ([]byte, error) {
	var data []byte

	result := o.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level=? AND tile_column=? AND tile_row=? LIMIT 1",
		id.Z, id.X, id.tmsRow())

	if err := result.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTileNotFound
		}
		return nil, err
	}

	return data, nil
}

// Metadata returns the archive's metadata table as key/value pairs.
func (o *mbtilesReader) Metadata() (*MbtilesMetadata, error) {
	rows, err := o.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		kv[name] = value
	}

	return NewMbtilesMetadata(kv), rows.Err()
}

// VisitAllTiles runs the given function on all tiles in this archive.
func (o *mbtilesReader) VisitAllTiles(visitor func(TileID, []byte)) error {
	rows, err := o.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var x, y uint32
		var z maptile.Zoom
		data := []byte{}
		if err := rows.Scan(&z, &x, &y, &data); err != nil {
			slog.Warn("couldn't scan tile row", "error", err)
			continue
		}

		visitor(NewTileID(x, y, z, SchemeTMS), data)
	}

	return rows.Err()
}

// MbtilesFileSource serves fetches out of an mbtiles archive. Targets are
// "z/x/y" paths, as produced by XYZResolver with a "{z}/{x}/{y}" dataset
// template.
type MbtilesFileSource struct {
	reader MbtilesReader
}

func NewMbtilesFileSource(reader MbtilesReader) *MbtilesFileSource {
	return &MbtilesFileSource{reader: reader}
}

func (s *MbtilesFileSource) Issue(target string, respond func(Response)) RequestHandle {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		id, err := ParseTilePath(target)

		var data []byte
		if err == nil {
			data, err = s.reader.GetTile(id)
		}

		if ctx.Err() != nil {
			return
		}

		if err != nil {
			respond(Response{Err: err.Error()})
			return
		}
		respond(Response{Data: data})
	}()

	return &cancelHandle{cancel: cancel}
}
