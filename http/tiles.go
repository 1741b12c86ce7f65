package http

import (
	"fmt"
	"log/slog"
	gohttp "net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"

	"github.com/tilefetch/go-tilefetch/tilefetch"
)

var tilePathRegex = regexp.MustCompile(`/tiles/(\d+)/(\d+)/(\d+)\.(\w+)$`)

// TilesHandler serves /tiles/{z}/{x}/{y}.{ext} requests out of an mbtiles
// reader.
func TilesHandler(reader tilefetch.MbtilesReader) gohttp.HandlerFunc {
	return func(w gohttp.ResponseWriter, r *gohttp.Request) {
		requestedTile, format, err := parseTileFromPath(r.URL.Path)
		if err != nil {
			gohttp.NotFound(w, r)
			return
		}

		data, err := reader.GetTile(requestedTile)
		if err != nil {
			if err != tilefetch.ErrTileNotFound {
				slog.Error("error getting tile", "tile", requestedTile, "error", err)
			}
			gohttp.NotFound(w, r)
			return
		}

		switch format {
		case "mvt", "pbf":
			// Vector archives usually hold gzipped payloads; pass them
			// through when the client can take them.
			if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				w.Header().Set("Content-Encoding", "gzip")
			} else {
				slog.Warn("requester doesn't accept gzip but archive payloads are gzipped")
			}
			w.Header().Set("Content-Type", "application/x-protobuf")
		default:
			w.Header().Set("Content-Type", "image/"+format)
		}

		w.Write(data)
	}
}

func parseTileFromPath(url string) (tilefetch.TileID, string, error) {
	match := tilePathRegex.FindStringSubmatch(url)
	if match == nil {
		return tilefetch.TileID{}, "", fmt.Errorf("invalid tile path")
	}

	z, _ := strconv.ParseUint(match[1], 10, 32)
	x, _ := strconv.ParseUint(match[2], 10, 32)
	y, _ := strconv.ParseUint(match[3], 10, 32)

	id := tilefetch.NewTileID(uint32(x), uint32(y), maptile.Zoom(z), tilefetch.SchemeXYZ)
	return id, match[4], nil
}
