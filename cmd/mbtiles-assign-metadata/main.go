package main

import (
	"flag"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/tilefetch/go-tilefetch/tilefetch"
)

func main() {
	var verify bool
	flag.BoolVar(&verify, "verify", false, "Verify that spatial metadata was written to each database")
	flag.Parse()

	for _, path := range flag.Args() {
		mbtilesReader, err := tilefetch.NewMbtilesReader(path)
		if err != nil {
			log.Fatalf("Couldn't read input mbtiles %s: %+v", path, err)
		}

		var bounds *orb.Bound
		minZoom := maptile.Zoom(20)
		maxZoom := maptile.Zoom(0)

		err = mbtilesReader.VisitAllTiles(func(id tilefetch.TileID, data []byte) {
			tb := id.Bound()

			if bounds == nil {
				bounds = &tb
			} else {
				tb = bounds.Union(tb)
				bounds = &tb
			}

			minZoom = min(minZoom, id.Z)
			maxZoom = max(maxZoom, id.Z)
		})

		if err != nil {
			log.Fatalf("Couldn't read tiles from %s: %+v", path, err)
		}

		mbtilesReader.Close()

		if bounds == nil {
			log.Fatalf("No tiles found in %s", path)
		}

		mbtilesWriter, err := tilefetch.NewMbtilesOutputter(path, 0, nil)
		if err != nil {
			log.Fatalf("Couldn't open %s for writing: %+v", path, err)
		}

		if err := mbtilesWriter.AssignSpatialMetadata(*bounds, minZoom, maxZoom); err != nil {
			log.Fatalf("Failed to assign spatial metadata to %s: %+v", path, err)
		}

		mbtilesWriter.Close()

		if verify {
			mbtilesReader, err := tilefetch.NewMbtilesReader(path)
			if err != nil {
				log.Fatalf("Couldn't read input mbtiles %s: %+v", path, err)
			}

			metadata, err := mbtilesReader.Metadata()
			if err != nil {
				log.Fatalf("Unable to read metadata for %s, %v", path, err)
			}

			bounds, err := metadata.Bounds()
			if err != nil {
				log.Fatalf("Failed to derive bounds metadata after update")
			}

			center, err := metadata.Center()
			if err != nil {
				log.Fatalf("Failed to derive center metadata after update")
			}

			minZoom, err := metadata.MinZoom()
			if err != nil {
				log.Fatalf("Failed to derive min zoom metadata after update")
			}

			maxZoom, err := metadata.MaxZoom()
			if err != nil {
				log.Fatalf("Failed to derive max zoom metadata after update")
			}

			mbtilesReader.Close()

			log.Printf("[%s] bounds: %v center: %v zoom: %d-%d\n", path, bounds, center, minZoom, maxZoom)
		}
	}
}
