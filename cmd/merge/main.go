package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/tilefetch/go-tilefetch/tilefetch"
)

func pathExists(path string) bool {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return true
}

func main() {
	outputFilename := flag.String("output", "", "The output mbtiles to write to")
	flag.Parse()
	inputFilenames := flag.Args()

	if *outputFilename == "" {
		log.Fatalf("Must specify --output path")
	}

	if len(inputFilenames) == 0 {
		log.Fatalf("Must specify at least one input path")
	}

	log.Printf("Reading %s and writing them to %s", strings.Join(inputFilenames, ", "), *outputFilename)

	// If the output file exists already we shouldn't overwrite it
	if pathExists(*outputFilename) {
		log.Fatalf("Output path %s already exists and cannot be overwritten", *outputFilename)
	}

	outputMbtiles, err := tilefetch.NewMbtilesOutputter(*outputFilename, 0, nil)
	if err != nil {
		log.Fatalf("Couldn't create output mbtiles: %+v", err)
	}

	if err := outputMbtiles.CreateTiles(); err != nil {
		log.Fatalf("Couldn't create output mbtiles: %+v", err)
	}

	for _, inputFilename := range inputFilenames {
		mbtilesReader, err := tilefetch.NewMbtilesReader(inputFilename)
		if err != nil {
			log.Fatalf("Couldn't read input mbtiles %s: %+v", inputFilename, err)
		}

		err = mbtilesReader.VisitAllTiles(func(id tilefetch.TileID, data []byte) {
			if err := outputMbtiles.Save(id, data); err != nil {
				log.Printf("Couldn't save tile %s: %+v", id, err)
			}
		})
		if err != nil {
			log.Fatalf("Couldn't read tiles from %s: %+v", inputFilename, err)
		}
		mbtilesReader.Close()
	}

	if err := outputMbtiles.Close(); err != nil {
		log.Fatalf("Couldn't close output mbtiles: %+v", err)
	}
}
