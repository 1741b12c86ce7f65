package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/schollz/progressbar/v3"

	"github.com/tilefetch/go-tilefetch/tilefetch"
)

const saveLogInterval = 10000

type tileResult struct {
	id   tilefetch.TileID
	data []byte
}

func parseBounds(boundsStr string) (orb.Bound, error) {
	parts := strings.Split(boundsStr, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounding box string must be a comma-separated list of 4 numbers")
	}

	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bounding box string could not be parsed as numbers")
		}
		vals[i] = v
	}

	// south,west,north,east
	return orb.Bound{
		Min: orb.Point{vals[1], vals[0]},
		Max: orb.Point{vals[3], vals[2]},
	}, nil
}

var zoomRangeRegex = regexp.MustCompile(`^\d+\-\d+$`)

func parseZooms(zoomsStr string) ([]maptile.Zoom, error) {
	if zoomRangeRegex.MatchString(zoomsStr) {
		zoomRange := strings.Split(zoomsStr, "-")

		minZoom, err := strconv.ParseUint(zoomRange[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("failed to parse min zoom (%s): %w", zoomRange[0], err)
		}

		maxZoom, err := strconv.ParseUint(zoomRange[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("failed to parse max zoom (%s): %w", zoomRange[1], err)
		}

		if minZoom > maxZoom {
			return nil, fmt.Errorf("invalid zoom range")
		}

		zooms := make([]maptile.Zoom, 0, maxZoom-minZoom+1)
		for z := minZoom; z <= maxZoom; z++ {
			zooms = append(zooms, maptile.Zoom(z))
		}
		return zooms, nil
	}

	zoomsStrSplit := strings.Split(zoomsStr, ",")
	zooms := make([]maptile.Zoom, len(zoomsStrSplit))
	for i, zoomStr := range zoomsStrSplit {
		z, err := strconv.ParseUint(strings.TrimSpace(zoomStr), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("zoom list could not be parsed: %w", err)
		}
		zooms[i] = maptile.Zoom(z)
	}
	return zooms, nil
}

func processResults(waitGroup *sync.WaitGroup, results chan *tileResult, outputter tilefetch.TileOutputter, bar *progressbar.ProgressBar) {
	defer waitGroup.Done()

	start := time.Now()

	counter := 0
	for result := range results {
		if err := outputter.Save(result.id, result.data); err != nil {
			log.Printf("Couldn't save tile %s: %+v", result.id, err)
		}

		bar.Add(1)
		counter++

		if counter%saveLogInterval == 0 {
			duration := time.Since(start)
			start = time.Now()
			log.Printf("Saved %dk tiles (%0.1f tiles per second)", counter/1000, saveLogInterval/duration.Seconds())
		}
	}
	log.Printf("Saved %d tiles", counter)
}

func main() {
	sourceStr := flag.String("source", "http", "Where to fetch tiles from. Options are http, s3, mbtiles, file.")
	datasetStr := flag.String("dataset", "", "Dataset template to resolve fetch targets with. For http/file sources this is a URL or path template with {x} {y} {z} placeholders; for s3 it is a key template that may also use {l} and {h}.")
	outputMode := flag.String("output-mode", "mbtiles", "Valid modes are: disk, mbtiles, pmtiles.")
	outputDSN := flag.String("dsn", "", "Path, or DSN string, to output files.")
	formatStr := flag.String("format", "mvt", "(For disk output) File extension to write tiles with.")
	boundingBoxStr := flag.String("bounds", "-90.0,-180.0,90.0,180.0", "Comma-separated bounding box in south,west,north,east format. Defaults to the whole world.")
	zoomsStr := flag.String("zooms", "0-10", "Comma-separated list of zoom levels or a '{MIN_ZOOM}-{MAX_ZOOM}' range string.")
	schemeStr := flag.String("scheme", "xyz", "Tile row scheme: xyz or tms.")
	numWorkers := flag.Int("workers", 25, "Number of tiles to keep in flight at once.")
	requestTimeout := flag.Int("timeout", 60, "HTTP client timeout for tile requests, in seconds.")
	fileRoot := flag.String("file-root", "", "(For file source) The root directory tile paths resolve against.")
	bucketStr := flag.String("bucket", "", "(For s3 source) The name of the S3 bucket to fetch tiles from.")
	requesterPays := flag.Bool("requester-pays", false, "(For s3 source) Set the requester-pays flag on S3 requests.")
	layerNameStr := flag.String("layer-name", "", "(For s3 source) The layer name to use for hash building.")
	mbtilesInput := flag.String("mbtiles-input", "", "(For mbtiles source) The mbtiles archive to fetch tiles from.")
	cpuProfile := flag.String("cpuprofile", "", "Enables CPU profiling. Saves the dump to the given path.")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	if *outputDSN == "" {
		log.Fatalf("Output DSN (-dsn) is required")
	}

	if *datasetStr == "" {
		log.Fatalf("Dataset template (-dataset) is required")
	}

	bounds, err := parseBounds(*boundingBoxStr)
	if err != nil {
		log.Fatalf("Couldn't parse bounds: %+v", err)
	}

	zooms, err := parseZooms(*zoomsStr)
	if err != nil {
		log.Fatalf("Couldn't parse zooms: %+v", err)
	}

	scheme := tilefetch.SchemeXYZ
	switch *schemeStr {
	case "xyz":
	case "tms":
		scheme = tilefetch.SchemeTMS
	default:
		log.Fatalf("Unknown scheme %s", *schemeStr)
	}

	var resolver tilefetch.ResourceResolver = tilefetch.XYZResolver{}
	var source tilefetch.FileSource

	switch *sourceStr {
	case "http":
		source = tilefetch.NewHTTPFileSource(time.Duration(*requestTimeout) * time.Second)
	case "s3":
		if *bucketStr == "" {
			log.Fatalf("Bucket name is required")
		}
		if *layerNameStr != "" {
			resolver = tilefetch.HashPrefixResolver{Layer: *layerNameStr}
		}

		source, err = tilefetch.NewS3FileSource(*bucketStr, *requesterPays)
		if err != nil {
			log.Fatalf("Couldn't create S3 source: %+v", err)
		}
	case "mbtiles":
		if *mbtilesInput == "" {
			log.Fatalf("-mbtiles-input is required")
		}

		reader, err := tilefetch.NewMbtilesReader(*mbtilesInput)
		if err != nil {
			log.Fatalf("Couldn't open input mbtiles: %+v", err)
		}
		defer reader.Close()

		source = tilefetch.NewMbtilesFileSource(reader)
	case "file":
		if *fileRoot == "" {
			log.Fatalf("-file-root is required when using the file source")
		}

		source, err = tilefetch.NewLocalFileSource(*fileRoot)
		if err != nil {
			log.Fatalf("Couldn't create file source: %+v", err)
		}
	default:
		log.Fatalf("Unknown source type %s", *sourceStr)
	}

	var outputter tilefetch.TileOutputter
	var outputterErr error

	switch *outputMode {
	case "disk":
		outputter, outputterErr = tilefetch.NewDiskOutputter(*outputDSN, *formatStr)
	case "mbtiles":
		outputter, outputterErr = tilefetch.NewMbtilesOutputter(*outputDSN, 0, nil)
	case "pmtiles":
		outputter, outputterErr = tilefetch.NewPmtilesOutputter(*outputDSN, nil)
	default:
		log.Fatalf("Unknown outputter: %s", *outputMode)
	}

	if outputterErr != nil {
		log.Fatalf("Couldn't create %s output: %+v", *outputMode, outputterErr)
	}

	if err := outputter.CreateTiles(); err != nil {
		log.Fatalf("Failed to create %s output: %+v", *outputMode, err)
	}

	cover := tilefetch.CoverBounds(&tilefetch.CoverBoundsOptions{
		Bounds: bounds,
		Zooms:  zooms,
		Scheme: scheme,
	})

	log.Printf("Fetching %d tiles", len(cover))
	bar := progressbar.Default(int64(len(cover)))

	results := make(chan *tileResult, 2000)

	saveWG := &sync.WaitGroup{}
	saveWG.Add(1)
	go processResults(saveWG, results, outputter, bar)

	// Cap the number of tiles in flight; the transports fan out on their
	// own goroutines.
	sem := make(chan struct{}, *numWorkers)
	fetchWG := &sync.WaitGroup{}

	for _, id := range cover {
		sem <- struct{}{}
		fetchWG.Add(1)

		tile := tilefetch.NewBlobTile(id, resolver)
		tile.Initialize(id, *datasetStr, source, func() {
			if errStr := tile.Err(); errStr != "" {
				log.Printf("Skipping %s: %s", tile.ID(), errStr)
				bar.Add(1)
			} else {
				results <- &tileResult{id: tile.ID(), data: tile.Data()}
			}

			<-sem
			fetchWG.Done()
		})
	}

	fetchWG.Wait()
	close(results)
	saveWG.Wait()

	minZoom, maxZoom := zooms[0], zooms[0]
	for _, z := range zooms {
		if z < minZoom {
			minZoom = z
		}
		if z > maxZoom {
			maxZoom = z
		}
	}

	if err := outputter.AssignSpatialMetadata(bounds, minZoom, maxZoom); err != nil {
		log.Printf("Couldn't assign spatial metadata: %+v", err)
	}

	if err := outputter.Close(); err != nil {
		log.Printf("Error closing output: %+v", err)
	}

	log.Print("Finished processing tiles")
}
