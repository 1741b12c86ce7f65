package main

import (
	"flag"
	"log"
	gohttp "net/http"
	"os"
	"time"

	"github.com/aaronland/go-string/random"

	"github.com/tilefetch/go-tilefetch/http"
	"github.com/tilefetch/go-tilefetch/tilefetch"
)

func loggingMiddleware(logger *log.Logger, instance string) func(gohttp.Handler) gohttp.Handler {
	return func(next gohttp.Handler) gohttp.Handler {
		return gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
			defer func() {
				logger.Println(instance, r.Method, r.URL.Path, r.RemoteAddr, r.UserAgent())
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func main() {
	mbtilesFile := flag.String("input", "", "The name of the mbtiles file to serve from. May be an http(s) URL, in which case the archive is read over range requests.")
	addr := flag.String("listen", ":8080", "The address and port to listen on")
	flag.Parse()

	logger := log.New(os.Stdout, "http: ", log.LstdFlags)

	if *mbtilesFile == "" {
		logger.Fatal("Need to provide --input parameter")
	}

	reader, err := tilefetch.NewMbtilesReader(*mbtilesFile)
	if err != nil {
		logger.Fatalf("Couldn't open mbtiles archive, %v", err)
	}
	defer reader.Close()

	// Tag log lines with a per-process id so multiple instances behind a
	// balancer can be told apart.
	opts := random.DefaultOptions()
	opts.Length = 8
	opts.AlphaNumeric = true
	instance, err := random.String(opts)
	if err != nil {
		logger.Fatalf("Couldn't generate instance id, %v", err)
	}

	tilesHandler := http.TilesHandler(reader)

	router := gohttp.NewServeMux()
	router.Handle("/tiles/", tilesHandler)
	router.HandleFunc("/", defaultHandler)

	server := &gohttp.Server{
		Addr:         *addr,
		Handler:      loggingMiddleware(logger, instance)(router),
		ErrorLog:     logger,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	logger.Printf("instance %s listening on %s", instance, *addr)
	if err := server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		logger.Fatalf("Could not listen on %s: %v\n", *addr, err)
	}
}

func defaultHandler(w gohttp.ResponseWriter, r *gohttp.Request) {
	gohttp.NotFound(w, r)
}
