// Command tinrefine reads a single-band elevation raster and writes a
// tiled, error-bounded triangulated irregular network mesh file, per
// spec.md §6's refine(raster, eps, use_nodata) operation. Flag layout and
// the closing settings/summary print follow the teacher's own
// cmd/geotiff2pmtiles/main.go.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pspoerri/tinmesh/internal/blobstore"
	"github.com/pspoerri/tinmesh/internal/orchestrator"
	"github.com/pspoerri/tinmesh/internal/rasterio"
	"github.com/pspoerri/tinmesh/internal/tinlog"
	"github.com/pspoerri/tinmesh/internal/tinmetrics"
)

func main() {
	var (
		input        = flag.String("input", "", "path to a single-band elevation GeoTIFF")
		output       = flag.String("output", "", "name of the mesh file to write")
		outDir       = flag.String("out-dir", ".", "local directory to write output into (ignored with -azure-conn)")
		azureConn    = flag.String("azure-conn", "", "Azure Storage connection string; when set, output is written to Azure Blob instead of local disk")
		azureContainer = flag.String("azure-container", "", "Azure Blob container name, required with -azure-conn")
		epsPercent   = flag.Float64("eps", 1.0, "maximum approximation error, as a percentage of the raster's elevation range")
		useNoData    = flag.Bool("use-nodata", false, "map nodata samples to (min-1) instead of discarding them")
		noDelaunay   = flag.Bool("no-delaunay", false, "disable the Delaunay-enforcing edge-flip cascade")
		memBudgetMB  = flag.Int64("mem-budget-mb", 256, "approximate per-tile memory budget in megabytes")
		cacheMB      = flag.Int64("cache-mb", 0, "ristretto read-through cache size in megabytes, 0 disables caching")
		metricsAddr  = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090) until the run completes")
		verbose      = flag.Bool("verbose", false, "log progress per tile")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: tinrefine -input DEM.tif -output mesh.bin [flags]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *input == "" || *output == "" {
		flag.Usage()
		os.Exit(2)
	}

	log := tinlog.New(*verbose)

	src, err := rasterio.OpenGeoTIFF(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tinrefine: opening %s: %v\n", *input, err)
		os.Exit(1)
	}

	var store blobstore.Store
	if *azureConn != "" {
		if *azureContainer == "" {
			fmt.Fprintln(os.Stderr, "tinrefine: -azure-container is required with -azure-conn")
			os.Exit(2)
		}
		azureStore, err := blobstore.NewAzureStore(*azureConn, *azureContainer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tinrefine: %v\n", err)
			os.Exit(1)
		}
		store = azureStore
	} else {
		localStore, err := blobstore.NewLocalStore(*outDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tinrefine: %v\n", err)
			os.Exit(1)
		}
		store = localStore
	}
	if *cacheMB > 0 {
		cached, err := blobstore.NewCachedStore(store, *cacheMB*1024*1024)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tinrefine: %v\n", err)
			os.Exit(1)
		}
		store = cached
	}

	reg := prometheus.NewRegistry()
	metrics := tinmetrics.New(reg)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			log.Infof("tinrefine: serving metrics on %s", *metricsAddr)
			_ = srv.ListenAndServe()
		}()
	}

	// A per-run identifier, logged with the input path so this run's log
	// lines can be told apart from other runs'. Shard file names do not
	// include it.
	runID := uuid.NewString()
	log.Infof("tinrefine: run %s, input %s, eps %.3f%%", runID, *input, *epsPercent)

	rows, cols := src.Dims()
	minZ, maxZ := src.MinMax()
	log.Infof("tinrefine: raster %dx%d, elevation range [%.2f, %.2f]", rows, cols, minZ, maxZ)

	opts := orchestrator.Options{
		EpsPercent:        *epsPercent,
		MemoryBudgetBytes: *memBudgetMB * 1024 * 1024,
		UseNoData:         *useNoData,
		Delaunay:          !*noDelaunay,
		Verbose:           *verbose,
	}

	summary, err := orchestrator.Refine(src, store, *output, opts, metrics, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tinrefine: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s: %d tiles (side %d), %d triangles, %d points\n",
		*output, summary.TileCount, summary.TileSide, summary.TotalTriangles, summary.TotalPoints)
}
