// Command tininfo inspects a finished mesh file written by tinrefine,
// printing the global header and the total triangle/point counts (and each
// tile's counts with -detail), the read-side counterpart to tinrefine's
// write path.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pspoerri/tinmesh/internal/blobstore"
	"github.com/pspoerri/tinmesh/internal/meshio"
)

func main() {
	var (
		dir    = flag.String("dir", ".", "directory containing the mesh file")
		name   = flag.String("file", "", "mesh file name")
		detail = flag.Bool("detail", false, "print every tile's header, not just totals")
	)
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: tininfo -file mesh.bin [-dir .] [-detail]")
		os.Exit(2)
	}

	store, err := blobstore.NewLocalStore(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tininfo: %v\n", err)
		os.Exit(1)
	}

	r, err := store.Open(*name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tininfo: %v\n", err)
		os.Exit(1)
	}
	defer r.Close()

	md, err := meshio.Load(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tininfo: %v\n", err)
		os.Exit(1)
	}

	h := md.Header
	fmt.Printf("raster: %dx%d, origin (%.2f, %.2f), cell size %.4f\n", h.Rows, h.Cols, h.OriginX, h.OriginY, h.CellSize)
	fmt.Printf("elevation range [%.2f, %.2f], nodata %.2f\n", h.MinZ, h.MaxZ, h.NoData)
	fmt.Printf("tiles: %d, tile side %d\n", h.TileCount, h.TileSide)

	var totalTris, totalPoints int
	for i, td := range md.Tiles {
		totalTris += len(td.Triangles)
		totalPoints += len(td.Points)
		if *detail {
			fmt.Printf("tile %d: offset (%d,%d), size %dx%d, %d triangles, %d points\n",
				i, td.IOffset, td.JOffset, td.NRows, td.NCols, len(td.Triangles), len(td.Points))
		}
	}
	fmt.Printf("totals: %d triangles, %d points\n", totalTris, totalPoints)
}
