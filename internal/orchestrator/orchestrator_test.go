package orchestrator

import (
	"fmt"
	"testing"

	"github.com/pspoerri/tinmesh/internal/blobstore"
	"github.com/pspoerri/tinmesh/internal/meshio"
	"github.com/pspoerri/tinmesh/internal/rasterio"
	"github.com/pspoerri/tinmesh/internal/tinlog"
)

func TestComputeTileSideShrinksWithSmallerBudget(t *testing.T) {
	big := ComputeTileSide(1024 * 1024 * 1024)
	small := ComputeTileSide(1024 * 1024)
	if small >= big {
		t.Errorf("ComputeTileSide(1MB)=%d should be smaller than ComputeTileSide(1GB)=%d", small, big)
	}
	if got := ComputeTileSide(0); got <= 0 {
		t.Errorf("ComputeTileSide(0) = %d, want a positive default-budget side", got)
	}
}

func TestRefineFlatRasterSingleTile(t *testing.T) {
	src := rasterio.Flat(8, 8, 42)
	store, err := blobstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	opts := Options{EpsPercent: 1, MemoryBudgetBytes: 64 * 1024 * 1024, Delaunay: true}
	summary, err := Refine(src, store, "flat.mesh", opts, nil, tinlog.New(false))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if summary.TileCount != 1 {
		t.Fatalf("a flat 8x8 raster under a 64MB budget should need exactly 1 tile, got %d", summary.TileCount)
	}
	// A perfectly flat raster should settle with no splits: two triangles,
	// four vertices.
	if summary.TotalTriangles != 2 {
		t.Errorf("TotalTriangles = %d, want 2 for a flat raster", summary.TotalTriangles)
	}

	r, err := store.Open("flat.mesh")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	md, err := meshio.Load(r)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(md.Tiles) != 1 {
		t.Fatalf("Load got %d tiles, want 1", len(md.Tiles))
	}
	if len(md.Tiles[0].Triangles) != 2 {
		t.Errorf("loaded tile has %d triangles, want 2", len(md.Tiles[0].Triangles))
	}
}

func TestRefineSingleNoDataCell(t *testing.T) {
	// Planar rather than Flat: a flat raster has minZ==maxZ, which drives
	// eps to exactly zero, so any deviation at all (including the min-1
	// value the nodata cell takes with UseNoData) forces a split. Planar
	// has a real elevation range, so eps stays positive and the nodata cell
	// is the only thing under test.
	for _, useNoData := range []bool{false, true} {
		t.Run(fmt.Sprintf("UseNoData=%v", useNoData), func(t *testing.T) {
			src := rasterio.Planar(8, 8).WithNoData(4, 4)
			store, err := blobstore.NewLocalStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewLocalStore: %v", err)
			}

			opts := Options{EpsPercent: 1, MemoryBudgetBytes: 64 * 1024 * 1024, Delaunay: true, UseNoData: useNoData}
			summary, err := Refine(src, store, "nodata.mesh", opts, nil, tinlog.New(false))
			if err != nil {
				t.Fatalf("Refine: %v", err)
			}
			if summary.TotalTriangles == 0 {
				t.Errorf("TotalTriangles = 0, want a refined mesh")
			}

			r, err := store.Open("nodata.mesh")
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer r.Close()
			md, err := meshio.Load(r)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(md.Tiles) != 1 {
				t.Fatalf("Load got %d tiles, want 1", len(md.Tiles))
			}
			for _, v := range md.Tiles[0].Points {
				if v.Row == 4 && v.Col == 4 && !useNoData {
					t.Errorf("nodata cell (4,4) surfaced as a vertex with UseNoData=false")
				}
			}
		})
	}
}

// boundaryAt collects every vertex of td lying on grid column col, the set
// a neighbouring tile sharing that column (via the overlapping tile stride)
// must reproduce identically for a seam to be consistent (P4).
func boundaryAt(td *meshio.TileData, col int32) []meshio.Vertex {
	var out []meshio.Vertex
	for _, v := range td.Points {
		if v.Col == col {
			out = append(out, v)
		}
	}
	return out
}

type rowZ struct {
	row int32
	z   float64
}

func sameRowZSet(a, b []meshio.Vertex) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[rowZ]int, len(a))
	for _, v := range a {
		seen[rowZ{v.Row, v.Z}]++
	}
	for _, v := range b {
		key := rowZ{v.Row, v.Z}
		if seen[key] == 0 {
			return false
		}
		seen[key]--
	}
	return true
}

func TestRefineTileSeamBoundaryPointsMatch(t *testing.T) {
	// 4 rows keeps every tile in a single row band (tilesDown==1) so the
	// only seams produced are vertical, between horizontally adjacent
	// tiles; 10 columns under a budget that forces tileSide==5 (stride==4)
	// splits that row band into three tiles, giving two seams to check.
	src := rasterio.Planar(4, 10)
	store, err := blobstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	opts := Options{EpsPercent: 1, MemoryBudgetBytes: 5000, Delaunay: true}
	summary, err := Refine(src, store, "seam.mesh", opts, nil, tinlog.New(false))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if summary.TileCount < 2 {
		t.Fatalf("expected at least 2 tiles to exercise a seam, got %d", summary.TileCount)
	}

	r, err := store.Open("seam.mesh")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	md, err := meshio.Load(r)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var seams int
	for _, a := range md.Tiles {
		for _, b := range md.Tiles {
			if a.IOffset != b.IOffset || a.JOffset+a.NCols-1 != b.JOffset {
				continue
			}
			seamCol := a.JOffset + a.NCols - 1
			aSeam := boundaryAt(a, seamCol)
			bSeam := boundaryAt(b, seamCol)
			if len(aSeam) == 0 {
				t.Errorf("tile at (%d,%d) has no vertices on its own right edge (col %d)", a.IOffset, a.JOffset, seamCol)
				continue
			}
			seams++
			if !sameRowZSet(aSeam, bSeam) {
				t.Errorf("seam at col %d: tile (%d,%d)'s boundary %v does not match tile (%d,%d)'s boundary %v",
					seamCol, a.IOffset, a.JOffset, aSeam, b.IOffset, b.JOffset, bSeam)
			}
		}
	}
	if seams == 0 {
		t.Fatalf("no horizontally adjacent tile pair found sharing a seam column")
	}
}

func TestRefineMultiTileConeProducesMultipleTiles(t *testing.T) {
	src := rasterio.Cone(40, 40, 20, 20, 100)
	store, err := blobstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	// A tiny memory budget forces a tile side far smaller than the raster,
	// exercising the multi-tile replay path (C6 steps 4-5).
	opts := Options{EpsPercent: 2, MemoryBudgetBytes: 4096, Delaunay: true}
	summary, err := Refine(src, store, "cone.mesh", opts, nil, tinlog.New(false))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if summary.TileCount <= 1 {
		t.Fatalf("expected multiple tiles under a tiny memory budget, got %d", summary.TileCount)
	}

	r, err := store.Open("cone.mesh")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	md, err := meshio.Load(r)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(md.Tiles) != int(summary.TileCount) {
		t.Errorf("Load got %d tiles, summary reported %d", len(md.Tiles), summary.TileCount)
	}
	for i, td := range md.Tiles {
		if len(td.Triangles) == 0 {
			t.Errorf("tile %d decoded with 0 triangles", i)
		}
	}
}
