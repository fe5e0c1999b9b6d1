// Package orchestrator implements the tile driver (spec.md's C6): it walks
// a raster row-major tile by tile, materialising each tile's sample shard,
// constructing its initial two-triangle mesh with corners shared by value
// with its neighbours, replaying each already-refined neighbour's shared
// boundary vertices into this tile's own private arena, running
// internal/refine to completion, and serialising the result through
// internal/meshio before moving to the next tile. Grounded on tileLoop and
// getTileLength in refine_tin.c, adapted from that tool's fixed-size
// in-memory arrays to this module's per-tile, GC-freed mesh.Arena.
package orchestrator

import (
	"fmt"
	"math"

	"github.com/pspoerri/tinmesh/internal/blobstore"
	"github.com/pspoerri/tinmesh/internal/mesh"
	"github.com/pspoerri/tinmesh/internal/meshio"
	"github.com/pspoerri/tinmesh/internal/rasterio"
	"github.com/pspoerri/tinmesh/internal/refine"
	"github.com/pspoerri/tinmesh/internal/tilemesh"
	"github.com/pspoerri/tinmesh/internal/tinlog"
	"github.com/pspoerri/tinmesh/internal/tinmetrics"
)

// Options configures one end-to-end refinement run.
type Options struct {
	// EpsPercent is the maximum acceptable approximation error, expressed
	// as a percentage of the raster's elevation range (max-min), per
	// spec.md §6's refine(...) contract.
	EpsPercent float64
	// MemoryBudgetBytes bounds the working set ComputeTileSide sizes tiles
	// against. Zero selects DefaultMemoryBudget.
	MemoryBudgetBytes int64
	// UseNoData maps nodata samples to (min-1) instead of discarding them,
	// per spec.md's use_nodata flag.
	UseNoData bool
	// Delaunay enables the Delaunay-enforcing edge-flip cascade after every
	// split; disabling it yields a plain greedy split refinement.
	Delaunay bool
	Verbose  bool
}

// DefaultMemoryBudget is used when Options.MemoryBudgetBytes is zero or
// negative, a conservative default comparable to the teacher's own
// ComputeMemoryLimit fallback (internal/tile/memlimit.go).
const DefaultMemoryBudget int64 = 256 * 1024 * 1024

// Per-element working-set costs the tile-sizing formula divides the memory
// budget by, grounded on sizeof(TRIANGLE)+sizeof(PQ_elemType)+sizeof(R_POINT)
// in tin.c's getTileLength: three live arrays sized to roughly the same
// vertex count, each contributing its own per-element footprint.
const (
	triangleBytes = 56 // 3 PointID + 3 TriangleHandle + bucket pointer + state/heap fields
	heapSlotBytes = 16 // TriangleHandle + float64 error key
	pointBytes    = 16 // two int32 + float64
)

// ComputeTileSide picks a square tile side length TL such that
// 2*TL*TL*(triangleBytes+heapSlotBytes+pointBytes) fits in memBytes — the
// same "solve for TL" shape as getTileLength's
// TL = sqrt(MEM*1048576/(2*(sizeof(TRIANGLE)+sizeof(PQelement)+sizeof(R_POINT))))),
// generalized from "a fraction of system RAM in MB" to an explicit byte
// budget the caller already computed however it likes.
func ComputeTileSide(memBytes int64) int32 {
	if memBytes <= 0 {
		memBytes = DefaultMemoryBudget
	}
	perPoint := 2.0 * float64(triangleBytes+heapSlotBytes+pointBytes)
	tl := math.Sqrt(float64(memBytes) / perPoint)
	if tl < 2 {
		tl = 2
	}
	return int32(tl)
}

// Summary reports the totals accumulated over an entire run, useful for
// tinmetrics and for a CLI's closing log line.
type Summary struct {
	TileCount      int32
	TotalTriangles int32
	TotalPoints    int32
	TileSide       int32
}

// Refine drives the full tiled refinement of src, writing the finished mesh
// file to outName in store. It is the operation spec.md §6 names
// refine(raster, eps, use_nodata) -> mesh file.
func Refine(src rasterio.RasterSource, store blobstore.Store, outName string, opts Options, metrics *tinmetrics.Metrics, log *tinlog.Logger) (Summary, error) {
	if log == nil {
		log = tinlog.New(opts.Verbose)
	}
	rows, cols := src.Dims()
	minZ, maxZ := src.MinMax()
	epsPercent := opts.EpsPercent
	if epsPercent <= 0 {
		epsPercent = 1.0
	}
	eps := epsPercent * (maxZ - minZ) / 100

	tileSide := ComputeTileSide(opts.MemoryBudgetBytes)
	// Tiles overlap by exactly one row/column, mirroring getTileLength's
	// callers in refine_tin.c (jNumTiles = ceil(ncols/(TL-1)), startJ =
	// (TL-1)*j): the shared row/column is what lets replayBoundary locate a
	// neighbour's boundary vertex inside this tile's own rectangle at all. A
	// non-overlapping, tileSide-wide stride would place every boundary vertex
	// exactly one column outside the next tile, and every replay would miss.
	stride := tileSide - 1
	tilesDown := int((int32(rows) + stride - 1) / stride)
	tilesAcross := int((int32(cols) + stride - 1) / stride)

	log.Infof("orchestrator: %dx%d raster, tile side %d -> %d x %d tiles", rows, cols, tileSide, tilesDown, tilesAcross)

	w, err := store.Create(outName)
	if err != nil {
		return Summary{}, fmt.Errorf("orchestrator: creating output %s: %w", outName, err)
	}
	defer w.Close()

	sum := Summary{TileCount: int32(tilesDown * tilesAcross), TileSide: tileSide}
	if err := meshio.WriteGlobalHeader(w, meshio.GlobalHeader{
		Cols: int32(cols), Rows: int32(rows),
		OriginX: src.GeoTransform().OriginX, OriginY: src.GeoTransform().OriginY,
		CellSize:  src.GeoTransform().PixelSizeX,
		TileCount: sum.TileCount, TileSide: tileSide,
		MinZ: minZ, MaxZ: maxZ, NoData: src.NoData(),
	}); err != nil {
		return Summary{}, err
	}

	// topBoundaries[c] holds the previous row's tile-(·, c) bottom-boundary
	// points, retained by value after that tile's arena went out of scope;
	// they seed the replay step for this row's tile-(r, c).
	topBoundaries := make([][]mesh.Point, tilesAcross)
	var leftBoundary []mesh.Point

	for r := 0; r < tilesDown; r++ {
		leftBoundary = nil
		for c := 0; c < tilesAcross; c++ {
			iOffset := int32(r) * stride
			jOffset := int32(c) * stride
			nrows := minInt32(tileSide, int32(rows)-iOffset)
			ncols := minInt32(tileSide, int32(cols)-jOffset)

			shardName := fmt.Sprintf("%s.tile-%d-%d.shard", outName, r, c)
			built := materializeShard(src, iOffset, jOffset, nrows, ncols, opts.UseNoData, minZ)
			if err := writeShard(store, shardName, built); err != nil {
				return Summary{}, err
			}

			// Stream the tile's samples back from the store rather than
			// reusing the in-memory shard: bucketing reads the shard the way
			// a later, separate process re-opening this tile's data would
			// have to, through the same blocking Open/ReadFrom path.
			sh, err := readShard(store, shardName, nrows, ncols)
			if err != nil {
				return Summary{}, err
			}

			tile := buildTile(src, iOffset, jOffset, nrows, ncols, opts.UseNoData)
			tile.NoData = minZ - 1
			tile.UseNoData = opts.UseNoData

			seedInterior(tile, sh, iOffset, jOffset, nrows, ncols, r > 0, c > 0, eps, log)

			replayBoundary(tile, leftBoundary, replayLeft, eps, opts.Delaunay, log)
			replayBoundary(tile, topBoundaries[c], replayTop, eps, opts.Delaunay, log)

			if err := refine.Run(tile, eps, opts.Delaunay, log); err != nil {
				return Summary{}, fmt.Errorf("orchestrator: refining tile (%d,%d): %w", r, c, err)
			}
			tile.SortBoundaries()

			numTris, numPoints, err := meshio.WriteTile(w, tile)
			if err != nil {
				return Summary{}, fmt.Errorf("orchestrator: serialising tile (%d,%d): %w", r, c, err)
			}
			sum.TotalTriangles += numTris
			sum.TotalPoints += numPoints
			if metrics != nil {
				metrics.ObserveTile(numTris, numPoints)
			}

			leftBoundary = pointsOf(tile, tile.RightBoundary)
			topBoundaries[c] = pointsOf(tile, tile.BottomBoundary)

			log.Infof("orchestrator: tile (%d,%d) done: %d triangles, %d points", r, c, numTris, numPoints)
		}
	}

	return sum, nil
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func pointsOf(t *tilemesh.Tile, ids []mesh.PointID) []mesh.Point {
	pts := make([]mesh.Point, len(ids))
	for i, id := range ids {
		pts[i] = t.Arena.Point(id)
	}
	return pts
}
