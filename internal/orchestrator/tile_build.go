package orchestrator

import (
	"fmt"

	"github.com/pspoerri/tinmesh/internal/blobstore"
	"github.com/pspoerri/tinmesh/internal/geom"
	"github.com/pspoerri/tinmesh/internal/mesh"
	"github.com/pspoerri/tinmesh/internal/rasterio"
	"github.com/pspoerri/tinmesh/internal/refine"
	"github.com/pspoerri/tinmesh/internal/shard"
	"github.com/pspoerri/tinmesh/internal/tilemesh"
	"github.com/pspoerri/tinmesh/internal/tinlog"
)

// materializeShard reads one tile's rectangle out of src into a row-major
// in-memory shard, the step spec.md §6 calls "one pass over the raster,
// producing one shard per tile" — decoupling how much of the source raster
// the orchestrator must hold at once from the tile's own working set.
func materializeShard(src rasterio.RasterSource, iOffset, jOffset, nrows, ncols int32, useNoData bool, minZ float64) *shard.Shard {
	sh := shard.New(nrows, ncols)
	for row := int32(0); row < nrows; row++ {
		for col := int32(0); col < ncols; col++ {
			z, nodata := src.At(int(iOffset+row), int(jOffset+col))
			if nodata {
				sh.Set(row, col, mesh.NoDataZ)
				continue
			}
			sh.Set(row, col, int32(z))
		}
	}
	return sh
}

func writeShard(store blobstore.Store, name string, sh *shard.Shard) error {
	w, err := store.Create(name)
	if err != nil {
		return fmt.Errorf("orchestrator: creating shard %s: %w", name, err)
	}
	defer w.Close()
	if _, err := sh.WriteTo(w); err != nil {
		return fmt.Errorf("orchestrator: writing shard %s: %w", name, err)
	}
	return nil
}

// readShard streams a tile's sample block back from store, the blocking
// read spec.md §6 names as one of the two calls a tile's refinement ever
// blocks on (the other being the finished tile's own stream write).
func readShard(store blobstore.Store, name string, nrows, ncols int32) (*shard.Shard, error) {
	r, err := store.Open(name)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: opening shard %s: %w", name, err)
	}
	defer r.Close()
	sh := shard.New(nrows, ncols)
	if _, err := sh.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("orchestrator: reading shard %s: %w", name, err)
	}
	return sh, nil
}

// samplePoint reads a single raster cell as a mesh.Point. With useNoData a
// nodata cell gets minZ-1, as a bucketed sample does; without it the point
// keeps mesh.NoDataZ as its elevation, since a corner cannot be skipped the
// way a bucketed nodata sample is.
func samplePoint(src rasterio.RasterSource, row, col int32, useNoData bool, minZ float64) mesh.Point {
	z, nodata := src.At(int(row), int(col))
	if nodata {
		if useNoData {
			return mesh.Point{Row: row, Col: col, Z: minZ - 1}
		}
		return mesh.Point{Row: row, Col: col, Z: mesh.NoDataZ}
	}
	return mesh.Point{Row: row, Col: col, Z: z}
}

// buildTile constructs the tile's initial two-triangle mesh. Its four
// corners are recomputed directly from the raster rather than copied from a
// neighbour's arena: a corner is identified by value (its grid coordinate
// and elevation), never by a neighbour's now-gone PointID, so evaluating
// the same raster cell from either side yields an identical corner point.
func buildTile(src rasterio.RasterSource, iOffset, jOffset, nrows, ncols int32, useNoData bool) *tilemesh.Tile {
	minZ, _ := src.MinMax()

	corners := [4]mesh.Point{
		samplePoint(src, iOffset, jOffset, useNoData, minZ),                   // NW
		samplePoint(src, iOffset, jOffset+ncols-1, useNoData, minZ),          // NE
		samplePoint(src, iOffset+nrows-1, jOffset, useNoData, minZ),          // SW
		samplePoint(src, iOffset+nrows-1, jOffset+ncols-1, useNoData, minZ),  // SE
	}

	capacityHint := int(nrows) * int(ncols)
	return tilemesh.New(iOffset, jOffset, nrows, ncols, corners, capacityHint)
}

// isCorner reports whether a tile-local row/col coordinate is one of the
// tile's four corners, already accounted for at construction and never
// rebucketed as an ordinary interior/boundary sample.
func isCorner(localRow, localCol, nrows, ncols int32) bool {
	return (localRow == 0 || localRow == nrows-1) && (localCol == 0 || localCol == ncols-1)
}

// seedInterior buckets every non-corner sample of the tile's shard into
// whichever of the tile's two starting triangles contains it, per spec.md
// C6 step 3. Internal tiles (those with an already-refined neighbour above
// or to the left) skip their own top row and left column: those vertices
// are supplied by the neighbour's boundary replay instead, so bucketing
// them here too would double-count them.
func seedInterior(t *tilemesh.Tile, sh *shard.Shard, iOffset, jOffset, nrows, ncols int32, hasTop, hasLeft bool, eps float64, log *tinlog.Logger) {
	var tris []mesh.TriangleHandle
	t.Each(func(h mesh.TriangleHandle) { tris = append(tris, h) })
	for _, h := range tris {
		t.Arena.Tri(h).Bucket = mesh.NewBucket(0)
	}

	for localRow := int32(0); localRow < nrows; localRow++ {
		if hasTop && localRow == 0 {
			continue
		}
		for localCol := int32(0); localCol < ncols; localCol++ {
			if hasLeft && localCol == 0 {
				continue
			}
			if isCorner(localRow, localCol, nrows, ncols) {
				continue
			}

			z, nodata := sh.At(localRow, localCol)
			var zf float64
			switch {
			case nodata && !t.UseNoData:
				continue
			case nodata:
				zf = t.NoData
			default:
				zf = float64(z)
			}

			s := mesh.Sample{Row: iOffset + localRow, Col: jOffset + localCol, Z: zf}
			bucketSample(t.Arena, tris, s)
		}
	}

	for _, h := range tris {
		refine.SettleOrHeap(t, h, eps, log)
	}
}

// bucketSample finds the first of tris whose closed region contains s and
// adds it to that triangle's bucket. Mirrors refine's own placeSample, kept
// as a separate small copy here because it operates before any triangle has
// been split — a distinct moment (initial seeding) from split-time
// redistribution, which is what placeSample serves.
func bucketSample(arena *mesh.Arena, tris []mesh.TriangleHandle, s mesh.Sample) {
	p := s.Point()
	for _, h := range tris {
		p1, p2, p3 := arena.Vertices(h)
		inside, err := geom.InTriangle(p1, p2, p3, p)
		if err != nil || !inside {
			continue
		}
		errVal := geom.Error(s, p1, p2, p3)
		if p.Z == mesh.NoDataZ {
			errVal = -1
		}
		arena.Tri(h).Bucket.Add(s, errVal)
		return
	}
}

// replayBoundary re-creates each point from a neighbour's retained boundary
// array inside this tile's own arena, splitting whichever live triangle
// Tile.Locate finds it inside, and hands the resulting local PointID to
// record (Tile.ReplayedLeft's or Tile.ReplayedTop's append, selected by the
// caller) so serialization can place it in spec.md's vertex order.
func replayBoundary(t *tilemesh.Tile, points []mesh.Point, record func(*tilemesh.Tile, mesh.PointID), eps float64, delaunay bool, log *tinlog.Logger) {
	for _, p := range points {
		host, ok := t.Locate(p)
		if !ok {
			log.Warnf("orchestrator: replayed vertex (%d,%d) not located in tile (%d,%d)", p.Row, p.Col, t.IOffset, t.JOffset)
			continue
		}
		id := refine.ReplayVertex(t, host, p, eps, delaunay, log)
		record(t, id)
	}
}

func replayLeft(t *tilemesh.Tile, id mesh.PointID) { t.ReplayedLeft = append(t.ReplayedLeft, id) }
func replayTop(t *tilemesh.Tile, id mesh.PointID)  { t.ReplayedTop = append(t.ReplayedTop, id) }
