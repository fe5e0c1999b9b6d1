package refine

import (
	"testing"

	"github.com/pspoerri/tinmesh/internal/mesh"
	"github.com/pspoerri/tinmesh/internal/pqueue"
	"github.com/pspoerri/tinmesh/internal/tilemesh"
	"github.com/pspoerri/tinmesh/internal/tinlog"
)

func planarTile() *tilemesh.Tile {
	// A flat plane: z = row + col everywhere, so every initial triangle
	// already interpolates every sample exactly and Run should never split.
	corners := [4]mesh.Point{
		{Row: 0, Col: 0, Z: 0},
		{Row: 0, Col: 9, Z: 9},
		{Row: 9, Col: 0, Z: 9},
		{Row: 9, Col: 9, Z: 18},
	}
	return tilemesh.New(0, 0, 10, 10, corners, 32)
}

func bucketAll(t *tilemesh.Tile, zAt func(row, col int32) float64) []mesh.TriangleHandle {
	var tris []mesh.TriangleHandle
	t.Each(func(h mesh.TriangleHandle) { tris = append(tris, h) })
	for _, h := range tris {
		t.Arena.Tri(h).Bucket = mesh.NewBucket(0)
	}
	for row := int32(1); row < 9; row++ {
		for col := int32(1); col < 9; col++ {
			s := mesh.Sample{Row: row, Col: col, Z: zAt(row, col)}
			placeSample(t.Arena, tris, s)
		}
	}
	return tris
}

func TestRunOnExactPlaneSettlesImmediately(t *testing.T) {
	tile := planarTile()
	tris := bucketAll(tile, func(row, col int32) float64 { return float64(row + col) })
	log := tinlog.New(false)
	for _, h := range tris {
		SettleOrHeap(tile, h, 0.01, log)
	}

	if err := Run(tile, 0.01, true, log); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := tile.Count(); got != 2 {
		t.Errorf("Run on an exact plane split the mesh: %d live triangles, want 2", got)
	}
}

func TestRunSplitsOnOutlier(t *testing.T) {
	tile := planarTile()
	tris := bucketAll(tile, func(row, col int32) float64 {
		if row == 4 && col == 4 {
			return 1000 // a spike far off the plane
		}
		return float64(row + col)
	})
	log := tinlog.New(false)
	for _, h := range tris {
		SettleOrHeap(tile, h, 0.5, log)
	}

	if err := Run(tile, 0.5, true, log); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := tile.Count(); got <= 2 {
		t.Errorf("Run with an outlier sample did not split: %d live triangles", got)
	}
}

func TestReplayVertexInsertsAndClassifies(t *testing.T) {
	tile := planarTile()
	log := tinlog.New(false)

	// A point on the tile's left edge (col 0), as a neighbour's right
	// boundary vertex would arrive during replay.
	p := mesh.Point{Row: 3, Col: 0, Z: 3}
	host, ok := tile.Locate(p)
	if !ok {
		t.Fatalf("Locate(%v) = not found", p)
	}

	before := tile.Count()
	id := ReplayVertex(tile, host, p, 0.5, true, log)
	if id == mesh.NoPoint {
		t.Fatalf("ReplayVertex returned mesh.NoPoint")
	}
	if got := tile.Arena.Point(id); !got.Equal(p) {
		t.Errorf("ReplayVertex recorded point %v, want %v", got, p)
	}
	if after := tile.Count(); after <= before {
		t.Errorf("ReplayVertex did not grow the live triangle count: before=%d after=%d", before, after)
	}
}

// badDiagonalTile builds two triangles sharing edge A-B directly (bypassing
// tilemesh.New's rectangle constructor, which always splits along a
// cocircular diagonal and so never exercises a flip): A=(0,0), B=(10,0),
// C=(5,1) makes ABC a thin sliver close to AB, D=(5,9) makes ABD tall.
// Checked the way enforceDelaunay checks it from ABD's side, C lies inside
// the circumcircle of ABD (centre (5,3.11), radius about 5.9), so edge AB
// fails the test and the diagonal becomes C-D. The tile's offsets are -1 so
// that A-B (row 0) is not on the tile's outer boundary, where no flip is
// ever made.
func badDiagonalTile() (tile *tilemesh.Tile, a, b, c, d mesh.PointID, triABC, triABD mesh.TriangleHandle) {
	arena := mesh.NewArena(8, 8)
	a = arena.AddPoint(mesh.Point{Row: 0, Col: 0, Z: 0})
	b = arena.AddPoint(mesh.Point{Row: 0, Col: 10, Z: 0})
	c = arena.AddPoint(mesh.Point{Row: 1, Col: 5, Z: 0})
	d = arena.AddPoint(mesh.Point{Row: 9, Col: 5, Z: 0})

	triABC = arena.AddTriangle(a, b, c)
	triABD = arena.AddTriangle(a, b, d)
	tilemesh.LinkAcross(arena, triABC, triABD, a, b)

	tile = &tilemesh.Tile{
		Arena:      arena,
		IOffset:    -1,
		JOffset:    -1,
		NRows:      1000,
		NCols:      1000,
		LLTriangle: triABD,
	}
	tile.Heap = pqueue.New(arena, 16)
	return tile, a, b, c, d, triABC, triABD
}

func TestEnforceDelaunaySwapsBadDiagonal(t *testing.T) {
	tile, a, b, c, d, triABC, triABD := badDiagonalTile()
	log := tinlog.New(false)

	before := tile.Count()
	enforceDelaunay(tile, triABD, a, b, d, 0.5, log)

	if got := tile.Arena.Tri(triABC).State; got != mesh.StateTombstoned {
		t.Errorf("triangle ABC State = %v, want StateTombstoned after the flip", got)
	}
	if got := tile.Arena.Tri(triABD).State; got != mesh.StateTombstoned {
		t.Errorf("triangle ABD State = %v, want StateTombstoned after the flip", got)
	}

	after := tile.Count()
	if after != before {
		t.Errorf("live triangle count changed from %d to %d, want unchanged (a flip replaces 2 with 2)", before, after)
	}

	// The flip must replace edge A-B with edge C-D: every surviving live
	// triangle has C and D together on one side, never A and B together.
	var sawCD int
	tile.Each(func(h mesh.TriangleHandle) {
		p1, p2, p3 := tile.Arena.Vertices(h)
		ids := [3]mesh.PointID{tile.Arena.Tri(h).P1, tile.Arena.Tri(h).P2, tile.Arena.Tri(h).P3}
		hasA, hasB, hasC, hasD := false, false, false, false
		for _, id := range ids {
			switch id {
			case a:
				hasA = true
			case b:
				hasB = true
			case c:
				hasC = true
			case d:
				hasD = true
			}
		}
		if hasA && hasB {
			t.Errorf("surviving triangle (%v,%v,%v) still joins A and B; the non-Delaunay edge was not flipped", p1, p2, p3)
		}
		if hasC && hasD {
			sawCD++
		}
	})
	if sawCD != 2 {
		t.Errorf("expected both surviving triangles to share the new C-D edge, got %d that do", sawCD)
	}
}
