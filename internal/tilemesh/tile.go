// Package tilemesh implements the per-tile triangulation: construction of
// the initial two-triangle mesh over a tile rectangle, the traversal used by
// serialization, and the boundary-vertex bookkeeping the orchestrator needs
// to replay vertices into neighbouring tiles.
package tilemesh

import (
	"sort"

	"github.com/pspoerri/tinmesh/internal/geom"
	"github.com/pspoerri/tinmesh/internal/mesh"
	"github.com/pspoerri/tinmesh/internal/pqueue"
)

// Corner names a tile's four corner anchors.
type Corner int

const (
	NW Corner = iota
	NE
	SW
	SE
)

// Tile is a triangulation over the rectangular index range
// [IOffset, IOffset+NRows) x [JOffset, JOffset+NCols).
type Tile struct {
	Arena *mesh.Arena
	Heap  *pqueue.Heap

	IOffset, JOffset int32
	NRows, NCols     int32

	Corners [4]mesh.PointID // indexed by Corner

	// Lower-left-triangle anchor: a live triangle at the tile's lower-left
	// corner, with its lower-left vertex and left edge, kept current by
	// UpdateLLAnchor after every split or flip (see internal/refine).
	// Nothing reads it for point location: Locate scans every live
	// triangle.
	LLTriangle mesh.TriangleHandle
	LLVertex   mesh.PointID
	LLEdgeA    mesh.PointID
	LLEdgeB    mesh.PointID

	// Boundary-vertex arrays, strictly sorted by (Row, Col) once
	// refinement completes. Interior holds every other promoted vertex.
	Interior      []mesh.PointID
	RightBoundary []mesh.PointID
	BottomBoundary []mesh.PointID

	// ReplayedLeft and ReplayedTop hold this tile's own, freshly-inserted
	// copies of its left neighbour's right boundary and its top neighbour's
	// bottom boundary (corners excluded, since those already live in
	// Corners). Every tile keeps a private arena, so a neighbour's PointIDs
	// are never valid here: the orchestrator re-creates each one as a new
	// point in this tile's arena during replay (see internal/refine.
	// ReplayVertex) and records the resulting local ID in these slices,
	// which exist purely so serialization can place them in spec.md's
	// vertex order without confusing them for naturally-promoted vertices.
	ReplayedLeft []mesh.PointID
	ReplayedTop  []mesh.PointID

	// Up to four neighbour tiles. The orchestrator does not set them (it
	// passes a neighbour's boundary points by value instead), so they stay
	// nil.
	Top, Bottom, Left, Right *Tile

	NoData   float64
	UseNoData bool
}

// New constructs a tile with its four corner points (added by value to the
// tile's own arena) and the standard two initial triangles (nw,sw,se) and (nw,ne,se) sharing
// edge nw-se. The lower-left anchor starts at the first triangle, lower-left
// vertex sw, lower-left edge nw-sw, exactly as spec.md prescribes.
func New(iOffset, jOffset, nrows, ncols int32, corners [4]mesh.Point, capacityHint int) *Tile {
	arena := mesh.NewArena(capacityHint, capacityHint*2)
	t := &Tile{
		Arena:   arena,
		IOffset: iOffset,
		JOffset: jOffset,
		NRows:   nrows,
		NCols:   ncols,
	}

	for i, p := range corners {
		t.Corners[i] = arena.AddPoint(p)
	}

	nw, ne, sw, se := t.Corners[NW], t.Corners[NE], t.Corners[SW], t.Corners[SE]

	t1 := arena.AddTriangle(nw, sw, se)
	t2 := arena.AddTriangle(nw, ne, se)

	// Link the shared internal diagonal nw-se symmetrically; the other
	// four edges are the tile's own rectangle boundary and get no link.
	LinkAcross(arena, t1, t2, nw, se)

	t.Heap = pqueue.New(arena, capacityHint*3)

	t.LLTriangle = t1
	t.LLVertex = sw
	t.LLEdgeA = nw
	t.LLEdgeB = sw

	return t
}

// LinkAcross wires a and b as neighbours across the edge they share, which
// must connect PointIDs ea and eb in both triangles. Exported for
// internal/refine, which needs it to splice newly split triangles back into
// an existing triangle's neighbour links.
func LinkAcross(arena *mesh.Arena, a, b mesh.TriangleHandle, ea, eb mesh.PointID) {
	ta, tb := arena.Tri(a), arena.Tri(b)
	slotA, ok := mesh.EdgeSlotFor(ta, ea, eb)
	if !ok {
		return
	}
	slotB, ok := mesh.EdgeSlotFor(tb, ea, eb)
	if !ok {
		return
	}
	arena.SetNeighbor(a, slotA, b)
	arena.SetNeighbor(b, slotB, a)
}

// OnBoundary reports whether the edge (a, b) lies on this tile's outer
// rectangle: both endpoints share the same boundary coordinate (min row,
// max row, min col, or max col). No neighbour link is ever created, and no
// Delaunay flip is ever attempted, across such an edge.
func (t *Tile) OnBoundary(a, b mesh.Point) bool {
	minRow, maxRow := t.IOffset, t.IOffset+t.NRows-1
	minCol, maxCol := t.JOffset, t.JOffset+t.NCols-1

	return (a.Row == minRow && b.Row == minRow) ||
		(a.Row == maxRow && b.Row == maxRow) ||
		(a.Col == minCol && b.Col == minCol) ||
		(a.Col == maxCol && b.Col == maxCol)
}

// onRightEdge / onBottomEdge classify a newly promoted vertex for the
// boundary-vertex arrays: the tile's right column, its bottom row, or
// otherwise interior. Corners are recorded at construction, not here.
func (t *Tile) onRightEdge(p mesh.Point) bool {
	return p.Col == t.JOffset+t.NCols-1
}

func (t *Tile) onBottomEdge(p mesh.Point) bool {
	return p.Row == t.IOffset+t.NRows-1
}

// RecordVertex appends a newly promoted vertex to the right boundary array,
// the bottom boundary array, or the interior array, per spec.md step 2 of
// the refiner's main loop.
func (t *Tile) RecordVertex(id mesh.PointID) {
	p := t.Arena.Point(id)
	switch {
	case t.onBottomEdge(p):
		t.BottomBoundary = append(t.BottomBoundary, id)
	case t.onRightEdge(p):
		t.RightBoundary = append(t.RightBoundary, id)
	default:
		t.Interior = append(t.Interior, id)
	}
}

// SortBoundaries sorts the three vertex arrays lexicographically by
// (Row, Col), as required once refinement finishes so neighbour replay and
// mesh serialization see a deterministic, comparable order (P4, P6).
func (t *Tile) SortBoundaries() {
	sortIDs := func(ids []mesh.PointID) {
		sort.Slice(ids, func(i, j int) bool {
			return t.Arena.Point(ids[i]).Less(t.Arena.Point(ids[j]))
		})
	}
	sortIDs(t.Interior)
	sortIDs(t.RightBoundary)
	sortIDs(t.BottomBoundary)
}

// UpdateLLAnchor refreshes the lower-left location hint after a split or
// flip tombstones the triangle it pointed at: the new hint is whichever
// candidate has two vertices at minimum column and contains the maximum-row
// vertex on its left side, the same corner triangle the reference
// implementation's updateTinTileCorner re-anchors to. Neither Each nor
// Locate starts from it.
func (t *Tile) UpdateLLAnchor(candidates ...mesh.TriangleHandle) {
	targetCol := t.JOffset
	targetRow := t.IOffset + t.NRows - 1

	for _, h := range candidates {
		if h == mesh.NoTriangle {
			continue
		}
		tri := t.Arena.Tri(h)
		if tri.State == mesh.StateTombstoned {
			continue
		}
		ids := [3]mesh.PointID{tri.P1, tri.P2, tri.P3}

		// Exactly two of the three vertices sit on the tile's left
		// column, and one of those two is the max-row corner.
		var left []mesh.PointID
		for _, id := range ids {
			if t.Arena.Point(id).Col == targetCol {
				left = append(left, id)
			}
		}
		if len(left) != 2 {
			continue
		}
		a, b := left[0], left[1]
		pa, pb := t.Arena.Point(a), t.Arena.Point(b)
		if pa.Row != targetRow && pb.Row != targetRow {
			continue
		}

		t.LLTriangle = h
		if pa.Row == targetRow {
			t.LLVertex, t.LLEdgeA, t.LLEdgeB = a, a, b
		} else {
			t.LLVertex, t.LLEdgeA, t.LLEdgeB = b, b, a
		}
		return
	}
}

// Locate finds a live triangle whose closed region contains p, by linear
// scan over Each. A replayed neighbour-boundary vertex arrives with no
// location hint of its own (unlike a freshly split interior point, which
// always starts inside a known triangle), so there is nothing smarter than
// a scan to seed it with; tile arenas stay small by construction (the
// memory-budget tile sizing in internal/orchestrator), so the scan's cost
// is in line with everything else the per-tile setup already does. A point
// collinear with a candidate triangle's edges (geom.ErrDegenerate) is
// treated as a hit, since it lies exactly on that triangle's boundary.
func (t *Tile) Locate(p mesh.Point) (mesh.TriangleHandle, bool) {
	var found mesh.TriangleHandle
	ok := false
	t.Each(func(h mesh.TriangleHandle) {
		if ok {
			return
		}
		tri := t.Arena.Tri(h)
		a := t.Arena.Point(tri.P1)
		b := t.Arena.Point(tri.P2)
		c := t.Arena.Point(tri.P3)
		inside, err := geom.InTriangle(a, b, c, p)
		if err != nil {
			found, ok = h, true
			return
		}
		if inside {
			found, ok = h, true
		}
	})
	return found, ok
}
