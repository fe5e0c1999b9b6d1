// Package refine implements the per-tile incremental refinement loop: pull
// the triangle with the worst approximation error from the heap, promote
// that sample to a vertex, split the triangle (or the collinear pair it
// falls on), redistribute the remaining samples among the new children, and
// optionally cascade Delaunay edge flips outward from the split. Grounded on
// refineTile/fixCollinear/distrPoints/edgeSwap/enforceDelaunay in
// refine_tin.c.
package refine

import (
	"errors"

	"github.com/pspoerri/tinmesh/internal/geom"
	"github.com/pspoerri/tinmesh/internal/mesh"
	"github.com/pspoerri/tinmesh/internal/pqueue"
	"github.com/pspoerri/tinmesh/internal/tilemesh"
	"github.com/pspoerri/tinmesh/internal/tinlog"
)

// Run drains a tile's heap, splitting the worst-error triangle on every
// iteration, until no live triangle exceeds eps. Only triangles whose
// bucket's worst sample exceeds eps ever enter the heap (see
// settleOrHeap), so draining the heap to empty is precisely the completion
// condition — there is no separate "maxError <= eps" check in the loop.
// Extracted triangles that were tombstoned while still in the heap are
// skipped.
func Run(t *tilemesh.Tile, eps float64, delaunay bool, log *tinlog.Logger) error {
	for {
		h, _, err := t.Heap.ExtractMin()
		if errors.Is(err, pqueue.ErrEmpty) {
			return nil
		}
		if t.Arena.Tri(h).State == mesh.StateTombstoned {
			continue
		}
		step(t, h, eps, delaunay, log)
	}
}

// step promotes h's worst sample to a vertex and dispatches to the
// strictly-interior split or the collinear split depending on where the new
// vertex falls relative to h's three edges.
func step(t *tilemesh.Tile, h mesh.TriangleHandle, eps float64, delaunay bool, log *tinlog.Logger) {
	arena := t.Arena
	tri := arena.Tri(h)

	sample, _, ok := tri.Bucket.Worst()
	if !ok {
		// A triangle never enters the heap without a qualifying worst
		// sample; reaching here means a prior step mutated this
		// triangle's bucket without re-settling it.
		log.Warnf("extracted triangle with no worst sample; skipping")
		arena.Tombstone(h)
		return
	}

	newID := arena.AddPoint(sample.Point())
	t.RecordVertex(newID)

	p1, p2, p3 := tri.P1, tri.P2, tri.P3
	pp1, pp2, pp3 := arena.Point(p1), arena.Point(p2), arena.Point(p3)
	pm := arena.Point(newID)

	area12 := geom.SignedArea(pp1, pp2, pm)
	area13 := geom.SignedArea(pp1, pm, pp3)
	area23 := geom.SignedArea(pm, pp2, pp3)

	switch {
	case area12 == 0:
		splitCollinear(t, p1, p2, p3, h, newID, sample, eps, delaunay, log)
	case area13 == 0:
		splitCollinear(t, p1, p3, p2, h, newID, sample, eps, delaunay, log)
	case area23 == 0:
		splitCollinear(t, p2, p3, p1, h, newID, sample, eps, delaunay, log)
	default:
		splitInterior(t, h, newID, sample, eps, delaunay, log)
	}

	arena.Tombstone(h)
}

// ReplayVertex inserts a neighbour-tile boundary vertex's point into this
// tile's own arena and splits host (the triangle Tile.Locate found it
// inside) around it, exactly as step does for a naturally promoted sample.
// It exists because every tile keeps a private arena (§5): a shared edge's
// vertices are never referenced across tiles, they are re-created point by
// point in each side's own arena by the orchestrator's replay step, and
// this is the entry point that does the re-creation and re-triangulation.
// The returned PointID is this tile's own local id for p, for the caller to
// record in Tile.ReplayedLeft or Tile.ReplayedTop.
func ReplayVertex(t *tilemesh.Tile, host mesh.TriangleHandle, p mesh.Point, eps float64, delaunay bool, log *tinlog.Logger) mesh.PointID {
	arena := t.Arena
	newID := arena.AddPoint(p)

	tri := arena.Tri(host)
	p1, p2, p3 := tri.P1, tri.P2, tri.P3
	pp1, pp2, pp3 := arena.Point(p1), arena.Point(p2), arena.Point(p3)

	area12 := geom.SignedArea(pp1, pp2, p)
	area13 := geom.SignedArea(pp1, p, pp3)
	area23 := geom.SignedArea(p, pp2, pp3)

	promoted := mesh.Sample{Row: p.Row, Col: p.Col, Z: p.Z}

	switch {
	case area12 == 0:
		splitCollinear(t, p1, p2, p3, host, newID, promoted, eps, delaunay, log)
	case area13 == 0:
		splitCollinear(t, p1, p3, p2, host, newID, promoted, eps, delaunay, log)
	case area23 == 0:
		splitCollinear(t, p2, p3, p1, host, newID, promoted, eps, delaunay, log)
	default:
		splitInterior(t, host, newID, promoted, eps, delaunay, log)
	}

	arena.Tombstone(host)
	return newID
}

// splitInterior handles the common case: the promoted vertex lies strictly
// inside h, so h becomes three new triangles sharing that vertex.
func splitInterior(t *tilemesh.Tile, h mesh.TriangleHandle, newID mesh.PointID, promoted mesh.Sample, eps float64, delaunay bool, log *tinlog.Logger) {
	arena := t.Arena
	tri := arena.Tri(h)
	p1, p2, p3 := tri.P1, tri.P2, tri.P3

	extP1P2 := neighborAcross(t, h, p1, p2)
	extP1P3 := neighborAcross(t, h, p1, p3)
	extP2P3 := neighborAcross(t, h, p2, p3)

	t1 := addTriangle(t, p1, p2, newID, extP1P2, mesh.NoTriangle, mesh.NoTriangle)
	t2 := addTriangle(t, p1, newID, p3, t1, extP1P3, mesh.NoTriangle)
	t3 := addTriangle(t, newID, p2, p3, t1, t2, extP2P3)

	distribute(arena, []mesh.TriangleHandle{t1, t2, t3}, []mesh.TriangleHandle{h}, &promoted, eps)

	if h == t.LLTriangle {
		t.UpdateLLAnchor(t1, t2, t3)
	}

	if delaunay {
		enforceDelaunay(t, t1, p1, p2, newID, eps, log)
		enforceDelaunay(t, t2, p1, p3, newID, eps, log)
		enforceDelaunay(t, t3, p2, p3, newID, eps, log)
	}

	settleOrHeap(t, t1, eps, log)
	settleOrHeap(t, t2, eps, log)
	settleOrHeap(t, t3, eps, log)
}

// splitCollinear handles the promoted vertex landing exactly on edge (pa,
// pb) of h, with pc the third vertex of h. h becomes two triangles; if a
// neighbour sits across (pa, pb) inside this tile, that neighbour is split
// the same way so no T-vertex survives on an internal edge.
func splitCollinear(t *tilemesh.Tile, pa, pb, pc mesh.PointID, h mesh.TriangleHandle, newID mesh.PointID, promoted mesh.Sample, eps float64, delaunay bool, log *tinlog.Logger) {
	arena := t.Arena

	extAC := neighborAcross(t, h, pa, pc)
	extBC := neighborAcross(t, h, pb, pc)

	t1 := addTriangle(t, pa, newID, pc, mesh.NoTriangle, extAC, mesh.NoTriangle)
	t2 := addTriangle(t, newID, pc, pb, t1, mesh.NoTriangle, extBC)

	distribute(arena, []mesh.TriangleHandle{t1, t2}, []mesh.TriangleHandle{h}, &promoted, eps)

	sp := neighborAcross(t, h, pa, pb)
	t3, t4 := mesh.NoTriangle, mesh.NoTriangle
	var pd mesh.PointID

	if sp != mesh.NoTriangle {
		spTri := arena.Tri(sp)
		pd = thirdPoint(spTri, pa, pb)

		extPDA := neighborAcross(t, sp, pd, pa)
		extPDB := neighborAcross(t, sp, pd, pb)

		t3 = addTriangle(t, pa, newID, pd, t1, extPDA, mesh.NoTriangle)
		t4 = addTriangle(t, pb, newID, pd, t2, extPDB, t3)

		spTri = arena.Tri(sp) // addTriangle may have moved the arena's storage
		if spTri.State == mesh.StateSettled {
			arena.Tri(t3).State = mesh.StateSettled
			arena.Tri(t4).State = mesh.StateSettled
		} else {
			if spTri.Heap != mesh.NoHeapHandle {
				t.Heap.Delete(spTri.Heap)
			}
			distribute(arena, []mesh.TriangleHandle{t3, t4}, []mesh.TriangleHandle{sp}, nil, eps)
			settleOrHeap(t, t3, eps, log)
			settleOrHeap(t, t4, eps, log)
		}

		if sp == t.LLTriangle {
			t.UpdateLLAnchor(t3, t4)
		}
		arena.Tombstone(sp)
	}

	if h == t.LLTriangle {
		t.UpdateLLAnchor(t1, t2)
	}

	if delaunay {
		enforceDelaunay(t, t1, pa, pc, newID, eps, log)
		enforceDelaunay(t, t2, pb, pc, newID, eps, log)
		if t3 != mesh.NoTriangle {
			enforceDelaunay(t, t3, pa, pd, newID, eps, log)
			enforceDelaunay(t, t4, pb, pd, newID, eps, log)
		}
	}

	settleOrHeap(t, t1, eps, log)
	settleOrHeap(t, t2, eps, log)
}

// edgeSwap replaces the two triangles sharing edge (a, c) — t1h = (a, b, c),
// t2h = (a, c, d) — with the pair sharing edge (b, d) instead, redistributes
// their combined samples, and recursively checks Delaunay on the two edges
// whose owning triangle changed.
func edgeSwap(t *tilemesh.Tile, t1h, t2h mesh.TriangleHandle, a, b, c, d mesh.PointID, eps float64, log *tinlog.Logger) {
	arena := t.Arena

	extAB := neighborAcross(t, t1h, a, b)
	extCB := neighborAcross(t, t1h, c, b)
	extCD := neighborAcross(t, t2h, c, d)
	extAD := neighborAcross(t, t2h, a, d)

	tn1 := addTriangle(t, a, b, d, extAB, extAD, mesh.NoTriangle)
	tn2 := addTriangle(t, c, b, d, extCB, extCD, tn1)

	t1, t2 := arena.Tri(t1h), arena.Tri(t2h)

	wasLL := t1h == t.LLTriangle || t2h == t.LLTriangle

	if t1.Heap != mesh.NoHeapHandle {
		t.Heap.Delete(t1.Heap)
	}
	if t2.Heap != mesh.NoHeapHandle {
		t.Heap.Delete(t2.Heap)
	}

	var sources []mesh.TriangleHandle
	if t1.State != mesh.StateSettled {
		sources = append(sources, t1h)
	}
	if t2.State != mesh.StateSettled {
		sources = append(sources, t2h)
	}
	if len(sources) == 0 {
		arena.Tri(tn1).State = mesh.StateSettled
		arena.Tri(tn2).State = mesh.StateSettled
	} else {
		distribute(arena, []mesh.TriangleHandle{tn1, tn2}, sources, nil, eps)
		settleOrHeap(t, tn1, eps, log)
		settleOrHeap(t, tn2, eps, log)
	}

	if wasLL {
		t.UpdateLLAnchor(tn1, tn2)
	}

	arena.Tombstone(t1h)
	arena.Tombstone(t2h)

	enforceDelaunay(t, tn1, a, d, b, eps, log)
	enforceDelaunay(t, tn2, c, d, b, eps, log)
}

// enforceDelaunay checks whether the triangle across edge (a, b) from tri —
// whose own third vertex is apex — has its opposite vertex inside tri's
// circumcircle, and if so swaps the shared edge. Boundary edges are never
// checked: spec.md's Open Question on cross-tile flips is resolved by never
// enforcing Delaunay across a tile's outer rectangle.
func enforceDelaunay(t *tilemesh.Tile, tri mesh.TriangleHandle, a, b, apex mesh.PointID, eps float64, log *tinlog.Logger) {
	arena := t.Arena
	if t.OnBoundary(arena.Point(a), arena.Point(b)) {
		return
	}

	slot, ok := mesh.EdgeSlotFor(arena.Tri(tri), a, b)
	if !ok {
		return
	}
	neighbor := arena.Tri(tri).Neighbors[slot]
	if neighbor == mesh.NoTriangle {
		return
	}

	d := thirdPoint(arena.Tri(neighbor), a, b)
	pa, pb, papex, pd := arena.Point(a), arena.Point(b), arena.Point(apex), arena.Point(d)

	if geom.InCircumcircle(pd, pa, pb, papex) {
		edgeSwap(t, tri, neighbor, a, apex, b, d, eps, log)
	}
}

// neighborAcross returns h's neighbour across edge (a, b), or mesh.NoTriangle
// if that edge is on the tile's outer boundary (which never carries a live
// neighbour link) or h has no such edge.
func neighborAcross(t *tilemesh.Tile, h mesh.TriangleHandle, a, b mesh.PointID) mesh.TriangleHandle {
	if t.OnBoundary(t.Arena.Point(a), t.Arena.Point(b)) {
		return mesh.NoTriangle
	}
	slot, ok := mesh.EdgeSlotFor(t.Arena.Tri(h), a, b)
	if !ok {
		return mesh.NoTriangle
	}
	return t.Arena.Tri(h).Neighbors[slot]
}

// thirdPoint returns whichever of tri's three vertices is neither a nor b.
func thirdPoint(tri *mesh.Triangle, a, b mesh.PointID) mesh.PointID {
	for _, id := range [3]mesh.PointID{tri.P1, tri.P2, tri.P3} {
		if id != a && id != b {
			return id
		}
	}
	return mesh.NoPoint
}

// addTriangle creates a triangle and links it to up to three neighbours,
// each identified by the PointID pair of the edge it sits across. A
// mesh.NoTriangle neighbour, or an edge on the tile's outer boundary, is
// left unlinked. Linking is symmetric: the neighbour's own slot for that
// edge is updated to point back at the new triangle.
func addTriangle(t *tilemesh.Tile, p1, p2, p3 mesh.PointID, n12, n13, n23 mesh.TriangleHandle) mesh.TriangleHandle {
	arena := t.Arena
	h := arena.AddTriangle(p1, p2, p3)

	link := func(a, b mesh.PointID, n mesh.TriangleHandle) {
		if n == mesh.NoTriangle || t.OnBoundary(arena.Point(a), arena.Point(b)) {
			return
		}
		tilemesh.LinkAcross(arena, h, n, a, b)
	}
	link(p1, p2, n12)
	link(p1, p3, n13)
	link(p2, p3, n23)

	return h
}

// distribute re-buckets every sample from the given source triangles into
// the freshly created children, skipping exclude (the sample just promoted
// to a vertex) when it is not nil. Each child starts with a fresh, empty
// bucket; distribute does not decide whether a child settles or re-enters
// the heap — call settleOrHeap for that once every source has been drained.
func distribute(arena *mesh.Arena, children []mesh.TriangleHandle, sources []mesh.TriangleHandle, exclude *mesh.Sample, eps float64) {
	for _, c := range children {
		arena.Tri(c).Bucket = mesh.NewBucket(0)
	}
	for _, src := range sources {
		bucket := arena.Tri(src).Bucket
		if bucket == nil {
			continue
		}
		for _, s := range bucket.Samples {
			if exclude != nil && s == *exclude {
				continue
			}
			placeSample(arena, children, s)
		}
	}
}

// placeSample finds the first child whose closed triangle contains s and
// adds it to that child's bucket. Ties on a shared edge resolve to whichever
// child appears first in children, matching distrPoints' try-t1-then-t2
// sequential order.
func placeSample(arena *mesh.Arena, children []mesh.TriangleHandle, s mesh.Sample) bool {
	p := s.Point()
	for _, c := range children {
		p1, p2, p3 := arena.Vertices(c)
		inside, err := geom.InTriangle(p1, p2, p3, p)
		if err != nil {
			continue
		}
		if !inside {
			continue
		}
		errVal := geom.Error(s, p1, p2, p3)
		if p.Z == mesh.NoDataZ {
			errVal = -1 // the bucket's worst only if all its samples are nodata; see settleOrHeap
		}
		arena.Tri(c).Bucket.Add(s, errVal)
		return true
	}
	return false
}

// SettleOrHeap is settleOrHeap, exported for the orchestrator's initial
// seeding step: once a freshly constructed tile's two starting triangles
// have their buckets populated from the tile's own shard, each needs the
// same settle-or-enqueue decision every split produces for its children.
func SettleOrHeap(t *tilemesh.Tile, h mesh.TriangleHandle, eps float64, log *tinlog.Logger) {
	settleOrHeap(t, h, eps, log)
}

// settleOrHeap decides a newly bucketed triangle's fate: if its worst
// sample's error exceeds eps it goes in the heap (State stays Active);
// otherwise it settles — its bucket is dropped and it is never visited
// again. A triangle whose only samples are nodata also settles here, with a
// warning, since there is no elevation signal left to refine against. A
// triangle already replaced by a Delaunay flip is left alone.
func settleOrHeap(t *tilemesh.Tile, h mesh.TriangleHandle, eps float64, log *tinlog.Logger) {
	tri := t.Arena.Tri(h)
	if tri.State == mesh.StateTombstoned {
		return
	}
	worst, worstErr, ok := tri.Bucket.Worst()
	if !ok || worstErr <= eps {
		if ok && worst.Z == mesh.NoDataZ {
			log.Warnf("triangle settled with only nodata samples")
		}
		tri.State = mesh.StateSettled
		tri.Bucket = nil
		return
	}
	t.Heap.Insert(h, worstErr)
}
