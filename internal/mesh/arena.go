package mesh

// PointID indexes into an Arena's point storage. A PointID is only valid
// for the Arena that produced it.
type PointID int32

// TriangleHandle indexes into an Arena's triangle storage. NoTriangle marks
// an absent neighbour link (the shared edge lies on the tile boundary) or an
// absent lower-left anchor.
type TriangleHandle int32

// NoTriangle is the reserved "absent" handle value.
const NoTriangle TriangleHandle = -1

// NoPoint is the reserved "absent" PointID value.
const NoPoint PointID = -1

// HeapHandle is a Triangle's current position in the indexed heap.
// NoHeapHandle means the triangle is not currently in the heap.
type HeapHandle int32

// NoHeapHandle is the reserved "not in the heap" handle value.
const NoHeapHandle HeapHandle = -1

// State is the algebraic discriminator spec.md's Design Notes ask for in
// place of the original's DONE-pointer and all-neighbours-absent tricks.
type State uint8

const (
	// StateActive triangles carry a bucket and are (or are about to be)
	// in the heap.
	StateActive State = iota
	// StateSettled triangles have no sample whose error exceeds epsilon;
	// their bucket has been freed and they are never in the heap.
	StateSettled
	// StateTombstoned triangles were replaced by a split or flip before
	// being extracted from the heap; extract must skip them silently.
	StateTombstoned
)

// EdgeSlot names the three edges of a triangle by the vertex pair they
// connect, used to key neighbour links symmetrically.
type EdgeSlot uint8

const (
	EdgeP1P2 EdgeSlot = iota
	EdgeP2P3
	EdgeP3P1
)

// Triangle is three vertex references with no required winding order, up to
// three neighbour links, an optional sample bucket, and the bookkeeping the
// refiner and heap need.
type Triangle struct {
	P1, P2, P3 PointID
	Neighbors  [3]TriangleHandle // keyed by EdgeSlot
	Bucket     *Bucket
	Heap       HeapHandle
	State      State
}

// Arena owns the points and triangles of a single tile's working set. A
// tile's entire arena is dropped in one step at teardown, which is the bulk
// allocator spec.md's Design Notes recommend in place of per-triangle
// manual free.
type Arena struct {
	Points    []Point
	Triangles []Triangle
}

// NewArena allocates an arena with room for the given number of points and
// triangles without growing; 0 uses small defaults.
func NewArena(points, triangles int) *Arena {
	if points <= 0 {
		points = 64
	}
	if triangles <= 0 {
		triangles = 64
	}
	return &Arena{
		Points:    make([]Point, 0, points),
		Triangles: make([]Triangle, 0, triangles),
	}
}

// AddPoint appends a point and returns its stable ID.
func (a *Arena) AddPoint(p Point) PointID {
	id := PointID(len(a.Points))
	a.Points = append(a.Points, p)
	return id
}

// Point dereferences a PointID.
func (a *Arena) Point(id PointID) Point { return a.Points[id] }

// AddTriangle appends a triangle (with no neighbours and no bucket yet) and
// returns its stable handle.
func (a *Arena) AddTriangle(p1, p2, p3 PointID) TriangleHandle {
	h := TriangleHandle(len(a.Triangles))
	a.Triangles = append(a.Triangles, Triangle{
		P1: p1, P2: p2, P3: p3,
		Neighbors: [3]TriangleHandle{NoTriangle, NoTriangle, NoTriangle},
		Heap:      NoHeapHandle,
		State:     StateActive,
	})
	return h
}

// Tri dereferences a TriangleHandle. The returned pointer is valid only
// until the next AddTriangle call reallocates the backing slice, so callers
// must not hold it across insertions.
func (a *Arena) Tri(h TriangleHandle) *Triangle {
	return &a.Triangles[h]
}

// Vertices returns the three mesh points of a triangle in storage order.
func (a *Arena) Vertices(h TriangleHandle) (Point, Point, Point) {
	t := &a.Triangles[h]
	return a.Points[t.P1], a.Points[t.P2], a.Points[t.P3]
}

// Tombstone marks a triangle as replaced. It does not reclaim the slot: the
// arena is bulk-freed at tile teardown, not per-triangle.
func (a *Arena) Tombstone(h TriangleHandle) {
	a.Triangles[h].State = StateTombstoned
	a.Triangles[h].Bucket = nil
	a.Triangles[h].Neighbors = [3]TriangleHandle{NoTriangle, NoTriangle, NoTriangle}
}

// linkNeighbor sets the neighbour of t across the edge identified by slot to
// other. It sets only t's side of the link; other's link back to t is not
// touched. Passing NoTriangle clears the slot.
func (a *Arena) linkNeighbor(t TriangleHandle, slot EdgeSlot, other TriangleHandle) {
	a.Triangles[t].Neighbors[slot] = other
}

// SetNeighbor sets t's neighbour link in the given edge slot to other, in
// one direction only. Call it once per direction, or use
// tilemesh.LinkAcross for the common symmetric case.
func (a *Arena) SetNeighbor(t TriangleHandle, slot EdgeSlot, other TriangleHandle) {
	a.linkNeighbor(t, slot, other)
}

// EdgeEndpoints returns the PointIDs of the two endpoints of the given edge
// slot, and the opposite (apex) vertex.
func EdgeEndpoints(t *Triangle, slot EdgeSlot) (a, b, apex PointID) {
	switch slot {
	case EdgeP1P2:
		return t.P1, t.P2, t.P3
	case EdgeP2P3:
		return t.P2, t.P3, t.P1
	default: // EdgeP3P1
		return t.P3, t.P1, t.P2
	}
}

// EdgeSlotFor returns which edge slot of t connects points a and b (order
// independent), and false if t has no such edge.
func EdgeSlotFor(t *Triangle, a, b PointID) (EdgeSlot, bool) {
	pairs := [3][2]PointID{{t.P1, t.P2}, {t.P2, t.P3}, {t.P3, t.P1}}
	for i, pr := range pairs {
		if (pr[0] == a && pr[1] == b) || (pr[0] == b && pr[1] == a) {
			return EdgeSlot(i), true
		}
	}
	return 0, false
}
