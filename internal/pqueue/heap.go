// Package pqueue implements the indexed max-heap over triangles that the
// refiner uses to always extract the triangle with the worst approximation
// error. It is "indexed" in the sense of an addressable heap: each element
// remembers its current array position inside the owning triangle's
// mesh.HeapHandle field, so an arbitrary element can be deleted in O(log n)
// when a split or flip invalidates a triangle before it is ever extracted.
package pqueue

import (
	"errors"

	"github.com/pspoerri/tinmesh/internal/mesh"
)

// ErrEmpty is returned by Peek/Extract on an empty heap.
var ErrEmpty = errors.New("pqueue: heap is empty")

// slot is one heap array element: the triangle handle and the error value
// that orders it. The heap is a max-heap on Err (equivalently a min-heap on
// -Err, per spec.md's "priority(t) = -t.max_error" framing).
type slot struct {
	tri mesh.TriangleHandle
	err float64
}

// Heap is an indexed binary max-heap over triangle error. It borrows
// triangles from an mesh.Arena and writes back each element's current
// position into Arena.Triangles[h].Heap; it never owns or frees triangles.
type Heap struct {
	arena *mesh.Arena
	data  []slot
}

// minCapacity is the smallest backing array the heap allocates, so tiny
// tiles don't pay repeated doubling costs.
const minCapacity = 64

// maxInitialCapacity caps the backing array New allocates up front.
const maxInitialCapacity = 1 << 20

// New allocates a heap over the given arena with capacity rounded up to a
// power of two no smaller than minCapacity, capped at maxInitialCapacity
// (2^20) for very large tiles. Callers pass 3*tileArea; the heap still
// grows by doubling if that estimate is too small.
func New(arena *mesh.Arena, capacity int) *Heap {
	if capacity > maxInitialCapacity {
		capacity = maxInitialCapacity
	}
	c := minCapacity
	for c < capacity {
		c <<= 1
	}
	return &Heap{
		arena: arena,
		data:  make([]slot, 0, c),
	}
}

// Len returns the number of triangles currently in the heap.
func (h *Heap) Len() int { return len(h.data) }

// Insert adds a triangle to the heap keyed by err (its bucket's current
// worst-sample error). Preconditions: the triangle carries a bucket and its
// current mesh.HeapHandle is mesh.NoHeapHandle.
func (h *Heap) Insert(t mesh.TriangleHandle, err float64) {
	h.data = append(h.data, slot{tri: t, err: err})
	idx := len(h.data) - 1
	h.setHandle(idx)
	h.siftUp(idx)
}

// PeekMin returns the triangle with the largest error without removing it.
func (h *Heap) PeekMin() (mesh.TriangleHandle, float64, error) {
	if len(h.data) == 0 {
		return mesh.NoTriangle, 0, ErrEmpty
	}
	return h.data[0].tri, h.data[0].err, nil
}

// ExtractMin removes and returns the triangle with the largest error.
func (h *Heap) ExtractMin() (mesh.TriangleHandle, float64, error) {
	if len(h.data) == 0 {
		return mesh.NoTriangle, 0, ErrEmpty
	}
	root := h.data[0]
	h.arena.Tri(root.tri).Heap = mesh.NoHeapHandle

	last := len(h.data) - 1
	h.data[0] = h.data[last]
	h.data = h.data[:last]
	if len(h.data) > 0 {
		h.setHandle(0)
		h.siftDown(0)
	}
	return root.tri, root.err, nil
}

// Delete removes the element at the given heap handle, if it is in range.
// An out-of-range handle (e.g. mesh.NoHeapHandle, or one already removed)
// is a silent no-op, per spec.md's contract.
func (h *Heap) Delete(handle mesh.HeapHandle) {
	idx := int(handle)
	if idx < 0 || idx >= len(h.data) {
		return
	}

	h.arena.Tri(h.data[idx].tri).Heap = mesh.NoHeapHandle

	last := len(h.data) - 1
	if idx == last {
		h.data = h.data[:last]
		return
	}
	h.data[idx] = h.data[last]
	h.data = h.data[:last]
	h.setHandle(idx)
	// The moved-in element may need to go either direction.
	if !h.siftUp(idx) {
		h.siftDown(idx)
	}
}

func (h *Heap) setHandle(idx int) {
	h.arena.Tri(h.data[idx].tri).Heap = mesh.HeapHandle(idx)
}

// less reports whether the element at i has strictly larger error than j,
// i.e. whether i should sit closer to the root in this max-heap.
func (h *Heap) less(i, j int) bool {
	return h.data[i].err > h.data[j].err
}

func (h *Heap) swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
	h.setHandle(i)
	h.setHandle(j)
}

// siftUp moves the element at idx toward the root while it outranks its
// parent. Returns true if any movement happened.
func (h *Heap) siftUp(idx int) bool {
	moved := false
	for idx > 0 {
		parent := (idx - 1) / 2
		if !h.less(idx, parent) {
			break
		}
		h.swap(idx, parent)
		idx = parent
		moved = true
	}
	return moved
}

// siftDown moves the element at idx away from the root while a child
// outranks it.
func (h *Heap) siftDown(idx int) {
	n := len(h.data)
	for {
		left := 2*idx + 1
		right := 2*idx + 2
		largest := idx
		if left < n && h.less(left, largest) {
			largest = left
		}
		if right < n && h.less(right, largest) {
			largest = right
		}
		if largest == idx {
			return
		}
		h.swap(idx, largest)
		idx = largest
	}
}
