package tilemesh

import (
	"github.com/pspoerri/tinmesh/internal/mesh"
)

// Each visits every live (non-tombstoned) triangle in the tile exactly once,
// in arena storage order. The reference implementation this package is
// ported from instead walks triangle-to-triangle across shared edges,
// classifying each edge relative to a fixed lower-left vertex so it can tell
// when the walk has circled back to its start; that dance earns its keep
// there because its allocator reuses freed triangle slots and keeps no
// reverse index of "all triangles still live". mesh.Arena never reclaims a
// tombstoned slot — Tombstone marks and moves on, per spec.md's Design Notes
// on bulk allocation — so the same guarantee, every live triangle exactly
// once, falls out of a single linear scan with no edge-walk required.
func (t *Tile) Each(visit func(mesh.TriangleHandle)) {
	for h := range t.Arena.Triangles {
		handle := mesh.TriangleHandle(h)
		if t.Arena.Tri(handle).State == mesh.StateTombstoned {
			continue
		}
		visit(handle)
	}
}

// Count returns the number of live triangles, without the caller needing to
// hand Each its own counting closure.
func (t *Tile) Count() int {
	n := 0
	t.Each(func(mesh.TriangleHandle) { n++ })
	return n
}
