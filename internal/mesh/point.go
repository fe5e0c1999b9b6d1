// Package mesh holds the TIN mesh data model: points, triangles, neighbour
// links and per-triangle sample buckets. Triangles and points live in
// per-tile arenas keyed by stable integer handles rather than pointers, so
// that a tile's entire working set can be dropped in one step at teardown.
package mesh

import "fmt"

// Point is an immutable mesh vertex: an integer grid row/col and an
// elevation. Row/col double as the 2D coordinates used by the geometry
// kernel; keeping them integers keeps the area/in-circle predicates exact
// for the dominant case.
type Point struct {
	Row int32
	Col int32
	Z   float64
}

// NoDataZ is the sentinel elevation (int32 minimum) marking a nodata raster
// sample. With use_nodata such a sample is given min-1 instead.
const NoDataZ = -1 << 31

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d,%.3f)", p.Row, p.Col, p.Z)
}

// Equal compares two points by coordinate and elevation. Corner points are
// shared by value across tiles, so equality must not depend on identity.
func (p Point) Equal(o Point) bool {
	return p.Row == o.Row && p.Col == o.Col && p.Z == o.Z
}

// Less orders points lexicographically by (Row, Col), the order spec.md
// requires for boundary-vertex arrays and interior-vertex arrays alike.
func (p Point) Less(o Point) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Col < o.Col
}

// Sample is a raw raster sample not yet promoted to a mesh vertex.
type Sample struct {
	Row int32
	Col int32
	Z   float64
}

func (s Sample) Point() Point {
	return Point{Row: s.Row, Col: s.Col, Z: s.Z}
}
