// Package geom implements the pure geometric predicates the refinement
// engine is built on: signed area, point-in-triangle, plane interpolation,
// per-sample error, and the in-circumcircle test. None of these allocate;
// they are called on the order of once per candidate split or flip.
package geom

import (
	"fmt"
	"math"

	"github.com/pspoerri/tinmesh/internal/mesh"
)

// epsArea absorbs round-off in the signed-area predicate. Coordinates are
// integer grid rows/cols, so the raw cross product is exact; the tolerance
// only matters for genuinely collinear triples landing a hair off zero.
const epsArea = 0.5

// epsCirc is the inclusive tolerance on the in-circumcircle predicate.
const epsCirc = 1e-6

// ErrDegenerate is returned by InTriangle when all three signed areas are
// zero — the triangle and the query point are mutually collinear, which is
// a precondition failure the caller must not treat as "outside".
var ErrDegenerate = fmt.Errorf("geom: degenerate query (three collinear signed areas)")

// SignedArea returns +1, -1, or 0 for the sign of twice the signed area of
// triangle (a, b, c), i.e. the sign of the 2D cross product (b-a)x(c-a). A
// zero result means a, b, c are collinear within epsArea.
func SignedArea(a, b, c mesh.Point) int {
	cross := signedAreaRaw(a, b, c)
	if math.Abs(cross) <= epsArea {
		return 0
	}
	if cross > 0 {
		return 1
	}
	return -1
}

func signedAreaRaw(a, b, c mesh.Point) float64 {
	abx := float64(b.Col - a.Col)
	aby := float64(b.Row - a.Row)
	acx := float64(c.Col - a.Col)
	acy := float64(c.Row - a.Row)
	return abx*acy - aby*acx
}

// InTriangle reports whether z lies in the closed triangle (a, b, c): on an
// edge or strictly inside are both accepted. It returns ErrDegenerate when
// all three of z's signed areas against the triangle's edges are zero,
// since that means z is collinear with every edge of a degenerate query and
// "inside" is not well defined.
func InTriangle(a, b, c, z mesh.Point) (bool, error) {
	s1 := SignedArea(a, b, z)
	s2 := SignedArea(b, c, z)
	s3 := SignedArea(c, a, z)

	if s1 == 0 && s2 == 0 && s3 == 0 {
		return false, ErrDegenerate
	}

	hasPos := s1 > 0 || s2 > 0 || s3 > 0
	hasNeg := s1 < 0 || s2 < 0 || s3 < 0
	return !(hasPos && hasNeg), nil
}

// Interpolate returns the z value of the plane through p1, p2, p3 at (x, y),
// via the determinant form of the plane equation. The denominator
// determinant is non-zero by the triangle's non-collinearity invariant (I1).
func Interpolate(p1, p2, p3 mesh.Point, x, y float64) float64 {
	x1, y1, z1 := float64(p1.Col), float64(p1.Row), p1.Z
	x2, y2, z2 := float64(p2.Col), float64(p2.Row), p2.Z
	x3, y3, z3 := float64(p3.Col), float64(p3.Row), p3.Z

	// Normal of the plane through the three points via the cross product
	// of two edge vectors, expressed through 2x2 determinants.
	a := (y2-y1)*(z3-z1) - (z2-z1)*(y3-y1)
	b := (z2-z1)*(x3-x1) - (x2-x1)*(z3-z1)
	c := (x2-x1)*(y3-y1) - (y2-y1)*(x3-x1)

	// c is the denominator determinant (twice the triangle's planar area
	// projected on XY); non-zero by I1.
	return z1 - (a*(x-x1)+b*(y-y1))/c
}

// Error returns the absolute deviation between a raster sample's recorded Z
// and the plane interpolation of the triangle at the sample's (x, y).
func Error(sample mesh.Sample, p1, p2, p3 mesh.Point) float64 {
	z := Interpolate(p1, p2, p3, float64(sample.Col), float64(sample.Row))
	return math.Abs(float64(sample.Z) - z)
}

// InCircumcircle reports whether d lies on or inside the circumcircle of
// triangle (p1, p2, p3), with an inclusive epsCirc tolerance, using the
// standard perpendicular-bisector intersection. The bisector equations are
// solved as a 2x2 linear system, so no slope and no division by a row delta
// is involved.
func InCircumcircle(d, p1, p2, p3 mesh.Point) bool {
	cx, cy, r2 := circumcircle(p1, p2, p3)
	dx := float64(d.Col) - cx
	dy := float64(d.Row) - cy
	dist2 := dx*dx + dy*dy
	return dist2 <= r2+epsCirc
}

// circumcircle returns the center (cx, cy) and squared radius of the circle
// through p1, p2, p3 from the perpendicular bisectors of AB and BC, falling
// back to AB and AC when the first pair's determinant is nearly zero.
func circumcircle(p1, p2, p3 mesh.Point) (cx, cy, r2 float64) {
	ax, ay := float64(p1.Col), float64(p1.Row)
	bx, by := float64(p2.Col), float64(p2.Row)
	cx0, cy0 := float64(p3.Col), float64(p3.Row)

	// Midpoints of AB and BC, and the slopes of their perpendicular
	// bisectors (guarded against a zero Δrow between the pair).
	type bisector struct {
		mx, my float64 // midpoint
		dx, dy float64 // direction of the *original* edge (not the bisector)
	}
	ab := bisector{(ax + bx) / 2, (ay + by) / 2, bx - ax, by - ay}
	bc := bisector{(bx + cx0) / 2, (by + cy0) / 2, cx0 - bx, cy0 - by}

	// Solve for intersection of the two perpendicular bisector lines.
	// Perp bisector of edge (dx,dy) through midpoint (mx,my):
	//   dx*(x-mx) + dy*(y-my) = 0
	// Two such equations, solved directly to avoid slope-based division
	// blowing up when dy == 0 for one of the edges.
	a1, b1, c1 := ab.dx, ab.dy, ab.dx*ab.mx+ab.dy*ab.my
	a2, b2, c2 := bc.dx, bc.dy, bc.dx*bc.mx+bc.dy*bc.my

	det := a1*b2 - a2*b1
	if math.Abs(det) < 1e-12 {
		// p1,p2,p3 nearly collinear; fall back to the other edge pair
		// (AC), which by I1 cannot also be degenerate.
		ac := bisector{(ax + cx0) / 2, (ay + cy0) / 2, cx0 - ax, cy0 - ay}
		a2, b2, c2 = ac.dx, ac.dy, ac.dx*ac.mx+ac.dy*ac.my
		det = a1*b2 - a2*b1
	}

	cx = (c1*b2 - c2*b1) / det
	cy = (a1*c2 - a2*c1) / det

	rdx := ax - cx
	rdy := ay - cy
	r2 = rdx*rdx + rdy*rdy
	return cx, cy, r2
}
