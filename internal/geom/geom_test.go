package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pspoerri/tinmesh/internal/mesh"
)

func pt(row, col int32, z float64) mesh.Point { return mesh.Point{Row: row, Col: col, Z: z} }

func TestSignedArea(t *testing.T) {
	a, b, c := pt(0, 0, 0), pt(0, 10, 0), pt(10, 0, 0)
	assert.NotZero(t, SignedArea(a, b, c), "non-degenerate triangle")
	assert.Zero(t, SignedArea(a, b, pt(0, 20, 0)), "three collinear points")
}

func TestInTriangleInsideAndOutside(t *testing.T) {
	a, b, c := pt(0, 0, 0), pt(0, 10, 0), pt(10, 0, 0)

	inside, err := InTriangle(a, b, c, pt(2, 2, 0))
	assert.NoError(t, err)
	assert.True(t, inside, "interior point")

	outside, err := InTriangle(a, b, c, pt(20, 20, 0))
	assert.NoError(t, err)
	assert.False(t, outside, "exterior point")

	onEdge, err := InTriangle(a, b, c, pt(0, 5, 0))
	assert.NoError(t, err)
	assert.True(t, onEdge, "point exactly on an edge")
}

func TestInTriangleDegenerate(t *testing.T) {
	a, b, c := pt(0, 0, 0), pt(0, 10, 0), pt(0, 20, 0) // collinear triangle
	_, err := InTriangle(a, b, c, pt(0, 5, 0))
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestInterpolatePlane(t *testing.T) {
	// A plane that is exactly z = x + y at the three corners should
	// interpolate exactly at their centroid too.
	p1 := pt(0, 0, 0)
	p2 := pt(0, 10, 10)
	p3 := pt(10, 0, 10)
	got := Interpolate(p1, p2, p3, 10.0/3, 10.0/3)
	want := 10.0/3 + 10.0/3
	assert.InDelta(t, want, got, 1e-9)
}

func TestInCircumcircle(t *testing.T) {
	// Right triangle with legs of length 10 on the axes; circumcircle is
	// centered at (5, 5) with radius 5*sqrt(2).
	p1, p2, p3 := pt(0, 0, 0), pt(0, 10, 0), pt(10, 0, 0)
	center := pt(5, 5, 0) // well inside
	assert.True(t, InCircumcircle(center, p1, p2, p3), "center point should be inside")

	far := pt(1000, 1000, 0)
	assert.False(t, InCircumcircle(far, p1, p2, p3), "far point should be outside")
}
