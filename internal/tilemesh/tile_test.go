package tilemesh

import (
	"testing"

	"github.com/pspoerri/tinmesh/internal/mesh"
)

func newTestTile() *Tile {
	corners := [4]mesh.Point{
		{Row: 0, Col: 0, Z: 1},
		{Row: 0, Col: 9, Z: 2},
		{Row: 9, Col: 0, Z: 3},
		{Row: 9, Col: 9, Z: 4},
	}
	return New(0, 0, 10, 10, corners, 16)
}

func TestNewInitialTriangles(t *testing.T) {
	tile := newTestTile()
	if got := tile.Count(); got != 2 {
		t.Fatalf("new tile has %d live triangles, want 2", got)
	}
}

func TestLocateFindsContainingTriangle(t *testing.T) {
	tile := newTestTile()

	inside := mesh.Point{Row: 5, Col: 2, Z: 0} // lower-left half, under the nw-se diagonal
	h, ok := tile.Locate(inside)
	if !ok {
		t.Fatalf("Locate(%v) = not found, want a containing triangle", inside)
	}
	tri := tile.Arena.Tri(h)
	if tri.State == mesh.StateTombstoned {
		t.Fatalf("Locate returned a tombstoned triangle")
	}
}

func TestLocateOnSharedDiagonal(t *testing.T) {
	tile := newTestTile()
	onDiagonal := mesh.Point{Row: 5, Col: 5, Z: 0} // nw-se diagonal itself
	if _, ok := tile.Locate(onDiagonal); !ok {
		t.Errorf("Locate on the shared diagonal should hit one of the two triangles")
	}
}

func TestOnBoundary(t *testing.T) {
	tile := newTestTile()
	top := mesh.Point{Row: 0, Col: 0, Z: 0}
	topEdge := mesh.Point{Row: 0, Col: 5, Z: 0}
	if !tile.OnBoundary(top, topEdge) {
		t.Errorf("OnBoundary: top row edge should be on boundary")
	}
	interior1 := mesh.Point{Row: 4, Col: 4, Z: 0}
	interior2 := mesh.Point{Row: 5, Col: 5, Z: 0}
	if tile.OnBoundary(interior1, interior2) {
		t.Errorf("OnBoundary: interior edge should not be on boundary")
	}
}
