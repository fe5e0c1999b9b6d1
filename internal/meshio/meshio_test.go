package meshio

import (
	"bytes"
	"testing"

	"github.com/pspoerri/tinmesh/internal/mesh"
	"github.com/pspoerri/tinmesh/internal/tilemesh"
)

func simpleTile() *tilemesh.Tile {
	corners := [4]mesh.Point{
		{Row: 0, Col: 0, Z: 1},  // NW
		{Row: 0, Col: 9, Z: 2},  // NE
		{Row: 9, Col: 0, Z: 3},  // SW
		{Row: 9, Col: 9, Z: 4},  // SE
	}
	return tilemesh.New(0, 0, 10, 10, corners, 16)
}

func TestWriteReadTileRoundTrip(t *testing.T) {
	tile := simpleTile()
	// A fresh tile has exactly its two initial triangles and four corners,
	// no promoted vertices yet — enough to exercise the full write/read
	// path without needing internal/refine to drive a real split.
	tile.SortBoundaries()

	var buf bytes.Buffer
	numTris, numPoints, err := WriteTile(&buf, tile)
	if err != nil {
		t.Fatalf("WriteTile: %v", err)
	}
	if numTris != 2 {
		t.Fatalf("WriteTile numTris = %d, want 2", numTris)
	}
	if numPoints != 4 {
		t.Fatalf("WriteTile numPoints = %d, want 4 (just the corners)", numPoints)
	}

	td, err := ReadTile(&buf)
	if err != nil {
		t.Fatalf("ReadTile: %v", err)
	}
	if len(td.Triangles) != 2 {
		t.Fatalf("ReadTile got %d triangles, want 2", len(td.Triangles))
	}
	if len(td.Points) != 4 {
		t.Fatalf("ReadTile got %d points, want 4", len(td.Points))
	}
	if td.IOffset != 0 || td.JOffset != 0 || td.NRows != 10 || td.NCols != 10 {
		t.Errorf("ReadTile header = %+v, want offsets 0,0 and size 10x10", td)
	}

	// Every triangle's three vertex indices must resolve to a decoded point.
	byIndex := make(map[int32]Vertex, len(td.Points))
	for _, v := range td.Points {
		byIndex[v.Index] = v
	}
	for _, tri := range td.Triangles {
		for _, vi := range [3]int32{tri.V1, tri.V2, tri.V3} {
			if _, ok := byIndex[vi]; !ok {
				t.Errorf("triangle %d references vertex index %d with no decoded point", tri.Index, vi)
			}
		}
	}
}

func TestGlobalHeaderRoundTrip(t *testing.T) {
	h := GlobalHeader{
		Cols: 100, Rows: 200,
		OriginX: 12.5, OriginY: -4.25,
		CellSize:  0.5,
		TileCount: 6, TileSide: 64,
		MinZ: 10, MaxZ: 2500, NoData: -9999,
	}

	var buf bytes.Buffer
	if err := WriteGlobalHeader(&buf, h); err != nil {
		t.Fatalf("WriteGlobalHeader: %v", err)
	}
	got, err := ReadGlobalHeader(&buf)
	if err != nil {
		t.Fatalf("ReadGlobalHeader: %v", err)
	}
	if got != h {
		t.Errorf("ReadGlobalHeader = %+v, want %+v", got, h)
	}
}

func TestLoadWholeFile(t *testing.T) {
	var buf bytes.Buffer
	header := GlobalHeader{Cols: 10, Rows: 10, TileCount: 1, TileSide: 10}
	if err := WriteGlobalHeader(&buf, header); err != nil {
		t.Fatalf("WriteGlobalHeader: %v", err)
	}
	tile := simpleTile()
	tile.SortBoundaries()
	if _, _, err := WriteTile(&buf, tile); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}

	md, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(md.Tiles) != 1 {
		t.Fatalf("Load got %d tiles, want 1", len(md.Tiles))
	}
	if md.Header != header {
		t.Errorf("Load header = %+v, want %+v", md.Header, header)
	}
}
