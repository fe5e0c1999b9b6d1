package meshio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MeshData is a fully decoded mesh file: the global header plus every
// tile's decoded contents in file order.
type MeshData struct {
	Header GlobalHeader
	Tiles  []*TileData
}

// Load reads a complete mesh file written by WriteGlobalHeader followed by
// Header.TileCount calls to WriteTile, the inverse of that streaming write
// sequence. It is the whole-file convenience ReadTile itself does not
// provide, used by a mesh inspector and by round-trip tests (P5).
func Load(r io.Reader) (*MeshData, error) {
	h, err := ReadGlobalHeader(r)
	if err != nil {
		return nil, err
	}
	md := &MeshData{Header: h, Tiles: make([]*TileData, 0, h.TileCount)}
	for i := int32(0); i < h.TileCount; i++ {
		td, err := ReadTile(r)
		if err != nil {
			return nil, fmt.Errorf("meshio: reading tile %d/%d: %w", i, h.TileCount, err)
		}
		md.Tiles = append(md.Tiles, td)
	}
	return md, nil
}

// Vertex is one decoded vertex record: grid coordinates, elevation, and the
// index this tile's triangle records reference it by.
type Vertex struct {
	Row, Col int32
	Z        float64
	Index    int32
}

// Triangle is one decoded triangle record: its three vertex indices (into
// the tile's Points, by Vertex.Index) and its own stable index.
type Triangle struct {
	V1, V2, V3 int32
	Index      int32
}

// TileData is one tile's fully decoded contents, the load-side counterpart
// to WriteTile. It holds plain slices rather than a live tilemesh.Tile,
// since a loaded mesh is terminal output (inspection, rendering, diffing
// against a re-run) and never re-enters refinement.
type TileData struct {
	IOffset, JOffset int32
	NRows, NCols     int32
	Points           []Vertex // deduplicated by Index, in ascending Index order
	Triangles        []Triangle
}

// ReadTile reads one tile's marker, header, and triangle records, the exact
// inverse of WriteTile: every vertex record reachable from a triangle is
// collected once per distinct Index, and every triangle record becomes one
// Triangle.
func ReadTile(r io.Reader) (*TileData, error) {
	numTris, err := readMarker(r)
	if err != nil {
		return nil, err
	}

	td := &TileData{}
	if err := readTileHeader(r, td, numTris); err != nil {
		return nil, err
	}

	byIndex := make(map[int32]Vertex)
	buf := make([]byte, 20)

	for i := int32(0); i < numTris; i++ {
		var vids [3]int32
		for j := 0; j < 3; j++ {
			v, err := readVertexRecord(r, buf)
			if err != nil {
				return nil, fmt.Errorf("meshio: reading triangle %d vertex %d: %w", i, j, err)
			}
			if existing, ok := byIndex[v.Index]; ok && (existing.Row != v.Row || existing.Col != v.Col || existing.Z != v.Z) {
				return nil, fmt.Errorf("meshio: vertex index %d recorded with inconsistent coordinates", v.Index)
			}
			byIndex[v.Index] = v
			vids[j] = v.Index
		}
		triIndex, err := readInt32(r, buf[:4])
		if err != nil {
			return nil, fmt.Errorf("meshio: reading triangle %d index: %w", i, err)
		}
		td.Triangles = append(td.Triangles, Triangle{V1: vids[0], V2: vids[1], V3: vids[2], Index: triIndex})
	}

	td.Points = make([]Vertex, 0, len(byIndex))
	for _, v := range byIndex {
		td.Points = append(td.Points, v)
	}
	sortVerticesByIndex(td.Points)

	return td, nil
}

func sortVerticesByIndex(vs []Vertex) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j].Index < vs[j-1].Index; j-- {
			vs[j], vs[j-1] = vs[j-1], vs[j]
		}
	}
}

func readMarker(r io.Reader) (numTris int32, err error) {
	buf := make([]byte, 20)
	for i := 0; i < 3; i++ {
		if _, err := readVertexRecord(r, buf); err != nil {
			return 0, fmt.Errorf("meshio: reading tile marker record %d: %w", i, err)
		}
	}
	triMarker, err := readInt32(r, buf[:4])
	if err != nil {
		return 0, fmt.Errorf("meshio: reading tile marker sentinel: %w", err)
	}
	return triMarker - 10, nil
}

func readTileHeader(r io.Reader, td *TileData, numTris int32) error {
	buf := make([]byte, 24)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("meshio: reading tile header: %w", err)
	}
	td.IOffset = int32(binary.LittleEndian.Uint32(buf[0:]))
	td.JOffset = int32(binary.LittleEndian.Uint32(buf[4:]))
	td.NRows = int32(binary.LittleEndian.Uint32(buf[8:]))
	td.NCols = int32(binary.LittleEndian.Uint32(buf[12:]))
	gotTris := int32(binary.LittleEndian.Uint32(buf[16:]))
	if gotTris != numTris {
		return fmt.Errorf("meshio: tile header triangle count %d disagrees with marker sentinel %d", gotTris, numTris)
	}
	return nil
}

func readVertexRecord(r io.Reader, buf []byte) (Vertex, error) {
	if _, err := io.ReadFull(r, buf[:20]); err != nil {
		return Vertex{}, err
	}
	return Vertex{
		Col:   int32(binary.LittleEndian.Uint32(buf[0:])),
		Row:   int32(binary.LittleEndian.Uint32(buf[4:])),
		Z:     math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])),
		Index: int32(binary.LittleEndian.Uint32(buf[16:])),
	}, nil
}

func readInt32(r io.Reader, buf []byte) (int32, error) {
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:4])), nil
}
