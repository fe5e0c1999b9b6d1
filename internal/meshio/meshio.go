// Package meshio implements the finished mesh file of spec.md §6: a global
// header followed by one section per tile, each tile written via a single
// pass over its live triangles. Binary layout follows the teacher's
// internal/pmtiles/header.go convention of packing fixed-width
// little-endian fields into a reused buffer rather than calling
// encoding/binary.Write per field.
package meshio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pspoerri/tinmesh/internal/mesh"
	"github.com/pspoerri/tinmesh/internal/tilemesh"
)

// markerZ is the sentinel elevation value a tile's leading marker record
// carries, distinguishing it from any real vertex record a reader might
// otherwise confuse it with; grounded on the reference implementation's own
// -9999 tile-boundary sentinel in tin.c's writeTinTile.
const markerZ = -9999.0

// GlobalHeader is spec.md §6's "single binary file with a global header".
type GlobalHeader struct {
	Cols, Rows       int32
	OriginX, OriginY float64
	CellSize         float64
	TileCount        int32
	TotalTriangles   int32
	TotalPoints      int32
	TileSide         int32
	MinZ, MaxZ       float64
	NoData           float64
}

const globalHeaderSize = 4 + 4 + 8 + 8 + 8 + 4 + 4 + 4 + 4 + 8 + 8 + 8

// WriteGlobalHeader serialises h as globalHeaderSize little-endian bytes.
func WriteGlobalHeader(w io.Writer, h GlobalHeader) error {
	buf := make([]byte, globalHeaderSize)
	o := 0
	putI32 := func(v int32) { binary.LittleEndian.PutUint32(buf[o:], uint32(v)); o += 4 }
	putF64 := func(v float64) { binary.LittleEndian.PutUint64(buf[o:], math.Float64bits(v)); o += 8 }

	putI32(h.Cols)
	putI32(h.Rows)
	putF64(h.OriginX)
	putF64(h.OriginY)
	putF64(h.CellSize)
	putI32(h.TileCount)
	putI32(h.TotalTriangles)
	putI32(h.TotalPoints)
	putI32(h.TileSide)
	putF64(h.MinZ)
	putF64(h.MaxZ)
	putF64(h.NoData)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("meshio: writing global header: %w", err)
	}
	return nil
}

// ReadGlobalHeader is WriteGlobalHeader's exact inverse.
func ReadGlobalHeader(r io.Reader) (GlobalHeader, error) {
	buf := make([]byte, globalHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return GlobalHeader{}, fmt.Errorf("meshio: reading global header: %w", err)
	}
	o := 0
	getI32 := func() int32 { v := int32(binary.LittleEndian.Uint32(buf[o:])); o += 4; return v }
	getF64 := func() float64 { v := math.Float64frombits(binary.LittleEndian.Uint64(buf[o:])); o += 8; return v }

	var h GlobalHeader
	h.Cols = getI32()
	h.Rows = getI32()
	h.OriginX = getF64()
	h.OriginY = getF64()
	h.CellSize = getF64()
	h.TileCount = getI32()
	h.TotalTriangles = getI32()
	h.TotalPoints = getI32()
	h.TileSide = getI32()
	h.MinZ = getF64()
	h.MaxZ = getF64()
	h.NoData = getF64()
	return h, nil
}

// vertexOrder is the deduplicated per-tile vertex order spec.md §6
// prescribes — interior, right-boundary, bottom-boundary, the left
// neighbour's right-boundary (excluding shared corners), the top
// neighbour's bottom-boundary (excluding shared corners) — with the tile's
// four corners prepended, since every triangle in the tile's initial mesh
// references a corner and spec.md's list has no other section for them to
// come from.
func vertexOrder(t *tilemesh.Tile) []mesh.PointID {
	order := make([]mesh.PointID, 0, 4+len(t.Interior)+len(t.RightBoundary)+len(t.BottomBoundary)+len(t.ReplayedLeft)+len(t.ReplayedTop))
	order = append(order, t.Corners[:]...)
	order = append(order, t.Interior...)
	order = append(order, t.RightBoundary...)
	order = append(order, t.BottomBoundary...)
	order = append(order, t.ReplayedLeft...)
	order = append(order, t.ReplayedTop...)
	return order
}

// WriteTile writes one tile's marker, tile header, and triangle records.
// Grounded on writeTinTile in tin.c, with the simplification described in
// internal/tilemesh: a single exactly-once pass over live triangles
// (tilemesh.Tile.Each) assigns each triangle a stable index on first sight
// and emits its three vertex records together, rather than the reference
// implementation's three-visits-per-triangle edge walk.
func WriteTile(w io.Writer, t *tilemesh.Tile) (numTris, numPoints int32, err error) {
	order := vertexOrder(t)
	indexOf := make(map[mesh.PointID]int32, len(order))
	for i, id := range order {
		indexOf[id] = int32(i)
	}
	numPoints = int32(len(order))
	numTris = int32(t.Count())

	if err := writeMarker(w, numTris); err != nil {
		return 0, 0, err
	}
	if err := writeTileHeader(w, t, numTris, numPoints); err != nil {
		return 0, 0, err
	}

	stable := make(map[mesh.TriangleHandle]int32, numTris)
	next := int32(0)
	t.Each(func(h mesh.TriangleHandle) {
		stable[h] = next
		next++
	})

	buf := make([]byte, 20) // one vertex record: x,y int32 + z float64 + index int32
	var writeErr error
	t.Each(func(h mesh.TriangleHandle) {
		if writeErr != nil {
			return
		}
		tri := t.Arena.Tri(h)
		for _, pid := range [3]mesh.PointID{tri.P1, tri.P2, tri.P3} {
			vi, ok := indexOf[pid]
			if !ok {
				writeErr = fmt.Errorf("meshio: vertex %d has no assigned index in tile's vertex order", pid)
				return
			}
			if err := writeVertexRecord(w, buf, t.Arena.Point(pid), vi); err != nil {
				writeErr = err
				return
			}
		}
		if err := writeInt32(w, buf[:4], stable[h]); err != nil {
			writeErr = err
		}
	})
	return numTris, numPoints, writeErr
}

func writeMarker(w io.Writer, numTris int32) error {
	buf := make([]byte, 20)
	zero := mesh.Point{Row: 0, Col: 0, Z: markerZ}
	for i := 0; i < 3; i++ {
		if err := writeVertexRecord(w, buf, zero, 0); err != nil {
			return fmt.Errorf("meshio: writing tile marker record %d: %w", i, err)
		}
	}
	triMarker := numTris + 10
	if err := writeInt32(w, buf[:4], triMarker); err != nil {
		return fmt.Errorf("meshio: writing tile marker sentinel: %w", err)
	}
	return nil
}

func writeTileHeader(w io.Writer, t *tilemesh.Tile, numTris, numPoints int32) error {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf[0:], uint32(t.IOffset))
	binary.LittleEndian.PutUint32(buf[4:], uint32(t.JOffset))
	binary.LittleEndian.PutUint32(buf[8:], uint32(t.NRows))
	binary.LittleEndian.PutUint32(buf[12:], uint32(t.NCols))
	binary.LittleEndian.PutUint32(buf[16:], uint32(numTris))
	binary.LittleEndian.PutUint32(buf[20:], uint32(numPoints))
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("meshio: writing tile header: %w", err)
	}
	return nil
}

func writeVertexRecord(w io.Writer, buf []byte, p mesh.Point, index int32) error {
	binary.LittleEndian.PutUint32(buf[0:], uint32(p.Col))
	binary.LittleEndian.PutUint32(buf[4:], uint32(p.Row))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(p.Z))
	binary.LittleEndian.PutUint32(buf[16:], uint32(index))
	if _, err := w.Write(buf[:20]); err != nil {
		return fmt.Errorf("meshio: writing vertex record: %w", err)
	}
	return nil
}

func writeInt32(w io.Writer, buf []byte, v int32) error {
	binary.LittleEndian.PutUint32(buf[:4], uint32(v))
	if _, err := w.Write(buf[:4]); err != nil {
		return fmt.Errorf("meshio: writing int32 field: %w", err)
	}
	return nil
}
