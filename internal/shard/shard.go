// Package shard implements the per-tile sample shard: a flat binary file of
// fixed-width signed elevations, row-major within the tile, that the
// orchestrator materialises once per tile before refinement begins. Grounded
// on the teacher's WriteIndexTo in internal/tile/diskstore.go, which writes
// fixed-width little-endian records into a reused buffer rather than calling
// binary.Write per field.
package shard

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pspoerri/tinmesh/internal/mesh"
)

// ElementWidth is the fixed, compile-time-determined width in bytes of one
// elevation record. Four bytes (a little-endian int32) matches
// mesh.NoDataZ's int32-min sentinel exactly, the "four-byte-or-similar"
// width spec.md's external-interface section calls for.
const ElementWidth = 4

// Shard is one tile's row-major block of raster samples, already extracted
// from the full raster by the orchestrator's one-pass materialisation step.
// It is read, refined against, and discarded; it never outlives one tile's
// refinement.
type Shard struct {
	NRows, NCols int32
	data         []int32 // row-major, length NRows*NCols
}

// New allocates an empty shard of the given dimensions.
func New(nrows, ncols int32) *Shard {
	return &Shard{
		NRows: nrows,
		NCols: ncols,
		data:  make([]int32, int(nrows)*int(ncols)),
	}
}

// Set records the elevation at local (row, col), where mesh.NoDataZ marks a
// nodata sample.
func (s *Shard) Set(row, col int32, z int32) {
	s.data[int(row)*int(s.NCols)+int(col)] = z
}

// At returns the elevation at local (row, col) and whether it is nodata.
func (s *Shard) At(row, col int32) (z int32, nodata bool) {
	v := s.data[int(row)*int(s.NCols)+int(col)]
	return v, v == mesh.NoDataZ
}

// WriteTo serialises the shard as NRows*NCols little-endian int32 records in
// row-major order, matching the external shard format of spec.md §6.
func (s *Shard) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, ElementWidth)
	var written int64
	for _, v := range s.data {
		binary.LittleEndian.PutUint32(buf, uint32(v))
		n, err := w.Write(buf)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("shard: write record: %w", err)
		}
	}
	return written, nil
}

// ReadFrom fills an already-sized shard from r, which must hold exactly
// NRows*NCols little-endian int32 records.
func (s *Shard) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, ElementWidth)
	var read int64
	for i := range s.data {
		n, err := io.ReadFull(r, buf)
		read += int64(n)
		if err != nil {
			return read, fmt.Errorf("shard: read record %d: %w", i, err)
		}
		s.data[i] = int32(binary.LittleEndian.Uint32(buf))
	}
	return read, nil
}
