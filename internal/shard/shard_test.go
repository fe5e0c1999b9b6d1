package shard

import (
	"bytes"
	"testing"

	"github.com/pspoerri/tinmesh/internal/mesh"
)

func TestShardRoundTrip(t *testing.T) {
	sh := New(3, 4)
	want := [][]int32{
		{10, 11, 12, 13},
		{20, 21, 22, 23},
		{30, 31, 32, 33},
	}
	for row := int32(0); row < 3; row++ {
		for col := int32(0); col < 4; col++ {
			sh.Set(row, col, want[row][col])
		}
	}

	var buf bytes.Buffer
	n, err := sh.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if want := int64(3 * 4 * ElementWidth); n != want {
		t.Fatalf("WriteTo wrote %d bytes, want %d", n, want)
	}

	got := New(3, 4)
	if _, err := got.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	for row := int32(0); row < 3; row++ {
		for col := int32(0); col < 4; col++ {
			z, nodata := got.At(row, col)
			if nodata {
				t.Fatalf("At(%d,%d) unexpectedly nodata", row, col)
			}
			if z != want[row][col] {
				t.Errorf("At(%d,%d) = %d, want %d", row, col, z, want[row][col])
			}
		}
	}
}

func TestShardNoData(t *testing.T) {
	sh := New(1, 1)
	sh.Set(0, 0, mesh.NoDataZ)
	z, nodata := sh.At(0, 0)
	if !nodata {
		t.Fatalf("At: nodata = false, want true (z=%d)", z)
	}
}
