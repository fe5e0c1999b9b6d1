package rasterio

import "testing"

func TestFlat(t *testing.T) {
	s := Flat(4, 5, 12.5)
	rows, cols := s.Dims()
	if rows != 4 || cols != 5 {
		t.Fatalf("Dims() = (%d,%d), want (4,5)", rows, cols)
	}
	z, nodata := s.At(2, 3)
	if nodata || z != 12.5 {
		t.Errorf("At(2,3) = (%v,%v), want (12.5,false)", z, nodata)
	}
	min, max := s.MinMax()
	if min != 12.5 || max != 12.5 {
		t.Errorf("MinMax() = (%v,%v), want (12.5,12.5)", min, max)
	}
}

func TestPlanar(t *testing.T) {
	s := Planar(10, 10)
	z, _ := s.At(3, 4)
	if z != 7 {
		t.Errorf("At(3,4) = %v, want 7", z)
	}
	min, max := s.MinMax()
	if min != 0 || max != 18 {
		t.Errorf("MinMax() = (%v,%v), want (0,18)", min, max)
	}
}

func TestConePeakAtCenter(t *testing.T) {
	s := Cone(21, 21, 10, 10, 100)
	z, _ := s.At(10, 10)
	if z != 100 {
		t.Errorf("At(center) = %v, want 100 (the peak)", z)
	}
	corner, _ := s.At(0, 0)
	if corner >= z {
		t.Errorf("At(corner) = %v, should be less than the peak %v", corner, z)
	}
}

func TestWithNoData(t *testing.T) {
	s := Flat(3, 3, 5).WithNoData(1, 1)
	_, nodata := s.At(1, 1)
	if !nodata {
		t.Errorf("At(1,1) after WithNoData(1,1): nodata = false, want true")
	}
	_, nodata = s.At(0, 0)
	if nodata {
		t.Errorf("At(0,0): nodata = true, want false (not the overridden cell)")
	}
}
