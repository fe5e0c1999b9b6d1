package rasterio

import "math"

// SyntheticSource is an in-memory RasterSource for tests, mirroring
// spec.md §8's concrete end-to-end scenarios (flat, planar tilt, cone,
// single nodata cell) without needing a GeoTIFF fixture on disk.
type SyntheticSource struct {
	rows, cols int
	z          func(row, col int) (float64, bool)
	nodata     float64
	min, max   float64
}

// Flat returns a raster of the given size where every sample is z.
func Flat(rows, cols int, z float64) *SyntheticSource {
	return &SyntheticSource{
		rows: rows, cols: cols,
		z:      func(int, int) (float64, bool) { return z, false },
		nodata: math.MinInt32,
		min:    z, max: z,
	}
}

// Planar returns a raster where z(row, col) = row + col, spec.md §8
// scenario 2's "z = x + y" tilt.
func Planar(rows, cols int) *SyntheticSource {
	return &SyntheticSource{
		rows: rows, cols: cols,
		z:      func(row, col int) (float64, bool) { return float64(row + col), false },
		nodata: math.MinInt32,
		min:    0, max: float64(rows - 1 + cols - 1),
	}
}

// Cone returns a raster where z(row, col) = peak - (|row-cr| + |col-cc|),
// spec.md §8 scenario 3's pyramid.
func Cone(rows, cols int, cr, cc int, peak float64) *SyntheticSource {
	min, max := peak, peak
	zf := func(row, col int) (float64, bool) {
		d := math.Abs(float64(row-cr)) + math.Abs(float64(col-cc))
		return peak - d, false
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v, _ := zf(r, c)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return &SyntheticSource{rows: rows, cols: cols, z: zf, nodata: math.MinInt32, min: min, max: max}
}

// WithNoData overrides a single cell to read back as nodata, spec.md §8
// scenario 4.
func (s *SyntheticSource) WithNoData(row, col int) *SyntheticSource {
	inner := s.z
	s.z = func(r, c int) (float64, bool) {
		if r == row && c == col {
			return s.nodata, true
		}
		return inner(r, c)
	}
	return s
}

func (s *SyntheticSource) Dims() (rows, cols int) { return s.rows, s.cols }

func (s *SyntheticSource) At(row, col int) (float64, bool) {
	z, nd := s.z(row, col)
	if nd {
		return s.nodata, true
	}
	return z, false
}

func (s *SyntheticSource) GeoTransform() GeoTransform {
	return GeoTransform{PixelSizeX: 1, PixelSizeY: 1}
}
func (s *SyntheticSource) NoData() float64            { return s.nodata }
func (s *SyntheticSource) MinMax() (float64, float64) { return s.min, s.max }
