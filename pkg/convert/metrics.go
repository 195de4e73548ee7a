package convert

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for conversions.
type Metrics struct {
	// Duration of each pipeline stage
	StageDuration *prometheus.HistogramVec

	// Regions replaced by their connected components
	RegionsSplit prometheus.Counter

	// Null solids met during evaluation, by whether they were recovered
	NullSolids *prometheus.CounterVec
}

// NewMetrics registers the conversion metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zonecsg_stage_duration_seconds",
			Help:    "Duration of conversion pipeline stages",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 120},
		}, []string{"stage"}),

		RegionsSplit: f.NewCounter(prometheus.CounterOpts{
			Name: "zonecsg_regions_split_total",
			Help: "Total regions split into disjoint components",
		}),

		NullSolids: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zonecsg_null_solids_total",
			Help: "Total null solids found during evaluation",
		}, []string{"recovered"}),
	}
}

// ObserveStage records the duration of a stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementSplit records a split region.
func (m *Metrics) IncrementSplit() {
	if m != nil {
		m.RegionsSplit.Inc()
	}
}

// IncrementNull records a null solid.
func (m *Metrics) IncrementNull(recovered bool) {
	if m != nil {
		m.NullSolids.WithLabelValues(strconv.FormatBool(recovered)).Inc()
	}
}
