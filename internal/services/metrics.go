package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service-level Prometheus collectors.
type Metrics struct {
	UploadsTotal            *prometheus.CounterVec
	RowsDroppedTotal        *prometheus.CounterVec
	DuplicatesResolvedTotal prometheus.Counter
	ValuationRunsTotal      *prometheus.CounterVec
}

// NewMetrics registers the service collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealbase",
			Name:      "uploads_total",
			Help:      "Document uploads by kind and outcome.",
		}, []string{"kind", "status"}),
		RowsDroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealbase",
			Name:      "rows_dropped_total",
			Help:      "Rent roll rows excluded during classification, by rule.",
		}, []string{"category"}),
		DuplicatesResolvedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dealbase",
			Name:      "duplicates_resolved_total",
			Help:      "Duplicate unit rows collapsed during parsing.",
		}),
		ValuationRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealbase",
			Name:      "valuation_runs_total",
			Help:      "Valuation runs by outcome.",
		}, []string{"status"}),
	}
}
