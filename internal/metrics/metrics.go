// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn outcomes.
const (
	OutcomePersisted = "persisted"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
	OutcomeConflict  = "conflict"
	OutcomeRejected  = "rejected"
)

// Degradable pipeline steps.
const (
	StepHistory  = "history"
	StepCondense = "condense"
	StepRetrieve = "retrieve"
	StepPersist  = "persist_assistant"
)

var (
	// TurnsTotal counts finished turns.
	// Labels: outcome (persisted, failed, canceled, conflict, rejected)
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docchat",
		Name:      "turns_total",
		Help:      "Total chat turns by outcome",
	}, []string{"outcome"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docchat",
		Name:      "turn_duration_seconds",
		Help:      "Wall time of a chat turn from acceptance to terminal state",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	TurnsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "docchat",
		Name:      "turns_in_flight",
		Help:      "Chat turns currently running",
	})

	RetrievedChunks = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docchat",
		Name:      "retrieved_chunks",
		Help:      "Chunks retrieved per turn",
		Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 20},
	})

	// DegradedSteps counts steps that failed without failing the turn.
	// Labels: step (history, condense, retrieve, persist_assistant)
	DegradedSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docchat",
		Name:      "degraded_steps_total",
		Help:      "Pipeline steps that fell back instead of failing the turn",
	}, []string{"step"})

	// UploadsTotal counts document uploads.
	// Labels: outcome (indexed, rejected, failed)
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docchat",
		Name:      "uploads_total",
		Help:      "Document uploads by outcome",
	}, []string{"outcome"})

	IndexedChunks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docchat",
		Name:      "indexed_chunks_total",
		Help:      "Chunks written to the vector index",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
