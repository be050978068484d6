package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "thrx"

// Turn outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

var (
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Conversation turns by route kind and outcome.",
	}, []string{"route", "outcome"})

	TurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "turn_duration_seconds",
		Help:      "Wall time of a turn from append to final save.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"route"})

	ActiveTurns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_turns",
		Help:      "Turns currently generating.",
	})

	RetrievalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrievals_total",
		Help:      "Web retrievals by phase (initial, fallback) and result (hit, empty, error).",
	}, []string{"phase", "result"})

	FallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refusal_fallbacks_total",
		Help:      "Local answers regenerated after a knowledge refusal.",
	})

	PersistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failures_total",
		Help:      "Chat snapshot saves that failed and were left for the next save.",
	})

	ModelLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "model_load_duration_seconds",
		Help:      "Local model load time.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
	}, []string{"model", "result"})
)
