package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_cache_lookups_total",
		Help: "Cache lookups by view and result (hit, miss, error).",
	}, []string{"view", "result"})

	lockAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_recent_lock_attempts_total",
		Help: "Stampede lock acquisition attempts by outcome (acquired, contended, error).",
	}, []string{"outcome"})

	recentRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_recent_recomputes_total",
		Help: "Recent view rebuilds served from the store.",
	})

	sideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_side_effect_failures_total",
		Help: "Post-commit actions that failed, by action.",
	}, []string{"action"})
)
