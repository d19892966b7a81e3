package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics, exposed alongside the HTTP metrics on /metrics
var (
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "food_validations_total",
			Help: "Total number of food validations by resulting severity",
		},
		[]string{"severity"},
	)

	validationAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "food_validation_alerts_total",
			Help: "Total number of validation alerts emitted by alert type",
		},
		[]string{"type"},
	)

	tagCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "client_tag_cache_hits_total",
			Help: "Total number of client tag cache hits",
		},
	)

	tagCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "client_tag_cache_misses_total",
			Help: "Total number of client tag cache misses (including expired entries)",
		},
	)

	tagCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "client_tag_cache_evictions_total",
			Help: "Total number of client tag cache entries evicted by capacity pressure",
		},
	)
)
