// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for rule evaluation and AST cache behavior (SPEC_FULL.md §9.4).
var (
	evaluateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ruleengine_evaluate_duration_seconds",
		Help:    "Histogram of single-rule evaluation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ruleengine_evaluations_total",
		Help: "Total number of rule evaluations, labeled by match outcome",
	}, []string{"matched"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ruleengine_cache_hits_total",
		Help: "Total AST cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ruleengine_cache_misses_total",
		Help: "Total AST cache misses (absent or TTL-expired)",
	})

	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ruleengine_cache_evictions_total",
		Help: "Total AST cache entries evicted for capacity or TTL",
	})
)

// recordEvaluation records one evaluateRule call's latency and outcome.
func recordEvaluation(duration time.Duration, matched bool) {
	evaluateDuration.Observe(duration.Seconds())
	label := "false"
	if matched {
		label = "true"
	}
	evaluationsTotal.WithLabelValues(label).Inc()
}

// recordCacheStats samples a cache's cumulative hit/miss/eviction counters
// into the package-level Prometheus counters. Called after every normalize
// so the exported metrics stay close to real time without the cache itself
// depending on prometheus.
func recordCacheStats(hits, misses, evictions uint64, prevHits, prevMisses, prevEvictions *uint64) {
	if hits > *prevHits {
		cacheHits.Add(float64(hits - *prevHits))
	}
	if misses > *prevMisses {
		cacheMisses.Add(float64(misses - *prevMisses))
	}
	if evictions > *prevEvictions {
		cacheEvictions.Add(float64(evictions - *prevEvictions))
	}
	*prevHits, *prevMisses, *prevEvictions = hits, misses, evictions
}
