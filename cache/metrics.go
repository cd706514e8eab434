package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passport",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by collection and result (hit or miss).",
	}, []string{"collection", "result"})

	invalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passport",
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Collection invalidations.",
	}, []string{"collection"})
)

func observe(collection string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	lookups.WithLabelValues(collection, result).Inc()
}
