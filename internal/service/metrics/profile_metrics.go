package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ProfileLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Subsystem: "profile",
			Name:      "latency_seconds",
			Help:      "Latency of profile endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ProfileErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "profile",
			Name:      "errors_total",
			Help:      "Errors by profile endpoint",
		},
		[]string{"endpoint"},
	)

	ProfileCacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "profile",
			Name:      "cache_events_total",
			Help:      "Profile cache events by kind",
		},
		[]string{"kind"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ProfileLatency, ProfileErrors, ProfileCacheEvents)
	})
}
