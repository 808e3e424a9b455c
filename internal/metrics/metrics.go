package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClientRetries tracks retried metastore calls per method
	ClientRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hive_client_retries_total",
			Help: "Total number of retried metastore calls",
		},
		[]string{"method"},
	)

	// ClientReconnects tracks forced reconnects of the metastore connection
	ClientReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hive_client_reconnects_total",
			Help: "Total number of forced metastore reconnects",
		},
	)

	// CallLatency tracks successful metastore call latency per method
	CallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hive_call_latency_seconds",
			Help:    "Metastore call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ServerRequests tracks served requests per method and outcome
	ServerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hive_server_requests_total",
			Help: "Total number of requests served by the metastore",
		},
		[]string{"method", "status"},
	)

	// CacheHits tracks table cache hits and misses
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hive_table_cache_requests_total",
			Help: "Table cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)
