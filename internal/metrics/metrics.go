package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperer",
			Name:      "api_requests_total",
			Help:      "Total API requests by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	apiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "whisperer",
			Name:      "api_request_duration_seconds",
			Help:      "Duration of API requests by endpoint",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperer",
			Name:      "retries_total",
			Help:      "Total retried attempts by endpoint",
		},
		[]string{"endpoint"},
	)

	pollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "whisperer",
			Name:      "status_polls_total",
			Help:      "Total whisper-status polls issued while waiting for completion",
		},
	)
)

// Init registers collectors. Call once from the embedding application if
// metrics exposure is wanted; recording works either way.
func Init() {
	prometheus.MustRegister(apiRequests, apiLatency, retriesTotal, pollsTotal)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveRequest(endpoint, result string, dur time.Duration) {
	apiRequests.WithLabelValues(endpoint, result).Inc()
	apiLatency.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func IncRetry(endpoint string) { retriesTotal.WithLabelValues(endpoint).Inc() }
func IncPoll()                 { pollsTotal.Inc() }
