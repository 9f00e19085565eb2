package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_attempts_total", Help: "Login attempts by method and result"},
		[]string{"method", "result"},
	)
	PublicIDConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "public_id_conflicts_total", Help: "Public id allocations lost to a concurrent writer"},
	)
	SessionsDangling = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sessions_dangling_total", Help: "Sessions dropped because their user no longer exists"},
	)
)

var once sync.Once

// MustRegister is safe to call more than once (tests build several routers).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(RequestsTotal, ReqDuration, InFlight, AuthAttempts, PublicIDConflicts, SessionsDangling)
	})
}
