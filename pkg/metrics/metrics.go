package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the collectors of one service. A nil *Recorder records nothing.
type Recorder struct {
	Requests      *prometheus.CounterVec
	LatencyMS     *prometheus.HistogramVec
	ProductChecks *prometheus.CounterVec
	TxRetries     *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

func New(service string, reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartflow",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cartflow",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "path"}),
		ProductChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartflow",
			Subsystem: service,
			Name:      "product_checks_total",
			Help:      "Remote product existence checks by result.",
		}, []string{"result"}),
		TxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartflow",
			Subsystem: service,
			Name:      "tx_retries_total",
			Help:      "Transactions retried after a stale-version conflict.",
		}, []string{"op"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartflow",
			Subsystem: service,
			Name:      "notifications_total",
			Help:      "Cancellation notifications by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(r.Requests, r.LatencyMS, r.ProductChecks, r.TxRetries, r.Notifications)
	return r
}

func (r *Recorder) ObserveRequest(method, path, status string, ms float64) {
	if r == nil {
		return
	}
	r.Requests.WithLabelValues(method, path, status).Inc()
	r.LatencyMS.WithLabelValues(method, path).Observe(ms)
}

func (r *Recorder) ProductCheck(result string) {
	if r == nil {
		return
	}
	r.ProductChecks.WithLabelValues(result).Inc()
}

func (r *Recorder) TxRetry(op string) {
	if r == nil {
		return
	}
	r.TxRetries.WithLabelValues(op).Inc()
}

func (r *Recorder) Notification(outcome string) {
	if r == nil {
		return
	}
	r.Notifications.WithLabelValues(outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
