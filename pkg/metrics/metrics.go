package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	CertificatesTotal   *prometheus.CounterVec
	VerificationsTotal  *prometheus.CounterVec
	BulkItemsTotal      *prometheus.CounterVec
	RequestsTotal       *prometheus.CounterVec
	DeliveriesTotal     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		CertificatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certhub",
			Subsystem: "certificates",
			Name:      "events_total",
			Help:      "Certificate lifecycle events.",
		}, []string{"event"}), // issued | revoked | reissued

		VerificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certhub",
			Subsystem: "verify",
			Name:      "requests_total",
			Help:      "Public verification lookups by outcome.",
		}, []string{"outcome"}), // valid | revoked | expired | not_found | tampered

		BulkItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certhub",
			Subsystem: "bulk",
			Name:      "items_total",
			Help:      "Bulk generation items by result.",
		}, []string{"result"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certhub",
			Subsystem: "approval",
			Name:      "decisions_total",
			Help:      "Approval queue decisions.",
		}, []string{"decision"}),

		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certhub",
			Subsystem: "delivery",
			Name:      "emails_total",
			Help:      "Certificate e-mails by kind and status.",
		}, []string{"kind", "status"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "certhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.CertificatesTotal,
		m.VerificationsTotal,
		m.BulkItemsTotal,
		m.RequestsTotal,
		m.DeliveriesTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) CertificateEvent(event string) {
	if m == nil {
		return
	}
	m.CertificatesTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) Verification(outcome string) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BulkItem(result string) {
	if m == nil {
		return
	}
	m.BulkItemsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Decision(decision string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(decision).Inc()
}

func (m *Metrics) Delivery(kind, status string) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
