package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the attribution service.
type Metrics struct {
	// Ingest metrics
	EventsIngested  *prometheus.CounterVec
	EventsRejected  *prometheus.CounterVec
	EventsArchived  prometheus.Counter
	ArchiveFailures prometheus.Counter

	// Order webhook metrics
	OrdersUpserted *prometheus.CounterVec
	OrdersRejected prometheus.Counter
	OrderRevenue   prometheus.Counter

	// Report metrics
	ReportRequests *prometheus.CounterVec
	ReportLatency  *prometheus.HistogramVec

	// System metrics
	ActiveCampaigns prometheus.Gauge
	DBConnections   *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		// Ingest metrics
		EventsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_ingested_total",
				Help:      "Total beacon events accepted",
			},
			[]string{"event_type"},
		),
		EventsRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_rejected_total",
				Help:      "Beacon events rejected at parse or store time",
			},
			[]string{"reason"},
		),
		EventsArchived: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_archived_total",
				Help:      "Events written to the analytics archive",
			},
		),
		ArchiveFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_failures_total",
				Help:      "Failed archive writes",
			},
		),

		// Order webhook metrics
		OrdersUpserted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_upserted_total",
				Help:      "Webhook orders upserted",
			},
			[]string{"has_promo"},
		),
		OrdersRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_rejected_total",
				Help:      "Webhook orders rejected as malformed",
			},
		),
		OrderRevenue: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_revenue_dollars_total",
				Help:      "Total order revenue ingested in dollars",
			},
		),

		// Report metrics
		ReportRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_requests_total",
				Help:      "Report computations by view and revenue basis",
			},
			[]string{"view", "basis"},
		),
		ReportLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_latency_seconds",
				Help:      "Report computation latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"view"},
		),

		// System metrics
		ActiveCampaigns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_campaigns",
				Help:      "Number of active campaigns",
			},
		),
		DBConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint", "ip"},
		),
	}

	return m
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEventIngested records an accepted beacon event.
func (m *Metrics) RecordEventIngested(eventType string) {
	m.EventsIngested.WithLabelValues(eventType).Inc()
}

// RecordEventRejected records a rejected beacon event.
func (m *Metrics) RecordEventRejected(reason string) {
	m.EventsRejected.WithLabelValues(reason).Inc()
}

// RecordArchive records an archive write outcome.
func (m *Metrics) RecordArchive(ok bool) {
	if ok {
		m.EventsArchived.Inc()
	} else {
		m.ArchiveFailures.Inc()
	}
}

// RecordOrderUpserted records an upserted webhook order.
func (m *Metrics) RecordOrderUpserted(hasPromo bool, revenue float64) {
	promo := "false"
	if hasPromo {
		promo = "true"
	}
	m.OrdersUpserted.WithLabelValues(promo).Inc()
	if revenue > 0 {
		m.OrderRevenue.Add(revenue)
	}
}

// RecordOrderRejected records a malformed webhook order.
func (m *Metrics) RecordOrderRejected() {
	m.OrdersRejected.Inc()
}

// RecordReport records a report computation.
func (m *Metrics) RecordReport(view, basis string, latency time.Duration) {
	m.ReportRequests.WithLabelValues(view, basis).Inc()
	m.ReportLatency.WithLabelValues(view).Observe(latency.Seconds())
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}

// UpdateActiveCampaigns updates the active campaign count.
func (m *Metrics) UpdateActiveCampaigns(n int) {
	m.ActiveCampaigns.Set(float64(n))
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint, ip string) {
	m.RateLimitHits.WithLabelValues(endpoint, ip).Inc()
}
