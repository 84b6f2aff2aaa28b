// Package metrics exposes Prometheus counters for stock and sale activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GTDGit/gtd_stock/internal/models"
)

// Metric names.
const (
	MetricStockTransitionsTotal = "stock_transitions_total"
	MetricSalesRecordedTotal    = "stock_sales_recorded_total"
	MetricPeriodsClosedTotal    = "stock_periods_closed_total"
	MetricHTTPRequestsTotal     = "stock_http_requests_total"
	MetricHTTPDurationSeconds   = "stock_http_request_duration_seconds"
)

// Recorder owns a private registry and the collectors registered on it.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	stockTransitions *prometheus.CounterVec
	salesRecorded    *prometheus.CounterVec
	periodsClosed    prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a Recorder with Go runtime and process collectors attached.
func New() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		stockTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricStockTransitionsTotal,
			Help: "Stock unit status changes by target status.",
		}, []string{"to"}),
		salesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSalesRecordedTotal,
			Help: "Sales recorded by sale type and entry path.",
		}, []string{"sale_type", "entry"}),
		periodsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPeriodsClosedTotal,
			Help: "Monthly periods closed into snapshots.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequestsTotal,
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPDurationSeconds,
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.stockTransitions,
		r.salesRecorded,
		r.periodsClosed,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// StockTransition counts a unit moving to status to.
func (r *Recorder) StockTransition(to models.StockStatus) {
	if r == nil {
		return
	}
	r.stockTransitions.WithLabelValues(string(to)).Inc()
}

// SaleRecorded counts a recorded sale. manual is true when the unit was
// created by the sale itself.
func (r *Recorder) SaleRecorded(saleType models.SaleType, manual bool) {
	if r == nil {
		return
	}
	entry := "existing"
	if manual {
		entry = "manual"
	}
	r.salesRecorded.WithLabelValues(string(saleType), entry).Inc()
}

// PeriodClosed counts a closed month.
func (r *Recorder) PeriodClosed() {
	if r == nil {
		return
	}
	r.periodsClosed.Inc()
}

// ObserveRequest records one served HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, latency time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(latency.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
