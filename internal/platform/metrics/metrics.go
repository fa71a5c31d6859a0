// Package metrics exposes registry activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ehr/registry/internal/domain/patient"
)

const namespace = "registry"

// Metrics implements patient.Recorder and serves the HTTP request metrics.
type Metrics struct {
	reg *prometheus.Registry

	sessionsActive  prometheus.Gauge
	sessionsOpened  prometheus.Counter
	sessionsClosed  *prometheus.CounterVec
	importsStaged   *prometheus.CounterVec
	importedRecords prometheus.Histogram
	committed       *prometheus.CounterVec
	commitsRefused  prometheus.Counter
	deleted         prometheus.Counter

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var _ patient.Recorder = (*Metrics)(nil)

// New registers all collectors on a private registry, plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sessions_active",
			Help: "Sessions currently held in memory.",
		}),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_opened_total",
			Help: "Sessions created.",
		}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_closed_total",
			Help: "Sessions removed, by reason.",
		}, []string{"reason"}),
		importsStaged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "imports_total",
			Help: "Bulk import attempts, by result.",
		}, []string{"result"}),
		importedRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "import_records",
			Help:    "Records per successfully staged import.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		committed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_committed_total",
			Help: "Records added to a store, by commit source.",
		}, []string{"source"}),
		commitsRefused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "commits_refused_total",
			Help: "Commits with nothing staged and an incomplete draft.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_deleted_total",
			Help: "Records removed by bulk delete.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests, by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsActive, m.sessionsOpened, m.sessionsClosed,
		m.importsStaged, m.importedRecords,
		m.committed, m.commitsRefused, m.deleted,
		m.requests, m.latency,
	)
	return m
}

func (m *Metrics) SessionOpened() {
	m.sessionsOpened.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed(reason string) {
	m.sessionsClosed.WithLabelValues(reason).Inc()
	m.sessionsActive.Dec()
}

func (m *Metrics) ImportStaged(records int, err error) {
	if err != nil {
		m.importsStaged.WithLabelValues("rejected").Inc()
		return
	}
	m.importsStaged.WithLabelValues("staged").Inc()
	m.importedRecords.Observe(float64(records))
}

func (m *Metrics) Committed(source patient.CommitSource, records int) {
	m.committed.WithLabelValues(string(source)).Add(float64(records))
}

func (m *Metrics) CommitRefused() { m.commitsRefused.Inc() }

func (m *Metrics) Deleted(records int) { m.deleted.Add(float64(records)) }

// Middleware records request counts and latency by route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requests.WithLabelValues(route, c.Request().Method, strconv.Itoa(status)).Inc()
			m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Gatherer exposes the registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.reg }
