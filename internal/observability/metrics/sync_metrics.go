package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	assetdomain "github.com/vistrive/assetnext/internal/asset/domain"
	"github.com/vistrive/assetnext/internal/inventory"
)

// Config carries the static labels applied to every sync metric.
type Config struct {
	ServiceName string
	Environment string
}

const (
	SyncErrorTypeAuth       = "auth"
	SyncErrorTypeUpstream   = "upstream"
	SyncErrorTypeMapping    = "mapping"
	SyncErrorTypeConstraint = "constraint"
	SyncErrorTypeDeadline   = "deadline_exceeded"
	SyncErrorTypeUnknown    = "unknown"
)

const (
	TenantOutcomeOK      = "ok"
	TenantOutcomeError   = "error"
	TenantOutcomeSkipped = "skipped"
)

// SyncMetrics captures inventory-sync health signals.
type SyncMetrics struct {
	tickRuns       prometheus.Counter
	tickDuration   prometheus.Observer
	runLoopLag     prometheus.Observer
	tenantRuns     *prometheus.CounterVec
	tenantDuration prometheus.Observer
	recordsFetched prometheus.Counter
	recordsCreated prometheus.Counter
	recordsUpdated prometheus.Counter
	recordsFailed  prometheus.Counter
	tenantErrors   *prometheus.CounterVec
	revision       prometheus.Gauge
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the singleton sync metrics registry.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig returns the singleton sync metrics registry using config labels.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the sync metrics singleton for tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "assetnext"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	factory := newFactory(registerer)

	m := &SyncMetrics{
		tickRuns: factory.counter(prometheus.CounterOpts{
			Name:        "assetnext_sync_tick_runs_total",
			Help:        "Number of sync scheduler ticks started.",
			ConstLabels: constLabels,
		}),
		tickDuration: factory.histogram(prometheus.HistogramOpts{
			Name:        "assetnext_sync_tick_duration_seconds",
			Help:        "Wall time of a full sync tick across all tenants.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		runLoopLag: factory.histogram(prometheus.HistogramOpts{
			Name:        "assetnext_sync_run_loop_lag_seconds",
			Help:        "Delay between the scheduled and actual start of a tick.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		tenantRuns: factory.counterVec(prometheus.CounterOpts{
			Name:        "assetnext_sync_tenant_runs_total",
			Help:        "Per-tenant reconciliation outcomes.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		tenantDuration: factory.histogram(prometheus.HistogramOpts{
			Name:        "assetnext_sync_tenant_duration_seconds",
			Help:        "Wall time of a single tenant reconciliation.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		recordsFetched: factory.counter(prometheus.CounterOpts{
			Name:        "assetnext_sync_records_fetched_total",
			Help:        "Device records fetched from the external inventory (after org filtering).",
			ConstLabels: constLabels,
		}),
		recordsCreated: factory.counter(prometheus.CounterOpts{
			Name:        "assetnext_sync_records_created_total",
			Help:        "Asset rows created by reconciliation.",
			ConstLabels: constLabels,
		}),
		recordsUpdated: factory.counter(prometheus.CounterOpts{
			Name:        "assetnext_sync_records_updated_total",
			Help:        "Asset rows updated by reconciliation.",
			ConstLabels: constLabels,
		}),
		recordsFailed: factory.counter(prometheus.CounterOpts{
			Name:        "assetnext_sync_records_failed_total",
			Help:        "Device records skipped due to mapping or merge failures.",
			ConstLabels: constLabels,
		}),
		tenantErrors: factory.counterVec(prometheus.CounterOpts{
			Name:        "assetnext_sync_tenant_errors_total",
			Help:        "Tenant reconciliation failures by error type.",
			ConstLabels: constLabels,
		}, []string{"error_type"}),
		revision: factory.gauge(prometheus.GaugeOpts{
			Name:        "assetnext_sync_revision",
			Help:        "Current value of the process-wide sync revision counter.",
			ConstLabels: constLabels,
		}),
	}

	return m
}

func (m *SyncMetrics) IncTickRun() {
	if m == nil {
		return
	}
	m.tickRuns.Inc()
}

func (m *SyncMetrics) ObserveTickDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

func (m *SyncMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.runLoopLag.Observe(d.Seconds())
}

func (m *SyncMetrics) IncTenantRun(outcome string) {
	if m == nil {
		return
	}
	m.tenantRuns.WithLabelValues(outcome).Inc()
}

func (m *SyncMetrics) ObserveTenantDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.tenantDuration.Observe(d.Seconds())
}

func (m *SyncMetrics) AddRecords(fetched, created, updated, failed int) {
	if m == nil {
		return
	}
	m.recordsFetched.Add(float64(fetched))
	m.recordsCreated.Add(float64(created))
	m.recordsUpdated.Add(float64(updated))
	m.recordsFailed.Add(float64(failed))
}

func (m *SyncMetrics) IncTenantError(err error) {
	if m == nil || err == nil {
		return
	}
	m.tenantErrors.WithLabelValues(ClassifySyncErrorType(err)).Inc()
}

func (m *SyncMetrics) SetRevision(v uint64) {
	if m == nil {
		return
	}
	m.revision.Set(float64(v))
}

// ClassifySyncErrorType buckets a reconciliation error for the error counter.
func ClassifySyncErrorType(err error) string {
	if err == nil {
		return SyncErrorTypeUnknown
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return SyncErrorTypeDeadline
	case errors.Is(err, inventory.ErrAuth):
		return SyncErrorTypeAuth
	case errors.Is(err, assetdomain.ErrConstraintViolation):
		return SyncErrorTypeConstraint
	}
	var upstream *inventory.UpstreamError
	if errors.As(err, &upstream) {
		return SyncErrorTypeUpstream
	}
	var mapping *inventory.MappingError
	if errors.As(err, &mapping) {
		return SyncErrorTypeMapping
	}
	return SyncErrorTypeUnknown
}

// registererFactory mirrors promauto but against an explicit registerer so
// tests can swap in a private registry.
type registererFactory struct {
	registerer prometheus.Registerer
}

func newFactory(registerer prometheus.Registerer) registererFactory {
	return registererFactory{registerer: registerer}
}

func (f registererFactory) counter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	f.registerer.MustRegister(c)
	return c
}

func (f registererFactory) counterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	f.registerer.MustRegister(c)
	return c
}

func (f registererFactory) histogram(opts prometheus.HistogramOpts) prometheus.Observer {
	h := prometheus.NewHistogram(opts)
	f.registerer.MustRegister(h)
	return h
}

func (f registererFactory) histogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	f.registerer.MustRegister(h)
	return h
}

func (f registererFactory) gauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	g := prometheus.NewGauge(opts)
	f.registerer.MustRegister(g)
	return g
}
