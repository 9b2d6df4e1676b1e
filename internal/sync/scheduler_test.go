package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistrive/assetnext/internal/clock"
	"github.com/vistrive/assetnext/internal/config"
	obsmetrics "github.com/vistrive/assetnext/internal/observability/metrics"
	tenantdomain "github.com/vistrive/assetnext/internal/tenant/domain"
	"go.uber.org/zap"
)

type stubTenantService struct {
	tenants []tenantdomain.Tenant
	listErr error
}

func (s *stubTenantService) Create(context.Context, tenantdomain.CreateTenantRequest) (tenantdomain.Tenant, error) {
	return tenantdomain.Tenant{}, nil
}

func (s *stubTenantService) Get(context.Context, snowflake.ID) (tenantdomain.Tenant, error) {
	return tenantdomain.Tenant{}, nil
}

func (s *stubTenantService) List(context.Context) ([]tenantdomain.Tenant, error) {
	return s.tenants, s.listErr
}

func (s *stubTenantService) AssignExternalOrg(context.Context, snowflake.ID, string) (tenantdomain.Tenant, error) {
	return tenantdomain.Tenant{}, nil
}

type stubReconciler struct {
	order   []string
	active  int
	results map[string]Result
	errs    map[string]error
}

func (s *stubReconciler) ReconcileTenant(ctx context.Context, tenant tenantdomain.Tenant) (Result, error) {
	s.active++
	if s.active > 1 {
		panic("concurrent tenant reconciliation")
	}
	defer func() { s.active-- }()

	s.order = append(s.order, tenant.Slug)
	if err, ok := s.errs[tenant.Slug]; ok {
		return s.results[tenant.Slug], err
	}
	return s.results[tenant.Slug], nil
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSyncMetricsForTest()
	}
}

func mappedTenant(id int64, slug, orgID string) tenantdomain.Tenant {
	return tenantdomain.Tenant{
		ID:            snowflake.ID(id),
		Name:          slug,
		Slug:          slug,
		ExternalOrgID: &orgID,
	}
}

func newTestScheduler(t *testing.T, tenants []tenantdomain.Tenant, rec *stubReconciler, tuning config.SyncTuning) (*Scheduler, *Heartbeat, *clock.FakeClock) {
	t.Helper()

	hb := NewHeartbeat()
	fakeClock := clock.NewFakeClock(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	sched, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      fakeClock,
		TenantSvc:  &stubTenantService{tenants: tenants},
		Reconciler: rec,
		Heartbeat:  hb,
		Tuning:     config.NewStaticSyncTuningHolder(tuning),
		Config:     Config{RunInterval: time.Minute, Enabled: true},
	})
	require.NoError(t, err)
	return sched, hb, fakeClock
}

func TestRunOnceReconcilesTenantsSequentially(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.ResetSyncMetricsForTest()

	rec := &stubReconciler{results: map[string]Result{
		"alpha": {Fetched: 2, Created: 1, Updated: 1},
		"beta":  {Fetched: 1, Updated: 1},
		"gamma": {},
	}}
	sched, hb, _ := newTestScheduler(t, []tenantdomain.Tenant{
		mappedTenant(1, "alpha", "10"),
		mappedTenant(2, "beta", "20"),
		mappedTenant(3, "gamma", "30"),
	}, rec, config.SyncTuning{})

	err := sched.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, rec.order)
	assert.EqualValues(t, 1, hb.Revision())
}

func TestRunOnceSkipsUnmappedAndDisabledTenants(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.ResetSyncMetricsForTest()

	rec := &stubReconciler{results: map[string]Result{
		"gamma": {Fetched: 1, Created: 1},
	}}
	sched, hb, _ := newTestScheduler(t, []tenantdomain.Tenant{
		{ID: 1, Name: "alpha", Slug: "alpha"},
		mappedTenant(2, "beta", "20"),
		mappedTenant(3, "gamma", "30"),
	}, rec, config.SyncTuning{DisabledTenants: []string{"beta"}})

	err := sched.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"gamma"}, rec.order)
	assert.EqualValues(t, 1, hb.Revision())
}

func TestRunOnceIsolatesTenantFailures(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.ResetSyncMetricsForTest()

	boom := errors.New("session expired mid-run")
	rec := &stubReconciler{
		results: map[string]Result{
			"alpha": {Fetched: 1, Created: 1},
			"beta":  {Fetched: 3, Failed: 3},
			"gamma": {Fetched: 1, Updated: 1},
		},
		errs: map[string]error{"beta": boom},
	}
	sched, hb, _ := newTestScheduler(t, []tenantdomain.Tenant{
		mappedTenant(1, "alpha", "10"),
		mappedTenant(2, "beta", "20"),
		mappedTenant(3, "gamma", "30"),
	}, rec, config.SyncTuning{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// The failing tenant does not stop later tenants, and the merges
	// that did happen still advance the heartbeat.
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, rec.order)
	assert.EqualValues(t, 1, hb.Revision())
}

func TestRunOnceHeartbeatUntouchedWhenNothingMerged(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.ResetSyncMetricsForTest()

	rec := &stubReconciler{results: map[string]Result{
		"alpha": {Fetched: 5},
		"beta":  {Fetched: 2},
	}}
	sched, hb, fakeClock := newTestScheduler(t, []tenantdomain.Tenant{
		mappedTenant(1, "alpha", "10"),
		mappedTenant(2, "beta", "20"),
	}, rec, config.SyncTuning{})

	err := sched.RunOnce(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 0, hb.Revision())
	status := hb.Status()
	assert.Equal(t, fakeClock.Now(), status.LastCheckedAt)
	assert.True(t, status.LastChangeAt.IsZero())
}

func TestRunOnceReturnsTenantListError(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.ResetSyncMetricsForTest()

	hb := NewHeartbeat()
	listErr := errors.New("database gone")
	sched, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(time.Time{}),
		TenantSvc:  &stubTenantService{listErr: listErr},
		Reconciler: &stubReconciler{},
		Heartbeat:  hb,
		Tuning:     config.NewStaticSyncTuningHolder(config.SyncTuning{}),
	})
	require.NoError(t, err)

	err = sched.RunOnce(context.Background())
	assert.ErrorIs(t, err, listErr)
	assert.EqualValues(t, 0, hb.Revision())
}
