package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vistrive/assetnext/internal/clock"
	"github.com/vistrive/assetnext/internal/config"
	obsmetrics "github.com/vistrive/assetnext/internal/observability/metrics"
	tenantdomain "github.com/vistrive/assetnext/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	TenantSvc  tenantdomain.Service
	Reconciler TenantReconciler
	Heartbeat  *Heartbeat
	Tuning     *config.SyncTuningHolder
	Config     Config `optional:"true"`
}

// Scheduler drives the periodic reconciliation of every mapped tenant.
// Tenants run strictly one at a time; a slow or failing tenant delays the
// rest of the tick but never aborts it.
type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	tenantSvc  tenantdomain.Service
	reconciler TenantReconciler
	heartbeat  *Heartbeat
	tuning     *config.SyncTuningHolder
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.TenantSvc == nil || p.Reconciler == nil || p.Heartbeat == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("sync.scheduler").With(zap.String("component", "sync")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		tenantSvc:  p.TenantSvc,
		reconciler: p.Reconciler,
		heartbeat:  p.Heartbeat,
		tuning:     p.Tuning,
	}, nil
}

// RunOnce executes one full tick: every mapped tenant, sequentially, in
// listing order. The heartbeat advances at most once, and only when the
// tick merged at least one record.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	runID := uuid.NewString()
	start := s.clock.Now()
	log := s.log.With(zap.String("run_id", runID))
	syncMetrics := obsmetrics.Sync()
	syncMetrics.IncTickRun()

	tenants, err := s.tenantSvc.List(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	log.Info("sync tick started", zap.Int("tenant_count", len(tenants)))

	var tickErr error
	totalMerged := 0

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			tickErr = errors.Join(tickErr, ctx.Err())
			break
		}

		if !tenant.HasExternalOrg() {
			log.Warn("tenant skipped: no external org mapping",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("tenant_slug", tenant.Slug),
			)
			syncMetrics.IncTenantRun(obsmetrics.TenantOutcomeSkipped)
			continue
		}
		if s.tuning.TenantDisabled(tenant.Slug) {
			log.Info("tenant skipped: disabled by tuning",
				zap.String("tenant_slug", tenant.Slug),
			)
			syncMetrics.IncTenantRun(obsmetrics.TenantOutcomeSkipped)
			continue
		}

		tenantStart := s.clock.Now()
		result, err := s.reconciler.ReconcileTenant(ctx, tenant)
		syncMetrics.ObserveTenantDuration(s.clock.Now().Sub(tenantStart))
		syncMetrics.AddRecords(result.Fetched, result.Created, result.Updated, result.Failed)
		totalMerged += result.Merged()

		if err != nil {
			syncMetrics.IncTenantRun(obsmetrics.TenantOutcomeError)
			syncMetrics.IncTenantError(err)
			log.Error("tenant reconciliation failed",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("tenant_slug", tenant.Slug),
				zap.Int("fetched", result.Fetched),
				zap.Int("failed", result.Failed),
				zap.Error(err),
			)
			tickErr = errors.Join(tickErr, fmt.Errorf("tenant %s: %w", tenant.Slug, err))
			continue
		}

		syncMetrics.IncTenantRun(obsmetrics.TenantOutcomeOK)
		log.Info("tenant reconciled",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("tenant_slug", tenant.Slug),
			zap.Int("fetched", result.Fetched),
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated),
			zap.Int("failed", result.Failed),
		)
	}

	now := s.clock.Now()
	if totalMerged > 0 {
		revision := s.heartbeat.Advance(now)
		log.Info("sync revision advanced",
			zap.Uint64("revision", revision),
			zap.Int("merged", totalMerged),
		)
	} else {
		s.heartbeat.MarkChecked(now)
	}
	syncMetrics.ObserveTickDuration(now.Sub(start))

	log.Info("sync tick finished",
		zap.Int("merged", totalMerged),
		zap.Int64("duration_ms", now.Sub(start).Milliseconds()),
	)
	return tickErr
}

// RunForever loops RunOnce with a fixed delay between the end of one tick
// and the start of the next, so a slow upstream cannot pile ticks on top
// of each other. The first tick runs immediately.
func (s *Scheduler) RunForever(ctx context.Context) {
	syncMetrics := obsmetrics.Sync()
	var lastStart time.Time

	for {
		start := s.clock.Now()
		if !lastStart.IsZero() {
			if lag := start.Sub(lastStart) - s.cfg.RunInterval; lag > 0 {
				syncMetrics.ObserveRunLoopLag(lag)
			}
		}
		lastStart = start

		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sync tick finished with errors", zap.Error(err))
		}

		timer := time.NewTimer(s.cfg.RunInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
