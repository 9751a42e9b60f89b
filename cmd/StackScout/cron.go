package main

import (
	"context"
	"fmt"
	"time"

	"StackScout/internal/biz"
	"StackScout/internal/conf"
	"StackScout/internal/data"
	pkglog "StackScout/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = 10 * time.Minute

type cacheSweeper interface {
	Sweep(ctx context.Context) (data.SweepReport, error)
	Stats() data.CacheStats
}

type sessionCleaner interface {
	CleanupSessions() int
}

// Maintenance runs the cache sweep and the session cleanup on their cron
// schedules. It implements transport.Server so the app starts and stops it.
type Maintenance struct {
	cron     *cron.Cron
	cache    cacheSweeper
	sessions sessionCleaner
	logger   *pkglog.LogHelper
}

// NewMaintenance registers the cache.sweep_schedule and
// research.cleanup_schedule jobs. An empty schedule disables its job.
func NewMaintenance(cc *conf.Cache, rc *conf.Research, store *data.Store, uc *biz.ResearchUsecase, logger log.Logger) (*Maintenance, error) {
	return newMaintenance(cc.SweepSchedule, rc.CleanupSchedule, store, uc, logger)
}

func newMaintenance(sweepSchedule, cleanupSchedule string, cache cacheSweeper, sessions sessionCleaner, logger log.Logger) (*Maintenance, error) {
	m := &Maintenance{
		cron:     cron.New(cron.WithSeconds()),
		cache:    cache,
		sessions: sessions,
		logger:   pkglog.NewLogHelper(logger),
	}
	if sweepSchedule != "" {
		if _, err := m.cron.AddFunc(sweepSchedule, m.sweep); err != nil {
			return nil, fmt.Errorf("invalid cache.sweep_schedule %q: %w", sweepSchedule, err)
		}
	}
	if cleanupSchedule != "" {
		if _, err := m.cron.AddFunc(cleanupSchedule, m.cleanup); err != nil {
			return nil, fmt.Errorf("invalid research.cleanup_schedule %q: %w", cleanupSchedule, err)
		}
	}
	return m, nil
}

// Start implements transport.Server.
func (m *Maintenance) Start(context.Context) error {
	m.cron.Start()
	m.logger.Scheduler("maintenance jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop waits for running jobs or until ctx is done.
func (m *Maintenance) Stop(ctx context.Context) error {
	done := m.cron.Stop()
	select {
	case <-done.Done():
		m.logger.Scheduler("maintenance jobs stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Maintenance) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	report, err := m.cache.Sweep(ctx)
	if err != nil {
		m.logger.Errorw("msg", "cache sweep failed", "error", err)
		return
	}
	m.logger.Scheduler("cache sweep completed",
		"scanned", report.Scanned,
		"expired", report.Expired,
		"evicted", report.Evicted,
		"total_bytes", report.TotalBytes,
		"elapsed", time.Since(start),
	)

	st := m.cache.Stats()
	m.logger.CacheStats("research", st.Hits, st.Misses, st.Expired, st.Evicted, st.Errors, "index_len", st.IndexLen)
}

func (m *Maintenance) cleanup() {
	if n := m.sessions.CleanupSessions(); n > 0 {
		m.logger.Scheduler("expired research sessions removed", "count", n)
	}
}
