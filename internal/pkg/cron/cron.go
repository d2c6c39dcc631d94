package cron

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/config"
	"github.com/talktojesus/api_server/internal/service"
)

// Sweeper is the reconciliation half of the schedule.
type Sweeper interface {
	SweepStale(ctx context.Context, staleAfter time.Duration, batch int) (int, error)
}

// LedgerPurger is the webhook ledger half of the schedule.
type LedgerPurger interface {
	PurgeLedger(ctx context.Context, retention time.Duration) (int64, error)
}

var (
	_ Sweeper      = (*service.ReconcileService)(nil)
	_ LedgerPurger = (*service.WebhookService)(nil)
)

type Service struct {
	sweeper      Sweeper
	purger       LedgerPurger
	syncInterval time.Duration
	staleAfter   time.Duration
	batchSize    int
	retention    time.Duration
	logger       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(sweeper Sweeper, purger LedgerPurger, cfg config.CronConfig, logger *zap.Logger) *Service {
	s := &Service{
		sweeper:      sweeper,
		purger:       purger,
		syncInterval: time.Duration(cfg.SyncIntervalMinutes) * time.Minute,
		staleAfter:   time.Duration(cfg.SyncStaleHours) * time.Hour,
		batchSize:    cfg.SyncBatchSize,
		retention:    time.Duration(cfg.LedgerRetentionDays) * 24 * time.Hour,
		logger:       logger,
	}
	if s.syncInterval <= 0 {
		s.syncInterval = 30 * time.Minute
	}
	if s.staleAfter <= 0 {
		s.staleAfter = 6 * time.Hour
	}
	if s.batchSize <= 0 {
		s.batchSize = 50
	}
	if s.retention <= 0 {
		s.retention = 30 * 24 * time.Hour
	}
	return s
}

// Start runs both jobs in the background until Stop or ctx is done.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.every(ctx, s.syncInterval, s.SyncNow)
	go s.runDailyLedgerPurge(ctx)

	s.logger.Info("cron started",
		zap.Duration("sync_interval", s.syncInterval),
		zap.Duration("stale_after", s.staleAfter),
		zap.Duration("ledger_retention", s.retention),
	)
}

// Stop cancels the jobs and waits for a running one to finish.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("cron stopped")
}

func (s *Service) every(ctx context.Context, interval time.Duration, job func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

// runDailyLedgerPurge fires at the next UTC midnight and every 24h after.
func (s *Service) runDailyLedgerPurge(ctx context.Context) {
	defer s.wg.Done()

	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	timer := time.NewTimer(nextMidnight.Sub(now))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.PurgeNow(ctx)
			timer.Reset(24 * time.Hour)
		}
	}
}

// SyncNow runs one reconciliation sweep.
func (s *Service) SyncNow(ctx context.Context) {
	if s.sweeper == nil {
		return
	}
	n, err := s.sweeper.SweepStale(ctx, s.staleAfter, s.batchSize)
	if err != nil {
		s.logger.Error("subscription sweep failed", zap.Int("refreshed", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("subscription sweep completed", zap.Int("refreshed", n))
	}
}

// PurgeNow drops expired webhook ledger rows.
func (s *Service) PurgeNow(ctx context.Context) {
	if s.purger == nil {
		return
	}
	n, err := s.purger.PurgeLedger(ctx, s.retention)
	if err != nil {
		s.logger.Error("webhook ledger purge failed", zap.Error(err))
		return
	}
	s.logger.Info("webhook ledger purged", zap.Int64("deleted", n))
}
