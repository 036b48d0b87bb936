package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RailScan/internal/domain/models"
	"RailScan/internal/usecase"
	"RailScan/pkg/logger"

	"github.com/robfig/cron/v3"
)

const lockKey = "railscan:lock:watchlist-scan"

// Locker guards a run against overlap, across replicas when backed by Redis.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Config struct {
	Spec       string
	Watchlist  []string
	Template   models.AnalysisParams
	Timeout    time.Duration
	RunOnStart bool
}

// Scheduler scans the watchlist on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	scanner usecase.BatchScanner
	locker  Locker
	cfg     Config
	log     *logger.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler; locker may be nil.
func New(scanner usecase.BatchScanner, locker Locker, cfg Config, lgr *logger.Logger) *Scheduler {
	if lgr == nil {
		lgr = logger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		scanner: scanner,
		locker:  locker,
		cfg:     cfg,
		log:     lgr.With(logger.String("component", "scheduler")),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the watchlist scan and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() { _, _ = s.RunNow(s.ctx) }); err != nil {
		return fmt.Errorf("register watchlist scan %q: %w", s.cfg.Spec, err)
	}
	s.cron.Start()
	if s.cfg.RunOnStart {
		go func() { _, _ = s.RunNow(s.ctx) }()
	}
	s.log.Info("scheduler started",
		logger.String("cron", s.cfg.Spec),
		logger.Int("symbols", len(s.cfg.Watchlist)),
	)
	return nil
}

// Stop cancels a scan in flight and waits for running jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow scans the watchlist immediately. It returns nil without scanning
// when another run holds the lock.
func (s *Scheduler) RunNow(ctx context.Context) (*models.ScanReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("watchlist scan skipped: previous run still active")
		return nil, nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, lockKey, s.cfg.Timeout)
		if err != nil {
			s.log.Warn("watchlist lock failed", logger.Error(err))
		} else if !ok {
			s.log.Info("watchlist scan held by another instance")
			return nil, nil
		} else {
			defer func() { _ = s.locker.Unlock(context.WithoutCancel(ctx), lockKey) }()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	report, err := s.scanner.Scan(ctx, usecase.ScanParams{Symbols: s.cfg.Watchlist, Template: s.cfg.Template})
	if err != nil {
		s.log.Error("watchlist scan failed", logger.Error(err))
		return nil, err
	}

	sum := report.Summary
	fields := []logger.Field{
		logger.Int("total", sum.Total),
		logger.Int("long", sum.Long),
		logger.Int("short", sum.Short),
		logger.Int("hold", sum.Hold),
		logger.Int("strong", sum.Strong),
		logger.Int("errors", sum.Errors),
		logger.Int64("took_ms", report.TookMs),
	}
	if sum.AvgWinRate != nil {
		fields = append(fields, logger.Float64("avg_winrate", *sum.AvgWinRate))
	}
	if len(report.Results) > 0 {
		top := report.Results[0]
		fields = append(fields, logger.String("top", fmt.Sprintf("%s %s %.1f", top.Symbol, top.Side, top.Score)))
	}
	s.log.Info("watchlist scan done", fields...)
	return report, nil
}
