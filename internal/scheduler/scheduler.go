package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/ranch/internal/domain/models"
	"github.com/mamadbah2/ranch/internal/metrics"
)

// ErrStoreUnavailable is returned by RunOnce when the store did not answer any
// connectivity check.
var ErrStoreUnavailable = errors.New("inventory store unavailable")

// Store is the part of the inventory store the scheduler talks to directly.
type Store interface {
	Ping(ctx context.Context) error
	SaveReconciliationRun(ctx context.Context, run models.ReconciliationRun) error
}

// Reconciler finalizes every due sale in one pass.
type Reconciler interface {
	FinalizeDue(ctx context.Context) ([]models.Sale, error)
}

// Notifier is told about sales a pass has finalized.
type Notifier interface {
	SalesFinalized(ctx context.Context, sales []models.Sale) error
}

// Config controls the reconciliation cadence and retry budget.
type Config struct {
	Schedule    string
	MaxAttempts int
	Backoff     time.Duration
	RetryDelay  time.Duration
	PassTimeout time.Duration
}

// Scheduler runs the reconciliation pass once at start and then on a cron
// schedule until stopped.
type Scheduler struct {
	cron       *cron.Cron
	store      Store
	reconciler Reconciler
	notifier   Notifier
	metrics    *metrics.Metrics
	cfg        Config
	logger     *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler instance. notifier and m may be nil.
// Cron expressions are evaluated in loc.
func NewScheduler(cfg Config, store Store, reconciler Reconciler, notifier Notifier, m *metrics.Metrics, loc *time.Location, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = 2 * time.Minute
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       c,
		store:      store,
		reconciler: reconciler,
		notifier:   notifier,
		metrics:    m,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start runs a pass immediately and schedules the following ones.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Schedule))

	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.cycle); err != nil {
		return fmt.Errorf("failed to schedule reconciliation %q: %w", s.cfg.Schedule, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cycle()
	}()

	s.cron.Start()
	return nil
}

// Stop cancels any pass in flight and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// cycle runs a pass and keeps retrying it after RetryDelay until it succeeds,
// the store stays unreachable, or the scheduler stops. It never panics out.
func (s *Scheduler) cycle() {
	for {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.PassTimeout)
		_, err := s.RunOnce(ctx)
		cancel()

		switch {
		case err == nil:
			return
		case errors.Is(err, ErrStoreUnavailable):
			s.logger.Warn("skipping reconciliation cycle", zap.Error(err))
			return
		case s.ctx.Err() != nil:
			return
		}

		s.logger.Error("reconciliation pass failed; retrying", zap.Error(err), zap.Duration("retry_in", s.cfg.RetryDelay))
		if err := s.sleep(s.ctx, s.cfg.RetryDelay); err != nil {
			return
		}
	}
}

// RunOnce performs a single reconciliation pass and returns the number of
// sales it finalized.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	run := models.ReconciliationRun{ID: uuid.NewString(), StartedAt: s.now()}

	attempts, err := s.waitForStore(ctx)
	run.Attempts = attempts

	var finalized []models.Sale
	if err == nil {
		finalized, err = s.reconciler.FinalizeDue(ctx)
		if err != nil {
			err = fmt.Errorf("finalize due sales: %w", err)
		}
	}

	run.FinishedAt = s.now()
	run.Finalized = len(finalized)
	if err != nil {
		run.Error = err.Error()
	}
	s.record(ctx, run, err)

	if err != nil {
		return 0, err
	}

	s.logger.Info("reconciliation pass finished",
		zap.Int("finalized", len(finalized)),
		zap.Int("attempts", attempts),
		zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)))

	if len(finalized) > 0 && s.notifier != nil {
		if err := s.notifier.SalesFinalized(ctx, finalized); err != nil {
			s.logger.Warn("failed to notify finalized sales", zap.Error(err))
		}
	}
	return len(finalized), nil
}

// waitForStore pings the store up to MaxAttempts times, doubling the delay
// between attempts. It returns the number of attempts made.
func (s *Scheduler) waitForStore(ctx context.Context) (int, error) {
	delay := s.cfg.Backoff
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if lastErr = s.store.Ping(ctx); lastErr == nil {
			return attempt, nil
		}
		s.logger.Warn("inventory store not reachable",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.MaxAttempts),
			zap.Error(lastErr))

		if attempt == s.cfg.MaxAttempts {
			break
		}
		if err := s.sleep(ctx, delay); err != nil {
			return attempt, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		delay *= 2
	}
	return s.cfg.MaxAttempts, fmt.Errorf("%w after %d attempts: %v", ErrStoreUnavailable, s.cfg.MaxAttempts, lastErr)
}

func (s *Scheduler) record(ctx context.Context, run models.ReconciliationRun, passErr error) {
	result := "success"
	switch {
	case errors.Is(passErr, ErrStoreUnavailable):
		result = "unavailable"
	case passErr != nil:
		result = "error"
	}
	s.metrics.Run(result, run.Finalized, float64(run.FinishedAt.Unix()))

	if result == "unavailable" {
		return
	}
	if err := s.store.SaveReconciliationRun(ctx, run); err != nil {
		s.logger.Warn("failed to record reconciliation run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
