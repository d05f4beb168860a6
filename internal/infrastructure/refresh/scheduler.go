package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// DefaultSchedule refreshes at minute five of every hour
const DefaultSchedule = "5 * * * *"

// SchedulerConfig holds configuration for the refresh scheduler
type SchedulerConfig struct {
	Schedule string        // standard five-field cron expression
	OnStart  bool          // run one refresh as soon as the scheduler starts
	Timeout  time.Duration // bound on each scheduled run, zero for none
}

// Scheduler runs a refresher on a cron schedule
type Scheduler struct {
	refresher domain.DatasetRefresher
	cron      *cron.Cron
	config    SchedulerConfig
	logger    zerolog.Logger
	cancel    context.CancelFunc
}

// ValidateSchedule reports whether expr is a usable cron expression
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// NewScheduler creates a scheduler. The schedule is validated here so a
// bad expression fails at boot.
func NewScheduler(refresher domain.DatasetRefresher, config SchedulerConfig, logger zerolog.Logger) (*Scheduler, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}
	if err := ValidateSchedule(config.Schedule); err != nil {
		return nil, err
	}

	return &Scheduler{
		refresher: refresher,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		config:    config,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Start schedules the refresh job and, when configured, runs it once in
// the background right away
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.config.Schedule, func() { s.run(ctx, "cron") }); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	if s.config.OnStart {
		go s.run(ctx, "boot")
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.config.Schedule).Bool("on_start", s.config.OnStart).Msg("refresh scheduled")
	return nil
}

// Stop stops scheduling and waits for a running job until ctx expires
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	done := s.cron.Stop()

	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("refresh still running at shutdown")
	}
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	if err := s.refresher.RefreshDatasets(ctx); err != nil {
		s.logger.Error().Err(err).Str("trigger", trigger).Msg("scheduled refresh failed")
		return
	}
	s.logger.Info().Str("trigger", trigger).Msg("scheduled refresh completed")
}
