package scheduler

import (
	"context"
	"time"

	"market-scanner/config"
	"market-scanner/services/screener"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Scheduler runs the recurring jobs: a daily scan after the session close and
// a weekly retention prune.
type Scheduler struct {
	cron     *gocron.Scheduler
	cfg      *config.ScanConfig
	screener *screener.Screener
	log      zerolog.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg *config.ScanConfig, s *screener.Screener, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		cfg:      cfg,
		screener: s,
		log:      log,
	}
}

// Start registers the jobs and starts the scheduler asynchronously.
func (s *Scheduler) Start() {
	s.cron.Every(1).Day().At(s.cfg.Schedule.ScanAt).Do(func() {
		s.runDailyScan()
	})

	s.cron.Every(1).Week().Sunday().At(s.cfg.Schedule.PruneAt).Do(func() {
		s.runPrune()
	})

	s.cron.StartAsync()
	s.log.Info().Str("scan_at", s.cfg.Schedule.ScanAt).
		Str("prune_at", s.cfg.Schedule.PruneAt).
		Msg("scheduler started")
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runDailyScan() {
	s.log.Info().Msg("scheduled scan starting")
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	result, err := s.screener.RunPipeline(ctx, nil, false, false, 0)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled scan failed")
		return
	}
	total := 0
	for _, signals := range result.Signals {
		total += len(signals)
	}
	s.log.Info().Int("instruments", result.Instruments).
		Int("signals", total).Int("failed", len(result.Failed)).
		Msg("scheduled scan done")
}

func (s *Scheduler) runPrune() {
	deleted, err := s.screener.PruneStore()
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled prune failed")
		return
	}
	s.log.Info().Int64("deleted", deleted).Msg("scheduled prune done")
}
