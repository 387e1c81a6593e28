// Package service watches running jobs and force resumes the ones that stopped making progress
package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/logger"
	jobsdomain "cancioneiro/internal/services/jobs/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Jobs is the slice of the orchestrator the watchdog needs
type Jobs interface {
	Stalled(ctx context.Context, idleFor time.Duration, limit int) ([]jobsdomain.Job, error)
	ForceResume(ctx context.Context, id uuid.UUID, maxAttempts int) (jobsdomain.Job, error)
}

// Config tunes a sweep
type Config struct {
	Interval    time.Duration
	StallAfter  time.Duration
	MaxAttempts int
	Concurrency int
	// Rate caps resumes per second across a sweep
	Rate        float64
	Burst       int
	// Batch caps jobs inspected per sweep
	Batch       int
}

// Report summarizes one sweep
type Report struct {
	Stalled   int `json:"stalled"`
	Resumed   int `json:"resumed"`
	Exhausted int `json:"exhausted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Service runs sweeps
type Service struct {
	jobs    Jobs
	cfg     Config
	limiter *rate.Limiter
	log     logger.Logger
}

// New fills defaults
func New(jobs Jobs, cfg Config) *Service {
	if jobs == nil {
		panic("watchdog.Service requires Jobs")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StallAfter <= 0 {
		cfg.StallAfter = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Concurrency
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	return &Service{
		jobs:    jobs,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		log:     *logger.Named("watchdog"),
	}
}

// SweepOnce force resumes every stalled job once. Per job failures are counted, not returned
func (s *Service) SweepOnce(ctx context.Context) (Report, error) {
	stalled, err := s.jobs.Stalled(ctx, s.cfg.StallAfter, s.cfg.Batch)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Stalled: len(stalled)}
	if len(stalled) == 0 {
		return rep, nil
	}

	var resumed, exhausted, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, j := range stalled {
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}
			log := logger.C(logger.WithJob(gctx, j.ID.String()))
			got, err := s.jobs.ForceResume(gctx, j.ID, s.cfg.MaxAttempts)
			switch {
			case err == nil:
				resumed.Add(1)
			case errors.Is(err, jobsdomain.ErrAttemptsExhausted):
				exhausted.Add(1)
				log.Error().
					Int("attempts", got.AutoResumeAttempts).
					Int("processed", got.Processed).
					Int("total", got.Total).
					Msg("job needs manual attention")
			case errors.Is(err, jobsdomain.ErrResumeInFlight), perr.IsCode(err, perr.ErrorCodeConflict):
				skipped.Add(1)
				log.Debug().Err(err).Msg("resume skipped")
			default:
				failed.Add(1)
				log.Warn().Err(err).Msg("force resume failed")
			}
			return nil
		})
	}
	err = g.Wait()

	rep.Resumed = int(resumed.Load())
	rep.Exhausted = int(exhausted.Load())
	rep.Skipped = int(skipped.Load())
	rep.Failed = int(failed.Load())
	s.log.Info().
		Int("stalled", rep.Stalled).
		Int("resumed", rep.Resumed).
		Int("exhausted", rep.Exhausted).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Msg("sweep done")
	return rep, err
}

// Run sweeps every Interval until ctx is done
func (s *Service) Run(ctx context.Context) error {
	s.log.Info().
		Dur("interval", s.cfg.Interval).
		Dur("stall_after", s.cfg.StallAfter).
		Int("max_attempts", s.cfg.MaxAttempts).
		Msg("watchdog started")
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("sweep failed")
		}
		select {
		case <-ctx.Done():
			s.log.Info().Msg("watchdog stopped")
			return nil
		case <-t.C:
		}
	}
}
