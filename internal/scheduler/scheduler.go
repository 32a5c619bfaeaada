// Package scheduler triggers ladder ingestion on a cron schedule, once at
// startup when the stored data is stale, and on demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"tetra-tracker/internal/config"
	"tetra-tracker/internal/constants"
	"tetra-tracker/internal/domain"
	"tetra-tracker/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Ingester interface {
	Run(ctx context.Context) (*domain.Batch, error)
	RunIfStale(ctx context.Context) (bool, error)
}

type Scheduler struct {
	cron     *cron.Cron
	spec     string
	ingester Ingester
	logger   zerolog.Logger

	// held for the whole of every run this scheduler starts
	busy sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ingester Ingester, cfg *config.Config, logger zerolog.Logger) (*Scheduler, error) {
	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec:     cfg.IngestSchedule,
		ingester: ingester,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if _, err := s.cron.AddFunc(cfg.IngestSchedule, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid ingest schedule %q: %w", cfg.IngestSchedule, err)
	}
	return s, nil
}

// Start begins the schedule and checks once, in the background, whether
// the newest batch is old enough to warrant an immediate run.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Str("schedule", s.spec).Msg("scheduler started")

	if !s.busy.TryLock() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Unlock()
		ctx, cancel := context.WithTimeout(s.ctx, constants.IngestRunTimeout)
		defer cancel()

		if _, err := s.ingester.RunIfStale(ctx); err != nil {
			s.logger.Error().Err(err).Msg("startup ingestion failed")
		}
	}()
}

// Trigger starts an ingestion run outside the schedule and returns without
// waiting for it. It fails with service.ErrIngestionInProgress when a run is
// already underway.
func (s *Scheduler) Trigger() error {
	if s.ctx.Err() != nil {
		return errors.New("scheduler stopped")
	}
	if !s.busy.TryLock() {
		return service.ErrIngestionInProgress
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Unlock()
		s.logger.Info().Msg("manual ingestion triggered")
		s.run()
	}()
	return nil
}

// Stop halts the schedule, cancels runs in flight and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) tick() {
	if !s.busy.TryLock() {
		s.logger.Info().Msg("ingestion already running, tick skipped")
		return
	}
	defer s.busy.Unlock()

	s.logger.Info().Msg("scheduled ingestion starting")
	s.run()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(s.ctx, constants.IngestRunTimeout)
	defer cancel()

	_, err := s.ingester.Run(ctx)
	switch {
	case errors.Is(err, service.ErrIngestionInProgress):
		s.logger.Info().Msg("ingestion already running, tick skipped")
	case err != nil:
		// the next tick retries; the previous batch keeps serving
		s.logger.Error().Err(err).Msg("ingestion failed")
	}
}
