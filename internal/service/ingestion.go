package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"tetra-tracker/internal/archive"
	"tetra-tracker/internal/config"
	"tetra-tracker/internal/constants"
	"tetra-tracker/internal/domain"
	"tetra-tracker/internal/repository"
	"tetra-tracker/internal/tiers"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

var ErrIngestionInProgress = errors.New("ingestion already running")

type IngestionStatus struct {
	Running     bool      `json:"running"`
	LastRun     time.Time `json:"last_run,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastBatchID string    `json:"last_batch_id,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

type IngestionService struct {
	fetcher  LadderFetcher
	archives ArchiveWriter
	batches  BatchStore
	retries  int
	delay    time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	running  sync.Mutex
	statusMu sync.RWMutex
	status   IngestionStatus
}

func NewIngestionService(fetcher LadderFetcher, archives ArchiveWriter, batches BatchStore, cfg *config.Config, logger zerolog.Logger) *IngestionService {
	return &IngestionService{
		fetcher:  fetcher,
		archives: archives,
		batches:  batches,
		retries:  cfg.IngestRetries,
		delay:    cfg.IngestRetryDelay,
		now:      time.Now,
		logger:   logger.With().Str("component", "ingestion").Logger(),
	}
}

func (s *IngestionService) Status() IngestionStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// RunIfStale runs ingestion when there is no batch yet or the newest one is
// older than the ingest interval. The decision reads persisted batches, not
// process memory, so it holds across restarts.
func (s *IngestionService) RunIfStale(ctx context.Context) (bool, error) {
	latest, err := s.batches.Latest(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Info().Msg("no batch found, ingesting")
	case err != nil:
		return false, fmt.Errorf("failed to read latest batch: %w", err)
	case s.now().Sub(latest.CapturedAt) > constants.IngestInterval:
		s.logger.Info().Time("latest", latest.CapturedAt).Msg("latest batch is stale, ingesting")
	default:
		s.logger.Info().Time("latest", latest.CapturedAt).Msg("latest batch is fresh, skipping startup ingestion")
		return false, nil
	}

	_, err = s.Run(ctx)
	return true, err
}

// Run captures the full ladder and persists one batch. A run that overlaps
// another returns ErrIngestionInProgress without doing anything.
func (s *IngestionService) Run(ctx context.Context) (*domain.Batch, error) {
	if !s.running.TryLock() {
		s.logger.Warn().Msg("ingestion already running, skipping")
		return nil, ErrIngestionInProgress
	}
	defer s.running.Unlock()

	start := s.now()
	s.setStatus(func(st *IngestionStatus) {
		st.Running = true
		st.LastRun = start
	})

	batch, err := s.run(ctx, start)

	s.setStatus(func(st *IngestionStatus) {
		st.Running = false
		if err != nil {
			st.LastError = err.Error()
			return
		}
		st.LastError = ""
		st.LastSuccess = batch.CapturedAt
		st.LastBatchID = batch.ID
	})

	if err != nil {
		s.logger.Error().Err(err).Dur("took", s.now().Sub(start)).Msg("ingestion run failed")
		return nil, err
	}

	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("archive_hash", batch.ArchiveHash).
		Int("players", batch.PlayerCount).
		Dur("took", s.now().Sub(start)).
		Msg("ingestion run completed")
	return batch, nil
}

func (s *IngestionService) run(ctx context.Context, start time.Time) (*domain.Batch, error) {
	attempt := 0
	var entries []domain.LadderEntry

	backoff := retry.WithMaxRetries(uint64(s.retries), retry.NewConstant(s.delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		fetched, err := s.fetchLadder(ctx)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", s.retries+1).
				Dur("retry_in", s.delay).
				Msg("ladder fetch failed")
			return retry.RetryableError(err)
		}
		entries = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ladder fetch failed after %d attempts: %w", attempt, err)
	}

	return s.persist(ctx, start, entries)
}

// fetchLadder walks the ladder page by page. Each request carries the last
// cursor of the page before it; a short page ends the walk.
func (s *IngestionService) fetchLadder(ctx context.Context) ([]domain.LadderEntry, error) {
	session := uuid.NewString()

	var (
		all   []domain.LadderEntry
		after *domain.Prisecter
	)
	for page := 1; ; page++ {
		entries, err := s.fetcher.FetchLeaguePage(ctx, session, after, constants.LadderPageSize)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, entries...)

		s.logger.Debug().Int("page", page).Int("entries", len(entries)).Int("total", len(all)).Msg("ladder page fetched")

		if len(entries) < constants.LadderPageSize {
			return all, nil
		}
		cursor := entries[len(entries)-1].Cursor
		after = &cursor
	}
}

func (s *IngestionService) persist(ctx context.Context, capturedAt time.Time, entries []domain.LadderEntry) (*domain.Batch, error) {
	ranked := make([]domain.LadderEntry, 0, len(entries))
	for _, e := range entries {
		if e.TierLabel == tiers.Unranked {
			continue
		}
		e.CapturedAt = capturedAt
		ranked = append(ranked, e)
	}
	archive.SortEntries(ranked)

	stats, err := tiers.Compute(ranked)
	if err != nil {
		return nil, fmt.Errorf("failed to compute tier stats: %w", err)
	}

	data, err := archive.EncodeSnapshot(ranked)
	if err != nil {
		return nil, err
	}
	hash, created, err := s.archives.Put(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store archive: %w", err)
	}
	if !created {
		s.logger.Info().Str("archive_hash", hash).Msg("ladder unchanged since an earlier capture, reusing archive")
	}

	batch := &domain.Batch{
		CapturedAt:  capturedAt,
		ArchiveHash: hash,
		PlayerCount: len(ranked),
		Tiers:       stats,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to persist batch: %w", err)
	}
	return batch, nil
}

func (s *IngestionService) setStatus(update func(*IngestionStatus)) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	update(&s.status)
}
