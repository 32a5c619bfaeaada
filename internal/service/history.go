package service

import (
	"context"
	"errors"
	"fmt"
	"tetra-tracker/internal/chart"
	"tetra-tracker/internal/config"
	"tetra-tracker/internal/constants"
	"tetra-tracker/internal/domain"
	"tetra-tracker/internal/history"
	"tetra-tracker/internal/repository"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type PlayerHistory struct {
	PlayerID      string                 `json:"player_id"`
	CurrentRating float64                `json:"current_rating"`
	WindowStart   time.Time              `json:"window_start"`
	WindowEnd     time.Time              `json:"window_end"`
	Samples       []domain.HistorySample `json:"samples"`
	Bounds        domain.ChartBounds     `json:"bounds"`
}

type HistoryService struct {
	samples  SampleStore
	batches  BatchStore
	archives SnapshotLoader
	ratings  RatingSource
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger

	// archive hash -> player id -> rating; rebuilt on demand
	membership *xsync.Map[string, map[string]float64]
}

func NewHistoryService(samples SampleStore, batches BatchStore, archives SnapshotLoader, ratings RatingSource, cfg *config.Config, logger zerolog.Logger) *HistoryService {
	return &HistoryService{
		samples:    samples,
		batches:    batches,
		archives:   archives,
		ratings:    ratings,
		loc:        cfg.Location,
		now:        time.Now,
		logger:     logger.With().Str("component", "history").Logger(),
		membership: xsync.NewMap[string, map[string]float64](),
	}
}

// Lookup resolves user (a username or account ID) to the account ID ladder
// archives are keyed by, fetches the live rating, builds the chartable
// history and records the live rating so later lookups can use it.
func (s *HistoryService) Lookup(ctx context.Context, user string) (*PlayerHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	playerID, err := s.ratings.ResolvePlayer(apiCtx, user)
	if err != nil {
		s.logger.Error().Err(err).Str("user", user).Msg("failed to resolve player")
		return nil, fmt.Errorf("failed to resolve player: %w", err)
	}

	current, err := s.ratings.CurrentRating(apiCtx, playerID)
	if err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to fetch current rating")
		return nil, fmt.Errorf("failed to fetch current rating: %w", err)
	}

	result, err := s.History(ctx, playerID, current)
	if err != nil {
		return nil, err
	}

	// unranked accounts report a negative rating; nothing to keep
	if current < constants.RatingFloor {
		s.logger.Debug().Str("player_id", playerID).Float64("rating", current).Msg("player unranked, lookup not recorded")
		return result, nil
	}

	sample := domain.HistorySample{CapturedAt: s.now(), Rating: current}
	if err := s.samples.Insert(ctx, playerID, sample, repository.SourceLookup); err != nil {
		s.logger.Warn().Err(err).Str("player_id", playerID).Msg("failed to record lookup sample")
	}
	return result, nil
}

// History merges persisted samples with ratings read from ladder archives
// and reconstructs them over the trailing window.
func (s *HistoryService) History(ctx context.Context, playerID string, current float64) (*PlayerHistory, error) {
	now := s.now()
	window := history.WindowFor(now, s.loc, constants.HistoryDays)

	var persisted, derived []domain.HistorySample
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		persisted, err = s.persistedSamples(gCtx, playerID, window)
		return err
	})

	g.Go(func() error {
		var err error
		derived, err = s.snapshotSamples(gCtx, playerID, window)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to load history sources")
		return nil, err
	}

	series := history.Reconstruct(append(persisted, derived...), domain.HistorySample{CapturedAt: now, Rating: current}, window)

	values := make([]float64, len(series))
	for i, sample := range series {
		values[i] = sample.Rating
	}

	s.logger.Debug().
		Str("player_id", playerID).
		Int("persisted", len(persisted)).
		Int("derived", len(derived)).
		Int("points", len(series)).
		Msg("history reconstructed")

	return &PlayerHistory{
		PlayerID:      playerID,
		CurrentRating: current,
		WindowStart:   window.Start,
		WindowEnd:     window.End,
		Samples:       series,
		Bounds:        chart.Bounds(values, constants.RatingFloor, constants.RatingCeiling),
	}, nil
}

func (s *HistoryService) persistedSamples(ctx context.Context, playerID string, w history.Window) ([]domain.HistorySample, error) {
	samples, err := s.samples.ListSince(ctx, playerID, w.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to list history samples: %w", err)
	}

	before, err := s.samples.LatestBefore(ctx, playerID, w.Start)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load sample before window: %w", err)
	default:
		samples = append(samples, before)
	}
	return samples, nil
}

func (s *HistoryService) snapshotSamples(ctx context.Context, playerID string, w history.Window) ([]domain.HistorySample, error) {
	batches, err := s.batches.ListBetween(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches in window: %w", err)
	}

	found := make([]*domain.HistorySample, len(batches))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.ArchiveLoadParallel)

	for i, batch := range batches {
		g.Go(func() error {
			ratings, err := s.ladderRatings(gCtx, batch)
			if err != nil {
				return err
			}
			if rating, ok := ratings[playerID]; ok {
				found[i] = &domain.HistorySample{CapturedAt: batch.CapturedAt, Rating: rating}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inWindow := make(map[string]struct{}, len(batches))
	for _, b := range batches {
		inWindow[b.ArchiveHash] = struct{}{}
	}
	s.membership.Range(func(hash string, _ map[string]float64) bool {
		if _, ok := inWindow[hash]; !ok {
			s.membership.Delete(hash)
		}
		return true
	})

	var samples []domain.HistorySample
	for _, f := range found {
		if f != nil {
			samples = append(samples, *f)
		}
	}
	return samples, nil
}

func (s *HistoryService) ladderRatings(ctx context.Context, batch domain.Batch) (map[string]float64, error) {
	if ratings, ok := s.membership.Load(batch.ArchiveHash); ok {
		return ratings, nil
	}

	snap, err := s.archives.LoadSnapshot(ctx, batch.ArchiveHash, batch.CapturedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive for batch %s: %w", batch.ID, err)
	}

	ratings := make(map[string]float64, len(snap.Entries))
	for _, e := range snap.Entries {
		ratings[e.PlayerID] = e.Rating
	}
	s.membership.Store(batch.ArchiveHash, ratings)
	return ratings, nil
}
