package service

import (
	"context"
	"errors"
	"fmt"
	"tetra-tracker/internal/constants"
	"tetra-tracker/internal/domain"
	"tetra-tracker/internal/repository"
	"tetra-tracker/internal/tiers"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrNoBatches   = errors.New("no ladder batches yet")
	ErrUnknownTier = errors.New("unknown tier")
)

// Delta is latest minus the comparison batch. It is only produced when the
// comparison batch differs from the latest one.
type Delta struct {
	BatchID     string    `json:"batch_id"`
	ComparedAt  time.Time `json:"compared_at"`
	TRThreshold float64   `json:"tr_threshold"`
	PlayerCount int       `json:"player_count"`
	AvgPPS      float64   `json:"avg_pps"`
	AvgAPM      float64   `json:"avg_apm"`
	AvgVS       float64   `json:"avg_vs"`
}

type TierTrend struct {
	BatchID    string           `json:"batch_id"`
	CapturedAt time.Time        `json:"captured_at"`
	Stats      domain.TierStats `json:"stats"`
	// Trend is nil when no distinct earlier batch exists.
	Trend *Delta `json:"trend"`
	Stale bool   `json:"stale"`
}

type LadderOverview struct {
	Batch *domain.Batch `json:"batch"`
	Stale bool          `json:"stale"`
}

type TrendService struct {
	batches BatchStore
	now     func() time.Time
	logger  zerolog.Logger
}

func NewTrendService(batches BatchStore, logger zerolog.Logger) *TrendService {
	return &TrendService{batches: batches, now: time.Now, logger: logger}
}

func (s *TrendService) Latest(ctx context.Context) (*LadderOverview, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	latest, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	return &LadderOverview{Batch: latest, Stale: s.stale(latest)}, nil
}

// Compare reports the latest stats for tier and how they moved against the
// batch captured closest to 24 hours before the latest.
func (s *TrendService) Compare(ctx context.Context, tier string) (*TierTrend, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, ok := tiers.Lookup(tier); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	latest, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := latest.Tier(tier)
	if !ok {
		return nil, fmt.Errorf("%w: %q missing from batch %s", ErrUnknownTier, tier, latest.ID)
	}

	result := &TierTrend{
		BatchID:    latest.ID,
		CapturedAt: latest.CapturedAt,
		Stats:      current,
		Stale:      s.stale(latest),
	}

	prior, err := s.batches.Nearest(ctx, latest.CapturedAt.Add(-constants.TrendLookback))
	if err != nil {
		return nil, fmt.Errorf("failed to find comparison batch: %w", err)
	}
	if prior.ID == latest.ID {
		s.logger.Debug().Str("tier", tier).Msg("no earlier batch to compare against")
		return result, nil
	}
	previous, ok := prior.Tier(tier)
	if !ok {
		return result, nil
	}

	result.Trend = &Delta{
		BatchID:     prior.ID,
		ComparedAt:  prior.CapturedAt,
		TRThreshold: current.TRThreshold - previous.TRThreshold,
		PlayerCount: current.PlayerCount - previous.PlayerCount,
		AvgPPS:      current.PPS.Avg - previous.PPS.Avg,
		AvgAPM:      current.APM.Avg - previous.APM.Avg,
		AvgVS:       current.VS.Avg - previous.VS.Avg,
	}
	return result, nil
}

func (s *TrendService) latest(ctx context.Context) (*domain.Batch, error) {
	latest, err := s.batches.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoBatches
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest batch: %w", err)
	}
	return latest, nil
}

// stale is advisory only.
func (s *TrendService) stale(b *domain.Batch) bool {
	return s.now().Sub(b.CapturedAt) > constants.StaleAfter
}
