package repository

import (
	"context"
	"database/sql"
	"fmt"
	"tetra-tracker/internal/db"
	"tetra-tracker/internal/domain"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const (
	SourceLookup = "lookup"
)

type HistoryRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewHistoryRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *HistoryRepository) Insert(ctx context.Context, playerID string, sample domain.HistorySample, source string) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	err = r.queries.InsertPlayerSample(ctx, db.InsertPlayerSampleParams{
		ID:         id,
		PlayerID:   playerID,
		Rating:     sample.Rating,
		CapturedAt: sample.CapturedAt.UnixMilli(),
		Source:     source,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to insert history sample")
		return fmt.Errorf("failed to insert history sample: %w", err)
	}
	return nil
}

// ListSince returns the player's samples at or after since, oldest first.
func (r *HistoryRepository) ListSince(ctx context.Context, playerID string, since time.Time) ([]domain.HistorySample, error) {
	rows, err := r.queries.ListPlayerSamplesSince(ctx, db.ListPlayerSamplesSinceParams{
		PlayerID: playerID,
		Since:    since.UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.HistorySample, len(rows))
	for i, row := range rows {
		result[i] = toSample(row)
	}
	return result, nil
}

// LatestBefore returns ErrNotFound when the player has no earlier sample.
func (r *HistoryRepository) LatestBefore(ctx context.Context, playerID string, before time.Time) (domain.HistorySample, error) {
	row, err := r.queries.GetPlayerSampleBefore(ctx, db.GetPlayerSampleBeforeParams{
		PlayerID: playerID,
		Before:   before.UnixMilli(),
	})
	if err != nil {
		return domain.HistorySample{}, notFound(err)
	}
	return toSample(row), nil
}

func toSample(row db.PlayerHistory) domain.HistorySample {
	return domain.HistorySample{
		CapturedAt: time.UnixMilli(row.CapturedAt).UTC(),
		Rating:     row.Rating,
	}
}
