package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"tetra-tracker/internal/db"
	"tetra-tracker/internal/domain"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("not found")

type BatchRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewBatchRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *BatchRepository {
	return &BatchRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Create writes the batch and all of its tier rows in one transaction and
// assigns an ID when the batch has none.
func (r *BatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	if batch.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		batch.ID = id
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	err = qtx.CreateBatch(ctx, db.CreateBatchParams{
		ID:          batch.ID,
		CapturedAt:  batch.CapturedAt.UnixMilli(),
		ArchiveHash: batch.ArchiveHash,
		PlayerCount: int64(batch.PlayerCount),
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	for i, t := range batch.Tiers {
		if err := qtx.InsertTierStat(ctx, toTierRow(batch.ID, i, t)); err != nil {
			return fmt.Errorf("failed to insert tier %s: %w", t.TierLabel, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	r.logger.Debug().
		Str("batch_id", batch.ID).
		Str("archive_hash", batch.ArchiveHash).
		Int("tiers", len(batch.Tiers)).
		Msg("batch created")
	return nil
}

func (r *BatchRepository) Latest(ctx context.Context) (*domain.Batch, error) {
	row, err := r.queries.GetLatestBatch(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return r.withTiers(ctx, row)
}

// Nearest returns the batch closest in time to t; ties go to the later one.
func (r *BatchRepository) Nearest(ctx context.Context, t time.Time) (*domain.Batch, error) {
	row, err := r.queries.GetNearestBatch(ctx, t.UnixMilli())
	if err != nil {
		return nil, notFound(err)
	}
	return r.withTiers(ctx, row)
}

// ListBetween returns batches captured within [from, to], oldest first,
// without their tier rows.
func (r *BatchRepository) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Batch, error) {
	rows, err := r.queries.ListBatchesBetween(ctx, db.ListBatchesBetweenParams{
		From: from.UnixMilli(),
		To:   to.UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.Batch, len(rows))
	for i, row := range rows {
		result[i] = toBatch(row)
	}
	return result, nil
}

func (r *BatchRepository) withTiers(ctx context.Context, row db.Batch) (*domain.Batch, error) {
	tierRows, err := r.queries.ListTierStatsByBatch(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiers for batch %s: %w", row.ID, err)
	}

	batch := toBatch(row)
	batch.Tiers = make([]domain.TierStats, len(tierRows))
	for i, t := range tierRows {
		batch.Tiers[i] = toTierStats(t)
	}
	return &batch, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func toBatch(row db.Batch) domain.Batch {
	return domain.Batch{
		ID:          row.ID,
		CapturedAt:  time.UnixMilli(row.CapturedAt).UTC(),
		ArchiveHash: row.ArchiveHash,
		PlayerCount: int(row.PlayerCount),
	}
}

func toTierRow(batchID string, position int, t domain.TierStats) db.TierStat {
	return db.TierStat{
		BatchID:     batchID,
		Tier:        t.TierLabel,
		Position:    int64(position),
		TrThreshold: t.TRThreshold,
		PlayerCount: int64(t.PlayerCount),
		PpsAvg:      t.PPS.Avg,
		PpsMin:      t.PPS.Min.Value,
		PpsMinID:    t.PPS.Min.PlayerID,
		PpsMinName:  t.PPS.Min.Username,
		PpsMax:      t.PPS.Max.Value,
		PpsMaxID:    t.PPS.Max.PlayerID,
		PpsMaxName:  t.PPS.Max.Username,
		ApmAvg:      t.APM.Avg,
		ApmMin:      t.APM.Min.Value,
		ApmMinID:    t.APM.Min.PlayerID,
		ApmMinName:  t.APM.Min.Username,
		ApmMax:      t.APM.Max.Value,
		ApmMaxID:    t.APM.Max.PlayerID,
		ApmMaxName:  t.APM.Max.Username,
		VsAvg:       t.VS.Avg,
		VsMin:       t.VS.Min.Value,
		VsMinID:     t.VS.Min.PlayerID,
		VsMinName:   t.VS.Min.Username,
		VsMax:       t.VS.Max.Value,
		VsMaxID:     t.VS.Max.PlayerID,
		VsMaxName:   t.VS.Max.Username,
	}
}

func toTierStats(t db.TierStat) domain.TierStats {
	return domain.TierStats{
		TierLabel:   t.Tier,
		TRThreshold: t.TrThreshold,
		PlayerCount: int(t.PlayerCount),
		PPS: domain.MetricStats{
			Avg: t.PpsAvg,
			Min: domain.Extreme{PlayerID: t.PpsMinID, Username: t.PpsMinName, Value: t.PpsMin},
			Max: domain.Extreme{PlayerID: t.PpsMaxID, Username: t.PpsMaxName, Value: t.PpsMax},
		},
		APM: domain.MetricStats{
			Avg: t.ApmAvg,
			Min: domain.Extreme{PlayerID: t.ApmMinID, Username: t.ApmMinName, Value: t.ApmMin},
			Max: domain.Extreme{PlayerID: t.ApmMaxID, Username: t.ApmMaxName, Value: t.ApmMax},
		},
		VS: domain.MetricStats{
			Avg: t.VsAvg,
			Min: domain.Extreme{PlayerID: t.VsMinID, Username: t.VsMinName, Value: t.VsMin},
			Max: domain.Extreme{PlayerID: t.VsMaxID, Username: t.VsMaxName, Value: t.VsMax},
		},
	}
}
