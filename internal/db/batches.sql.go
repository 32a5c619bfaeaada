package db

import (
	"context"
	"time"
)

const createBatch = `
INSERT INTO batches (id, captured_at, archive_hash, player_count, created_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateBatchParams struct {
	ID          string
	CapturedAt  int64
	ArchiveHash string
	PlayerCount int64
	CreatedAt   time.Time
}

func (q *Queries) CreateBatch(ctx context.Context, arg CreateBatchParams) error {
	_, err := q.db.ExecContext(ctx, createBatch,
		arg.ID,
		arg.CapturedAt,
		arg.ArchiveHash,
		arg.PlayerCount,
		arg.CreatedAt,
	)
	return err
}

const batchColumns = `id, captured_at, archive_hash, player_count, created_at`

const getLatestBatch = `
SELECT ` + batchColumns + ` FROM batches
ORDER BY captured_at DESC
LIMIT 1
`

func (q *Queries) GetLatestBatch(ctx context.Context) (Batch, error) {
	row := q.db.QueryRowContext(ctx, getLatestBatch)
	var i Batch
	err := row.Scan(
		&i.ID,
		&i.CapturedAt,
		&i.ArchiveHash,
		&i.PlayerCount,
		&i.CreatedAt,
	)
	return i, err
}

const getNearestBatch = `
SELECT ` + batchColumns + ` FROM batches
ORDER BY ABS(captured_at - ?) ASC, captured_at DESC
LIMIT 1
`

func (q *Queries) GetNearestBatch(ctx context.Context, target int64) (Batch, error) {
	row := q.db.QueryRowContext(ctx, getNearestBatch, target)
	var i Batch
	err := row.Scan(
		&i.ID,
		&i.CapturedAt,
		&i.ArchiveHash,
		&i.PlayerCount,
		&i.CreatedAt,
	)
	return i, err
}

const listBatchesBetween = `
SELECT ` + batchColumns + ` FROM batches
WHERE captured_at >= ? AND captured_at <= ?
ORDER BY captured_at ASC
`

type ListBatchesBetweenParams struct {
	From int64
	To   int64
}

func (q *Queries) ListBatchesBetween(ctx context.Context, arg ListBatchesBetweenParams) ([]Batch, error) {
	rows, err := q.db.QueryContext(ctx, listBatchesBetween, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Batch
	for rows.Next() {
		var i Batch
		if err := rows.Scan(
			&i.ID,
			&i.CapturedAt,
			&i.ArchiveHash,
			&i.PlayerCount,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTierStat = `
INSERT INTO tier_stats (
    batch_id, tier, position, tr_threshold, player_count,
    pps_avg, pps_min, pps_min_id, pps_min_name, pps_max, pps_max_id, pps_max_name,
    apm_avg, apm_min, apm_min_id, apm_min_name, apm_max, apm_max_id, apm_max_name,
    vs_avg, vs_min, vs_min_id, vs_min_name, vs_max, vs_max_id, vs_max_name
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertTierStat(ctx context.Context, arg TierStat) error {
	_, err := q.db.ExecContext(ctx, insertTierStat,
		arg.BatchID, arg.Tier, arg.Position, arg.TrThreshold, arg.PlayerCount,
		arg.PpsAvg, arg.PpsMin, arg.PpsMinID, arg.PpsMinName, arg.PpsMax, arg.PpsMaxID, arg.PpsMaxName,
		arg.ApmAvg, arg.ApmMin, arg.ApmMinID, arg.ApmMinName, arg.ApmMax, arg.ApmMaxID, arg.ApmMaxName,
		arg.VsAvg, arg.VsMin, arg.VsMinID, arg.VsMinName, arg.VsMax, arg.VsMaxID, arg.VsMaxName,
	)
	return err
}

const listTierStatsByBatch = `
SELECT
    batch_id, tier, position, tr_threshold, player_count,
    pps_avg, pps_min, pps_min_id, pps_min_name, pps_max, pps_max_id, pps_max_name,
    apm_avg, apm_min, apm_min_id, apm_min_name, apm_max, apm_max_id, apm_max_name,
    vs_avg, vs_min, vs_min_id, vs_min_name, vs_max, vs_max_id, vs_max_name
FROM tier_stats
WHERE batch_id = ?
ORDER BY position ASC
`

func (q *Queries) ListTierStatsByBatch(ctx context.Context, batchID string) ([]TierStat, error) {
	rows, err := q.db.QueryContext(ctx, listTierStatsByBatch, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TierStat
	for rows.Next() {
		var i TierStat
		if err := rows.Scan(
			&i.BatchID, &i.Tier, &i.Position, &i.TrThreshold, &i.PlayerCount,
			&i.PpsAvg, &i.PpsMin, &i.PpsMinID, &i.PpsMinName, &i.PpsMax, &i.PpsMaxID, &i.PpsMaxName,
			&i.ApmAvg, &i.ApmMin, &i.ApmMinID, &i.ApmMinName, &i.ApmMax, &i.ApmMaxID, &i.ApmMaxName,
			&i.VsAvg, &i.VsMin, &i.VsMinID, &i.VsMinName, &i.VsMax, &i.VsMaxID, &i.VsMaxName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
