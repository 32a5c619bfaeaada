package db

import (
	"context"
	"time"
)

const insertPlayerSample = `
INSERT INTO player_history (id, player_id, rating, captured_at, source, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type InsertPlayerSampleParams struct {
	ID         string
	PlayerID   string
	Rating     float64
	CapturedAt int64
	Source     string
	CreatedAt  time.Time
}

func (q *Queries) InsertPlayerSample(ctx context.Context, arg InsertPlayerSampleParams) error {
	_, err := q.db.ExecContext(ctx, insertPlayerSample,
		arg.ID,
		arg.PlayerID,
		arg.Rating,
		arg.CapturedAt,
		arg.Source,
		arg.CreatedAt,
	)
	return err
}

const listPlayerSamplesSince = `
SELECT id, player_id, rating, captured_at, source, created_at
FROM player_history
WHERE player_id = ? AND captured_at >= ?
ORDER BY captured_at ASC
`

type ListPlayerSamplesSinceParams struct {
	PlayerID string
	Since    int64
}

func (q *Queries) ListPlayerSamplesSince(ctx context.Context, arg ListPlayerSamplesSinceParams) ([]PlayerHistory, error) {
	rows, err := q.db.QueryContext(ctx, listPlayerSamplesSince, arg.PlayerID, arg.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlayerHistory
	for rows.Next() {
		var i PlayerHistory
		if err := rows.Scan(
			&i.ID,
			&i.PlayerID,
			&i.Rating,
			&i.CapturedAt,
			&i.Source,
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

const getPlayerSampleBefore = `
SELECT id, player_id, rating, captured_at, source, created_at
FROM player_history
WHERE player_id = ? AND captured_at < ?
ORDER BY captured_at DESC
LIMIT 1
`

type GetPlayerSampleBeforeParams struct {
	PlayerID string
	Before   int64
}

func (q *Queries) GetPlayerSampleBefore(ctx context.Context, arg GetPlayerSampleBeforeParams) (PlayerHistory, error) {
	row := q.db.QueryRowContext(ctx, getPlayerSampleBefore, arg.PlayerID, arg.Before)
	var i PlayerHistory
	err := row.Scan(
		&i.ID,
		&i.PlayerID,
		&i.Rating,
		&i.CapturedAt,
		&i.Source,
		&i.CreatedAt,
	)
	return i, err
}
