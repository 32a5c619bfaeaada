package service

import (
	"context"
	"tetra-tracker/internal/domain"
	"time"
)

type LadderFetcher interface {
	FetchLeaguePage(ctx context.Context, session string, after *domain.Prisecter, limit int) ([]domain.LadderEntry, error)
}

type RatingSource interface {
	ResolvePlayer(ctx context.Context, user string) (string, error)
	CurrentRating(ctx context.Context, playerID string) (float64, error)
}

type ArchiveWriter interface {
	Put(ctx context.Context, data []byte) (hash string, created bool, err error)
}

type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, hash string, capturedAt time.Time) (*domain.Snapshot, error)
}

type BatchStore interface {
	Create(ctx context.Context, batch *domain.Batch) error
	Latest(ctx context.Context) (*domain.Batch, error)
	Nearest(ctx context.Context, t time.Time) (*domain.Batch, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]domain.Batch, error)
}

type SampleStore interface {
	Insert(ctx context.Context, playerID string, sample domain.HistorySample, source string) error
	ListSince(ctx context.Context, playerID string, since time.Time) ([]domain.HistorySample, error)
	LatestBefore(ctx context.Context, playerID string, before time.Time) (domain.HistorySample, error)
}
