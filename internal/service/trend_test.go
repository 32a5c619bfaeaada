package service

import (
	"context"
	"testing"
	"tetra-tracker/internal/domain"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func batchAt(at time.Time, threshold float64, players int, pps float64) domain.Batch {
	return domain.Batch{
		CapturedAt: at,
		Tiers: []domain.TierStats{{
			TierLabel:   "ss",
			TRThreshold: threshold,
			PlayerCount: players,
			PPS:         domain.MetricStats{Avg: pps},
			APM:         domain.MetricStats{Avg: 100},
			VS:          domain.MetricStats{Avg: 200},
		}},
	}
}

func newTrend(t *testing.T, now time.Time, batches ...domain.Batch) *TrendService {
	t.Helper()
	store := &fakeBatchStore{}
	for _, b := range batches {
		require.NoError(t, store.Create(context.Background(), &b))
	}
	svc := NewTrendService(store, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestCompareWithoutHistory(t *testing.T) {
	latest := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTrend(t, latest.Add(time.Hour), batchAt(latest, 23000, 500, 3))

	trend, err := svc.Compare(context.Background(), "ss")
	require.NoError(t, err)
	require.Nil(t, trend.Trend)
	require.Equal(t, 23000.0, trend.Stats.TRThreshold)
	require.False(t, trend.Stale)
}

func TestCompareUsesBatchNearestADayEarlier(t *testing.T) {
	latest := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	svc := newTrend(t, latest,
		batchAt(latest.Add(-30*time.Hour), 22000, 400, 2),
		batchAt(latest.Add(-23*time.Hour), 22500, 450, 2.5),
		batchAt(latest, 23000, 500, 3),
	)

	trend, err := svc.Compare(context.Background(), "ss")
	require.NoError(t, err)
	require.NotNil(t, trend.Trend)
	require.Equal(t, latest.Add(-23*time.Hour), trend.Trend.ComparedAt)
	require.Equal(t, 500.0, trend.Trend.TRThreshold)
	require.Equal(t, 50, trend.Trend.PlayerCount)
	require.InDelta(t, 0.5, trend.Trend.AvgPPS, 1e-9)
	require.Zero(t, trend.Trend.AvgAPM)
}

func TestCompareBreaksTiesTowardLaterBatch(t *testing.T) {
	latest := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	svc := newTrend(t, latest,
		batchAt(latest.Add(-25*time.Hour), 22000, 400, 2),
		batchAt(latest.Add(-23*time.Hour), 22500, 450, 2),
		batchAt(latest, 23000, 500, 3),
	)

	trend, err := svc.Compare(context.Background(), "ss")
	require.NoError(t, err)
	require.Equal(t, latest.Add(-23*time.Hour), trend.Trend.ComparedAt)
}

func TestCompareFlagsStaleData(t *testing.T) {
	latest := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTrend(t, latest.Add(8*time.Hour), batchAt(latest, 23000, 500, 3))

	trend, err := svc.Compare(context.Background(), "ss")
	require.NoError(t, err)
	require.True(t, trend.Stale)

	overview, err := svc.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, overview.Stale)
}

func TestCompareErrors(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := newTrend(t, now).Compare(context.Background(), "ss")
	require.ErrorIs(t, err, ErrNoBatches)

	_, err = newTrend(t, now).Latest(context.Background())
	require.ErrorIs(t, err, ErrNoBatches)

	_, err = newTrend(t, now, batchAt(now, 23000, 500, 3)).Compare(context.Background(), "q")
	require.ErrorIs(t, err, ErrUnknownTier)

	// known label, but absent from the stored batch
	_, err = newTrend(t, now, batchAt(now, 23000, 500, 3)).Compare(context.Background(), "x+")
	require.ErrorIs(t, err, ErrUnknownTier)
}
