package tiers

import (
	"fmt"
	"math"
	"testing"
	"tetra-tracker/internal/domain"

	"github.com/stretchr/testify/require"
)

// ladder builds n players with strictly falling ratings, each labelled with
// the tier its rank position falls into.
func ladder(n int) []domain.LadderEntry {
	entries := make([]domain.LadderEntry, n)
	for i := range entries {
		label := Table[len(Table)-1].Label
		for _, tier := range Table {
			if float64(i) < math.Floor(tier.Percentile*float64(n)/100) {
				label = tier.Label
				break
			}
		}
		entries[i] = domain.LadderEntry{
			PlayerID:  fmt.Sprintf("id-%d", i),
			Username:  fmt.Sprintf("player%d", i),
			Rating:    25000 - float64(i)*10,
			PPS:       float64(i%7) + 1,
			APM:       float64(i%11) + 20,
			VS:        float64(i%13) + 40,
			TierLabel: label,
		}
	}
	return entries
}

func TestThresholdIndex(t *testing.T) {
	require.Equal(t, 3, ThresholdIndex(0.2, 2000))
	require.Equal(t, 19, ThresholdIndex(1, 2000))
	// 70/100*90 rounds to 62.999..., the product form stays exact
	require.Equal(t, 62, ThresholdIndex(70, 90))
	require.Equal(t, 1949, ThresholdIndex(97.5, 2000))
	require.Equal(t, 1999, ThresholdIndex(100, 2000))
	require.Equal(t, 0, ThresholdIndex(0.2, 10))
}

func TestTableIsOrderedBestFirst(t *testing.T) {
	seen := map[string]bool{}
	for i, tier := range Table {
		require.False(t, seen[tier.Label], "duplicate tier %s", tier.Label)
		seen[tier.Label] = true
		if i > 0 {
			require.Greater(t, tier.Percentile, Table[i-1].Percentile)
		}
	}
	require.Equal(t, 100.0, Table[len(Table)-1].Percentile)
}

func TestComputeThresholdsNonIncreasing(t *testing.T) {
	entries := ladder(2000)
	stats, err := Compute(entries)
	require.NoError(t, err)
	require.Len(t, stats, len(Table))

	total := 0
	for i, s := range stats {
		require.Equal(t, Table[i].Label, s.TierLabel)
		require.Equal(t, entries[ThresholdIndex(Table[i].Percentile, len(entries))].Rating, s.TRThreshold)
		if i > 0 {
			require.LessOrEqual(t, s.TRThreshold, stats[i-1].TRThreshold)
		}
		total += s.PlayerCount
	}
	require.Equal(t, len(entries), total)
}

func TestComputeAggregatesAndExtremes(t *testing.T) {
	entries := []domain.LadderEntry{
		{PlayerID: "a", Username: "ann", Rating: 300, PPS: 2, APM: 60, VS: 120, TierLabel: "x"},
		{PlayerID: "b", Username: "bob", Rating: 200, PPS: 4, APM: 60, VS: 100, TierLabel: "x"},
		{PlayerID: "c", Username: "cid", Rating: 100, PPS: 3, APM: 90, VS: 110, TierLabel: "x"},
	}
	var full []domain.LadderEntry
	for _, tier := range Table {
		if tier.Label == "x" {
			full = append(full, entries...)
			continue
		}
		rating := 50.0
		if len(full) == 0 {
			rating = 400
		}
		full = append(full, domain.LadderEntry{PlayerID: tier.Label, Rating: rating, TierLabel: tier.Label})
	}

	stats, err := Compute(full)
	require.NoError(t, err)

	var x domain.TierStats
	for _, s := range stats {
		if s.TierLabel == "x" {
			x = s
		}
	}
	require.Equal(t, 3, x.PlayerCount)
	require.InDelta(t, 3.0, x.PPS.Avg, 1e-9)
	require.Equal(t, "ann", x.PPS.Min.Username)
	require.Equal(t, "bob", x.PPS.Max.Username)
	// tied values count once per player
	require.InDelta(t, 70.0, x.APM.Avg, 1e-9)
	require.Equal(t, "a", x.APM.Min.PlayerID)
	require.Equal(t, "c", x.APM.Max.PlayerID)
	require.Equal(t, 120.0, x.VS.Max.Value)
	require.Equal(t, 100.0, x.VS.Min.Value)
}

func TestComputeIntegrityFailures(t *testing.T) {
	_, err := Compute(nil)
	require.ErrorIs(t, err, ErrEmptyLadder)

	entries := ladder(2000)
	var withoutU []domain.LadderEntry
	for _, e := range entries {
		if e.TierLabel != "u" {
			withoutU = append(withoutU, e)
		}
	}
	_, err = Compute(withoutU)
	require.ErrorIs(t, err, ErrEmptyTier)

	entries[5], entries[6] = entries[6], entries[5]
	_, err = Compute(entries)
	require.ErrorIs(t, err, ErrUnsorted)
}
