// Package tiers computes per-tier thresholds and aggregates from one full
// ladder snapshot.
package tiers

import (
	"errors"
	"fmt"
	"tetra-tracker/internal/domain"
)

var (
	ErrEmptyLadder = errors.New("ladder has no ranked players")
	ErrEmptyTier   = errors.New("tier has no players")
	ErrUnsorted    = errors.New("ladder is not sorted by rating")
)

// Compute expects entries sorted by rating, best first. Thresholds index
// into the whole ladder; aggregates cover each tier's own players.
func Compute(entries []domain.LadderEntry) ([]domain.TierStats, error) {
	n := len(entries)
	if n == 0 {
		return nil, ErrEmptyLadder
	}
	for i := 1; i < n; i++ {
		if entries[i].Rating > entries[i-1].Rating {
			return nil, fmt.Errorf("%w: index %d", ErrUnsorted, i)
		}
	}

	partitions := make(map[string][]domain.LadderEntry, len(Table))
	for _, e := range entries {
		partitions[e.TierLabel] = append(partitions[e.TierLabel], e)
	}

	stats := make([]domain.TierStats, 0, len(Table))
	for _, tier := range Table {
		members := partitions[tier.Label]
		if len(members) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyTier, tier.Label)
		}

		stats = append(stats, domain.TierStats{
			TierLabel:   tier.Label,
			TRThreshold: entries[ThresholdIndex(tier.Percentile, n)].Rating,
			PlayerCount: len(members),
			PPS:         metric(members, func(e domain.LadderEntry) float64 { return e.PPS }),
			APM:         metric(members, func(e domain.LadderEntry) float64 { return e.APM }),
			VS:          metric(members, func(e domain.LadderEntry) float64 { return e.VS }),
		})
	}
	return stats, nil
}

// metric averages over every player, ties included. The first player to
// reach an extreme holds it.
func metric(members []domain.LadderEntry, value func(domain.LadderEntry) float64) domain.MetricStats {
	first := members[0]
	m := domain.MetricStats{
		Min: domain.Extreme{PlayerID: first.PlayerID, Username: first.Username, Value: value(first)},
		Max: domain.Extreme{PlayerID: first.PlayerID, Username: first.Username, Value: value(first)},
	}

	var sum float64
	for _, e := range members {
		v := value(e)
		sum += v
		if v < m.Min.Value {
			m.Min = domain.Extreme{PlayerID: e.PlayerID, Username: e.Username, Value: v}
		}
		if v > m.Max.Value {
			m.Max = domain.Extreme{PlayerID: e.PlayerID, Username: e.Username, Value: v}
		}
	}
	m.Avg = sum / float64(len(members))
	return m
}
