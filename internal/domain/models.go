package domain

import (
	"time"
)

// Prisecter is the ladder's composite sort key. The last entry's key of one
// page is the cursor for the next.
type Prisecter struct {
	Pri float64 `json:"pri"`
	Sec float64 `json:"sec"`
	Ter float64 `json:"ter"`
}

type LadderEntry struct {
	PlayerID   string    `json:"id"`
	Username   string    `json:"username"`
	Rating     float64   `json:"tr"`
	PPS        float64   `json:"pps"`
	APM        float64   `json:"apm"`
	VS         float64   `json:"vs"`
	TierLabel  string    `json:"rank"`
	Country    string    `json:"country,omitempty"`
	Cursor     Prisecter `json:"p"`
	CapturedAt time.Time `json:"-"`
}

// Snapshot is one full capture of the ladder, sorted by rating descending.
type Snapshot struct {
	Hash       string
	CapturedAt time.Time
	Entries    []LadderEntry
}

type Batch struct {
	ID          string      `json:"id"`
	CapturedAt  time.Time   `json:"captured_at"`
	ArchiveHash string      `json:"archive_hash"`
	PlayerCount int         `json:"player_count"`
	Tiers       []TierStats `json:"tiers"`
}

// Tier returns the stats row for label, if the batch has one.
func (b *Batch) Tier(label string) (TierStats, bool) {
	for _, t := range b.Tiers {
		if t.TierLabel == label {
			return t, true
		}
	}
	return TierStats{}, false
}

// Extreme is the holder of a per-tier minimum or maximum.
type Extreme struct {
	PlayerID string  `json:"player_id"`
	Username string  `json:"username"`
	Value    float64 `json:"value"`
}

type MetricStats struct {
	Avg float64 `json:"avg"`
	Min Extreme `json:"min"`
	Max Extreme `json:"max"`
}

type TierStats struct {
	TierLabel   string      `json:"tier"`
	TRThreshold float64     `json:"tr_threshold"`
	PlayerCount int         `json:"player_count"`
	PPS         MetricStats `json:"pps"`
	APM         MetricStats `json:"apm"`
	VS          MetricStats `json:"vs"`
}

type HistorySample struct {
	CapturedAt time.Time `json:"captured_at"`
	Rating     float64   `json:"rating"`
}

// ChartBounds is derived per request and never persisted.
type ChartBounds struct {
	ValueMax      int `json:"value_max"`
	ValueMin      int `json:"value_min"`
	SplitInterval int `json:"split_interval"`
	Offset        int `json:"offset"`
}
