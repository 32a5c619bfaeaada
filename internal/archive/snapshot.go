package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"tetra-tracker/internal/domain"
	"time"
)

type snapshotDoc struct {
	Entries []domain.LadderEntry `json:"entries"`
}

// EncodeSnapshot serializes the entries only. Capture time lives on the
// batch so that identical ladders share one archive.
func EncodeSnapshot(entries []domain.LadderEntry) ([]byte, error) {
	data, err := json.Marshal(snapshotDoc{Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func DecodeSnapshot(data []byte, capturedAt time.Time) (*domain.Snapshot, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	for i := range doc.Entries {
		doc.Entries[i].CapturedAt = capturedAt
	}
	SortEntries(doc.Entries)

	return &domain.Snapshot{
		Hash:       Hash(data),
		CapturedAt: capturedAt,
		Entries:    doc.Entries,
	}, nil
}

// SortEntries orders entries by rating, best first.
func SortEntries(entries []domain.LadderEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Rating > entries[j].Rating
	})
}

func (s *Store) LoadSnapshot(ctx context.Context, hash string, capturedAt time.Time) (*domain.Snapshot, error) {
	data, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(data, capturedAt)
}
