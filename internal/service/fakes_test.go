package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"tetra-tracker/internal/domain"
	"tetra-tracker/internal/repository"
	"tetra-tracker/internal/tiers"
	"time"
)

// testLadder builds n ranked players, best first, labelled by rank position.
func testLadder(n int) []domain.LadderEntry {
	entries := make([]domain.LadderEntry, n)
	for i := range entries {
		label := tiers.Table[len(tiers.Table)-1].Label
		for _, tier := range tiers.Table {
			if float64(i) < math.Floor(tier.Percentile*float64(n)/100) {
				label = tier.Label
				break
			}
		}
		rating := 25000 - float64(i)*20
		entries[i] = domain.LadderEntry{
			PlayerID:  fmt.Sprintf("id-%04d", i),
			Username:  fmt.Sprintf("player%d", i),
			Rating:    rating,
			PPS:       1 + float64(i%5)/2,
			APM:       30 + float64(i%9),
			VS:        60 + float64(i%17),
			TierLabel: label,
			Cursor:    domain.Prisecter{Pri: rating, Sec: float64(i)},
		}
	}
	return entries
}

type pageCall struct {
	session string
	after   *domain.Prisecter
	limit   int
}

type fakeFetcher struct {
	mu      sync.Mutex
	ladder  []domain.LadderEntry
	calls   []pageCall
	failOn  func(call int) error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeFetcher) FetchLeaguePage(ctx context.Context, session string, after *domain.Prisecter, limit int) ([]domain.LadderEntry, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pageCall{session: session, after: after, limit: limit})
	call := len(f.calls)
	f.mu.Unlock()

	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	if f.failOn != nil {
		if err := f.failOn(call); err != nil {
			return nil, err
		}
	}

	start := 0
	if after != nil {
		for i, e := range f.ladder {
			if e.Cursor == *after {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(f.ladder))
	return append([]domain.LadderEntry(nil), f.ladder[start:end]...), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeBatchStore struct {
	mu      sync.Mutex
	batches []domain.Batch
	nextID  int
}

func (f *fakeBatchStore) Create(_ context.Context, b *domain.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == "" {
		f.nextID++
		b.ID = fmt.Sprintf("batch-%d", f.nextID)
	}
	f.batches = append(f.batches, *b)
	sort.SliceStable(f.batches, func(i, j int) bool {
		return f.batches[i].CapturedAt.Before(f.batches[j].CapturedAt)
	})
	return nil
}

func (f *fakeBatchStore) Latest(context.Context) (*domain.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil, repository.ErrNotFound
	}
	b := f.batches[len(f.batches)-1]
	return &b, nil
}

func (f *fakeBatchStore) Nearest(_ context.Context, t time.Time) (*domain.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil, repository.ErrNotFound
	}
	best := f.batches[0]
	for _, b := range f.batches[1:] {
		d, bestD := b.CapturedAt.Sub(t).Abs(), best.CapturedAt.Sub(t).Abs()
		if d < bestD || (d == bestD && b.CapturedAt.After(best.CapturedAt)) {
			best = b
		}
	}
	return &best, nil
}

func (f *fakeBatchStore) ListBetween(_ context.Context, from, to time.Time) ([]domain.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Batch
	for _, b := range f.batches {
		if !b.CapturedAt.Before(from) && !b.CapturedAt.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBatchStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type storedSample struct {
	playerID string
	sample   domain.HistorySample
	source   string
}

type fakeSampleStore struct {
	mu      sync.Mutex
	samples []storedSample
}

func (f *fakeSampleStore) Insert(_ context.Context, playerID string, sample domain.HistorySample, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, storedSample{playerID, sample, source})
	return nil
}

func (f *fakeSampleStore) ListSince(_ context.Context, playerID string, since time.Time) ([]domain.HistorySample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.HistorySample
	for _, s := range f.samples {
		if s.playerID == playerID && !s.sample.CapturedAt.Before(since) {
			out = append(out, s.sample)
		}
	}
	return out, nil
}

func (f *fakeSampleStore) LatestBefore(_ context.Context, playerID string, before time.Time) (domain.HistorySample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *domain.HistorySample
	for _, s := range f.samples {
		if s.playerID == playerID && s.sample.CapturedAt.Before(before) {
			if best == nil || s.sample.CapturedAt.After(best.CapturedAt) {
				sample := s.sample
				best = &sample
			}
		}
	}
	if best == nil {
		return domain.HistorySample{}, repository.ErrNotFound
	}
	return *best, nil
}

type fakeRatings struct {
	// lower-cased username -> account id; unknown names resolve to themselves
	ids     map[string]string
	rating  float64
	err     error
	queried []string
}

func (f *fakeRatings) ResolvePlayer(_ context.Context, user string) (string, error) {
	if id, ok := f.ids[strings.ToLower(user)]; ok {
		return id, nil
	}
	return user, nil
}

func (f *fakeRatings) CurrentRating(_ context.Context, playerID string) (float64, error) {
	f.queried = append(f.queried, playerID)
	return f.rating, f.err
}
