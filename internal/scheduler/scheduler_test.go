package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"tetra-tracker/internal/config"
	"tetra-tracker/internal/domain"
	"tetra-tracker/internal/service"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	runs      atomic.Int32
	staleRuns atomic.Int32
	running   atomic.Bool
	block     chan struct{}

	mu      sync.Mutex
	lastCtx context.Context
}

func (f *fakeIngester) Run(ctx context.Context) (*domain.Batch, error) {
	f.runs.Add(1)
	f.mu.Lock()
	f.lastCtx = ctx
	f.mu.Unlock()
	if f.block != nil {
		f.running.Store(true)
		defer f.running.Store(false)
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &domain.Batch{ID: "b"}, nil
}

func (f *fakeIngester) RunIfStale(context.Context) (bool, error) {
	f.staleRuns.Add(1)
	return false, nil
}

func (f *fakeIngester) Status() service.IngestionStatus {
	return service.IngestionStatus{Running: f.running.Load()}
}

func testConfig(schedule string) *config.Config {
	return &config.Config{IngestSchedule: schedule, Location: time.UTC}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(&fakeIngester{}, testConfig("every now and then"), zerolog.Nop())
	require.Error(t, err)
}

func TestStartChecksStalenessOnce(t *testing.T) {
	ing := &fakeIngester{}
	s, err := New(ing, testConfig("@every 1h"), zerolog.Nop())
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return ing.staleRuns.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	require.Zero(t, ing.runs.Load())
}

func TestScheduleRunsIngestion(t *testing.T) {
	ing := &fakeIngester{}
	s, err := New(ing, testConfig("@every 1s"), zerolog.Nop())
	require.NoError(t, err)

	s.Start()
	defer func() { assert.NoError(t, s.Stop(context.Background())) }()
	require.Eventually(t, func() bool { return ing.runs.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestTriggerRejectsOverlap(t *testing.T) {
	ing := &fakeIngester{block: make(chan struct{})}
	s, err := New(ing, testConfig("@every 1h"), zerolog.Nop())
	require.NoError(t, err)

	// the second call must be refused before the first run has even begun
	require.NoError(t, s.Trigger())
	require.ErrorIs(t, s.Trigger(), service.ErrIngestionInProgress)

	// a scheduled tick during a manual run is skipped as well
	require.Eventually(t, func() bool { return ing.Status().Running }, time.Second, 5*time.Millisecond)
	s.tick()
	require.Equal(t, int32(1), ing.runs.Load())

	close(ing.block)
	require.Eventually(t, func() bool { return s.Trigger() == nil }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	require.Equal(t, int32(2), ing.runs.Load())
	require.Error(t, s.Trigger())
}

func TestStopCancelsRunInFlight(t *testing.T) {
	ing := &fakeIngester{block: make(chan struct{})}
	s, err := New(ing, testConfig("@every 1h"), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Trigger())
	require.Eventually(t, func() bool { return ing.Status().Running }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	ing.mu.Lock()
	defer ing.mu.Unlock()
	require.True(t, errors.Is(ing.lastCtx.Err(), context.Canceled))
}

func TestCronLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := cronLogger{logger: zerolog.New(&buf)}

	l.Error(errors.New("boom"), "panic", "entry", 3)
	require.Contains(t, buf.String(), `"error":"boom"`)
	require.Contains(t, buf.String(), `"entry":3`)
	require.Contains(t, buf.String(), `"message":"panic"`)
}
