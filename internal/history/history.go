// Package history turns scattered rating samples into a series that spans a
// fixed trailing window exactly, edge to edge.
package history

import (
	"sort"
	"tetra-tracker/internal/domain"
	"time"
)

type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor ends at the start of now's calendar day in loc and reaches back
// the given number of days.
func WindowFor(now time.Time, loc *time.Location, days int) Window {
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Interpolate returns the rating on the line through a and b at t. It
// returns a's and b's ratings exactly at their own timestamps.
func Interpolate(a, b domain.HistorySample, t time.Time) float64 {
	switch {
	case t.Equal(a.CapturedAt):
		return a.Rating
	case t.Equal(b.CapturedAt):
		return b.Rating
	}
	span := b.CapturedAt.Sub(a.CapturedAt).Seconds()
	if span == 0 {
		return a.Rating
	}
	return a.Rating + (b.Rating-a.Rating)/span*t.Sub(a.CapturedAt).Seconds()
}

// Reconstruct clips or pads samples to w. current anchors the right edge
// when nothing was captured at or after it. With no samples at all the
// result is flat at current's rating.
func Reconstruct(samples []domain.HistorySample, current domain.HistorySample, w Window) []domain.HistorySample {
	if len(samples) == 0 {
		return []domain.HistorySample{
			{CapturedAt: w.Start, Rating: current.Rating},
			{CapturedAt: w.End, Rating: current.Rating},
		}
	}

	series := normalize(samples, w.Start)

	at := sort.Search(len(series), func(i int) bool {
		return !series[i].CapturedAt.Before(w.End)
	})
	switch {
	case at == len(series):
		last := series[len(series)-1]
		series = append(series, domain.HistorySample{CapturedAt: w.End, Rating: Interpolate(last, current, w.End)})
	case at > 0:
		edge := domain.HistorySample{CapturedAt: w.End, Rating: Interpolate(series[at-1], series[at], w.End)}
		series = append(series[:at], edge)
	default:
		// nothing precedes the right edge; hold the earliest later rating
		series = []domain.HistorySample{{CapturedAt: w.End, Rating: series[0].Rating}}
	}

	first := series[0]
	switch {
	case first.CapturedAt.Before(w.Start) && series[1].CapturedAt.Equal(w.Start):
		series = series[1:]
	case first.CapturedAt.Before(w.Start):
		series[0] = domain.HistorySample{CapturedAt: w.Start, Rating: Interpolate(first, series[1], w.Start)}
	case first.CapturedAt.After(w.Start):
		series = append([]domain.HistorySample{{CapturedAt: w.Start, Rating: first.Rating}}, series...)
	}
	return series
}

// normalize sorts a copy by time, keeps the last sample of any repeated
// timestamp and drops all but the latest sample before start.
func normalize(samples []domain.HistorySample, start time.Time) []domain.HistorySample {
	sorted := make([]domain.HistorySample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CapturedAt.Before(sorted[j].CapturedAt)
	})

	out := sorted[:0]
	for _, s := range sorted {
		if n := len(out); n > 0 && out[n-1].CapturedAt.Equal(s.CapturedAt) {
			out[n-1] = s
			continue
		}
		out = append(out, s)
	}

	before := 0
	for before < len(out) && out[before].CapturedAt.Before(start) {
		before++
	}
	if before > 1 {
		out = out[before-1:]
	}
	return out
}
