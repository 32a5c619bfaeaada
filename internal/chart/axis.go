// Package chart derives y-axis bounds and gridline spacing for rating charts.
package chart

import (
	"fmt"
	"math"
	"tetra-tracker/internal/domain"
)

const (
	// Rounding is the step both raw bounds are snapped to.
	Rounding = 10
	// Segments is the number of gridline bands drawn on a chart.
	Segments = 4
	// SpanMultiple is the value every axis span must divide by.
	SpanMultiple = Segments * Rounding
)

// Bounds clamps the data range into [floor, ceiling], rounds it outward and
// hands it to search. The split interval uses offset alone while the
// reported offset includes the overflow correction.
//
// values must be non-empty and ceiling-floor must leave room for the
// widened span; violating either is a programming error and panics.
func Bounds(values []float64, floor, ceiling int) domain.ChartBounds {
	if len(values) == 0 {
		panic("chart: Bounds called with no values")
	}
	if ceiling-floor < SpanMultiple {
		panic(fmt.Sprintf("chart: domain [%d, %d] narrower than %d", floor, ceiling, SpanMultiple))
	}

	hi, lo := values[0], values[0]
	for _, v := range values[1:] {
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	hi = clamp(hi, floor, ceiling)
	lo = clamp(lo, floor, ceiling)

	valueMax := Rounding * int(math.Ceil(hi/Rounding))
	valueMin := Rounding * int(math.Floor(lo/Rounding))

	offset, overflow := search(valueMax, valueMin, floor, ceiling)
	return domain.ChartBounds{
		ValueMax:      valueMax,
		ValueMin:      valueMin,
		SplitInterval: (valueMax + offset - (valueMin - offset)) / Segments,
		Offset:        offset + overflow,
	}
}

// search widens [valueMin, valueMax] by offset on both sides until the span
// divides by SpanMultiple, sliding the window by overflow whenever an edge
// leaves [floor, ceiling].
func search(valueMax, valueMin, floor, ceiling int) (offset, overflow int) {
	for {
		candidateMax := valueMax + offset + overflow
		candidateMin := valueMin - offset + overflow
		switch {
		case candidateMax > ceiling:
			overflow--
		case candidateMin < floor:
			overflow++
		case (candidateMax-candidateMin)%SpanMultiple == 0:
			return offset, overflow
		default:
			offset++
		}
	}
}

func clamp(v float64, floor, ceiling int) float64 {
	return math.Min(math.Max(v, float64(floor)), float64(ceiling))
}
