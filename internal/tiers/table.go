package tiers

import "math"

// Tier is a ladder band and the cumulative percentile at its lower edge.
type Tier struct {
	Label      string
	Percentile float64
}

// Table lists every ranked tier, best first.
var Table = []Tier{
	{"x+", 0.2},
	{"x", 1},
	{"u", 5},
	{"ss", 11},
	{"s+", 17},
	{"s", 23},
	{"s-", 30},
	{"a+", 38},
	{"a", 46},
	{"a-", 54},
	{"b+", 62},
	{"b", 70},
	{"b-", 78},
	{"c+", 84},
	{"c", 90},
	{"c-", 95},
	{"d+", 97.5},
	{"d", 100},
}

// Unranked is the label the ladder uses for players without a rank.
const Unranked = "z"

func Lookup(label string) (Tier, bool) {
	for _, t := range Table {
		if t.Label == label {
			return t, true
		}
	}
	return Tier{}, false
}

// ThresholdIndex is floor(percentile/100 * n) - 1, clamped into [0, n-1].
func ThresholdIndex(percentile float64, n int) int {
	idx := int(math.Floor(percentile*float64(n)/100)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}
