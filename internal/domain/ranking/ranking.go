// Package ranking orders leaderboard candidates and assigns positional ranks.
//
// Ordering: metric DESC, then achievement time ASC (first to reach a metric
// wins), then ID ASC. Every position gets its own rank, so exact ties on all
// three keys are impossible and equal metrics still receive distinct ranks.
package ranking

import (
	"math"
	"sort"
	"time"
)

// Candidate is one athlete's entry on a leaderboard.
type Candidate struct {
	ID             string
	Metric         float64
	AchievedAt     time.Time
	PersonalRecord bool
}

// Ranked is a Candidate annotated with its 1-based position.
type Ranked struct {
	Candidate
	Rank int
}

// Less reports whether a ranks ahead of b. NaN metrics rank after every
// number so the order stays total.
func Less(a, b Candidate) bool {
	aNaN, bNaN := math.IsNaN(a.Metric), math.IsNaN(b.Metric)
	switch {
	case aNaN != bNaN:
		return bNaN
	case !aNaN && a.Metric != b.Metric:
		return a.Metric > b.Metric
	}
	if !a.AchievedAt.Equal(b.AchievedAt) {
		return a.AchievedAt.Before(b.AchievedAt)
	}
	return a.ID < b.ID
}

// Rank returns the candidates sorted by Less with rank = position + 1.
// The input slice is left untouched.
func Rank(candidates []Candidate) []Ranked {
	out := make([]Ranked, len(candidates))
	for i, c := range candidates {
		out[i] = Ranked{Candidate: c}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i].Candidate, out[j].Candidate)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// FindRank returns the rank id would hold among candidates. The boolean is
// false when id has no entry, which is an ordinary outcome.
func FindRank(candidates []Candidate, id string) (int, bool) {
	idx := -1
	for i := range candidates {
		if candidates[i].ID == id {
			if idx < 0 || Less(candidates[i], candidates[idx]) {
				idx = i
			}
		}
	}
	if idx < 0 {
		return 0, false
	}
	target := candidates[idx]
	rank := 1
	for i := range candidates {
		if i != idx && Less(candidates[i], target) {
			rank++
		}
	}
	return rank, true
}
