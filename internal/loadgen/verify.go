package loadgen

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/okian/liftboard/internal/domain/ranking"
	"github.com/okian/liftboard/internal/domain/scoring"
	"github.com/okian/liftboard/internal/domain/types"
)

// expectation recomputes metrics with the service's configured scorer.
type expectation struct {
	scorer *scoring.MetricScorer
}

func newExpectation(metric, formula string) (*expectation, error) {
	kind, err := scoring.ParseMetricKind(metric)
	if err != nil {
		return nil, fmt.Errorf("service metric: %w", err)
	}
	f, err := scoring.ParseFormula(formula)
	if err != nil {
		return nil, fmt.Errorf("service formula: %w", err)
	}
	return &expectation{scorer: scoring.NewMetricScorer(scoring.WithMetricKind(kind), scoring.WithFormula(f))}, nil
}

// standings returns the ranked best lift per athlete on board. Lifts the
// scorer rejects are left out, as the workers skip them.
func (e *expectation) standings(ctx context.Context, board string, lifts map[string]placed) ([]ranking.Ranked, error) {
	best := make(map[string]ranking.Candidate)
	for _, p := range lifts {
		if p.board != board {
			continue
		}
		res, err := e.scorer.Score(ctx, scoring.Input{
			AthleteID: p.AthleteID,
			LiftedKg:  p.LiftedKg,
			Reps:      p.Reps,
			BodyKg:    p.BodyKg,
		})
		if err != nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, p.TS)
		if err != nil {
			return nil, fmt.Errorf("lift %s: %w", p.SubmissionID, err)
		}
		c := ranking.Candidate{ID: p.AthleteID, Metric: res.Metric, AchievedAt: ts, PersonalRecord: p.PersonalRecord}
		if prev, ok := best[c.ID]; !ok || ranking.Less(c, prev) {
			best[c.ID] = c
		}
	}

	candidates := make([]ranking.Candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	return ranking.Rank(candidates), nil
}

// verifyBoard compares the served leaderboard page and every athlete's rank
// against the local standings, appending disagreements to the report.
func verifyBoard(ctx context.Context, c *client, cfg *Config, exp *expectation, board string, lifts map[string]placed, report *Report) error {
	want, err := exp.standings(ctx, board, lifts)
	if err != nil {
		return err
	}
	path := "/leaderboard/" + url.PathEscape(board)

	var page leaderboardPage
	if err := c.getJSON(ctx, fmt.Sprintf("%s?limit=%d", path, max(cfg.TopN, 1)), &page); err != nil {
		return fmt.Errorf("leaderboard %s: %w", board, err)
	}
	if n := min(len(want), max(cfg.TopN, 1)); len(page.Entries) != n {
		report.mismatch("board %s: %d entries served, %d expected", board, len(page.Entries), n)
	}
	for i := range min(len(page.Entries), len(want)) {
		compare(report, board, page.Entries[i], want[i])
	}

	for _, w := range want {
		var got types.Entry
		if err := c.getJSON(ctx, "/rank/"+url.PathEscape(board)+"/"+url.PathEscape(w.ID), &got); err != nil {
			report.mismatch("board %s: rank of %s: %v", board, w.ID, err)
			continue
		}
		compare(report, board, got, w)
		report.Ranked++
	}
	return nil
}

func compare(report *Report, board string, got types.Entry, want ranking.Ranked) {
	switch {
	case got.AthleteID != want.ID:
		report.mismatch("board %s rank %d: athlete %s served, %s expected", board, want.Rank, got.AthleteID, want.ID)
	case got.Rank != want.Rank:
		report.mismatch("board %s athlete %s: rank %d served, %d expected", board, want.ID, got.Rank, want.Rank)
	case got.Metric != want.Metric:
		report.mismatch("board %s athlete %s: metric %v served, %v expected", board, want.ID, got.Metric, want.Metric)
	}
}

func (r *Report) mismatch(format string, args ...any) {
	r.Mismatches = append(r.Mismatches, fmt.Sprintf(format, args...))
}
