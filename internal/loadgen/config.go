// Package loadgen drives a running liftboard over HTTP and checks that the
// boards it serves agree with a locally computed ranking.
package loadgen

import (
	"time"

	"github.com/okian/liftboard/internal/domain/types"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL       string        // service base URL
	Athletes      int           // distinct athletes
	Lifts         int           // submissions across all athletes
	DuplicateRate float64       // share of lifts re-sent with the same id
	NoBodyRate    float64       // share of lifts sent without body_kg
	TopN          int           // leaderboard page to verify
	Workers       int           // concurrent HTTP workers
	Timeout       time.Duration // per-request timeout
	DrainTimeout  time.Duration // how long to wait for workers to catch up
	PollInterval  time.Duration // /stats polling period while draining
	Seed          uint64        // generator seed; 0 picks one from the clock
	OutputFile    string        // where generated lifts are saved; empty skips
	Verbose       bool
}

// Lift is the POST /submissions body.
type Lift struct {
	SubmissionID   string   `json:"submission_id"`
	AthleteID      string   `json:"athlete_id"`
	LiftedKg       float64  `json:"lifted_kg"`
	Reps           int      `json:"reps"`
	BodyKg         *float64 `json:"body_kg,omitempty"`
	PersonalRecord bool     `json:"personal_record"`
	TS             string   `json:"ts"`
}

// serviceStats is the subset of GET /stats the run depends on.
type serviceStats struct {
	Started      bool   `json:"started"`
	Metric       string `json:"metric"`
	Formula      string `json:"formula"`
	CurrentBoard string `json:"current_board"`
	Workers      struct {
		Processed int64 `json:"processed"`
	} `json:"workers"`
}

type leaderboardPage struct {
	Board   string        `json:"board"`
	Entries []types.Entry `json:"entries"`
}

// Report summarizes a load run.
type Report struct {
	Generated   int           `json:"generated"`
	Accepted    int64         `json:"accepted"`
	Duplicates  int64         `json:"duplicates"`
	Rejected    int64         `json:"rejected"`
	Failed      int64         `json:"failed"`
	Boards      int           `json:"boards"`
	Ranked      int           `json:"ranked"`
	Mismatches  []string      `json:"mismatches,omitempty"`
	Duration    time.Duration `json:"duration"`
	LiftsPerSec float64       `json:"lifts_per_sec"`
}
