// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel failure kinds shared across layers. Callers match them with
// errors.Is; producers wrap them with context.
var (
	// ErrInvalidInput is the single failure kind of the computational core.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQueueFull reports backpressure at submission intake.
	ErrQueueFull = errors.New("submission queue full")
	// ErrNotStarted reports a pipeline operation before start or after stop.
	ErrNotStarted = errors.New("service not started")
)

// Submission is one lift posted by an athlete for a rotation week.
// Fields mirror the JSON body of POST /submissions.
type Submission struct {
	SubmissionID   string    // unique id for idempotency
	AthleteID      string    // subject identifier
	LiftedKg       float64   // load on the bar
	Reps           int       // repetitions performed with LiftedKg
	BodyKg         *float64  // bodyweight on record, nil when unknown
	PersonalRecord bool      // flagged by the client when the lift beats the athlete's history
	TS             time.Time // when the lift was performed
	Board          BoardKey  // rotation week the lift counts for
}

// BoardKey identifies a weekly leaderboard by ISO year and week.
type BoardKey struct {
	Year int
	Week int
}

// String renders the key as YYYY-Www, e.g. 2026-W42.
func (k BoardKey) String() string {
	return fmt.Sprintf("%04d-W%02d", k.Year, k.Week)
}

// ParseBoardKey parses the YYYY-Www form produced by String.
func ParseBoardKey(s string) (BoardKey, error) {
	year, week, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "-W")
	if !ok {
		return BoardKey{}, fmt.Errorf("%w: board key %q", ErrInvalidInput, s)
	}
	y, err := strconv.Atoi(year)
	if err != nil || len(year) != 4 {
		return BoardKey{}, fmt.Errorf("%w: board year %q", ErrInvalidInput, year)
	}
	w, err := strconv.Atoi(week)
	if err != nil || w < 1 || w > 53 {
		return BoardKey{}, fmt.Errorf("%w: board week %q", ErrInvalidInput, week)
	}
	return BoardKey{Year: y, Week: w}, nil
}
