// Package rotation answers which exercise a challenge week features and how
// long remains until the weekly cutoff.
package rotation

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/liftboard/internal/domain/model"
)

// Cutoff time of day on the cutoff date.
const (
	cutoffHour   = 23
	cutoffMinute = 59
	cutoffSecond = 59
	daysPerWeek  = 7
)

// Assignment is the exercise featured in a rotation week.
type Assignment struct {
	ExerciseID  string
	DisplayName string
}

// DefaultTable is the Max-Out Friday rotation, cycled from ISO week 1.
var DefaultTable = []Assignment{ //nolint:gochecknoglobals // constant rotation table
	{ExerciseID: "back-squat", DisplayName: "Back Squat"},
	{ExerciseID: "bench-press", DisplayName: "Bench Press"},
	{ExerciseID: "deadlift", DisplayName: "Deadlift"},
	{ExerciseID: "overhead-press", DisplayName: "Overhead Press"},
	{ExerciseID: "front-squat", DisplayName: "Front Squat"},
	{ExerciseID: "power-clean", DisplayName: "Power Clean"},
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLocation sets the zone cutoffs and ISO weeks are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithCutoffWeekday sets the weekday the rotation closes on.
func WithCutoffWeekday(day time.Weekday) Option {
	return func(s *Scheduler) {
		if day >= time.Sunday && day <= time.Saturday {
			s.cutoffDay = day
		}
	}
}

// Scheduler maps week numbers onto a fixed assignment table. It holds no
// mutable state and is safe for concurrent use.
type Scheduler struct {
	table     []Assignment
	loc       *time.Location
	cutoffDay time.Weekday
}

// New builds a scheduler over a copy of table.
func New(table []Assignment, opts ...Option) (*Scheduler, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: empty rotation table", model.ErrInvalidInput)
	}
	s := &Scheduler{
		table:     append([]Assignment(nil), table...),
		loc:       time.Local,
		cutoffDay: time.Friday,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Len returns the rotation length.
func (s *Scheduler) Len() int { return len(s.table) }

// Location returns the zone the scheduler treats as local time.
func (s *Scheduler) Location() *time.Location { return s.loc }

// AssignmentForWeek returns the assignment for any integer week. Week 1 maps
// to the first entry; 0, negative and >53 weeks wrap by floor-mod.
func (s *Scheduler) AssignmentForWeek(week int) Assignment {
	return s.table[floorMod(week-1, len(s.table))]
}

// Week returns the ISO year and week of now in the scheduler's location.
func (s *Scheduler) Week(now time.Time) (year, week int) {
	return now.In(s.loc).ISOWeek()
}

// Board returns the leaderboard key for the week containing now.
func (s *Scheduler) Board(now time.Time) model.BoardKey {
	y, w := s.Week(now)
	return model.BoardKey{Year: y, Week: w}
}

// Current returns the assignment featured in the week containing now.
func (s *Scheduler) Current(now time.Time) Assignment {
	_, w := s.Week(now)
	return s.AssignmentForWeek(w)
}

// Next returns the assignment for the following week.
func (s *Scheduler) Next(now time.Time) Assignment {
	_, w := s.Week(now)
	return s.AssignmentForWeek(w + 1)
}

// RemainingUntilCutoff parses cutoffDate and returns the time left until
// 23:59:59 local time on that date, clamped at zero. It accepts YYYY-MM-DD
// or an RFC 3339 timestamp, whose local calendar date is used.
func (s *Scheduler) RemainingUntilCutoff(cutoffDate string, now time.Time) (time.Duration, error) {
	date, err := s.ParseDate(cutoffDate)
	if err != nil {
		return 0, err
	}
	return s.RemainingUntil(date, now), nil
}

// ParseDate parses a cutoff date string into a date in the scheduler's location.
func (s *Scheduler) ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if d, err := time.ParseInLocation(time.DateOnly, value, s.loc); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		y, m, d := ts.In(s.loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, s.loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: cutoff date %q", model.ErrInvalidInput, value)
}

// RemainingUntil returns the time left until the deadline on cutoffDate's
// calendar day, never negative. Only the calendar fields of cutoffDate are
// read; the deadline itself is placed in the scheduler's location.
func (s *Scheduler) RemainingUntil(cutoffDate time.Time, now time.Time) time.Duration {
	remaining := s.deadline(cutoffDate).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NextCutoff returns the date of the nearest cutoff whose deadline has not
// passed at now.
func (s *Scheduler) NextCutoff(now time.Time) time.Time {
	local := now.In(s.loc)
	ahead := (int(s.cutoffDay) - int(local.Weekday()) + daysPerWeek) % daysPerWeek
	y, m, d := local.Date()
	date := time.Date(y, m, d+ahead, 0, 0, 0, 0, s.loc)
	if !s.deadline(date).After(now) {
		date = time.Date(y, m, d+ahead+daysPerWeek, 0, 0, 0, 0, s.loc)
	}
	return date
}

// Countdown returns the time left in the running rotation period.
func (s *Scheduler) Countdown(now time.Time) time.Duration {
	return s.RemainingUntil(s.NextCutoff(now), now)
}

func (s *Scheduler) deadline(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, cutoffHour, cutoffMinute, cutoffSecond, 0, s.loc)
}

func floorMod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
