// Package types contains the read shapes returned over HTTP.
package types

import "time"

// Entry represents a leaderboard row.
type Entry struct {
	Rank           int       `json:"rank"`
	AthleteID      string    `json:"athlete_id"`
	Metric         float64   `json:"metric"`
	AchievedAt     time.Time `json:"achieved_at"`
	PersonalRecord bool      `json:"personal_record"`
	SubmissionID   string    `json:"submission_id,omitempty"`
	LiftedKg       float64   `json:"lifted_kg,omitempty"`
	Reps           int       `json:"reps,omitempty"`
}

// Assignment is the featured exercise of a rotation week.
type Assignment struct {
	ExerciseID  string `json:"exercise_id"`
	DisplayName string `json:"display_name"`
}

// Rotation describes the current challenge week.
type Rotation struct {
	Board       string     `json:"board"`
	Week        int        `json:"week"`
	Current     Assignment `json:"current"`
	Next        Assignment `json:"next"`
	CutoffDate  string     `json:"cutoff_date"`
	RemainingMS int64      `json:"remaining_ms"`
}

// SubmitStatus is the outcome of a submission at intake.
type SubmitStatus string

// Intake outcomes.
const (
	StatusAccepted  SubmitStatus = "accepted"
	StatusDuplicate SubmitStatus = "duplicate"
)

// Receipt reports how a submission was handled.
type Receipt struct {
	Status       SubmitStatus `json:"status"`
	SubmissionID string       `json:"submission_id"`
	Board        string       `json:"board"`
}
