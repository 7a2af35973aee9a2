// Package repository holds the weekly leaderboards and answers rank queries.
package repository

import (
	"context"

	"github.com/okian/liftboard/internal/domain/model"
	"github.com/okian/liftboard/internal/domain/ranking"
	"github.com/okian/liftboard/internal/domain/types"
)

// Record is a scored submission offered to a board. Candidate.ID is the
// athlete id; the remaining fields are carried through to read responses.
type Record struct {
	Candidate    ranking.Candidate
	SubmissionID string
	LiftedKg     float64
	Reps         int
}

// Store provides read/write access to the ranking state of every board.
type Store interface {
	// UpdateBest keeps rec if it ranks ahead of the athlete's current entry on
	// board. Returns true if the board changed.
	UpdateBest(ctx context.Context, board model.BoardKey, rec Record) (bool, error)

	// Rank returns the athlete's entry and position on board.
	// Returns ErrNotFound if the athlete or board is unknown.
	Rank(ctx context.Context, board model.BoardKey, athleteID string) (types.Entry, error)

	// TopN returns the first n entries of board in rank order.
	TopN(ctx context.Context, board model.BoardKey, n int) ([]types.Entry, error)

	// Count returns the number of athletes on board.
	Count(ctx context.Context, board model.BoardKey) int

	// Total returns the number of entries across all boards.
	Total(ctx context.Context) int

	// Boards lists every board holding at least one entry, oldest first.
	Boards(ctx context.Context) []model.BoardKey
}
