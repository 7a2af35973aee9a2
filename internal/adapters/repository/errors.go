package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound     = errors.New("athlete not on board")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
