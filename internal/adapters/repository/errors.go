package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("contract not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
