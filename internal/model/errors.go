package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound      = errors.New("player not found")
	ErrPlayerExists        = errors.New("player already exists")
	ErrInvalidPlayerRecord = errors.New("player record invalid")
	ErrRegionNotSet        = errors.New("no region set for player")
	ErrAlreadyInMatch      = errors.New("player is already in a match")

	// Queue errors
	ErrNotInQueue     = errors.New("player is not in queue")
	ErrAlreadyInQueue = errors.New("player is already in queue")
	ErrQueueConflict  = errors.New("queue changed while removing group")

	// Match errors
	ErrMatchNotFound     = errors.New("match not found")
	ErrInvalidOutcome    = errors.New("invalid match outcome")
	ErrInvalidServerAddr = errors.New("server address required")
)
