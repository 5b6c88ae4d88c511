package storage

import (
	"context"

	"github.com/mcoot/skillmatch/internal/model"
)

// PlayerUpdate mutates a freshly read player inside UpdatePlayer. Returning an
// error abandons the update.
type PlayerUpdate func(p *model.Player) error

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	// GetPlayer returns model.ErrInvalidPlayerRecord for records missing skill values
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	// UpdatePlayer reads, applies fn and writes back with no interleaved write
	// to the same player
	UpdatePlayer(ctx context.Context, id model.PlayerID, fn PlayerUpdate) (*model.Player, error)

	// Queue operations

	// Enqueue returns model.ErrAlreadyInQueue if the player is queued anywhere and
	// model.ErrAlreadyInMatch if a match still holds a reservation on them
	Enqueue(ctx context.Context, entry model.QueueEntry) error
	RemoveFromQueue(ctx context.Context, id model.PlayerID) error
	GetQueueEntry(ctx context.Context, id model.PlayerID) (*model.QueueEntry, error)
	// QueueForRegion returns the region's entries oldest first
	QueueForRegion(ctx context.Context, region model.Region) ([]model.QueueEntry, error)
	// ScanQueues returns every non-empty region queue, each oldest first
	ScanQueues(ctx context.Context) (map[model.Region][]model.QueueEntry, error)
	// DequeueGroup removes all of ids from the region's queue or none of them,
	// and in the same step reserves every removed player for matchID.
	// It returns model.ErrQueueConflict if any id is no longer queued there.
	DequeueGroup(ctx context.Context, region model.Region, matchID model.MatchID, ids []model.PlayerID) error
	// ReleaseReservations drops the reservations matchID holds on ids. A
	// reservation held by another match is left alone.
	ReleaseReservations(ctx context.Context, matchID model.MatchID, ids []model.PlayerID) error

	// Match operations
	SaveMatch(ctx context.Context, match *model.Match) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	// ReplaceMatch overwrites a stored match and returns model.ErrMatchNotFound
	// rather than recreating one that was claimed or expired
	ReplaceMatch(ctx context.Context, match *model.Match) error
	// ClaimMatch removes and returns the match. Of any number of concurrent
	// claims exactly one succeeds; the rest get model.ErrMatchNotFound.
	ClaimMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	DeleteMatch(ctx context.Context, id model.MatchID) error
}
