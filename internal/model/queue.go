package model

import (
	"slices"
	"time"
)

// QueueEntry is a snapshot of a player's rating taken when they joined the queue.
// It is never updated; leaving and re-joining creates a new entry.
type QueueEntry struct {
	PlayerID     PlayerID
	Rating       float64
	RD           float64
	Volatility   float64
	Region       Region
	JoinedAt     time.Time
	ConnectionID string
}

// NewQueueEntry snapshots a player into a queue entry for the given region
func NewQueueEntry(p *Player, region Region, joinedAt time.Time, connectionID string) QueueEntry {
	return QueueEntry{
		PlayerID:     p.ID,
		Rating:       p.Rating,
		RD:           p.RD,
		Volatility:   p.Volatility,
		Region:       region,
		JoinedAt:     joinedAt,
		ConnectionID: connectionID,
	}
}

// MaxDelta is how far from their own rating this player will accept an opponent
func (e QueueEntry) MaxDelta() float64 {
	return e.RD * 2
}

// LowerBound is the lowest acceptable opponent rating (inclusive)
func (e QueueEntry) LowerBound() float64 {
	return e.Rating - e.MaxDelta()
}

// UpperBound is the highest acceptable opponent rating (inclusive)
func (e QueueEntry) UpperBound() float64 {
	return e.Rating + e.MaxDelta()
}

// SortByJoinedAt orders entries oldest first, breaking ties on player ID
func SortByJoinedAt(entries []QueueEntry) {
	slices.SortStableFunc(entries, func(a, b QueueEntry) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		switch {
		case a.PlayerID < b.PlayerID:
			return -1
		case a.PlayerID > b.PlayerID:
			return 1
		}
		return 0
	})
}

// PlayerIDs returns the IDs of the given entries in order
func PlayerIDs(entries []QueueEntry) []PlayerID {
	ids := make([]PlayerID, len(entries))
	for i, e := range entries {
		ids[i] = e.PlayerID
	}
	return ids
}
