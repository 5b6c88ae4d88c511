package model

import (
	"fmt"
	"math"
	"time"
)

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Region names a matchmaking region; queues never mix regions
type Region string

// Default values given to a player on first enrollment
const (
	DefaultRating     = 1500.0
	DefaultRD         = 350.0
	DefaultVolatility = 0.06
)

// Player is the persisted skill record for a participant.
// Rating and RD are on the public scale.
type Player struct {
	ID            PlayerID
	Rating        float64
	RD            float64
	Volatility    float64
	Region        Region
	InMatch       bool
	MatchID       MatchID
	ServerAddr    string
	MatchesPlayed int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate reports whether the stored skill values can be used for matchmaking
func (p *Player) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidPlayerRecord)
	case math.IsNaN(p.Rating) || math.IsInf(p.Rating, 0):
		return fmt.Errorf("%w: rating is not finite", ErrInvalidPlayerRecord)
	case !(p.RD > 0) || math.IsInf(p.RD, 0):
		return fmt.Errorf("%w: rd must be positive", ErrInvalidPlayerRecord)
	case !(p.Volatility > 0) || math.IsInf(p.Volatility, 0):
		return fmt.Errorf("%w: volatility must be positive", ErrInvalidPlayerRecord)
	}
	return nil
}

// ClearMatch resets the in-match bookkeeping after a match is resolved or released
func (p *Player) ClearMatch() {
	p.InMatch = false
	p.MatchID = ""
	p.ServerAddr = ""
}
