package model

import (
	"fmt"
	"strings"
	"time"
)

// MatchID uniquely identifies a match
type MatchID string

// Outcome is the resolved result of a match from team1's point of view
type Outcome string

const (
	OutcomeUnresolved Outcome = ""
	OutcomeTeam1Win   Outcome = "team1"
	OutcomeTeam2Win   Outcome = "team2"
	OutcomeDraw       Outcome = "draw"
)

// ParseOutcome accepts the canonical names plus the home/away aliases used by game servers
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "team1", "home":
		return OutcomeTeam1Win, nil
	case "team2", "away":
		return OutcomeTeam2Win, nil
	case "draw":
		return OutcomeDraw, nil
	}
	return OutcomeUnresolved, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// Score returns team1's score for the outcome: 1 for a win, 0 for a loss, 0.5 for a draw
func (o Outcome) Score() (float64, error) {
	switch o {
	case OutcomeTeam1Win:
		return 1, nil
	case OutcomeTeam2Win:
		return 0, nil
	case OutcomeDraw:
		return 0.5, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, string(o))
}

// Match is a pair of balanced teams pulled from one region's queue
type Match struct {
	ID         MatchID
	Region     Region
	Team1      []QueueEntry
	Team2      []QueueEntry
	Outcome    Outcome
	ServerAddr string
	CreatedAt  time.Time
}

// Entries returns both rosters, team1 first
func (m *Match) Entries() []QueueEntry {
	all := make([]QueueEntry, 0, len(m.Team1)+len(m.Team2))
	all = append(all, m.Team1...)
	return append(all, m.Team2...)
}

// PlayerIDs returns every participant, team1 first
func (m *Match) PlayerIDs() []PlayerID {
	return PlayerIDs(m.Entries())
}
