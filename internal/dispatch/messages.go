package dispatch

import (
	"github.com/mcoot/skillmatch/internal/model"
)

// Subject suffixes under the configured prefix
const (
	subjectAssigned = "match.assigned"
	subjectReady    = "match.ready"
	subjectOutcome  = "match.outcome"
)

// AssignedPlayer is one roster slot in a MatchAssigned message
type AssignedPlayer struct {
	PlayerID     string  `json:"player_id"`
	ConnectionID string  `json:"connection_id,omitempty"`
	Rating       float64 `json:"rating"`
}

// MatchAssigned asks the fleet to provision a server for a match
type MatchAssigned struct {
	MatchID string           `json:"match_id"`
	Region  string           `json:"region"`
	Team1   []AssignedPlayer `json:"team1"`
	Team2   []AssignedPlayer `json:"team2"`
}

// ServerReady tells the match's players where to connect
type ServerReady struct {
	MatchID       string   `json:"match_id"`
	ServerAddr    string   `json:"server_addr"`
	PlayerIDs     []string `json:"player_ids"`
	ConnectionIDs []string `json:"connection_ids"`
}

// OutcomeReport is published by a game server when its match ends
type OutcomeReport struct {
	MatchID string `json:"match_id"`
	Result  string `json:"result"`
}

// OutcomeAck is sent to the reply subject of an OutcomeReport, if any
type OutcomeAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func newMatchAssigned(match *model.Match) MatchAssigned {
	return MatchAssigned{
		MatchID: string(match.ID),
		Region:  string(match.Region),
		Team1:   roster(match.Team1),
		Team2:   roster(match.Team2),
	}
}

func newServerReady(match *model.Match) ServerReady {
	entries := match.Entries()
	msg := ServerReady{
		MatchID:       string(match.ID),
		ServerAddr:    match.ServerAddr,
		PlayerIDs:     make([]string, 0, len(entries)),
		ConnectionIDs: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		msg.PlayerIDs = append(msg.PlayerIDs, string(e.PlayerID))
		if e.ConnectionID != "" {
			msg.ConnectionIDs = append(msg.ConnectionIDs, e.ConnectionID)
		}
	}
	return msg
}

func roster(team []model.QueueEntry) []AssignedPlayer {
	out := make([]AssignedPlayer, len(team))
	for i, e := range team {
		out[i] = AssignedPlayer{
			PlayerID:     string(e.PlayerID),
			ConnectionID: e.ConnectionID,
			Rating:       e.Rating,
		}
	}
	return out
}
