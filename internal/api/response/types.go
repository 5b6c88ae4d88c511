package response

import (
	"time"

	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/services/auth"
	"github.com/mcoot/skillmatch/internal/services/match"
)

// Player represents a player in API responses
type Player struct {
	ID            string    `json:"id"`
	Rating        float64   `json:"rating"`
	RD            float64   `json:"rd"`
	Volatility    float64   `json:"volatility"`
	Region        string    `json:"region,omitempty"`
	InMatch       bool      `json:"in_match"`
	MatchID       string    `json:"match_id,omitempty"`
	ServerAddr    string    `json:"server_addr,omitempty"`
	MatchesPlayed int       `json:"matches_played"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:            string(p.ID),
		Rating:        p.Rating,
		RD:            p.RD,
		Volatility:    p.Volatility,
		Region:        string(p.Region),
		InMatch:       p.InMatch,
		MatchID:       string(p.MatchID),
		ServerAddr:    p.ServerAddr,
		MatchesPlayed: p.MatchesPlayed,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// QueueEntry represents a queued player's snapshot
type QueueEntry struct {
	PlayerID     string    `json:"player_id"`
	Rating       float64   `json:"rating"`
	RD           float64   `json:"rd"`
	Region       string    `json:"region"`
	JoinedAt     time.Time `json:"joined_at"`
	ConnectionID string    `json:"connection_id,omitempty"`
}

// QueueEntryFromModel converts model.QueueEntry
func QueueEntryFromModel(e model.QueueEntry) QueueEntry {
	return QueueEntry{
		PlayerID:     string(e.PlayerID),
		Rating:       e.Rating,
		RD:           e.RD,
		Region:       string(e.Region),
		JoinedAt:     e.JoinedAt,
		ConnectionID: e.ConnectionID,
	}
}

// QueueEntriesFromModel converts a slice of entries, never returning nil
func QueueEntriesFromModel(entries []model.QueueEntry) []QueueEntry {
	out := make([]QueueEntry, len(entries))
	for i, e := range entries {
		out[i] = QueueEntryFromModel(e)
	}
	return out
}

// Queue is a region's queue, oldest first
type Queue struct {
	Region  string       `json:"region"`
	Entries []QueueEntry `json:"entries"`
}

// Match represents a match in API responses
type Match struct {
	ID         string       `json:"id"`
	Region     string       `json:"region"`
	Team1      []QueueEntry `json:"team1"`
	Team2      []QueueEntry `json:"team2"`
	Outcome    string       `json:"outcome,omitempty"`
	ServerAddr string       `json:"server_addr,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// MatchFromModel converts model.Match
func MatchFromModel(m *model.Match) Match {
	return Match{
		ID:         string(m.ID),
		Region:     string(m.Region),
		Team1:      QueueEntriesFromModel(m.Team1),
		Team2:      QueueEntriesFromModel(m.Team2),
		Outcome:    string(m.Outcome),
		ServerAddr: m.ServerAddr,
		CreatedAt:  m.CreatedAt,
	}
}

// CycleResult lists the matches created by one matchmaking pass
type CycleResult struct {
	Matches []Match `json:"matches"`
}

// CycleResultFromModel converts created matches
func CycleResultFromModel(matches []*model.Match) CycleResult {
	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = MatchFromModel(m)
	}
	return CycleResult{Matches: out}
}

// Resolution is the response after recording an outcome
type Resolution struct {
	Match   Match    `json:"match"`
	Players []Player `json:"players"`
}

// ResolutionFromModel converts a match.Resolution
func ResolutionFromModel(r *match.Resolution) Resolution {
	players := make([]Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = PlayerFromModel(p)
	}
	return Resolution{
		Match:   MatchFromModel(r.Match),
		Players: players,
	}
}

// Session carries a player's bearer token
type Session struct {
	Token     string    `json:"token"`
	PlayerID  string    `json:"player_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionFromModel converts an auth.Session
func SessionFromModel(s *auth.Session) Session {
	return Session{
		Token:     s.Token,
		PlayerID:  string(s.PlayerID),
		ExpiresAt: s.ExpiresAt,
	}
}
