package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcoot/skillmatch/internal/simulator"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case QueueEntry:
		o.printQueueEntry(v)
	case Queue:
		o.printQueue(v)
	case Match:
		o.printMatch(v)
	case CycleResult:
		o.printCycleResult(v)
	case Resolution:
		o.printResolution(v)
	case HealthResult:
		o.printHealthResult(v)
	case Session:
		o.printSession(v)
	case simulator.Report:
		o.printReport(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID            string    `json:"id"`
	Rating        float64   `json:"rating"`
	RD            float64   `json:"rd"`
	Volatility    float64   `json:"volatility"`
	Region        string    `json:"region"`
	InMatch       bool      `json:"in_match"`
	MatchID       string    `json:"match_id,omitempty"`
	ServerAddr    string    `json:"server_addr,omitempty"`
	MatchesPlayed int       `json:"matches_played"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QueueEntry response type
type QueueEntry struct {
	PlayerID     string    `json:"player_id"`
	Rating       float64   `json:"rating"`
	RD           float64   `json:"rd"`
	Region       string    `json:"region"`
	JoinedAt     time.Time `json:"joined_at"`
	ConnectionID string    `json:"connection_id,omitempty"`
}

// Queue response type
type Queue struct {
	Region  string       `json:"region"`
	Entries []QueueEntry `json:"entries"`
}

// Match response type
type Match struct {
	ID         string       `json:"id"`
	Region     string       `json:"region"`
	Team1      []QueueEntry `json:"team1"`
	Team2      []QueueEntry `json:"team2"`
	Outcome    string       `json:"outcome,omitempty"`
	ServerAddr string       `json:"server_addr,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// CycleResult response type
type CycleResult struct {
	Matches []Match `json:"matches"`
}

// Resolution response type
type Resolution struct {
	Match   Match    `json:"match"`
	Players []Player `json:"players"`
}

// Session response type
type Session struct {
	Token     string    `json:"token"`
	PlayerID  string    `json:"player_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResult is the health response plus what the CLI measured
type HealthResult struct {
	Status    string `json:"status"`
	Server    string `json:"server,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Printf("Player: %s\n", p.ID)
	fmt.Printf("Region: %s\n", p.Region)
	fmt.Printf("Rating: %.1f (RD %.1f, volatility %.4f)\n", p.Rating, p.RD, p.Volatility)
	fmt.Printf("Matches Played: %d\n", p.MatchesPlayed)
	if p.InMatch {
		fmt.Printf("In Match: %s\n", p.MatchID)
		if p.ServerAddr != "" {
			fmt.Printf("Server: %s\n", p.ServerAddr)
		}
	}
}

func (o *Output) printQueueEntry(e QueueEntry) {
	fmt.Printf("Queued: %s in %s\n", e.PlayerID, e.Region)
	fmt.Printf("Rating: %.1f (RD %.1f)\n", e.Rating, e.RD)
	fmt.Printf("Joined: %s\n", e.JoinedAt.Format(time.RFC3339))
}

func (o *Output) printQueue(q Queue) {
	fmt.Printf("Queue: %s (%d waiting)\n", q.Region, len(q.Entries))
	for _, e := range q.Entries {
		fmt.Printf("  - %s %.1f±%.1f since %s\n", e.PlayerID, e.Rating, e.RD, e.JoinedAt.Format(time.RFC3339))
	}
}

func (o *Output) printMatch(m Match) {
	fmt.Printf("Match: %s\n", m.ID)
	fmt.Printf("Region: %s\n", m.Region)
	if m.ServerAddr != "" {
		fmt.Printf("Server: %s\n", m.ServerAddr)
	}
	if m.Outcome != "" {
		fmt.Printf("Outcome: %s\n", m.Outcome)
	}
	fmt.Printf("Team 1: %s\n", teamLine(m.Team1))
	fmt.Printf("Team 2: %s\n", teamLine(m.Team2))
}

func teamLine(team []QueueEntry) string {
	names := make([]string, len(team))
	var sum float64
	for i, e := range team {
		names[i] = e.PlayerID
		sum += e.Rating
	}
	if len(team) == 0 {
		return "-"
	}
	return fmt.Sprintf("%s (avg %.1f)", strings.Join(names, ", "), sum/float64(len(team)))
}

func (o *Output) printCycleResult(c CycleResult) {
	if len(c.Matches) == 0 {
		fmt.Println("No matches formed")
		return
	}
	fmt.Printf("Matches formed: %d\n", len(c.Matches))
	for _, m := range c.Matches {
		fmt.Println()
		o.printMatch(m)
	}
}

func (o *Output) printResolution(r Resolution) {
	fmt.Printf("Match %s resolved: %s\n", r.Match.ID, r.Match.Outcome)
	fmt.Println("\nUpdated Ratings:")
	for _, p := range r.Players {
		fmt.Printf("  %s: %.1f (RD %.1f)\n", p.ID, p.Rating, p.RD)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Server: %s (%dms)\n", h.Server, h.LatencyMS)
}

func (o *Output) printSession(s Session) {
	fmt.Printf("Session for %s, expires %s\n", s.PlayerID, s.ExpiresAt.Format(time.RFC3339))
	fmt.Println(s.Token)
}

func (o *Output) printReport(r simulator.Report) {
	fmt.Printf("Mode: %s\n", r.Mode)
	fmt.Printf("Rounds: %d\n", r.Rounds)
	fmt.Printf("Matches: %d\n", r.Matches)
	fmt.Printf("Mean Abs Error: %.1f\n", r.MeanAbsError)
	fmt.Printf("Errors Over %.0f: %.1f%%\n", simulator.LargeError, r.LargeErrorShare*100)
	if len(r.References) > 0 {
		fmt.Println("\nReference Players:")
		for _, p := range r.References {
			fmt.Printf("  %s: true %.0f, rated %.1f (RD %.1f) after %d matches\n",
				p.ID, p.TrueRating, p.Rating, p.RD, p.MatchesPlayed)
		}
	}
}
