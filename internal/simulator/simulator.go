// Package simulator replays synthetic populations through the matchmaker to
// measure how well each rating mode recovers players' true skill.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/mcoot/skillmatch/internal/dependencies/random"
	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/rating"
	"github.com/mcoot/skillmatch/internal/services/matchmaking"
)

// Mode selects how ratings move after each match
type Mode string

const (
	// ModeGlicko applies the team Glicko-2 update
	ModeGlicko Mode = "glicko"
	// ModeFixed moves ratings a fixed step per win or loss
	ModeFixed Mode = "fixed"
)

// ParseMode accepts "glicko" or "fixed"
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGlicko, ModeFixed:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

var (
	// ErrInvalidMode is returned by ParseMode for an unknown mode name
	ErrInvalidMode = errors.New("mode must be glicko or fixed")
	// ErrInvalidConfig wraps every Config.Validate failure
	ErrInvalidConfig = errors.New("invalid simulation config")
)

// LargeError is the absolute rating error counted as a miss in the report
const LargeError = 100.0

// Reference players start unrated and have known true skill
const (
	referenceHigh = 1700.0
	referenceLow  = 1300.0
)

// Config describes one simulated population and run
type Config struct {
	Players   int
	MinRating float64
	MaxRating float64
	TeamSize  int
	Rounds    int
	Mode      Mode
	Seed      uint64

	// Starting RD for the synthetic population
	PlayerRD float64

	// Games a reference player plays before its first update
	PlacementGames int

	// Rating moved per win or loss in fixed mode
	FixedStep float64

	// True-rating gap between team means that gives team1 a 75% win chance
	WinMargin float64

	Tau float64
}

// DefaultConfig returns the standard 100-player, 5v5, 200-round run
func DefaultConfig() Config {
	return Config{
		Players:        100,
		MinRating:      1200,
		MaxRating:      1800,
		TeamSize:       5,
		Rounds:         200,
		Mode:           ModeGlicko,
		Seed:           1,
		PlayerRD:       70,
		PlacementGames: 3,
		FixedStep:      10,
		WinMargin:      20,
		Tau:            0.5,
	}
}

// Validate rejects configs that cannot run
func (c Config) Validate() error {
	switch {
	case c.Players < 0:
		return fmt.Errorf("%w: players must not be negative", ErrInvalidConfig)
	case c.MaxRating < c.MinRating:
		return fmt.Errorf("%w: max rating below min rating", ErrInvalidConfig)
	case c.TeamSize < 1:
		return fmt.Errorf("%w: team size must be at least 1", ErrInvalidConfig)
	case c.Rounds < 0:
		return fmt.Errorf("%w: rounds must not be negative", ErrInvalidConfig)
	case !(c.PlayerRD > 0):
		return fmt.Errorf("%w: player rd must be positive", ErrInvalidConfig)
	case !(c.WinMargin > 0):
		return fmt.Errorf("%w: win margin must be positive", ErrInvalidConfig)
	case !(c.Tau > 0):
		return fmt.Errorf("%w: tau must be positive", ErrInvalidConfig)
	}
	_, err := ParseMode(string(c.Mode))
	return err
}

// PlayerResult is one player's state at the end of a run
type PlayerResult struct {
	ID            string  `json:"id"`
	Rating        float64 `json:"rating"`
	RD            float64 `json:"rd"`
	TrueRating    float64 `json:"true_rating"`
	Error         float64 `json:"error"`
	MatchesPlayed int     `json:"matches_played"`
	Reference     bool    `json:"reference,omitempty"`
}

// Report summarises a run
type Report struct {
	Mode            Mode           `json:"mode"`
	Rounds          int            `json:"rounds"`
	Matches         int            `json:"matches"`
	MeanAbsError    float64        `json:"mean_abs_error"`
	LargeErrorShare float64        `json:"large_error_share"`
	References      []PlayerResult `json:"references"`
	Players         []PlayerResult `json:"players"`
}

type simPlayer struct {
	id         model.PlayerID
	rating     rating.PublicRating
	trueRating float64
	placement  bool
	pending    []rating.Game
	played     int
	reference  bool
}

func (p *simPlayer) result() PlayerResult {
	return PlayerResult{
		ID:            string(p.id),
		Rating:        p.rating.Rating,
		RD:            p.rating.RD,
		TrueRating:    p.trueRating,
		Error:         p.rating.Rating - p.trueRating,
		MatchesPlayed: p.played,
		Reference:     p.reference,
	}
}

// Simulator runs one configured simulation. It is not safe for concurrent use.
type Simulator struct {
	cfg       Config
	random    *random.SeededRandom
	assembler *matchmaking.Assembler
	adapter   *rating.TeamAdapter
	logger    *slog.Logger

	// base join time for queue snapshots; only the order matters
	joined time.Time
}

// New creates a Simulator; equal configs produce equal reports
func New(cfg Config, logger *slog.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rnd := random.NewSeeded(cfg.Seed)
	return &Simulator{
		cfg:       cfg,
		random:    rnd,
		assembler: matchmaking.NewAssembler(cfg.TeamSize, rnd),
		adapter:   rating.NewTeamAdapter(rating.NewEngine(rating.WithTau(cfg.Tau))),
		logger:    logger,
		joined:    time.Unix(0, 0).UTC(),
	}, nil
}

// Run plays every round and reports the final rating errors
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	players := s.population()
	byID := make(map[model.PlayerID]*simPlayer, len(players))
	for _, p := range players {
		byID[p.id] = p
	}

	var queue []*simPlayer
	matches := 0
	for round := 0; round < s.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// players still waiting keep their place ahead of the reshuffled rest
		idle := slices.DeleteFunc(slices.Clone(players), func(p *simPlayer) bool {
			return slices.Contains(queue, p)
		})
		s.shuffle(idle)
		queue = append(queue, idle...)

		for {
			entries := s.entries(queue)
			group := s.assembler.Assemble(entries)
			if group == nil {
				break
			}
			ids := model.PlayerIDs(group)
			queue = slices.DeleteFunc(queue, func(p *simPlayer) bool {
				return slices.Contains(ids, p.id)
			})

			if err := s.play(group, byID); err != nil {
				return nil, err
			}
			matches++
		}

		s.logger.DebugContext(ctx, "simulated round",
			slog.Int("round", round),
			slog.Int("matches", matches),
			slog.Int("waiting", len(queue)),
		)
	}

	return s.report(players, matches), nil
}

func (s *Simulator) population() []*simPlayer {
	players := make([]*simPlayer, 0, s.cfg.Players+2)
	mid := (s.cfg.MaxRating + s.cfg.MinRating) / 2
	sd := (s.cfg.MaxRating - s.cfg.MinRating) / 3
	for i := 0; i < s.cfg.Players; i++ {
		r := math.Max(0, math.Round(mid+sd*s.normal()))
		players = append(players, &simPlayer{
			id:         model.PlayerID(fmt.Sprintf("player-%d", i)),
			rating:     rating.PublicRating{Rating: r, RD: s.cfg.PlayerRD, Volatility: model.DefaultVolatility},
			trueRating: r,
		})
	}

	placement := s.cfg.Mode == ModeGlicko && s.cfg.PlacementGames > 1
	for i, trueRating := range []float64{referenceHigh, referenceLow} {
		players = append(players, &simPlayer{
			id:         model.PlayerID(fmt.Sprintf("reference-%d", i+1)),
			rating:     rating.PublicRating{Rating: model.DefaultRating, RD: model.DefaultRD, Volatility: model.DefaultVolatility},
			trueRating: trueRating,
			placement:  placement,
			reference:  true,
		})
	}
	return players
}

// entries snapshots the queue in order using each player's current rating
func (s *Simulator) entries(queue []*simPlayer) []model.QueueEntry {
	entries := make([]model.QueueEntry, len(queue))
	for i, p := range queue {
		entries[i] = model.QueueEntry{
			PlayerID:   p.id,
			Rating:     p.rating.Rating,
			RD:         p.rating.RD,
			Volatility: p.rating.Volatility,
			JoinedAt:   s.joined.Add(time.Duration(i) * time.Second),
		}
	}
	return entries
}

func (s *Simulator) play(group []model.QueueEntry, byID map[model.PlayerID]*simPlayer) error {
	entries1, entries2 := matchmaking.Split(group)
	team1, team2 := lookup(entries1, byID), lookup(entries2, byID)

	score := 0.0
	if s.random.Float64() < WinProbability(meanTrue(team1)-meanTrue(team2), s.cfg.WinMargin) {
		score = 1
	}

	switch s.cfg.Mode {
	case ModeFixed:
		fixedUpdate(team1, score, s.cfg.FixedStep)
		fixedUpdate(team2, 1-score, s.cfg.FixedStep)
		return nil
	default:
		games1, games2, err := s.adapter.VirtualGames(ratings(team1), ratings(team2), score)
		if err != nil {
			return err
		}
		if err := s.glickoUpdate(team1, games1); err != nil {
			return err
		}
		return s.glickoUpdate(team2, games2)
	}
}

func (s *Simulator) glickoUpdate(team []*simPlayer, games []rating.Game) error {
	engine := s.adapter.Engine()
	for i, p := range team {
		p.played++
		p.pending = append(p.pending, games[i])
		if p.placement && len(p.pending) < s.cfg.PlacementGames {
			continue
		}
		updated, err := engine.Update(p.rating, p.pending)
		if err != nil {
			return fmt.Errorf("update %s: %w", p.id, err)
		}
		p.rating = updated
		p.pending = p.pending[:0]
		if p.placement {
			p.placement = false
			s.logger.Info("placement complete",
				slog.String("player_id", string(p.id)),
				slog.Float64("rating", p.rating.Rating),
				slog.Float64("true_rating", p.trueRating),
				slog.Float64("rd", p.rating.RD),
			)
		}
	}
	return nil
}

func fixedUpdate(team []*simPlayer, score, step float64) {
	for _, p := range team {
		p.played++
		if score == 1 {
			p.rating.Rating += step
		} else {
			p.rating.Rating -= step
		}
	}
}

func (s *Simulator) report(players []*simPlayer, matches int) *Report {
	r := &Report{
		Mode:    s.cfg.Mode,
		Rounds:  s.cfg.Rounds,
		Matches: matches,
		Players: make([]PlayerResult, 0, len(players)),
	}
	var absSum float64
	large := 0
	for _, p := range players {
		res := p.result()
		absSum += math.Abs(res.Error)
		if math.Abs(res.Error) > LargeError {
			large++
		}
		r.Players = append(r.Players, res)
		if p.reference {
			r.References = append(r.References, res)
		}
	}
	if len(players) > 0 {
		r.MeanAbsError = absSum / float64(len(players))
		r.LargeErrorShare = float64(large) / float64(len(players))
	}
	return r
}

// shuffle is Fisher-Yates over the seeded source
func (s *Simulator) shuffle(players []*simPlayer) {
	for i := len(players) - 1; i > 0; i-- {
		j := s.random.Intn(i + 1)
		players[i], players[j] = players[j], players[i]
	}
}

// normal draws a standard normal sample by Box-Muller
func (s *Simulator) normal() float64 {
	u1 := s.random.Float64()
	for u1 == 0 {
		u1 = s.random.Float64()
	}
	u2 := s.random.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func lookup(entries []model.QueueEntry, byID map[model.PlayerID]*simPlayer) []*simPlayer {
	team := make([]*simPlayer, len(entries))
	for i, e := range entries {
		team[i] = byID[e.PlayerID]
	}
	return team
}

func ratings(team []*simPlayer) []rating.PublicRating {
	out := make([]rating.PublicRating, len(team))
	for i, p := range team {
		out[i] = p.rating
	}
	return out
}

func meanTrue(team []*simPlayer) float64 {
	var sum float64
	for _, p := range team {
		sum += p.trueRating
	}
	return sum / float64(len(team))
}
