package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/skillmatch/internal/dependencies/clock"
	"github.com/mcoot/skillmatch/internal/dispatch"
	"github.com/mcoot/skillmatch/internal/metrics"
	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/rating"
	"github.com/mcoot/skillmatch/internal/storage"
)

// Resolution is a recorded outcome and the players it updated, team1 first
type Resolution struct {
	Match   *model.Match
	Players []*model.Player
}

// Controller handles the lifecycle of a dispatched match
type Controller struct {
	storage    storage.Storage
	adapter    *rating.TeamAdapter
	dispatcher dispatch.Dispatcher
	clock      clock.Clock
	metrics    *metrics.Manager
	logger     *slog.Logger
}

// NewController creates a new match Controller
func NewController(
	storage storage.Storage,
	adapter *rating.TeamAdapter,
	dispatcher dispatch.Dispatcher,
	clock clock.Clock,
	metrics *metrics.Manager,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:    storage,
		adapter:    adapter,
		dispatcher: dispatcher,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// Get retrieves a match by ID
func (c *Controller) Get(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return c.storage.GetMatch(ctx, id)
}

// MarkReady records the game server's address and tells the players where to go
func (c *Controller) MarkReady(ctx context.Context, id model.MatchID, serverAddr string) (*model.Match, error) {
	if serverAddr == "" {
		return nil, model.ErrInvalidServerAddr
	}

	match, err := c.storage.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	// a resolve that claimed the match in between makes this ErrMatchNotFound
	match.ServerAddr = serverAddr
	if err := c.storage.ReplaceMatch(ctx, match); err != nil {
		return nil, err
	}

	now := c.clock.Now()
	for _, e := range match.Entries() {
		_, err := c.storage.UpdatePlayer(ctx, e.PlayerID, func(p *model.Player) error {
			if p.MatchID != match.ID {
				return errMovedOn
			}
			p.ServerAddr = serverAddr
			p.UpdatedAt = now
			return nil
		})
		if err != nil && !errors.Is(err, errMovedOn) {
			return nil, fmt.Errorf("player %s: %w", e.PlayerID, err)
		}
	}

	if err := c.dispatcher.NotifyServerReady(ctx, match); err != nil {
		return nil, fmt.Errorf("notify server ready: %w", err)
	}

	c.logger.InfoContext(ctx, "match server ready",
		slog.String("match_id", string(id)),
		slog.String("server_addr", serverAddr),
	)
	return match, nil
}

// errMovedOn marks a player whose record already points past this match
var errMovedOn = errors.New("player no longer in this match")

// Resolve records the outcome once and applies the team rating update to every
// participant. The match is claimed before anything else is read, so of two
// concurrent resolutions only one rates; the other gets model.ErrMatchNotFound.
// A rejected outcome or a failed load puts the match back untouched.
func (c *Controller) Resolve(ctx context.Context, id model.MatchID, outcome model.Outcome) (*Resolution, error) {
	score, err := outcome.Score()
	if err != nil {
		return nil, err
	}

	match, err := c.storage.ClaimMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	team1, err := c.loadTeam(ctx, match.Team1)
	if err != nil {
		return nil, c.restore(ctx, match, err)
	}
	team2, err := c.loadTeam(ctx, match.Team2)
	if err != nil {
		return nil, c.restore(ctx, match, err)
	}

	rated1, rated2, err := c.adapter.Rate(ratings(team1), ratings(team2), score)
	if err != nil {
		return nil, c.restore(ctx, match, fmt.Errorf("rate match %s: %w", id, err))
	}

	now := c.clock.Now()
	updates := make(map[model.PlayerID]rating.PublicRating, len(team1)+len(team2))
	for i, p := range team1 {
		updates[p.ID] = rated1[i]
	}
	for i, p := range team2 {
		updates[p.ID] = rated2[i]
	}

	// A player whose flag no longer names this match was written by an
	// earlier attempt that failed part way.
	players := make([]*model.Player, 0, len(updates))
	for _, e := range match.Entries() {
		player, err := c.storage.UpdatePlayer(ctx, e.PlayerID, func(p *model.Player) error {
			if p.MatchID != match.ID {
				return errMovedOn
			}
			apply(p, updates[p.ID], now)
			return nil
		})
		if errors.Is(err, errMovedOn) {
			player, err = c.storage.GetPlayer(ctx, e.PlayerID)
		}
		if err != nil {
			return nil, c.restore(ctx, match, fmt.Errorf("player %s: %w", e.PlayerID, err))
		}
		players = append(players, player)
	}

	if err := c.storage.ReleaseReservations(ctx, match.ID, match.PlayerIDs()); err != nil {
		c.logger.WarnContext(ctx, "failed to release reservations",
			slog.String("match_id", string(id)),
			slog.String("error", err.Error()),
		)
	}

	match.Outcome = outcome
	c.metrics.RecordOutcome(string(outcome))
	c.metrics.RecordRatingUpdates(len(players))
	c.logger.InfoContext(ctx, "match resolved",
		slog.String("match_id", string(id)),
		slog.String("outcome", string(outcome)),
		slog.Int("players", len(players)),
	)
	return &Resolution{Match: match, Players: players}, nil
}

// restore puts a claimed match back so the outcome can be reported again
func (c *Controller) restore(ctx context.Context, match *model.Match, cause error) error {
	if err := c.storage.SaveMatch(ctx, match); err != nil {
		c.logger.ErrorContext(ctx, "failed to restore match",
			slog.String("match_id", string(match.ID)),
			slog.String("error", err.Error()),
		)
	}
	return cause
}

func (c *Controller) loadTeam(ctx context.Context, entries []model.QueueEntry) ([]*model.Player, error) {
	team := make([]*model.Player, len(entries))
	for i, e := range entries {
		player, err := c.storage.GetPlayer(ctx, e.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", e.PlayerID, err)
		}
		team[i] = player
	}
	return team, nil
}

func ratings(team []*model.Player) []rating.PublicRating {
	out := make([]rating.PublicRating, len(team))
	for i, p := range team {
		out[i] = rating.PublicRating{Rating: p.Rating, RD: p.RD, Volatility: p.Volatility}
	}
	return out
}

func apply(p *model.Player, r rating.PublicRating, now time.Time) {
	p.Rating = r.Rating
	p.RD = r.RD
	p.Volatility = r.Volatility
	p.MatchesPlayed++
	p.ClearMatch()
	p.UpdatedAt = now
}
