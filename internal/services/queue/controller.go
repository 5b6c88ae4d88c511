package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/skillmatch/internal/dependencies/clock"
	"github.com/mcoot/skillmatch/internal/metrics"
	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/storage"
)

// Enrollment holds the skill values a brand-new player starts with
type Enrollment struct {
	Rating     float64
	RD         float64
	Volatility float64
}

// DefaultEnrollment returns the standard Glicko-2 starting values
func DefaultEnrollment() Enrollment {
	return Enrollment{
		Rating:     model.DefaultRating,
		RD:         model.DefaultRD,
		Volatility: model.DefaultVolatility,
	}
}

// JoinRequest asks for a player to be queued. Region falls back to the player's
// stored region; ConnectionID is passed through to match dispatch.
type JoinRequest struct {
	PlayerID     model.PlayerID
	Region       model.Region
	ConnectionID string
}

// Controller manages player enrollment and queue membership
type Controller struct {
	storage    storage.Storage
	clock      clock.Clock
	metrics    *metrics.Manager
	logger     *slog.Logger
	enrollment Enrollment
}

// NewController creates a new queue Controller
func NewController(
	storage storage.Storage,
	clock clock.Clock,
	metrics *metrics.Manager,
	logger *slog.Logger,
	enrollment Enrollment,
) *Controller {
	return &Controller{
		storage:    storage,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
		enrollment: enrollment,
	}
}

// Enroll creates a player with the enrollment defaults
func (c *Controller) Enroll(ctx context.Context, id model.PlayerID, region model.Region) (*model.Player, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", model.ErrInvalidPlayerRecord)
	}
	if region == "" {
		return nil, model.ErrRegionNotSet
	}

	_, err := c.storage.GetPlayer(ctx, id)
	switch {
	case err == nil:
		return nil, model.ErrPlayerExists
	case !errors.Is(err, model.ErrPlayerNotFound):
		return nil, err
	}

	now := c.clock.Now()
	player := &model.Player{
		ID:         id,
		Rating:     c.enrollment.Rating,
		RD:         c.enrollment.RD,
		Volatility: c.enrollment.Volatility,
		Region:     region,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := c.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "player enrolled",
		slog.String("player_id", string(id)),
		slog.String("region", string(region)),
	)
	return player, nil
}

// GetPlayer retrieves a player by ID
func (c *Controller) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return c.storage.GetPlayer(ctx, id)
}

// Join snapshots the player into their region's queue, enrolling them first if
// they are unknown and a region was given.
func (c *Controller) Join(ctx context.Context, req JoinRequest) (*model.QueueEntry, error) {
	player, err := c.storage.GetPlayer(ctx, req.PlayerID)
	if errors.Is(err, model.ErrPlayerNotFound) {
		if req.Region == "" {
			return nil, model.ErrRegionNotSet
		}
		player, err = c.Enroll(ctx, req.PlayerID, req.Region)
	}
	if err != nil {
		return nil, err
	}

	// A flag whose match is gone (expired or lost) is stale. The reservation a
	// live match holds still makes Enqueue refuse the player.
	staleMatch := false
	if player.InMatch {
		_, err := c.storage.GetMatch(ctx, player.MatchID)
		switch {
		case err == nil:
			return nil, model.ErrAlreadyInMatch
		case !errors.Is(err, model.ErrMatchNotFound):
			return nil, err
		}
		staleMatch = true
	}

	region := req.Region
	if region == "" {
		region = player.Region
	}
	if region == "" {
		return nil, model.ErrRegionNotSet
	}

	now := c.clock.Now()
	entry := model.NewQueueEntry(player, region, now, req.ConnectionID)
	if err := c.storage.Enqueue(ctx, entry); err != nil {
		return nil, err
	}

	if staleMatch || region != player.Region {
		_, err := c.storage.UpdatePlayer(ctx, player.ID, func(p *model.Player) error {
			if staleMatch && p.MatchID == player.MatchID {
				p.ClearMatch()
			}
			p.Region = region
			p.UpdatedAt = now
			return nil
		})
		if err != nil {
			return nil, errors.Join(err, c.storage.RemoveFromQueue(ctx, player.ID))
		}
		if staleMatch {
			c.logger.InfoContext(ctx, "cleared flag for expired match",
				slog.String("player_id", string(player.ID)),
				slog.String("match_id", string(player.MatchID)),
			)
		}
	}

	c.metrics.RecordQueueJoin(string(region))
	c.logger.DebugContext(ctx, "player queued",
		slog.String("player_id", string(player.ID)),
		slog.String("region", string(region)),
		slog.Float64("rating", player.Rating),
	)
	return &entry, nil
}

// Leave removes a player from whichever queue they are in
func (c *Controller) Leave(ctx context.Context, id model.PlayerID) error {
	entry, err := c.storage.GetQueueEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := c.storage.RemoveFromQueue(ctx, id); err != nil {
		return err
	}

	c.metrics.RecordQueueLeave(string(entry.Region))
	return nil
}

// List returns a region's queue, oldest first
func (c *Controller) List(ctx context.Context, region model.Region) ([]model.QueueEntry, error) {
	if region == "" {
		return nil, model.ErrRegionNotSet
	}
	return c.storage.QueueForRegion(ctx, region)
}
