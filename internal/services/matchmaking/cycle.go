package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/skillmatch/internal/dependencies/clock"
	"github.com/mcoot/skillmatch/internal/dispatch"
	"github.com/mcoot/skillmatch/internal/metrics"
	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/storage"
)

// DefaultMaxConflictRetries is how many lost group removals a region pass tolerates
const DefaultMaxConflictRetries = 3

// Cycle runs matchmaking passes over every region queue
type Cycle struct {
	storage    storage.Storage
	assembler  *Assembler
	dispatcher dispatch.Dispatcher
	clock      clock.Clock
	metrics    *metrics.Manager
	logger     *slog.Logger

	maxConflictRetries int
	newID              func() model.MatchID
}

// CycleOption configures a Cycle
type CycleOption func(*Cycle)

// WithMaxConflictRetries sets the per-region conflict retry budget
func WithMaxConflictRetries(n int) CycleOption {
	return func(c *Cycle) {
		if n >= 0 {
			c.maxConflictRetries = n
		}
	}
}

// WithIDGenerator replaces the UUID match ID generator
func WithIDGenerator(fn func() model.MatchID) CycleOption {
	return func(c *Cycle) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewCycle creates a Cycle. metrics may be nil.
func NewCycle(
	storage storage.Storage,
	assembler *Assembler,
	dispatcher dispatch.Dispatcher,
	clock clock.Clock,
	metrics *metrics.Manager,
	logger *slog.Logger,
	opts ...CycleOption,
) *Cycle {
	c := &Cycle{
		storage:            storage,
		assembler:          assembler,
		dispatcher:         dispatcher,
		clock:              clock,
		metrics:            metrics,
		logger:             logger,
		maxConflictRetries: DefaultMaxConflictRetries,
		newID: func() model.MatchID {
			return model.MatchID(uuid.NewString())
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run makes one pass over every region, assembling matches until no more
// groups can be formed. Regions run concurrently. The returned matches are
// ordered by region, then by creation order within the region.
func (c *Cycle) Run(ctx context.Context) ([]*model.Match, error) {
	start := c.clock.Now()
	defer func() {
		c.metrics.ObserveCycle(c.clock.Since(start))
	}()

	queues, err := c.storage.ScanQueues(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan queues: %w", err)
	}

	regions := make([]model.Region, 0, len(queues))
	for region := range queues {
		regions = append(regions, region)
	}
	slices.Sort(regions)

	// each goroutine owns one slot
	results := make([][]*model.Match, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	for i, region := range regions {
		g.Go(func() error {
			matches, err := c.runRegion(gctx, region, queues[region])
			results[i] = matches
			return err
		})
	}
	err = g.Wait()

	var created []*model.Match
	for _, matches := range results {
		created = append(created, matches...)
	}

	if len(created) > 0 {
		c.logger.InfoContext(ctx, "matchmaking cycle complete",
			slog.Int("regions", len(regions)),
			slog.Int("matches", len(created)),
		)
	}
	return created, err
}

// RunRegion makes one pass over a single region's queue
func (c *Cycle) RunRegion(ctx context.Context, region model.Region) ([]*model.Match, error) {
	queue, err := c.storage.QueueForRegion(ctx, region)
	if err != nil {
		return nil, err
	}
	return c.runRegion(ctx, region, queue)
}

func (c *Cycle) runRegion(ctx context.Context, region model.Region, queue []model.QueueEntry) ([]*model.Match, error) {
	var matches []*model.Match
	conflicts := 0

	for {
		if err := ctx.Err(); err != nil {
			return matches, err
		}

		group := c.assembler.Assemble(queue)
		if group == nil {
			break
		}
		ids := model.PlayerIDs(group)
		// the id is fixed first so the dequeue can reserve the players for it
		matchID := c.newID()

		err := c.storage.DequeueGroup(ctx, region, matchID, ids)
		if errors.Is(err, model.ErrQueueConflict) {
			c.metrics.RecordDequeueConflict(string(region))
			conflicts++
			if conflicts > c.maxConflictRetries {
				c.logger.WarnContext(ctx, "giving up on region after repeated conflicts",
					slog.String("region", string(region)),
					slog.Int("conflicts", conflicts),
				)
				break
			}
			c.logger.DebugContext(ctx, "group removal conflict, rereading queue",
				slog.String("region", string(region)),
			)
			if queue, err = c.storage.QueueForRegion(ctx, region); err != nil {
				return matches, fmt.Errorf("reread %s queue: %w", region, err)
			}
			continue
		}
		if err != nil {
			return matches, fmt.Errorf("dequeue group in %s: %w", region, err)
		}

		queue = slices.DeleteFunc(queue, func(e model.QueueEntry) bool {
			return slices.Contains(ids, e.PlayerID)
		})

		match, err := c.createMatch(ctx, region, matchID, group)
		if err != nil {
			return matches, err
		}
		if match != nil {
			matches = append(matches, match)
		}
	}

	c.metrics.SetQueueDepth(string(region), len(queue))
	return matches, nil
}

// createMatch balances and persists a dequeued group, flags its players and
// dispatches it. A failed dispatch releases the group and returns a nil match.
func (c *Cycle) createMatch(ctx context.Context, region model.Region, id model.MatchID, group []model.QueueEntry) (*model.Match, error) {
	team1, team2 := Split(group)
	match := &model.Match{
		ID:        id,
		Region:    region,
		Team1:     team1,
		Team2:     team2,
		CreatedAt: c.clock.Now(),
	}

	if err := c.storage.SaveMatch(ctx, match); err != nil {
		return nil, errors.Join(fmt.Errorf("save match: %w", err),
			c.storage.ReleaseReservations(ctx, id, model.PlayerIDs(group)),
			c.requeue(ctx, group))
	}

	if err := c.flagPlayers(ctx, match); err != nil {
		return nil, errors.Join(fmt.Errorf("flag players: %w", err), c.Release(ctx, match))
	}

	if err := c.dispatcher.DispatchMatch(ctx, match); err != nil {
		c.metrics.RecordDispatchFailure(string(region))
		c.logger.WarnContext(ctx, "dispatch failed, releasing match",
			slog.String("match_id", string(match.ID)),
			slog.String("region", string(region)),
			slog.String("error", err.Error()),
		)
		if relErr := c.Release(ctx, match); relErr != nil {
			return nil, fmt.Errorf("release match %s: %w", match.ID, relErr)
		}
		return nil, nil
	}

	c.metrics.RecordMatchCreated(string(region))
	c.logger.InfoContext(ctx, "match created",
		slog.String("match_id", string(match.ID)),
		slog.String("region", string(region)),
		slog.Float64("imbalance", Imbalance(team1, team2)),
	)
	return match, nil
}

func (c *Cycle) flagPlayers(ctx context.Context, match *model.Match) error {
	for _, e := range match.Entries() {
		_, err := c.storage.UpdatePlayer(ctx, e.PlayerID, func(p *model.Player) error {
			p.InMatch = true
			p.MatchID = match.ID
			p.ServerAddr = ""
			p.UpdatedAt = match.CreatedAt
			return nil
		})
		if err != nil {
			return fmt.Errorf("player %s: %w", e.PlayerID, err)
		}
	}
	return nil
}

// Release undoes a match that never started: its players lose their hold and go
// back to the queue with their original join times, and the match is deleted.
func (c *Cycle) Release(ctx context.Context, match *model.Match) error {
	var errs []error
	for _, e := range match.Entries() {
		_, err := c.storage.UpdatePlayer(ctx, e.PlayerID, func(p *model.Player) error {
			if p.MatchID == match.ID {
				p.ClearMatch()
			}
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("player %s: %w", e.PlayerID, err))
		}
	}
	errs = append(errs, c.storage.ReleaseReservations(ctx, match.ID, match.PlayerIDs()))
	errs = append(errs, c.requeue(ctx, match.Entries()))
	errs = append(errs, c.storage.DeleteMatch(ctx, match.ID))
	return errors.Join(errs...)
}

func (c *Cycle) requeue(ctx context.Context, entries []model.QueueEntry) error {
	var errs []error
	for _, e := range entries {
		if err := c.storage.Enqueue(ctx, e); err != nil && !errors.Is(err, model.ErrAlreadyInQueue) {
			errs = append(errs, fmt.Errorf("requeue %s: %w", e.PlayerID, err))
		}
	}
	return errors.Join(errs...)
}
