// Package dispatch hands finished matches to the game-server fleet and
// carries match outcomes back in.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/mcoot/skillmatch/internal/model"
)

// Dispatcher is told about every match the cycle creates.
// DispatchMatch failing causes the match to be released back to the queue.
type Dispatcher interface {
	DispatchMatch(ctx context.Context, match *model.Match) error
	NotifyServerReady(ctx context.Context, match *model.Match) error
}

// LogDispatcher only logs. It is used when no broker is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a LogDispatcher
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

var _ Dispatcher = (*LogDispatcher)(nil)

func (d *LogDispatcher) DispatchMatch(ctx context.Context, match *model.Match) error {
	d.logger.InfoContext(ctx, "match dispatched",
		slog.String("match_id", string(match.ID)),
		slog.String("region", string(match.Region)),
		slog.Int("players", len(match.Team1)+len(match.Team2)),
	)
	return nil
}

func (d *LogDispatcher) NotifyServerReady(ctx context.Context, match *model.Match) error {
	d.logger.InfoContext(ctx, "match server ready",
		slog.String("match_id", string(match.ID)),
		slog.String("server_addr", match.ServerAddr),
	)
	return nil
}
