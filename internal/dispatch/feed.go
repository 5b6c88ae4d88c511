package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/skillmatch/internal/model"
)

// ErrMalformedReport is returned for outcome messages that cannot be decoded
var ErrMalformedReport = errors.New("malformed outcome report")

// ErrResolvePanicked is returned when recording an outcome panicked
var ErrResolvePanicked = errors.New("outcome resolution panicked")

// ResolveFunc records a match outcome
type ResolveFunc func(ctx context.Context, id model.MatchID, outcome model.Outcome) error

// OutcomeFeed subscribes to <prefix>.match.outcome and resolves each reported match
type OutcomeFeed struct {
	conn    Conn
	prefix  string
	resolve ResolveFunc
	timeout time.Duration
	logger  *slog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
	ctx context.Context
}

// NewOutcomeFeed creates an OutcomeFeed. timeout bounds each resolution.
func NewOutcomeFeed(conn Conn, prefix string, resolve ResolveFunc, timeout time.Duration, logger *slog.Logger) *OutcomeFeed {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OutcomeFeed{
		conn:    conn,
		prefix:  prefix,
		resolve: resolve,
		timeout: timeout,
		logger:  logger,
	}
}

// Subject returns the subject the feed listens on
func (f *OutcomeFeed) Subject() string {
	return fmt.Sprintf("%s.%s", f.prefix, subjectOutcome)
}

// Start subscribes. Handlers derive their context from ctx.
func (f *OutcomeFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctx = ctx

	sub, err := f.conn.Subscribe(f.Subject(), f.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", f.Subject(), err)
	}
	f.sub = sub
	f.logger.Info("outcome feed started", slog.String("subject", f.Subject()))
	return nil
}

// Close unsubscribes
func (f *OutcomeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub == nil {
		return nil
	}
	err := f.sub.Unsubscribe()
	f.sub = nil
	return err
}

func (f *OutcomeFeed) handle(msg *nats.Msg) {
	err := f.process(msg.Data)
	if err != nil {
		f.logger.Warn("outcome rejected",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
	}

	if msg.Reply == "" {
		return
	}
	ack := OutcomeAck{OK: err == nil}
	if err != nil {
		ack.Error = err.Error()
	}
	data, _ := json.Marshal(ack)
	if pubErr := f.conn.Publish(msg.Reply, data); pubErr != nil {
		f.logger.Warn("outcome ack failed", slog.String("error", pubErr.Error()))
	}
}

func (f *OutcomeFeed) process(data []byte) (err error) {
	// handlers run on the NATS dispatch goroutine, which must survive a resolve panic
	defer func() {
		if recovered := recover(); recovered != nil {
			f.logger.Error("panic resolving outcome", slog.Any("panic", recovered))
			err = fmt.Errorf("%w: %v", ErrResolvePanicked, recovered)
		}
	}()

	var report OutcomeReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	if report.MatchID == "" {
		return fmt.Errorf("%w: missing match_id", ErrMalformedReport)
	}
	outcome, err := model.ParseOutcome(report.Result)
	if err != nil {
		return err
	}

	f.mu.Lock()
	base := f.ctx
	f.mu.Unlock()
	if base == nil {
		base = context.Background()
	}

	ctx, cancel := context.WithTimeout(base, f.timeout)
	defer cancel()
	return f.resolve(ctx, model.MatchID(report.MatchID), outcome)
}
