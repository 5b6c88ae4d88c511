package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/skillmatch/internal/model"
)

// Conn is the part of *nats.Conn the publisher and feed use
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

var _ Conn = (*nats.Conn)(nil)

// Connect dials the broker with reconnect settings suitable for a long-lived service
func Connect(url, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	return nats.Connect(url, opts...)
}

// Publisher is a Dispatcher that publishes JSON messages on NATS subjects:
// <prefix>.match.assigned.<region> and <prefix>.match.ready
type Publisher struct {
	conn   Conn
	prefix string
	logger *slog.Logger
}

// NewPublisher creates a Publisher
func NewPublisher(conn Conn, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, prefix: prefix, logger: logger}
}

var _ Dispatcher = (*Publisher)(nil)

func (p *Publisher) DispatchMatch(ctx context.Context, match *model.Match) error {
	subject := fmt.Sprintf("%s.%s.%s", p.prefix, subjectAssigned, match.Region)
	if err := p.publish(subject, newMatchAssigned(match)); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "published match",
		slog.String("subject", subject),
		slog.String("match_id", string(match.ID)),
	)
	return nil
}

func (p *Publisher) NotifyServerReady(ctx context.Context, match *model.Match) error {
	subject := fmt.Sprintf("%s.%s", p.prefix, subjectReady)
	if err := p.publish(subject, newServerReady(match)); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "published server ready",
		slog.String("subject", subject),
		slog.String("match_id", string(match.ID)),
	)
	return nil
}

func (p *Publisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
