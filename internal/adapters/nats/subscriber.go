package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/wanderplan/internal/core/ports"
)

// Subscriber reads run events back from JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewSubscriber connects to NATS for reading run events.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRun delivers every event of runID, replaying those published
// before the call, until ctx is done or the returned cancel func is called.
func (s *Subscriber) SubscribeRun(ctx context.Context, runID string, handler func(ev ports.RunEvent)) (func(), error) {
	sub, err := s.js.Subscribe(ProgressSubject(runID), func(msg *nats.Msg) {
		var ev ports.RunEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("bad run event", "subject", msg.Subject, "error", err)
			return
		}
		handler(ev)
	},
		nats.OrderedConsumer(),
		nats.DeliverAll(),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe run %s: %w", runID, err)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = sub.Unsubscribe()
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }, nil
}

// IsConnected reports the connection state for readiness checks.
func (s *Subscriber) IsConnected() bool {
	return s.conn.IsConnected()
}

// Close drains and closes the connection.
func (s *Subscriber) Close() {
	_ = s.conn.Drain()
}
