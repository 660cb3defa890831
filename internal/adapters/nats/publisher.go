package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
)

const (
	// StreamName is the JetStream stream holding run events.
	StreamName = "PLAN_RUNS"

	subjectProgress = "plan.progress."
	subjectOutcome  = "plan.outcome."
)

// ProgressSubject is the subject carrying every transition of one run.
func ProgressSubject(runID string) string { return subjectProgress + runID }

// OutcomeSubject is the subject a terminal event is published on.
func OutcomeSubject(stage domain.Stage) string {
	if stage == domain.StageDone {
		return subjectOutcome + "succeeded"
	}
	return subjectOutcome + "failed"
}

// Publisher implements ports.RunObserver using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the run event stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subjectProgress + ">", subjectOutcome + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// OnTransition publishes ev on the run's progress subject, and on the
// outcome subject once the run is terminal.
func (p *Publisher) OnTransition(ctx context.Context, ev ports.RunEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(ProgressSubject(ev.RunID), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish progress: %w", err)
	}
	if ev.Stage == domain.StageDone || ev.Stage == domain.StageFailed {
		if _, err := p.js.Publish(OutcomeSubject(ev.Stage), data, nats.Context(ctx)); err != nil {
			return fmt.Errorf("publish outcome: %w", err)
		}
	}
	return nil
}

// IsConnected reports the connection state for readiness checks.
func (p *Publisher) IsConnected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

func connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
