// Package notify publishes supervised-run lifecycle events to NATS when a
// URL is configured. It is a supplemental, off-by-default feature: the
// original design has no equivalent, but it gives an external observer a
// way to watch the supervisor without scraping stdout. Publish failures are
// logged and never fatal.
package notify

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// EventKind enumerates the lifecycle events a supervised run can publish.
type EventKind string

const (
	EventRunStarted       EventKind = "run_started"
	EventRunEnded         EventKind = "run_ended"
	EventUpdateApplied    EventKind = "update_applied"
	EventDivergenceFound  EventKind = "divergence_detected"
)

// Event is the JSON payload published to the configured subject.
type Event struct {
	Kind      EventKind `json:"kind"`
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher manages a NATS connection used to publish lifecycle events,
// reconnecting automatically the way the teacher's NATS client does.
type Publisher struct {
	subject string
	mu      sync.RWMutex
	conn    *nats.Conn
}

// Connect dials url and subscribes no handlers -- this is a publish-only
// client. Connection failure is non-fatal: a failed initial connection keeps
// retrying in the background via NATS' own infinite-reconnect option, and
// events published while disconnected are dropped.
func Connect(url, subject string) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("notify: NATS URL is required")
	}
	p := &Publisher{subject: subject}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("notify: NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("notify: NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		slog.Warn("notify: initial NATS connection failed, events will be dropped until reconnect", "url", url, "error", err)
		return p, nil
	}

	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
	return p, nil
}

// Publish best-effort publishes evt. Failures (including "not connected")
// are logged and swallowed, matching the teacher's "non-fatal NATS" idiom.
func (p *Publisher) Publish(evt Event) {
	if p == nil {
		return
	}
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil || !conn.IsConnected() {
		slog.Debug("notify: dropping event, not connected", "kind", evt.Kind)
		return
	}

	evt.Timestamp = time.Now()
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Warn("notify: failed to marshal event", "error", err)
		return
	}
	if err := conn.Publish(p.subject, data); err != nil {
		slog.Warn("notify: publish failed", "error", err, "kind", evt.Kind)
	}
}

// Close drains and closes the connection, if any.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
