// Package eventbus publishes domain events to NATS so external delivery
// workers (email, push) can fan them out.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher sends an event payload on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Subject joins a prefix and event parts into a NATS subject.
func Subject(prefix string, parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if p := strings.Trim(prefix, "."); p != "" {
		all = append(all, p)
	}
	for _, s := range parts {
		if s = strings.Trim(s, "."); s != "" {
			all = append(all, s)
		}
	}
	return strings.Join(all, ".")
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// NATS publishes JSON-encoded payloads on a core NATS connection. Subjects
// are sent as given; callers build them with Subject.
type NATS struct {
	nc  Conn
	log *zap.Logger
}

// New wraps an established connection.
func New(nc Conn, log *zap.Logger) *NATS {
	if log == nil {
		log = zap.NewNop()
	}
	return &NATS{nc: nc, log: log}
}

// Connect dials url and returns a publisher on the new connection.
func Connect(url, name string, log *zap.Logger) (*NATS, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return New(nc, log), nil
}

// Publish is fire-and-forget at the protocol level; the returned error only
// covers encoding and a closed connection.
func (n *NATS) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return n.nc.Publish(subject, data)
}

// Close flushes pending messages and closes the connection.
func (n *NATS) Close() {
	if n == nil || n.nc == nil {
		return
	}
	if err := n.nc.Drain(); err != nil {
		n.log.Warn("nats drain failed", zap.Error(err))
		n.nc.Close()
	}
}

// Nop discards every event. Used when no NATS URL is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
