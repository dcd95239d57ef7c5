// Package natspub publishes broadcast payloads over core NATS.
package natspub

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Publisher sends payloads to NATS subjects named after topics.
type Publisher struct {
	nc *nats.Conn
}

// New wraps an established connection.
func New(nc *nats.Conn) *Publisher { return &Publisher{nc: nc} }

// Connect dials url and returns a Publisher that owns the connection.
func Connect(url, name string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// Publish sends payload to topic. Core NATS publish is fire-and-forget;
// an error means the message was not handed to the connection.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.nc.Publish(topic, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered messages and closes the connection.
func (p *Publisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}
