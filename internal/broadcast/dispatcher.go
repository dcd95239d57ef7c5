package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/profiled/internal/metrics"
)

// Publisher delivers an opaque payload to a topic (best-effort).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Report summarizes one fan-out. Err aggregates every isolated failure.
type Report struct {
	Attempted int
	Delivered int
	Err       error
}

// Failed returns the number of attempted but undelivered messages.
func (r Report) Failed() int { return r.Attempted - r.Delivered }

// Merge folds o into r.
func (r *Report) Merge(o Report) {
	r.Attempted += o.Attempted
	r.Delivered += o.Delivered
	r.Err = multierr.Append(r.Err, o.Err)
}

// Dispatcher publishes envelopes concurrently with isolated per-recipient failure.
type Dispatcher struct {
	pub   Publisher
	log   *zap.Logger
	m     *metrics.Metrics
	limit int
}

// NewDispatcher constructs a Dispatcher. limit bounds in-flight publishes; <=0 means 16.
func NewDispatcher(pub Publisher, log *zap.Logger, m *metrics.Metrics, limit int) *Dispatcher {
	if limit <= 0 {
		limit = 16
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Dispatcher{pub: pub, log: log, m: m, limit: limit}
}

// Send publishes every envelope and waits for all attempts. A failing
// recipient never prevents delivery to the others.
func (d *Dispatcher) Send(ctx context.Context, envs []Envelope) Report {
	var (
		mu  sync.Mutex
		rep = Report{Attempted: len(envs)}
		g   errgroup.Group
	)
	g.SetLimit(d.limit)

	for _, env := range envs {
		g.Go(func() error {
			err := d.publish(ctx, env)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Err = multierr.Append(rep.Err, err)
				return nil
			}
			rep.Delivered++
			return nil
		})
	}
	_ = g.Wait()
	return rep
}

func (d *Dispatcher) publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env.Message)
	if err != nil {
		d.m.Failures.WithLabelValues("encode").Inc()
		d.log.Error("broadcast encode", zap.String("type", env.Message.Type), zap.Error(err))
		return fmt.Errorf("encode %s for %s: %w", env.Message.Type, env.Topic, err)
	}
	if err := d.pub.Publish(ctx, env.Topic, payload); err != nil {
		d.m.Failures.WithLabelValues("publish").Inc()
		d.log.Warn("broadcast publish",
			zap.String("topic", env.Topic),
			zap.String("type", env.Message.Type),
			zap.Error(err),
		)
		return fmt.Errorf("publish %s to %s: %w", env.Message.Type, env.Topic, err)
	}
	d.m.Published.WithLabelValues(env.Message.Type).Inc()
	return nil
}
