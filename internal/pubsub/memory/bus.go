// Package memory is an in-process publisher that records every message.
// Used when no broker is configured and in tests.
package memory

import (
	"context"
	"sync"
)

// Bus records published payloads per topic.
type Bus struct {
	mu    sync.Mutex
	msgs  map[string][][]byte
	fails map[string]error
	total int
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{msgs: map[string][][]byte{}, fails: map[string]error{}}
}

// Publish stores payload under topic, or returns the failure registered for topic.
func (b *Bus) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fails[topic]; err != nil {
		return err
	}
	b.msgs[topic] = append(b.msgs[topic], append([]byte(nil), payload...))
	b.total++
	return nil
}

// FailTopic makes every publish to topic return err. A nil err clears it.
func (b *Bus) FailTopic(topic string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.fails, topic)
		return
	}
	b.fails[topic] = err
}

// Messages returns a copy of the payloads published to topic, in order.
func (b *Bus) Messages(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.msgs[topic]))
	copy(out, b.msgs[topic])
	return out
}

// Topics returns every topic that received at least one message.
func (b *Bus) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.msgs))
	for t := range b.msgs {
		out = append(out, t)
	}
	return out
}

// Total returns the number of successfully published messages.
func (b *Bus) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}
