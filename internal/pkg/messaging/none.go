package messaging

import (
	"context"
	"sync"
	"time"
)

// None discards every message. Published messages are kept in memory only
// when recording is enabled, which tests use to inspect what was sent.
type None struct {
	record bool

	mu       sync.Mutex
	messages []Published
	closed   bool
}

// Published is a message accepted by None.
type Published struct {
	Destination string
	Message     OutgoingMessage
}

// NewNone returns a publisher that drops messages.
func NewNone() *None {
	return &None{}
}

// NewRecorder returns a publisher that keeps every message for inspection.
func NewRecorder() *None {
	return &None{record: true}
}

// Publish accepts msg without delivering it.
func (n *None) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return PublishResult{}, ErrClosed
	}
	if n.record {
		n.messages = append(n.messages, Published{Destination: destination, Message: msg})
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Messages returns a copy of the recorded messages.
func (n *None) Messages() []Published {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]Published(nil), n.messages...)
}

// Close implements io.Closer.
func (n *None) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	return nil
}
