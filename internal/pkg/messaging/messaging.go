package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("messaging: client closed")
	// ErrDestinationRequired is returned when the topic or subject is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
)

type Messaging interface {
	io.Closer
	Publisher
}

type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

type OutgoingMessage struct {
	Body []byte
	// Key groups related messages. Kafka partitions by it and Pub/Sub
	// receives it as the "key" attribute.
	Key []byte
	// Headers are dropped by NSQ, which has no message headers.
	Headers []Header
}

type Header struct {
	Key   string
	Value []byte
}

// PublishResult is what the broker reported. MessageID is set by Pub/Sub
// only.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

func checkPublish(ctx context.Context, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	return nil
}
