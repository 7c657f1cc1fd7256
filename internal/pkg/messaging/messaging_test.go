package messaging

import (
	"context"
	"errors"
	"testing"
)

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsToNone", func(t *testing.T) {
		m, err := NewFromDriver(ctx, "", FactoryOptions{})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if _, ok := m.(*None); !ok {
			t.Fatalf("expected none driver, got %T", m)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, err := NewFromDriver(ctx, "rabbitmq", FactoryOptions{}); !errors.Is(err, ErrUnknownDriver) {
			t.Fatalf("expected unknown driver, got %v", err)
		}
	})

	t.Run("MissingConfig", func(t *testing.T) {
		if _, err := NewFromDriver(ctx, DriverKafka, FactoryOptions{}); !errors.Is(err, ErrKafkaBrokersRequired) {
			t.Fatalf("expected kafka brokers error, got %v", err)
		}
		if _, err := NewFromDriver(ctx, DriverNATS, FactoryOptions{}); !errors.Is(err, ErrNATSURLRequired) {
			t.Fatalf("expected nats url error, got %v", err)
		}
		if _, err := NewFromDriver(ctx, DriverNSQ, FactoryOptions{}); !errors.Is(err, ErrNSQProducerAddrRequired) {
			t.Fatalf("expected nsq addr error, got %v", err)
		}
		if _, err := NewFromDriver(ctx, DriverGooglePubSub, FactoryOptions{}); !errors.Is(err, ErrPubSubProjectIDRequired) {
			t.Fatalf("expected pubsub project error, got %v", err)
		}
	})
}

func TestRecorder(t *testing.T) {
	// Arrange
	rec := NewRecorder()

	// Act
	_, err := rec.Publish(context.Background(), "auth_session_changed", OutgoingMessage{Body: []byte(`{}`)})

	// Assert
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	msgs := rec.Messages()
	if len(msgs) != 1 || msgs[0].Destination != "auth_session_changed" {
		t.Fatalf("unexpected messages %+v", msgs)
	}

	_ = rec.Close()
	if _, err := rec.Publish(context.Background(), "x", OutgoingMessage{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestKafkaPublishAfterClose(t *testing.T) {
	k, err := NewKafka(KafkaConfig{Brokers: []string{"127.0.0.1:1"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_ = k.Close()

	if _, err := k.Publish(context.Background(), "t", OutgoingMessage{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}
