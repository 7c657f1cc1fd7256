package mq

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/clock"
	"github.com/shandysiswandi/authflow/internal/pkg/goroutine"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/messaging"
	"github.com/shandysiswandi/authflow/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client    messaging.Messaging
	goroutine *goroutine.Manager
	clock     clock.Clocker
	ins       instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, gm *goroutine.Manager, clk clock.Clocker, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, goroutine: gm, clock: clk, ins: ins}
}

// OnSessionChange publishes change in the background. It matches the session
// store subscriber signature.
func (m *Messaging) OnSessionChange(ctx context.Context) func(entity.SessionChange) {
	return func(change entity.SessionChange) {
		msg := toMessage(change, m.clock)
		m.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
			if err := m.PublishSessionChanged(ctx, msg); err != nil {
				slog.WarnContext(ctx, "failed to publish session change", "kind", msg.Kind, "error", err)
			}
			return nil
		})
	}
}

func toMessage(change entity.SessionChange, clk clock.Clocker) event.SessionChangedMessage {
	msg := event.SessionChangedMessage{
		Kind:       change.Kind.String(),
		OccurredAt: clk.Now().UTC(),
	}
	if u := change.Session.User; u != nil {
		msg.UserID = u.ID
		msg.Email = u.Email
	}
	return msg
}

func (m *Messaging) PublishSessionChanged(ctx context.Context, msg event.SessionChangedMessage) error {
	ctx, span := m.ins.Tracer("auth.outbound.mq").Start(ctx, "PublishSessionChanged")
	defer span.End()

	body, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.SessionChangedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.UserID),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
