package event

import "time"

const SessionChangedDestination string = "auth_session_changed"

// SessionChangedMessage never carries token values.
type SessionChangedMessage struct {
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
