package identity

import (
	"context"
	"time"
)

// ActivityEventType labels events recorded through the ActivitySink.
type ActivityEventType string

const (
	ActivityEventLoginSuccess          ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure          ActivityEventType = "auth.login.failure"
	ActivityEventTokenRotated          ActivityEventType = "auth.token.rotated"
	ActivityEventAccountCreated        ActivityEventType = "account.created"
	ActivityEventAccountDeleted        ActivityEventType = "account.deleted"
	ActivityEventEmailValidated        ActivityEventType = "account.email.validated"
	ActivityEventPasswordChanged       ActivityEventType = "account.password.changed"
	ActivityEventPasswordResetRequest  ActivityEventType = "account.password.reset_requested"
	ActivityEventPasswordResetComplete ActivityEventType = "account.password.reset_completed"
)

// ActorRef identifies who triggered an event.
type ActorRef struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
}

// ActivityEvent is one audit record.
type ActivityEvent struct {
	EventType  ActivityEventType `json:"event_type"`
	Actor      ActorRef          `json:"actor"`
	UserID     string            `json:"user_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}

// ActivitySink receives audit events. Implementations must be safe for
// concurrent use, failures are logged and never abort the operation
// that produced the event.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(sink ActivitySink) ActivitySink {
	if sink == nil {
		return noopActivitySink{}
	}
	return sink
}

// LogActivitySink writes audit events through the package Logger.
type LogActivitySink struct {
	Logger Logger
}

func (s LogActivitySink) Record(_ context.Context, event ActivityEvent) error {
	logger := s.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("activity %s actor=%s user=%s meta=%v", event.EventType, event.Actor.ID, event.UserID, event.Metadata)
	return nil
}
