package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// SessionFailurePayload captures the canonical data we emit for session failure notifications.
type SessionFailurePayload struct {
	SessionID    string
	UserID       string
	Username     string
	ConnectionID string
	// Mode is "standard" or "transparent".
	Mode string
	// Stage names the lifecycle step that failed (provision, reconcile, disconnect).
	Stage      string
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink describes a destination capable of consuming session failure notifications.
type Sink interface {
	SendSessionFailure(ctx context.Context, payload SessionFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload SessionFailurePayload) error

// SendSessionFailure implements the Sink interface.
func (f SinkFunc) SendSessionFailure(ctx context.Context, payload SessionFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
