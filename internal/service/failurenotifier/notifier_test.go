package failurenotifier

import (
	"context"
	"errors"
	"testing"

	"github.com/rajapam/broker/internal/observability/notify"
)

func TestServiceNotifySessionFailure(t *testing.T) {
	ctx := context.Background()

	var received []notify.SessionFailurePayload
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "capture",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.SessionFailurePayload) error {
					received = append(received, payload)
					return nil
				}),
			},
		},
	})

	svc.NotifySessionFailure(ctx, notify.SessionFailurePayload{
		SessionID: "s-123",
		Stage:     "provision",
	})

	if len(received) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(received))
	}
	if received[0].Severity != notify.SeverityCritical {
		t.Fatalf("expected severity to default to critical, got %s", received[0].Severity)
	}
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	if svc.Enabled() {
		t.Fatal("expected Enabled() to be false when no sinks registered")
	}
}

func TestServiceFansOutToAllSinks(t *testing.T) {
	ctx := context.Background()

	var slackCalls, pagerCalls int
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "slack",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.SessionFailurePayload) error {
					slackCalls++
					return nil
				}),
			},
			{
				Name: "pagerduty",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.SessionFailurePayload) error {
					pagerCalls++
					return nil
				}),
			},
		},
	})

	svc.NotifySessionFailure(ctx, notify.SessionFailurePayload{SessionID: "s-1", Stage: "reconcile"})

	if slackCalls != 1 || pagerCalls != 1 {
		t.Fatalf("expected both sinks invoked once, got slack=%d pagerduty=%d", slackCalls, pagerCalls)
	}
}

func TestServiceLogsErrors(t *testing.T) {
	// Ensure we don't panic when sink returns an error.
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "fail",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.SessionFailurePayload) error {
					return errors.New("boom")
				}),
			},
		},
	})

	svc.NotifySessionFailure(context.Background(), notify.SessionFailurePayload{SessionID: "s-123"})
}

func TestServiceSkipsNilSinks(t *testing.T) {
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{Name: "empty", Sink: nil},
		},
	})
	if svc.Enabled() {
		t.Fatal("expected nil sinks to be filtered out")
	}
}
