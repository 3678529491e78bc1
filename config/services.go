package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeTracker runs the session tracker worker.
	ServiceModeTracker ServiceMode = "tracker"
	// ServiceModeEncoder runs the encode task dispatcher.
	ServiceModeEncoder ServiceMode = "encoder"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeTracker,
		ServiceModeEncoder,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeTracker, ServiceModeEncoder:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, tracker, encoder)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// TrackerConfig contains session tracker service configuration.
type TrackerConfig struct {
	// Interval is the tracker tick interval.
	Interval time.Duration `env:"TRACKER_INTERVAL" envDefault:"15s"`

	// PollTimeout bounds a single upstream status probe.
	PollTimeout time.Duration `env:"TRACKER_POLL_TIMEOUT" envDefault:"10s"`

	// Concurrency is the number of sessions reconciled in parallel per tick.
	Concurrency int `env:"TRACKER_CONCURRENCY" envDefault:"8"`
}

// Sanitize applies guardrails to tracker configuration values.
func (t *TrackerConfig) Sanitize() {
	// Enforce a minimum interval to prevent hammering the upstreams
	if t.Interval < time.Second {
		t.Interval = time.Second
	}
	if t.PollTimeout < time.Second {
		t.PollTimeout = time.Second
	}
	if t.Concurrency < 1 {
		t.Concurrency = 1
	}
}

// EncoderConfig contains encode dispatcher service configuration.
type EncoderConfig struct {
	// PollInterval is how often the dispatcher drains due encode tasks.
	PollInterval time.Duration `env:"ENCODER_POLL_INTERVAL" envDefault:"5s"`

	// Delay is how long after session close the keystroke encode becomes due.
	// The recording file needs a moment to be flushed before encoding starts.
	Delay time.Duration `env:"ENCODER_DELAY" envDefault:"10s"`

	// BatchSize is the maximum number of tasks dispatched per poll.
	BatchSize int `env:"ENCODER_BATCH_SIZE" envDefault:"100"`

	// EncodeURL is the recording encoder service base URL.
	EncodeURL string `env:"ENCODER_URL" envDefault:"http://localhost:8531"`

	// OCRURL is the OCR service base URL. Leave empty to disable OCR tasks.
	OCRURL string `env:"ENCODER_OCR_URL" envDefault:""`

	// WebhookURL is passed to the encoding services for completion callbacks.
	WebhookURL string `env:"ENCODER_WEBHOOK_URL" envDefault:""`
}

// Sanitize applies guardrails to encoder configuration values.
func (e *EncoderConfig) Sanitize() {
	if e.PollInterval < time.Second {
		e.PollInterval = time.Second
	}
	if e.Delay < 0 {
		e.Delay = 0
	}
	if e.BatchSize < 1 {
		e.BatchSize = 1
	}
	if e.BatchSize > 1000 {
		e.BatchSize = 1000
	}
}
