package config

import (
	"strings"
	"time"
)

// TunnelConfig contains tunnel proxy API configuration.
type TunnelConfig struct {
	// TokenURL is the tunnel proxy's token endpoint.
	TokenURL string `env:"TUNNEL_TOKEN_URL" envDefault:"http://localhost:8530/guacamole/api/tokens"`

	// StatusURL is the tunnel proxy's session status endpoint. The auth token
	// is appended as a path segment.
	StatusURL string `env:"TUNNEL_STATUS_URL" envDefault:"http://localhost:8530/guacamole/api/session/status"`

	// InvalidateURL is the tunnel proxy's token invalidation endpoint. The auth
	// token is appended as a path segment.
	InvalidateURL string `env:"TUNNEL_INVALIDATE_URL" envDefault:"http://localhost:8530/guacamole/api/session/invalidate"`

	// Timeout bounds a single tunnel proxy request.
	Timeout time.Duration `env:"TUNNEL_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to tunnel configuration values.
func (t *TunnelConfig) Sanitize() {
	t.TokenURL = strings.TrimSpace(t.TokenURL)
	t.StatusURL = strings.TrimSpace(t.StatusURL)
	t.InvalidateURL = strings.TrimSpace(t.InvalidateURL)
	if t.Timeout < time.Second {
		t.Timeout = time.Second
	}
}

// TransparentConfig contains transparent service client configuration.
// The service address itself lives in the settings table so admins can
// repoint it at runtime; only transport knobs are configured here.
type TransparentConfig struct {
	// Timeout bounds a single transparent service request.
	Timeout time.Duration `env:"TRANSPARENT_TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to transparent configuration values.
func (t *TransparentConfig) Sanitize() {
	if t.Timeout < time.Second {
		t.Timeout = time.Second
	}
}

// RecordingConfig contains recording artifact configuration.
type RecordingConfig struct {
	// DescriptorDir is where transparent-mode connection descriptors are stored.
	DescriptorDir string `env:"RECORDING_DESCRIPTOR_DIR" envDefault:"/var/lib/broker/descriptors"`

	// RecordingsDir is the session recording directory the tunnel proxy writes
	// to. Handed to provisioning as the recording path parameter.
	RecordingsDir string `env:"RECORDING_DIR" envDefault:"/var/lib/broker/recordings"`
}
