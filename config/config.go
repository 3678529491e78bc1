package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Postgres, tunnel proxy MySQL, and Redis configuration
//   - http.go: HTTP server configuration
//   - services.go: Service mode and worker configuration
//   - upstream.go: Tunnel, transparent, and recording configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Database configuration
	Postgres DBConfig       `envPrefix:"DB_"`
	TunnelDB TunnelDBConfig `envPrefix:"TUNNEL_DB_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http"`

	// Tracker configuration
	Tracker TrackerConfig

	// Encoder configuration
	Encoder EncoderConfig

	// Tunnel proxy configuration
	Tunnel TunnelConfig

	// Transparent service configuration
	Transparent TransparentConfig

	// Recording artifact configuration
	Recording RecordingConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Tracker.Sanitize()
	c.Encoder.Sanitize()
	c.Tunnel.Sanitize()
	c.Transparent.Sanitize()
	c.Observability.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// This is called by Sanitize() to ensure IsDev is set correctly.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsTrackerEnabled returns true if the session tracker service is enabled.
func (c *AppConfig) IsTrackerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeTracker]
}

// IsEncoderEnabled returns true if the encode dispatcher service is enabled.
func (c *AppConfig) IsEncoderEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeEncoder]
}
