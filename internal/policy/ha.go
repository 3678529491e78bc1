package policy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
	apperrors "github.com/rajapam/broker/internal/errors"
)

// haProbeTimeout bounds the peer health probe so a dead peer cannot stall the
// connect path.
const haProbeTimeout = 3 * time.Second

// HAGateOptions groups dependencies for HAGate.
type HAGateOptions struct {
	Settings core.SettingsRepository // Required: haMode / haPeerAddress lookups
	Client   *http.Client            // Optional: probe client, defaults applied
	Logger   *slog.Logger            // Optional: structured logger
}

// HAGate checks cluster health preconditions before a session is created.
// When HA mode is off the gate is a no-op. When on, the configured peer must
// answer its health endpoint.
type HAGate struct {
	settings core.SettingsRepository
	client   *http.Client
	logger   *slog.Logger
}

// NewHAGate constructs a new HAGate.
func NewHAGate(opts HAGateOptions) (*HAGate, error) {
	if opts.Settings == nil {
		return nil, errors.New("SettingsRepository is required")
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: haProbeTimeout}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "ha_gate")
	}

	return &HAGate{settings: opts.Settings, client: client, logger: logger}, nil
}

// Check returns nil when session creation may proceed. Failures are
// PolicyDenied errors surfaced verbatim to the caller.
func (g *HAGate) Check(ctx context.Context) error {
	mode, ok, err := g.settings.Lookup(ctx, model.SettingHAMode)
	if err != nil {
		return fmt.Errorf("lookup ha mode: %w", err)
	}
	if !ok || !model.TrueSetting(mode) {
		return nil
	}

	peer, ok, err := g.settings.Lookup(ctx, model.SettingHAPeerAddress)
	if err != nil {
		return fmt.Errorf("lookup ha peer address: %w", err)
	}
	if !ok || strings.TrimSpace(peer) == "" {
		return apperrors.PolicyDenied("High availability peer is not configured")
	}

	if err := g.probePeer(ctx, peer); err != nil {
		if g.logger != nil {
			g.logger.Warn("ha peer probe failed", "peer", peer, "error", err)
		}
		return apperrors.PolicyDenied("High availability peer is unreachable")
	}

	return nil
}

func (g *HAGate) probePeer(ctx context.Context, peer string) error {
	url := peer
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimRight(url, "/") + "/healthz"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe peer: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("peer health returned status %d", resp.StatusCode)
	}
	return nil
}
