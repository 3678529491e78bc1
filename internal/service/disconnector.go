package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
)

// DisconnectorOptions groups dependencies for Disconnector.
type DisconnectorOptions struct {
	Tunnel      core.TunnelAPI      // Required: standard-mode teardown
	Transparent core.TransparentAPI // Required: transparent-mode teardown
	Logger      *slog.Logger        // Optional: structured logger
}

// Disconnector tears down the upstream side of a session in whichever mode it
// was provisioned. It never touches session state; callers decide what an
// unacknowledged teardown means.
type Disconnector struct {
	tunnel      core.TunnelAPI
	transparent core.TransparentAPI
	logger      *slog.Logger
}

// NewDisconnector constructs a new Disconnector.
func NewDisconnector(opts DisconnectorOptions) (*Disconnector, error) {
	if opts.Tunnel == nil {
		return nil, errors.New("TunnelAPI is required")
	}
	if opts.Transparent == nil {
		return nil, errors.New("TransparentAPI is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "disconnector")
	}

	return &Disconnector{
		tunnel:      opts.Tunnel,
		transparent: opts.Transparent,
		logger:      logger,
	}, nil
}

// Disconnect asks the session's upstream to tear the tunnel down and reports
// whether the upstream acknowledged.
func (d *Disconnector) Disconnect(ctx context.Context, session *model.Session) bool {
	if session.Transparent() {
		if err := d.transparent.Terminate(ctx, session.ID); err != nil {
			d.logFailure(ctx, session.ID, "transparent terminate failed", err)
			return false
		}
		return true
	}

	token := session.Meta.AuthToken
	if token == "" {
		// Nothing was ever provisioned for this session.
		return false
	}

	ok, err := d.tunnel.Invalidate(ctx, token)
	if err != nil {
		d.logFailure(ctx, session.ID, "tunnel invalidate failed", err)
		return false
	}
	return ok
}

func (d *Disconnector) logFailure(ctx context.Context, sessionID, message string, err error) {
	if d.logger == nil {
		return
	}
	d.logger.WarnContext(ctx, message, "session_id", sessionID, "error", err)
}
