package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
	apperrors "github.com/rajapam/broker/internal/errors"
)

// challengeGraceDays is how long after issuance a license may run without a
// valid challenge answer.
const challengeGraceDays = 5

// UsageCounter defines the minimal usage counts the gate checks limits against.
type UsageCounter interface {
	CountConnectionsInUse(ctx context.Context) (int, error)
	CountLiveSessions(ctx context.Context) (int, error)
}

// GateOptions groups dependencies for Gate.
type GateOptions struct {
	Source core.LicenseSource // Required: current license state
	Usage  UsageCounter       // Required: usage counts for limit checks
	Logger *slog.Logger       // Optional: structured logger
}

// Gate decides whether new-session creation is permitted under the current
// license. Rules run in a fixed order and the first failure wins. The gate is
// purely advisory: it has no side effects and callers abort on denial.
type Gate struct {
	source core.LicenseSource
	usage  UsageCounter
	logger *slog.Logger
	now    func() time.Time
}

// NewGate constructs a new Gate.
func NewGate(opts GateOptions) (*Gate, error) {
	if opts.Source == nil {
		return nil, errors.New("LicenseSource is required")
	}
	if opts.Usage == nil {
		return nil, errors.New("UsageCounter is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "license_gate")
	}

	return &Gate{
		source: opts.Source,
		usage:  opts.Usage,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Check evaluates the gate rules and returns the license on admission.
// Denials are PolicyDenied errors carrying the user-facing message.
func (g *Gate) Check(ctx context.Context) (*model.License, error) {
	state, err := g.source.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load license state: %w", err)
	}

	lic := state.License
	if lic == nil || !lic.Valid {
		return nil, apperrors.PolicyDeniedf("Invalid license, %s", remainingDays(lic))
	}
	if !lic.HardwareValid {
		return nil, apperrors.PolicyDenied("Invalid token")
	}

	if state.ExpiryDate != nil && state.ExpiryDate.Before(g.now()) {
		return nil, apperrors.PolicyDenied("The session could not be established: contact the support team")
	}

	if err := g.checkChallenge(lic, state.Challenge); err != nil {
		return nil, err
	}
	if err := g.checkLimits(ctx, lic); err != nil {
		return nil, err
	}

	return lic, nil
}

// checkChallenge enforces the periodic challenge renewal for licenses that
// carry the feature, once past the post-issuance grace window.
func (g *Gate) checkChallenge(lic *model.License, challenge *model.LicenseChallenge) error {
	if lic.AgeDays(g.now()) <= challengeGraceDays {
		return nil
	}
	if !lic.HasFeature(model.FeatureChallenge) {
		return nil
	}
	if challenge != nil && challenge.Valid {
		return nil
	}
	return apperrors.PolicyDenied("Please renew challenge answer")
}

// checkLimits rejects when current usage has reached a configured ceiling.
// A zero limit means unlimited. The boundary is inclusive: usage equal to the
// limit already rejects the next session.
func (g *Gate) checkLimits(ctx context.Context, lic *model.License) error {
	if lic.ConnectionLimit > 0 {
		used, err := g.usage.CountConnectionsInUse(ctx)
		if err != nil {
			return fmt.Errorf("count connections in use: %w", err)
		}
		if used >= lic.ConnectionLimit {
			g.logDenied("connection limit reached", used, lic.ConnectionLimit)
			return apperrors.PolicyDeniedf("License connections overused, %d", lic.ConnectionLimit)
		}
	}

	if lic.SessionLimit > 0 {
		live, err := g.usage.CountLiveSessions(ctx)
		if err != nil {
			return fmt.Errorf("count live sessions: %w", err)
		}
		if live >= lic.SessionLimit {
			g.logDenied("session limit reached", live, lic.SessionLimit)
			return apperrors.PolicyDeniedf("License sessions overused, %d", lic.SessionLimit)
		}
	}

	return nil
}

func (g *Gate) logDenied(reason string, used, limit int) {
	if g.logger == nil {
		return
	}
	g.logger.Info("session admission denied", "reason", reason, "used", used, "limit", limit)
}

func remainingDays(lic *model.License) string {
	if lic == nil || lic.RemainingDays == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *lic.RemainingDays)
}
