package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
)

// AccessServiceOptions groups dependencies for AccessService.
type AccessServiceOptions struct {
	Repo   core.AccessRepository // Required: flattened grant resolution
	Logger *slog.Logger          // Optional: structured logger
}

// AccessService answers authorization questions against the flattened
// (connection, accessRule) grant set of a user. Grants are derived on every
// call; there is no cached state to invalidate when the directory changes.
type AccessService struct {
	repo   core.AccessRepository
	logger *slog.Logger
}

// NewAccessService constructs a new AccessService.
func NewAccessService(opts AccessServiceOptions) (*AccessService, error) {
	if opts.Repo == nil {
		return nil, errors.New("AccessRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "access_service")
	}

	return &AccessService{repo: opts.Repo, logger: logger}, nil
}

// Authorize returns the grant matching the requested (connection, accessRule)
// pair for the user, or nil when no such grant exists or the connection is
// disabled. A disabled connection makes the grant vanish rather than produce
// a distinct error so callers cannot distinguish "no grant" from "disabled".
func (s *AccessService) Authorize(
	ctx context.Context,
	userID, connectionID, accessRuleID string,
) (*model.AccessGrant, error) {
	grants, err := s.repo.ListGrants(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range grants {
		grant := &grants[i]
		if grant.Connection.ID != connectionID || grant.AccessRule.ID != accessRuleID {
			continue
		}
		if grant.Connection.Meta.IsDisabled {
			if s.logger != nil {
				s.logger.InfoContext(ctx, "grant matched a disabled connection",
					"user_id", userID,
					"connection_id", connectionID,
					"access_rule_id", accessRuleID,
				)
			}
			return nil, nil
		}
		return grant, nil
	}

	return nil, nil
}

// ListGrants returns every enabled grant of the user, deduplicated.
func (s *AccessService) ListGrants(ctx context.Context, userID string) ([]model.AccessGrant, error) {
	grants, err := s.repo.ListGrants(ctx, userID)
	if err != nil {
		return nil, err
	}

	enabled := grants[:0]
	for _, grant := range grants {
		if grant.Connection.Meta.IsDisabled {
			continue
		}
		enabled = append(enabled, grant)
	}
	return enabled, nil
}
