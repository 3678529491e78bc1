package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/data"
	"github.com/rajapam/broker/internal/domain/model"
	apperrors "github.com/rajapam/broker/internal/errors"
	obserrors "github.com/rajapam/broker/internal/observability/errors"
	"github.com/rajapam/broker/internal/observability/metrics"
	"github.com/rajapam/broker/internal/observability/notify"
	"github.com/rajapam/broker/internal/observability/statsd"
	"github.com/rajapam/broker/internal/service/failurenotifier"
)

// AdmissionGate decides whether new-session creation is permitted and returns
// the evaluated license on admission.
type AdmissionGate interface {
	Check(ctx context.Context) (*model.License, error)
}

// ClusterGate checks cluster health preconditions before a session is created.
type ClusterGate interface {
	Check(ctx context.Context) error
}

// AccessAuthorizer resolves the grant matching a (user, connection, rule)
// triple, nil when none matches.
type AccessAuthorizer interface {
	Authorize(ctx context.Context, userID, connectionID, accessRuleID string) (*model.AccessGrant, error)
}

// DeadlineEvaluator computes the policy disconnect deadline from access-rule
// time windows.
type DeadlineEvaluator interface {
	Deadline(meta model.AccessRuleMeta) (*int64, error)
}

// Provisioner materializes a session in one of the proxy modes.
type Provisioner interface {
	Provision(ctx context.Context, session *model.Session, grant *model.AccessGrant) (*ProvisionOutcome, error)
}

// EncodeScheduler enqueues post-close recording encode work for a session
// that just moved to closed.
type EncodeScheduler interface {
	ScheduleSessionClose(ctx context.Context, session *model.Session) error
}

// ConnectRequest carries the identity triple of a connect attempt.
type ConnectRequest struct {
	UserID       string `json:"user_id"`
	ConnectionID string `json:"connection_id"`
	AccessRuleID string `json:"access_rule_id"`
}

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Sessions     core.SessionRepository   // Required: session persistence
	Directory    core.DirectoryRepository // Required: user lookups
	Access       AccessAuthorizer         // Required: grant resolution
	Gate         AdmissionGate            // Required: license admission
	Cluster      ClusterGate              // Required: HA precondition
	Windows      DeadlineEvaluator        // Required: time-window deadlines
	Provisioner  Provisioner              // Required: mode-specific provisioning
	Disconnector *Disconnector            // Required: upstream teardown
	Encodes      EncodeScheduler          // Optional: post-close encode scheduling
	Logger       *slog.Logger             // Optional: structured logger
	Metrics      statsd.Sink              // Optional: metrics sink (StatsD-compatible)
	Notifier     *failurenotifier.Service // Optional: failure notification fan-out
}

// SessionService implements the session lifecycle operations: admission and
// provisioning on connect, teardown on disconnect.
//
// Connect is a pipeline of gates; the first denial wins and is returned as a
// structured failure, never as a transport error. Only unexpected
// infrastructure faults surface as errors.
type SessionService struct {
	sessions     core.SessionRepository
	directory    core.DirectoryRepository
	access       AccessAuthorizer
	gate         AdmissionGate
	cluster      ClusterGate
	windows      DeadlineEvaluator
	provisioner  Provisioner
	disconnector *Disconnector
	encodes      EncodeScheduler
	logger       *slog.Logger
	metrics      statsd.Sink
	notifier     *failurenotifier.Service
}

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("SessionRepository is required")
	}
	if opts.Directory == nil {
		return nil, errors.New("DirectoryRepository is required")
	}
	if opts.Access == nil {
		return nil, errors.New("AccessAuthorizer is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("AdmissionGate is required")
	}
	if opts.Cluster == nil {
		return nil, errors.New("ClusterGate is required")
	}
	if opts.Windows == nil {
		return nil, errors.New("DeadlineEvaluator is required")
	}
	if opts.Provisioner == nil {
		return nil, errors.New("Provisioner is required")
	}
	if opts.Disconnector == nil {
		return nil, errors.New("Disconnector is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "session_service")
	}

	return &SessionService{
		sessions:     opts.Sessions,
		directory:    opts.Directory,
		access:       opts.Access,
		gate:         opts.Gate,
		cluster:      opts.Cluster,
		windows:      opts.Windows,
		provisioner:  opts.Provisioner,
		disconnector: opts.Disconnector,
		encodes:      opts.Encodes,
		logger:       logger,
		metrics:      opts.Metrics,
		notifier:     opts.Notifier,
	}, nil
}

// Connect runs the admission pipeline and, when every gate passes, creates
// and provisions a session. Denials come back as a failed ConnectResult with
// a user-facing message; the error return is reserved for infrastructure
// faults.
func (s *SessionService) Connect(ctx context.Context, req ConnectRequest) (*model.ConnectResult, error) {
	lic, err := s.gate.Check(ctx)
	if err != nil {
		if result, ok := denyFromError(err); ok {
			return result, nil
		}
		return nil, err
	}

	if strings.TrimSpace(req.UserID) == "" {
		return model.Deny("UserId not available"), nil
	}
	user, err := s.directory.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) || apperrors.IsNotFound(err) {
			return model.Deny("UserId not available"), nil
		}
		return nil, err
	}

	grant, err := s.access.Authorize(ctx, req.UserID, req.ConnectionID, req.AccessRuleID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return model.Deny("Access rule not found"), nil
	}

	deadline, err := s.windows.Deadline(grant.AccessRule.Meta)
	if err != nil {
		if result, ok := denyFromError(err); ok {
			return result, nil
		}
		return nil, err
	}

	if err := s.cluster.Check(ctx); err != nil {
		if result, ok := denyFromError(err); ok {
			return result, nil
		}
		return nil, err
	}

	session, err := s.sessions.Create(ctx, &model.CreateSessionRequest{
		UserID:       req.UserID,
		ConnectionID: req.ConnectionID,
		AccessRuleID: req.AccessRuleID,
		Meta: model.SessionMeta{
			ByUsername:                user.Username,
			SessionShouldDisconnectAt: deadline,
		},
	})
	if err != nil {
		return nil, err
	}

	mode := "standard"
	if grant.AccessRule.Meta.TransparentMode {
		mode = "transparent"
	}

	outcome, err := s.provisioner.Provision(ctx, session, grant)
	if err != nil {
		s.closeAfterFailedProvision(ctx, session.ID, err)
		s.notifyProvisionFailure(ctx, session, user.Username, mode, err)
		metrics.EmitSessionLifecycle(s.metrics, metrics.SessionMetric{
			Mode:       mode,
			Transition: "connect",
			Result:     metrics.ResultError,
			Err:        err,
		})
		if result, ok := denyFromError(err); ok {
			return result, nil
		}
		return nil, err
	}

	if _, err := s.sessions.MarkProvisioned(ctx, session.ID, outcome.Update); err != nil {
		return nil, fmt.Errorf("mark session provisioned: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "session provisioned",
			"session_id", session.ID,
			"user_id", req.UserID,
			"connection_id", req.ConnectionID,
			"transparent", outcome.Update.TransparentMode,
		)
	}

	metrics.EmitSessionLifecycle(s.metrics, metrics.SessionMetric{
		Mode:       mode,
		Transition: "connect",
		Result:     metrics.ResultSuccess,
	})

	return &model.ConnectResult{
		Success:      true,
		SessionID:    session.ID,
		TokenPayload: outcome.TokenPayload,
		License:      lic,
	}, nil
}

// notifyProvisionFailure fans the provisioning failure out to the configured
// notification sinks. No-op without a notifier.
func (s *SessionService) notifyProvisionFailure(
	ctx context.Context,
	session *model.Session,
	username, mode string,
	cause error,
) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	s.notifier.NotifySessionFailure(ctx, notify.SessionFailurePayload{
		SessionID:    session.ID,
		UserID:       session.UserID,
		Username:     username,
		ConnectionID: session.ConnectionID,
		Mode:         mode,
		Stage:        "provision",
		Error:        cause.Error(),
		ErrorClass:   obserrors.Classify(cause),
		OccurredAt:   time.Now(),
	})
}

// closeAfterFailedProvision moves the half-created session to closed so the
// tracker never picks it up. Best effort; the provisioning failure is what
// the caller sees.
func (s *SessionService) closeAfterFailedProvision(ctx context.Context, sessionID string, cause error) {
	_, err := s.sessions.UpdateStatus(ctx, core.UpdateSessionStatusParams{
		ID:     sessionID,
		Status: model.SessionStatusClosed,
		At:     time.Now(),
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to close session after provisioning failure",
			"session_id", sessionID,
			"provision_error", cause,
			"error", err,
		)
	}
}

// Disconnect tears down the session's upstream resources and marks it closed.
// Idempotent: disconnecting a closed session returns it unchanged. Upstream
// teardown is best effort and never blocks the status move.
func (s *SessionService) Disconnect(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusClosed {
		return session, nil
	}

	if ok := s.disconnector.Disconnect(ctx, session); !ok && s.logger != nil {
		s.logger.WarnContext(ctx, "upstream teardown was not acknowledged", "session_id", sessionID)
	}

	closed, err := s.sessions.UpdateStatus(ctx, core.UpdateSessionStatusParams{
		ID:     sessionID,
		Status: model.SessionStatusClosed,
		At:     time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.scheduleCloseEncode(ctx, closed)
	return closed, nil
}

// Get returns one session by id.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

func (s *SessionService) scheduleCloseEncode(ctx context.Context, session *model.Session) {
	if s.encodes == nil {
		return
	}
	if err := s.encodes.ScheduleSessionClose(ctx, session); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to schedule close encode",
			"session_id", session.ID,
			"error", err,
		)
	}
}

// denyFromError converts policy and provisioning failures into a structured
// denial, passing the user-facing message through verbatim.
func denyFromError(err error) (*model.ConnectResult, bool) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return nil, false
	}
	switch appErr.Code {
	case apperrors.ErrCodePolicyDenied, apperrors.ErrCodeProvisioningFailed:
		return model.Deny(appErr.Message), true
	default:
		return nil, false
	}
}
