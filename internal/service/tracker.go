package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rajapam/broker/config"
	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
	"github.com/rajapam/broker/internal/observability/metrics"
	"github.com/rajapam/broker/internal/observability/statsd"
)

// TrackerServiceOptions groups dependencies for TrackerService.
type TrackerServiceOptions struct {
	Sessions     core.SessionRepository // Required: session working set
	Tunnel       core.TunnelAPI         // Required: standard-mode status probe
	Transparent  core.TransparentAPI    // Required: transparent-mode liveness probe
	Disconnector *Disconnector          // Required: deadline enforcement
	Encodes      EncodeScheduler        // Optional: post-close encode scheduling
	Config       config.TrackerConfig   // Tracker configuration
	Logger       *slog.Logger           // Optional: structured logger
	Metrics      statsd.Sink            // Optional: metrics sink (StatsD-compatible)
}

// TrackerService periodically reconciles every open session against its
// upstream proxy. A session the upstream cannot vouch for is closed: losing a
// live session to an outage is recoverable, leaking one that should be dead
// is not.
type TrackerService struct {
	sessions     core.SessionRepository
	tunnel       core.TunnelAPI
	transparent  core.TransparentAPI
	disconnector *Disconnector
	encodes      EncodeScheduler
	config       config.TrackerConfig
	logger       *slog.Logger
	metrics      statsd.Sink
	now          func() time.Time
}

// NewTrackerService constructs a new TrackerService.
func NewTrackerService(opts TrackerServiceOptions) (*TrackerService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("SessionRepository is required")
	}
	if opts.Tunnel == nil {
		return nil, errors.New("TunnelAPI is required")
	}
	if opts.Transparent == nil {
		return nil, errors.New("TransparentAPI is required")
	}
	if opts.Disconnector == nil {
		return nil, errors.New("Disconnector is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "tracker_service")
		logger.Debug("TrackerService initialized",
			"interval", opts.Config.Interval,
			"poll_timeout", opts.Config.PollTimeout,
			"concurrency", opts.Config.Concurrency,
		)
	}

	return &TrackerService{
		sessions:     opts.Sessions,
		tunnel:       opts.Tunnel,
		transparent:  opts.Transparent,
		disconnector: opts.Disconnector,
		encodes:      opts.Encodes,
		config:       opts.Config,
		logger:       logger,
		metrics:      opts.Metrics,
		now:          time.Now,
	}, nil
}

// Run starts the reconcile loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *TrackerService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting tracker service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	waitWithJitter(ctx, s.config.Interval, s.logger)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "tracker service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && !isContextCancellation(err) {
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "tracker tick failed", "error", err)
				}
			}
		}
	}
}

// Tick reconciles every open session once. Per-session failures are logged
// and do not stop the tick; the returned error covers working-set retrieval
// only.
func (s *TrackerService) Tick(ctx context.Context) error {
	sessions, err := s.sessions.ListUnclosed(ctx)
	if err != nil {
		return fmt.Errorf("list open sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for _, session := range sessions {
		g.Go(func() error {
			if err := s.reconcile(gctx, session); err != nil && !isContextCancellation(err) {
				if s.logger != nil {
					s.logger.ErrorContext(gctx, "session reconcile failed",
						"session_id", session.ID,
						"error", err,
					)
				}
			}
			// Reconcile errors never fail the group; one bad session must not
			// starve the rest of the working set.
			return nil
		})
	}

	return g.Wait()
}

// reconcile drives one session through deadline enforcement and a status
// poll, then persists the observed transition.
func (s *TrackerService) reconcile(ctx context.Context, session *model.Session) error {
	pollCtx := ctx
	if s.config.PollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, s.config.PollTimeout)
		defer cancel()
	}

	// Deadline enforcement happens before the poll so the subsequent probe
	// observes the teardown rather than racing it.
	if session.Status == model.SessionStatusLive && session.Meta.DeadlinePassed(s.now()) {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "session deadline passed, forcing disconnect",
				"session_id", session.ID,
			)
		}
		s.disconnector.Disconnect(pollCtx, session)
	}

	next := s.poll(pollCtx, session)
	if next == "" || !session.Status.CanTransitionTo(next) {
		return nil
	}

	updated, err := s.sessions.UpdateStatus(ctx, core.UpdateSessionStatusParams{
		ID:     session.ID,
		Status: next,
		At:     s.now(),
	})
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "session transitioned",
			"session_id", session.ID,
			"from", session.Status,
			"to", updated.Status,
		)
	}

	mode := "standard"
	if session.Transparent() {
		mode = "transparent"
	}
	metrics.EmitSessionLifecycle(s.metrics, metrics.SessionMetric{
		Mode:       mode,
		Transition: string(session.Status) + "_to_" + string(updated.Status),
		Result:     metrics.ResultSuccess,
	})

	if updated.Status == model.SessionStatusClosed && s.encodes != nil {
		if err := s.encodes.ScheduleSessionClose(ctx, updated); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to schedule close encode",
				"session_id", session.ID,
				"error", err,
			)
		}
	}

	return nil
}

// poll asks the session's upstream for its state and maps the answer to the
// next session status. Empty means no transition. An unreachable upstream
// maps to closed: the tracker fails closed.
func (s *TrackerService) poll(ctx context.Context, session *model.Session) model.SessionStatus {
	if session.Transparent() {
		return s.pollTransparent(ctx, session)
	}
	return s.pollStandard(ctx, session)
}

func (s *TrackerService) pollStandard(ctx context.Context, session *model.Session) model.SessionStatus {
	status, err := s.tunnel.Status(ctx, session.Meta.AuthToken)
	if err != nil {
		s.logPollFailure(ctx, session.ID, err)
		return model.SessionStatusClosed
	}

	switch {
	case status.HasTunnel:
		return model.SessionStatusLive
	case status.HadTunnel:
		return model.SessionStatusClosed
	default:
		return ""
	}
}

func (s *TrackerService) pollTransparent(ctx context.Context, session *model.Session) model.SessionStatus {
	liveness, err := s.transparent.Liveness(ctx, session.ID)
	if err != nil {
		s.logPollFailure(ctx, session.ID, err)
		return model.SessionStatusClosed
	}

	switch liveness {
	case core.TransparentLive:
		return model.SessionStatusLive
	case core.TransparentNotAvailable, core.TransparentClosed:
		return model.SessionStatusClosed
	default:
		return ""
	}
}

func (s *TrackerService) logPollFailure(ctx context.Context, sessionID string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, "status poll failed, closing session",
		"session_id", sessionID,
		"error", err,
	)
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func waitWithJitter(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	maxJitter := int64(interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if logger != nil {
			logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	// Use modulo on uint64 before converting to avoid overflow
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
