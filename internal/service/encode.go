package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rajapam/broker/config"
	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
)

// EncodeServiceOptions groups dependencies for EncodeService.
type EncodeServiceOptions struct {
	Queue       core.EncodeQueue     // Required: delayed encode task queue
	Encoder     core.EncoderAPI      // Required: encoder microservices
	Transparent core.TransparentAPI  // Optional: video rendering for transparent sessions
	Config      config.EncoderConfig // Encoder configuration
	Logger      *slog.Logger         // Optional: structured logger
}

// EncodeService schedules and dispatches recording encode work. Scheduling
// is delayed so the proxy has flushed the recording before encoding starts;
// dispatch deduplicates through claim markers, making queue redelivery a
// no-op. Encode outcomes never feed back into session state.
type EncodeService struct {
	queue       core.EncodeQueue
	encoder     core.EncoderAPI
	transparent core.TransparentAPI
	config      config.EncoderConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewEncodeService constructs a new EncodeService.
func NewEncodeService(opts EncodeServiceOptions) (*EncodeService, error) {
	if opts.Queue == nil {
		return nil, errors.New("EncodeQueue is required")
	}
	if opts.Encoder == nil {
		return nil, errors.New("EncoderAPI is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "encode_service")
		logger.Debug("EncodeService initialized",
			"poll_interval", opts.Config.PollInterval,
			"delay", opts.Config.Delay,
			"batch_size", opts.Config.BatchSize,
		)
	}

	return &EncodeService{
		queue:       opts.Queue,
		encoder:     opts.Encoder,
		transparent: opts.Transparent,
		config:      opts.Config,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// ScheduleSessionClose enqueues the recording encode work for a session that
// just closed, due after the configured delay. Transparent sessions
// additionally get a video-rendering request to the transparent service and
// an OCR pass over the rendered recording.
func (s *EncodeService) ScheduleSessionClose(ctx context.Context, session *model.Session) error {
	if session == nil {
		return errors.New("session is required")
	}

	if err := s.queue.Schedule(ctx, core.EncodeTask{
		SessionID: session.ID,
		Kind:      core.EncodeKeystrokes,
	}, s.now().Add(s.config.Delay)); err != nil {
		return err
	}

	if !session.Transparent() {
		return nil
	}

	// The rendering request only kicks off work on the transparent service;
	// the OCR pass below is what consumes its output.
	if s.transparent != nil {
		if err := s.transparent.RequestVideoRendering(ctx, session.ID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "video rendering request failed",
				"session_id", session.ID,
				"error", err,
			)
		}
	}

	return s.ScheduleOCR(ctx, session.ID)
}

// ScheduleOCR enqueues an OCR pass over the session recording, due after the
// configured delay.
func (s *EncodeService) ScheduleOCR(ctx context.Context, sessionID string) error {
	return s.queue.Schedule(ctx, core.EncodeTask{
		SessionID: sessionID,
		Kind:      core.EncodeOCR,
	}, s.now().Add(s.config.Delay))
}

// ProcessDue drains due tasks once and dispatches each unclaimed one.
// Dispatch failures are logged and do not abort the batch; the claim marker
// is already set, so a failed dispatch is not retried.
func (s *EncodeService) ProcessDue(ctx context.Context) error {
	tasks, err := s.queue.PopDue(ctx, s.now(), s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("pop due encode tasks: %w", err)
	}

	for _, task := range tasks {
		claimed, err := s.queue.TryClaim(ctx, task)
		if err != nil {
			s.logTaskFailure(ctx, task, "claim encode task failed", err)
			continue
		}
		if !claimed {
			continue
		}

		if err := s.encoder.Encode(ctx, task); err != nil {
			s.logTaskFailure(ctx, task, "encode dispatch failed", err)
			continue
		}

		if s.logger != nil {
			s.logger.InfoContext(ctx, "encode task dispatched",
				"session_id", task.SessionID,
				"kind", task.Kind,
			)
		}
	}

	return nil
}

// Run starts the dispatch loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *EncodeService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting encode dispatcher", "poll_interval", s.config.PollInterval)
	}

	waitWithJitter(ctx, s.config.PollInterval, s.logger)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "encode dispatcher stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.ProcessDue(ctx); err != nil && !isContextCancellation(err) {
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "encode dispatch poll failed", "error", err)
				}
			}
		}
	}
}

func (s *EncodeService) logTaskFailure(ctx context.Context, task core.EncodeTask, message string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, message,
		"session_id", task.SessionID,
		"kind", task.Kind,
		"error", err,
	)
}
