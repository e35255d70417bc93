package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type outcome string

const (
	outcomePublished    outcome = "published"
	outcomeRetry        outcome = "retry"
	outcomeDeadLettered outcome = "dead_lettered"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	DeadLetterTx(tx *gorm.DB, event models.OutboxEvent, reason enums.DeadLetterReason, cause error, ceiling int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

type ServiceParams struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         dbClient
	Transport  transport
	Repository outboxRepository
	Registry   resolver
	Metrics    *metrics.OutboxMetrics
}

// Service relays outbox rows to the broker. Each batch is claimed and
// settled in one transaction, so a crash mid-batch republishes at most that
// batch; consumers deduplicate on event_id.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	transport   transport
	registry    resolver
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Transport == nil:
		return nil, errors.New("publish transport is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	s := &Service{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		transport:   params.Transport,
		registry:    params.Registry,
		metrics:     params.Metrics,
		batchSize:   params.Config.BatchSize,
		maxAttempts: params.Config.MaxAttempts,
		poll:        time.Duration(params.Config.PollIntervalMS) * time.Millisecond,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.poll <= 0 {
		s.poll = defaultPoll
	}
	return s, nil
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next one; failed batches back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := s.transport.Ping(ctx); err != nil {
		return fmt.Errorf("%s not ready: %w", s.transport.Name(), err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transport":    s.transport.Name(),
		"batch_size":   s.batchSize,
		"max_attempts": s.maxAttempts,
	}), "outbox.publisher_ready")

	backoff := s.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch_failed", err)
			backoff = nextBackoff(backoff, s.poll, maxBackoff)
			wait = backoff
		case n >= s.batchSize:
			backoff = s.poll
			continue
		default:
			backoff = s.poll
			wait = s.poll
		}
		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// drain claims and settles one batch, returning how many rows it saw.
func (s *Service) drain(ctx context.Context) (int, error) {
	var claimed int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.ClaimBatch(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(events)
		for _, event := range events {
			result, err := s.deliver(ctx, tx, event)
			if err != nil {
				return err
			}
			s.metrics.Event(string(event.EventType), string(result))
		}
		return nil
	})
	return claimed, err
}

// deliver publishes one row and records what happened to it. Only a failed
// bookkeeping write is returned as an error, which rolls back the batch.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
	})

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, enums.DeadLetterMalformed, err)
	}
	ctx = s.logg.WithField(ctx, "topic", resolved.Route.Topic)

	if err := s.publish(ctx, event, resolved); err != nil {
		if registry.IsPermanent(err) {
			return s.deadLetter(ctx, tx, event, enums.DeadLetterRejected, err)
		}
		if event.AttemptCount+1 >= s.maxAttempts {
			return s.deadLetter(ctx, tx, event, enums.DeadLetterMaxAttempts,
				fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, err))
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox.publish_retry")
		if err := s.repo.MarkFailedTx(tx, event.ID, err); err != nil {
			return "", fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
		return outcomeRetry, nil
	}

	if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
		return "", fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	s.logg.Info(ctx, "outbox.published")
	return outcomePublished, nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.Resolved) error {
	if resolved.Route.Topic == "" {
		return registry.Permanent(fmt.Errorf("no topic for %s", event.EventType))
	}
	msg := outboundMessage{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
			"schema_version": strconv.Itoa(resolved.Envelope.Version),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	start := time.Now()
	err := s.transport.Publish(publishCtx, resolved.Route.Topic, msg)
	s.metrics.ObservePublish(s.transport.Name(), time.Since(start))
	return err
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.DeadLetterReason, cause error) (outcome, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"reason": reason,
		"error":  cause.Error(),
	})
	s.logg.Warn(ctx, "outbox.dead_lettered")
	if err := s.repo.DeadLetterTx(tx, event, reason, cause, s.maxAttempts); err != nil {
		return "", fmt.Errorf("dead letter %s: %w", event.ID, err)
	}
	return outcomeDeadLettered, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < ceiling {
		return next
	}
	return ceiling
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
