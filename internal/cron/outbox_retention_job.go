package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

const outboxRetentionDays = 30

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxRetentionRepo
	// Retention is in days; published rows older than this are removed.
	Retention int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountDeadLettersSince(ctx context.Context, since time.Time) (int64, error)
}

// deadLetterWindow is how far back each sweep looks for new dead letters.
const deadLetterWindow = 24 * time.Hour

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxRetentionRepo
	retention int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete published outbox rows: %w", err)
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(ctx, "outbox.retention_swept")

	dead, err := j.repo.CountDeadLettersSince(ctx, j.now().UTC().Add(-deadLetterWindow))
	if err != nil {
		return fmt.Errorf("count dead letters: %w", err)
	}
	if dead > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "dead_letters_24h", dead), "outbox.dead_letters_present")
	}
	return nil
}
