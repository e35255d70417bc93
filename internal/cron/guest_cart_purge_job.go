package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

const guestCartRetentionDays = 30

type guestCartPurger interface {
	PurgeStaleGuestCarts(ctx context.Context, before time.Time) (int64, error)
}

type GuestCartPurgeJobParams struct {
	Logger    *logger.Logger
	Carts     guestCartPurger
	Retention int
}

func NewGuestCartPurgeJob(params GuestCartPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = guestCartRetentionDays
	}
	return &guestCartPurgeJob{
		logg:      params.Logger,
		carts:     params.Carts,
		retention: retention,
		now:       time.Now,
	}, nil
}

type guestCartPurgeJob struct {
	logg      *logger.Logger
	carts     guestCartPurger
	retention int
	now       func() time.Time
}

func (j *guestCartPurgeJob) Name() string { return "guest-cart-purge" }

func (j *guestCartPurgeJob) Run(ctx context.Context) error {
	before := j.now().UTC().AddDate(0, 0, -j.retention)
	removed, err := j.carts.PurgeStaleGuestCarts(ctx, before)
	if err != nil {
		return fmt.Errorf("purge guest carts: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"before":         before,
		"retention_days": j.retention,
		"carts_removed":  removed,
	}), "guest cart purge complete")
	return nil
}
