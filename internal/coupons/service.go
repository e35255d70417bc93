// Package coupons resolves coupon codes and decides whether a coupon is
// usable for a given customer and subtotal.
package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/pricing"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

type CouponRepository interface {
	WithTx(tx *gorm.DB) CouponRepository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	CountUsage(ctx context.Context, couponID uuid.UUID, userID *uuid.UUID) (int64, error)
}

// Service checks coupons in a fixed order: existence and activity, window,
// usage limits, then minimum purchase.
type Service interface {
	Resolve(ctx context.Context, tx *gorm.DB, code string, userID *uuid.UUID, subtotal decimal.Decimal) (*models.Coupon, error)
	// Revalidate re-checks an attached coupon. A nil coupon with a nil error
	// means it no longer exists.
	Revalidate(ctx context.Context, tx *gorm.DB, couponID uuid.UUID, userID *uuid.UUID, subtotal decimal.Decimal) (*models.Coupon, error)
}

type service struct {
	repo CouponRepository
	now  func() time.Time
}

func NewService(repo CouponRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Resolve(ctx context.Context, tx *gorm.DB, code string, userID *uuid.UUID, subtotal decimal.Decimal) (*models.Coupon, error) {
	repo := s.repo.WithTx(tx)
	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon code is not valid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if err := s.check(ctx, repo, coupon, userID, subtotal); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *service) Revalidate(ctx context.Context, tx *gorm.DB, couponID uuid.UUID, userID *uuid.UUID, subtotal decimal.Decimal) (*models.Coupon, error) {
	repo := s.repo.WithTx(tx)
	coupon, err := repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if err := s.check(ctx, repo, coupon, userID, subtotal); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *service) check(ctx context.Context, repo CouponRepository, coupon *models.Coupon, userID *uuid.UUID, subtotal decimal.Decimal) error {
	now := s.now().UTC()
	if !coupon.IsActive || now.Before(coupon.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon code is not valid")
	}
	if now.After(coupon.ExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeCouponExpired, "coupon has expired")
	}

	if limited(coupon.UsageLimitPerCoupon) {
		used, err := repo.CountUsage(ctx, coupon.ID, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count coupon usage")
		}
		if used >= int64(*coupon.UsageLimitPerCoupon) {
			return pkgerrors.New(pkgerrors.CodeCouponLimitReached, "coupon usage limit reached")
		}
	}
	if limited(coupon.UsageLimitPerUser) && userID != nil {
		used, err := repo.CountUsage(ctx, coupon.ID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count coupon usage")
		}
		if used >= int64(*coupon.UsageLimitPerUser) {
			return pkgerrors.New(pkgerrors.CodeCouponLimitReached, "you have already used this coupon")
		}
	}

	if subtotal.LessThan(coupon.MinimumPurchaseAmount) {
		return pkgerrors.New(pkgerrors.CodeMinimumPurchaseNotMet, "cart subtotal is below the coupon minimum").WithDetails(map[string]any{
			"minimum_purchase_amount": coupon.MinimumPurchaseAmount.StringFixed(2),
			"subtotal":                subtotal.StringFixed(2),
		})
	}
	return nil
}

// limited treats a missing or non-positive usage limit as unlimited.
func limited(limit *int) bool {
	return limit != nil && *limit > 0
}

// ToPricing snapshots a coupon row for the pricing engine.
func ToPricing(c *models.Coupon) *pricing.Coupon {
	if c == nil {
		return nil
	}
	return &pricing.Coupon{
		Type:            c.DiscountType,
		Amount:          c.DiscountAmount,
		MinimumPurchase: c.MinimumPurchaseAmount,
		MaximumDiscount: c.MaximumDiscountAmount,
		StartsAt:        c.StartsAt,
		ExpiresAt:       c.ExpiresAt,
		Active:          c.IsActive,
	}
}
