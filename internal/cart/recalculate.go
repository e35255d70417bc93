package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/catalog"
	"github.com/IstiakDeveloper/orgreeni/internal/coupons"
	"github.com/IstiakDeveloper/orgreeni/internal/delivery"
	"github.com/IstiakDeveloper/orgreeni/internal/pricing"
	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

// recalculate refreshes prices from the catalog, drops unavailable lines,
// detaches a coupon or area that no longer applies, and writes back totals.
func (s *service) recalculate(ctx context.Context, tx *gorm.DB, cart *models.Cart, owner Owner, policy settings.Policy) (*Snapshot, error) {
	repo := s.repo.WithTx(tx)

	keys := make([]catalog.ItemKey, 0, len(cart.Items))
	for _, item := range cart.Items {
		keys = append(keys, catalog.NewItemKey(item.ProductID, item.VariantID))
	}
	offers, err := s.catalog.Offers(ctx, tx, keys)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Cart: cart}
	kept := make([]models.CartItem, 0, len(cart.Items))
	lines := make([]pricing.Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		offer, ok := offers[catalog.NewItemKey(item.ProductID, item.VariantID)]
		if !ok {
			if err := repo.DeleteItem(ctx, cart.ID, item.ID); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop unavailable cart item")
			}
			snap.Dropped = append(snap.Dropped, DroppedItem{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
			})
			continue
		}

		line := pricing.Line{UnitPrice: offer.UnitPrice, Quantity: item.Quantity}
		subtotal := pricing.Money(line.Subtotal())
		if !item.UnitPrice.Equal(offer.UnitPrice) || !item.Subtotal.Equal(subtotal) {
			item.UnitPrice = offer.UnitPrice
			item.Subtotal = subtotal
			if err := repo.UpdateItem(ctx, &item); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh cart item price")
			}
		}
		kept = append(kept, item)
		lines = append(lines, line)
		snap.Lines = append(snap.Lines, Line{Item: item, Offer: offer})
	}
	cart.Items = kept

	subtotal := pricing.Money(pricing.LineSubtotal(lines))
	if cart.CouponID != nil {
		coupon, err := s.coupons.Revalidate(ctx, tx, *cart.CouponID, owner.UserID, subtotal)
		switch {
		case err != nil && !isCouponRejection(err):
			return nil, err
		case err != nil || coupon == nil:
			cart.CouponID = nil
		default:
			snap.Coupon = coupon
		}
	}
	if cart.DeliveryAreaID != nil {
		area, err := s.delivery.Area(ctx, tx, *cart.DeliveryAreaID)
		switch {
		case err != nil && !pkgerrors.Is(err, pkgerrors.CodeInvalidDeliveryArea):
			return nil, err
		case err != nil:
			cart.DeliveryAreaID = nil
		default:
			snap.Area = area
		}
	}

	snap.Totals = pricing.ComputeForArea(pricing.Input{
		Lines:   lines,
		Coupon:  coupons.ToPricing(snap.Coupon),
		VATRate: policy.VATRate(),
		Now:     s.now().UTC(),
	}, delivery.PricingArea(snap.Area))

	cart.Subtotal = snap.Totals.Subtotal
	cart.Discount = snap.Totals.Discount
	cart.ShippingCharge = snap.Totals.ShippingCharge
	cart.VAT = snap.Totals.VAT
	cart.Total = snap.Totals.Total
	if err := repo.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart totals")
	}
	return snap, nil
}

func isCouponRejection(err error) bool {
	for _, code := range []pkgerrors.Code{
		pkgerrors.CodeCouponInvalid,
		pkgerrors.CodeCouponExpired,
		pkgerrors.CodeCouponLimitReached,
		pkgerrors.CodeMinimumPurchaseNotMet,
	} {
		if pkgerrors.Is(err, code) {
			return true
		}
	}
	return false
}
