package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/catalog"
	"github.com/IstiakDeveloper/orgreeni/internal/coupons"
	"github.com/IstiakDeveloper/orgreeni/internal/delivery"
	"github.com/IstiakDeveloper/orgreeni/internal/pricing"
	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	"github.com/IstiakDeveloper/orgreeni/pkg/checkout"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

// Service exposes the cart aggregate. Every mutation runs in one transaction
// holding the cart row lock and ends with a full recalculation.
type Service interface {
	Get(ctx context.Context, owner Owner) (View, error)
	AddItem(ctx context.Context, owner Owner, input AddItemInput) (View, error)
	UpdateItemQuantity(ctx context.Context, owner Owner, itemID uuid.UUID, quantity int) (View, error)
	RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (View, error)
	ApplyCoupon(ctx context.Context, owner Owner, code string) (View, error)
	RemoveCoupon(ctx context.Context, owner Owner) (View, error)
	SetShippingArea(ctx context.Context, owner Owner, areaID uuid.UUID) (View, error)
	AddNotes(ctx context.Context, owner Owner, notes string) (View, error)
	Clear(ctx context.Context, owner Owner) error
	// Merge folds the session cart into the user's cart and discards it.
	// Running it again is a no-op.
	Merge(ctx context.Context, sessionID string, userID uuid.UUID) (View, error)
	ShippingOptions(ctx context.Context, owner Owner) ([]ShippingOption, error)

	// PrepareCheckout locks and recalculates the owner's cart inside tx.
	PrepareCheckout(ctx context.Context, tx *gorm.DB, owner Owner) (*Snapshot, error)
	DeleteTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
	PurgeStaleGuestCarts(ctx context.Context, before time.Time) (int64, error)
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Repo     CartRepository
	DB       txRunner
	Catalog  catalog.Service
	Coupons  coupons.Service
	Delivery delivery.Service
	Policy   settings.Provider
	Logger   *logger.Logger
}

type service struct {
	repo     CartRepository
	db       txRunner
	catalog  catalog.Service
	coupons  coupons.Service
	delivery delivery.Service
	policy   settings.Provider
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if params.Delivery == nil {
		return nil, fmt.Errorf("delivery service required")
	}
	if params.Policy == nil {
		return nil, fmt.Errorf("policy provider required")
	}
	return &service{
		repo:     params.Repo,
		db:       params.DB,
		catalog:  params.Catalog,
		coupons:  params.Coupons,
		delivery: params.Delivery,
		policy:   params.Policy,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// mutation edits a locked cart before it is recalculated.
type mutation func(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.Cart, policy settings.Policy) error

// mutate locks the owner's cart, applies fn, and recalculates. With create
// unset a missing cart yields an empty view and fn is skipped.
func (s *service) mutate(ctx context.Context, owner Owner, create bool, fn mutation) (View, error) {
	if err := owner.validate(); err != nil {
		return View{}, err
	}
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return View{}, err
	}

	var snap *Snapshot
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockCart(ctx, repo, owner, create)
		if err != nil || cart == nil {
			return err
		}
		if fn != nil {
			if err := fn(ctx, tx, repo, cart, policy); err != nil {
				return err
			}
		}
		snap, err = s.recalculate(ctx, tx, cart, owner, policy)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return viewOf(snap), nil
}

func (s *service) lockCart(ctx context.Context, repo CartRepository, owner Owner, create bool) (*models.Cart, error) {
	cart, err := repo.FindByOwner(ctx, owner, true)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if !create {
		return nil, nil
	}
	if err := repo.Create(ctx, owner); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	cart, err = repo.FindByOwner(ctx, owner, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}

func (s *service) Get(ctx context.Context, owner Owner) (View, error) {
	return s.mutate(ctx, owner, false, nil)
}

func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) (View, error) {
	if input.ProductID == uuid.Nil {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity < 1 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	view, err := s.mutate(ctx, owner, true, func(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.Cart, policy settings.Policy) error {
		key := catalog.NewItemKey(input.ProductID, input.VariantID)
		offer, err := s.catalog.Offer(ctx, tx, key)
		if err != nil {
			return err
		}

		for i := range cart.Items {
			item := &cart.Items[i]
			if catalog.NewItemKey(item.ProductID, item.VariantID) != key {
				continue
			}
			next := item.Quantity + input.Quantity
			if err := validateQuantity(offer, input.VariantID, next, policy); err != nil {
				return err
			}
			item.Quantity = next
			item.UnitPrice = offer.UnitPrice
			item.Subtotal = pricing.Money(pricing.Line{UnitPrice: offer.UnitPrice, Quantity: next}.Subtotal())
			if err := repo.UpdateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
			}
			return nil
		}

		if err := validateQuantity(offer, input.VariantID, input.Quantity, policy); err != nil {
			return err
		}
		item := models.CartItem{
			CartID:    cart.ID,
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Quantity:  input.Quantity,
			UnitPrice: offer.UnitPrice,
			Subtotal:  pricing.Money(pricing.Line{UnitPrice: offer.UnitPrice, Quantity: input.Quantity}.Subtotal()),
		}
		if err := repo.InsertItem(ctx, &item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
		cart.Items = append(cart.Items, item)
		return nil
	})
	if err != nil {
		return View{}, err
	}

	if s.logg != nil {
		fields := owner.fields()
		fields["product_id"] = input.ProductID.String()
		fields["quantity"] = input.Quantity
		s.logg.Info(s.logg.WithFields(ctx, fields), "cart item added")
	}
	return view, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, owner Owner, itemID uuid.UUID, quantity int) (View, error) {
	return s.mutate(ctx, owner, false, func(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.Cart, policy settings.Policy) error {
		item := findItem(cart, itemID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		err := checkout.ValidateLineQuantities([]checkout.LineQuantityInput{{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  quantity,
		}}, policy.MaxLineQuantity)
		if err != nil {
			return err
		}
		item.Quantity = quantity
		item.Subtotal = pricing.Money(pricing.Line{UnitPrice: item.UnitPrice, Quantity: quantity}.Subtotal())
		if err := repo.UpdateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (View, error) {
	return s.mutate(ctx, owner, false, func(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.Cart, _ settings.Policy) error {
		if findItem(cart, itemID) == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if err := repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
		}
		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		cart.Items = kept
		return nil
	})
}

func (s *service) ApplyCoupon(ctx context.Context, owner Owner, code string) (View, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	view, err := s.mutate(ctx, owner, false, func(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.Cart, policy settings.Policy) error {
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		current, err := s.recalculate(ctx, tx, cart, owner, policy)
		if err != nil {
			return err
		}
		if len(current.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		coupon, err := s.coupons.Resolve(ctx, tx, code, owner.UserID, current.Totals.Subtotal)
		if err != nil {
			return err
		}
		cart.CouponID = &coupon.ID
		return nil
	})
	if err != nil {
		return View{}, err
	}
	if view.ID == nil {
		return View{}, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	return view, nil
}

func (s *service) RemoveCoupon(ctx context.Context, owner Owner) (View, error) {
	return s.mutate(ctx, owner, false, func(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.Cart, _ settings.Policy) error {
		cart.CouponID = nil
		return nil
	})
}

func (s *service) SetShippingArea(ctx context.Context, owner Owner, areaID uuid.UUID) (View, error) {
	return s.mutate(ctx, owner, true, func(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.Cart, _ settings.Policy) error {
		area, err := s.delivery.Area(ctx, tx, areaID)
		if err != nil {
			return err
		}
		cart.DeliveryAreaID = &area.ID
		return nil
	})
}

func (s *service) AddNotes(ctx context.Context, owner Owner, notes string) (View, error) {
	return s.mutate(ctx, owner, true, func(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.Cart, _ settings.Policy) error {
		notes = strings.TrimSpace(notes)
		if notes == "" {
			cart.Notes = nil
			return nil
		}
		cart.Notes = &notes
		return nil
	})
}

func (s *service) Clear(ctx context.Context, owner Owner) error {
	if err := owner.validate(); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockCart(ctx, repo, owner, false)
		if err != nil || cart == nil {
			return err
		}
		if err := repo.Delete(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
}

func (s *service) Merge(ctx context.Context, sessionID string, userID uuid.UUID) (View, error) {
	guestOwner := SessionOwner(sessionID)
	userOwner := UserOwner(userID)
	if err := guestOwner.validate(); err != nil {
		return View{}, err
	}
	if err := userOwner.validate(); err != nil {
		return View{}, err
	}
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return View{}, err
	}

	var (
		snap  *Snapshot
		moved int
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		guest, err := s.lockCart(ctx, repo, guestOwner, false)
		if err != nil {
			return err
		}
		target, err := s.lockCart(ctx, repo, userOwner, guest != nil)
		if err != nil || target == nil {
			return err
		}

		if guest != nil {
			moved, err = s.fold(ctx, repo, guest, target)
			if err != nil {
				return err
			}
		}
		snap, err = s.recalculate(ctx, tx, target, userOwner, policy)
		return err
	})
	if err != nil {
		return View{}, err
	}

	if s.logg != nil && moved > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id": sessionID,
			"user_id":    userID.String(),
			"lines":      moved,
		})
		s.logg.Info(logCtx, "guest cart merged")
	}
	return viewOf(snap), nil
}

// fold moves every guest line into target, incrementing matching lines, then
// deletes the guest cart. It returns the number of guest lines folded.
func (s *service) fold(ctx context.Context, repo CartRepository, guest, target *models.Cart) (int, error) {
	index := make(map[catalog.ItemKey]int, len(target.Items))
	for i, item := range target.Items {
		index[catalog.NewItemKey(item.ProductID, item.VariantID)] = i
	}

	for _, item := range guest.Items {
		key := catalog.NewItemKey(item.ProductID, item.VariantID)
		if i, ok := index[key]; ok {
			existing := &target.Items[i]
			existing.Quantity += item.Quantity
			existing.Subtotal = pricing.Money(pricing.Line{UnitPrice: existing.UnitPrice, Quantity: existing.Quantity}.Subtotal())
			if err := repo.UpdateItem(ctx, existing); err != nil {
				return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge cart item")
			}
			continue
		}
		if err := repo.MoveItem(ctx, item.ID, target.ID); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "move cart item")
		}
		item.CartID = target.ID
		target.Items = append(target.Items, item)
		index[key] = len(target.Items) - 1
	}

	if target.CouponID == nil {
		target.CouponID = guest.CouponID
	}
	if target.DeliveryAreaID == nil {
		target.DeliveryAreaID = guest.DeliveryAreaID
	}
	if target.Notes == nil {
		target.Notes = guest.Notes
	}
	if err := repo.Delete(ctx, guest.ID); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "discard guest cart")
	}
	return len(guest.Items), nil
}

func (s *service) ShippingOptions(ctx context.Context, owner Owner) ([]ShippingOption, error) {
	view, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	areas, err := s.delivery.ActiveAreas(ctx)
	if err != nil {
		return nil, err
	}
	amount := view.Totals.Subtotal.Sub(view.Totals.Discount)
	options := make([]ShippingOption, 0, len(areas))
	for i := range areas {
		area := areas[i]
		options = append(options, ShippingOption{
			AreaID:                area.ID,
			Name:                  area.Name,
			City:                  area.City,
			Charge:                pricing.ShippingCharge(delivery.PricingArea(&area), amount),
			MinOrderAmount:        area.MinOrderAmount,
			FreeDeliveryMinAmount: area.FreeDeliveryMinAmount,
			EstimatedMinutes:      area.EstimatedMinutes,
			Selected:              view.DeliveryAreaID != nil && *view.DeliveryAreaID == area.ID,
		})
	}
	return options, nil
}

func (s *service) PrepareCheckout(ctx context.Context, tx *gorm.DB, owner Owner) (*Snapshot, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return nil, err
	}
	cart, err := s.lockCart(ctx, s.repo.WithTx(tx), owner, false)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	return s.recalculate(ctx, tx, cart, owner, policy)
}

func (s *service) DeleteTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	if err := s.repo.WithTx(tx).Delete(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
	}
	return nil
}

func (s *service) PurgeStaleGuestCarts(ctx context.Context, before time.Time) (int64, error) {
	removed, err := s.repo.DeleteStaleGuestCarts(ctx, before.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "purge guest carts")
	}
	return removed, nil
}

func findItem(cart *models.Cart, itemID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func validateQuantity(offer catalog.Offer, variantID *uuid.UUID, quantity int, policy settings.Policy) error {
	return checkout.ValidateLineQuantities([]checkout.LineQuantityInput{{
		ProductID:   offer.Product.ID,
		VariantID:   variantID,
		ProductName: offer.Name(),
		Quantity:    quantity,
	}}, policy.MaxLineQuantity)
}
