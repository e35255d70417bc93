package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/cart"
	"github.com/IstiakDeveloper/orgreeni/internal/coupons"
	"github.com/IstiakDeveloper/orgreeni/internal/delivery"
	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/internal/orders"
	"github.com/IstiakDeveloper/orgreeni/internal/pricing"
	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	pkgcheckout "github.com/IstiakDeveloper/orgreeni/pkg/checkout"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockDebiter writes sale rows to the ledger inside the checkout transaction.
type stockDebiter interface {
	AdjustTx(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (*models.InventoryTransaction, error)
}

// Service converts a cart into an order.
type Service interface {
	PlaceOrder(ctx context.Context, owner cart.Owner, input PlaceOrderInput) (*models.Order, error)
}

// ServiceParams wires the checkout orchestrator.
type ServiceParams struct {
	DB        txRunner
	Cart      cart.Service
	Delivery  delivery.Service
	Orders    orders.Service
	Inventory stockDebiter
	Policy    settings.Provider
	Events    outbox.Emitter
	Metrics   *metrics.CheckoutMetrics
	Logger    *logger.Logger
}

type service struct {
	db        txRunner
	cart      cart.Service
	delivery  delivery.Service
	orders    orders.Service
	inventory stockDebiter
	policy    settings.Provider
	events    outbox.Emitter
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Delivery == nil {
		return nil, fmt.Errorf("delivery service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Policy == nil {
		return nil, fmt.Errorf("policy provider required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		db:        params.DB,
		cart:      params.Cart,
		delivery:  params.Delivery,
		orders:    params.Orders,
		inventory: params.Inventory,
		policy:    params.Policy,
		events:    params.Events,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// PlaceOrder runs checkout as one transaction. Any failure leaves the cart,
// the ledger and the order tables exactly as they were.
func (s *service) PlaceOrder(ctx context.Context, owner cart.Owner, input PlaceOrderInput) (*models.Order, error) {
	started := time.Now()
	order, err := s.placeOrder(ctx, owner, input)
	s.observe(err, time.Since(started))
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":       order.ID.String(),
			"order_number":   order.OrderNumber,
			"total":          order.Total.String(),
			"payment_method": order.PaymentMethod,
			"items":          len(order.Items),
		})
		s.logg.Info(logCtx, "order placed")
	}
	return order, nil
}

func (s *service) placeOrder(ctx context.Context, owner cart.Owner, input PlaceOrderInput) (*models.Order, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(input.PaymentMethod))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if strings.TrimSpace(input.CustomerName) == "" || strings.TrimSpace(input.CustomerPhone) == "" || strings.TrimSpace(input.ShippingAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name, phone and shipping address are required")
	}
	if input.DeliverySlotID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_slot_id is required")
	}
	day, err := parseDeliveryDate(input.DeliveryDate)
	if err != nil {
		return nil, err
	}

	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := delivery.ValidateDate(day, now, policy.AdvanceOrderDays); err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		snap, err := s.cart.PrepareCheckout(ctx, tx, owner)
		if err != nil {
			return err
		}
		if len(snap.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		if err := validateLines(snap.Lines, policy.MaxLineQuantity); err != nil {
			return err
		}

		areaID := input.DeliveryAreaID
		if areaID == nil {
			areaID = snap.Cart.DeliveryAreaID
		}
		if areaID == nil {
			return pkgerrors.New(pkgerrors.CodeInvalidDeliveryArea, "delivery area is required")
		}
		area, err := s.delivery.Area(ctx, tx, *areaID)
		if err != nil {
			return err
		}
		slot, err := s.delivery.ReserveSlot(ctx, tx, input.DeliverySlotID, day)
		if err != nil {
			return err
		}

		if snap.Totals.Subtotal.LessThan(area.MinOrderAmount) {
			return pkgerrors.New(pkgerrors.CodeBelowMinimumOrder, "order is below the area minimum").WithDetails(map[string]any{
				"subtotal":         snap.Totals.Subtotal.StringFixed(2),
				"min_order_amount": area.MinOrderAmount.StringFixed(2),
			})
		}

		// Totals are recomputed against the checkout area; cached cart
		// totals are never charged.
		lines := make([]pricing.Line, 0, len(snap.Lines))
		for _, line := range snap.Lines {
			lines = append(lines, pricing.Line{UnitPrice: line.Offer.UnitPrice, Quantity: line.Item.Quantity})
		}
		totals := pricing.ComputeForArea(pricing.Input{
			Lines:   lines,
			Coupon:  coupons.ToPricing(snap.Coupon),
			VATRate: policy.VATRate(),
			Now:     now,
		}, delivery.PricingArea(area))

		number, err := s.orders.AllocateNumberTx(ctx, tx, policy.OrderPrefix, now)
		if err != nil {
			return err
		}

		order = buildOrder(number, owner, input, method, day, area, slot, snap, totals)
		if err := s.orders.CreateTx(ctx, tx, order); err != nil {
			return err
		}

		if err := s.debitStock(ctx, tx, order); err != nil {
			return err
		}

		actor := orders.Actor{UserID: owner.UserID, Role: enums.UserRoleCustomer}
		if err := s.orders.RecordPlacedTx(ctx, tx, order, actor); err != nil {
			return err
		}
		if err := s.cart.DeleteTx(ctx, tx, snap.Cart.ID); err != nil {
			return err
		}

		return s.emitPlaced(ctx, tx, order, actor)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// debitStock writes one sale row per item. Items whose product left the
// catalog mid-checkout are skipped.
func (s *service) debitStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	remarks := fmt.Sprintf("Order %s placed", order.OrderNumber)
	for _, item := range order.Items {
		_, err := s.inventory.AdjustTx(ctx, tx, inventory.AdjustInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Delta:     -item.Quantity,
			Type:      enums.InventoryTxSale,
			Reference: inventory.OrderRef(order.ID),
			Remarks:   &remarks,
			Actor:     order.UserID,
		})
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_number": order.OrderNumber,
					"product_id":   item.ProductID.String(),
				})
				s.logg.Warn(logCtx, "stock debit skipped for missing product")
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) emitPlaced(ctx context.Context, tx *gorm.DB, order *models.Order, actor orders.Actor) error {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderPlacedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			UserID:        order.UserID,
			CustomerPhone: order.CustomerPhone,
			Total:         order.Total.StringFixed(2),
			PaymentMethod: order.PaymentMethod,
			ItemCount:     count,
			DeliveryDate:  order.DeliveryDate.Format(time.DateOnly),
		},
	}
	if actor.UserID != nil {
		event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order placed event")
	}
	return nil
}

func (s *service) observe(err error, elapsed time.Duration) {
	outcome := ""
	if err != nil {
		outcome = string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			outcome = string(typed.Code())
		}
	}
	s.metrics.Observe(outcome, elapsed)
}

func validateLines(lines []cart.Line, max int) error {
	inputs := make([]pkgcheckout.LineQuantityInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, pkgcheckout.LineQuantityInput{
			ProductID:   line.Item.ProductID,
			VariantID:   line.Item.VariantID,
			ProductName: line.Offer.Name(),
			Quantity:    line.Item.Quantity,
		})
	}
	return pkgcheckout.ValidateLineQuantities(inputs, max)
}

func buildOrder(
	number string,
	owner cart.Owner,
	input PlaceOrderInput,
	method enums.PaymentMethod,
	day time.Time,
	area *models.DeliveryArea,
	slot *models.DeliverySlot,
	snap *cart.Snapshot,
	totals pricing.Totals,
) *models.Order {
	order := &models.Order{
		OrderNumber:     number,
		UserID:          owner.UserID,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		CustomerEmail:   input.CustomerEmail,
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		DeliveryAreaID:  &area.ID,
		DeliverySlotID:  &slot.ID,
		DeliveryDate:    delivery.Day(day),
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		ShippingCharge:  totals.ShippingCharge,
		VAT:             totals.VAT,
		Total:           totals.Total,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   method,
		TransactionID:   input.TransactionID,
		Notes:           input.Notes,
		Items:           make([]models.OrderItem, 0, len(snap.Lines)),
	}
	if order.Notes == nil {
		order.Notes = snap.Cart.Notes
	}
	if snap.Coupon != nil && totals.Discount.IsPositive() {
		order.CouponID = &snap.Coupon.ID
	}

	for _, line := range snap.Lines {
		item := models.OrderItem{
			ProductID:   line.Item.ProductID,
			VariantID:   line.Item.VariantID,
			ProductName: line.Offer.Product.Name,
			Quantity:    line.Item.Quantity,
			UnitPrice:   line.Offer.UnitPrice,
			Subtotal:    pricing.Money(pricing.Line{UnitPrice: line.Offer.UnitPrice, Quantity: line.Item.Quantity}.Subtotal()),
		}
		if line.Offer.Variant != nil {
			name := line.Offer.Variant.Name
			item.VariantName = &name
		}
		order.Items = append(order.Items, item)
	}
	return order
}
