package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/payloads"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

// Service owns the order lifecycle after placement, plus the placement
// primitives checkout composes inside its own transaction.
type Service interface {
	AllocateNumberTx(ctx context.Context, tx *gorm.DB, prefix string, at time.Time) (string, error)
	CreateTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	// RecordPlacedTx writes the opening history entry and, for non-cash
	// methods, a pending payment awaiting verification.
	RecordPlacedTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor Actor) error

	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Lookup(ctx context.Context, loc Locator) (*models.Order, error)
	Track(ctx context.Context, number, phone string) (Tracking, error)
	List(ctx context.Context, filter ListFilter) (OrderPage, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, input StatusUpdateInput, actor Actor) (*models.Order, error)
	Cancel(ctx context.Context, loc Locator, reason string) (*models.Order, error)
	UpdatePaymentInfo(ctx context.Context, loc Locator, input PaymentInfoInput) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, input PaymentStatusInput, actor Actor) (*models.Order, error)
	AssignDeliveryPerson(ctx context.Context, id, personID uuid.UUID, actor Actor) (*models.Order, error)
	AddNote(ctx context.Context, id uuid.UUID, note string, actor Actor) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID, actor Actor) error
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo      Repository
	DB        txRunner
	Inventory stockReturner
	Events    outbox.Emitter
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	db        txRunner
	inventory stockReturner
	events    outbox.Emitter
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:      params.Repo,
		db:        params.DB,
		inventory: params.Inventory,
		events:    params.Events,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// FormatNumber renders PREFIX-YYYY-NNNNN.
func FormatNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%05d", prefix, year, seq)
}

func (s *service) AllocateNumberTx(ctx context.Context, tx *gorm.DB, prefix string, at time.Time) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order prefix is required")
	}
	year := at.UTC().Year()
	seq, err := s.repo.WithTx(tx).NextSequence(ctx, prefix, year)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate order number")
	}
	return FormatNumber(prefix, year, seq), nil
}

func (s *service) CreateTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	return nil
}

func (s *service) RecordPlacedTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor Actor) error {
	repo := s.repo.WithTx(tx)
	if err := s.appendHistory(ctx, repo, order, order.Status, "Order placed", actor); err != nil {
		return err
	}
	if order.PaymentMethod == enums.PaymentMethodCashOnDelivery {
		return nil
	}
	payment := models.Payment{
		OrderID:       order.ID,
		Amount:        order.Total,
		PaymentMethod: order.PaymentMethod,
		Status:        enums.PaymentRecordPending,
		TransactionID: order.TransactionID,
	}
	if err := repo.CreatePayment(ctx, &payment); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, s.repo, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LoadDetail(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order detail")
	}
	return order, nil
}

func (s *service) Lookup(ctx context.Context, loc Locator) (*models.Order, error) {
	order, err := s.locate(ctx, s.repo, loc, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LoadDetail(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order detail")
	}
	return order, nil
}

func (s *service) Track(ctx context.Context, number, phone string) (Tracking, error) {
	order, err := s.Lookup(ctx, Locator{OrderNumber: number, Phone: phone})
	if err != nil {
		return Tracking{}, err
	}
	return trackingOf(order), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (OrderPage, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return OrderPage{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if filter.PaymentStatus != nil && !filter.PaymentStatus.IsValid() {
		return OrderPage{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return OrderPage{}, pkgerrors.New(pkgerrors.CodeValidation, "date range is inverted")
	}
	query, err := pagination.Resolve(filter.Page)
	if err != nil {
		return OrderPage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, query)
	if err != nil {
		return OrderPage{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	var page OrderPage
	page.Orders, page.NextCursor = pagination.Trim(rows, query.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, input StatusUpdateInput, actor Actor) (*models.Order, error) {
	to, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err = s.load(ctx, repo, id, true)
		if err != nil {
			return err
		}
		return s.transition(ctx, tx, repo, order, to, input.Comment, input.Reason, actor)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel voids a customer's own order while it is still cancellable.
// Cancelling an already cancelled order changes nothing.
func (s *service) Cancel(ctx context.Context, loc Locator, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	actor := Actor{UserID: loc.UserID, Role: enums.UserRoleCustomer}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.locate(ctx, repo, loc, true)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusCancelled {
			return nil
		}
		if !order.Status.IsCancellable() {
			return pkgerrors.New(pkgerrors.CodeOrderNotCancellable, "order can no longer be cancelled").WithDetails(map[string]any{
				"status": order.Status,
			})
		}
		comment := "Cancelled by customer"
		var why *string
		if reason != "" {
			comment = comment + ": " + reason
			why = &reason
		}
		return s.transition(ctx, tx, repo, order, enums.OrderStatusCancelled, &comment, why, actor)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) UpdatePaymentInfo(ctx context.Context, loc Locator, input PaymentInfoInput) (*models.Order, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(input.PaymentMethod))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	txID := strings.TrimSpace(input.TransactionID)
	if method.RequiresTransaction() && txID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required for this payment method")
	}
	var txRef *string
	if txID != "" {
		txRef = &txID
	}
	actor := Actor{UserID: loc.UserID, Role: enums.UserRoleCustomer}

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err = s.locate(ctx, repo, loc, true)
		if err != nil {
			return err
		}
		if order.PaymentStatus == enums.PaymentStatusPaid || order.Status.IsVoid() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment information can no longer be changed").WithDetails(map[string]any{
				"status":         order.Status,
				"payment_status": order.PaymentStatus,
			})
		}

		err := repo.UpdateFields(ctx, order.ID, map[string]any{
			"payment_method": method,
			"transaction_id": txRef,
			"updated_at":     s.now().UTC(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment info")
		}
		order.PaymentMethod = method
		order.TransactionID = txRef

		if err := s.upsertPendingPayment(ctx, repo, order); err != nil {
			return err
		}

		comment := fmt.Sprintf("Payment information updated: %s", method)
		if txRef != nil {
			comment = fmt.Sprintf("%s (%s)", comment, txID)
		}
		return s.appendHistory(ctx, repo, order, order.Status, comment, actor)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// upsertPendingPayment keeps one pending payment row in step with the
// order's payment details. Cash orders need none.
func (s *service) upsertPendingPayment(ctx context.Context, repo Repository, order *models.Order) error {
	payment, err := repo.LatestPayment(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment != nil && payment.Status == enums.PaymentRecordPending {
		err := repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"payment_method": order.PaymentMethod,
			"transaction_id": order.TransactionID,
			"updated_at":     s.now().UTC(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
		}
		return nil
	}
	if order.PaymentMethod == enums.PaymentMethodCashOnDelivery {
		return nil
	}
	fresh := models.Payment{
		OrderID:       order.ID,
		Amount:        order.Total,
		PaymentMethod: order.PaymentMethod,
		Status:        enums.PaymentRecordPending,
		TransactionID: order.TransactionID,
	}
	if err := repo.CreatePayment(ctx, &fresh); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}
	return nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, input PaymentStatusInput, actor Actor) (*models.Order, error) {
	to, err := enums.ParsePaymentStatus(strings.TrimSpace(input.PaymentStatus))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStatusTransition, "unknown payment status").WithDetails(map[string]any{
			"payment_status": input.PaymentStatus,
		})
	}

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err = s.load(ctx, repo, id, true)
		if err != nil {
			return err
		}
		from := order.PaymentStatus
		if from == to {
			return nil
		}

		now := s.now().UTC()
		updates := map[string]any{"payment_status": to, "updated_at": now}
		if input.TransactionID != nil {
			updates["transaction_id"] = *input.TransactionID
			order.TransactionID = input.TransactionID
		}
		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
		}
		order.PaymentStatus = to

		if err := s.mirrorPayment(ctx, repo, order, to, now); err != nil {
			return err
		}

		comment := fmt.Sprintf("Payment status changed from %s to %s", from, to)
		if input.Comment != nil && strings.TrimSpace(*input.Comment) != "" {
			comment = comment + ": " + strings.TrimSpace(*input.Comment)
		}
		if err := s.appendHistory(ctx, repo, order, order.Status, comment, actor); err != nil {
			return err
		}

		return s.emit(ctx, tx, order, enums.EventPaymentStatusChanged, actor, payloads.PaymentStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          to,
		})
	})
	if err != nil {
		return nil, err
	}
	s.info(ctx, order, "order payment status updated", map[string]any{"payment_status": order.PaymentStatus})
	return order, nil
}

// mirrorPayment carries the order's payment status onto its latest payment
// row, opening one when none exists.
func (s *service) mirrorPayment(ctx context.Context, repo Repository, order *models.Order, status enums.PaymentStatus, now time.Time) error {
	record := status.RecordStatus()
	var paidAt *time.Time
	if status == enums.PaymentStatusPaid {
		paidAt = &now
	}

	payment, err := repo.LatestPayment(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment == nil {
		fresh := models.Payment{
			OrderID:       order.ID,
			Amount:        order.Total,
			PaymentMethod: order.PaymentMethod,
			Status:        record,
			TransactionID: order.TransactionID,
			PaidAt:        paidAt,
		}
		if err := repo.CreatePayment(ctx, &fresh); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
		}
		return nil
	}

	updates := map[string]any{"status": record, "updated_at": now}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}
	if order.TransactionID != nil {
		updates["transaction_id"] = order.TransactionID
	}
	if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
	}
	return nil
}

func (s *service) AssignDeliveryPerson(ctx context.Context, id, personID uuid.UUID, actor Actor) (*models.Order, error) {
	if personID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery person is required")
	}
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.load(ctx, repo, id, true)
		if err != nil {
			return err
		}
		if IsTerminal(order.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed").WithDetails(map[string]any{
				"status": order.Status,
			})
		}
		err = repo.UpdateFields(ctx, order.ID, map[string]any{
			"assigned_delivery_person_id": personID,
			"updated_at":                  s.now().UTC(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign delivery person")
		}
		order.AssignedDeliveryPersonID = &personID
		return s.appendHistory(ctx, repo, order, order.Status, fmt.Sprintf("Assigned to delivery person %s", personID), actor)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) AddNote(ctx context.Context, id uuid.UUID, note string, actor Actor) (*models.Order, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note is required")
	}
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.load(ctx, repo, id, true)
		if err != nil {
			return err
		}
		return s.appendHistory(ctx, repo, order, order.Status, note, actor)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, repo, id, true); err != nil {
			return err
		}
		if err := repo.SoftDelete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.logg != nil {
		fields := map[string]any{"order_id": id.String()}
		if actor.UserID != nil {
			fields["actor_id"] = actor.UserID.String()
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "order deleted")
	}
	return nil
}

// transition moves order to status to and applies its side effects. Writing
// the current status again only records history. Entering cancelled or
// failed returns the order's stock once, guarded by inventory_restocked_at.
func (s *service) transition(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, to enums.OrderStatus, comment, reason *string, actor Actor) error {
	from := order.Status
	if from == to {
		text := fmt.Sprintf("Status reaffirmed as %s", to)
		if comment != nil && strings.TrimSpace(*comment) != "" {
			text = strings.TrimSpace(*comment)
		}
		return s.appendHistory(ctx, repo, order, to, text, actor)
	}
	if err := checkTransition(from, to); err != nil {
		return err
	}

	now := s.now().UTC()
	updates := map[string]any{"status": to, "updated_at": now}
	if to == enums.OrderStatusDelivered && order.DeliveredAt == nil {
		updates["delivered_at"] = now
		order.DeliveredAt = &now
	}
	restocked := false
	if to.IsVoid() {
		if order.CancelledAt == nil {
			updates["cancelled_at"] = now
			updates["cancellation_reason"] = reason
			order.CancelledAt = &now
			order.CancellationReason = reason
		}
		if order.InventoryRestockedAt == nil {
			if err := s.restock(ctx, tx, repo, order, actor); err != nil {
				return err
			}
			updates["inventory_restocked_at"] = now
			order.InventoryRestockedAt = &now
			restocked = true
		}
	}
	if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	order.Status = to

	text := fmt.Sprintf("Status changed from %s to %s", from, to)
	if comment != nil && strings.TrimSpace(*comment) != "" {
		text = strings.TrimSpace(*comment)
	}
	if err := s.appendHistory(ctx, repo, order, to, text, actor); err != nil {
		return err
	}

	err := s.emit(ctx, tx, order, enums.EventOrderStatusChanged, actor, payloads.OrderStatusChangedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		From:        from,
		To:          to,
		Comment:     text,
	})
	if err != nil {
		return err
	}
	if to.IsVoid() {
		event := payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      to,
			CancelledAt: now,
			Restocked:   restocked,
		}
		if reason != nil {
			event.Reason = *reason
		}
		if err := s.emit(ctx, tx, order, enums.EventOrderCancelled, actor, event); err != nil {
			return err
		}
	}

	s.info(ctx, order, "order status changed", map[string]any{"from": from, "to": to, "restocked": restocked})
	return nil
}

// restock credits every item back to the ledger. Items whose product has
// since been removed from the catalog have nothing to return to.
func (s *service) restock(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, actor Actor) error {
	if order.Items == nil {
		if err := repo.LoadDetail(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
		}
	}
	remarks := fmt.Sprintf("Order %s voided", order.OrderNumber)
	for _, item := range order.Items {
		_, err := s.inventory.AdjustTx(ctx, tx, inventory.AdjustInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Delta:     item.Quantity,
			Type:      enums.InventoryTxReturn,
			Reference: inventory.OrderRef(order.ID),
			Remarks:   &remarks,
			Actor:     actor.UserID,
		})
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_number": order.OrderNumber,
					"product_id":   item.ProductID.String(),
				})
				s.logg.Warn(logCtx, "restock skipped for missing product")
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, order *models.Order, status enums.OrderStatus, comment string, actor Actor) error {
	entry := models.OrderStatusHistory{
		OrderID:   order.ID,
		Status:    status,
		Comment:   &comment,
		CreatedBy: actor.UserID,
		CreatedAt: s.now().UTC(),
	}
	if err := repo.AppendHistory(ctx, &entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append order history")
	}
	order.History = append(order.History, entry)
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, order *models.Order, eventType enums.OutboxEventType, actor Actor, data any) error {
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor.ref(),
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order event")
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID, lock bool) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id, lock)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// locate resolves an order number for its owner. A mismatch reads as not
// found so order numbers cannot be probed.
func (s *service) locate(ctx context.Context, repo Repository, loc Locator, lock bool) (*models.Order, error) {
	number := strings.ToUpper(strings.TrimSpace(loc.OrderNumber))
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	phone := normalizePhone(loc.Phone)
	if loc.UserID == nil && phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required to look up a guest order")
	}

	order, err := repo.FindByNumber(ctx, number, lock)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}

	owned := false
	if loc.UserID != nil {
		owned = order.UserID != nil && *order.UserID == *loc.UserID
	}
	if !owned && phone != "" {
		owned = normalizePhone(order.CustomerPhone) == phone
	}
	if !owned {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *service) info(ctx context.Context, order *models.Order, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	all := map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	}
	for k, v := range fields {
		all[k] = v
	}
	s.logg.Info(s.logg.WithFields(ctx, all), msg)
}
