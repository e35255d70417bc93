package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	"github.com/IstiakDeveloper/orgreeni/pkg/db"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/dbtest"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

type harness struct {
	svc    Service
	stock  inventory.Service
	client *db.Client
	conn   *gorm.DB
}

func newHarness(t *testing.T) harness {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	events := outbox.NewWriter(outbox.NewRepository(conn), nil)

	stock, err := inventory.NewService(inventory.ServiceParams{
		Repo:    inventory.NewRepository(conn),
		DB:      client,
		Policy:  settings.Static(settings.Policy{LowStockThreshold: 5}),
		Events:  events,
		Metrics: metrics.NewInventoryMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		DB:        client,
		Inventory: stock,
		Events:    events,
	})
	require.NoError(t, err)
	return harness{svc: svc, stock: stock, client: client, conn: conn}
}

// placeOrder stocks a product with 10 units and books a pending order for
// qty of them, debiting the ledger the way checkout does.
func (h harness) placeOrder(t *testing.T, qty int, opts ...func(*models.Order)) (models.Order, models.Product) {
	t.Helper()
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "100")
	_, err := h.stock.Adjust(ctx, inventory.AdjustInput{
		ProductID: product.ID,
		Delta:     10,
		Type:      enums.InventoryTxPurchase,
		Reference: inventory.InitialStockRef(),
	})
	require.NoError(t, err)

	opts = append([]func(*models.Order){func(o *models.Order) {
		o.Subtotal = decimal.NewFromInt(int64(100 * qty))
		o.Total = o.Subtotal
		o.Items = []models.OrderItem{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    qty,
			UnitPrice:   decimal.NewFromInt(100),
			Subtotal:    o.Subtotal,
		}}
	}}, opts...)
	order := dbtest.SeedOrder(t, h.conn, opts...)

	_, err = h.stock.Adjust(ctx, inventory.AdjustInput{
		ProductID: product.ID,
		Delta:     -qty,
		Type:      enums.InventoryTxSale,
		Reference: inventory.OrderRef(order.ID),
	})
	require.NoError(t, err)
	return order, product
}

func (h harness) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	n, err := h.stock.CurrentStock(context.Background(), productID, nil)
	require.NoError(t, err)
	return n
}

func (h harness) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func (h harness) historyOf(t *testing.T, orderID uuid.UUID) []models.OrderStatusHistory {
	t.Helper()
	var rows []models.OrderStatusHistory
	require.NoError(t, h.conn.Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (h harness) advance(t *testing.T, orderID uuid.UUID, statuses ...enums.OrderStatus) {
	t.Helper()
	for _, status := range statuses {
		_, err := h.svc.UpdateStatus(context.Background(), orderID, StatusUpdateInput{Status: string(status)}, Actor{})
		require.NoError(t, err, "advance to %s", status)
	}
}

func guestLocator(order models.Order) Locator {
	return Locator{OrderNumber: order.OrderNumber, Phone: order.CustomerPhone}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		allowed  bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusPending, enums.OrderStatusShipped, false},
		{enums.OrderStatusConfirmed, enums.OrderStatusProcessing, true},
		{enums.OrderStatusProcessing, enums.OrderStatusPicked, true},
		{enums.OrderStatusPicked, enums.OrderStatusCancelled, false},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusProcessing, enums.OrderStatusFailed, true},
		{enums.OrderStatusPicked, enums.OrderStatusFailed, false},
		{enums.OrderStatusShipped, enums.OrderStatusFailed, false},
		{enums.OrderStatusShipped, enums.OrderStatusReturned, true},
		{enums.OrderStatusDelivered, enums.OrderStatusReturned, true},
		{enums.OrderStatusDelivered, enums.OrderStatusPending, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
		{enums.OrderStatusFailed, enums.OrderStatusCancelled, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", tc.from, tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}
	assert.True(t, IsTerminal(enums.OrderStatusReturned))
	assert.False(t, IsTerminal(enums.OrderStatusDelivered))
}

func TestCancelRestoresStockExactlyOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, product := h.placeOrder(t, 3)
	require.Equal(t, 7, h.stockOf(t, product.ID))

	cancelled, err := h.svc.Cancel(ctx, guestLocator(order), "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "changed my mind", *cancelled.CancellationReason)
	assert.Equal(t, 10, h.stockOf(t, product.ID))

	_, err = h.svc.Cancel(ctx, guestLocator(order), "again")
	require.NoError(t, err)
	_, err = h.svc.UpdateStatus(ctx, order.ID, StatusUpdateInput{Status: "cancelled"}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, 10, h.stockOf(t, product.ID))

	var returns int64
	require.NoError(t, h.conn.Model(&models.InventoryTransaction{}).
		Where("reference_id = ? AND type = ?", order.ID, enums.InventoryTxReturn).
		Count(&returns).Error)
	assert.EqualValues(t, 1, returns)

	assert.EqualValues(t, 1, h.countEvents(t, enums.EventOrderCancelled))
	assert.EqualValues(t, 1, h.countEvents(t, enums.EventOrderStatusChanged))
	// cancel, then the admin reapply; the second customer cancel is silent
	assert.Len(t, h.historyOf(t, order.ID), 2)
}

func TestCancelRefusedOncePicked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, product := h.placeOrder(t, 2)
	h.advance(t, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusProcessing, enums.OrderStatusPicked)

	_, err := h.svc.Cancel(ctx, guestLocator(order), "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeOrderNotCancellable))
	assert.Equal(t, 8, h.stockOf(t, product.ID))
}

func TestUpdateStatusRejectsUnknownAndDisallowed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, _ := h.placeOrder(t, 1)

	_, err := h.svc.UpdateStatus(ctx, order.ID, StatusUpdateInput{Status: "teleported"}, Actor{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidStatusTransition))

	_, err = h.svc.UpdateStatus(ctx, order.ID, StatusUpdateInput{Status: "delivered"}, Actor{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidStatusTransition))

	_, err = h.svc.UpdateStatus(ctx, uuid.New(), StatusUpdateInput{Status: "confirmed"}, Actor{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	var stored models.Order
	require.NoError(t, h.conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
	assert.Empty(t, h.historyOf(t, order.ID))
}

func TestReapplyingStatusOnlyWritesHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, _ := h.placeOrder(t, 1)
	h.advance(t, order.ID, enums.OrderStatusConfirmed)

	comment := "called the customer"
	updated, err := h.svc.UpdateStatus(ctx, order.ID, StatusUpdateInput{Status: "confirmed", Comment: &comment}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, updated.Status)

	history := h.historyOf(t, order.ID)
	require.Len(t, history, 2)
	assert.Equal(t, comment, *history[1].Comment)
	assert.EqualValues(t, 1, h.countEvents(t, enums.EventOrderStatusChanged))
}

func TestDeliveryStampsAndReturnKeepsStock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, product := h.placeOrder(t, 4)
	h.advance(t, order.ID,
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusPicked,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	)

	detail, err := h.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.DeliveredAt)
	assert.Len(t, detail.History, 5)

	returned, err := h.svc.UpdateStatus(ctx, order.ID, StatusUpdateInput{Status: "returned"}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturned, returned.Status)
	assert.Nil(t, returned.InventoryRestockedAt)
	assert.Equal(t, 6, h.stockOf(t, product.ID))
}

func TestFailedOrderRestocks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, product := h.placeOrder(t, 4)
	h.advance(t, order.ID,
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
	)

	reason := "customer unreachable"
	failed, err := h.svc.UpdateStatus(ctx, order.ID, StatusUpdateInput{Status: "failed", Reason: &reason}, Actor{})
	require.NoError(t, err)
	require.NotNil(t, failed.InventoryRestockedAt)
	assert.Equal(t, reason, *failed.CancellationReason)
	assert.Equal(t, 10, h.stockOf(t, product.ID))
}

func TestShippedOrderCannotFail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, product := h.placeOrder(t, 4)
	h.advance(t, order.ID,
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusPicked,
		enums.OrderStatusShipped,
	)

	_, err := h.svc.UpdateStatus(ctx, order.ID, StatusUpdateInput{Status: "failed"}, Actor{})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidStatusTransition))
	assert.Equal(t, 6, h.stockOf(t, product.ID))
}

func TestRestockSkipsRemovedProducts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, product := h.placeOrder(t, 2)
	require.NoError(t, h.conn.Delete(&models.Product{}, "id = ?", product.ID).Error)

	cancelled, err := h.svc.Cancel(ctx, guestLocator(order), "")
	require.NoError(t, err)
	assert.NotNil(t, cancelled.InventoryRestockedAt)
}

func TestLookupChecksOwnership(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := uuid.New()
	order, _ := h.placeOrder(t, 1, func(o *models.Order) { o.UserID = &owner })

	found, err := h.svc.Lookup(ctx, Locator{OrderNumber: order.OrderNumber, UserID: &owner})
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Len(t, found.Items, 1)

	stranger := uuid.New()
	_, err = h.svc.Lookup(ctx, Locator{OrderNumber: order.OrderNumber, UserID: &stranger})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = h.svc.Lookup(ctx, Locator{OrderNumber: order.OrderNumber, Phone: "01999999999"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = h.svc.Lookup(ctx, Locator{OrderNumber: order.OrderNumber})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	found, err = h.svc.Lookup(ctx, Locator{OrderNumber: order.OrderNumber, Phone: "017-0000 0000"})
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
}

func TestTrackShowsHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, _ := h.placeOrder(t, 1)
	h.advance(t, order.ID, enums.OrderStatusConfirmed)

	tracking, err := h.svc.Track(ctx, order.OrderNumber, order.CustomerPhone)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, tracking.Status)
	assert.True(t, tracking.Cancellable)
	require.Len(t, tracking.History, 1)
	assert.Equal(t, enums.OrderStatusConfirmed, tracking.History[0].Status)
	assert.Equal(t, order.DeliveryDate.Format(time.DateOnly), tracking.DeliveryDate)
}

func TestUpdatePaymentStatusMirrorsPaymentRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	txID := "BK123"
	order, _ := h.placeOrder(t, 2, func(o *models.Order) {
		o.PaymentMethod = enums.PaymentMethodBkash
		o.TransactionID = &txID
	})
	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		return h.svc.RecordPlacedTx(ctx, tx, &order, Actor{})
	}))

	var payment models.Payment
	require.NoError(t, h.conn.Where("order_id = ?", order.ID).First(&payment).Error)
	assert.Equal(t, enums.PaymentRecordPending, payment.Status)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(200)))

	admin := uuid.New()
	updated, err := h.svc.UpdatePaymentStatus(ctx, order.ID, PaymentStatusInput{PaymentStatus: "paid"}, Actor{UserID: &admin, Role: enums.UserRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)

	require.NoError(t, h.conn.Where("order_id = ?", order.ID).First(&payment).Error)
	assert.Equal(t, enums.PaymentRecordCompleted, payment.Status)
	assert.NotNil(t, payment.PaidAt)

	history := h.historyOf(t, order.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "Payment status changed from pending to paid", *history[1].Comment)
	assert.Equal(t, &admin, history[1].CreatedBy)
	assert.EqualValues(t, 1, h.countEvents(t, enums.EventPaymentStatusChanged))

	_, err = h.svc.UpdatePaymentStatus(ctx, order.ID, PaymentStatusInput{PaymentStatus: "paid"}, Actor{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, h.countEvents(t, enums.EventPaymentStatusChanged))

	_, err = h.svc.UpdatePaymentStatus(ctx, order.ID, PaymentStatusInput{PaymentStatus: "bounced"}, Actor{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidStatusTransition))
}

func TestUpdatePaymentStatusOpensMissingPaymentRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, _ := h.placeOrder(t, 1)

	_, err := h.svc.UpdatePaymentStatus(ctx, order.ID, PaymentStatusInput{PaymentStatus: "refunded"}, Actor{})
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, h.conn.Where("order_id = ?", order.ID).First(&payment).Error)
	assert.Equal(t, enums.PaymentRecordRefunded, payment.Status)
	assert.Nil(t, payment.PaidAt)
}

func TestUpdatePaymentInfo(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, _ := h.placeOrder(t, 1)
	loc := guestLocator(order)

	_, err := h.svc.UpdatePaymentInfo(ctx, loc, PaymentInfoInput{PaymentMethod: "nagad"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = h.svc.UpdatePaymentInfo(ctx, loc, PaymentInfoInput{PaymentMethod: "barter"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	updated, err := h.svc.UpdatePaymentInfo(ctx, loc, PaymentInfoInput{PaymentMethod: "nagad", TransactionID: "NG-1"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodNagad, updated.PaymentMethod)

	_, err = h.svc.UpdatePaymentInfo(ctx, loc, PaymentInfoInput{PaymentMethod: "nagad", TransactionID: "NG-2"})
	require.NoError(t, err)

	var payments []models.Payment
	require.NoError(t, h.conn.Where("order_id = ?", order.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	require.NotNil(t, payments[0].TransactionID)
	assert.Equal(t, "NG-2", *payments[0].TransactionID)
	assert.Len(t, h.historyOf(t, order.ID), 2)

	_, err = h.svc.UpdatePaymentStatus(ctx, order.ID, PaymentStatusInput{PaymentStatus: "paid"}, Actor{})
	require.NoError(t, err)
	_, err = h.svc.UpdatePaymentInfo(ctx, loc, PaymentInfoInput{PaymentMethod: "bkash", TransactionID: "BK-9"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestAllocateNumberIsSequentialPerYear(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 1; i <= 100; i++ {
		var number string
		require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			number, err = h.svc.AllocateNumberTx(ctx, tx, "chl", at)
			return err
		}))
		assert.Equal(t, fmt.Sprintf("CHL-2026-%05d", i), number)
	}

	var next string
	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		next, err = h.svc.AllocateNumberTx(ctx, tx, "CHL", at.AddDate(1, 0, 0))
		return err
	}))
	assert.Equal(t, "CHL-2027-00001", next)
}

func TestAllocateNumberRollbackLeavesNoGap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := h.client.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := h.svc.AllocateNumberTx(ctx, tx, "CHL", at); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var number string
	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		number, err = h.svc.AllocateNumberTx(ctx, tx, "CHL", at)
		return err
	}))
	assert.Equal(t, "CHL-2026-00001", number)
}

func TestListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		dbtest.SeedOrder(t, h.conn, func(o *models.Order) {
			o.OrderNumber = fmt.Sprintf("CHL-2026-%05d", i+1)
			o.CreatedAt = created
			if i%2 == 0 {
				o.PaymentStatus = enums.PaymentStatusPaid
			}
		})
	}

	page, err := h.svc.List(ctx, ListFilter{Page: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, "CHL-2026-00005", page.Orders[0].OrderNumber)
	require.NotEmpty(t, page.NextCursor)

	seen := len(page.Orders)
	for page.NextCursor != "" {
		page, err = h.svc.List(ctx, ListFilter{Page: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
		require.NoError(t, err)
		seen += len(page.Orders)
	}
	assert.Equal(t, 5, seen)

	paid := enums.PaymentStatusPaid
	page, err = h.svc.List(ctx, ListFilter{PaymentStatus: &paid})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 3)

	page, err = h.svc.List(ctx, ListFilter{Query: "chl-2026-00003"})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)

	_, err = h.svc.List(ctx, ListFilter{Page: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestAssignNoteAndDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	order, _ := h.placeOrder(t, 1)
	rider := uuid.New()

	assigned, err := h.svc.AssignDeliveryPerson(ctx, order.ID, rider, Actor{})
	require.NoError(t, err)
	assert.Equal(t, &rider, assigned.AssignedDeliveryPersonID)

	_, err = h.svc.AddNote(ctx, order.ID, "  ", Actor{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = h.svc.AddNote(ctx, order.ID, "gate code 1234", Actor{})
	require.NoError(t, err)
	assert.Len(t, h.historyOf(t, order.ID), 2)

	require.NoError(t, h.svc.Delete(ctx, order.ID, Actor{}))
	_, err = h.svc.Get(ctx, order.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	var kept int64
	require.NoError(t, h.conn.Unscoped().Model(&models.Order{}).Where("id = ?", order.ID).Count(&kept).Error)
	assert.EqualValues(t, 1, kept)
}
