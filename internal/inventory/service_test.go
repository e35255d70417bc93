package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/dbtest"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

func newLedger(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		DB:      client,
		Policy:  settings.Static(settings.Policy{LowStockThreshold: 10}),
		Events:  outbox.NewWriter(outbox.NewRepository(conn), nil),
		Metrics: metrics.NewInventoryMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return svc, conn
}

func strPtr(s string) *string { return &s }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestAdjustConservesLedger(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100")
	orderID := uuid.New()

	moves := []AdjustInput{
		{Delta: 10, Type: enums.InventoryTxPurchase, Reference: InitialStockRef()},
		{Delta: -3, Type: enums.InventoryTxSale, Reference: OrderRef(orderID)},
		{Delta: -9, Type: enums.InventoryTxSale, Reference: OrderRef(orderID)},
		{Delta: 4, Type: enums.InventoryTxReturn, Reference: OrderRef(orderID)},
	}
	sum := 0
	for _, move := range moves {
		move.ProductID = product.ID
		_, err := svc.Adjust(ctx, move)
		require.NoError(t, err)
		sum += move.Delta
	}

	stock, err := svc.CurrentStock(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, sum, stock)
	assert.Equal(t, 2, stock)

	var rows []models.InventoryTransaction
	require.NoError(t, conn.Where("product_id = ?", product.ID).Find(&rows).Error)
	require.Len(t, rows, len(moves))
	for _, row := range rows {
		assert.Equal(t, row.BeforeQuantity+row.Quantity, row.AfterQuantity)
	}

	report, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Drifts)
	assert.Equal(t, 1, report.Checked)
}

func TestSaleMayDriveStockNegative(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "50")

	entry, err := svc.Adjust(ctx, AdjustInput{
		ProductID: product.ID,
		Delta:     -2,
		Type:      enums.InventoryTxSale,
		Reference: OrderRef(uuid.New()),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, entry.BeforeQuantity)
	assert.Equal(t, -2, entry.AfterQuantity)
}

func TestManualSubtractEnforcesFloor(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100")

	_, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpAdd, Quantity: 5})
	require.NoError(t, err)

	_, err = svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpSubtract, Quantity: 6})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock))

	stock, err := svc.CurrentStock(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, stock)

	var count int64
	require.NoError(t, conn.Model(&models.InventoryTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestManualSetRecordsDeltaFromBefore(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100")

	added, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpAdd, Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, enums.InventoryTxPurchase, added.Type)

	set, err := svc.ApplyManual(ctx, ManualAdjustInput{
		ProductID: product.ID,
		Op:        enums.StockOpSet,
		Quantity:  3,
		Remarks:   strPtr("cycle count"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.InventoryTxAdjustment, set.Type)
	assert.Equal(t, 7, set.BeforeQuantity)
	assert.Equal(t, 3, set.AfterQuantity)
	assert.Equal(t, -4, set.Quantity)
	assert.Equal(t, enums.InventoryRefManualAdjustment, set.ReferenceKind)
	assert.Nil(t, set.ReferenceID)
}

func TestManualAdjustValidatesVariant(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100")
	other := dbtest.SeedProduct(t, conn, "100")
	foreign := dbtest.SeedVariant(t, conn, other.ID, "5", true)

	_, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, VariantID: &foreign.ID, Op: enums.StockOpAdd, Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: "move", Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestAdjustPrefersEarliestExpiringLot(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100")
	now := time.Now().UTC()
	late := now.Add(30 * 24 * time.Hour)
	soon := now.Add(5 * 24 * time.Hour)

	_, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpAdd, Quantity: 5, BatchNumber: strPtr("B-LATE"), ExpiryDate: &late})
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpAdd, Quantity: 3, BatchNumber: strPtr("B-SOON"), ExpiryDate: &soon})
	require.NoError(t, err)

	lotID := func(batch string) uuid.UUID {
		var lot models.ProductStock
		require.NoError(t, conn.Where("batch_number = ?", batch).First(&lot).Error)
		return lot.ID
	}

	sale := AdjustInput{ProductID: product.ID, Delta: -3, Type: enums.InventoryTxSale, Reference: OrderRef(uuid.New())}
	entry, err := svc.Adjust(ctx, sale)
	require.NoError(t, err)
	assert.Equal(t, lotID("B-SOON"), entry.StockID)
	assert.Equal(t, 0, entry.AfterQuantity)

	// The soon lot is empty now, so the next debit moves to the later lot.
	sale.Delta = -1
	entry, err = svc.Adjust(ctx, sale)
	require.NoError(t, err)
	assert.Equal(t, lotID("B-LATE"), entry.StockID)
	assert.Equal(t, 4, entry.AfterQuantity)

	stock, err := svc.CurrentStock(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, stock)
}

func TestVariantStockIsKeyedSeparately(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100")
	variant := dbtest.SeedVariant(t, conn, product.ID, "20", true)

	_, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpAdd, Quantity: 4})
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, VariantID: &variant.ID, Op: enums.StockOpAdd, Quantity: 9})
	require.NoError(t, err)

	base, err := svc.CurrentStock(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, base)

	v, err := svc.CurrentStock(ctx, product.ID, &variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestLowStockCrossingEmitsOnce(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100", func(p *models.Product) { p.StockAlertQuantity = 5 })

	_, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpAdd, Quantity: 8})
	require.NoError(t, err)

	sale := AdjustInput{ProductID: product.ID, Type: enums.InventoryTxSale, Reference: OrderRef(uuid.New())}
	for _, delta := range []int{-2, -1, -1} {
		sale.Delta = delta
		_, err := svc.Adjust(ctx, sale)
		require.NoError(t, err)
	}

	var events []models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", enums.EventStockLow).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, product.ID, events[0].AggregateID)
	assert.Equal(t, enums.AggregateProduct, events[0].AggregateType)

	low, err := svc.IsLowStock(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, low)
}

func TestListTransactionsNewestFirstWithCursor(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100")

	for _, qty := range []int{1, 2, 3} {
		_, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpAdd, Quantity: qty})
		require.NoError(t, err)
	}
	_, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpSubtract, Quantity: 1})
	require.NoError(t, err)

	purchase := enums.InventoryTxPurchase
	first, err := svc.ListTransactions(ctx, TransactionFilter{
		ProductID: &product.ID,
		Type:      &purchase,
		Page:      pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, 3, first.Items[0].Quantity)
	assert.Equal(t, 2, first.Items[1].Quantity)

	second, err := svc.ListTransactions(ctx, TransactionFilter{
		ProductID: &product.ID,
		Type:      &purchase,
		Page:      pagination.Params{Limit: 2, Cursor: first.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, 1, second.Items[0].Quantity)
	assert.Empty(t, second.NextCursor)

	bad := enums.InventoryTransactionType("gift")
	_, err = svc.ListTransactions(ctx, TransactionFilter{Type: &bad})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestListLowStockAndStats(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	empty := dbtest.SeedProduct(t, conn, "10")
	low := dbtest.SeedProduct(t, conn, "10")
	plenty := dbtest.SeedProduct(t, conn, "10")

	_, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: low.ID, Op: enums.StockOpAdd, Quantity: 3})
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, ManualAdjustInput{ProductID: plenty.ID, Op: enums.StockOpAdd, Quantity: 50})
	require.NoError(t, err)

	items, err := svc.ListLowStock(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, empty.ID, items[0].ProductID)
	assert.Equal(t, low.ID, items[1].ProductID)
	assert.Equal(t, 3, items[1].CurrentStock)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalProducts)
	assert.EqualValues(t, 53, stats.TotalStock)
	assert.EqualValues(t, 1, stats.OutOfStock)
	assert.EqualValues(t, 1, stats.LowStock)
	assert.EqualValues(t, 1, stats.InStock)
	assert.Len(t, stats.RecentTransactions, 2)
}

func TestReconcileReportsDrift(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100")

	_, err := svc.ApplyManual(ctx, ManualAdjustInput{ProductID: product.ID, Op: enums.StockOpAdd, Quantity: 6})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.ProductStock{}).Where("product_id = ?", product.ID).Update("quantity", 9).Error)

	report, err := svc.Reconcile(ctx)
	require.Error(t, err)
	require.Len(t, report.Drifts, 1)
	assert.EqualValues(t, 9, report.Drifts[0].Projected)
	assert.EqualValues(t, 6, report.Drifts[0].Ledger)
}

func TestAdjustRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, conn := newLedger(t)
	product := dbtest.SeedProduct(t, conn, "100")

	cases := map[string]AdjustInput{
		"missing order id": {ProductID: product.ID, Delta: -1, Type: enums.InventoryTxSale, Reference: Reference{Kind: enums.InventoryRefOrder}},
		"zero delta":       {ProductID: product.ID, Type: enums.InventoryTxSale, Reference: OrderRef(uuid.New())},
		"unknown type":     {ProductID: product.ID, Delta: 1, Type: "gift", Reference: ManualRef()},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Adjust(ctx, input)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
		})
	}

	_, err := svc.Adjust(ctx, AdjustInput{ProductID: uuid.New(), Delta: 1, Type: enums.InventoryTxPurchase, Reference: ManualRef()})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
