package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/catalog"
	"github.com/IstiakDeveloper/orgreeni/internal/coupons"
	"github.com/IstiakDeveloper/orgreeni/internal/delivery"
	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/dbtest"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got.String())
}

func newCartService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()

	cat, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	cp, err := coupons.NewService(coupons.NewRepository(conn))
	require.NoError(t, err)
	dl, err := delivery.NewService(delivery.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		DB:       client,
		Catalog:  cat,
		Coupons:  cp,
		Delivery: dl,
		Policy: settings.Static(settings.Policy{
			VATPercentage:     dec("5"),
			OrderPrefix:       "CHL",
			AdvanceOrderDays:  7,
			MaxLineQuantity:   10,
			LowStockThreshold: 10,
		}),
	})
	require.NoError(t, err)
	return svc, conn
}

func guest() Owner { return SessionOwner("sess-" + uuid.NewString()) }

func TestEndToEndCartTotals(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "200")
	area := dbtest.SeedArea(t, conn, "30", "0", "1000")
	coupon := dbtest.SeedCoupon(t, conn, models.Coupon{Code: "FIFTY", DiscountAmount: dec("50"), MinimumPurchaseAmount: dec("100")})
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = svc.SetShippingArea(ctx, owner, area.ID)
	require.NoError(t, err)
	view, err := svc.ApplyCoupon(ctx, owner, "fifty")
	require.NoError(t, err)

	require.NotNil(t, view.CouponCode)
	assert.Equal(t, coupon.Code, *view.CouponCode)
	assertMoney(t, "600", view.Totals.Subtotal)
	assertMoney(t, "50", view.Totals.Discount)
	assertMoney(t, "27.5", view.Totals.VAT)
	assertMoney(t, "30", view.Totals.ShippingCharge)
	assertMoney(t, "607.5", view.Totals.Total)
	assert.Equal(t, 3, view.ItemCount)
}

func TestRecalculationIsAFixedPoint(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "33.33")
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	first, err := svc.Get(ctx, owner)
	require.NoError(t, err)
	second, err := svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.True(t, first.Totals.Equal(second.Totals))
	assertMoney(t, "99.99", second.Totals.Subtotal)
	assertMoney(t, "5", second.Totals.VAT)
}

func TestAddItemMergesMatchingLines(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "100")
	variant := dbtest.SeedVariant(t, conn, product.ID, "10", true)
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, VariantID: &variant.ID, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assertMoney(t, "500", view.Items[0].Subtotal)
	assertMoney(t, "110", view.Items[1].UnitPrice)
	assertMoney(t, "610", view.Totals.Subtotal)
}

func TestAddItemRejectsUnavailableProduct(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "100", func(p *models.Product) { p.Status = enums.ProductStatusInactive })
	live := dbtest.SeedProduct(t, conn, "100")
	offVariant := dbtest.SeedVariant(t, conn, live.ID, "0", false)

	_, err := svc.AddItem(ctx, guest(), AddItemInput{ProductID: product.ID, Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeProductUnavailable))
	_, err = svc.AddItem(ctx, guest(), AddItemInput{ProductID: live.ID, VariantID: &offVariant.ID, Quantity: 1})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeProductUnavailable))

	var carts int64
	require.NoError(t, conn.Model(&models.Cart{}).Count(&carts).Error)
	assert.Zero(t, carts, "failed adds must not leave empty carts behind")
}

func TestAddItemEnforcesLineQuantityLimit(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "1")
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 8})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 3})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 0})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestReadRefreshesPricesAndDropsUnavailableLines(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	kept := dbtest.SeedProduct(t, conn, "100")
	gone := dbtest.SeedProduct(t, conn, "50")
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: kept.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, AddItemInput{ProductID: gone.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", kept.ID).Update("sale_price", dec("90")).Error)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", gone.ID).Update("status", enums.ProductStatusInactive).Error)

	view, err := svc.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assertMoney(t, "90", view.Items[0].UnitPrice)
	assertMoney(t, "180", view.Totals.Subtotal)
	require.Len(t, view.Dropped, 1)
	assert.Equal(t, gone.ID, view.Dropped[0].ProductID)

	var items int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&items).Error)
	assert.EqualValues(t, 1, items)
}

func TestCouponDetachedWhenSubtotalDropsBelowMinimum(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "200")
	coupon := dbtest.SeedCoupon(t, conn, models.Coupon{DiscountAmount: dec("50"), MinimumPurchaseAmount: dec("500")})
	owner := guest()

	view, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	view, err = svc.ApplyCoupon(ctx, owner, coupon.Code)
	require.NoError(t, err)
	assertMoney(t, "50", view.Totals.Discount)

	view, err = svc.UpdateItemQuantity(ctx, owner, view.Items[0].ID, 2)
	require.NoError(t, err)
	assert.Nil(t, view.CouponCode)
	assertMoney(t, "0", view.Totals.Discount)

	var stored models.Cart
	require.NoError(t, conn.First(&stored).Error)
	assert.Nil(t, stored.CouponID)
}

func TestCouponMinimumBoundary(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "200")
	exact := dbtest.SeedCoupon(t, conn, models.Coupon{DiscountAmount: dec("10"), MinimumPurchaseAmount: dec("600")})
	above := dbtest.SeedCoupon(t, conn, models.Coupon{DiscountAmount: dec("10"), MinimumPurchaseAmount: dec("600.01")})
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, owner, above.Code)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeMinimumPurchaseNotMet))

	view, err := svc.ApplyCoupon(ctx, owner, exact.Code)
	require.NoError(t, err)
	assertMoney(t, "10", view.Totals.Discount)
}

func TestPercentageCouponIsCapped(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "500")
	coupon := dbtest.SeedCoupon(t, conn, models.Coupon{
		DiscountType:          enums.DiscountTypePercentage,
		DiscountAmount:        dec("20"),
		MaximumDiscountAmount: decimal.NewNullDecimal(dec("100")),
	})
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	view, err := svc.ApplyCoupon(ctx, owner, coupon.Code)
	require.NoError(t, err)
	assertMoney(t, "100", view.Totals.Discount)

	view, err = svc.RemoveCoupon(ctx, owner)
	require.NoError(t, err)
	assertMoney(t, "0", view.Totals.Discount)
}

func TestApplyCouponOnEmptyCart(t *testing.T) {
	svc, conn := newCartService(t)
	coupon := dbtest.SeedCoupon(t, conn, models.Coupon{DiscountAmount: dec("10")})

	_, err := svc.ApplyCoupon(context.Background(), guest(), coupon.Code)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeEmptyCart))
}

func TestShippingAreaDetachedWhenDeactivated(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "100")
	area := dbtest.SeedArea(t, conn, "60", "0", "")
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	view, err := svc.SetShippingArea(ctx, owner, area.ID)
	require.NoError(t, err)
	assertMoney(t, "60", view.Totals.ShippingCharge)

	dbtest.Deactivate(t, conn, &models.DeliveryArea{}, area.ID)
	view, err = svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Nil(t, view.DeliveryAreaID)
	assertMoney(t, "0", view.Totals.ShippingCharge)

	_, err = svc.SetShippingArea(ctx, owner, area.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidDeliveryArea))
}

func TestShippingOptionsQuoteEachArea(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "400")
	near := dbtest.SeedArea(t, conn, "40", "0", "1000")
	far := dbtest.SeedArea(t, conn, "120", "0", "")
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = svc.SetShippingArea(ctx, owner, far.ID)
	require.NoError(t, err)

	options, err := svc.ShippingOptions(ctx, owner)
	require.NoError(t, err)
	require.Len(t, options, 2)
	byID := map[uuid.UUID]ShippingOption{}
	for _, o := range options {
		byID[o.AreaID] = o
	}
	assertMoney(t, "0", byID[near.ID].Charge)
	assertMoney(t, "120", byID[far.ID].Charge)
	assert.True(t, byID[far.ID].Selected)
	assert.False(t, byID[near.ID].Selected)
}

func TestMergeIsLosslessAndIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	a := dbtest.SeedProduct(t, conn, "10")
	b := dbtest.SeedProduct(t, conn, "20")
	sessionID := "sess-merge"
	userID := uuid.New()

	_, err := svc.AddItem(ctx, SessionOwner(sessionID), AddItemInput{ProductID: a.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, SessionOwner(sessionID), AddItemInput{ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddNotes(ctx, SessionOwner(sessionID), "leave at the gate")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, UserOwner(userID), AddItemInput{ProductID: a.ID, Quantity: 1})
	require.NoError(t, err)

	view, err := svc.Merge(ctx, sessionID, userID)
	require.NoError(t, err)
	quantities := map[uuid.UUID]int{}
	for _, item := range view.Items {
		quantities[item.ProductID] = item.Quantity
	}
	assert.Equal(t, map[uuid.UUID]int{a.ID: 3, b.ID: 1}, quantities)
	require.NotNil(t, view.Notes)
	assert.Equal(t, "leave at the gate", *view.Notes)

	again, err := svc.Merge(ctx, sessionID, userID)
	require.NoError(t, err)
	assert.Equal(t, view.ItemCount, again.ItemCount)
	assert.True(t, view.Totals.Equal(again.Totals))

	var carts int64
	require.NoError(t, conn.Model(&models.Cart{}).Count(&carts).Error)
	assert.EqualValues(t, 1, carts)
}

func TestMergeWithoutGuestCart(t *testing.T) {
	svc, _ := newCartService(t)
	view, err := svc.Merge(context.Background(), "nobody", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, view.ID)
	assert.Empty(t, view.Items)
}

func TestOwnerMustBeExclusive(t *testing.T) {
	svc, _ := newCartService(t)
	userID := uuid.New()

	_, err := svc.Get(context.Background(), Owner{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = svc.Get(context.Background(), Owner{UserID: &userID, SessionID: "s"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestRemoveItemAndClear(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "10")
	owner := guest()

	view, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, owner, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	view, err = svc.RemoveItem(ctx, owner, view.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assertMoney(t, "0", view.Totals.Total)

	require.NoError(t, svc.Clear(ctx, owner))
	view, err = svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Nil(t, view.ID)
}

func TestConcurrentAddsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "10")
	owner := guest()

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: product.ID, Quantity: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := svc.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 6, view.Items[0].Quantity)
}

func TestPurgeStaleGuestCarts(t *testing.T) {
	ctx := context.Background()
	svc, conn := newCartService(t)
	product := dbtest.SeedProduct(t, conn, "10")
	stale := guest()
	user := UserOwner(uuid.New())

	_, err := svc.AddItem(ctx, stale, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	old := time.Now().UTC().AddDate(0, 0, -40)
	require.NoError(t, conn.Model(&models.Cart{}).Where("1 = 1").UpdateColumn("updated_at", old).Error)

	removed, err := svc.PurgeStaleGuestCarts(ctx, time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	view, err := svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)

	var items int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&items).Error)
	assert.EqualValues(t, 1, items)
}
