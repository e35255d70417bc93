package dbtest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// SeedProduct inserts an active product selling at price.
func SeedProduct(t testing.TB, conn *gorm.DB, price string, opts ...func(*models.Product)) models.Product {
	t.Helper()
	suffix := uuid.NewString()[:8]
	p := models.Product{
		Name:               "Product " + suffix,
		SKU:                "SKU-" + suffix,
		BasePrice:          decimal.RequireFromString(price),
		SalePrice:          decimal.RequireFromString(price),
		StockAlertQuantity: 10,
		Status:             enums.ProductStatusActive,
	}
	for _, opt := range opts {
		opt(&p)
	}
	mustCreate(t, conn, &p)
	return p
}

// SeedVariant inserts a variant priced at the product price plus additional.
func SeedVariant(t testing.TB, conn *gorm.DB, productID uuid.UUID, additional string, active bool) models.ProductVariant {
	t.Helper()
	suffix := uuid.NewString()[:8]
	v := models.ProductVariant{
		ProductID:       productID,
		Name:            "Variant " + suffix,
		SKU:             "VAR-" + suffix,
		AdditionalPrice: decimal.RequireFromString(additional),
		IsActive:        true,
	}
	mustCreate(t, conn, &v)
	if !active {
		Deactivate(t, conn, &models.ProductVariant{}, v.ID)
		v.IsActive = false
	}
	return v
}

// SeedArea inserts a delivery area. An empty freeMin leaves the threshold unset.
func SeedArea(t testing.TB, conn *gorm.DB, charge, minOrder, freeMin string) models.DeliveryArea {
	t.Helper()
	a := models.DeliveryArea{
		Name:           "Area " + uuid.NewString()[:8],
		City:           "Dhaka",
		DeliveryCharge: decimal.RequireFromString(charge),
		MinOrderAmount: decimal.RequireFromString(minOrder),
		IsActive:       true,
	}
	if freeMin != "" {
		a.FreeDeliveryMinAmount = decimal.NewNullDecimal(decimal.RequireFromString(freeMin))
	}
	mustCreate(t, conn, &a)
	return a
}

func SeedSlot(t testing.TB, conn *gorm.DB, maxOrders int) models.DeliverySlot {
	t.Helper()
	s := models.DeliverySlot{
		Name:      "Slot " + uuid.NewString()[:8],
		StartTime: "09:00",
		EndTime:   "12:00",
		MaxOrders: maxOrders,
		IsActive:  true,
	}
	mustCreate(t, conn, &s)
	return s
}

// SeedCoupon inserts c as an active coupon, filling a live window and a name
// when unset. Use Deactivate for inactive coupons.
func SeedCoupon(t testing.TB, conn *gorm.DB, c models.Coupon) models.Coupon {
	t.Helper()
	now := time.Now().UTC()
	if c.Code == "" {
		c.Code = "CODE" + uuid.NewString()[:6]
	}
	if c.Name == "" {
		c.Name = c.Code
	}
	if c.DiscountType == "" {
		c.DiscountType = enums.DiscountTypeFixed
	}
	if c.StartsAt.IsZero() {
		c.StartsAt = now.Add(-24 * time.Hour)
	}
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = now.Add(24 * time.Hour)
	}
	c.IsActive = true
	mustCreate(t, conn, &c)
	return c
}

// Deactivate flips is_active off. Create skips false because the column
// carries a true default.
func Deactivate(t testing.TB, conn *gorm.DB, model any, id uuid.UUID) {
	t.Helper()
	if err := conn.Model(model).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate %T: %v", model, err)
	}
}

func mustCreate(t testing.TB, conn *gorm.DB, row any) {
	t.Helper()
	if err := conn.Create(row).Error; err != nil {
		t.Fatalf("seed %T: %v", row, err)
	}
}

// SeedOrder inserts a bare pending order for booking and usage counts.
func SeedOrder(t testing.TB, conn *gorm.DB, opts ...func(*models.Order)) models.Order {
	t.Helper()
	now := time.Now().UTC()
	o := models.Order{
		OrderNumber:     "TEST-" + strings.ToUpper(uuid.NewString()[:8]),
		CustomerName:    "Test Customer",
		CustomerPhone:   "01700000000",
		ShippingAddress: "House 1, Road 2, Dhaka",
		DeliveryDate:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Subtotal:        decimal.Zero,
		Total:           decimal.Zero,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
	}
	for _, opt := range opts {
		opt(&o)
	}
	mustCreate(t, conn, &o)
	return o
}
