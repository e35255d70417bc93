package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/IstiakDeveloper/orgreeni/internal/catalog"
	"github.com/IstiakDeveloper/orgreeni/internal/pricing"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
)

type AddItemInput struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

// Line is a surviving cart item with the live offer behind it.
type Line struct {
	Item  models.CartItem
	Offer catalog.Offer
}

// DroppedItem is a line removed because its product or variant is no
// longer available.
type DroppedItem struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// Snapshot is a freshly recalculated cart.
type Snapshot struct {
	Cart    *models.Cart
	Lines   []Line
	Coupon  *models.Coupon
	Area    *models.DeliveryArea
	Totals  pricing.Totals
	Dropped []DroppedItem
}

type ItemView struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// View is the cart as returned to callers. A cart that does not exist yet
// is an empty View with a nil ID.
type View struct {
	ID             *uuid.UUID     `json:"id"`
	Items          []ItemView     `json:"items"`
	ItemCount      int            `json:"item_count"`
	CouponCode     *string        `json:"coupon_code,omitempty"`
	DeliveryAreaID *uuid.UUID     `json:"delivery_area_id,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	Totals         pricing.Totals `json:"totals"`
	Dropped        []DroppedItem  `json:"dropped_items,omitempty"`
}

type ShippingOption struct {
	AreaID                uuid.UUID           `json:"area_id"`
	Name                  string              `json:"name"`
	City                  string              `json:"city"`
	Charge                decimal.Decimal     `json:"charge"`
	MinOrderAmount        decimal.Decimal     `json:"min_order_amount"`
	FreeDeliveryMinAmount decimal.NullDecimal `json:"free_delivery_min_amount"`
	EstimatedMinutes      *int                `json:"estimated_minutes,omitempty"`
	Selected              bool                `json:"selected"`
}

func emptyView() View {
	zero := pricing.Totals{
		Subtotal:       decimal.Zero,
		Discount:       decimal.Zero,
		ShippingCharge: decimal.Zero,
		VAT:            decimal.Zero,
		Total:          decimal.Zero,
	}
	return View{Items: []ItemView{}, Totals: zero}
}

func viewOf(snap *Snapshot) View {
	if snap == nil || snap.Cart == nil {
		return emptyView()
	}
	view := View{
		ID:             &snap.Cart.ID,
		Items:          make([]ItemView, 0, len(snap.Lines)),
		DeliveryAreaID: snap.Cart.DeliveryAreaID,
		Notes:          snap.Cart.Notes,
		Totals:         snap.Totals,
		Dropped:        snap.Dropped,
	}
	for _, line := range snap.Lines {
		sku := line.Offer.Product.SKU
		if line.Offer.Variant != nil {
			sku = line.Offer.Variant.SKU
		}
		view.Items = append(view.Items, ItemView{
			ID:        line.Item.ID,
			ProductID: line.Item.ProductID,
			VariantID: line.Item.VariantID,
			Name:      line.Offer.Name(),
			SKU:       sku,
			Quantity:  line.Item.Quantity,
			UnitPrice: line.Item.UnitPrice,
			Subtotal:  line.Item.Subtotal,
		})
		view.ItemCount += line.Item.Quantity
	}
	if snap.Coupon != nil {
		code := snap.Coupon.Code
		view.CouponCode = &code
	}
	return view
}
