// Package catalog resolves live product and variant prices for the cart and
// checkout paths. Products are maintained elsewhere; this package only reads.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/pricing"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

// ProductReader loads catalog rows in bulk.
type ProductReader interface {
	WithTx(tx *gorm.DB) ProductReader
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindVariants(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariant, error)
}

// ItemKey identifies a purchasable: a product, optionally narrowed to a
// variant. A zero VariantID means the base product. It is comparable so it can
// key maps.
type ItemKey struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

func NewItemKey(productID uuid.UUID, variantID *uuid.UUID) ItemKey {
	key := ItemKey{ProductID: productID}
	if variantID != nil {
		key.VariantID = *variantID
	}
	return key
}

// Variant returns the variant ID, or nil for the base product.
func (k ItemKey) Variant() *uuid.UUID {
	if k.VariantID == uuid.Nil {
		return nil
	}
	id := k.VariantID
	return &id
}

// Offer is the live, purchasable view of an ItemKey.
type Offer struct {
	Product   models.Product
	Variant   *models.ProductVariant
	UnitPrice decimal.Decimal
}

// Name is the product name, or "product - variant".
func (o Offer) Name() string {
	if o.Variant == nil {
		return o.Product.Name
	}
	return o.Product.Name + " - " + o.Variant.Name
}

// Service answers "can this be bought, and at what price".
type Service interface {
	// Offer returns PRODUCT_UNAVAILABLE when the product or variant is missing or inactive.
	Offer(ctx context.Context, tx *gorm.DB, key ItemKey) (Offer, error)
	// Offers resolves many keys at once; unavailable keys are absent from the map.
	Offers(ctx context.Context, tx *gorm.DB, keys []ItemKey) (map[ItemKey]Offer, error)
}

type service struct {
	repo ProductReader
}

func NewService(repo ProductReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Offer(ctx context.Context, tx *gorm.DB, key ItemKey) (Offer, error) {
	offers, err := s.Offers(ctx, tx, []ItemKey{key})
	if err != nil {
		return Offer{}, err
	}
	offer, ok := offers[key]
	if !ok {
		details := map[string]any{"product_id": key.ProductID.String()}
		if variantID := key.Variant(); variantID != nil {
			details["variant_id"] = variantID.String()
		}
		return Offer{}, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is not available").WithDetails(details)
	}
	return offer, nil
}

func (s *service) Offers(ctx context.Context, tx *gorm.DB, keys []ItemKey) (map[ItemKey]Offer, error) {
	repo := s.repo.WithTx(tx)
	productIDs := make([]uuid.UUID, 0, len(keys))
	variantIDs := make([]uuid.UUID, 0)
	for _, key := range keys {
		productIDs = append(productIDs, key.ProductID)
		if variantID := key.Variant(); variantID != nil {
			variantIDs = append(variantIDs, *variantID)
		}
	}

	products, err := repo.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	variants, err := repo.FindVariants(ctx, variantIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variants")
	}

	productByID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	variantByID := make(map[uuid.UUID]models.ProductVariant, len(variants))
	for _, v := range variants {
		variantByID[v.ID] = v
	}

	out := make(map[ItemKey]Offer, len(keys))
	for _, key := range keys {
		product, ok := productByID[key.ProductID]
		if !ok || product.Status != enums.ProductStatusActive {
			continue
		}
		offer := Offer{Product: product, UnitPrice: pricing.Money(product.SalePrice)}
		if variantID := key.Variant(); variantID != nil {
			variant, ok := variantByID[*variantID]
			if !ok || !variant.IsActive || variant.ProductID != product.ID {
				continue
			}
			offer.Variant = &variant
			offer.UnitPrice = pricing.Money(product.SalePrice.Add(variant.AdditionalPrice))
		}
		out[key] = offer
	}
	return out, nil
}
