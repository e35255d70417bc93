package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/dbtest"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

func TestOfferPricesVariantOnTopOfSalePrice(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	product := dbtest.SeedProduct(t, conn, "120", func(p *models.Product) {
		p.BasePrice = decimal.RequireFromString("150")
	})
	variant := dbtest.SeedVariant(t, conn, product.ID, "15.5", true)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	base, err := svc.Offer(ctx, nil, NewItemKey(product.ID, nil))
	require.NoError(t, err)
	assert.True(t, base.UnitPrice.Equal(decimal.RequireFromString("120")))
	assert.Nil(t, base.Variant)
	assert.Equal(t, product.Name, base.Name())

	withVariant, err := svc.Offer(ctx, nil, NewItemKey(product.ID, &variant.ID))
	require.NoError(t, err)
	assert.True(t, withVariant.UnitPrice.Equal(decimal.RequireFromString("135.5")))
	assert.Equal(t, product.Name+" - "+variant.Name, withVariant.Name())
}

func TestOfferRejectsUnavailableItems(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	inactive := dbtest.SeedProduct(t, conn, "10", func(p *models.Product) { p.Status = enums.ProductStatusInactive })
	active := dbtest.SeedProduct(t, conn, "10")
	other := dbtest.SeedProduct(t, conn, "10")
	offVariant := dbtest.SeedVariant(t, conn, active.ID, "1", false)
	foreignVariant := dbtest.SeedVariant(t, conn, other.ID, "1", true)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	cases := map[string]ItemKey{
		"inactive product": NewItemKey(inactive.ID, nil),
		"missing product":  NewItemKey(uuid.New(), nil),
		"inactive variant": NewItemKey(active.ID, &offVariant.ID),
		"foreign variant":  NewItemKey(active.ID, &foreignVariant.ID),
	}
	for name, key := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Offer(ctx, nil, key)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeProductUnavailable))
		})
	}
}

func TestOffersSkipsUnavailableKeys(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	a := dbtest.SeedProduct(t, conn, "10")
	b := dbtest.SeedProduct(t, conn, "20", func(p *models.Product) { p.Status = enums.ProductStatusDraft })

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	offers, err := svc.Offers(ctx, nil, []ItemKey{NewItemKey(a.ID, nil), NewItemKey(b.ID, nil)})
	require.NoError(t, err)
	assert.Len(t, offers, 1)
	assert.Contains(t, offers, NewItemKey(a.ID, nil))
}
