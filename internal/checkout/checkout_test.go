package checkout

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestShippingFor(t *testing.T) {
	assert.True(t, ShippingFor(price("120")).IsZero())
	assert.True(t, ShippingFor(price("100.01")).IsZero())
	assert.True(t, ShippingFor(price("100")).Equal(ShippingFee))
	assert.True(t, ShippingFor(price("50")).Equal(ShippingFee))
}

func TestBuildSessionParamsFreeShipping(t *testing.T) {
	items := []Item{
		{ID: "7:red-M", Title: "Shirt", UnitPrice: price("60.00"), Quantity: 2},
	}

	params, totals, err := BuildSessionParams(items, 42, "shopper@example.com", "https://shop.test/success", "https://shop.test/cancel")
	require.NoError(t, err)

	assert.True(t, totals.ProductTotal.Equal(price("120.00")))
	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, totals.GrandTotal.Equal(price("120.00")))

	// No shipping line when the fee is zero.
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, int64(6000), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *params.LineItems[0].Quantity)
}

func TestBuildSessionParamsChargesShipping(t *testing.T) {
	items := []Item{
		{ID: "7:red-M", Title: "Shirt", UnitPrice: price("25.00"), Quantity: 2},
	}

	params, totals, err := BuildSessionParams(items, 42, "shopper@example.com", "https://shop.test/success", "https://shop.test/cancel")
	require.NoError(t, err)

	assert.True(t, totals.ProductTotal.Equal(price("50.00")))
	assert.True(t, totals.Shipping.Equal(price("9.99")))
	assert.True(t, totals.GrandTotal.Equal(price("59.99")))

	require.Len(t, params.LineItems, 2)
	shippingLine := params.LineItems[1]
	assert.Equal(t, "Shipping", *shippingLine.PriceData.ProductData.Name)
	assert.Equal(t, int64(999), *shippingLine.PriceData.UnitAmount)
	assert.Equal(t, int64(1), *shippingLine.Quantity)
}

func TestBuildSessionParamsRejectsBadItems(t *testing.T) {
	valid := Item{ID: "7:red-M", Title: "Shirt", UnitPrice: price("20.00"), Quantity: 1}

	cases := map[string]Item{
		"zero quantity":  {ID: "8:", Title: "Hat", UnitPrice: price("10.00"), Quantity: 0},
		"zero price":     {ID: "8:", Title: "Hat", UnitPrice: decimal.Zero, Quantity: 1},
		"negative price": {ID: "8:", Title: "Hat", UnitPrice: price("-1.00"), Quantity: 1},
		"missing title":  {ID: "8:", UnitPrice: price("10.00"), Quantity: 1},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := BuildSessionParams([]Item{valid, bad}, 42, "shopper@example.com", "s", "c")
			assert.ErrorIs(t, err, ErrInvalidItem)
		})
	}

	_, _, err := BuildSessionParams(nil, 42, "shopper@example.com", "s", "c")
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, _, err = BuildSessionParams([]Item{valid}, 42, "", "s", "c")
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestSessionMetadataRoundTrip(t *testing.T) {
	items := []Item{
		{ID: "7:red-M", Title: "Shirt", UnitPrice: price("20.00"), Quantity: 2},
		{ID: "9:L", Title: "Hoodie", UnitPrice: price("39.99"), Quantity: 1},
	}

	params, totals, err := BuildSessionParams(items, 42, "shopper@example.com", "s", "c")
	require.NoError(t, err)

	md, err := ParseSessionMetadata(params.Metadata)
	require.NoError(t, err)

	assert.Equal(t, []string{"7:red-M", "9:L"}, md.CartItemIDs)
	assert.Equal(t, []int64{7, 9}, md.ProductIDs)
	assert.Equal(t, []int{2, 1}, md.Quantities)
	assert.Equal(t, int64(42), md.UserID)
	assert.True(t, md.ProductTotal.Equal(totals.ProductTotal))
	assert.True(t, md.ShippingCost.Equal(totals.Shipping))
}

func TestParseSessionMetadataDefaultsQuantities(t *testing.T) {
	md, err := ParseSessionMetadata(map[string]string{
		"cart_item_ids": "7:red-M,9:L",
		"user_id":       "42",
		"product_total": "79.99",
		"shipping_cost": "9.99",
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, md.Quantities)
}

func TestParseSessionMetadataRejectsGarbage(t *testing.T) {
	base := map[string]string{
		"cart_item_ids": "7:red-M",
		"quantities":    "2",
		"user_id":       "42",
		"product_total": "40.00",
		"shipping_cost": "9.99",
	}
	corrupt := func(key, value string) map[string]string {
		out := map[string]string{}
		for k, v := range base {
			out[k] = v
		}
		out[key] = value
		return out
	}

	_, err := ParseSessionMetadata(corrupt("cart_item_ids", ""))
	assert.Error(t, err)

	_, err = ParseSessionMetadata(corrupt("cart_item_ids", "abc:red-M"))
	assert.Error(t, err)

	_, err = ParseSessionMetadata(corrupt("quantities", "2,3"))
	assert.Error(t, err, "quantity count must match line count")

	_, err = ParseSessionMetadata(corrupt("user_id", "nope"))
	assert.Error(t, err)

	_, err = ParseSessionMetadata(corrupt("product_total", "lots"))
	assert.Error(t, err)

	_, err = ParseSessionMetadata(corrupt("shipping_cost", "little"))
	assert.Error(t, err)
}

func TestMinorUnitsRounding(t *testing.T) {
	assert.Equal(t, int64(999), minorUnits(price("9.99")))
	assert.Equal(t, int64(1000), minorUnits(price("9.995")))
	assert.Equal(t, int64(2000), minorUnits(price("20")))
}

func TestMetadataStaysWithinStripeLimit(t *testing.T) {
	items := []Item{
		{ID: "7:red-M", Title: "Shirt", UnitPrice: price("20.00"), Quantity: 2},
	}
	params, _, err := BuildSessionParams(items, 42, "shopper@example.com", "s", "c")
	require.NoError(t, err)

	// Stripe caps metadata values at 500 characters.
	for key, value := range params.Metadata {
		assert.LessOrEqual(t, len(value), 500, "metadata %s too long", key)
		assert.False(t, strings.Contains(key, " "))
	}
}
