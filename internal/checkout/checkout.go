// Package checkout translates a cart snapshot into a Stripe checkout
// session request and parses the metadata that comes back on the webhook.
package checkout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// ErrInvalidItem rejects the whole request when any line has a non-positive
// price or quantity or no title. Nothing is sent to Stripe in that case.
var ErrInvalidItem = errors.New("invalid checkout item")

var (
	// FreeShippingThreshold is the product total above which shipping is
	// free.
	FreeShippingThreshold = decimal.NewFromInt(100)
	// ShippingFee is the flat fee charged below the threshold.
	ShippingFee = decimal.RequireFromString("9.99")
)

// Item is one cart line as submitted for checkout. ID is the cart line
// identity ("productID:variantKey") and is round-tripped through Stripe
// metadata so the webhook can reconstruct the order contents.
type Item struct {
	ID        string
	Title     string
	Image     string
	UnitPrice decimal.Decimal // effective price per unit
	Quantity  int
}

// Metadata keys attached to the session. They are the only channel the
// asynchronous webhook has to rebuild the order, so the set must stay
// complete and parseable.
const (
	metaCartItemIDs  = "cart_item_ids"
	metaQuantities   = "quantities"
	metaUserID       = "user_id"
	metaProductTotal = "product_total"
	metaShippingCost = "shipping_cost"
)

// ShippingFor returns the shipping cost for a given product total.
func ShippingFor(productTotal decimal.Decimal) decimal.Decimal {
	if productTotal.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return ShippingFee
}

// Totals is what the server computed for the session, independent of
// anything the client claimed.
type Totals struct {
	ProductTotal decimal.Decimal
	Shipping     decimal.Decimal
	GrandTotal   decimal.Decimal
}

// BuildSessionParams validates the submitted lines, recomputes the totals
// server-side and assembles the Stripe session request: one price line per
// cart item, plus a separate shipping line only when the fee is non-zero.
func BuildSessionParams(items []Item, userID int64, customerEmail, successURL, cancelURL string) (*stripe.CheckoutSessionParams, Totals, error) {
	if len(items) == 0 {
		return nil, Totals{}, fmt.Errorf("%w: empty cart", ErrInvalidItem)
	}
	if customerEmail == "" {
		return nil, Totals{}, fmt.Errorf("%w: missing customer email", ErrInvalidItem)
	}

	productTotal := decimal.Zero
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items)+1)
	itemIDs := make([]string, 0, len(items))
	quantities := make([]string, 0, len(items))

	for _, item := range items {
		if item.Quantity <= 0 || !item.UnitPrice.IsPositive() || item.Title == "" {
			return nil, Totals{}, fmt.Errorf("%w: %q", ErrInvalidItem, item.ID)
		}
		productTotal = productTotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		itemIDs = append(itemIDs, item.ID)
		quantities = append(quantities, strconv.Itoa(item.Quantity))

		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Title),
		}
		if item.Image != "" {
			productData.Images = []*string{stripe.String(item.Image)}
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(minorUnits(item.UnitPrice)),
				ProductData: productData,
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	shipping := ShippingFor(productTotal)
	if shipping.IsPositive() {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(minorUnits(shipping)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Shipping"),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	totals := Totals{
		ProductTotal: productTotal,
		Shipping:     shipping,
		GrandTotal:   productTotal.Add(shipping),
	}

	params := &stripe.CheckoutSessionParams{
		SubmitType:    stripe.String("pay"),
		CustomerEmail: stripe.String(customerEmail),
		LineItems:     lineItems,
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(successURL),
		CancelURL:     stripe.String(cancelURL),
	}
	// Metadata sits on the embedded stripe.Params and is the only channel
	// the webhook has to rebuild the order later.
	params.Metadata = map[string]string{
		metaCartItemIDs:  strings.Join(itemIDs, ","),
		metaQuantities:   strings.Join(quantities, ","),
		metaUserID:       strconv.FormatInt(userID, 10),
		metaProductTotal: productTotal.String(),
		metaShippingCost: shipping.String(),
	}
	return params, totals, nil
}

// CreateSession sends the request to Stripe and returns the redirect URL the
// shopper's browser should be sent to.
func CreateSession(params *stripe.CheckoutSessionParams) (string, error) {
	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("creating stripe checkout session: %w", err)
	}
	return s.URL, nil
}

// SessionMetadata is the round-tripped order context parsed back out of the
// webhook event.
type SessionMetadata struct {
	CartItemIDs  []string
	ProductIDs   []int64
	Quantities   []int
	UserID       int64
	ProductTotal decimal.Decimal
	ShippingCost decimal.Decimal
}

// ParseSessionMetadata decodes the metadata map carried by the completed
// session event. Product ids are coerced from the string cart-line ids once,
// here at the boundary.
func ParseSessionMetadata(md map[string]string) (SessionMetadata, error) {
	out := SessionMetadata{}

	rawIDs := md[metaCartItemIDs]
	if rawIDs == "" {
		return SessionMetadata{}, fmt.Errorf("metadata missing %s", metaCartItemIDs)
	}
	for _, itemID := range strings.Split(rawIDs, ",") {
		out.CartItemIDs = append(out.CartItemIDs, itemID)
		idPart, _, _ := strings.Cut(itemID, ":")
		productID, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			return SessionMetadata{}, fmt.Errorf("bad cart item id %q: %w", itemID, err)
		}
		out.ProductIDs = append(out.ProductIDs, productID)
	}

	if raw := md[metaQuantities]; raw == "" {
		// Older sessions carried no quantities; settle one unit per line.
		out.Quantities = make([]int, len(out.ProductIDs))
		for i := range out.Quantities {
			out.Quantities[i] = 1
		}
	} else {
		for _, part := range strings.Split(raw, ",") {
			quantity, err := strconv.Atoi(part)
			if err != nil || quantity < 1 {
				quantity = 1
			}
			out.Quantities = append(out.Quantities, quantity)
		}
		if len(out.Quantities) != len(out.ProductIDs) {
			return SessionMetadata{}, fmt.Errorf("metadata quantities do not match cart item ids")
		}
	}

	userID, err := strconv.ParseInt(md[metaUserID], 10, 64)
	if err != nil {
		return SessionMetadata{}, fmt.Errorf("bad user id %q: %w", md[metaUserID], err)
	}
	out.UserID = userID

	out.ProductTotal, err = decimal.NewFromString(md[metaProductTotal])
	if err != nil {
		return SessionMetadata{}, fmt.Errorf("bad product total %q: %w", md[metaProductTotal], err)
	}
	out.ShippingCost, err = decimal.NewFromString(md[metaShippingCost])
	if err != nil {
		return SessionMetadata{}, fmt.Errorf("bad shipping cost %q: %w", md[metaShippingCost], err)
	}
	return out, nil
}

func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
