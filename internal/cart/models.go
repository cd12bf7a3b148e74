package cart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one distinct (product, variant) entry in a cart. Two additions
// of the same product with the same selected attributes merge into one line.
type LineItem struct {
	ProductID     int64               `json:"product_id"`
	VariantKey    string              `json:"variant_key"`
	Attributes    map[string]string   `json:"attributes,omitempty"`
	Quantity      int                 `json:"quantity"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	Title         string              `json:"title"`
	Image         string              `json:"image,omitempty"`
}

// EffectivePrice is the price used for all total computations: the discount
// price when it is set and actually lower than the list price.
func (li LineItem) EffectivePrice() decimal.Decimal {
	if li.DiscountPrice.Valid && li.DiscountPrice.Decimal.LessThan(li.UnitPrice) {
		return li.DiscountPrice.Decimal
	}
	return li.UnitPrice
}

// Key is the cart-wide identity of the line.
func (li LineItem) Key() string {
	return fmt.Sprintf("%d:%s", li.ProductID, li.VariantKey)
}

// DeriveVariantKey joins the selected attribute values after sorting the
// attribute names, so {color:red,size:M} and {size:M,color:red} produce the
// same key.
func DeriveVariantKey(attributes map[string]string) string {
	if len(attributes) == 0 {
		return ""
	}
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]string, 0, len(names))
	for _, name := range names {
		values = append(values, attributes[name])
	}
	return strings.Join(values, "-")
}

// State is the full cart: the set of lines, the number of distinct lines and
// the running total. The total is maintained incrementally by every
// transition and is always equal to the sum of effective price × quantity
// over the lines.
type State struct {
	Items        []LineItem      `json:"items"`
	LineCount    int             `json:"line_count"`
	RunningTotal decimal.Decimal `json:"running_total"`
}

func NewState() State {
	return State{RunningTotal: decimal.Zero}
}

// ComputedTotal recomputes the total from scratch. The reducer never uses
// this; it exists so callers and tests can check the incremental total.
func (s State) ComputedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.Items {
		total = total.Add(li.EffectivePrice().Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	return total
}

// Clone returns a deep copy so a mutation can be attempted and discarded.
func (s State) Clone() State {
	out := State{LineCount: s.LineCount, RunningTotal: s.RunningTotal}
	out.Items = make([]LineItem, len(s.Items))
	copy(out.Items, s.Items)
	for i, li := range out.Items {
		if li.Attributes != nil {
			attrs := make(map[string]string, len(li.Attributes))
			for k, v := range li.Attributes {
				attrs[k] = v
			}
			out.Items[i].Attributes = attrs
		}
	}
	return out
}
