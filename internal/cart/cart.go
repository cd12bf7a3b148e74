package cart

import "github.com/shopspring/decimal"

// Op tells the caller what a transition actually did, so side effects such
// as notifications and persistence can react without the reducer knowing
// about them.
type Op int

const (
	OpNone Op = iota
	OpAdded
	OpMerged
	OpIncreased
	OpDecreased
	OpRemoved
	OpCleared
)

// Add merges the item into an existing line with the same
// (product, variant) identity, or appends a new line. Invalid input
// (quantity < 1 or non-positive price) is a no-op. The transition keeps the
// running total in step with the change; LineCount moves only when a new
// line appears.
func (s *State) Add(item LineItem) Op {
	if item.Quantity < 1 || !item.UnitPrice.IsPositive() {
		return OpNone
	}
	if item.VariantKey == "" {
		item.VariantKey = DeriveVariantKey(item.Attributes)
	}

	delta := item.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity)))
	for i := range s.Items {
		if s.Items[i].ProductID == item.ProductID && s.Items[i].VariantKey == item.VariantKey {
			s.Items[i].Quantity += item.Quantity
			s.RunningTotal = s.RunningTotal.Add(s.Items[i].EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
			return OpMerged
		}
	}

	s.Items = append(s.Items, item)
	s.LineCount++
	s.RunningTotal = s.RunningTotal.Add(delta)
	return OpAdded
}

// Increase bumps the quantity of an existing line by one. No-op when the
// line is not present.
func (s *State) Increase(productID int64, variantKey string) Op {
	for i := range s.Items {
		if s.Items[i].ProductID == productID && s.Items[i].VariantKey == variantKey {
			s.Items[i].Quantity++
			s.RunningTotal = s.RunningTotal.Add(s.Items[i].EffectivePrice())
			return OpIncreased
		}
	}
	return OpNone
}

// Decrease lowers the quantity of an existing line by one, never below 1.
// Dropping a line entirely is Remove's job.
func (s *State) Decrease(productID int64, variantKey string) Op {
	for i := range s.Items {
		if s.Items[i].ProductID == productID && s.Items[i].VariantKey == variantKey {
			if s.Items[i].Quantity <= 1 {
				return OpNone
			}
			s.Items[i].Quantity--
			s.RunningTotal = s.RunningTotal.Sub(s.Items[i].EffectivePrice())
			return OpDecreased
		}
	}
	return OpNone
}

// Remove deletes the whole line regardless of quantity.
func (s *State) Remove(productID int64, variantKey string) Op {
	for i := range s.Items {
		if s.Items[i].ProductID == productID && s.Items[i].VariantKey == variantKey {
			li := s.Items[i]
			s.RunningTotal = s.RunningTotal.Sub(li.EffectivePrice().Mul(decimal.NewFromInt(int64(li.Quantity))))
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			s.LineCount--
			return OpRemoved
		}
	}
	return OpNone
}

// Clear resets the cart to the empty state.
func (s *State) Clear() Op {
	*s = NewState()
	return OpCleared
}
