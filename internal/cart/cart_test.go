package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func redShirtM(qty int) LineItem {
	return LineItem{
		ProductID:  7,
		Attributes: map[string]string{"color": "red", "size": "M"},
		Quantity:   qty,
		UnitPrice:  price("20.00"),
		Title:      "Shirt",
	}
}

func TestDeriveVariantKey(t *testing.T) {
	// Attribute names are sorted before joining, so insertion order never
	// changes the identity.
	key := DeriveVariantKey(map[string]string{"size": "M", "color": "red"})
	assert.Equal(t, "red-M", key)

	assert.Equal(t, "", DeriveVariantKey(nil))
	assert.Equal(t, "", DeriveVariantKey(map[string]string{}))
}

func TestAddMergesSameVariant(t *testing.T) {
	s := NewState()

	op := s.Add(redShirtM(2))
	assert.Equal(t, OpAdded, op)

	op = s.Add(redShirtM(1))
	assert.Equal(t, OpMerged, op)

	require.Len(t, s.Items, 1)
	assert.Equal(t, 3, s.Items[0].Quantity)
	assert.Equal(t, 1, s.LineCount)
	assert.True(t, s.RunningTotal.Equal(price("60.00")), "got %s", s.RunningTotal)
}

func TestAddDistinctVariantIsNewLine(t *testing.T) {
	s := NewState()
	s.Add(redShirtM(2))
	s.Add(redShirtM(1))

	blue := redShirtM(1)
	blue.Attributes = map[string]string{"color": "blue", "size": "M"}
	op := s.Add(blue)
	assert.Equal(t, OpAdded, op)

	assert.Equal(t, 2, s.LineCount)
	assert.True(t, s.RunningTotal.Equal(price("80.00")), "got %s", s.RunningTotal)
}

func TestAddInvalidInputIsNoOp(t *testing.T) {
	s := NewState()

	zeroQty := redShirtM(0)
	assert.Equal(t, OpNone, s.Add(zeroQty))

	free := redShirtM(1)
	free.UnitPrice = decimal.Zero
	assert.Equal(t, OpNone, s.Add(free))

	assert.Empty(t, s.Items)
	assert.Equal(t, 0, s.LineCount)
	assert.True(t, s.RunningTotal.IsZero())
}

func TestEffectivePrice(t *testing.T) {
	li := redShirtM(1)
	assert.True(t, li.EffectivePrice().Equal(price("20.00")))

	li.DiscountPrice = decimal.NullDecimal{Decimal: price("15.00"), Valid: true}
	assert.True(t, li.EffectivePrice().Equal(price("15.00")))

	// A "discount" at or above the list price does not take effect.
	li.DiscountPrice = decimal.NullDecimal{Decimal: price("25.00"), Valid: true}
	assert.True(t, li.EffectivePrice().Equal(price("20.00")))
}

func TestDiscountDrivesTotals(t *testing.T) {
	s := NewState()
	li := redShirtM(2)
	li.DiscountPrice = decimal.NullDecimal{Decimal: price("15.00"), Valid: true}
	s.Add(li)

	assert.True(t, s.RunningTotal.Equal(price("30.00")), "got %s", s.RunningTotal)

	s.Increase(7, "red-M")
	assert.True(t, s.RunningTotal.Equal(price("45.00")), "got %s", s.RunningTotal)
}

func TestIncreaseUnknownLineIsNoOp(t *testing.T) {
	s := NewState()
	s.Add(redShirtM(1))

	assert.Equal(t, OpNone, s.Increase(99, "red-M"))
	assert.Equal(t, OpNone, s.Increase(7, "blue-M"))
	assert.Equal(t, 1, s.Items[0].Quantity)
}

func TestDecreaseNeverGoesBelowOne(t *testing.T) {
	s := NewState()
	s.Add(redShirtM(2))

	assert.Equal(t, OpDecreased, s.Decrease(7, "red-M"))
	assert.Equal(t, 1, s.Items[0].Quantity)
	assert.True(t, s.RunningTotal.Equal(price("20.00")))

	// Quantity 1 is the floor; dropping the line is Remove's job.
	assert.Equal(t, OpNone, s.Decrease(7, "red-M"))
	assert.Equal(t, 1, s.Items[0].Quantity)
	assert.Equal(t, 1, s.LineCount)
}

func TestRemoveThenReAdd(t *testing.T) {
	s := NewState()
	s.Add(redShirtM(3))

	assert.Equal(t, OpRemoved, s.Remove(7, "red-M"))
	assert.Equal(t, 0, s.LineCount)
	assert.True(t, s.RunningTotal.IsZero())

	s.Add(redShirtM(3))
	assert.Equal(t, 1, s.LineCount)
	assert.Equal(t, 3, s.Items[0].Quantity)
	assert.True(t, s.RunningTotal.Equal(price("60.00")))
}

func TestClear(t *testing.T) {
	s := NewState()
	s.Add(redShirtM(2))
	blue := redShirtM(1)
	blue.Attributes = map[string]string{"color": "blue", "size": "M"}
	s.Add(blue)

	assert.Equal(t, OpCleared, s.Clear())
	assert.Empty(t, s.Items)
	assert.Equal(t, 0, s.LineCount)
	assert.True(t, s.RunningTotal.IsZero())
}

// The running total is maintained incrementally; it must equal the
// recomputed sum after every single transition.
func TestRunningTotalInvariant(t *testing.T) {
	s := NewState()

	check := func() {
		t.Helper()
		assert.True(t, s.RunningTotal.Equal(s.ComputedTotal()),
			"running total %s drifted from computed %s", s.RunningTotal, s.ComputedTotal())
		assert.Equal(t, len(s.Items), s.LineCount)
	}

	discounted := LineItem{
		ProductID:     9,
		Attributes:    map[string]string{"size": "L"},
		Quantity:      1,
		UnitPrice:     price("49.99"),
		DiscountPrice: decimal.NullDecimal{Decimal: price("39.99"), Valid: true},
		Title:         "Hoodie",
	}

	s.Add(redShirtM(2))
	check()
	s.Add(discounted)
	check()
	s.Add(redShirtM(1))
	check()
	s.Increase(9, "L")
	check()
	s.Decrease(7, "red-M")
	check()
	s.Decrease(9, "L")
	check()
	s.Remove(7, "red-M")
	check()
	s.Increase(9, "L")
	check()
	s.Remove(9, "L")
	check()
	s.Clear()
	check()
}
