package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusPaid       = "paid"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

// ValidStatus reports whether s is one of the enumerated order statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPaid, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Address is the shipping contact captured from the payment processor's
// customer details at order creation.
type Address struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order represents an order entity in the database. One row is created per
// successful payment, by the webhook handler, and mutated afterwards only by
// admin status transitions.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	OrderNumber     string          `json:"order_number"` // 6-char human-referenceable code
	Status          string          `json:"status"`
	ProductIDs      []int64         `json:"product_ids"`
	Amount          decimal.Decimal `json:"amount"` // total charged
	Shipping        decimal.Decimal `json:"shipping"`
	Address         Address         `json:"address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewOrder carries everything the webhook knows when it persists an order.
type NewOrder struct {
	UserID          int64
	PaymentIntentID string
	ProductIDs      []int64
	Amount          decimal.Decimal
	Shipping        decimal.Decimal
	Address         Address
}

// MonthlyIncome is one bucket of the admin income aggregate.
type MonthlyIncome struct {
	Month  string          `json:"month"` // YYYY-MM
	Income decimal.Decimal `json:"income"`
	Orders int64           `json:"orders"`
}
