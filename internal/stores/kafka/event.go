package kafka

import "time"

const (
	TopicOrderPaid = `orders.order-paid`
	ConsumerGroup  = `storefront-stock-settlement`
)

// OrderPaidEvent is published once per product line when the webhook
// confirms a payment. The stock consumer settles the counter from it.
type OrderPaidEvent struct {
	OrderNumber string    `json:"order_number"`
	ProductID   int64     `json:"product_id"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}
