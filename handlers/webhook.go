package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"storefront-api/internal/checkout"
	"storefront-api/internal/orders"
	"storefront-api/internal/stores/kafka"
	"storefront-api/pkg/ctxmanage"
	"storefront-api/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Webhook is the only place an order is created. Stripe may deliver the
// same event several times; the lookup plus the unique index on the payment
// intent id guarantee at most one order per payment.
func (h *Handler) Webhook(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	const MaxBodyBytes = int64(65536)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("failed to read webhook body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.cfg.WebhookSecret)
	if err != nil {
		slog.Error("webhook signature verification failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	if event.Type != "checkout.session.completed" {
		slog.Info("unhandled event type", slog.String(logkey.TraceID, traceId), slog.String("event_type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"message": "Event type not handled", "event": event.Type})
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		slog.Error("failed to unmarshal checkout session", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
		return
	}
	if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
		slog.Error("event carries no payment intent", slog.String(logkey.TraceID, traceId), slog.String("session_id", session.ID))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing payment intent"})
		return
	}
	paymentIntentID := session.PaymentIntent.ID

	ctx := c.Request.Context()
	if existing, err := h.o.GetByPaymentIntentID(ctx, paymentIntentID); err == nil {
		slog.Info("event already processed", slog.String(logkey.TraceID, traceId),
			slog.String("payment_intent", paymentIntentID), slog.String("order_number", existing.OrderNumber))
		c.JSON(http.StatusOK, gin.H{"message": "already processed"})
		return
	} else if !errors.Is(err, orders.ErrNotFound) {
		slog.Error("idempotency lookup failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	metadata, err := checkout.ParseSessionMetadata(session.Metadata)
	if err != nil {
		slog.Error("failed to parse session metadata", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed session metadata"})
		return
	}

	order, err := h.o.Create(ctx, orders.NewOrder{
		UserID:          metadata.UserID,
		PaymentIntentID: paymentIntentID,
		ProductIDs:      metadata.ProductIDs,
		Amount:          decimal.NewFromInt(session.AmountTotal).Div(decimal.NewFromInt(100)),
		Shipping:        metadata.ShippingCost,
		Address:         addressFromSession(&session),
	})
	if err != nil {
		if errors.Is(err, orders.ErrDuplicatePaymentIntent) {
			// Lost the race against a concurrent delivery of the same event.
			slog.Info("event already processed", slog.String(logkey.TraceID, traceId), slog.String("payment_intent", paymentIntentID))
			c.JSON(http.StatusOK, gin.H{"message": "already processed"})
			return
		}
		slog.Error("failed to create order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "order creation failed"})
		return
	}

	slog.Info("order created", slog.String(logkey.TraceID, traceId),
		slog.String("order_number", order.OrderNumber), slog.String("payment_intent", paymentIntentID))

	h.publishOrderPaid(order, metadata)
	h.sendConfirmation(order, &session, traceId)

	c.JSON(http.StatusOK, gin.H{"message": "received"})
}

// publishOrderPaid fans out one stock-settlement event per product line.
// Fire and forget: the payment already happened, a publish failure only
// delays the counter.
func (h *Handler) publishOrderPaid(order orders.Order, metadata checkout.SessionMetadata) {
	if h.k == nil {
		return
	}
	go func() {
		for i, productID := range metadata.ProductIDs {
			jsonData, err := json.Marshal(kafka.OrderPaidEvent{
				OrderNumber: order.OrderNumber,
				ProductID:   productID,
				Quantity:    metadata.Quantities[i],
				CreatedAt:   time.Now().UTC(),
			})
			if err != nil {
				slog.Error("failed to marshal order paid event", slog.String(logkey.ERROR, err.Error()))
				return
			}
			if err := h.k.ProduceMessage(kafka.TopicOrderPaid, []byte(order.OrderNumber), jsonData); err != nil {
				slog.Error("failed to produce order paid event", slog.String(logkey.ERROR, err.Error()))
				return
			}
		}
	}()
}

// sendConfirmation is best-effort: a mail failure never rolls back the
// order and never fails the webhook response.
func (h *Handler) sendConfirmation(order orders.Order, session *stripe.CheckoutSession, traceId string) {
	if h.mailer == nil {
		return
	}
	to := order.Address.Email
	if to == "" && session.CustomerDetails != nil {
		to = session.CustomerDetails.Email
	}
	if err := h.mailer.SendOrderConfirmation(to, order.OrderNumber, order.Amount); err != nil {
		slog.Error("failed to send confirmation email", slog.String(logkey.TraceID, traceId),
			slog.String("order_number", order.OrderNumber), slog.String(logkey.ERROR, err.Error()))
	}
}

func addressFromSession(session *stripe.CheckoutSession) orders.Address {
	var addr orders.Address
	details := session.CustomerDetails
	if details == nil {
		return addr
	}
	addr.Name = details.Name
	addr.Email = details.Email
	addr.Phone = details.Phone
	if details.Address != nil {
		addr.Line1 = details.Address.Line1
		addr.Line2 = details.Address.Line2
		addr.City = details.Address.City
		addr.State = details.Address.State
		addr.PostalCode = details.Address.PostalCode
		addr.Country = details.Address.Country
	}
	return addr
}
