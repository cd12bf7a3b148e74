package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"storefront-api/internal/checkout"
	"storefront-api/pkg/ctxmanage"
	"storefront-api/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
)

type checkoutRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Checkout turns the shopper's current cart into a Stripe checkout session
// and returns the redirect URL. No order is created here; that happens only
// when the webhook confirms the payment.
func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, err := claimsOfRequest(c)
	if err != nil {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusUnauthorized})
		return
	}

	var request checkoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "A valid email is required"})
		return
	}

	state, err := h.cart.Get(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to fetch cart items", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart items"})
		return
	}
	if state.LineCount == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	items := make([]checkout.Item, 0, len(state.Items))
	for _, li := range state.Items {
		items = append(items, checkout.Item{
			ID:        li.Key(),
			Title:     li.Title,
			Image:     li.Image,
			UnitPrice: li.EffectivePrice(),
			Quantity:  li.Quantity,
		})
	}

	params, totals, err := checkout.BuildSessionParams(items, userID, request.Email, h.cfg.SuccessURL, h.cfg.CancelURL)
	if err != nil {
		if errors.Is(err, checkout.ErrInvalidItem) {
			slog.Error("invalid checkout item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid product in cart"})
			return
		}
		slog.Error("failed to build session params", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare checkout"})
		return
	}

	sKey := os.Getenv("STRIPE_TEST_KEY")
	if sKey == "" {
		slog.Error("Stripe secret key not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Stripe secret key not found"})
		return
	}
	stripe.Key = sKey

	url, err := checkout.CreateSession(params)
	if err != nil {
		slog.Error("error creating Stripe checkout session", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Stripe checkout session"})
		return
	}

	slog.Info("checkout session created", slog.String(logkey.TraceID, traceId),
		slog.Int64("UserID", userID), slog.String("GrandTotal", totals.GrandTotal.String()))
	c.JSON(http.StatusOK, gin.H{"checkout_session_url": url})
}
