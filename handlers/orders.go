package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"storefront-api/internal/auth"
	"storefront-api/internal/orders"
	"storefront-api/pkg/ctxmanage"
	"storefront-api/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// GetOrder returns a single order. Only the owner or an admin may read it.
func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, userID, err := claimsOfRequest(c)
	if err != nil {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order ID must be numeric"})
		return
	}

	order, err := h.o.GetByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error retrieving order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	if order.UserID != userID && !claims.HasRole(auth.RoleAdmin) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderByPaymentIntent serves the post-redirect receipt page. The order
// may legitimately not exist yet if the webhook has not run; that is a
// normal pending state, not a failure.
func (h *Handler) GetOrderByPaymentIntent(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	paymentIntentID := c.Param("id")
	if paymentIntentID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Payment intent ID is required"})
		return
	}

	order, err := h.o.GetByPaymentIntentID(c.Request.Context(), paymentIntentID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"status": "pending", "order": nil})
			return
		}
		slog.Error("error retrieving order by payment intent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.Status, "order": order})
}

func (h *Handler) ListMyOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, err := claimsOfRequest(c)
	if err != nil {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.o.ListByUser(c.Request.Context(), userID)
	if err != nil {
		slog.Error("error listing orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) ListAllOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.o.ListAll(c.Request.Context())
	if err != nil {
		slog.Error("error listing all orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order ID must be numeric"})
		return
	}

	var request updateStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !orders.ValidStatus(request.Status) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}

	if err := h.o.UpdateStatus(c.Request.Context(), orderID, request.Status); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error updating order status", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated"})
}

func (h *Handler) MonthlyIncome(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	income, err := h.o.MonthlyIncome(c.Request.Context())
	if err != nil {
		slog.Error("error aggregating income", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate income"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"income": income})
}
