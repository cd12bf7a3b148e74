package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"storefront-api/internal/cart"
	"storefront-api/internal/products"
	"storefront-api/pkg/ctxmanage"
	"storefront-api/pkg/logkey"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID  int64             `json:"product_id" validate:"required"`
	Attributes map[string]string `json:"attributes"`
	Quantity   int               `json:"quantity" validate:"required,min=1"`
}

type cartLineRequest struct {
	ProductID  int64  `json:"product_id" validate:"required"`
	VariantKey string `json:"variant_key"`
}

// AddToCart resolves the product server-side (price and title are never
// trusted from the client) and feeds the line into the cart store.
func (h *Handler) AddToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, err := claimsOfRequest(c)
	if err != nil {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request addToCartRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		slog.Error("invalid product ID or quantity", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Product ID and quantity must be valid"})
		return
	}

	product, err := h.p.GetProductByID(c.Request.Context(), request.ProductID)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		slog.Error("error fetching product details", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch product details"})
		return
	}

	if request.Quantity > product.Stock {
		slog.Error("insufficient stock", slog.String(logkey.TraceID, traceId),
			slog.Int64("ProductID", request.ProductID), slog.Int("Requested", request.Quantity), slog.Int("Available", product.Stock))
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "Insufficient stock available"})
		return
	}

	state, err := h.cart.Add(c.Request.Context(), userID, cart.LineItem{
		ProductID:     product.ID,
		Attributes:    request.Attributes,
		Quantity:      request.Quantity,
		UnitPrice:     product.Price,
		DiscountPrice: product.DiscountPrice,
		Title:         product.Name,
		Image:         product.Image,
	})
	if err != nil {
		slog.Error("error adding product to cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to add product to cart"})
		return
	}

	slog.Info("product added to cart", slog.String(logkey.TraceID, traceId),
		slog.Int64("ProductID", request.ProductID), slog.Int("Quantity", request.Quantity), slog.Int64("UserID", userID))
	c.JSON(http.StatusOK, state)
}

func (h *Handler) GetCartItems(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, err := claimsOfRequest(c)
	if err != nil {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	state, err := h.cart.Get(c.Request.Context(), userID)
	if err != nil {
		slog.Error("error fetching cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch cart items"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) IncreaseCartItem(c *gin.Context) {
	h.mutateCartLine(c, h.cart.Increase)
}

func (h *Handler) DecreaseCartItem(c *gin.Context) {
	h.mutateCartLine(c, h.cart.Decrease)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	h.mutateCartLine(c, h.cart.Remove)
}

func (h *Handler) ClearCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, err := claimsOfRequest(c)
	if err != nil {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	state, err := h.cart.Clear(c.Request.Context(), userID)
	if err != nil {
		slog.Error("error clearing cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, state)
}

type cartMutation func(ctx context.Context, userID, productID int64, variantKey string) (cart.State, error)

func (h *Handler) mutateCartLine(c *gin.Context, fn cartMutation) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, err := claimsOfRequest(c)
	if err != nil {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request cartLineRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Product ID must be valid"})
		return
	}

	state, err := fn(c.Request.Context(), userID, request.ProductID, request.VariantKey)
	if err != nil {
		slog.Error("error mutating cart line", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to update cart"})
		return
	}
	c.JSON(http.StatusOK, state)
}
