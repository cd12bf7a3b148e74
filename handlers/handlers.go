package handlers

import (
	"net/http"
	"os"

	"storefront-api/internal/auth"
	"storefront-api/internal/cart"
	"storefront-api/internal/categories"
	"storefront-api/internal/orders"
	"storefront-api/internal/products"
	"storefront-api/internal/users"
	"storefront-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Producer publishes order-paid events for downstream stock settlement.
type Producer interface {
	ProduceMessage(topic string, key, value []byte) error
}

// Mailer sends the best-effort order confirmation.
type Mailer interface {
	SendOrderConfirmation(to, orderNumber string, amount decimal.Decimal) error
}

// Config carries the checkout/webhook settings read at startup.
type Config struct {
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type Handler struct {
	validate *validator.Validate
	u        *users.Conf
	p        *products.Conf
	cat      *categories.Conf
	cart     *cart.Store
	o        orders.Store
	k        Producer
	mailer   Mailer
	keys     *auth.Keys
	cfg      Config
}

func NewHandler(u *users.Conf, p *products.Conf, cat *categories.Conf, cartStore *cart.Store,
	o orders.Store, k Producer, mailer Mailer, keys *auth.Keys, cfg Config) *Handler {
	return &Handler{
		validate: validator.New(),
		u:        u,
		p:        p,
		cat:      cat,
		cart:     cartStore,
		o:        o,
		k:        k,
		mailer:   mailer,
		keys:     keys,
		cfg:      cfg,
	}
}

func API(endpointPrefix string, k *auth.Keys, h *Handler) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	m, err := middleware.NewMid(k)
	if err != nil {
		panic(err)
	}

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", HealthCheck)

	v1 := r.Group(endpointPrefix)
	{
		userGroup := v1.Group("/users")
		userGroup.POST("/signup", h.Signup)
		userGroup.POST("/login", h.Login)
		userGroup.GET("/list", m.Authentication(), m.Authorize(h.ListUsers, auth.RoleAdmin))

		productGroup := v1.Group("/products")
		productGroup.GET("/list", h.ListProducts)
		productGroup.GET("/view/:id", h.GetProduct)
		productGroup.GET("/stock/:id", h.ProductStock)
		productGroup.POST("/create", m.Authentication(), m.Authorize(h.CreateProduct, auth.RoleAdmin))
		productGroup.PUT("/update/:id", m.Authentication(), m.Authorize(h.UpdateProduct, auth.RoleAdmin))
		productGroup.DELETE("/delete/:id", m.Authentication(), m.Authorize(h.DeleteProduct, auth.RoleAdmin))

		categoryGroup := v1.Group("/categories")
		categoryGroup.GET("/list", h.ListCategories)
		categoryGroup.GET("/view/:id", h.GetCategory)
		categoryGroup.POST("/create", m.Authentication(), m.Authorize(h.CreateCategory, auth.RoleAdmin))
		categoryGroup.PUT("/update/:id", m.Authentication(), m.Authorize(h.UpdateCategory, auth.RoleAdmin))
		categoryGroup.DELETE("/delete/:id", m.Authentication(), m.Authorize(h.DeleteCategory, auth.RoleAdmin))

		cartGroup := v1.Group("/cart")
		cartGroup.Use(m.Authentication())
		cartGroup.GET("/items", m.Authorize(h.GetCartItems, auth.RoleUser))
		cartGroup.POST("/add-item", m.Authorize(h.AddToCart, auth.RoleUser))
		cartGroup.POST("/increase", m.Authorize(h.IncreaseCartItem, auth.RoleUser))
		cartGroup.POST("/decrease", m.Authorize(h.DecreaseCartItem, auth.RoleUser))
		cartGroup.POST("/remove-item", m.Authorize(h.RemoveCartItem, auth.RoleUser))
		cartGroup.POST("/clear", m.Authorize(h.ClearCart, auth.RoleUser))

		ordersGroup := v1.Group("/orders")
		// The webhook and the payment-intent lookup are called without a
		// user token: one by Stripe, the other by the post-redirect page.
		ordersGroup.POST("/webhook", h.Webhook)
		ordersGroup.GET("/payment-intent/:id", h.GetOrderByPaymentIntent)
		ordersGroup.Use(m.Authentication())
		ordersGroup.POST("/checkout", m.Authorize(h.Checkout, auth.RoleUser))
		ordersGroup.GET("/mine", m.Authorize(h.ListMyOrders, auth.RoleUser))
		ordersGroup.GET("/view/:id", h.GetOrder)
		ordersGroup.GET("/all", m.Authorize(h.ListAllOrders, auth.RoleAdmin))
		ordersGroup.PUT("/status/:id", m.Authorize(h.UpdateOrderStatus, auth.RoleAdmin))
		ordersGroup.GET("/income", m.Authorize(h.MonthlyIncome, auth.RoleAdmin))
	}

	return r
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}
