// Package router assembles the gin engine: global middleware, the
// versioned API group and the documentation endpoint.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	System   *handler.SystemHandler
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
	Webhook  *handler.WebhookHandler
	Outbox   *handler.OutboxHandler
}

// Config holds router settings
type Config struct {
	ServiceName     string
	MaxBodySize     int64
	CORS            middleware.CORSConfig
	TrustedProxies  []string
	SwaggerEnabled  bool
	TracingEnabled  bool
	ProfilingLabels bool
	// Meter is optional; nil disables HTTP metrics
	Meter metric.Meter
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// New builds the engine with global middleware installed
func New(cfg Config, log *zap.Logger, opts ...RouterOption) (*Router, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled)...)
	engine.Use(
		middleware.HTTPMetrics(cfg.Meter),
		middleware.Profiling(cfg.ProfilingLabels),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.BodyLimit(cfg.MaxBodySize),
	)

	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}

	engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg.SwaggerEnabled), ginSwagger.WrapHandler(swaggerFiles.Handler))
	return r, nil
}

// Engine returns the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Setup registers every route. auth validates bearer tokens on the
// authenticated groups.
func (r *Router) Setup(h Handlers, auth gin.HandlerFunc) {
	r.engine.GET("/health", h.System.Health)
	r.engine.GET("/health/ready", h.System.Ready)

	api := r.engine.Group("/api/" + r.apiVersion)

	products := api.Group("/products")
	products.GET("", h.Product.List)
	products.GET("/low-stock", auth, middleware.RequireAdmin(), h.Product.ListLowStock)
	products.GET("/:id", h.Product.GetByID)

	cart := api.Group("/cart", auth)
	cart.GET("", h.Cart.Get)
	cart.DELETE("", h.Cart.Clear)
	cart.POST("/items", h.Cart.AddItem)
	cart.PUT("/items/:line_id", h.Cart.UpdateItem)
	cart.DELETE("/items/:line_id", h.Cart.RemoveItem)

	api.POST("/checkout", auth, h.Checkout.Checkout)

	orders := api.Group("/orders", auth)
	orders.GET("", h.Order.List)
	orders.GET("/:id", h.Order.GetByID)
	orders.PUT("/:id/status", middleware.RequireAdmin(), h.Order.UpdateStatus)
	orders.POST("/:id/confirm-payment", h.Order.ConfirmPayment)

	api.POST("/webhooks/payment", h.Webhook.Handle)

	outbox := api.Group("/admin/outbox", auth, middleware.RequireAdmin())
	outbox.GET("/stats", h.Outbox.Stats)
	outbox.GET("/dead", h.Outbox.ListDead)
	outbox.POST("/retry", h.Outbox.RetryAll)
	outbox.GET("/:id", h.Outbox.GetEntry)
	outbox.POST("/:id/retry", h.Outbox.Retry)
}
