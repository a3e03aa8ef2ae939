package handlers

import (
	"net/http"
	"sync"
	"time"

	"delivery_api/internal/metrics"
	"delivery_api/internal/models"
	"delivery_api/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var configureBinding sync.Once

// registerValidations teaches gin's binding engine the custom tags used on
// request types.
func registerValidations() {
	configureBinding.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.Configure(v)
		}
	})
}

type Handlers struct {
	Auth      *AuthHandler
	Products  *ProductHandler
	Addresses *AddressHandler
	Orders    *OrderHandler
	Health    *HealthHandler
}

type RouterConfig struct {
	CORSOrigin  string
	RateLimiter *RateLimiter
	Verifier    TokenVerifier
	Logger      *logrus.Logger
}

func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	registerValidations()

	router := gin.New()
	router.HandleMethodNotAllowed = false
	router.Use(
		Recovery(cfg.Logger),
		RequestLogger(cfg.Logger),
		metrics.Middleware(),
		CORS(cfg.CORSOrigin),
	)
	router.NoRoute(notFoundRoute)

	router.GET("/", h.Health.Root)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler())
	}
	api.GET("/health", h.Health.Health)

	authenticated := Authenticate(cfg.Verifier)
	managerOnly := RequireAccessLevel(models.ManagerAccessLevel)

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
		authRoutes.GET("/me", authenticated, h.Auth.Me)
	}

	products := api.Group("/products")
	{
		products.GET("", h.Products.List)
		products.GET("/categories/all", h.Products.Categories)
		products.GET("/:id", h.Products.Get)
	}

	// Tracking is public; everything else about orders needs a session.
	api.GET("/orders/track/:code", h.Orders.Track)
	orders := api.Group("/orders", authenticated)
	{
		orders.POST("", h.Orders.Create)
		orders.GET("", h.Orders.List)
		orders.GET("/:id", h.Orders.Get)
		orders.POST("/:id/cancel", h.Orders.Cancel)
		orders.PATCH("/:id/status", managerOnly, h.Orders.UpdateStatus)
		orders.GET("/:id/events", managerOnly, h.Orders.Events)
	}

	addresses := api.Group("/addresses", authenticated)
	{
		addresses.GET("", h.Addresses.List)
		addresses.POST("", h.Addresses.Create)
		addresses.PUT("/:id", h.Addresses.Update)
		addresses.DELETE("/:id", h.Addresses.Delete)
	}

	return router
}

// Server wraps the router in an http.Server.
func Server(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
