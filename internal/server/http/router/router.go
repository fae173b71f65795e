package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/artshop/internal/server/http/handlers"
	"github.com/polkiloo/artshop/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.ShopFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	catalogHandler := handlers.NewCatalogHandler(facade)
	paymentHandler := handlers.NewPaymentHandler(facade, logger)
	healthHandler := handlers.NewHealthHandler(facade, logger)

	engine.GET("/healthz", healthHandler.Check)

	// Unprefixed routes serve the default gateway.
	engine.POST("/create-payment", paymentHandler.CreatePayment)
	engine.GET("/callback", paymentHandler.Callback)
	engine.POST("/callback", paymentHandler.Callback)

	api := engine.Group("/api")
	api.GET("/products", catalogHandler.List)
	api.GET("/products/:id", catalogHandler.Get)

	payments := api.Group("/payments/:gateway")
	payments.POST("/create-payment", paymentHandler.CreatePayment)
	payments.GET("/callback", paymentHandler.Callback)
	payments.POST("/callback", paymentHandler.Callback)

	orders := api.Group("/orders")
	orders.Use(middleware.ReceiptRequired(facade))
	orders.GET("/status", paymentHandler.Status)

	return engine
}
