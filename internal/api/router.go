// Package api contains the HTTP handlers and routing for the payment service.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopstack/shopstack-payments/config"
	"github.com/shopstack/shopstack-payments/internal/ratelimit"
)

// SetupRouter configures the Gin router with all routes and middleware.
// The two rate limiters are independent instances with independent
// policies: the looser one guards payment creation, the strict one
// guards status checks.
func SetupRouter(handler *Handler, cfg *config.Config, createLimiter, statusLimiter *ratelimit.Limiter) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	// Anything hitting a known path with the wrong method gets 405,
	// not 404.
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{
			Success: false,
			Error:   "method not allowed",
			Code:    "METHOD_NOT_ALLOWED",
		})
	})

	// Health and metrics (no CORS, no rate limit)
	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Create-payment: permissive CORS, general-purpose rate limit.
	createCORS := MirrorOriginCORS()
	router.POST("/payments",
		createCORS,
		RateLimitMiddleware("create_payment", createLimiter),
		handler.CreatePayment)
	router.OPTIONS("/payments", createCORS)

	// Status checks: origin-allowlisted CORS, strict rate limit.
	statusCORS := AllowlistCORS(cfg.Security.AllowedStatusOrigins)
	statusHandlers := []gin.HandlerFunc{
		statusCORS,
		RateLimitMiddleware("payment_status", statusLimiter),
		handler.PaymentStatus,
	}
	router.GET("/payments/:merchantOrderId/status", statusHandlers...)
	router.POST("/payments/:merchantOrderId/status", statusHandlers...)
	router.OPTIONS("/payments/:merchantOrderId/status", statusCORS)

	return router
}
