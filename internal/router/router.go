package router

import (
	"log"
	"time"

	"pawmart/config"
	"pawmart/internal/domain"
	"pawmart/internal/handler"
	"pawmart/internal/middleware"
	"pawmart/internal/repository"
	"pawmart/internal/service"
	"pawmart/pkg/gateway"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers into a gin engine. The
// payment service is returned as well so main can run the pending sweeper.
func Setup(cfg *config.Config, db *gorm.DB) (*gin.Engine, *service.PaymentService) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	cartRepo := repository.NewCartRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	entitlementRepo := repository.NewEntitlementRepository(db)
	petRepo := repository.NewPetRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Gateway client
	var gw gateway.Client
	if cfg.Gateway.KeyID == "" {
		log.Printf("[GATEWAY] no key configured, using stub client")
		gw = &gateway.Stub{}
	} else {
		gw = gateway.NewRestClient(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret, cfg.Gateway.RequestTimeout)
	}

	// Services
	cartSvc := service.NewCartService(cartRepo)
	paymentSvc := service.NewPaymentService(&cfg.Gateway, paymentRepo, entitlementRepo, petRepo, userRepo, gw)

	// Handlers
	cartHandler := handler.NewCartHandler(cartSvc)
	paymentHandler := handler.NewPaymentHandler(cfg, paymentSvc)
	webhookHandler := handler.NewGatewayWebhookHandler(cfg, paymentSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		cart := api.Group("/cart")
		cart.Use(authMw)
		{
			cart.GET("", cartHandler.List)
			cart.POST("", cartHandler.Add)
			cart.POST("/decrement", cartHandler.Decrement)
			cart.DELETE("", cartHandler.Clear)
			cart.DELETE("/items/:item_id", cartHandler.Remove)
		}

		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.GET("", paymentHandler.List)
			payments.POST("/orders", paymentHandler.CreateOrder)
			payments.POST("/verify", paymentHandler.Verify)
			payments.GET("/entitlements", paymentHandler.Entitlements)
			payments.POST("/:payment_id/refund", middleware.RequireRole(domain.RoleAdmin), paymentHandler.Refund)
			payments.POST("/entitlements/rebuild/:user_id", middleware.RequireRole(domain.RoleAdmin), paymentHandler.RebuildEntitlements)
		}

		api.POST("/webhooks/gateway", webhookHandler.Handle)
	}

	return r, paymentSvc
}
