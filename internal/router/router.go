// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unlockd/unlockd-backend/internal/config"
	"github.com/unlockd/unlockd-backend/internal/handlers"
	"github.com/unlockd/unlockd-backend/internal/ledger"
	"github.com/unlockd/unlockd-backend/internal/middleware"
	"github.com/unlockd/unlockd-backend/internal/receipt"
	"github.com/unlockd/unlockd-backend/internal/services"
	"github.com/unlockd/unlockd-backend/internal/storage"
	"github.com/unlockd/unlockd-backend/internal/store"
	"github.com/unlockd/unlockd-backend/internal/token"
	"github.com/unlockd/unlockd-backend/internal/utils"
	"github.com/unlockd/unlockd-backend/internal/vault"
)

// Initialize wires stores, the ledger client, and configuration into a ready
// gin engine. The stores and ledger client are parameters so tests can run the
// full HTTP surface against in-memory stores and a fake ledger.
func Initialize(stores *store.Stores, ledgerClient ledger.Client, cfg *config.Config) (*gin.Engine, error) {
	locatorKey, err := cfg.LocatorKey()
	if err != nil {
		return nil, err
	}

	objects, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}

	// Initialize services
	contentVault := vault.New(objects)
	codec := token.NewCodec([]byte(cfg.Access.TokenSecret))
	verifier := ledger.NewVerifier(ledgerClient)
	resolver := receipt.NewResolver(ledgerClient, locatorKey)

	authService := services.NewAuthService(stores.Creators, cfg)
	contentService := services.NewContentService(stores.Content, contentVault, locatorKey)
	paywallService := services.NewPaywallService(stores, verifier, codec, contentVault, cfg)
	accessService := services.NewAccessService(contentService, resolver)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	contentHandler := handlers.NewContentHandler(contentService, authService)
	paywallHandler := handlers.NewPaywallHandler(paywallService)
	accessHandler := handlers.NewAccessHandler(accessService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware. Rate limiters are per-engine instances.
	limits := middleware.NewRateLimits()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(limits.General.Handler())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Authentication routes
	auth := r.Group("/auth")
	auth.Use(limits.Auth.Handler())
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
	}

	// Content routes
	content := r.Group("/content")
	{
		content.POST("", middleware.AuthRequired(), limits.Upload.Handler(), contentHandler.CreateContent)
		content.GET("/:id", contentHandler.GetContent)
		content.PATCH("/:id", middleware.AuthRequired(), contentHandler.UpdateContent)
		content.GET("/:id/preview", contentHandler.GetPreview)

		// Off-ledger unlock flow
		content.GET("/:id/paywall", paywallHandler.GetPaywall)
		content.POST("/:id/paywall", paywallHandler.ConfirmPayment)
		content.GET("/:id/asset", paywallHandler.GetAsset)
	}

	// On-ledger receipt flow
	r.GET("/access/:creator/:contentId", accessHandler.CheckAccess)

	// Public creator content lists
	r.GET("/creators/:creator/content", contentHandler.GetCreatorContent)

	return r, nil
}
