// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stellara/stellara-backend/internal/config"
	"github.com/stellara/stellara-backend/internal/handlers"
	"github.com/stellara/stellara-backend/internal/middleware"
	"github.com/stellara/stellara-backend/internal/services"
)

// Initialize wires services to handlers and registers every route.
func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Services
	eventService := services.NewEventService(db)
	registryService := services.NewRegistryService(db, eventService)
	marketService := services.NewMarketService(db, registryService, eventService, cfg)
	walletService := services.NewWalletService(db, cfg)
	authService := services.NewAuthService(db, cfg)
	userService := services.NewUserService(db)
	storageService := services.NewStorageService(cfg)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	collectionHandler := handlers.NewCollectionHandler(registryService, eventService)
	marketHandler := handlers.NewMarketHandler(marketService)
	walletHandler := handlers.NewWalletHandler(walletService)
	adminHandler := handlers.NewAdminHandler(marketService, userService, eventService)
	uploadHandler := handlers.NewUploadHandler(storageService)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Local-storage fallback for uploaded files
	r.Static("/uploads", "./uploads")

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimit())
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// Public reads; OptionalAuth attaches the user to request logs when a
	// token is present.
	public := v1.Group("")
	public.Use(middleware.OptionalAuth())
	{
		public.GET("/collections", collectionHandler.ListCollections)
		public.GET("/collections/:slug", collectionHandler.GetCollection)
		public.GET("/collections/:slug/assets/:assetId", collectionHandler.GetAsset)
		public.GET("/collections/:slug/assets/:assetId/attributes", collectionHandler.GetAttributes)
		public.GET("/collections/:slug/assets/:assetId/wearable", collectionHandler.IsWearable)
		public.GET("/collections/:slug/assets/:assetId/history", collectionHandler.AssetHistory)
		public.GET("/assets", collectionHandler.SearchAssets)

		public.GET("/market/listings", marketHandler.SearchListings)
		public.GET("/market/listings/:slug/:assetId", marketHandler.GetListing)
		public.GET("/market/fee", marketHandler.GetFee)
		public.GET("/market/supported", marketHandler.ListSupportedCollections)

		public.GET("/users/:username", userHandler.GetProfile)
	}

	authed := v1.Group("")
	authed.Use(middleware.AuthRequired())
	{
		authed.GET("/me", authHandler.Me)
		authed.PUT("/me", userHandler.UpdateProfile)
		authed.GET("/me/assets", collectionHandler.MyAssets)
		authed.GET("/me/listings", marketHandler.MyListings)

		authed.POST("/collections", collectionHandler.CreateCollection)
		authed.POST("/collections/:slug/assets", collectionHandler.Mint)
		authed.PUT("/collections/:slug/assets/:assetId/metadata", collectionHandler.UpdateMetadata)

		trade := authed.Group("/market")
		trade.Use(middleware.TradeRateLimit())
		{
			trade.POST("/listings", marketHandler.CreateListing)
			trade.DELETE("/listings/:slug/:assetId", marketHandler.CancelListing)
			trade.POST("/purchase", marketHandler.Purchase)
		}

		authed.GET("/wallet/balance", walletHandler.GetBalance)
		authed.POST("/wallet/deposits", walletHandler.CreateDeposit)
		authed.POST("/wallet/deposits/confirm", walletHandler.ConfirmDeposit)
		authed.GET("/wallet/deposits", walletHandler.ListDeposits)
		authed.GET("/wallet/trades", walletHandler.TradeHistory)

		authed.POST("/uploads", middleware.UploadRateLimit(), uploadHandler.Upload)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.PUT("/market/fee", adminHandler.SetFee)
		admin.POST("/market/supported/:slug", adminHandler.AddSupportedCollection)
		admin.DELETE("/market/supported/:slug", adminHandler.RemoveSupportedCollection)
		admin.GET("/market/stats", adminHandler.GetMarketStats)
		admin.GET("/users", adminHandler.ListUsers)
		admin.PUT("/users/:id/status", adminHandler.SetUserStatus)
		admin.GET("/events", adminHandler.ListEvents)
	}

	return r
}
