package router

import (
	"time"

	"github.com/nimbusiot/iot-dashboard-backend/internal/handlers"
	"github.com/nimbusiot/iot-dashboard-backend/internal/middleware"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin router with all routes and middleware
func SetupRouter(db *gorm.DB, authService *auth.AuthService) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	// Create a new router
	r := gin.New()

	// Use middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Create handlers
	authHandler := handlers.NewAuthHandler(authService)
	accessKeyHandler := handlers.NewAccessKeyHandler(db)
	widgetDataHandler := handlers.NewWidgetDataHandler(db)
	externalHandler := handlers.NewExternalHandler(db)
	exportHandler := handlers.NewExportHandler(db)
	shareHandler := handlers.NewShareHandler(db)
	publicDashboardHandler := handlers.NewPublicDashboardHandler(db)

	// Create middleware with services
	bearerTokenMiddleware := middleware.NewBearerTokenMiddleware(authService, db)
	ownershipMiddleware := middleware.NewOwnershipMiddleware(db)
	accessKeyAuthMiddleware := middleware.NewAccessKeyAuthMiddleware(accessKeyHandler.GetAccessKeyService())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	api := r.Group("/api/v1")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		// External routes (access key authenticated, single or batch form)
		external := api.Group("/external")
		external.Use(accessKeyAuthMiddleware.VerifyCredentials())
		external.Use(accessKeyAuthMiddleware.ValidateDomain())
		{
			external.POST("/devices", externalHandler.Devices)
			external.POST("/data", externalHandler.Data)
		}

		// Public dashboard routes (share token gated)
		public := api.Group("/public")
		{
			public.GET("/dashboard/:share_token", publicDashboardHandler.Dashboard)
			public.GET("/dashboard/:share_token/widgets/:widget_id/data", publicDashboardHandler.WidgetData)
			public.GET("/dashboard/:share_token/widgets/:widget_id/data/full", publicDashboardHandler.WidgetFullData)
		}

		// Protected routes (session authenticated)
		protected := api.Group("")
		protected.Use(bearerTokenMiddleware.BearerTokenAuthMiddleware())
		{
			// Access key routes
			accessKeys := protected.Group("/access-keys")
			{
				accessKeys.POST("",
					ownershipMiddleware.RequireOwnership(middleware.ResourceProject, middleware.SourceBody),
					accessKeyHandler.Create)
				accessKeys.GET("/:access_key_id",
					ownershipMiddleware.RequireOwnership(middleware.ResourceAccessKey, middleware.SourceParam),
					accessKeyHandler.Get)
				accessKeys.PUT("/:access_key_id",
					ownershipMiddleware.RequireOwnership(middleware.ResourceAccessKey, middleware.SourceParam),
					accessKeyHandler.Update)
				accessKeys.POST("/:access_key_id/renew",
					ownershipMiddleware.RequireOwnership(middleware.ResourceAccessKey, middleware.SourceParam),
					accessKeyHandler.Renew)
				accessKeys.DELETE("/:access_key_id",
					ownershipMiddleware.RequireOwnership(middleware.ResourceAccessKey, middleware.SourceParam),
					accessKeyHandler.Delete)
			}

			// Shared dashboard routes
			shares := protected.Group("/shares")
			{
				shares.POST("",
					ownershipMiddleware.RequireOwnership(middleware.ResourceProject, middleware.SourceBody),
					shareHandler.Create)
				shares.PUT("/:share_id",
					ownershipMiddleware.RequireOwnership(middleware.ResourceShare, middleware.SourceParam),
					shareHandler.Update)
				shares.DELETE("/:share_id",
					ownershipMiddleware.RequireOwnership(middleware.ResourceShare, middleware.SourceParam),
					shareHandler.Delete)
			}

			// Project-scoped listings
			projects := protected.Group("/projects")
			{
				projects.GET("/:project_id/access-keys",
					ownershipMiddleware.RequireOwnership(middleware.ResourceProject, middleware.SourceParam),
					accessKeyHandler.List)
				projects.GET("/:project_id/shares",
					ownershipMiddleware.RequireOwnership(middleware.ResourceProject, middleware.SourceParam),
					shareHandler.List)
			}

			// Widget projection routes
			widgets := protected.Group("/widgets")
			widgets.Use(ownershipMiddleware.RequireOwnership(middleware.ResourceWidget, middleware.SourceParam))
			{
				widgets.GET("/:widget_id/data", widgetDataHandler.GetData)
				widgets.GET("/:widget_id/data/full", widgetDataHandler.GetFullData)
			}

			// Dataset export
			dataTables := protected.Group("/data-tables")
			dataTables.Use(ownershipMiddleware.RequireOwnership(middleware.ResourceDataTable, middleware.SourceParam))
			{
				dataTables.GET("/:tbl_id/export", exportHandler.Export)
			}
		}
	}

	return r
}
