package main

import (
	"log"
	"os"

	"team-shortlink/configs"
	"team-shortlink/internal/cache"
	"team-shortlink/internal/database"
	"team-shortlink/internal/handlers"
	"team-shortlink/internal/metadata"
	"team-shortlink/internal/middleware"
	"team-shortlink/internal/pipeline"
	"team-shortlink/internal/services"
	"team-shortlink/internal/sink"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default configuration")
	}

	// Load configuration
	if err := configs.LoadConfig(); err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database and cache
	db := database.GetDBManager().DB
	cacheMgr := cache.GetCacheManager()

	// Background click pipeline
	queue := pipeline.NewQueue(configs.AppConfig.ClickWorkers, configs.AppConfig.ClickQueueSize, configs.AppConfig.JobMaxAttempts)
	pipe := pipeline.New(db, sink.NewGormSink(db), queue, cacheMgr)
	queue.Start()
	defer queue.Stop()

	// Initialize services
	identityService := services.NewIdentityService()
	accessService := services.NewAccessService(db, cacheMgr, configs.AppConfig.AccessCacheTTL)
	linkService := services.NewLinkService(db, metadata.NewFetcher(configs.AppConfig.MetadataFetchTimeout))
	analyticsService := services.NewAnalyticsService(db)

	// Initialize handlers
	teamHandler := handlers.NewTeamHandler(db, identityService)
	linkHandler := handlers.NewLinkHandler(linkService)
	redirectHandler := handlers.NewRedirectHandler(linkService, pipe)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	feedHandler := handlers.NewFeedHandler(cacheMgr)

	// Setup Gin router
	if os.Getenv("GIN_MODE") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global middleware
	router.Use(middleware.ValidationMiddleware())
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Public routes
	router.POST("/session", teamHandler.CreateSession)
	router.POST("/register", teamHandler.Register)

	// Protected routes
	protected := router.Group("/")
	protected.Use(middleware.TeamSession(identityService, accessService))

	protected.POST("/links", linkHandler.Create)
	protected.GET("/links", linkHandler.List)
	protected.PATCH("/links/:domain/:path", linkHandler.Update)
	protected.DELETE("/links/:domain/:path", linkHandler.Delete)
	protected.DELETE("/links/:domain/:path/tags/:tag", linkHandler.RemoveTag)
	protected.GET("/analytics/:domain/:path", analyticsHandler.LinkClicks)

	// Live click feed
	if configs.AppConfig.EnableLiveFeed {
		go feedHandler.RunHub()
		router.GET("/ws", feedHandler.HandleConnections)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "healthy",
			"services": map[string]string{
				"database": "connected",
				"redis": func() string {
					if cacheMgr.IsAvailable() {
						return "connected"
					}
					return "local_cache_only"
				}(),
				"pipeline": "active",
			},
		})
	})

	// Redirect path, resolved against the inbound host as the domain
	router.GET("/:path", redirectHandler.Redirect)

	// Start server
	port := ":" + configs.AppConfig.ServerPort
	log.Printf("Server starting on port %s", port)

	if err := router.Run(port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
