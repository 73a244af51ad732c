package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/cache"
	"github.com/smarttransit/travel-booking-backend/internal/config"
	"github.com/smarttransit/travel-booking-backend/internal/database"
	"github.com/smarttransit/travel-booking-backend/internal/events"
	"github.com/smarttransit/travel-booking-backend/internal/handlers"
	"github.com/smarttransit/travel-booking-backend/internal/middleware"
	"github.com/smarttransit/travel-booking-backend/internal/services"
	"github.com/smarttransit/travel-booking-backend/internal/utils"
	"github.com/smarttransit/travel-booking-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartTransit Travel Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.InitializeSchema(ctx, db)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to initialize schema: %v", err)
		}
		logger.Info("Database schema ready")
	}

	// Redis backs route popularity and booking events; both degrade to no-ops without it
	var ranking cache.RouteRanking = cache.NoopRouteRanking{}
	var publisher events.Publisher = events.NoopPublisher{}
	var streamPublisher *events.WatermillPublisher

	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(context.Background(), cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		logger.Info("Redis connection established")

		ranking = cache.NewRedisRouteRanking(redisClient, cfg.Redis.PopularRoutesKey)

		if cfg.Redis.EventsEnabled {
			streamPublisher, err = events.NewRedisStreamPublisher(redisClient, logger)
			if err != nil {
				logger.Fatalf("Failed to create event publisher: %v", err)
			}
			publisher = streamPublisher
			logger.Info("Booking events enabled")
		}
	} else {
		logger.Warn("REDIS_URL not set - popular routes and booking events disabled")
	}

	// Initialize repositories and services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)

	travelOptionRepository := database.NewTravelOptionRepository(db)
	bookingRepository := database.NewBookingRepository(db, travelOptionRepository)

	searchService := services.NewSearchService(travelOptionRepository, ranking, logger)
	bookingService := services.NewBookingService(bookingRepository, travelOptionRepository, publisher, logger)
	inventoryService := services.NewInventoryService(travelOptionRepository, logger)
	ticketService := services.NewTicketService()

	cronService := services.NewCronService(inventoryService, cfg.Cron.AuditSchedule, logger)
	if cfg.Cron.Enabled {
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
		logger.Info("✓ Cron service started - inventory audit enabled")
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler()
	travelOptionHandler := handlers.NewTravelOptionHandler(searchService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, ticketService, logger)
	adminHandler := handlers.NewAdminHandler(inventoryService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: !allowsAnyOrigin(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	authMiddleware := middleware.AuthMiddleware(jwtService, logger)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Travel option routes (public)
		travelOptions := v1.Group("/travel-options")
		{
			travelOptions.GET("/search", travelOptionHandler.Search)
			travelOptions.GET("/popular-routes", travelOptionHandler.PopularRoutes)
			travelOptions.GET("/:id", travelOptionHandler.GetTravelOption)
		}

		// Booking routes (protected)
		bookings := v1.Group("/bookings")
		bookings.Use(authMiddleware)
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.GetUserBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.GET("/:id/ticket", bookingHandler.DownloadTicket)
			bookings.PATCH("/:id/cancel", bookingHandler.CancelBooking)
		}

		// Auth routes (protected)
		auth := v1.Group("/auth")
		auth.Use(authMiddleware)
		{
			auth.GET("/user", authHandler.GetCurrentUser)
		}

		// Admin routes (protected + admin role)
		admin := v1.Group("/admin")
		admin.Use(authMiddleware, middleware.RequireRole("admin"))
		{
			admin.POST("/travel-options", adminHandler.CreateTravelOption)
			admin.POST("/seed", adminHandler.SeedSampleData)
			admin.GET("/inventory/audit", adminHandler.AuditInventory)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cfg.Cron.Enabled {
		logger.Info("Stopping cron service...")
		cronService.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	if streamPublisher != nil {
		if err := streamPublisher.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close event publisher")
		}
	}

	logger.Info("Server exited successfully")
}

// allowsAnyOrigin reports whether the CORS origin list contains "*". Credentials
// cannot be combined with a wildcard origin.
func allowsAnyOrigin(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		client := utils.ParseUserAgent(utils.UserAgent(c))

		// Build log entry with basic fields
		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         utils.ClientIP(c),
			"latency_ms": latency.Milliseconds(),
			"request_id": middleware.GetRequestID(c),
			"device":     client.DeviceType,
			"os":         client.OS,
			"browser":    client.Browser,
		}
		if client.IsBot {
			fields["bot"] = true
		}

		// Add user context if available
		if user, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = user.UserID
		}

		entry := logger.WithFields(fields)

		// Log errors with more details
		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		// Log based on status code
		status := c.Writer.Status()
		if status >= 500 {
			entry.Error("Request completed with server error")
		} else if status >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		// Check database connection
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
