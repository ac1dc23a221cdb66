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

	"github.com/staysync/booking-backend/internal/config"
	"github.com/staysync/booking-backend/internal/database"
	"github.com/staysync/booking-backend/internal/handlers"
	"github.com/staysync/booking-backend/internal/mappers"
	"github.com/staysync/booking-backend/internal/middleware"
	"github.com/staysync/booking-backend/internal/services"
	"github.com/staysync/booking-backend/pkg/inventory"
	"github.com/staysync/booking-backend/pkg/jwt"
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

	logger.Info("Starting StaySync Booking Backend")
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
	if cfg.Server.Environment == "production" {
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

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize repositories
	bookingRepository := database.NewBookingRepository(db)
	guestRepository := database.NewGuestRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.Auth.ServiceTokenSecret, cfg.Auth.Issuer, time.Hour)

	inventoryClient := inventory.NewClient(inventory.Config{
		BaseURL:    cfg.Inventory.BaseURL(),
		Timeout:    cfg.Inventory.Timeout,
		Retries:    cfg.Inventory.Retries,
		RetryDelay: cfg.Inventory.RetryDelay,
	})

	bookingService := services.NewBookingService(bookingRepository, guestRepository, logger)
	reconciliationService := services.NewReconciliationService(bookingService, guestRepository, inventoryClient, logger)
	feedService := services.NewFeedService(reconciliationService, cfg.Feed, logger)

	// Initialize and start the stay-completion sweeper
	sweeperService := services.NewSweeperService(bookingRepository, cfg.Sweeper, logger)
	if err := sweeperService.Start(); err != nil {
		logger.Fatalf("Failed to start sweeper service: %v", err)
	}

	// Provider mappers
	mapperRegistry := mappers.NewRegistry(
		mappers.NewStayportMapper(),
	)
	logger.Infof("Registered webhook providers: %v", mapperRegistry.Providers())

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	webhookHandler := handlers.NewWebhookHandler(mapperRegistry, reconciliationService, logger)
	feedHandler := handlers.NewFeedHandler(feedService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Webhook intake: authenticated per provider by shared token, not by
	// service JWT
	webhooks := router.Group("/webhooks")
	webhooks.Use(middleware.WebhookAuthMiddleware(cfg.Webhook))
	{
		webhooks.POST("/:provider", webhookHandler.HandleWebhook)
	}

	// API v1 routes (service-to-service, JWT protected)
	v1 := router.Group("/api/v1")
	v1.Use(middleware.ServiceAuthMiddleware(jwtService))
	{
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListBookings)
			bookings.GET("/by-external-ref", bookingHandler.GetBookingByExternalRef)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.PATCH("/:id", bookingHandler.UpdateBooking)
			bookings.PATCH("/:id/dates", bookingHandler.ChangeBookingDates)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			bookings.POST("/:id/confirm", bookingHandler.ConfirmBooking)
			bookings.POST("/:id/complete", bookingHandler.CompleteBooking)
			bookings.POST("/:id/no-show", bookingHandler.MarkNoShow)
		}

		v1.GET("/availability", bookingHandler.CheckAvailability)
		v1.POST("/feeds/import", feedHandler.ImportFeed)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
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

	sweeperService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
		}

		if svc, ok := middleware.GetServiceContext(c); ok {
			fields["service"] = svc.Service
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
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
