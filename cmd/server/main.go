package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/cache"
	"github.com/grandstay/hotel-booking-backend/internal/config"
	"github.com/grandstay/hotel-booking-backend/internal/database"
	"github.com/grandstay/hotel-booking-backend/internal/handlers"
	"github.com/grandstay/hotel-booking-backend/internal/middleware"
	"github.com/grandstay/hotel-booking-backend/internal/queue"
	"github.com/grandstay/hotel-booking-backend/internal/services"
	"github.com/grandstay/hotel-booking-backend/pkg/jwt"
	"github.com/grandstay/hotel-booking-backend/pkg/permissions"
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

	logger.Info("Starting GrandStay Booking Backend")
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
	logger.Info("Database connection established")

	// Initialize repositories
	roomRepo := database.NewRoomRepository(db)
	roomTypeRepo := database.NewRoomTypeRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	editRepo := database.NewBookingEditRepository(db)
	refundRepo := database.NewRefundRepository(db)
	paymentMethodRepo := database.NewPaymentMethodRepository(db)
	userRepo := database.NewUserRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	permChecker := permissions.NewChecker()

	redisClient := cache.NewRedisClient(cfg.Redis)
	if redisClient == nil {
		logger.Warn("Availability cache disabled, serving counts from the database")
	}
	availability := cache.NewAvailabilityCache(redisClient, cfg.Redis.TTL, logger)

	publisher := queue.NewPublisher(cfg.RabbitMQ.URL)
	notifier := services.NewNotifier(publisher, logger)

	bookingService := services.NewBookingService(
		db, bookingRepo, roomRepo, roomTypeRepo, userRepo, permChecker, notifier, availability, logger)
	editService := services.NewBookingEditService(
		db, editRepo, bookingRepo, roomRepo, roomTypeRepo, refundRepo,
		permChecker, notifier, availability, logger, cfg.Scheduler.EditLockTTL)
	refundService := services.NewRefundService(
		db, refundRepo, bookingRepo, roomRepo, roomTypeRepo,
		permChecker, paymentMethodRepo, notifier, availability, logger)
	roomService := services.NewRoomService(roomRepo, permChecker, availability, logger)

	// Background sweeps and cron jobs
	holdExpiry := services.NewHoldExpiryService(
		db, roomRepo, bookingRepo, availability, logger, cfg.Scheduler.HoldSweepInterval)
	holdExpiry.Start()

	editUnlock := services.NewEditUnlockService(
		db, editRepo, bookingRepo, roomRepo, logger, cfg.Scheduler.EditSweepInterval)
	editUnlock.Start()

	lifecycleCron := services.NewLifecycleCronService(bookingService, logger)
	if err := lifecycleCron.Start(); err != nil {
		logger.Fatalf("Failed to start lifecycle cron jobs: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	editHandler := handlers.NewBookingEditHandler(editService, logger)
	refundHandler := handlers.NewRefundHandler(refundService, logger)
	roomHandler := handlers.NewRoomHandler(roomService, logger)

	// Initialize Gin router
	router := gin.New()
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

	// API v1 routes (all protected)
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(jwtService))
	{
		v1.POST("/bookings", bookingHandler.Create)
		v1.GET("/bookings", bookingHandler.Query)
		v1.GET("/bookings/:id", bookingHandler.Get)
		v1.GET("/my-bookings", bookingHandler.MyBookings)
		v1.POST("/bookings/:id/cancel", refundHandler.Cancel)
		v1.POST("/bookings/:id/edits", editHandler.Request)

		v1.POST("/edits/:id/review", editHandler.Review)
		v1.POST("/edits/:id/decision", editHandler.Decide)
		v1.GET("/edits/:id", editHandler.Get)

		v1.POST("/rooms/:id/lock", roomHandler.Lock)
		v1.POST("/rooms/:id/unlock", roomHandler.Unlock)
		v1.GET("/room-types/:id/availability", bookingHandler.Availability)

		v1.PATCH("/refunds/:id/transaction", refundHandler.UpdateTransaction)
		v1.GET("/refunds/:id", refundHandler.Get)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
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

	// Stop background work before closing the listener
	lifecycleCron.Stop()
	editUnlock.Stop()
	holdExpiry.Stop()

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
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
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
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
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
