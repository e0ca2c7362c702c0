package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-booking-portal/config"
	deliveryHttp "agent-booking-portal/internal/delivery/http"
	"agent-booking-portal/internal/delivery/http/handler"
	"agent-booking-portal/internal/delivery/http/middleware"
	"agent-booking-portal/internal/infrastructure/cache"
	"agent-booking-portal/internal/infrastructure/database"
	"agent-booking-portal/internal/repository"
	"agent-booking-portal/internal/service"
	"agent-booking-portal/internal/usecase"
	"agent-booking-portal/pkg/jwt"
	"agent-booking-portal/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	relay      *service.RelayService
	slotCache  *service.SlotCacheService
	reconciler *service.PaymentReconciler
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	logrus.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db

	// Apply schema migrations
	if err := database.RunMigrations(db, cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient

	// Initialize all layers
	app.initializeServer()

	// Warm the capacity mirror before accepting traffic
	syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.slotCache.SyncOnStartup(syncCtx); err != nil {
		logrus.Warnf("Failed to warm slot capacity mirror: %v", err)
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

// initializeServer wires repositories, services, usecases and the HTTP server
func (app *App) initializeServer() {
	cfg := app.Config
	db := app.DB
	redisClient := app.RedisClient

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize repositories
	timeSlotRepo := repository.NewTimeSlotRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	paymentRepo := repository.NewPaymentRepository()
	doctorRepo := repository.NewDoctorRepository()
	hospitalRepo := repository.NewHospitalRepository()
	notificationRepo := repository.NewNotificationRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)
	relay := service.NewRelayService(log, redisClient, cfg.Booking.RelayChannelPrefix, cfg.Booking.EventBufferSize)
	slotCache := service.NewSlotCacheService(db, redisClient, log)
	reconciler := service.NewPaymentReconciler(db, log, paymentRepo, cfg.Booking.PaymentStaleAfter, cfg.Booking.ReconcileInterval)
	reconciler.Start()

	app.relay = relay
	app.slotCache = slotCache
	app.reconciler = reconciler

	// Initialize usecases
	bookingUsecase := usecase.NewBookingUsecase(db, log, cfg.Booking.TxTimeout, timeSlotRepo, appointmentRepo, paymentRepo, notificationRepo, auditService, relay, slotCache)
	paymentUsecase := usecase.NewPaymentUsecase(db, log, cfg.Booking.TxTimeout, paymentRepo, appointmentRepo, notificationRepo, auditService, relay)
	timeSlotUsecase := usecase.NewTimeSlotUsecase(db, log, timeSlotRepo, doctorRepo, auditService, slotCache)
	doctorUsecase := usecase.NewDoctorUsecase(db, log, doctorRepo, hospitalRepo, auditService)
	reportUsecase := usecase.NewReportUsecase(db, log, appointmentRepo, paymentRepo)
	notificationUsecase := usecase.NewNotificationUsecase(db, log, notificationRepo)

	// Initialize handlers
	bookingHandler := handler.NewBookingHandler(bookingUsecase, customValidator)
	timeSlotHandler := handler.NewTimeSlotHandler(timeSlotUsecase, customValidator)
	paymentHandler := handler.NewPaymentHandler(paymentUsecase, customValidator)
	doctorHandler := handler.NewDoctorHandler(doctorUsecase, customValidator)
	reportHandler := handler.NewReportHandler(reportUsecase, log)
	notificationHandler := handler.NewNotificationHandler(notificationUsecase)
	eventsHandler := handler.NewEventsHandler(relay)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	corsMiddleware := middleware.NewCORSMiddleware()

	// Initialize router
	router := deliveryHttp.NewRouter(bookingHandler, timeSlotHandler, paymentHandler, doctorHandler, reportHandler, notificationHandler, eventsHandler, authMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	app.Server = &http.Server{
		Addr:    serverAddr,
		Handler: httpRouter,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Stop background workers before closing connections
	if app.reconciler != nil {
		app.reconciler.Stop()
	}
	if app.relay != nil {
		app.relay.Stop()
	}
	if app.slotCache != nil {
		app.slotCache.Stop()
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
