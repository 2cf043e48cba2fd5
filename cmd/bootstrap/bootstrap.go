package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorinminutes-backend/config"
	"tutorinminutes-backend/internal/chatwidget"
	deliveryHttp "tutorinminutes-backend/internal/delivery/http"
	"tutorinminutes-backend/internal/delivery/http/handler"
	"tutorinminutes-backend/internal/delivery/http/middleware"
	"tutorinminutes-backend/internal/infrastructure/cache"
	"tutorinminutes-backend/internal/infrastructure/database"
	"tutorinminutes-backend/internal/repository"
	"tutorinminutes-backend/internal/service"
	"tutorinminutes-backend/internal/usecase"
	"tutorinminutes-backend/pkg/jwt"
	"tutorinminutes-backend/pkg/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	Log         *logrus.Logger

	slotService *service.SlotService
	rateLimiter *middleware.RateLimitMiddleware
}

// New connects to Postgres and Redis and wires every layer on top of them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg, Log: SetupLogger(cfg.App)}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	app.Log.Info("Database connected successfully")

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	app.Log.Info("Redis connected successfully")

	loc, err := time.LoadLocation(cfg.DB.TimeZone)
	if err != nil {
		app.Log.Warnf("Unknown time zone %q, falling back to UTC: %v", cfg.DB.TimeZone, err)
		loc = time.UTC
	}

	app.Server = app.initializeServer(loc)
	return app, nil
}

// SetupLogger configures the standard logrus logger from the app config.
func SetupLogger(cfg config.AppConfig) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer(loc *time.Location) *http.Server {
	cfg := app.Config
	log := app.Log
	db := app.DB

	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()

	// Repositories
	userRepo := repository.NewUserRepository()
	roleRepo := repository.NewRoleRepository()
	tutorRepo := repository.NewTutorRepository()
	bookingRepo := repository.NewBookingRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Services
	app.slotService = service.NewSlotService(db, app.RedisClient, bookingRepo, log)
	catalogCache := service.NewCatalogCache(app.RedisClient, cfg.Catalog.CacheTTL)
	sessions := service.NewSessionStore(app.RedisClient, log)
	auditService := service.NewAuditService(log, auditLogRepo)
	gateway := service.NewStripeGateway(cfg.Stripe.SecretKey, nil, log)
	agent := chatwidget.NewAgentClient(cfg.Chat.Endpoint, &http.Client{Timeout: cfg.Chat.Timeout})

	// Usecases
	authUsecase := usecase.NewAuthUsecase(db, log, userRepo, roleRepo, jwtService, sessions, auditService)
	tutorUsecase := usecase.NewTutorUsecase(db, log, tutorRepo, bookingRepo, app.slotService, catalogCache, auditService, cfg.Catalog.ServiceRadius, loc)
	bookingUsecase := usecase.NewBookingUsecase(db, log, bookingRepo, tutorUsecase, app.slotService, auditService, cfg.Stripe.Currency, cfg.Catalog.ServiceRadius, loc)
	paymentUsecase := usecase.NewPaymentUsecase(db, log, bookingRepo, gateway, auditService)
	chatUsecase := usecase.NewChatUsecase(log, agent)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app.rateLimiter = middleware.NewRateLimitMiddleware(cfg.RateLimit, log)

	router := deliveryHttp.NewRouter(deliveryHttp.RouterConfig{
		AuthHandler:       handler.NewAuthHandler(authUsecase, customValidator, jwtService),
		TutorHandler:      handler.NewTutorHandler(tutorUsecase, customValidator),
		BookingHandler:    handler.NewBookingHandler(bookingUsecase, customValidator),
		PaymentHandler:    handler.NewPaymentHandler(paymentUsecase, customValidator),
		ChatHandler:       handler.NewChatHandler(chatUsecase, customValidator),
		AuditLogHandler:   handler.NewAuditLogHandler(auditLogUsecase, customValidator),
		AuthMiddleware:    middleware.NewAuthMiddleware(jwtService, sessions),
		CORSMiddleware:    middleware.NewCORSMiddleware(cfg.App.CORSOrigin),
		RateLimiter:       app.rateLimiter,
		MetricsMiddleware: middleware.NewMetricsMiddleware(registry),
		RequestLogger:     middleware.RequestLogger(log),
		MetricsHandler:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run serves HTTP and rebuilds the slot holds from the database until an
// interrupt arrives or the server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// A failed sync leaves the database checks in place, so it is not fatal.
		if err := app.slotService.SyncOnStartup(gctx); err != nil {
			app.Log.Warnf("Slot hold sync failed: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		app.rateLimiter.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return app.shutdown()
	})

	return g.Wait()
}

func (app *App) shutdown() error {
	app.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	app.Log.Info("Server shutdown complete")
	return nil
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	if app.DB != nil {
		if sqlDB, err := app.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
