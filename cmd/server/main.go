package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/timeslot-booking/internal/config"
	"github.com/iliyamo/timeslot-booking/internal/database"
	"github.com/iliyamo/timeslot-booking/internal/handler"
	"github.com/iliyamo/timeslot-booking/internal/middleware"
	"github.com/iliyamo/timeslot-booking/internal/queue"
	"github.com/iliyamo/timeslot-booking/internal/repository"
	"github.com/iliyamo/timeslot-booking/internal/router"
	"github.com/iliyamo/timeslot-booking/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("load config", zap.Error(err))
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	loc, _ := cfg.Location() // validated by Load

	db, err := database.Open(
		database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBLockWait),
		database.Options{},
	)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, logger.Named("migrate")); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		logger.Warn("redis unavailable; cache disabled, rate limit per process", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var events service.Publisher = service.NopPublisher{}
	if cfg.QueueEnabled {
		pub := service.NewRabbitPublisher(cfg.RabbitURL, logger.Named("slot-events"))
		defer pub.Close()
		events = pub
		go func() {
			if err := queue.StartBookingConsumer(ctx, cfg.RabbitURL, logger.Named("booking-consumer")); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	// repositories
	categories := repository.NewCategoryRepo(db)
	slots := repository.NewTimeSlotRepo(db)
	prefs := repository.NewPreferenceRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	// services
	booking := service.NewBookingCoordinator(slots, events, logger.Named("booking"))
	availability := service.NewAvailabilityService(slots, prefs, loc)

	cacheCfg := config.LoadCacheConfig()
	e := router.New(logger)
	checks := map[string]handler.Check{"mysql": db.PingContext}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	router.RegisterRoutes(e, checks, logger)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, prefs, logger), cfg.JWTSecret)
	router.RegisterUser(e, router.UserHandlers{
		Categories:  handler.NewCategoryHandler(categories, logger),
		Preferences: handler.NewPreferenceHandler(prefs, logger),
		TimeSlots:   handler.NewTimeSlotHandler(availability, booking, loc, logger),
	}, cfg.JWTSecret,
		middleware.NewRedisCache(cacheCfg, rdb),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)
	router.RegisterAdmin(e, handler.NewAdminHandler(slots, categories, loc, logger), cfg.JWTSecret,
		middleware.NewCacheInvalidator(cacheCfg, rdb))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env), zap.String("tz", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
