package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cabinbook/internal/config"
	"cabinbook/internal/database"
	"cabinbook/internal/events"
	"cabinbook/internal/middleware"
	"cabinbook/internal/modules/availability"
	"cabinbook/internal/modules/health"
	"cabinbook/internal/modules/payment"
	"cabinbook/internal/modules/reservation"
	jwtsvc "cabinbook/internal/pkg/jwt"
	"cabinbook/internal/pkg/logger"
	"cabinbook/internal/realtime"
	"cabinbook/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Format: logger.JSON}).Fatal("config", "error", err)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "cabinbook-api",
	})
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, database.Options{MaxOpenConns: 25, MaxIdleConns: 5}, log)
	if err != nil {
		log.Fatal("database connect failed", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", "error", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, availability reads fall back to the database", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
	}
	cache := availability.NewCache(redisClient, cfg.CacheTTL, log)

	hub := realtime.NewHub(log)
	brokers, err := events.OpenBrokers(brokerConfig(cfg), log)
	if err != nil {
		log.Fatal("event broker connect failed", "error", err)
	}
	publisher := append(events.Fanout{hub}, brokers...)

	catalogRepo := repository.NewCatalogRepository(db)
	reservationRepo := repository.NewReservationRepository(db)

	deps := reservation.Deps{
		Tx:           repository.NewTxManager(db),
		Catalog:      catalogRepo,
		Reservations: reservationRepo,
		Publisher:    publisher,
		Cache:        cache,
		Log:          log.With("module", "reservation"),
	}
	if cfg.PaymentServiceURL != "" {
		client, err := payment.NewClient(payment.Config{
			BaseURL:     cfg.PaymentServiceURL,
			Token:       cfg.PaymentServiceToken,
			CallbackURL: cfg.PaymentCallbackURL,
		}, log.With("module", "payment"))
		if err != nil {
			log.Fatal("payment client", "error", err)
		}
		deps.Gateway = client
	}

	reservationService := reservation.NewService(deps, reservation.Config{
		HoldDuration: cfg.HoldDuration,
		Location:     cfg.Location,
	})
	availabilityService := availability.NewService(catalogRepo, reservationRepo, cache, log.With("module", "availability"))

	jwt := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	healthHandler := health.NewHandler(log).Add("database", dbCheck(db))
	if redisClient != nil {
		healthHandler.Add("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}
	healthHandler.RegisterRoutes(r)
	r.GET("/ws/availability", realtime.NewWSHandler(hub, jwt, cfg.CORSAllowedOrigins).HandleWebSocket)

	v1 := r.Group("/api/v1")
	{
		// public
		availability.NewHandler(availabilityService, cfg.Location).RegisterRoutes(v1)

		reservationHandler := reservation.NewHandler(reservationService)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(jwt))
		reservationHandler.RegisterRoutes(protected)

		admin := protected.Group("")
		admin.Use(middleware.AdminOnly())
		reservationHandler.RegisterAdminRoutes(admin)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stopSweep chan struct{}
	if cfg.SweepEnabled {
		stopSweep = reservationService.Schedule(ctx, cfg.SweepInterval)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("http server starting", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to shutdown", "error", err)
	}
	if stopSweep != nil {
		close(stopSweep)
	}
	if err := publisher.Close(); err != nil {
		log.Error("closing publishers", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server exited")
}

func brokerConfig(cfg *config.Config) events.BrokerConfig {
	var bc events.BrokerConfig
	if cfg.UsesAMQP() {
		bc.AMQPURL = cfg.AMQPURL
		bc.AMQPQueue = cfg.AMQPQueue
	}
	if cfg.UsesKafka() {
		bc.KafkaBrokers = cfg.KafkaBrokers
		bc.KafkaTopic = cfg.KafkaTopic
	}
	return bc
}

func dbCheck(db *gorm.DB) health.Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
