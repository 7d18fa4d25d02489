// Command sweeper runs one expiry sweep and exits. It is meant for cron jobs
// when the API runs with SWEEP_ENABLED=false.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"cabinbook/internal/config"
	"cabinbook/internal/database"
	"cabinbook/internal/events"
	"cabinbook/internal/modules/availability"
	"cabinbook/internal/modules/reservation"
	"cabinbook/internal/pkg/logger"
	"cabinbook/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Format: logger.JSON}).Fatal("config", "error", err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "cabinbook-sweeper"})

	db, err := database.Connect(cfg.DatabaseURL, database.Options{}, log)
	if err != nil {
		log.Fatal("db connect failed", "error", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer redisClient.Close()
	}

	bc := events.BrokerConfig{}
	if cfg.UsesAMQP() {
		bc.AMQPURL, bc.AMQPQueue = cfg.AMQPURL, cfg.AMQPQueue
	}
	if cfg.UsesKafka() {
		bc.KafkaBrokers, bc.KafkaTopic = cfg.KafkaBrokers, cfg.KafkaTopic
	}
	publisher, err := events.OpenBrokers(bc, log)
	if err != nil {
		log.Fatal("event broker connect failed", "error", err)
	}
	defer publisher.Close()

	svc := reservation.NewService(reservation.Deps{
		Tx:           repository.NewTxManager(db),
		Catalog:      repository.NewCatalogRepository(db),
		Reservations: repository.NewReservationRepository(db),
		Publisher:    publisher,
		Cache:        availability.NewCache(redisClient, cfg.CacheTTL, log),
		Log:          log,
	}, reservation.Config{HoldDuration: cfg.HoldDuration, Location: cfg.Location})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := svc.SweepOnce(ctx)
	if err != nil {
		log.Error("sweep failed", "error", err)
		os.Exit(1)
	}
	log.Info("sweep completed",
		"expired_holds", result.ExpiredHolds,
		"missed_dues", result.MissedDues,
		"failed", result.Failed,
	)
}
