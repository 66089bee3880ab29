package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/events"
	"wallet-ledger-go/internal/formance"
	"wallet-ledger-go/internal/metrics"
	"wallet-ledger-go/internal/models"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService  *database.Service
	Engine     *engine.Engine
	Currencies *models.CurrencyRegistry
	Publisher  events.Publisher
	Registry   *prometheus.Registry
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database and builds the engine with every
// configured event sink attached.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	currencies, err := LoadCurrencies(cfg.CurrenciesFile)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Loaded currencies", zap.Any("codes", currencies.Codes()))

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	publisher, err := initializePublishers(ctx, cfg, currencies)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	eng, err := engine.New(engine.Deps{
		Wallets:    dbService.Wallets(),
		Logs:       dbService.TransactionLogs(),
		Users:      dbService.Users(),
		Currencies: currencies,
	},
		engine.WithPublisher(publisher),
		engine.WithMetrics(metrics.NewPrometheus(registry)),
	)
	if err != nil {
		_ = publisher.Close()
		dbService.Close()
		return nil, err
	}

	return &Services{
		DbService:  dbService,
		Engine:     eng,
		Currencies: currencies,
		Publisher:  publisher,
		Registry:   registry,
	}, nil
}

// InitializeDatabaseOnly opens the ledger database without building the engine
// or connecting any event publisher.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("unable to open ledger database: %w", err)
	}
	return dbService, nil
}

func initializePublishers(ctx context.Context, cfg *models.Config, currencies *models.CurrencyRegistry) (events.Publisher, error) {
	var sinks events.Multi

	if cfg.Events.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Events.RedisAddr,
			Password: cfg.Events.RedisPassword,
			DB:       cfg.Events.RedisDB,
		})
		sinks = append(sinks, events.NewRedisPublisher(rdb, cfg.Events.RedisChannel))
		zap.L().Info("Publishing transaction events to Redis",
			zap.String("addr", cfg.Events.RedisAddr),
			zap.String("channel", cfg.Events.RedisChannel))
	}

	if len(cfg.Events.KafkaBrokers) > 0 {
		sinks = append(sinks, events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic))
		zap.L().Info("Publishing transaction events to Kafka",
			zap.Strings("brokers", cfg.Events.KafkaBrokers),
			zap.String("topic", cfg.Events.KafkaTopic))
	}

	if cfg.Formance.Enabled() {
		mirror, err := formance.NewMirror(ctx, cfg.Formance, currencies)
		if err != nil {
			_ = sinks.Close()
			return nil, fmt.Errorf("unable to initialize formance mirror: %w", err)
		}
		sinks = append(sinks, mirror)
	}

	if len(sinks) == 0 {
		return events.Noop{}, nil
	}
	return sinks, nil
}

func (cs *Services) Close() {
	if cs.Publisher != nil {
		if err := cs.Publisher.Close(); err != nil {
			zap.L().Warn("Failed to close event publishers", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
