package di

import (
	"context"
	"fmt"
	"time"

	"ratewatch/internal/domain/repository"
	"ratewatch/internal/handler/api"
	internalrepo "ratewatch/internal/repository"
	"ratewatch/internal/service/binance"
	icache "ratewatch/internal/service/cache"
	"ratewatch/internal/usecase"
	pkgcache "ratewatch/pkg/cache"
	"ratewatch/pkg/config"
	xhttp "ratewatch/pkg/http"
	pkgkafka "ratewatch/pkg/kafka"
	applogger "ratewatch/pkg/logger"
	"ratewatch/pkg/metrics"
	pkgpg "ratewatch/pkg/postgres"
	"ratewatch/pkg/server"
)

// ProvideLogger creates the application logger. When a Kafka log topic is
// configured, error logs are aggregated and published to it.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	if cfg.Kafka.Enabled && cfg.Kafka.LogTopic != "" {
		producer, perr := pkgkafka.NewProducer(
			pkgkafka.WithProducerBrokers(cfg.Kafka.Brokers),
		)
		if perr != nil {
			l.Warn("log collector disabled", applogger.Error(perr))
			return l, nil
		}
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}

	return l, nil
}

// ProvidePostgresClient creates a Postgres client and ensures the schema.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	client, err := pkgpg.NewClient(
		pkgpg.WithHost(cfg.Postgres.Host),
		pkgpg.WithPort(cfg.Postgres.Port),
		pkgpg.WithDatabase(cfg.Postgres.Database),
		pkgpg.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		pkgpg.WithSSLMode(cfg.Postgres.SSLMode),
		pkgpg.WithPool(cfg.Postgres.MaxOpen, cfg.Postgres.MaxIdle, cfg.Postgres.MaxLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	return client, nil
}

// ProvideCacheBackend selects Redis when enabled, in-process memory otherwise.
func ProvideCacheBackend(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}

	backend, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return backend, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRateStore creates the Postgres-backed rate store.
func ProvideRateStore(pg *pkgpg.Client, l *applogger.Logger) repository.RateStore {
	store := internalrepo.NewPostgresRateStore(pg)
	store.SetLogger(l)
	return store
}

// ProvideRateCache wraps the cache backend with domain keys and TTL tiers.
func ProvideRateCache(
	backend pkgcache.Service,
	cfg *config.Config,
	m repository.Metrics,
	l *applogger.Logger,
) repository.RateCache {
	return icache.NewRateCache(backend, icache.TTLConfig{
		Recent:     cfg.Cache.RecentTTL,
		Historical: cfg.Cache.HistoricalTTL,
		Snapshot:   cfg.Cache.SnapshotTTL,
	}, m, l)
}

// ProvidePriceSource creates the Binance ticker client.
func ProvidePriceSource(cfg *config.Config, l *applogger.Logger) repository.PriceSource {
	return binance.New(cfg.Binance.BaseURL, cfg.Binance.Timeout,
		binance.WithRetry(cfg.Binance.MaxAttempts, cfg.Binance.BackoffDelay),
		binance.WithLogger(l),
	)
}

// ProvideIngestUseCase creates the ingestion orchestrator.
func ProvideIngestUseCase(
	source repository.PriceSource,
	store repository.RateStore,
	cache repository.RateCache,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.IngestUseCase {
	return usecase.NewIngestUseCase(source, store, cache, m, l)
}

// ProvideQueryUseCase creates the read-path use case.
func ProvideQueryUseCase(
	store repository.RateStore,
	cache repository.RateCache,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.QueryUseCase {
	return usecase.NewQueryUseCase(store, cache, cfg.Ingestion.FreshnessThreshold, l)
}

// ProvideRetentionUseCase creates the retention sweep.
func ProvideRetentionUseCase(
	store repository.RateStore,
	cfg *config.Config,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.RetentionUseCase {
	return usecase.NewRetentionUseCase(store, cfg.Retention.MaxAge, m, l)
}

// ProvideKafkaConsumer creates a Kafka consumer or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.RetryMax, cfg.Kafka.BackoffMin, cfg.Kafka.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaIngestHandler registers the ingestion trigger handler.
func ProvideKafkaIngestHandler(
	cfg *config.Config,
	ingest *usecase.IngestUseCase,
	l *applogger.Logger,
) pkgkafka.MessageHandler {
	return usecase.NewKafkaIngestHandler(cfg.Kafka.Topic, ingest, l)
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	query *usecase.QueryUseCase,
	ingest *usecase.IngestUseCase,
	store repository.RateStore,
	source repository.PriceSource,
	backend pkgcache.Service,
) xhttp.Handler {
	limit := api.TriggerLimit{
		Burst:        cfg.Ingestion.TriggerBurst,
		RefillPerSec: cfg.Ingestion.TriggerRefillPerSec,
	}
	return api.NewRatesEchoHandler(l, query, ingest, store, source, backend, limit)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	ingest *usecase.IngestUseCase,
	retention *usecase.RetentionUseCase,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	pgClient *pkgpg.Client,
	backend pkgcache.Service,
	handler xhttp.Handler,
) *server.App {
	app := server.New(cfg, l, ingest, retention, consumer, kh, pgClient, backend)
	app.SetHTTPHandler(handler)
	return app
}
