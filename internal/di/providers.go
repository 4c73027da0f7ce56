package di

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	internalrepo "MarketPulse/internal/repository"
	"MarketPulse/internal/service/coingecko"
	"MarketPulse/internal/service/history"
	"MarketPulse/internal/services/analytics"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/cache"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"
)

// sampleTable is the ClickHouse table holding archived samples.
const sampleTable = "samples"

// ProvideLogger creates the application logger with an error collector for
// the status endpoint.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lcfg := &applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if lcfg.Level == "" {
		lcfg.Level = "info"
	}
	if lcfg.Format == "" {
		lcfg.Format = "json"
	}
	if lcfg.Output == "" {
		lcfg.Output = "stdout"
	}
	l, err := applogger.New(lcfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AddCollector(applogger.NewLogCollector(100))
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the snapshot cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "redis":
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

// ProvideClickHouseClient creates a ClickHouse client when the clickhouse
// backend is enabled, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != "clickhouse" {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SampleSchema(cfg.ClickHouse.Database, sampleTable)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend is
// enabled, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideArchive creates the ClickHouse sample archive, nil when disabled.
func ProvideArchive(chClient *pkgch.Client, cfg *config.Config) repository.Archive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseArchive(chClient.DB(), cfg.ClickHouse.Database+"."+sampleTable)
}

// ProvidePublisher creates the Kafka publisher, nil when disabled.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.AlertTopic)
}

// ProvideMarketSource creates the CoinGecko client.
func ProvideMarketSource(cfg *config.Config, log *applogger.Logger, m repository.Metrics) repository.MarketSource {
	opts := []coingecko.Option{
		coingecko.WithLogger(log),
		coingecko.WithMetrics(m),
		coingecko.WithBatch(cfg.CoinGecko.BatchSize, cfg.CoinGecko.BatchDelay),
		coingecko.WithPacing(cfg.CoinGecko.Pacing),
		coingecko.WithRetry(cfg.CoinGecko.MaxRetries, cfg.CoinGecko.InitialBackoff, cfg.CoinGecko.MaxBackoff),
	}
	if cfg.CoinGecko.BaseURL != "" {
		opts = append(opts, coingecko.WithBaseURL(cfg.CoinGecko.BaseURL))
	}
	if cfg.CoinGecko.Timeout > 0 {
		opts = append(opts, coingecko.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.CoinGecko.Timeout))))
	}
	return coingecko.New(opts...)
}

// ProvideHistoryStore creates the per-instrument sample ring buffers.
func ProvideHistoryStore(cfg *config.Config) *history.Store {
	return history.New(cfg.Pipeline.HistorySize)
}

// ProvideDetector creates the anomaly detector.
func ProvideDetector(cfg *config.Config) *analytics.Detector {
	return analytics.NewDetector(cfg.Pipeline.HourWindow, cfg.Pipeline.DayWindow, cfg.Pipeline.Threshold)
}

// ProvideTickHub creates the websocket fan-out hub.
func ProvideTickHub(log *applogger.Logger) *api.TickHub {
	return api.NewTickHub(log)
}

// ProvideProcessor creates the backend routing processor.
func ProvideProcessor(
	pub repository.Publisher,
	store repository.Archive,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SampleProcessor {
	return usecase.NewSampleProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideOrchestrator creates the pipeline orchestrator.
func ProvideOrchestrator(
	source repository.MarketSource,
	cacheSvc cache.Service,
	hist *history.Store,
	detector *analytics.Detector,
	proc *usecase.SampleProcessor,
	hub *api.TickHub,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(source, cacheSvc, hist, detector, proc, hub, m, log,
		usecase.OrchestratorConfig{
			Instruments: cfg.Pipeline.Instruments,
			Reference:   cfg.Pipeline.Reference,
			CacheTTL:    cfg.Cache.TTL,
		})
}

// ProvideHandler creates the HTTP surface.
func ProvideHandler(log *applogger.Logger, orch *usecase.Orchestrator, hub *api.TickHub) xhttp.Handler {
	return api.NewPipelineHandler(log, orch, hub)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	orch *usecase.Orchestrator,
	proc *usecase.SampleProcessor,
	hub *api.TickHub,
	handler xhttp.Handler,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, orch, proc, hub, handler, chClient)
}
