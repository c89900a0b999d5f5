package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"FinSight/internal/domain/repository"
	"FinSight/internal/handler/api"
	mid "FinSight/internal/middleware"
	internalrepo "FinSight/internal/repository"
	icache "FinSight/internal/service/cache"
	"FinSight/internal/service/stream"
	"FinSight/internal/services/behavior"
	"FinSight/internal/services/features"
	"FinSight/internal/services/insights"
	"FinSight/internal/services/recommend"
	"FinSight/internal/usecase"
	pkgcache "FinSight/pkg/cache"
	pkgch "FinSight/pkg/clickhouse"
	"FinSight/pkg/config"
	pkgkafka "FinSight/pkg/kafka"
	applogger "FinSight/pkg/logger"
	"FinSight/pkg/metrics"
	"FinSight/pkg/queue"
	"FinSight/pkg/server"
)

// ProvideLogger creates the application logger. When Redis is configured,
// error logs are also aggregated and shipped through the Redis queue.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	l, err := applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
	if err != nil {
		return nil, err
	}
	if cfg.Profile.Redis.Enabled {
		cli := redis.NewClient(&redis.Options{
			Addr:     cfg.Profile.Redis.Addr,
			Password: cfg.Profile.Redis.Password,
			DB:       cfg.Profile.Redis.DB,
		})
		pub := queue.NewRedisPublisher(l, cli, queue.WithKeyPrefix("finsight"))
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "logs.aggregated",
			Publisher:      pub,
		})
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS finsight",
		`CREATE TABLE IF NOT EXISTS finsight.transactions (
            id String,
            user_id String,
            posted_at DateTime,
            direction LowCardinality(String),
            amount Decimal(18, 4),
            currency LowCardinality(String),
            category LowCardinality(String),
            mcc Int32,
            merchant_name String,
            channel LowCardinality(String),
            is_installment Bool,
            installment_months Int32,
            installment_monthly Decimal(18, 4)
        ) ENGINE=ReplacingMergeTree ORDER BY (user_id, posted_at, id)`,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTransactionStorage creates ClickHouse storage repository.
func ProvideTransactionStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	table := cfg.Profile.LedgerTable
	if table == "" {
		table = cfg.ClickHouse.Database + ".transactions"
	}
	return internalrepo.NewClickHouseStorage(chClient.DB(), table)
}

// ProvideTransactionPublisher creates Kafka publisher repository.
func ProvideTransactionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideFeedStream creates the WebSocket transaction feed.
func ProvideFeedStream(cfg *config.Config) repository.TransactionStream {
	return stream.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Channels,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideIngestProcessor creates the transaction ingest processor.
func ProvideIngestProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.IngestProcessor {
	return usecase.NewIngestProcessor(pub, store, metrics, cfg.Backend.Type)
}

// ProvideIngestCollector creates the feed collector with its pipeline.
func ProvideIngestCollector(
	stream repository.TransactionStream,
	processor *usecase.IngestProcessor,
	metrics repository.Metrics,
) *usecase.IngestCollector {
	pipe := mid.NewIngestPipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewIngestCollector(stream, processor, metrics, pipe)
}

// ProvideLedger creates the ClickHouse-backed ledger reader.
func ProvideLedger(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.Ledger {
	table := cfg.Profile.LedgerTable
	if table == "" {
		table = cfg.ClickHouse.Database + ".transactions"
	}
	ledger := internalrepo.NewCHLedger(chClient, table)
	ledger.SetLogger(l)
	return ledger
}

// ProvideCatalog creates the product catalog source.
func ProvideCatalog(cfg *config.Config) repository.Catalog {
	if cfg.Profile.CatalogPath != "" {
		return internalrepo.NewYAMLCatalog(cfg.Profile.CatalogPath)
	}
	return internalrepo.NewStaticCatalog(internalrepo.DefaultProducts())
}

// ProvideInsightGenerator creates the insight generator, attaching the
// external phraser only when one is configured.
func ProvideInsightGenerator(cfg *config.Config, l *applogger.Logger) *insights.Generator {
	opts := []insights.Option{}
	if cfg.Profile.Phrasing.ServiceURL != "" {
		phraserOpts := []insights.PhraserOption{}
		if cfg.Profile.Phrasing.APIKey != "" {
			phraserOpts = append(phraserOpts, insights.WithAPIKey(cfg.Profile.Phrasing.APIKey))
		}
		if cfg.Profile.Phrasing.Timeout > 0 {
			phraserOpts = append(phraserOpts, insights.WithRequestTimeout(cfg.Profile.Phrasing.Timeout))
		}
		opts = append(opts, insights.WithPhraser(insights.NewHTTPPhraser(cfg.Profile.Phrasing.ServiceURL, phraserOpts...)))
	}
	return insights.NewGenerator(l, opts...)
}

// ProvideOrchestrator wires the full profile pipeline.
func ProvideOrchestrator(
	ledger repository.Ledger,
	catalog repository.Catalog,
	gen *insights.Generator,
	metrics repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ProfileOrchestrator {
	detectorOpts := []behavior.Option{}
	if cfg.Profile.ScoreCutoff > 0 {
		detectorOpts = append(detectorOpts, behavior.WithCutoff(cfg.Profile.ScoreCutoff))
	}
	orcOpts := []usecase.OrchestratorOption{}
	if cfg.Profile.CacheTTL > 0 {
		orcOpts = append(orcOpts, usecase.WithTTL(cfg.Profile.CacheTTL))
	}
	if cfg.Profile.Timeout > 0 {
		orcOpts = append(orcOpts, usecase.WithTimeout(cfg.Profile.Timeout))
	}
	if cfg.Profile.MaxLoadAttempts > 0 {
		orcOpts = append(orcOpts, usecase.WithMaxLoadAttempts(cfg.Profile.MaxLoadAttempts))
	}
	return usecase.NewProfileOrchestrator(
		ledger,
		catalog,
		features.NewEngine(),
		behavior.NewDetector(detectorOpts...),
		gen,
		recommend.NewRanker(),
		metrics,
		l,
		orcOpts...,
	)
}

// ProvideKafkaTxHandler registers the consumer handler for the raw
// transactions topic and links it to the profile cache.
func ProvideKafkaTxHandler(
	store repository.Storage,
	metrics repository.Metrics,
	orc *usecase.ProfileOrchestrator,
	cfg *config.Config,
) *usecase.KafkaTxHandler {
	return usecase.NewKafkaTxHandler(cfg.Kafka.Topic, store, metrics).WithInvalidator(orc)
}

// ProvideProfileHandler builds the dashboard HTTP handler with its
// response cache and feedback store.
func ProvideProfileHandler(
	l *applogger.Logger,
	orc *usecase.ProfileOrchestrator,
	ledger repository.Ledger,
	cfg *config.Config,
) *api.ProfileEchoHandler {
	h := api.NewProfileEchoHandler(l, orc, usecase.NewLedgerQueryUseCase(ledger))

	if cfg.Profile.Redis.Enabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Profile.Redis.Addr,
			Password: cfg.Profile.Redis.Password,
			DB:       cfg.Profile.Redis.DB,
		}))
		host, port := splitAddr(cfg.Profile.Redis.Addr)
		svc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Profile.Redis.Password),
			pkgcache.WithRedisDB(cfg.Profile.Redis.DB),
		)
		if err != nil {
			l.Warn("feedback store unavailable", applogger.Error(err))
		} else {
			layered := pkgcache.NewLayeredCache(svc, pkgcache.WithLayeredMemorySize(1024))
			h.SetFeedback(internalrepo.NewRedisFeedbackStore(layered))
		}
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	return h
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.IngestCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTxHandler,
	chClient *pkgch.Client,
	handler *api.ProfileEchoHandler,
) *server.App {
	app := server.New(cfg, collector, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	if collector != nil {
		app.IngestProc = collector.Processor()
	}
	return app
}
