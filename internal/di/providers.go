package di

import (
	"context"
	"fmt"
	"time"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	"RailScan/internal/handler/api"
	"RailScan/internal/handler/ws"
	internalrepo "RailScan/internal/repository"
	"RailScan/internal/scheduler"
	"RailScan/internal/service/marketdata"
	"RailScan/internal/service/ratelimit"
	"RailScan/internal/usecase"
	"RailScan/pkg/cache"
	pkgch "RailScan/pkg/clickhouse"
	"RailScan/pkg/config"
	xhttp "RailScan/pkg/http"
	pkgkafka "RailScan/pkg/kafka"
	"RailScan/pkg/logger"
	"RailScan/pkg/metrics"
	"RailScan/pkg/queue"
	"RailScan/pkg/server"
)

// ClickHouseStores groups the archive and result history tables. It is nil
// when ClickHouse is disabled.
type ClickHouseStores struct {
	Client  *pkgch.Client
	Bars    *internalrepo.CHBarStore
	Results *internalrepo.CHResultStore
}

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideRedisCache connects to Redis. It returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process L1 over Redis, or stands alone without it.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(5000))
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(2000),
		cache.WithLayeredMemoryTTL(time.Minute),
		cache.WithLayeredSharedPrefixes(usecase.ScanJobKeyPrefix),
	)
}

// ProvideClickHouseStores connects and creates the tables.
func ProvideClickHouseStores(cfg *config.Config, lgr *logger.Logger) (*ClickHouseStores, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	st := &ClickHouseStores{
		Client:  client,
		Bars:    internalrepo.NewCHBarStore(client.DB(), cfg.ClickHouse.Database, lgr),
		Results: internalrepo.NewCHResultStore(client.DB(), cfg.ClickHouse.Database, lgr),
	}
	schema := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)}
	schema = append(schema, st.Bars.Schema()...)
	schema = append(schema, st.Results.Schema()...)
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	lgr.Info("clickhouse: connected and schema ready", logger.String("db", cfg.ClickHouse.Database))
	return st, nil
}

// ProvideBarArchive returns the ClickHouse archive or a nil interface.
func ProvideBarArchive(st *ClickHouseStores) domrepo.BarArchive {
	if st == nil {
		return nil
	}
	return st.Bars
}

// ProvideResultStore returns the ClickHouse history or a nil interface.
func ProvideResultStore(st *ClickHouseStores) domrepo.ResultStore {
	if st == nil {
		return nil
	}
	return st.Results
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
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

func ProvideHub(lgr *logger.Logger) *ws.Hub {
	return ws.NewHub(lgr, 30*time.Second)
}

// ProvideSignalPublisher fans results out to every enabled sink.
func ProvideSignalPublisher(cfg *config.Config, producer *pkgkafka.Producer, hub *ws.Hub, results domrepo.ResultStore) domrepo.SignalPublisher {
	fan := internalrepo.NewFanoutPublisher().Add("ws", hub)
	if producer != nil {
		fan.Add("kafka", internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topics.Signals))
	}
	if results != nil {
		fan.Add("clickhouse", internalrepo.StorePublisher{Store: results})
	}
	return fan
}

func ProvideLoader(cfg *config.Config, archive domrepo.BarArchive, lgr *logger.Logger) *marketdata.Loader {
	p := cfg.Provider
	return marketdata.NewLoader(
		marketdata.NewYahooSource(p.YahooURL, p.Timeout),
		[]domrepo.BarSource{marketdata.NewStooqSource(p.StooqURL, p.Timeout)},
		archive,
		ratelimit.New(p.RPS, p.Burst),
		marketdata.LoaderConfig{
			Retries:             p.Retries,
			RetryDelay:          p.RetryDelay,
			BreakerMaxRequests:  p.Breaker.MaxRequests,
			BreakerInterval:     p.Breaker.Interval,
			BreakerTimeout:      p.Breaker.Timeout,
			ConsecutiveFailures: p.Breaker.ConsecutiveFailures,
		},
		lgr.With(logger.String("component", "marketdata")),
	)
}

func ProvideAnalyzer(cfg *config.Config, loader *marketdata.Loader, c cache.Service, m domrepo.Metrics, lgr *logger.Logger) *usecase.Analyzer {
	return usecase.NewAnalyzer(loader, c, m, usecase.AnalyzerConfig{
		ResultTTL: cfg.Scanner.CacheTTL,
		BarsTTL:   cfg.Scanner.BarsTTL,
	}, lgr.With(logger.String("component", "analyzer")))
}

func ProvideScanner(cfg *config.Config, analyzer *usecase.Analyzer, pub domrepo.SignalPublisher, lgr *logger.Logger) *usecase.Scanner {
	return usecase.NewScanner(analyzer, pub, usecase.ScannerConfig{
		Concurrency: cfg.Scanner.Concurrency,
		Timeout:     cfg.Scanner.Timeout,
		MaxSymbols:  cfg.Scanner.MaxSymbols,
	}, lgr.With(logger.String("component", "scanner")))
}

// ProvideQueue picks the Redis queue when enabled, otherwise the in-process
// worker pool.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, lgr *logger.Logger) queue.Queue {
	qc := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	if cfg.Queue.Enabled && rc != nil {
		return queue.NewRedisQueue(lgr, qc, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	}
	return queue.NewMemoryQueue(lgr, qc)
}

// ProvideScanJobs registers the scan job on the queue.
func ProvideScanJobs(cfg *config.Config, scanner *usecase.Scanner, c cache.Service, q queue.Queue, lgr *logger.Logger) *usecase.ScanJobs {
	jobs := usecase.NewScanJobs(scanner, c, q, cfg.Scanner.JobTTL, lgr.With(logger.String("component", "scan_jobs")))
	q.RegisterJob(jobs)
	return jobs
}

// ProvideKafkaConsumer creates the consumer and registers the ingest and scan
// request handlers. It returns nil when the consumer is disabled.
func ProvideKafkaConsumer(cfg *config.Config, archive domrepo.BarArchive, scanner *usecase.Scanner, m domrepo.Metrics, lgr *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(lgr.With(logger.String("component", "kafka_consumer")),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerBufferSize(kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
		pkgkafka.WithConsumerFetch(kc.MinBytes, kc.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TracingHook(),
		pkgkafka.RejectEmpty(),
		pkgkafka.LoggingHook(lgr),
	))

	handlers := 0
	if archive != nil && cfg.Kafka.Topics.Bars != "" {
		consumer.RegisterHandler(usecase.NewBarIngestHandler(cfg.Kafka.Topics.Bars, archive, m, lgr))
		handlers++
	}
	if cfg.Kafka.Topics.ScanRequests != "" {
		consumer.RegisterHandler(usecase.NewScanRequestHandler(cfg.Kafka.Topics.ScanRequests, scanner, scannerDefaults(cfg), lgr))
		handlers++
	}
	if handlers == 0 {
		lgr.Warn("kafka consumer enabled without topics to consume")
		return nil, nil
	}
	return consumer, nil
}

// ProvideScheduler returns nil when the schedule is disabled.
func ProvideScheduler(cfg *config.Config, scanner *usecase.Scanner, c cache.Service, lgr *logger.Logger) *scheduler.Scheduler {
	if !cfg.Schedule.Enabled {
		return nil
	}
	return scheduler.New(scanner, c, scheduler.Config{
		Spec:       cfg.Schedule.Cron,
		Watchlist:  cfg.Schedule.Watchlist,
		Template:   scannerDefaults(cfg),
		Timeout:    cfg.Scanner.Timeout,
		RunOnStart: cfg.Schedule.RunOnStart,
	}, lgr)
}

func ProvideScannerHandler(
	cfg *config.Config,
	analyzer *usecase.Analyzer,
	scanner *usecase.Scanner,
	jobs *usecase.ScanJobs,
	results domrepo.ResultStore,
	hub *ws.Hub,
	rc *cache.RedisCache,
	st *ClickHouseStores,
	lgr *logger.Logger,
) *api.ScannerEchoHandler {
	checks := map[string]api.HealthCheck{}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error { return rc.Client().Ping(ctx).Err() }
	}
	if st != nil {
		checks["clickhouse"] = st.Client.Health
	}
	return api.NewScannerEchoHandler(lgr, api.ScannerHandlerDeps{
		Analyzer: analyzer,
		Scanner:  scanner,
		Jobs:     jobs,
		History:  results,
		Hub:      hub.Handle,
		Limiter:  ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		Checks:   checks,
	})
}

func ProvideHTTPServer(cfg *config.Config, h *api.ScannerEchoHandler, lgr *logger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(lgr),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Metrics.SlowThreshold))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp assembles the lifecycle: HTTP first, consumers and schedules
// last, so shutdown stops inbound work before the server goes away.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	srv *xhttp.Server,
	q queue.Queue,
	consumer *pkgkafka.Consumer,
	sched *scheduler.Scheduler,
	hub *ws.Hub,
	producer *pkgkafka.Producer,
	c cache.Service,
	st *ClickHouseStores,
) *server.App {
	app := server.New(lgr, cfg.Server.ShutdownTimeout)

	app.AddCloser("cache", c.Close)
	if st != nil {
		app.AddCloser("clickhouse", st.Client.Close)
	}
	if producer != nil {
		app.AddCloser("kafka_producer", producer.Close)
	}
	app.AddCloser("ws_hub", func() error { hub.Close(); return nil })

	app.AddService("http", srv)
	app.AddService("queue", q)
	if consumer != nil {
		app.AddService("kafka_consumer", consumer)
	}
	if sched != nil {
		app.AddService("scheduler", sched)
	}
	return app
}

func scannerDefaults(cfg *config.Config) models.AnalysisParams {
	return models.AnalysisParams{
		Period:   cfg.Scanner.Period,
		Lookback: cfg.Scanner.Lookback,
		UseLog:   cfg.Scanner.UseLog,
		TPPct:    cfg.Scanner.TPPct,
		SLPct:    cfg.Scanner.SLPct,
		Horizon:  cfg.Scanner.Horizon,
	}
}
