package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/internal/handler/api"
	internalrepo "KolTrack/internal/repository"
	"KolTrack/internal/service/chainstream"
	"KolTrack/internal/services/deviation"
	"KolTrack/internal/services/ledger"
	"KolTrack/internal/services/performance"
	"KolTrack/internal/services/pnl"
	"KolTrack/internal/services/profile"
	"KolTrack/internal/usecase"
	"KolTrack/pkg/config"
	"KolTrack/pkg/logger"
	"KolTrack/pkg/metrics"
	"KolTrack/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideStore creates the configured storage backend, optionally
// wrapped with the Redis leaderboard cache.
func ProvideStore(cfg *config.Config) (domrepo.Store, error) {
	var store domrepo.Store
	switch cfg.Storage.Backend {
	case "clickhouse":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ch, err := internalrepo.NewClickHouseStore(ctx, internalrepo.ClickHouseOptions{
			Addr:        cfg.ClickHouse.Addr,
			Database:    cfg.ClickHouse.Database,
			User:        cfg.ClickHouse.User,
			Password:    cfg.ClickHouse.Password,
			DialTimeout: cfg.ClickHouse.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("clickhouse store: %w", err)
		}
		store = ch
	case "memory":
		store = internalrepo.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = internalrepo.NewRedisLeaderboard(store, rdb, cfg.Redis.TTL)
	}
	return store, nil
}

// ProvideLedger creates the transaction ledger.
func ProvideLedger(store domrepo.Store, m domrepo.Metrics, log *logger.Logger) *ledger.Ledger {
	return ledger.New(store, m, log)
}

// ProvidePnLEngine creates the FIFO realized PnL engine.
func ProvidePnLEngine(store domrepo.Store) *pnl.Engine {
	return pnl.New(store)
}

// ProvideProfiler creates the behavior profiler.
func ProvideProfiler(store domrepo.Store, log *logger.Logger, cfg *config.Config) *profile.Profiler {
	return profile.New(store, log, cfg.Tracker.HistoryLimit, cfg.Tracker.MaxHoldSample)
}

// ProvideDetector creates the deviation detector.
func ProvideDetector(store domrepo.Store, profiler *profile.Profiler, m domrepo.Metrics, log *logger.Logger, cfg *config.Config) *deviation.Detector {
	return deviation.New(store, profiler, m, log, deviation.Config{
		MinSmallBuy:          cfg.Tracker.MinSmallBuy,
		RecentWindow:         cfg.Tracker.RecentWindow,
		TypicalSizeTolerance: cfg.Tracker.TypicalSizeTolerance,
		PatternCacheTTL:      cfg.Tracker.PatternCacheTTL,
	})
}

// ProvideAggregator creates the windowed performance aggregator.
func ProvideAggregator(store domrepo.Store, log *logger.Logger) *performance.Aggregator {
	return performance.NewAggregator(store, log)
}

// ProvideGenerator creates the leaderboard generator.
func ProvideGenerator(store domrepo.Store, agg *performance.Aggregator, m domrepo.Metrics, log *logger.Logger, cfg *config.Config) *performance.Generator {
	return performance.NewGenerator(store, agg, m, log, cfg.Leaderboard.Parallelism)
}

// ProvideTracker creates the tracker facade.
func ProvideTracker(
	l *ledger.Ledger,
	e *pnl.Engine,
	p *profile.Profiler,
	d *deviation.Detector,
	agg *performance.Aggregator,
	gen *performance.Generator,
	m domrepo.Metrics,
	log *logger.Logger,
) *usecase.Tracker {
	return usecase.NewTracker(l, e, p, d, agg, gen, m, log)
}

// ProvideSwapStream creates the chainstream WebSocket feed, nil when
// disabled.
func ProvideSwapStream(cfg *config.Config) domrepo.SwapStream {
	if !cfg.Chainstream.Enabled {
		return nil
	}
	return chainstream.New(
		cfg.Chainstream.APIKey,
		cfg.Chainstream.URL,
		cfg.Chainstream.Wallets,
		cfg.Chainstream.ReconnectDelay,
		cfg.Chainstream.PingInterval,
	)
}

// ProvideSwapCollector creates the stream collector, nil when the
// stream is disabled.
func ProvideSwapCollector(stream domrepo.SwapStream, tracker *usecase.Tracker, m domrepo.Metrics, log *logger.Logger) *usecase.SwapCollector {
	if stream == nil {
		return nil
	}
	return usecase.NewSwapCollector(stream, tracker, m, log)
}

// ProvideSwapsConsumer creates the Kafka consumer, nil when disabled.
func ProvideSwapsConsumer(cfg *config.Config, tracker *usecase.Tracker, m domrepo.Metrics, log *logger.Logger) *usecase.SwapsConsumer {
	if !cfg.Kafka.Enabled {
		return nil
	}
	return usecase.NewSwapsConsumer(usecase.SwapsConsumerConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: cfg.Kafka.MinBytes,
		MaxBytes: cfg.Kafka.MaxBytes,
		MaxWait:  cfg.Kafka.MaxWait,
	}, tracker, m, log)
}

// ProvideScheduler creates the leaderboard scheduler.
func ProvideScheduler(tracker *usecase.Tracker, cfg *config.Config, log *logger.Logger) *usecase.LeaderboardScheduler {
	return usecase.NewLeaderboardScheduler(
		tracker,
		cfg.Leaderboard.Windows,
		cfg.Leaderboard.Limit,
		cfg.Leaderboard.Interval,
		log,
	)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(log *logger.Logger, tracker *usecase.Tracker) *api.TrackerEchoHandler {
	return api.NewTrackerEchoHandler(log, tracker)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	store domrepo.Store,
	handler *api.TrackerEchoHandler,
	collector *usecase.SwapCollector,
	consumer *usecase.SwapsConsumer,
	scheduler *usecase.LeaderboardScheduler,
) *server.App {
	return server.New(cfg, log, store, handler, collector, consumer, scheduler)
}
