package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valkey-io/valkey-go"

	"github.com/asase/envreport/internal/domain/analysis"
	"github.com/asase/envreport/internal/domain/environment"
	"github.com/asase/envreport/internal/domain/geocoding"
	"github.com/asase/envreport/internal/domain/report"
	"github.com/asase/envreport/internal/infra/config"
	"github.com/asase/envreport/internal/infra/gibs"
	"github.com/asase/envreport/internal/infra/llm/chatgpt"
	"github.com/asase/envreport/internal/infra/lookupcache"
	"github.com/asase/envreport/internal/infra/nominatim"
	"github.com/asase/envreport/internal/infra/openmeteo"
	"github.com/asase/envreport/internal/infra/openweather"
	"github.com/asase/envreport/internal/infra/reportarchive"
	"github.com/asase/envreport/internal/infra/reportrepo"
	"github.com/asase/envreport/internal/infra/tokenizer"
	"github.com/asase/envreport/internal/observability"
)

func provideMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

// provideValkeyClient returns nil when the shared cache is disabled or unreachable.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) valkey.Client {
	if !cfg.Cache.Valkey.Enabled {
		logger.Info("valkey cache disabled, using in-process caches only")
		return nil
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, using in-process caches only", "error", err)
		return nil
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, using in-process caches only", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, using in-process caches only", "error", err)
		client.Close()
		return nil
	}
	logger.Info("valkey cache enabled", "addr", cfg.Cache.Valkey.Addr)
	return client
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Cache.Valkey.Addr, "://") {
		return valkey.ParseURL(cfg.Cache.Valkey.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Cache.Valkey.Addr}}, nil
}

// readThrough layers an in-process LRU over the shared Valkey cache when one is available.
func readThrough[V any](cfg *config.Config, client valkey.Client, namespace string, size int, logger *slog.Logger) lookupcache.Cache[V] {
	local := lookupcache.NewLRU[V](size)
	if client == nil {
		return local
	}
	shared := lookupcache.NewValkey[V](client, cfg.Cache.Valkey.Prefix, namespace, cfg.Cache.Valkey.TTL, logger)
	return lookupcache.NewTiered[V](local, shared)
}

func provideGeocodingService(cfg *config.Config, client valkey.Client, metrics *observability.Metrics, logger *slog.Logger) geocoding.Service {
	searcher := nominatim.NewClient(cfg.Geocoder.BaseURL, cfg.Upstream.UserAgent, cfg.Upstream.Timeout)
	cache := readThrough[geocoding.Coordinates](cfg, client, "geocoder", cfg.Geocoder.CacheSize, logger)
	return geocoding.NewService(geocoding.Config{Timeout: cfg.Upstream.Timeout}, searcher, cache, metrics, logger)
}

func provideEnvironmentService(cfg *config.Config, client valkey.Client, metrics *observability.Metrics, logger *slog.Logger) environment.Service {
	if strings.TrimSpace(cfg.Weather.APIKey) == "" {
		logger.Warn("openweather api key not set, weather readings will use fallback values")
	}
	weather := openweather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Upstream.Timeout)
	elevation := openmeteo.NewClient(cfg.Elevation.BaseURL, cfg.Upstream.Timeout)
	probe := gibs.NewClient(cfg.NDVI.TileURL, cfg.Upstream.Timeout)
	caches := environment.Caches{
		Weather:   readThrough[environment.Weather](cfg, client, "weather", cfg.Weather.CacheSize, logger),
		Elevation: readThrough[int](cfg, client, "elevation", cfg.Elevation.CacheSize, logger),
		NDVI:      readThrough[float64](cfg, client, "ndvi", cfg.NDVI.CacheSize, logger),
	}
	return environment.NewService(environment.Config{Timeout: cfg.Upstream.Timeout}, weather, elevation, probe, caches, metrics, logger)
}

func provideAnalysisConfig(cfg *config.Config) analysis.Config {
	return analysis.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.Upstream.Timeout,
	}
}

// provideChatClient returns nil without a credential so the summarizer falls back.
func provideChatClient(cfg *config.Config, logger *slog.Logger) analysis.ChatClient {
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.Upstream.Timeout)
	if err != nil {
		logger.Warn("llm client disabled, analyses will use the fallback text", "error", err)
		return nil
	}
	return client
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) analysis.TokenCounter {
	counter, err := tokenizer.NewCounter(cfg.LLM.Encoding)
	if err != nil {
		logger.Warn("token counter disabled", "encoding", cfg.LLM.Encoding, "error", err)
		return nil
	}
	return counter
}

func provideReportConfig(cfg *config.Config) report.Config {
	return report.Config{
		DefaultPageSize: cfg.Reports.DefaultPageSize,
		MaxPageSize:     cfg.Reports.MaxPageSize,
		MaxSlugAttempts: cfg.Reports.MaxSlugAttempts,
	}
}

func provideReportRepository(cfg *config.Config, logger *slog.Logger) report.Repository {
	fallback := reportrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Reports.Postgres.DSN)
	if dsn == "" {
		logger.Info("reports postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Reports.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Reports.Postgres.MaxConns
	}
	if cfg.Reports.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Reports.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := reportrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("reports postgres repository enabled")
	return repo
}

func provideReportArchive(cfg *config.Config, logger *slog.Logger) report.Archive {
	if !cfg.Archive.Enabled {
		return reportarchive.New(reportarchive.NewMemoryStore(), logger)
	}
	store, err := reportarchive.NewS3Store(cfg.Archive.Endpoint, cfg.Archive.AccessKey, cfg.Archive.SecretKey, cfg.Archive.Bucket, cfg.Archive.Region, logger)
	if err != nil {
		logger.Error("failed to initialize archive storage, using memory store", "error", err)
		return reportarchive.New(reportarchive.NewMemoryStore(), logger)
	}
	logger.Info("snapshot archive enabled", "bucket", cfg.Archive.Bucket)
	return reportarchive.New(store, logger)
}
