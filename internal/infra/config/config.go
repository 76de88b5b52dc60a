package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Geocoder  GeocoderConfig  `yaml:"geocoder"`
	Weather   WeatherConfig   `yaml:"weather"`
	Elevation ElevationConfig `yaml:"elevation"`
	NDVI      NDVIConfig      `yaml:"ndvi"`
	Cache     CacheConfig     `yaml:"cache"`
	Reports   ReportsConfig   `yaml:"reports"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent reads.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains settings for the OpenAI-compatible analysis endpoint.
type LLMConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	// Encoding names the tiktoken encoding used to estimate prompt size.
	Encoding string `yaml:"encoding"`
}

// UpstreamConfig applies to every outbound data-provider call.
type UpstreamConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
}

// GeocoderConfig controls the place-search client.
type GeocoderConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	CacheSize int    `yaml:"cacheSize"`
}

// WeatherConfig controls the forecast client.
type WeatherConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	APIKey    string `yaml:"apiKey"`
	CacheSize int    `yaml:"cacheSize"`
}

// ElevationConfig controls the elevation client.
type ElevationConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	CacheSize int    `yaml:"cacheSize"`
}

// NDVIConfig controls the vegetation tile probe.
type NDVIConfig struct {
	TileURL   string `yaml:"tileUrl"`
	CacheSize int    `yaml:"cacheSize"`
}

// CacheConfig configures the optional shared lookup cache.
type CacheConfig struct {
	Valkey ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig contains connection information for the shared cache tier.
type ValkeyConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
}

// ReportsConfig controls snapshot persistence and listing.
type ReportsConfig struct {
	Postgres        PostgresConfig `yaml:"postgres"`
	DefaultPageSize int            `yaml:"defaultPageSize"`
	MaxPageSize     int            `yaml:"maxPageSize"`
	MaxSlugAttempts int            `yaml:"maxSlugAttempts"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ArchiveConfig points at the S3-compatible bucket that receives published snapshots.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	// GEMINI_API_KEY is the historical name; LLM_API_KEY wins when both are set.
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Upstream.Timeout = parsed
		}
	}
	if v := os.Getenv("UPSTREAM_USER_AGENT"); v != "" {
		cfg.Upstream.UserAgent = v
	}
	if v := os.Getenv("GEOCODER_BASE_URL"); v != "" {
		cfg.Geocoder.BaseURL = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("WEATHER_BASE_URL"); v != "" {
		cfg.Weather.BaseURL = v
	}
	if v := os.Getenv("ELEVATION_BASE_URL"); v != "" {
		cfg.Elevation.BaseURL = v
	}
	if v := os.Getenv("NDVI_TILE_URL"); v != "" {
		cfg.NDVI.TileURL = v
	}
	if v := os.Getenv("CACHE_VALKEY_ENABLED"); v != "" {
		cfg.Cache.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHE_VALKEY_ADDR"); v != "" {
		cfg.Cache.Valkey.Addr = v
	}
	if v := os.Getenv("CACHE_VALKEY_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Cache.Valkey.TTL = parsed
		}
	}
	if v := os.Getenv("REPORTS_POSTGRES_DSN"); v != "" {
		cfg.Reports.Postgres.DSN = v
	} else if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Reports.Postgres.DSN = v
	}
	if v := os.Getenv("REPORTS_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Reports.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("REPORTS_PAGE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Reports.DefaultPageSize = parsed
		}
	}
	if v := os.Getenv("ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = parseBool(v)
	}
	if v := os.Getenv("ARCHIVE_ENDPOINT"); v != "" {
		cfg.Archive.Endpoint = v
	}
	if v := os.Getenv("ARCHIVE_ACCESS_KEY"); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := os.Getenv("ARCHIVE_SECRET_KEY"); v != "" {
		cfg.Archive.SecretKey = v
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address: ":8080",
			// report creation waits on four upstream calls plus the model
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude:     []string{"/metrics", "/healthz"},
			},
		},
		LLM: LLMConfig{
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai",
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
			Encoding:    "cl100k_base",
		},
		Upstream: UpstreamConfig{
			Timeout:   10 * time.Second,
			UserAgent: "ASASE-Environmental-Platform/1.0",
		},
		Geocoder: GeocoderConfig{
			BaseURL:   "https://nominatim.openstreetmap.org/search",
			CacheSize: 100,
		},
		Weather: WeatherConfig{
			BaseURL:   "https://api.openweathermap.org/data/3.0/onecall",
			CacheSize: 100,
		},
		Elevation: ElevationConfig{
			BaseURL:   "https://api.open-meteo.com/v1/elevation",
			CacheSize: 100,
		},
		NDVI: NDVIConfig{
			TileURL:   "https://gibs.earthdata.nasa.gov/wmts/epsg4326/best/MODIS_Terra_NDVI_8Day/default/2025-10-01/250m/4/8/5.png",
			CacheSize: 100,
		},
		Cache: CacheConfig{
			Valkey: ValkeyConfig{
				Enabled: false,
				Prefix:  "envreport",
				TTL:     6 * time.Hour,
			},
		},
		Reports: ReportsConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			DefaultPageSize: 12,
			MaxPageSize:     100,
			MaxSlugAttempts: 50,
		},
		Archive: ArchiveConfig{
			Bucket: "envreport-snapshots",
			Region: "auto",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	if c.Geocoder.BaseURL == "" {
		return errors.New("geocoder.baseUrl cannot be empty")
	}
	if c.Weather.BaseURL == "" {
		return errors.New("weather.baseUrl cannot be empty")
	}
	if c.Elevation.BaseURL == "" {
		return errors.New("elevation.baseUrl cannot be empty")
	}
	if c.NDVI.TileURL == "" {
		return errors.New("ndvi.tileUrl cannot be empty")
	}
	if c.Geocoder.CacheSize <= 0 || c.Weather.CacheSize <= 0 || c.Elevation.CacheSize <= 0 || c.NDVI.CacheSize <= 0 {
		return errors.New("lookup cache sizes must be positive")
	}
	if c.Cache.Valkey.Enabled && strings.TrimSpace(c.Cache.Valkey.Addr) == "" {
		return errors.New("cache.valkey.addr cannot be empty when valkey cache is enabled")
	}
	if c.Cache.Valkey.TTL < 0 {
		return errors.New("cache.valkey.ttl cannot be negative")
	}
	if c.Reports.DefaultPageSize <= 0 {
		return errors.New("reports.defaultPageSize must be positive")
	}
	if c.Reports.MaxPageSize < c.Reports.DefaultPageSize {
		return errors.New("reports.maxPageSize must be at least reports.defaultPageSize")
	}
	if c.Reports.MaxSlugAttempts <= 0 {
		return errors.New("reports.maxSlugAttempts must be positive")
	}
	if c.Archive.Enabled {
		if strings.TrimSpace(c.Archive.Endpoint) == "" {
			return errors.New("archive.endpoint cannot be empty when archive is enabled")
		}
		if strings.TrimSpace(c.Archive.Bucket) == "" {
			return errors.New("archive.bucket cannot be empty when archive is enabled")
		}
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
