package environment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang/geo/s2"
	"golang.org/x/sync/errgroup"

	"github.com/asase/envreport/internal/infra/lookupcache"
	"github.com/asase/envreport/internal/observability"
)

// Service gathers environmental signals for a coordinate.
type Service interface {
	// Collect never fails; each unavailable signal is replaced by its fallback.
	Collect(ctx context.Context, lat, lon float64) Signals
}

// WeatherProvider fetches the precipitation outlook for a coordinate.
type WeatherProvider interface {
	Forecast(ctx context.Context, lat, lon float64) (Weather, error)
}

// ElevationProvider fetches ground elevation in meters.
type ElevationProvider interface {
	Elevation(ctx context.Context, lat, lon float64) (int, error)
}

// VegetationProbe checks whether the vegetation tile service is serving tiles.
type VegetationProbe interface {
	TileAvailable(ctx context.Context) (bool, error)
}

// Caches holds one read-through cache per collector.
type Caches struct {
	Weather   lookupcache.Cache[Weather]
	Elevation lookupcache.Cache[int]
	NDVI      lookupcache.Cache[float64]
}

// NewLRUCaches builds in-process caches of the given capacity.
func NewLRUCaches(size int) Caches {
	return Caches{
		Weather:   lookupcache.NewLRU[Weather](size),
		Elevation: lookupcache.NewLRU[int](size),
		NDVI:      lookupcache.NewLRU[float64](size),
	}
}

var errTileUnavailable = errors.New("vegetation tile service unavailable")

type service struct {
	cfg       Config
	weather   WeatherProvider
	elevation ElevationProvider
	ndvi      VegetationProbe
	caches    Caches
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService wires the three collectors.
func NewService(cfg Config, weather WeatherProvider, elevation ElevationProvider, ndvi VegetationProbe, caches Caches, metrics *observability.Metrics, logger *slog.Logger) Service {
	defaults := NewLRUCaches(100)
	if caches.Weather == nil {
		caches.Weather = defaults.Weather
	}
	if caches.Elevation == nil {
		caches.Elevation = defaults.Elevation
	}
	if caches.NDVI == nil {
		caches.NDVI = defaults.NDVI
	}
	return &service{
		cfg:       cfg,
		weather:   weather,
		elevation: elevation,
		ndvi:      ndvi,
		caches:    caches,
		metrics:   metrics,
		logger:    logger.With("component", "environment.service"),
	}
}

func (s *service) Collect(ctx context.Context, lat, lon float64) Signals {
	key := coordinateKey(lat, lon)

	var (
		weather   Weather
		elevation int
		ndvi      float64
	)

	// Each goroutine writes only its own variable and never returns an error.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		weather = collect(gctx, s, "weather", s.caches.Weather, key, FallbackWeather, func(ctx context.Context) (Weather, error) {
			return s.weather.Forecast(ctx, lat, lon)
		})
		return nil
	})
	g.Go(func() error {
		elevation = collect(gctx, s, "elevation", s.caches.Elevation, key, FallbackElevation, func(ctx context.Context) (int, error) {
			return s.elevation.Elevation(ctx, lat, lon)
		})
		return nil
	})
	g.Go(func() error {
		ndvi = collect(gctx, s, "ndvi", s.caches.NDVI, key, NDVIUnavailable, func(ctx context.Context) (float64, error) {
			ok, err := s.ndvi.TileAvailable(ctx)
			if err != nil {
				return NDVIUnavailable, err
			}
			if !ok {
				return NDVIUnavailable, errTileUnavailable
			}
			return NDVIAvailable, nil
		})
		return nil
	})
	_ = g.Wait()

	return Signals{
		PrecipitationForecast: weather.PrecipitationForecast,
		RecentRainTrend:       weather.RecentRainTrend,
		Elevation:             elevation,
		NDVI:                  ndvi,
	}
}

// collect is a read-through lookup. Only genuine upstream values are cached,
// so an outage does not pin fallback data.
func collect[V any](ctx context.Context, s *service, name string, cache lookupcache.Cache[V], key string, fallback V, fetch func(context.Context) (V, error)) V {
	if v, ok := cache.Get(ctx, key); ok {
		s.metrics.ObserveCache(name, true)
		return v
	}
	s.metrics.ObserveCache(name, false)

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := fetch(callCtx)
	s.metrics.ObserveUpstream(name, start)
	if err != nil {
		s.logger.Warn("collector failed, using fallback", "collector", name, "key", key, "error", err)
		s.metrics.ObserveCollector(name, true)
		return fallback
	}
	s.metrics.ObserveCollector(name, false)
	cache.Put(ctx, key, v)
	return v
}

func coordinateKey(lat, lon float64) string {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).ToToken()
}
