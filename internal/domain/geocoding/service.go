package geocoding

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang/geo/s2"

	"github.com/asase/envreport/internal/infra/lookupcache"
	"github.com/asase/envreport/internal/observability"
)

// Service resolves free-text place names to coordinates.
type Service interface {
	// Resolve never fails; unresolvable queries yield Unresolved().
	Resolve(ctx context.Context, query string) Coordinates
}

// PlaceSearcher queries an external place-search service for the single best match.
type PlaceSearcher interface {
	Search(ctx context.Context, query string) (Place, bool, error)
}

var (
	errNoMatch       = errors.New("no place matched the query")
	errInvalidCoords = errors.New("place has out of range coordinates")
)

type service struct {
	cfg      Config
	searcher PlaceSearcher
	cache    lookupcache.Cache[Coordinates]
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService wires the geocoder with its read-through cache.
func NewService(cfg Config, searcher PlaceSearcher, cache lookupcache.Cache[Coordinates], metrics *observability.Metrics, logger *slog.Logger) Service {
	if cache == nil {
		cache = lookupcache.NewLRU[Coordinates](100)
	}
	return &service{
		cfg:      cfg,
		searcher: searcher,
		cache:    cache,
		metrics:  metrics,
		logger:   logger.With("component", "geocoding.service"),
	}
}

func (s *service) Resolve(ctx context.Context, query string) Coordinates {
	if coords, ok := s.cache.Get(ctx, query); ok {
		s.metrics.ObserveCache("geocoder", true)
		return coords
	}
	s.metrics.ObserveCache("geocoder", false)

	coords, err := s.lookup(ctx, query)
	if err != nil {
		s.logger.Warn("geocoding failed, using sample coordinates", "query", query, "error", err)
		coords = Unresolved()
	}
	s.metrics.ObserveCollector("geocoder", err != nil)

	// A caller that gave up says nothing about the place itself.
	if ctx.Err() != nil {
		return coords
	}
	s.cache.Put(ctx, query, coords)
	return coords
}

func (s *service) lookup(ctx context.Context, query string) (Coordinates, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	place, found, err := s.searcher.Search(ctx, query)
	s.metrics.ObserveUpstream("geocoder", start)
	if err != nil {
		return Coordinates{}, err
	}
	if !found {
		return Coordinates{}, errNoMatch
	}
	if !s2.LatLngFromDegrees(place.Lat, place.Lon).IsValid() {
		return Coordinates{}, errInvalidCoords
	}
	return Coordinates{
		Lat:     place.Lat,
		Lon:     place.Lon,
		Country: countryFromDisplayName(place.DisplayName),
	}, nil
}

// countryFromDisplayName returns the last comma separated segment, trimmed.
func countryFromDisplayName(displayName string) string {
	idx := strings.LastIndex(displayName, ",")
	return strings.TrimSpace(displayName[idx+1:])
}
