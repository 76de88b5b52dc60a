package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/asase/envreport/internal/domain/analysis"
	"github.com/asase/envreport/internal/domain/environment"
	"github.com/asase/envreport/internal/domain/geocoding"
	"github.com/asase/envreport/internal/observability"
	apperrors "github.com/asase/envreport/pkg/errors"
)

// Service runs the report pipeline and serves stored snapshots.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (Response, error)
	Get(ctx context.Context, slug string) (Response, error)
	ListForLocation(ctx context.Context, location string) (LocationHub, error)
	DistinctLocations(ctx context.Context) ([]Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type service struct {
	cfg        Config
	geocoder   geocoding.Service
	collector  environment.Service
	summarizer analysis.Service
	repo       Repository
	archive    Archive
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewService wires the pipeline. archive may be nil.
func NewService(
	cfg Config,
	geocoder geocoding.Service,
	collector environment.Service,
	summarizer analysis.Service,
	repo Repository,
	archive Archive,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *slog.Logger,
) Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &service{
		cfg:        cfg.withDefaults(),
		geocoder:   geocoder,
		collector:  collector,
		summarizer: summarizer,
		repo:       repo,
		archive:    archive,
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With("component", "report.service"),
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (Response, error) {
	location := strings.TrimSpace(req.Location)
	country := strings.TrimSpace(req.Country)
	if location == "" || country == "" {
		s.metrics.Rejected(apperrors.CodeInvalidInput)
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "please provide both location and country to analyze", nil)
	}

	coords := s.geocoder.Resolve(ctx, location+", "+country)
	if coords.IsUnresolved() {
		s.metrics.Rejected(apperrors.CodeNotFound)
		s.logger.Info("location could not be resolved", "location", location, "country", country)
		return Response{}, apperrors.Wrap(apperrors.CodeNotFound, "location not found, check the spelling or try a nearby major city", nil)
	}
	if coords.Country != "" {
		country = coords.Country
	}

	signals := s.collector.Collect(ctx, coords.Lat, coords.Lon)
	result := s.summarizer.Summarize(ctx, location, country, signals)

	snap, err := s.insert(ctx, Snapshot{
		LocationName: location,
		Country:      country,
		Latitude:     coords.Lat,
		Longitude:    coords.Lon,
		RiskScores: RiskScores{
			Flood:      environment.FloodRisk(signals.PrecipitationForecast, signals.Elevation),
			Air:        environment.AirQuality(signals.PrecipitationForecast),
			LandHealth: result.LandHealthScore,
		},
		AnalysisText: result.Analysis.Render(),
		RawData:      signals,
	})
	if err != nil {
		return Response{}, err
	}
	s.metrics.ReportCreated()
	s.logger.Info("report created", "slug", snap.Slug, "location", location, "country", country, "fallbackAnalysis", result.Fallback)

	s.publish(ctx, snap)

	resp := newResponse(snap)
	report := result.Analysis
	resp.Analysis = &report
	resp.TokenUsage = result.TokenUsage
	return resp, nil
}

// insert stamps the snapshot and retries with numbered slugs until the
// repository accepts one.
func (s *service) insert(ctx context.Context, snap Snapshot) (Snapshot, error) {
	snap.CreatedAt = s.clock.Now().UTC()
	base := baseSlug(snap.LocationName, snap.CreatedAt)

	for attempt := 1; attempt <= s.cfg.MaxSlugAttempts; attempt++ {
		snap.Slug = candidateSlug(base, attempt)
		saved, err := s.repo.Insert(ctx, snap)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, ErrSlugTaken) {
			return Snapshot{}, apperrors.Wrap(apperrors.CodeStorage, "failed to save report", err)
		}
		s.metrics.SlugCollision()
		s.logger.Debug("slug taken, retrying", "slug", snap.Slug, "attempt", attempt)
	}
	return Snapshot{}, apperrors.Wrap(apperrors.CodeStorage, "failed to save report",
		fmt.Errorf("no free slug for %q after %d attempts", base, s.cfg.MaxSlugAttempts))
}

func (s *service) publish(ctx context.Context, snap Snapshot) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Publish(ctx, snap); err != nil {
		s.logger.Warn("snapshot archive failed", "slug", snap.Slug, "error", err)
	}
}

func (s *service) Get(ctx context.Context, slug string) (Response, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "slug cannot be empty", nil)
	}
	snap, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return Response{}, s.readError(err, "report not found")
	}
	return newResponse(snap), nil
}

func (s *service) ListForLocation(ctx context.Context, location string) (LocationHub, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return LocationHub{}, apperrors.Wrap(apperrors.CodeInvalidInput, "location cannot be empty", nil)
	}
	snaps, err := s.repo.ListByLocation(ctx, location)
	if err != nil {
		return LocationHub{}, s.readError(err, "no reports for location")
	}
	if len(snaps) == 0 {
		return LocationHub{}, apperrors.Wrap(apperrors.CodeNotFound, "no reports for location", nil)
	}
	reports := newResponses(snaps)
	return LocationHub{
		LocationName: snaps[0].LocationName,
		Country:      snaps[0].Country,
		Latest:       reports[0],
		Reports:      reports,
	}, nil
}

func (s *service) DistinctLocations(ctx context.Context) ([]Response, error) {
	snaps, err := s.repo.DistinctLocations(ctx)
	if err != nil {
		return nil, s.readError(err, "")
	}
	return newResponses(snaps), nil
}

func (s *service) List(ctx context.Context, req ListRequest) (ListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	if page > math.MaxInt/size {
		s.metrics.Rejected(apperrors.CodeInvalidInput)
		return ListResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "page is out of range", nil)
	}

	snaps, total, err := s.repo.List(ctx, ListFilter{
		Location: strings.TrimSpace(req.Location),
		Country:  strings.TrimSpace(req.Country),
		Offset:   (page - 1) * size,
		Limit:    size,
	})
	if err != nil {
		return ListResponse{}, s.readError(err, "")
	}
	return ListResponse{
		Items:      newResponses(snaps),
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}, nil
}

func (s *service) readError(err error, notFound string) error {
	if errors.Is(err, ErrSnapshotNotFound) && notFound != "" {
		return apperrors.Wrap(apperrors.CodeNotFound, notFound, err)
	}
	s.logger.Error("snapshot read failed", "error", err)
	return apperrors.Wrap(apperrors.CodeStorage, "failed to load reports", err)
}
