package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/asase/envreport/internal/domain/report"
	"github.com/asase/envreport/internal/infra/config"
	apperrors "github.com/asase/envreport/pkg/errors"
)

func TestRouter_CreateReportJSON(t *testing.T) {
	svc := &stubReports{
		createFn: func(_ context.Context, req report.CreateRequest) (report.Response, error) {
			require.Equal(t, report.CreateRequest{Location: "Lagos", Country: "Nigeria"}, req)
			return report.Response{Slug: "lagos-2025-03-04-1430", RiskScores: report.RiskScores{Flood: 7, Air: 6, LandHealth: 6}}, nil
		},
	}

	recorder := performRequest(t, newRouterUnderTest(t, svc, config.HTTPConfig{}), http.MethodPost, "/api/v1/reports", `{"location":"Lagos","country":"Nigeria"}`, "application/json")
	require.Equal(t, http.StatusCreated, recorder.Code)
	require.Equal(t, "/api/v1/reports/lagos-2025-03-04-1430", recorder.Header().Get("Location"))

	var got report.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, 7, got.RiskScores.Flood)
}

func TestRouter_CreateReportForm(t *testing.T) {
	svc := &stubReports{
		createFn: func(_ context.Context, req report.CreateRequest) (report.Response, error) {
			require.Equal(t, "Port Harcourt", req.Location)
			require.Equal(t, "Nigeria", req.Country)
			return report.Response{Slug: "port-harcourt-2025-03-04-1430"}, nil
		},
	}
	form := url.Values{"location": {"Port Harcourt"}, "country": {"Nigeria"}}.Encode()

	recorder := performRequest(t, newRouterUnderTest(t, svc, config.HTTPConfig{}), http.MethodPost, "/api/v1/reports", form, "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusCreated, recorder.Code)
}

func TestRouter_CreateReportErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing input", apperrors.Wrap(apperrors.CodeInvalidInput, "please provide both location and country to analyze", nil), http.StatusBadRequest, "invalid_request"},
		{"unresolved", apperrors.Wrap(apperrors.CodeNotFound, "location not found", nil), http.StatusNotFound, "not_found"},
		{"storage", apperrors.Wrap(apperrors.CodeStorage, "failed to save report", errors.New("db down")), http.StatusInternalServerError, "storage_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubReports{
				createFn: func(context.Context, report.CreateRequest) (report.Response, error) {
					return report.Response{}, tc.err
				},
			}
			recorder := performRequest(t, newRouterUnderTest(t, svc, config.HTTPConfig{}), http.MethodPost, "/api/v1/reports", `{"location":"x","country":"y"}`, "application/json")
			require.Equal(t, tc.status, recorder.Code)
			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tc.code, errBody["error"]["code"])
			require.NotEmpty(t, errBody["error"]["message"])
		})
	}
}

func TestRouter_CreateReportInvalidJSON(t *testing.T) {
	recorder := performRequest(t, newRouterUnderTest(t, &stubReports{}, config.HTTPConfig{}), http.MethodPost, "/api/v1/reports", `{"location":123}`, "application/json")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Equal(t, "invalid_request", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_GetReport(t *testing.T) {
	svc := &stubReports{
		getFn: func(_ context.Context, slug string) (report.Response, error) {
			if slug == "lagos-2025-03-04-1430" {
				return report.Response{Slug: slug}, nil
			}
			return report.Response{}, apperrors.Wrap(apperrors.CodeNotFound, "report not found", report.ErrSnapshotNotFound)
		},
	}
	server := newRouterUnderTest(t, svc, config.HTTPConfig{})

	recorder := performRequest(t, server, http.MethodGet, "/api/v1/reports/lagos-2025-03-04-1430", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = performRequest(t, server, http.MethodGet, "/api/v1/reports/unknown", "", "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRouter_ListReportsBindsQuery(t *testing.T) {
	svc := &stubReports{
		listFn: func(_ context.Context, req report.ListRequest) (report.ListResponse, error) {
			require.Equal(t, report.ListRequest{Location: "lag", Country: "nig", Page: 2, PageSize: 5}, req)
			return report.ListResponse{Page: 2, PageSize: 5, Total: 7, TotalPages: 2}, nil
		},
	}

	recorder := performRequest(t, newRouterUnderTest(t, svc, config.HTTPConfig{}), http.MethodGet, "/api/v1/reports?location=lag&country=nig&page=2&pageSize=5", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var got report.ListResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, 7, got.Total)
}

func TestRouter_LocationReportsUnescapesPath(t *testing.T) {
	svc := &stubReports{
		hubFn: func(_ context.Context, location string) (report.LocationHub, error) {
			require.Equal(t, "Port Harcourt", location)
			return report.LocationHub{LocationName: location}, nil
		},
	}

	recorder := performRequest(t, newRouterUnderTest(t, svc, config.HTTPConfig{}), http.MethodGet, "/api/v1/locations/Port%20Harcourt/reports", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_ListLocations(t *testing.T) {
	svc := &stubReports{
		distinctFn: func(context.Context) ([]report.Response, error) {
			return []report.Response{{Slug: "lagos-3"}, {Slug: "accra-1"}}, nil
		},
	}

	recorder := performRequest(t, newRouterUnderTest(t, svc, config.HTTPConfig{}), http.MethodGet, "/api/v1/locations", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Locations []report.Response `json:"locations"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Len(t, body.Locations, 2)
}

func TestRouter_HealthzAndMetrics(t *testing.T) {
	server := newRouterUnderTest(t, &stubReports{}, config.HTTPConfig{})

	recorder := performRequest(t, server, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = performRequest(t, server, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "router_test_probe")
}

func TestRouter_RateLimit(t *testing.T) {
	server := newRouterUnderTest(t, &stubReports{}, config.HTTPConfig{
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1},
	})

	recorder := performRequest(t, server, http.MethodGet, "/api/v1/locations", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = performRequest(t, server, http.MethodGet, "/api/v1/locations", "", "")
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "60", recorder.Header().Get("Retry-After"))
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_RetriesReadsOnly(t *testing.T) {
	var reads, creates int
	svc := &stubReports{
		getFn: func(_ context.Context, slug string) (report.Response, error) {
			reads++
			if reads == 1 {
				return report.Response{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load reports", errors.New("conn reset"))
			}
			return report.Response{Slug: slug}, nil
		},
		createFn: func(context.Context, report.CreateRequest) (report.Response, error) {
			creates++
			return report.Response{}, apperrors.Wrap(apperrors.CodeStorage, "failed to save report", errors.New("conn reset"))
		},
	}
	server := newRouterUnderTest(t, svc, config.HTTPConfig{
		Retry: config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond},
	})

	recorder := performRequest(t, server, http.MethodGet, "/api/v1/reports/lagos-1", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 2, reads)

	recorder = performRequest(t, server, http.MethodPost, "/api/v1/reports", `{"location":"Lagos","country":"Nigeria"}`, "application/json")
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, 1, creates)
}

func TestRouter_CORSPreflight(t *testing.T) {
	server := newRouterUnderTest(t, &stubReports{}, config.HTTPConfig{AllowedOrigins: []string{"https://asase.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports", nil)
	req.Header.Set("Origin", "https://asase.example")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://asase.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func performRequest(t *testing.T, server *http.Server, method, path, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, svc report.Service, httpCfg config.HTTPConfig) *http.Server {
	t.Helper()
	httpCfg.Address = ":0"
	httpCfg.ReadTimeout = time.Second
	httpCfg.WriteTimeout = time.Second

	registry := prometheus.NewRegistry()
	probe := prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_probe", Help: "probe"})
	registry.MustRegister(probe)
	probe.Inc()

	return NewRouter(&config.Config{HTTP: httpCfg}, NewHandler(svc, newTestLogger()), registry, clockwork.NewFakeClock())
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubReports struct {
	createFn   func(ctx context.Context, req report.CreateRequest) (report.Response, error)
	getFn      func(ctx context.Context, slug string) (report.Response, error)
	hubFn      func(ctx context.Context, location string) (report.LocationHub, error)
	distinctFn func(ctx context.Context) ([]report.Response, error)
	listFn     func(ctx context.Context, req report.ListRequest) (report.ListResponse, error)
}

func (s *stubReports) Create(ctx context.Context, req report.CreateRequest) (report.Response, error) {
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return report.Response{}, nil
}

func (s *stubReports) Get(ctx context.Context, slug string) (report.Response, error) {
	if s.getFn != nil {
		return s.getFn(ctx, slug)
	}
	return report.Response{}, nil
}

func (s *stubReports) ListForLocation(ctx context.Context, location string) (report.LocationHub, error) {
	if s.hubFn != nil {
		return s.hubFn(ctx, location)
	}
	return report.LocationHub{}, nil
}

func (s *stubReports) DistinctLocations(ctx context.Context) ([]report.Response, error) {
	if s.distinctFn != nil {
		return s.distinctFn(ctx)
	}
	return nil, nil
}

func (s *stubReports) List(ctx context.Context, req report.ListRequest) (report.ListResponse, error) {
	if s.listFn != nil {
		return s.listFn(ctx, req)
	}
	return report.ListResponse{}, nil
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

