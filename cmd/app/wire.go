//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/asase/envreport/internal/bootstrap"
	"github.com/asase/envreport/internal/domain/analysis"
	"github.com/asase/envreport/internal/domain/report"
	"github.com/asase/envreport/internal/infra/config"
	httpiface "github.com/asase/envreport/internal/interface/http"
	"github.com/asase/envreport/internal/observability"
	"github.com/asase/envreport/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideMetricsRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		observability.NewMetrics,
		provideClock,
		provideValkeyClient,
		provideGeocodingService,
		provideEnvironmentService,
		provideAnalysisConfig,
		provideChatClient,
		provideTokenCounter,
		analysis.NewService,
		provideReportConfig,
		provideReportRepository,
		provideReportArchive,
		report.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
