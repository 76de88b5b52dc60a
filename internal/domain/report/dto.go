package report

import (
	"time"

	"github.com/asase/envreport/internal/domain/analysis"
	"github.com/asase/envreport/internal/domain/environment"
	"github.com/asase/envreport/pkg/metrics"
)

// CreateRequest is the inbound "create report" payload.
type CreateRequest struct {
	Location string `json:"location" form:"location"`
	Country  string `json:"country" form:"country"`
}

// ListRequest selects one page of the full listing.
type ListRequest struct {
	Location string `form:"location"`
	Country  string `form:"country"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// RiskColors are the display colors for each score.
type RiskColors struct {
	Flood      string `json:"flood"`
	Air        string `json:"air"`
	LandHealth string `json:"land_health"`
}

// Response is a snapshot decorated for presentation.
type Response struct {
	Slug         string              `json:"slug"`
	LocationName string              `json:"location_name"`
	Country      string              `json:"country"`
	Latitude     float64             `json:"latitude"`
	Longitude    float64             `json:"longitude"`
	RiskScores   RiskScores          `json:"risk_scores"`
	RiskColors   RiskColors          `json:"risk_colors"`
	Analysis     *analysis.Report    `json:"analysis,omitempty"`
	AnalysisText string              `json:"ai_analysis_text"`
	RawData      environment.Signals `json:"raw_data"`
	CreatedAt    time.Time           `json:"created_at"`
	TokenUsage   *metrics.TokenUsage `json:"token_usage,omitempty"`
}

// ListResponse is one page of snapshots.
type ListResponse struct {
	Items      []Response `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
}

// LocationHub groups every snapshot for one location.
type LocationHub struct {
	LocationName string     `json:"location_name"`
	Country      string     `json:"country"`
	Latest       Response   `json:"latest"`
	Reports      []Response `json:"reports"`
}

func colorsFor(scores RiskScores) RiskColors {
	return RiskColors{
		Flood:      environment.RiskColor(scores.Flood),
		Air:        environment.RiskColor(scores.Air),
		LandHealth: environment.RiskColor(scores.LandHealth),
	}
}

func newResponse(snap Snapshot) Response {
	return Response{
		Slug:         snap.Slug,
		LocationName: snap.LocationName,
		Country:      snap.Country,
		Latitude:     snap.Latitude,
		Longitude:    snap.Longitude,
		RiskScores:   snap.RiskScores,
		RiskColors:   colorsFor(snap.RiskScores),
		AnalysisText: snap.AnalysisText,
		RawData:      snap.RawData,
		CreatedAt:    snap.CreatedAt,
	}
}

func newResponses(snaps []Snapshot) []Response {
	out := make([]Response, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, newResponse(snap))
	}
	return out
}
