package report

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/asase/envreport/internal/domain/environment"
)

var (
	// ErrSnapshotNotFound is returned by repositories when no snapshot matches.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrSlugTaken is returned by Insert when the slug already exists.
	ErrSlugTaken = errors.New("snapshot slug already taken")
)

// RiskScores are the three published scores of a report.
type RiskScores struct {
	Flood      int `json:"flood"`
	Air        int `json:"air"`
	LandHealth int `json:"land_health"`
}

// Snapshot is an immutable, persisted report.
type Snapshot struct {
	ID           uuid.UUID           `json:"id"`
	LocationName string              `json:"location_name"`
	Country      string              `json:"country"`
	Latitude     float64             `json:"latitude"`
	Longitude    float64             `json:"longitude"`
	RiskScores   RiskScores          `json:"risk_scores"`
	AnalysisText string              `json:"ai_analysis_text"`
	RawData      environment.Signals `json:"raw_data"`
	CreatedAt    time.Time           `json:"created_at"`
	Slug         string              `json:"slug"`
}

// ListFilter narrows the full listing. Location and Country match as
// case-insensitive substrings.
type ListFilter struct {
	Location string
	Country  string
	Offset   int
	Limit    int
}

// Config wires runtime knobs for the pipeline and listings.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	// MaxSlugAttempts bounds the suffixes tried when a slug is taken.
	MaxSlugAttempts int
}

func (c Config) withDefaults() Config {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 12
	}
	if c.MaxPageSize < c.DefaultPageSize {
		c.MaxPageSize = c.DefaultPageSize
	}
	if c.MaxSlugAttempts <= 0 {
		c.MaxSlugAttempts = 50
	}
	return c
}
