package reportarchive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asase/envreport/internal/domain/environment"
	"github.com/asase/envreport/internal/domain/report"
)

func TestPublishWritesSnapshotDocument(t *testing.T) {
	store := NewMemoryStore()
	archive := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	snap := report.Snapshot{
		LocationName: "Lagos",
		Country:      "Nigeria",
		Slug:         "lagos-2025-03-04-1430",
		RiskScores:   report.RiskScores{Flood: 7, Air: 6, LandHealth: 6},
		RawData:      environment.Signals{PrecipitationForecast: 65, RecentRainTrend: 12.5, Elevation: 30, NDVI: 0.65},
		CreatedAt:    time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC),
	}

	require.NoError(t, archive.Publish(context.Background(), snap))

	data, ok := store.Object("snapshots/lagos-2025-03-04-1430.json")
	require.True(t, ok)
	var decoded report.Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, snap, decoded)
}

func TestPublishReportsStoreFailure(t *testing.T) {
	archive := New(failingStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := archive.Publish(context.Background(), report.Snapshot{Slug: "x"})
	require.ErrorContains(t, err, "snapshots/x.json")
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "acct.r2.cloudflarestorage.com", sanitizeEndpoint("https://acct.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint(" http://localhost:9000 "))
	require.Equal(t, "minio:9000", sanitizeEndpoint("minio:9000"))
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte, string) error {
	return errors.New("access denied")
}
