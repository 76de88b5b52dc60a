package reportarchive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/asase/envreport/internal/domain/report"
)

const contentType = "application/json"

// ObjectStore is the blob backend the archive writes to.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Archive publishes snapshot documents under snapshots/<slug>.json.
type Archive struct {
	store  ObjectStore
	logger *slog.Logger
}

// New constructs an archive over store.
func New(store ObjectStore, logger *slog.Logger) *Archive {
	return &Archive{store: store, logger: logger.With("component", "reportarchive")}
}

// Key returns the object key a snapshot is published under.
func Key(slug string) string {
	return "snapshots/" + slug + ".json"
}

// Publish implements report.Archive.
func (a *Archive) Publish(ctx context.Context, snap report.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key := Key(snap.Slug)
	if err := a.store.Put(ctx, key, doc, contentType); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	a.logger.Debug("snapshot archived", "key", key, "bytes", len(doc))
	return nil
}

var _ report.Archive = (*Archive)(nil)
