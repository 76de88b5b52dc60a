package reportrepo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asase/envreport/internal/domain/report"
)

// MemoryRepository is an in-memory report.Repository used for tests/dev.
type MemoryRepository struct {
	mu sync.RWMutex

	// rows are kept in insertion order; created_at never decreases along it.
	rows   []report.Snapshot
	bySlug map[string]int
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bySlug: make(map[string]int)}
}

// Insert implements report.Repository.
func (r *MemoryRepository) Insert(_ context.Context, snap report.Snapshot) (report.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.bySlug[snap.Slug]; taken {
		return report.Snapshot{}, report.ErrSlugTaken
	}
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	if n := len(r.rows); n > 0 && snap.CreatedAt.Before(r.rows[n-1].CreatedAt) {
		snap.CreatedAt = r.rows[n-1].CreatedAt
	}
	r.bySlug[snap.Slug] = len(r.rows)
	r.rows = append(r.rows, snap)
	return snap, nil
}

// GetBySlug implements report.Repository.
func (r *MemoryRepository) GetBySlug(_ context.Context, slug string) (report.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.bySlug[slug]
	if !ok {
		return report.Snapshot{}, report.ErrSnapshotNotFound
	}
	return r.rows[idx], nil
}

// ListByLocation implements report.Repository.
func (r *MemoryRepository) ListByLocation(_ context.Context, location string) ([]report.Snapshot, error) {
	key := normalize(location)
	var out []report.Snapshot
	r.eachNewestFirst(func(snap report.Snapshot) {
		if normalize(snap.LocationName) == key {
			out = append(out, snap)
		}
	})
	return out, nil
}

// DistinctLocations implements report.Repository.
func (r *MemoryRepository) DistinctLocations(_ context.Context) ([]report.Snapshot, error) {
	type pair struct{ location, country string }
	seen := make(map[pair]struct{})
	var out []report.Snapshot
	r.eachNewestFirst(func(snap report.Snapshot) {
		key := pair{normalize(snap.LocationName), normalize(snap.Country)}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, snap)
	})
	return out, nil
}

// List implements report.Repository.
func (r *MemoryRepository) List(_ context.Context, filter report.ListFilter) ([]report.Snapshot, int, error) {
	location := normalize(filter.Location)
	country := normalize(filter.Country)
	var matched []report.Snapshot
	r.eachNewestFirst(func(snap report.Snapshot) {
		if location != "" && !strings.Contains(strings.ToLower(snap.LocationName), location) {
			return
		}
		if country != "" && !strings.Contains(strings.ToLower(snap.Country), country) {
			return
		}
		matched = append(matched, snap)
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepository) eachNewestFirst(fn func(report.Snapshot)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		fn(r.rows[i])
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var _ report.Repository = (*MemoryRepository)(nil)
