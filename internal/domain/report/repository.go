package report

import "context"

// Repository persists snapshots. Implementations must make Insert atomic
// with respect to slug uniqueness.
type Repository interface {
	// Insert stores snap, assigning an ID when it has none. It fails with
	// ErrSlugTaken when another snapshot already owns snap.Slug.
	Insert(ctx context.Context, snap Snapshot) (Snapshot, error)
	GetBySlug(ctx context.Context, slug string) (Snapshot, error)
	// ListByLocation matches the location name case-insensitively, newest first.
	ListByLocation(ctx context.Context, location string) ([]Snapshot, error)
	// DistinctLocations returns the newest snapshot per normalized
	// (location, country) pair, newest first.
	DistinctLocations(ctx context.Context) ([]Snapshot, error)
	// List returns one page of snapshots, newest first, plus the total match count.
	List(ctx context.Context, filter ListFilter) ([]Snapshot, int, error)
}

// Archive publishes finished snapshots to long-term storage.
type Archive interface {
	Publish(ctx context.Context, snap Snapshot) error
}
