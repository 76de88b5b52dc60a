package reportrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asase/envreport/internal/domain/report"
)

const uniqueViolation = "23505"

// Schema creates the snapshot table. seq breaks created_at ties.
const Schema = `
CREATE TABLE IF NOT EXISTS report_snapshots (
	seq              BIGSERIAL,
	id               UUID PRIMARY KEY,
	location_name    TEXT NOT NULL,
	country          TEXT NOT NULL,
	latitude         DOUBLE PRECISION NOT NULL,
	longitude        DOUBLE PRECISION NOT NULL,
	risk_scores      JSONB NOT NULL,
	ai_analysis_text TEXT NOT NULL,
	raw_data         JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	slug             TEXT NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS report_snapshots_location_idx
	ON report_snapshots (lower(btrim(location_name)), created_at DESC);
CREATE INDEX IF NOT EXISTS report_snapshots_created_idx
	ON report_snapshots (created_at DESC, seq DESC);
`

const snapshotColumns = `id, location_name, country, latitude, longitude, risk_scores, ai_analysis_text, raw_data, created_at, slug`

// PostgresRepository implements report.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the table and indexes when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}

// Insert relies on the slug UNIQUE constraint for atomicity. created_at is
// raised to the newest stored value so it never runs backwards.
func (r *PostgresRepository) Insert(ctx context.Context, snap report.Snapshot) (report.Snapshot, error) {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	scores, err := json.Marshal(snap.RiskScores)
	if err != nil {
		return report.Snapshot{}, fmt.Errorf("encode risk scores: %w", err)
	}
	raw, err := json.Marshal(snap.RawData)
	if err != nil {
		return report.Snapshot{}, fmt.Errorf("encode raw data: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO report_snapshots (`+snapshotColumns+`)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8,
			GREATEST($9::timestamptz, COALESCE((SELECT max(created_at) FROM report_snapshots), $9::timestamptz)),
			$10
		RETURNING `+snapshotColumns,
		snap.ID, snap.LocationName, snap.Country, snap.Latitude, snap.Longitude,
		scores, snap.AnalysisText, raw, snap.CreatedAt, snap.Slug)
	saved, err := scanSnapshot(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return report.Snapshot{}, report.ErrSlugTaken
		}
		return report.Snapshot{}, err
	}
	return saved, nil
}

// GetBySlug implements report.Repository.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (report.Snapshot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM report_snapshots
		WHERE slug = $1
	`, slug)
	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return report.Snapshot{}, report.ErrSnapshotNotFound
	}
	return snap, err
}

// ListByLocation implements report.Repository.
func (r *PostgresRepository) ListByLocation(ctx context.Context, location string) ([]report.Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+snapshotColumns+`
		FROM report_snapshots
		WHERE lower(btrim(location_name)) = lower(btrim($1))
		ORDER BY created_at DESC, seq DESC
	`, location)
	if err != nil {
		return nil, err
	}
	return collectSnapshots(rows)
}

// DistinctLocations implements report.Repository.
func (r *PostgresRepository) DistinctLocations(ctx context.Context) ([]report.Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+snapshotColumns+` FROM (
			SELECT DISTINCT ON (lower(btrim(location_name)), lower(btrim(country))) seq, `+snapshotColumns+`
			FROM report_snapshots
			ORDER BY lower(btrim(location_name)), lower(btrim(country)), created_at DESC, seq DESC
		) newest
		ORDER BY created_at DESC, seq DESC
	`)
	if err != nil {
		return nil, err
	}
	return collectSnapshots(rows)
}

// List implements report.Repository.
func (r *PostgresRepository) List(ctx context.Context, filter report.ListFilter) ([]report.Snapshot, int, error) {
	where, args := listConditions(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM report_snapshots`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + snapshotColumns + ` FROM report_snapshots` + where + ` ORDER BY created_at DESC, seq DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	snaps, err := collectSnapshots(rows)
	if err != nil {
		return nil, 0, err
	}
	return snaps, total, nil
}

func listConditions(filter report.ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if v := strings.TrimSpace(filter.Location); v != "" {
		args = append(args, "%"+escapeLike(v)+"%")
		clauses = append(clauses, fmt.Sprintf("location_name ILIKE $%d", len(args)))
	}
	if v := strings.TrimSpace(filter.Country); v != "" {
		args = append(args, "%"+escapeLike(v)+"%")
		clauses = append(clauses, fmt.Sprintf("country ILIKE $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (report.Snapshot, error) {
	var (
		snap   report.Snapshot
		scores []byte
		raw    []byte
	)
	if err := row.Scan(&snap.ID, &snap.LocationName, &snap.Country, &snap.Latitude, &snap.Longitude,
		&scores, &snap.AnalysisText, &raw, &snap.CreatedAt, &snap.Slug); err != nil {
		return report.Snapshot{}, err
	}
	if err := json.Unmarshal(scores, &snap.RiskScores); err != nil {
		return report.Snapshot{}, fmt.Errorf("decode risk scores: %w", err)
	}
	if err := json.Unmarshal(raw, &snap.RawData); err != nil {
		return report.Snapshot{}, fmt.Errorf("decode raw data: %w", err)
	}
	snap.CreatedAt = snap.CreatedAt.UTC()
	return snap, nil
}

func collectSnapshots(rows pgx.Rows) ([]report.Snapshot, error) {
	defer rows.Close()
	var out []report.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

var _ report.Repository = (*PostgresRepository)(nil)
