package initiative

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/transition-map/initiative-cli/internal/db"
)

// PostgresStore implements Store on a Postgres pool with PostGIS.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS initiatives (
	id            BIGSERIAL PRIMARY KEY,
	source_id     BIGINT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	category      TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	address       TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	opening_hours TEXT NOT NULL DEFAULT '',
	geom          GEOGRAPHY(POINT, 4326) NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
	latitude      DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
	verified      BOOLEAN NOT NULL DEFAULT false,
	social_links  JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_initiatives_category ON initiatives(category);
CREATE INDEX IF NOT EXISTS idx_initiatives_geom ON initiatives USING GIST(geom);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	counts      JSONB,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);
`

// Migrate implements Store.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "initiative: migrate postgres")
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const initiativeColumns = `id, source_id, name, category, description, address, website,
	       phone, email, opening_hours, longitude, latitude, verified,
	       social_links, created_at, updated_at`

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, in *Initiative) (int64, error) {
	sql := `
		INSERT INTO initiatives (source_id, name, category, description, address, website, phone, email, opening_hours, geom, longitude, latitude, verified, social_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, ST_SetSRID(ST_MakePoint($10, $11), 4326)::geography, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`
	links, err := marshalLinks(in.SocialLinks)
	if err != nil {
		return 0, err
	}
	err = s.pool.QueryRow(ctx, sql,
		in.SourceID, in.Name, in.Category.String(), in.Description, in.Address,
		in.Website, in.Phone, in.Email, in.OpeningHours,
		in.Longitude, in.Latitude, in.Verified, links,
	).Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
			return 0, eris.Wrapf(ErrConstraint, "insert source_id %d: %s", in.SourceID, pgErr.Message)
		}
		return 0, eris.Wrap(err, "initiative: insert")
	}
	return in.ID, nil
}

// UpdateSocialLinks implements Store.
func (s *PostgresStore) UpdateSocialLinks(ctx context.Context, id int64, links map[string]string) error {
	raw, err := marshalLinks(links)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE initiatives SET social_links = $1, updated_at = now() WHERE id = $2`,
		raw, id,
	)
	if err != nil {
		return eris.Wrap(err, "initiative: update social links")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %d", id)
	}
	return nil
}

// CountNear implements Store using ST_DWithin over the geography column.
func (s *PostgresStore) CountNear(ctx context.Context, lon, lat float64, radiusMeters float64) (int, error) {
	sql := `
		SELECT COUNT(*) FROM initiatives
		WHERE ST_DWithin(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
	`
	var count int
	if err := s.pool.QueryRow(ctx, sql, lon, lat, radiusMeters).Scan(&count); err != nil {
		return 0, eris.Wrap(err, "initiative: count near")
	}
	return count, nil
}

// ListEnrichable implements Store.
func (s *PostgresStore) ListEnrichable(ctx context.Context, limit int) ([]Initiative, error) {
	sql := `
		SELECT ` + initiativeColumns + `
		FROM initiatives
		WHERE website <> '' AND social_links = '{}'::jsonb
		ORDER BY id
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, eris.Wrap(err, "initiative: list enrichable")
	}
	defer rows.Close()
	return scanInitiatives(rows)
}

// ListByCategory implements Store.
func (s *PostgresStore) ListByCategory(ctx context.Context, category Category, limit int) ([]Initiative, error) {
	sql := `
		SELECT ` + initiativeColumns + `
		FROM initiatives
		WHERE category = $1
		ORDER BY id
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, sql, category.String(), limit)
	if err != nil {
		return nil, eris.Wrap(err, "initiative: list by category")
	}
	defer rows.Close()
	return scanInitiatives(rows)
}

// CountByCategory implements Store.
func (s *PostgresStore) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT category, COUNT(*) FROM initiatives GROUP BY category`)
	if err != nil {
		return nil, eris.Wrap(err, "initiative: count by category")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, eris.Wrap(err, "initiative: scan category count")
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// CountEnrichable implements Store.
func (s *PostgresStore) CountEnrichable(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM initiatives WHERE website <> '' AND social_links = '{}'::jsonb`,
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "initiative: count enrichable")
	}
	return count, nil
}

// StartRun implements Store.
func (s *PostgresStore) StartRun(ctx context.Context, runID, kind string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, kind, status) VALUES ($1, $2, 'running')`,
		runID, kind,
	)
	return eris.Wrap(err, "initiative: start run")
}

// CompleteRun implements Store.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, counts map[string]int) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "initiative: marshal run counts")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE ingest_runs SET status = 'complete', counts = $1, finished_at = now() WHERE id = $2`,
		raw, runID,
	)
	return eris.Wrap(err, "initiative: complete run")
}

// FailRun implements Store.
func (s *PostgresStore) FailRun(ctx context.Context, runID, message string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs SET status = 'failed', error = $1, finished_at = now() WHERE id = $2`,
		message, runID,
	)
	return eris.Wrap(err, "initiative: fail run")
}

// scanInitiatives drains rows into Initiative values.
func scanInitiatives(rows pgx.Rows) ([]Initiative, error) {
	var out []Initiative
	for rows.Next() {
		var in Initiative
		var category string
		var links []byte
		if err := rows.Scan(
			&in.ID, &in.SourceID, &in.Name, &category, &in.Description, &in.Address,
			&in.Website, &in.Phone, &in.Email, &in.OpeningHours,
			&in.Longitude, &in.Latitude, &in.Verified,
			&links, &in.CreatedAt, &in.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "initiative: scan row")
		}
		cat, err := ParseCategory(category)
		if err != nil {
			return nil, err
		}
		in.Category = cat
		if in.SocialLinks, err = unmarshalLinks(links); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// marshalLinks encodes a social link map as JSON, defaulting to "{}".
func marshalLinks(links map[string]string) ([]byte, error) {
	if len(links) == 0 {
		return []byte(`{}`), nil
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return nil, eris.Wrap(err, "initiative: marshal social links")
	}
	return raw, nil
}

// unmarshalLinks decodes the social link JSON; empty objects come back nil.
func unmarshalLinks(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var links map[string]string
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, eris.Wrap(err, "initiative: unmarshal social links")
	}
	if len(links) == 0 {
		return nil, nil
	}
	return links, nil
}
