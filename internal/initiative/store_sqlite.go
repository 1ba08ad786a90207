package initiative

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on modernc.org/sqlite for local and dev
// runs. Proximity checks use a bounding-box prefilter in SQL and a
// haversine distance in Go, since SQLite has no spatial types.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database at the given DSN.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "initiative: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			_ = sqlDB.Close()
			return nil, eris.Wrapf(err, "initiative: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS initiatives (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id     INTEGER NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	category      TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	address       TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	opening_hours TEXT NOT NULL DEFAULT '',
	longitude     REAL NOT NULL CHECK (longitude BETWEEN -180 AND 180),
	latitude      REAL NOT NULL CHECK (latitude BETWEEN -90 AND 90),
	verified      INTEGER NOT NULL DEFAULT 0,
	social_links  TEXT NOT NULL DEFAULT '{}',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_initiatives_category ON initiatives(category);
CREATE INDEX IF NOT EXISTS idx_initiatives_latlon ON initiatives(latitude, longitude);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	counts      TEXT,
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);
`

// Migrate implements Store.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "initiative: migrate sqlite")
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, in *Initiative) (int64, error) {
	links, err := marshalLinks(in.SocialLinks)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO initiatives (source_id, name, category, description, address, website, phone, email, opening_hours, longitude, latitude, verified, social_links, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.SourceID, in.Name, in.Category.String(), in.Description, in.Address,
		in.Website, in.Phone, in.Email, in.OpeningHours,
		in.Longitude, in.Latitude, in.Verified, string(links), now, now,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "constraint") {
			return 0, eris.Wrapf(ErrConstraint, "insert source_id %d: %v", in.SourceID, err)
		}
		return 0, eris.Wrap(err, "initiative: insert")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "initiative: last insert id")
	}
	in.ID = id
	in.CreatedAt = now
	in.UpdatedAt = now
	return id, nil
}

// UpdateSocialLinks implements Store.
func (s *SQLiteStore) UpdateSocialLinks(ctx context.Context, id int64, links map[string]string) error {
	raw, err := marshalLinks(links)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE initiatives SET social_links = ?, updated_at = datetime('now') WHERE id = ?`,
		string(raw), id,
	)
	if err != nil {
		return eris.Wrap(err, "initiative: update social links")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "initiative: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %d", id)
	}
	return nil
}

const earthRadiusMeters = 6371000.0

// haversineMeters returns the great-circle distance between two WGS84
// points.
func haversineMeters(lon1, lat1, lon2, lat2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// CountNear implements Store. A degree-box prefilter keeps the scan cheap;
// the exact decision is haversine per candidate.
func (s *SQLiteStore) CountNear(ctx context.Context, lon, lat float64, radiusMeters float64) (int, error) {
	dLat := radiusMeters / 111320.0
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := radiusMeters / (111320.0 * cosLat)

	rows, err := s.db.QueryContext(ctx, `
		SELECT longitude, latitude FROM initiatives
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`,
		lat-dLat, lat+dLat, lon-dLon, lon+dLon,
	)
	if err != nil {
		return 0, eris.Wrap(err, "initiative: count near")
	}
	defer func() { _ = rows.Close() }()

	count := 0
	for rows.Next() {
		var cLon, cLat float64
		if err := rows.Scan(&cLon, &cLat); err != nil {
			return 0, eris.Wrap(err, "initiative: scan near row")
		}
		if haversineMeters(lon, lat, cLon, cLat) <= radiusMeters {
			count++
		}
	}
	return count, rows.Err()
}

const sqliteInitiativeColumns = `id, source_id, name, category, description, address, website,
	       phone, email, opening_hours, longitude, latitude, verified,
	       social_links, created_at, updated_at`

// ListEnrichable implements Store.
func (s *SQLiteStore) ListEnrichable(ctx context.Context, limit int) ([]Initiative, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteInitiativeColumns+`
		FROM initiatives
		WHERE website <> '' AND social_links = '{}'
		ORDER BY id
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "initiative: list enrichable")
	}
	defer func() { _ = rows.Close() }()
	return scanSQLiteInitiatives(rows)
}

// ListByCategory implements Store.
func (s *SQLiteStore) ListByCategory(ctx context.Context, category Category, limit int) ([]Initiative, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteInitiativeColumns+`
		FROM initiatives
		WHERE category = ?
		ORDER BY id
		LIMIT ?`, category.String(), limit)
	if err != nil {
		return nil, eris.Wrap(err, "initiative: list by category")
	}
	defer func() { _ = rows.Close() }()
	return scanSQLiteInitiatives(rows)
}

// CountByCategory implements Store.
func (s *SQLiteStore) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM initiatives GROUP BY category`)
	if err != nil {
		return nil, eris.Wrap(err, "initiative: count by category")
	}
	defer func() { _ = rows.Close() }()

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
func (s *SQLiteStore) CountEnrichable(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM initiatives WHERE website <> '' AND social_links = '{}'`,
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "initiative: count enrichable")
	}
	return count, nil
}

// StartRun implements Store.
func (s *SQLiteStore) StartRun(ctx context.Context, runID, kind string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, kind, status) VALUES (?, ?, 'running')`,
		runID, kind,
	)
	return eris.Wrap(err, "initiative: start run")
}

// CompleteRun implements Store.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, counts map[string]int) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "initiative: marshal run counts")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = 'complete', counts = ?, finished_at = datetime('now') WHERE id = ?`,
		string(raw), runID,
	)
	return eris.Wrap(err, "initiative: complete run")
}

// FailRun implements Store.
func (s *SQLiteStore) FailRun(ctx context.Context, runID, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = 'failed', error = ?, finished_at = datetime('now') WHERE id = ?`,
		message, runID,
	)
	return eris.Wrap(err, "initiative: fail run")
}

func scanSQLiteInitiatives(rows *sql.Rows) ([]Initiative, error) {
	var out []Initiative
	for rows.Next() {
		var in Initiative
		var category, links string
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
		var parsed map[string]string
		if err := json.Unmarshal([]byte(links), &parsed); err != nil {
			return nil, eris.Wrap(err, "initiative: unmarshal social links")
		}
		if len(parsed) > 0 {
			in.SocialLinks = parsed
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
