// Package postgres persists the merged database to a PostgreSQL server,
// mirroring the SQLite layout for deployments publishing the compiled
// database to a shared instance.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"swatch/internal/merge"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/swatch?sslmode=disable"
)

const ddl = `
CREATE TABLE IF NOT EXISTS sites (
	site_id           TEXT PRIMARY KEY,
	site_name         TEXT,
	site_type         TEXT,
	latitude          DOUBLE PRECISION,
	longitude         DOUBLE PRECISION,
	coordinate_system TEXT,
	state_province    TEXT,
	country           TEXT,
	catchment_name    TEXT,
	agency            TEXT,
	dataset           TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS methods (
	method_id   TEXT PRIMARY KEY,
	description TEXT,
	technique   TEXT,
	analyte     TEXT,
	first_used  TIMESTAMPTZ,
	last_used   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS samples (
	id          BIGSERIAL PRIMARY KEY,
	site_id     TEXT NOT NULL REFERENCES sites(site_id),
	method_id   TEXT REFERENCES methods(method_id),
	analyte     TEXT NOT NULL,
	fraction    TEXT,
	speciation  TEXT,
	value       DOUBLE PRECISION NOT NULL,
	unit        TEXT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	depth       DOUBLE PRECISION,
	below_limit BOOLEAN NOT NULL DEFAULT FALSE,
	status      TEXT,
	comment     TEXT,
	dataset     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS samples_site_analyte ON samples(site_id, analyte);
`

// Store writes merge results to PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN) and applies the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(defaultDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save replaces the database contents with the merge result in one
// transaction.
func (s *Store) Save(ctx context.Context, res merge.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{"DELETE FROM samples", "DELETE FROM sites", "DELETE FROM methods"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
	}
	for _, site := range res.Sites {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sites
			(site_id, site_name, site_type, latitude, longitude, coordinate_system,
			 state_province, country, catchment_name, agency, dataset)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			site.SiteID, site.Name, site.Type, nullFloat(site.Latitude),
			nullFloat(site.Longitude), site.CRS, site.StateProvince, site.Country,
			site.CatchmentName, site.Agency, site.Dataset); err != nil {
			return fmt.Errorf("insert site %s: %w", site.SiteID, err)
		}
	}
	for _, m := range res.Methods {
		if _, err := tx.ExecContext(ctx, `INSERT INTO methods
			(method_id, description, technique, analyte, first_used, last_used)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			m.MethodID, m.Description, m.Technique, m.Analyte,
			nullTime(m.FirstUsed), nullTime(m.LastUsed)); err != nil {
			return fmt.Errorf("insert method %s: %w", m.MethodID, err)
		}
	}
	for i, sm := range res.Samples {
		if _, err := tx.ExecContext(ctx, `INSERT INTO samples
			(site_id, method_id, analyte, fraction, speciation, value, unit, ts,
			 depth, below_limit, status, comment, dataset)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			sm.SiteID, nullString(sm.MethodID), sm.Analyte, sm.Fraction,
			sm.Speciation, sm.Value, sm.Unit, sm.Timestamp.UTC(),
			nullFloat(sm.Depth), sm.BelowLimit, sm.Status, sm.Comment,
			sm.Dataset); err != nil {
			return fmt.Errorf("insert sample %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func nullFloat(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
