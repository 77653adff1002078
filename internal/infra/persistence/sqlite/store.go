// Package sqlite persists the merged database to an embedded SQLite file:
// three relational tables (sites, samples, methods) with real foreign keys,
// so the post-merge referential invariant is also enforced by the engine.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"swatch/internal/merge"
	"swatch/pkg/canonical"
)

// Store writes merge results to a SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

const ddl = `
CREATE TABLE IF NOT EXISTS sites (
	site_id           TEXT PRIMARY KEY,
	site_name         TEXT,
	site_type         TEXT,
	latitude          REAL,
	longitude         REAL,
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
	first_used  TEXT,
	last_used   TEXT
);
CREATE TABLE IF NOT EXISTS samples (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	site_id     TEXT NOT NULL REFERENCES sites(site_id),
	method_id   TEXT REFERENCES methods(method_id),
	analyte     TEXT NOT NULL,
	fraction    TEXT,
	speciation  TEXT,
	value       REAL NOT NULL,
	unit        TEXT NOT NULL,
	ts          TEXT NOT NULL,
	depth       REAL,
	below_limit INTEGER NOT NULL DEFAULT 0,
	status      TEXT,
	comment     TEXT,
	dataset     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS samples_site_analyte ON samples(site_id, analyte);
`

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "swatch.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Save replaces the database contents with the merge result in one
// transaction. Insert order respects the foreign keys: sites and methods
// first, samples last.
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
	if err := insertSites(ctx, tx, res.Sites); err != nil {
		return err
	}
	if err := insertMethods(ctx, tx, res.Methods); err != nil {
		return err
	}
	if err := insertSamples(ctx, tx, res.Samples); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertSites(ctx context.Context, tx *sql.Tx, sites []canonical.Site) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sites
		(site_id, site_name, site_type, latitude, longitude, coordinate_system,
		 state_province, country, catchment_name, agency, dataset)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare sites: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, site := range sites {
		if _, err := stmt.ExecContext(ctx, site.SiteID, site.Name, site.Type,
			nullFloat(site.Latitude), nullFloat(site.Longitude), site.CRS,
			site.StateProvince, site.Country, site.CatchmentName, site.Agency,
			site.Dataset); err != nil {
			return fmt.Errorf("insert site %s: %w", site.SiteID, err)
		}
	}
	return nil
}

func insertMethods(ctx context.Context, tx *sql.Tx, methods []canonical.Method) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO methods
		(method_id, description, technique, analyte, first_used, last_used)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare methods: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, m := range methods {
		if _, err := stmt.ExecContext(ctx, m.MethodID, m.Description, m.Technique,
			m.Analyte, timeText(m.FirstUsed), timeText(m.LastUsed)); err != nil {
			return fmt.Errorf("insert method %s: %w", m.MethodID, err)
		}
	}
	return nil
}

func insertSamples(ctx context.Context, tx *sql.Tx, samples []canonical.Sample) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO samples
		(site_id, method_id, analyte, fraction, speciation, value, unit, ts,
		 depth, below_limit, status, comment, dataset)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare samples: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for i, s := range samples {
		if _, err := stmt.ExecContext(ctx, s.SiteID, nullString(s.MethodID),
			s.Analyte, s.Fraction, s.Speciation, s.Value, s.Unit,
			s.Timestamp.UTC().Format(time.RFC3339), nullFloat(s.Depth),
			s.BelowLimit, s.Status, s.Comment, s.Dataset); err != nil {
			return fmt.Errorf("insert sample %d: %w", i, err)
		}
	}
	return nil
}

// Counts returns the row counts of the three tables, primarily for the run
// summary and tests.
func (s *Store) Counts(ctx context.Context) (sites, samples, methods int, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sites").Scan(&sites); err != nil {
		return
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM samples").Scan(&samples); err != nil {
		return
	}
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM methods").Scan(&methods)
	return
}

// DB exposes the underlying handle for integration tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
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

func timeText(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
