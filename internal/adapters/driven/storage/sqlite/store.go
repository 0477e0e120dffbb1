package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lookalike/internal/adapters/driven/storage/featuresql"
	"github.com/custodia-labs/lookalike/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

// DatabaseFile is the file name of the database inside the data directory.
const DatabaseFile = "features.db"

// Ensure Store implements the interface.
var _ driven.FeatureStore = (*Store)(nil)

// Store is a SQLite-backed feature table.
type Store struct {
	db    *sql.DB
	path  string
	table string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.lookalike/data/features.db.
// An empty table means the default product_features table.
func NewStore(dataDir, table string) (*Store, error) {
	if table == "" {
		table = domain.DefaultTable
	}
	if err := featuresql.ValidateTable(table); err != nil {
		return nil, err
	}

	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lookalike", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode so the server can read while a writer saves
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:    db,
		path:  dbPath,
		table: table,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Table returns the feature table name.
func (s *Store) Table() string {
	return s.table
}

// FetchAll returns every row in insertion order.
func (s *Store) FetchAll(ctx context.Context) ([]domain.FeatureRow, error) {
	return featuresql.FetchAll(ctx, s.db, s.table, "rowid")
}

// Save upserts rows by image id.
func (s *Store) Save(ctx context.Context, rows []domain.FeatureRow) error {
	upsert := `INSERT INTO ` + s.table + ` (image_id, features) VALUES (?, ?)
		ON CONFLICT(image_id) DO UPDATE SET features = excluded.features`
	return featuresql.SaveAll(ctx, s.db, upsert, rows)
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	return featuresql.Count(ctx, s.db, s.table)
}

// ensureTable creates a non-default feature table with the default schema.
func (s *Store) ensureTable() error {
	if s.table == domain.DefaultTable {
		return nil
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + s.table + ` (
		image_id TEXT PRIMARY KEY,
		features TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_product_features.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
