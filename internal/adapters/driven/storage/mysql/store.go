// Package mysql provides a MySQL implementation of driven.FeatureStore.
//
// It reads the product_features table written by the storefront, where
// image_id may be an integer column and features a TEXT or JSON column.
// The table is never created here; its schema belongs to the storefront.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/custodia-labs/lookalike/internal/adapters/driven/storage/featuresql"
	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.FeatureStore = (*Store)(nil)

// Connection pool defaults.
const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	dialTimeout     = 10 * time.Second
)

// Store is a MySQL-backed feature table.
type Store struct {
	db    *sql.DB
	table string
}

// NewStore connects to the database described by dsn
// (e.g. "user:pass@tcp(localhost:3306)/shop").
func NewStore(ctx context.Context, dsn, table string) (*Store, error) {
	if table == "" {
		table = domain.DefaultTable
	}
	if err := featuresql.ValidateTable(table); err != nil {
		return nil, err
	}

	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to mysql at %s: %w", cfg.Addr, err)
	}

	return &Store{db: db, table: table}, nil
}

// ParseDSN parses dsn and applies the store's connection defaults.
func ParseDSN(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: mysql dsn is empty", domain.ErrInvalidInput)
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing mysql dsn: %w", domain.ErrInvalidInput, err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = dialTimeout
	}
	cfg.ParseTime = true
	return cfg, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Table returns the feature table name.
func (s *Store) Table() string {
	return s.table
}

// FetchAll returns every row in primary key order.
func (s *Store) FetchAll(ctx context.Context) ([]domain.FeatureRow, error) {
	return featuresql.FetchAll(ctx, s.db, s.table, "image_id")
}

// Save upserts rows by image id. The table needs a unique key on image_id.
func (s *Store) Save(ctx context.Context, rows []domain.FeatureRow) error {
	upsert := "INSERT INTO " + s.table + " (image_id, features) VALUES (?, ?) " +
		"ON DUPLICATE KEY UPDATE features = VALUES(features)"
	return featuresql.SaveAll(ctx, s.db, upsert, rows)
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	return featuresql.Count(ctx, s.db, s.table)
}
