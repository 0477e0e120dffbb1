// Package featuresql holds the database/sql queries shared by the SQL
// feature stores. Dialect-specific statements stay in each store.
package featuresql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidateTable rejects names that cannot be used as a bare identifier.
// Table names are interpolated into SQL, so only plain identifiers pass.
func ValidateTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidInput, name)
	}
	return nil
}

// FetchAll reads every (image_id, features) row of table.
// NULL features are returned as empty strings and later skipped as malformed.
func FetchAll(ctx context.Context, db *sql.DB, table, orderBy string) ([]domain.FeatureRow, error) {
	query := "SELECT image_id, features FROM " + table
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var result []domain.FeatureRow
	for rows.Next() {
		var (
			id       string
			features sql.NullString
		)
		if err := rows.Scan(&id, &features); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		result = append(result, domain.FeatureRow{ImageID: id, Encoded: features.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return result, nil
}

// Count returns the number of rows in table.
func Count(ctx context.Context, db *sql.DB, table string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// SaveAll runs upsert once per row inside a single transaction.
// upsert must take (image_id, features) placeholders in that order.
func SaveAll(ctx context.Context, db *sql.DB, upsert string, rows []domain.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ImageID, row.Encoded); err != nil {
			return fmt.Errorf("saving features for image %s: %w", row.ImageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing features: %w", err)
	}
	return nil
}
