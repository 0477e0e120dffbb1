// Package sqlite provides the SQLite implementation of driven.FeatureStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// The gallery lives in product_features(image_id, features), where features
// is a JSON array of numbers.
//
// # Data Location
//
// By default, the database is stored at ~/.lookalike/data/features.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
