package domain

import "time"

// RebuildResult summarises a successful index rebuild.
type RebuildResult struct {
	// Indexed is the number of vectors in the new index.
	Indexed int

	// Skipped is the number of rows dropped as malformed or mismatched.
	Skipped int

	// Dimension is the vector length of the new index.
	Dimension int

	// Generation is the sequence number of the installed snapshot.
	Generation uint64

	// Duration is how long the fetch and build took.
	Duration time.Duration
}

// IndexStatus describes the index manager's current state.
type IndexStatus struct {
	// Ready is true once a rebuild has installed a non-empty index.
	Ready bool `json:"ready"`

	// Size is the number of vectors in the current index.
	Size int `json:"size"`

	// Dimension is the vector length of the current index.
	Dimension int `json:"dimension"`

	// Generation is the sequence number of the current snapshot.
	Generation uint64 `json:"generation"`

	// Skipped is the number of rows skipped when the current index was built.
	Skipped int `json:"skipped"`

	// BuiltAt is when the current index was installed.
	BuiltAt time.Time `json:"built_at,omitzero"`

	// Rebuilding is true while a rebuild is in flight.
	Rebuilding bool `json:"rebuilding"`

	// LastError is the error of the most recent failed rebuild, if the
	// latest attempt failed.
	LastError string `json:"last_error,omitempty"`
}
