// Package domain defines the core business entities for lookalike.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - FeatureRow: A persisted (image id, encoded feature vector) pair
//   - Gallery: The decoded, dimension-checked rows of one build pass
//   - Image: An uploaded image awaiting feature extraction
//   - Settings: Application configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
