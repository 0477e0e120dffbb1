// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - FeatureRowSource: Reads the persisted gallery of (image_id, features) rows
//   - ImageEmbedder: Turns an image into a feature vector
//   - IndexBuilder: Builds an immutable VectorIndex from a prepared gallery
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - FeatureStore: Persists vectors produced by batch extraction. Without it,
//     extraction only returns the vectors to the caller.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
