// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IndexManager owns the current index snapshot; SearchService and
// ExtractionService only read it or call the embedder.
package services
