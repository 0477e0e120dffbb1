package mcp

import (
	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search finds similar images.
	Search driving.SearchService

	// Index rebuilds and reports on the vector index.
	// Optional: without it the index tools and resource are not registered.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
