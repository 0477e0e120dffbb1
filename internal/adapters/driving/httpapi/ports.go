package httpapi

import (
	"errors"

	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
)

// Errors returned by Ports.Validate.
var (
	ErrMissingSearchService     = errors.New("httpapi: search service is required")
	ErrMissingIndexService      = errors.New("httpapi: index service is required")
	ErrMissingExtractionService = errors.New("httpapi: extraction service is required")
)

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	// Search answers POST /search.
	Search driving.SearchService

	// Index answers POST /rebuild-index and GET /index/status.
	Index driving.IndexService

	// Extraction answers POST /extract-features.
	Extraction driving.ExtractionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Search == nil:
		return ErrMissingSearchService
	case p.Index == nil:
		return ErrMissingIndexService
	case p.Extraction == nil:
		return ErrMissingExtractionService
	}
	return nil
}
