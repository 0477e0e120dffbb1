// Package mcp provides an MCP (Model Context Protocol) server adapter for lookalike.
// It lets AI assistants find visually similar gallery images and manage the index.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
