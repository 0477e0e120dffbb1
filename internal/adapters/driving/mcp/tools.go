package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

// maxImageBytes caps images read from disk or decoded from base64.
const maxImageBytes = 32 << 20

// SearchInput is the input schema for the search_similar_images tool.
type SearchInput struct {
	Path  string `json:"path,omitempty" jsonschema:"path to a local image file"`
	Data  string `json:"data,omitempty" jsonschema:"base64-encoded image bytes, used when path is empty"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of similar images to return (default from config)"`
}

// SearchOutput is the output schema for the search_similar_images tool.
type SearchOutput struct {
	ImageIDs []string `json:"image_ids"`
	Count    int      `json:"count"`
}

// RebuildInput is the (empty) input schema for the rebuild_index tool.
type RebuildInput struct{}

// RebuildOutput is the output schema for the rebuild_index tool.
type RebuildOutput struct {
	VectorCount  int    `json:"vector_count"`
	SkippedCount int    `json:"skipped_count"`
	Dimension    int    `json:"dimension"`
	Generation   uint64 `json:"generation"`
	DurationMS   int64  `json:"duration_ms"`
}

// StatusInput is the (empty) input schema for the index_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the index_status tool.
type StatusOutput struct {
	Ready      bool   `json:"ready"`
	Size       int    `json:"size"`
	Dimension  int    `json:"dimension"`
	Generation uint64 `json:"generation"`
	Skipped    int    `json:"skipped"`
	BuiltAt    string `json:"built_at,omitempty" jsonschema:"RFC 3339 time the current index was installed"`
	Rebuilding bool   `json:"rebuilding"`
	LastError  string `json:"last_error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_similar_images",
		Description: "Find gallery images that look most like the given image, nearest first",
	}, s.handleSearch)

	if s.ports.Index == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rebuild_index",
		Description: "Reload all stored feature vectors and swap in a fresh similarity index",
	}, s.handleRebuild)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report whether the similarity index is ready and how many images it holds",
	}, s.handleStatus)
}

// handleSearch handles the search_similar_images tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	image, err := loadImage(input)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	ids, err := s.ports.Search.SearchByImage(ctx, image, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if ids == nil {
		ids = []string{}
	}

	return nil, SearchOutput{ImageIDs: ids, Count: len(ids)}, nil
}

// handleRebuild handles the rebuild_index tool invocation.
func (s *Server) handleRebuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RebuildInput,
) (*mcp.CallToolResult, RebuildOutput, error) {
	result, err := s.ports.Index.Rebuild(ctx)
	if err != nil {
		return nil, RebuildOutput{}, err
	}

	return nil, RebuildOutput{
		VectorCount:  result.Indexed,
		SkippedCount: result.Skipped,
		Dimension:    result.Dimension,
		Generation:   result.Generation,
		DurationMS:   result.Duration.Milliseconds(),
	}, nil
}

// handleStatus handles the index_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status := s.ports.Index.Status(ctx)
	output := StatusOutput{
		Ready:      status.Ready,
		Size:       status.Size,
		Dimension:  status.Dimension,
		Generation: status.Generation,
		Skipped:    status.Skipped,
		Rebuilding: status.Rebuilding,
		LastError:  status.LastError,
	}
	if !status.BuiltAt.IsZero() {
		output.BuiltAt = status.BuiltAt.Format(time.RFC3339)
	}
	return nil, output, nil
}

// loadImage resolves the tool input to image bytes.
func loadImage(input SearchInput) (domain.Image, error) {
	switch {
	case input.Path != "" && input.Data != "":
		return domain.Image{}, fmt.Errorf("%w: give either path or data, not both", domain.ErrInvalidInput)
	case input.Path != "":
		info, err := os.Stat(input.Path)
		if err != nil {
			return domain.Image{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		if info.IsDir() || info.Size() > maxImageBytes {
			return domain.Image{}, fmt.Errorf("%w: %s is not an image file under %d bytes",
				domain.ErrInvalidInput, input.Path, maxImageBytes)
		}
		data, err := os.ReadFile(input.Path)
		if err != nil {
			return domain.Image{}, fmt.Errorf("reading %s: %w", input.Path, err)
		}
		return domain.Image{Filename: filepath.Base(input.Path), Data: data}, nil
	case input.Data != "":
		if base64.StdEncoding.DecodedLen(len(input.Data)) > maxImageBytes {
			return domain.Image{}, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidInput, maxImageBytes)
		}
		data, err := base64.StdEncoding.DecodeString(input.Data)
		if err != nil {
			return domain.Image{}, fmt.Errorf("%w: data is not valid base64: %v", domain.ErrInvalidInput, err)
		}
		return domain.Image{Filename: "upload", Data: data}, nil
	default:
		return domain.Image{}, fmt.Errorf("%w: no image provided", domain.ErrInvalidInput)
	}
}
