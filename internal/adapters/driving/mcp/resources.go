package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for lookalike resources.
	uriScheme = "lookalike://"

	indexStatusURI = uriScheme + "index/status"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Index == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         indexStatusURI,
		Name:        "index-status",
		Description: "Readiness, size and generation of the similarity index",
		MIMEType:    "application/json",
	}, s.handleIndexStatusResource)
}

// handleIndexStatusResource returns the index status as JSON.
func (s *Server) handleIndexStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.ports.Index.Status(ctx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling index status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
