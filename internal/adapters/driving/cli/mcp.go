package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lookalike/internal/adapters/driving/mcp"
	"github.com/custodia-labs/lookalike/internal/logger"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --http to serve streamable HTTP instead, for MCP Inspector or remote access.

Tools:
  search_similar_images  find gallery images similar to a file or base64 image
  rebuild_index          reload feature rows and swap in a new index
  index_status           index readiness, size and generation

Examples:
  # Stdio mode (default, for Claude Desktop)
  lookalike mcp

  # HTTP mode
  lookalike mcp --http :8080`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search: svc.Search,
		Index:  svc.Index,
	})
	if err != nil {
		return err
	}

	if svc.Settings.Index.RebuildOnStart {
		initialRebuild(cmd.Context(), svc)
	}

	if mcpHTTPAddr != "" {
		// Stdout stays free for the stdio transport, so only announce in HTTP mode.
		cmd.Printf("MCP server listening on %s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	logger.Debug("MCP server running on stdio")
	return server.Run(cmd.Context())
}
