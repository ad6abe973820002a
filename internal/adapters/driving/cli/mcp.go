package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/runit-cli/internal/adapters/driving/mcp"
	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
questions of your websites.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --http to serve the streamable HTTP transport instead, for the MCP
Inspector web UI or remote access.

Tools:
  ask            Ask a website a question and get the answer with sources
  list_websites  List the websites you can chat with
  crawl_status   Check a crawl job

Examples:
  # Stdio mode (default, for Claude Desktop)
  runit mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  runit mcp serve --http localhost:8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "runit": {
        "command": "/path/to/runit",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

// mcpHTTPAddr is the listen address for the HTTP transport.
var mcpHTTPAddr string

func init() {
	mcpServeCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve over HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer builds the MCP server from the configured services.
func newMCPServer() (*mcp.Server, error) {
	if chatService == nil || websiteService == nil {
		return nil, errors.New("chat and website services not configured")
	}

	ports := &mcp.Ports{
		Chat:    chatService,
		Website: websiteService,
		Crawl:   crawlService,
		Auth:    authService,
	}
	if adminScope {
		ports.Scope = domain.ScopeAdmin
	}
	return mcp.NewServer(ports)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}
