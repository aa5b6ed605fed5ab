package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewDetectMCPServer creates an MCP server exposing DSN detection tools for
// the project containing startDir.
func NewDetectMCPServer(startDir string) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		"sentry-detect",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	registerTools(s, startDir)

	return s, nil
}
