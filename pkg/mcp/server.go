// Package mcp exposes agtrace's query façade (pkg/client) as a set of
// Model Context Protocol tools over stdio, using
// github.com/mark3labs/mcp-go for the wire protocol framing — the
// initialize/tools-list/tools-call JSON-RPC dance is entirely the
// library's concern; this package only registers tool schemas and
// handlers that call straight into pkg/client.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/lanegrid/agtrace/pkg/client"
)

// NewServer builds an MCP server with every agtrace tool registered
// against c, ready to be served over stdio via Serve.
func NewServer(c *client.Client) *server.MCPServer {
	s := server.NewMCPServer(
		"agtrace",
		"0.1.0",
		server.WithToolCapabilities(false),
	)
	registerTools(s, c)
	return s
}

// Serve runs s over stdio until the client disconnects or the process
// receives a termination signal; this is the only place the wire framing
// is invoked, deferred entirely to mcp-go's ServeStdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
