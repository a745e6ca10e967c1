package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
)

// HTTPHandler exposes the MCP server as a stateless streamable HTTP endpoint.
// Authentication is left to the router it is mounted on.
func HTTPHandler(svc *Service) http.Handler {
	return server.NewStreamableHTTPServer(NewServer(svc), server.WithStateLess(true))
}
