// Package server exposes the engine over the Model Context Protocol: one
// tool per analysis operation plus resources for cached artifacts.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jward/asgraph"
)

// Server wires an Engine to an MCP server.
type Server struct {
	engine    *asgraph.Engine
	mcpServer *mcp.Server
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for tool and resource diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server exposing e under the given version string.
func New(e *asgraph.Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine: e,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    "asgraph",
			Version: version,
		}, nil),
	}
	for _, o := range opts {
		o(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying MCP server, for connecting custom
// transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err))
	}
	return textResult(string(data))
}
