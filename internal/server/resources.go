package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jward/asgraph"
)

const schemaPrefix = "asgraph://schemas/"

func (s *Server) registerResources() {
	schemaMap := buildSchemaMap()

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: schemaPrefix + "{tool_name}",
		Name:        "Tool Schema",
		Description: "JSON schema for the named tool's arguments",
		MIMEType:    "application/schema+json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		toolName := strings.TrimPrefix(uri, schemaPrefix)
		schemaJSON, ok := schemaMap[toolName]
		if !ok {
			return nil, fmt.Errorf("unknown tool schema: %q", toolName)
		}
		return textContents(uri, "application/schema+json", schemaJSON), nil
	})

	if s.engine.Store() == nil {
		return
	}

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "ast://{code_hash}",
		Name:        "Cached AST",
		Description: "Syntax tree cached by parse_and_cache",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		hash := strings.TrimPrefix(req.Params.URI, "ast://")
		t, err := s.engine.CachedTree(hash)
		return s.cachedContents(req.Params.URI, t, err, "AST not found. Please use parse_and_cache tool first.")
	})

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "ast://{code_hash}/node/{node_id}",
		Name:        "Cached AST node",
		Description: "One node of a cached syntax tree",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		hash, id, ok := strings.Cut(strings.TrimPrefix(req.Params.URI, "ast://"), "/node/")
		if !ok {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		n, err := s.engine.CachedNode(hash, id)
		if errors.Is(err, asgraph.ErrNodeNotFound) {
			return nil, fmt.Errorf("node %s not found in AST", id)
		}
		return s.cachedContents(req.Params.URI, n, err, "AST not found. Please use parse_and_cache tool first.")
	})

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "asg://{code_hash}",
		Name:        "Cached ASG",
		Description: "Semantic graph cached by generate_and_cache_asg",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		hash := strings.TrimPrefix(req.Params.URI, "asg://")
		g, err := s.engine.CachedGraph(hash)
		return s.cachedContents(req.Params.URI, g, err, "ASG not found. Please use generate_and_cache_asg tool first.")
	})

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "analysis://{code_hash}",
		Name:        "Cached analysis",
		Description: "Code analysis cached by analyze_and_cache",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		hash := strings.TrimPrefix(req.Params.URI, "analysis://")
		st, err := s.engine.CachedAnalysis(hash)
		return s.cachedContents(req.Params.URI, st, err, "Analysis not found. Please use analyze_and_cache tool first.")
	})
}

// cachedContents renders a cached artifact, mapping a cache miss to msg.
func (s *Server) cachedContents(uri string, v any, err error, msg string) (*mcp.ReadResourceResult, error) {
	if errors.Is(err, asgraph.ErrNotCached) {
		s.logger.Debug("resource miss", "uri", uri)
		return nil, errors.New(msg)
	}
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}
	return textContents(uri, "application/json", string(data)), nil
}

func textContents(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: mimeType,
				Text:     text,
			},
		},
	}
}

// buildSchemaMap constructs a map from tool name to its JSON schema string.
func buildSchemaMap() map[string]string {
	m := make(map[string]string)
	addSchema[SourceArgs](m, "parse_to_ast")
	addSchema[IncrementalArgs](m, "parse_to_ast_incremental")
	addSchema[SourceArgs](m, "generate_asg")
	addSchema[DiffArgs](m, "diff_ast")
	addSchema[PositionArgs](m, "find_node_at_position")
	addSchema[SourceArgs](m, "analyze_code")
	addSchema[SupportedLanguagesArgs](m, "supported_languages")
	addSchema[SourceArgs](m, "parse_and_cache")
	addSchema[SourceArgs](m, "generate_and_cache_asg")
	addSchema[SourceArgs](m, "analyze_and_cache")
	return m
}

func addSchema[T any](m map[string]string, name string) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return
	}
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return
	}
	m[name] = string(schemaJSON)
}
