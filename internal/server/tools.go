package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jward/asgraph"
)

// Arguments structs

type SourceArgs struct {
	Code     string `json:"code" jsonschema:"The source text to process"`
	Language string `json:"language,omitempty" jsonschema:"Language name or alias; detected from filename when empty"`
	Filename string `json:"filename,omitempty" jsonschema:"File name used to detect the language from its extension"`
}

type IncrementalArgs struct {
	Code     string `json:"code" jsonschema:"The new source text"`
	OldCode  string `json:"old_code,omitempty" jsonschema:"The previous source text; when set the response includes the diff"`
	Language string `json:"language,omitempty" jsonschema:"Language name or alias; detected from filename when empty"`
	Filename string `json:"filename,omitempty" jsonschema:"File name used to detect the language from its extension"`
}

type DiffArgs struct {
	OldCode  string `json:"old_code" jsonschema:"The previous source text"`
	NewCode  string `json:"new_code" jsonschema:"The new source text"`
	Language string `json:"language,omitempty" jsonschema:"Language name or alias; detected from filename when empty"`
	Filename string `json:"filename,omitempty" jsonschema:"File name used to detect the language from its extension"`
}

type PositionArgs struct {
	Code     string `json:"code" jsonschema:"The source text to search"`
	Line     int    `json:"line" jsonschema:"Zero-based line"`
	Column   int    `json:"column" jsonschema:"Zero-based byte column"`
	Language string `json:"language,omitempty" jsonschema:"Language name or alias; detected from filename when empty"`
	Filename string `json:"filename,omitempty" jsonschema:"File name used to detect the language from its extension"`
}

type SupportedLanguagesArgs struct{}

type incrementalResult struct {
	AST  *asgraph.Tree      `json:"ast"`
	Diff *asgraph.ChangeSet `json:"diff,omitempty"`
}

type locateResult struct {
	Node     *asgraph.Node `json:"node"`
	Language string        `json:"language"`
}

type cachedResult struct {
	AST         *asgraph.Tree      `json:"ast,omitempty"`
	ASG         *asgraph.Graph     `json:"asg,omitempty"`
	Analysis    *asgraph.Structure `json:"analysis,omitempty"`
	ResourceURI string             `json:"resource_uri"`
}

var errNoLanguage = errors.New("cannot determine language: pass language or a filename with a known extension")

// resolveLanguage prefers an explicit language and falls back to the
// filename extension.
func (s *Server) resolveLanguage(language, filename string) (string, error) {
	if language != "" {
		return language, nil
	}
	if filename != "" {
		if l, ok := s.engine.LanguageForFile(filename); ok {
			return l, nil
		}
	}
	return "", errNoLanguage
}

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Debug("tool failed", "tool", tool, "error", err)
	return errorResult(fmt.Sprintf("%s: %v", tool, err))
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "parse_to_ast",
		Description: "Parses source code into an abstract syntax tree",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SourceArgs) (*mcp.CallToolResult, any, error) {
		language, err := s.resolveLanguage(args.Language, args.Filename)
		if err != nil {
			return s.toolError("parse_to_ast", err), nil, nil
		}
		t, err := s.engine.Parse(ctx, []byte(args.Code), language)
		if err != nil {
			return s.toolError("parse_to_ast", err), nil, nil
		}
		return jsonResult(t), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "parse_to_ast_incremental",
		Description: "Parses source code and, given the previous version, reports the changed ranges and nodes",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args IncrementalArgs) (*mcp.CallToolResult, any, error) {
		language, err := s.resolveLanguage(args.Language, args.Filename)
		if err != nil {
			return s.toolError("parse_to_ast_incremental", err), nil, nil
		}
		cur, err := s.engine.Parse(ctx, []byte(args.Code), language)
		if err != nil {
			return s.toolError("parse_to_ast_incremental", err), nil, nil
		}
		out := incrementalResult{AST: cur}
		if args.OldCode != "" {
			prev, err := s.engine.Parse(ctx, []byte(args.OldCode), language)
			if err != nil {
				return s.toolError("parse_to_ast_incremental", err), nil, nil
			}
			if out.Diff, err = s.engine.DiffTrees(prev, cur); err != nil {
				return s.toolError("parse_to_ast_incremental", err), nil, nil
			}
		}
		return jsonResult(out), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_asg",
		Description: "Builds the semantic graph of source code: containment, references, calls and control flow",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SourceArgs) (*mcp.CallToolResult, any, error) {
		language, err := s.resolveLanguage(args.Language, args.Filename)
		if err != nil {
			return s.toolError("generate_asg", err), nil, nil
		}
		g, err := s.engine.Graph(ctx, []byte(args.Code), language)
		if err != nil {
			return s.toolError("generate_asg", err), nil, nil
		}
		return jsonResult(g), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "diff_ast",
		Description: "Compares two versions of source code and reports the changed ranges and nodes",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DiffArgs) (*mcp.CallToolResult, any, error) {
		language, err := s.resolveLanguage(args.Language, args.Filename)
		if err != nil {
			return s.toolError("diff_ast", err), nil, nil
		}
		cs, err := s.engine.Diff(ctx, []byte(args.OldCode), []byte(args.NewCode), language)
		if err != nil {
			return s.toolError("diff_ast", err), nil, nil
		}
		return jsonResult(cs), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_node_at_position",
		Description: "Returns the deepest syntax node at a zero-based line and column",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PositionArgs) (*mcp.CallToolResult, any, error) {
		language, err := s.resolveLanguage(args.Language, args.Filename)
		if err != nil {
			return s.toolError("find_node_at_position", err), nil, nil
		}
		n, err := s.engine.Locate(ctx, []byte(args.Code), language, args.Line, args.Column)
		if errors.Is(err, asgraph.ErrNodeNotFound) {
			return errorResult(fmt.Sprintf("No node found at position %d:%d", args.Line, args.Column)), nil, nil
		}
		if err != nil {
			return s.toolError("find_node_at_position", err), nil, nil
		}
		return jsonResult(locateResult{Node: n, Language: language}), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze_code",
		Description: "Summarises functions, classes, imports and complexity metrics of source code",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SourceArgs) (*mcp.CallToolResult, any, error) {
		language, err := s.resolveLanguage(args.Language, args.Filename)
		if err != nil {
			return s.toolError("analyze_code", err), nil, nil
		}
		st, err := s.engine.Analyze(ctx, []byte(args.Code), language)
		if err != nil {
			return s.toolError("analyze_code", err), nil, nil
		}
		return jsonResult(st), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "supported_languages",
		Description: "Lists the languages this server can parse",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SupportedLanguagesArgs) (*mcp.CallToolResult, any, error) {
		return jsonResult(s.engine.Languages()), nil, nil
	})

	if s.engine.Store() == nil {
		return
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "parse_and_cache",
		Description: "Parses source code, caches the tree and returns it with its ast:// resource URI",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SourceArgs) (*mcp.CallToolResult, any, error) {
		language, err := s.resolveLanguage(args.Language, args.Filename)
		if err != nil {
			return s.toolError("parse_and_cache", err), nil, nil
		}
		hash, t, err := s.engine.ParseAndCache(ctx, []byte(args.Code), language)
		if err != nil {
			return s.toolError("parse_and_cache", err), nil, nil
		}
		return jsonResult(cachedResult{AST: t, ResourceURI: asgraph.ResourceURI(asgraph.KindAST, hash)}), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_and_cache_asg",
		Description: "Builds and caches the semantic graph and tree; returns the graph with its asg:// resource URI",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SourceArgs) (*mcp.CallToolResult, any, error) {
		language, err := s.resolveLanguage(args.Language, args.Filename)
		if err != nil {
			return s.toolError("generate_and_cache_asg", err), nil, nil
		}
		src := []byte(args.Code)
		if _, _, err := s.engine.ParseAndCache(ctx, src, language); err != nil {
			return s.toolError("generate_and_cache_asg", err), nil, nil
		}
		hash, g, err := s.engine.GraphAndCache(ctx, src, language)
		if err != nil {
			return s.toolError("generate_and_cache_asg", err), nil, nil
		}
		return jsonResult(cachedResult{ASG: g, ResourceURI: asgraph.ResourceURI(asgraph.KindASG, hash)}), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze_and_cache",
		Description: "Analyzes source code, caches the result and returns it with its analysis:// resource URI",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SourceArgs) (*mcp.CallToolResult, any, error) {
		language, err := s.resolveLanguage(args.Language, args.Filename)
		if err != nil {
			return s.toolError("analyze_and_cache", err), nil, nil
		}
		hash, st, err := s.engine.AnalyzeAndCache(ctx, []byte(args.Code), language)
		if err != nil {
			return s.toolError("analyze_and_cache", err), nil, nil
		}
		return jsonResult(cachedResult{Analysis: st, ResourceURI: asgraph.ResourceURI(asgraph.KindAnalysis, hash)}), nil, nil
	})
}
