package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/asgraph"
	"github.com/jward/asgraph/internal/diff"
	"github.com/jward/asgraph/internal/server"
	"github.com/jward/asgraph/scripts"
)

var (
	flagKind      string
	flagUnified   bool
	flagForce     bool
	flagLanguages string
	flagSerial    bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Print the syntax tree of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Print the semantic graph of a file",
	Long:  "Builds the semantic graph: containment, call, import-call, reference and control-flow edges over the file's syntax nodes.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraph,
}

var diffCmd = &cobra.Command{
	Use:   "diff <old-file> <new-file>",
	Short: "Report the edit ranges and changed nodes between two versions",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

var locateCmd = &cobra.Command{
	Use:   "locate <file> <line> <col>",
	Short: "Print the deepest node at a 0-based position",
	Args:  cobra.ExactArgs(3),
	RunE:  runLocate,
}

var nodeCmd = &cobra.Command{
	Use:   "node <file> <node-id>",
	Short: "Print the node with the given id",
	Args:  cobra.ExactArgs(2),
	RunE:  runNode,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Summarise functions, classes, imports and nesting",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var scriptCmd = &cobra.Command{
	Use:   "script <script> <file>",
	Short: "Run a Risor script over a file's tree and graph",
	Long:  "Runs a Risor script from disk, or a bundled script by name (edge_summary, calls) when no such file exists.",
	Args:  cobra.ExactArgs(2),
	RunE:  runScript,
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	Args:  cobra.NoArgs,
	RunE:  runLanguages,
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build and cache the semantic graph of every supported file",
	Long:  "Walks a directory (git ls-files when available), builds each supported file's graph and caches it in SQLite. Unchanged files are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis tools over MCP on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	graphCmd.Flags().StringVar(&flagKind, "kind", "", "only print edges of this kind: contains|calls|calls_import|references|control_flow")
	diffCmd.Flags().BoolVar(&flagUnified, "unified", false, "include a unified line diff")
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the cache database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. go,python)")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "index one file at a time")
}

// loadFile opens an engine on the --db cache (if any) and reads path.
func loadFile(path string, opts ...asgraph.Option) (*asgraph.Engine, []byte, string, error) {
	e, err := newEngine(flagDB, opts...)
	if err != nil {
		return nil, nil, "", err
	}
	src, err := readSource(path)
	if err != nil {
		e.Close()
		return nil, nil, "", err
	}
	language, err := resolveLanguage(e, path)
	if err != nil {
		e.Close()
		return nil, nil, "", err
	}
	return e, src, language, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	e, src, language, err := loadFile(args[0])
	if err != nil {
		return outputError("parse", err)
	}
	defer e.Close()

	ctx := cmd.Context()
	result := CLIResult{Command: "parse"}
	if e.Store() != nil {
		hash, t, err := e.ParseAndCache(ctx, src, language)
		if err != nil {
			return outputError("parse", err)
		}
		result.Results = t
		result.ResourceURI = asgraph.ResourceURI(asgraph.KindAST, hash)
	} else {
		t, err := e.Parse(ctx, src, language)
		if err != nil {
			return outputError("parse", err)
		}
		result.Results = t
	}
	return outputResult(result)
}

func runGraph(cmd *cobra.Command, args []string) error {
	e, src, language, err := loadFile(args[0])
	if err != nil {
		return outputError("graph", err)
	}
	defer e.Close()

	ctx := cmd.Context()
	result := CLIResult{Command: "graph"}
	var g *asgraph.Graph
	if e.Store() != nil {
		var hash string
		hash, g, err = e.GraphAndCache(ctx, src, language)
		result.ResourceURI = asgraph.ResourceURI(asgraph.KindASG, hash)
	} else {
		g, err = e.Graph(ctx, src, language)
	}
	if err != nil {
		return outputError("graph", err)
	}
	if flagKind != "" {
		g = filterEdges(g, asgraph.EdgeKind(flagKind))
	}
	result.Results = g
	return outputResult(result)
}

// filterEdges returns a shallow copy of g keeping only edges of kind.
func filterEdges(g *asgraph.Graph, kind asgraph.EdgeKind) *asgraph.Graph {
	out := *g
	out.Edges = g.EdgesOf(kind)
	if out.Edges == nil {
		out.Edges = []asgraph.Edge{}
	}
	return &out
}

func runDiff(cmd *cobra.Command, args []string) error {
	e, newSrc, language, err := loadFile(args[1])
	if err != nil {
		return outputError("diff", err)
	}
	defer e.Close()
	oldSrc, err := readSource(args[0])
	if err != nil {
		return outputError("diff", err)
	}

	cs, err := e.Diff(cmd.Context(), oldSrc, newSrc, language)
	if err != nil {
		return outputError("diff", err)
	}
	out := CLIDiff{Changes: cs}
	if flagUnified {
		if out.Unified, err = diff.Unified(args[0], args[1], oldSrc, newSrc); err != nil {
			return outputError("diff", err)
		}
	}
	return outputResult(CLIResult{Command: "diff", Results: out})
}

func runLocate(cmd *cobra.Command, args []string) error {
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return outputError("locate", err)
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return outputError("locate", err)
	}
	e, src, language, err := loadFile(args[0])
	if err != nil {
		return outputError("locate", err)
	}
	defer e.Close()

	n, err := e.Locate(cmd.Context(), src, language, line, col)
	if err != nil {
		return outputError("locate", err)
	}
	return outputResult(CLIResult{Command: "locate", Results: n})
}

func runNode(cmd *cobra.Command, args []string) error {
	e, src, language, err := loadFile(args[0])
	if err != nil {
		return outputError("node", err)
	}
	defer e.Close()

	t, err := e.Parse(cmd.Context(), src, language)
	if err != nil {
		return outputError("node", err)
	}
	n, err := e.NodeByID(t, args[1])
	if err != nil {
		return outputError("node", err)
	}
	return outputResult(CLIResult{Command: "node", Results: n})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	e, src, language, err := loadFile(args[0])
	if err != nil {
		return outputError("analyze", err)
	}
	defer e.Close()

	ctx := cmd.Context()
	result := CLIResult{Command: "analyze"}
	if e.Store() != nil {
		hash, st, err := e.AnalyzeAndCache(ctx, src, language)
		if err != nil {
			return outputError("analyze", err)
		}
		result.Results = st
		result.ResourceURI = asgraph.ResourceURI(asgraph.KindAnalysis, hash)
	} else {
		st, err := e.Analyze(ctx, src, language)
		if err != nil {
			return outputError("analyze", err)
		}
		result.Results = st
	}
	return outputResult(result)
}

func runScript(cmd *cobra.Command, args []string) error {
	scriptPath, opts := resolveScript(args[0])
	e, src, language, err := loadFile(args[1], opts...)
	if err != nil {
		return outputError("script", err)
	}
	defer e.Close()

	out, err := e.RunScript(cmd.Context(), scriptPath, src, language, nil)
	if err != nil {
		return outputError("script", err)
	}
	return outputResult(CLIResult{Command: "script", Results: CLIScriptResult{Value: out}})
}

func runLanguages(cmd *cobra.Command, args []string) error {
	e, err := newEngine("")
	if err != nil {
		return outputError("languages", err)
	}
	defer e.Close()
	return outputResult(CLIResult{Command: "languages", Results: e.Languages()})
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("index", err)
	}
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return outputError("index", fmt.Errorf("removing database for --force: %w", err))
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	opts := []asgraph.Option{asgraph.WithParallel(!flagSerial)}
	if langs := parseLanguages(flagLanguages); len(langs) > 0 {
		opts = append(opts, asgraph.WithLanguages(langs...))
	}
	e, err := newEngine(dbPath, opts...)
	if err != nil {
		return outputError("index", err)
	}
	defer e.Close()

	stats, err := e.IndexDirectory(cmd.Context(), targetDir)
	if err != nil {
		return outputError("index", fmt.Errorf("indexing: %w", err))
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d indexed, %d unchanged)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		stats.Indexed,
		stats.Skipped,
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return outputResult(CLIResult{Command: "index", Results: stats})
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := newEngine(flagDB)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.New(e, version, server.WithLogger(newLogger())).Run(ctx)
}

// resolveScript returns the path to run and the engine options it needs. A
// name that is not a file on disk refers to a bundled script.
func resolveScript(name string) (string, []asgraph.Option) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	if !strings.HasSuffix(name, ".risor") {
		name += ".risor"
	}
	return name, []asgraph.Option{asgraph.WithScriptsFS(scripts.FS)}
}

// parseIntArg parses a positional argument as a non-negative integer.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}
