package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/asgraph"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	flagDB       string
	flagFormat   string
	flagLang     string
	flagVerbose  bool
	flagMaxDepth int
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "asgraph",
	Short:         "Syntax trees and semantic graphs for Python, JavaScript, TypeScript and Go",
	Long:          "asgraph parses source with tree-sitter and builds scope-aware semantic graphs, diffs and analyses, optionally cached in SQLite.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagMaxDepth < 0 {
			return fmt.Errorf("invalid --max-depth %d: must be non-negative", flagMaxDepth)
		}
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "cache database path; enables read-through caching")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLang, "lang", "", "language name or alias (default: detected from the file extension)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log diagnostics to stderr")
	rootCmd.PersistentFlags().IntVar(&flagMaxDepth, "max-depth", asgraph.DefaultMaxDepth, "maximum tree nesting to traverse")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger returns a stderr text logger under --verbose and a discarding
// one otherwise.
func newLogger() *slog.Logger {
	if !flagVerbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newEngine builds an Engine from the persistent flags. dbPath enables the
// cache when non-empty.
func newEngine(dbPath string, opts ...asgraph.Option) (*asgraph.Engine, error) {
	opts = append(opts,
		asgraph.WithMaxDepth(flagMaxDepth),
		asgraph.WithLogger(newLogger()),
	)
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
		}
		opts = append(opts, asgraph.WithCache(dbPath))
	}
	e, err := asgraph.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}

// readSource reads a file argument, or stdin when the argument is "-".
func readSource(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return src, nil
}

// resolveLanguage returns --lang when set and otherwise the language
// registered for path's extension.
func resolveLanguage(e *asgraph.Engine, path string) (string, error) {
	if flagLang != "" {
		return flagLang, nil
	}
	if l, ok := e.LanguageForFile(path); ok {
		return l, nil
	}
	return "", fmt.Errorf("cannot detect language of %q: pass --lang", path)
}

// parseLanguages splits a comma-separated language list.
func parseLanguages(s string) []string {
	if s == "" {
		return nil
	}
	langs := strings.Split(s, ",")
	for i := range langs {
		langs[i] = strings.TrimSpace(langs[i])
	}
	return langs
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the
// default under the repository root.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".asgraph", "cache.db")
}
