package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/asgraph"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.ErrorContains(t, validateFormat("xml"), `invalid format "xml"`)
}

func TestParseIntArg(t *testing.T) {
	t.Parallel()
	n, err := parseIntArg("12", "line")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseIntArg("-1", "line")
	assert.ErrorContains(t, err, "must be non-negative")
	_, err = parseIntArg("x", "col")
	assert.ErrorContains(t, err, `invalid col "x"`)
}

func TestParseLanguages(t *testing.T) {
	t.Parallel()
	assert.Nil(t, parseLanguages(""))
	assert.Equal(t, []string{"go", "py"}, parseLanguages("go, py"))
}

func TestResolveTargetDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	got, err := resolveTargetDir([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	file := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1"), 0o644))
	_, err = resolveTargetDir([]string{file})
	assert.ErrorContains(t, err, "not a directory")
}

func newTestEngine(t *testing.T) *asgraph.Engine {
	t.Helper()
	e, err := asgraph.New()
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestOutputResultText_Tree(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	tr, err := e.Parse(context.Background(), []byte("x = 1\n"), "python")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, outputResultText(&buf, CLIResult{Command: "parse", Results: tr, ResourceURI: "ast://h"}))
	out := buf.String()
	assert.Contains(t, out, "language: python\n")
	assert.Contains(t, out, "module [0:0-")
	assert.Contains(t, out, `identifier [0:0-0:1] "x"`)
	assert.Contains(t, out, "cached: ast://h")
}

func TestOutputResultText_Graph(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	g, err := e.Graph(context.Background(), []byte("a = 1\nprint(a)\n"), "python")
	require.NoError(t, err)

	refs := filterEdges(g, asgraph.References)
	require.NotEmpty(t, refs.Edges)
	for _, edge := range refs.Edges {
		assert.Equal(t, asgraph.References, edge.Kind)
	}
	assert.Len(t, refs.Nodes, len(g.Nodes))
	assert.NotNil(t, filterEdges(g, "nope").Edges)

	var buf bytes.Buffer
	require.NoError(t, outputResultText(&buf, CLIResult{Results: refs}))
	assert.Contains(t, buf.String(), "SOURCE")
	assert.Contains(t, buf.String(), "references")
}

func TestOutputResultText_Diff(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	cs, err := e.Diff(context.Background(), []byte("x = 1"), []byte("x = 2"), "python")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, outputResultText(&buf, CLIResult{Results: CLIDiff{Changes: cs, Unified: "-x = 1\n+x = 2\n"}}))
	out := buf.String()
	assert.Contains(t, out, "Changed nodes:")
	assert.Contains(t, out, `integer [0:4-0:5] "2"`)
	assert.Contains(t, out, "+x = 2")
}

func TestOutputResultText_Structure(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	s, err := e.Analyze(context.Background(), []byte("import os\n\nclass A:\n    def run(self, n):\n        return n\n"), "python")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, outputResultText(&buf, CLIResult{Results: s}))
	out := buf.String()
	assert.Contains(t, out, "Language: python")
	assert.Contains(t, out, "self, n")
	assert.Contains(t, out, "  A (3-5)")
	assert.Contains(t, out, "  os (line 1)")
}

func TestOutputResultText_Misc(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, outputResultText(&buf, CLIResult{Results: []string{"go", "python"}}))
	require.NoError(t, outputResultText(&buf, CLIResult{Results: asgraph.IndexStats{Indexed: 2, Skipped: 1}}))
	require.NoError(t, outputResultText(&buf, CLIResult{Results: CLIScriptResult{Value: map[string]any{"n": 1}}}))
	require.NoError(t, outputResultText(&buf, CLIResult{}))
	out := buf.String()
	assert.Contains(t, out, "go\npython\n")
	assert.Contains(t, out, "indexed: 2\nskipped: 1\nfailed: 0\n")
	assert.Contains(t, out, `"n": 1`)

	assert.ErrorContains(t, outputResultText(&buf, CLIResult{Results: 42}), "unsupported result type")
}

func TestQuoteText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"a\nb"`, quoteText("a\nb"))
	long := quoteText(string(bytes.Repeat([]byte("x"), 100)))
	assert.Len(t, long, maxTextLen+5)
}

func TestResolveScript(t *testing.T) {
	t.Parallel()
	path, opts := resolveScript("calls")
	assert.Equal(t, "calls.risor", path)
	assert.Len(t, opts, 1)

	onDisk := filepath.Join(t.TempDir(), "mine.risor")
	require.NoError(t, os.WriteFile(onDisk, []byte("1"), 0o644))
	path, opts = resolveScript(onDisk)
	assert.Equal(t, onDisk, path)
	assert.Empty(t, opts)
}
