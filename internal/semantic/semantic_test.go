package semantic

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/parse"
	"github.com/jward/asgraph/internal/tree"
)

func buildSource(t *testing.T, language, src string, opts ...Option) *Graph {
	t.Helper()
	reg := lang.Default()
	tr, err := parse.New(reg).Parse(context.Background(), []byte(src), language)
	require.NoError(t, err)
	cfg, err := reg.Lookup(language)
	require.NoError(t, err)
	g, err := Build(tr.Root, cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	return g
}

func buildPython(t *testing.T, src string) *Graph {
	t.Helper()
	return buildSource(t, "python", src)
}

// ident returns the id of the identifier spelled name starting at off.
func ident(off int, name string) string {
	return tree.ID("identifier", off, off+len(name))
}

func TestBuild_GlobalReference(t *testing.T) {
	t.Parallel()
	src := "global_var = 1\ndef f():\n    return global_var"
	g := buildPython(t, src)

	refs := g.EdgesOf(References)
	require.Len(t, refs, 1)
	assert.Equal(t, ident(strings.LastIndex(src, "global_var"), "global_var"), refs[0].Source)
	assert.Equal(t, ident(0, "global_var"), refs[0].Target)
}

func TestBuild_Recursion(t *testing.T) {
	t.Parallel()
	src := "def f(n):\n    return f(n - 1)"
	g := buildPython(t, src)

	calls := g.EdgesOf(Calls)
	require.Len(t, calls, 1)
	assert.Equal(t, ident(strings.Index(src, "f(n -"), "f"), calls[0].Source)
	assert.Equal(t, tree.ID("function_definition", 0, len(src)), calls[0].Target)

	refs := g.EdgesOf(References)
	require.Len(t, refs, 1, "the callee is not re-resolved as a reference")
	assert.Equal(t, ident(strings.Index(src, "n -"), "n"), refs[0].Source)
	assert.Equal(t, ident(6, "n"), refs[0].Target)
}

func TestBuild_Shadowing(t *testing.T) {
	t.Parallel()
	src := "x = 1\ndef f():\n    x = 2\n    return x\nprint(x)\n"
	g := buildPython(t, src)

	inner := strings.Index(src, "x = 2")
	innerUse := strings.Index(src, "return x") + len("return ")
	outerUse := strings.Index(src, "print(x)") + len("print(")

	targets := map[string]string{}
	for _, e := range g.EdgesOf(References) {
		targets[e.Source] = e.Target
	}
	assert.Equal(t, ident(inner, "x"), targets[ident(innerUse, "x")])
	assert.Equal(t, ident(0, "x"), targets[ident(outerUse, "x")])
	assert.Len(t, targets, 2)
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()
	src := "import os\nclass A:\n    def m(self, v):\n        return helper(v)\ndef helper(v):\n    if v:\n        return os.path.join(v)\n    return [w for w in v]\n"
	a := buildPython(t, src)
	b := buildPython(t, src)
	assert.Equal(t, a.Nodes, b.Nodes)
	assert.Equal(t, a.Edges, b.Edges)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
}

func TestBuild_NoSelfReferences(t *testing.T) {
	t.Parallel()
	g := buildPython(t, "a = 1\na = a + 1\nfor i in range(a):\n    i = i\n")
	refs := g.EdgesOf(References)
	require.NotEmpty(t, refs)
	for _, e := range refs {
		assert.NotEqual(t, e.Source, e.Target)
	}
}

func TestBuild_RedefinitionReferencesLastDefinition(t *testing.T) {
	t.Parallel()
	g := buildPython(t, "x = 1\nx = 2")

	refs := g.EdgesOf(References)
	require.Len(t, refs, 1)
	assert.Equal(t, ident(0, "x"), refs[0].Source, "the earlier definition site resolves to the later one")
	assert.Equal(t, ident(6, "x"), refs[0].Target)
}

func TestBuild_ContainsEdges(t *testing.T) {
	t.Parallel()
	g := buildPython(t, "x = 1")
	require.Len(t, g.Nodes, 6)
	assert.Equal(t, "module_0_5", g.Root)
	assert.Equal(t, g.Root, g.Nodes[0].ID)

	contains := g.EdgesOf(Contains)
	assert.Len(t, contains, len(g.Nodes)-1)
	assert.Equal(t, Edge{Source: "module_0_5", Target: "expression_statement_0_5", Kind: Contains}, g.Edges[0])
	for i, e := range contains {
		assert.Equal(t, g.Nodes[i+1].ID, e.Target, "contains edges follow pre-order")
	}
}

func TestBuild_ControlFlow(t *testing.T) {
	t.Parallel()
	src := "if a:\n    b = 1\nelse:\n    b = 2\nwhile b:\n    pass\n"
	g := buildPython(t, src)

	flows := g.EdgesOf(ControlFlow)
	require.Len(t, flows, 3)
	sources := []string{}
	for _, e := range flows {
		src, err := g.Node(e.Source)
		require.NoError(t, err)
		dst, err := g.Node(e.Target)
		require.NoError(t, err)
		assert.Equal(t, "block", dst.Type)
		sources = append(sources, src.Type)
	}
	assert.Equal(t, []string{"if_statement", "else_clause", "while_statement"}, sources)

	// Pass 1 edges come after every contains edge.
	last := 0
	for i, e := range g.Edges {
		if e.Kind == Contains {
			last = i
		}
	}
	for i, e := range g.Edges {
		if e.Kind == ControlFlow {
			assert.Greater(t, i, last)
		}
	}
}

func TestBuild_Imports(t *testing.T) {
	t.Parallel()
	src := "import os\nfrom json import loads as decode\ndecode(\"1\")\nos()\n"
	g := buildPython(t, src)

	calls := g.EdgesOf(CallsImport)
	require.Len(t, calls, 2)
	assert.Equal(t, ident(strings.Index(src, "decode(\""), "decode"), calls[0].Source)
	assert.Equal(t, ident(strings.Index(src, "decode\n"), "decode"), calls[0].Target)
	assert.Equal(t, tree.ID("dotted_name", 7, 9), calls[1].Target)
	assert.Empty(t, g.EdgesOf(Calls))
}

func TestBuild_FunctionTableWinsOverImports(t *testing.T) {
	t.Parallel()
	src := "from m import run\ndef run():\n    pass\nrun()\n"
	g := buildPython(t, src)

	assert.Empty(t, g.EdgesOf(CallsImport))
	calls := g.EdgesOf(Calls)
	require.Len(t, calls, 1)
	target, err := g.Node(calls[0].Target)
	require.NoError(t, err)
	assert.Equal(t, "function_definition", target.Type)
}

func TestBuild_DefinitionPositionsAreExcluded(t *testing.T) {
	t.Parallel()
	src := "def f(a, b=1):\n    return g(key=a)\n"
	g := buildPython(t, src)

	refs := g.EdgesOf(References)
	require.Len(t, refs, 1)
	assert.Equal(t, ident(strings.Index(src, "=a)")+1, "a"), refs[0].Source)
	assert.Equal(t, ident(6, "a"), refs[0].Target)
	assert.Empty(t, g.EdgesOf(Calls), "unresolved calls produce no edge")
}

func TestBuild_ComprehensionScope(t *testing.T) {
	t.Parallel()
	src := "[y for y in range(3)]\ny\n"
	g := buildPython(t, src)

	refs := g.EdgesOf(References)
	require.Len(t, refs, 1, "the comprehension variable is not visible outside")
	assert.Equal(t, ident(1, "y"), refs[0].Source)
	assert.Equal(t, ident(7, "y"), refs[0].Target)
}

func TestBuild_LambdaParameters(t *testing.T) {
	t.Parallel()
	src := "h = lambda q: q\n"
	g := buildPython(t, src)

	refs := g.EdgesOf(References)
	require.Len(t, refs, 1)
	assert.Equal(t, ident(strings.LastIndex(src, "q"), "q"), refs[0].Source)
	assert.Equal(t, ident(strings.Index(src, "q"), "q"), refs[0].Target)
}

func TestBuild_Unpacking(t *testing.T) {
	t.Parallel()
	src := "a, (b, c) = 1, (2, 3)\nprint(b)\n"
	g := buildPython(t, src)

	use := ident(strings.Index(src, "print(b)")+len("print("), "b")
	for _, e := range g.EdgesOf(References) {
		if e.Source == use {
			assert.Equal(t, ident(4, "b"), e.Target)
			return
		}
	}
	t.Fatalf("no reference from %s", use)
}

func TestBuild_JavaScript(t *testing.T) {
	t.Parallel()
	src := "function f(a) { return f(a); }"
	g := buildSource(t, "javascript", src)
	assert.Equal(t, "javascript", g.Language)

	calls := g.EdgesOf(Calls)
	require.Len(t, calls, 1)
	assert.Equal(t, tree.ID("function_declaration", 0, len(src)), calls[0].Target)

	refs := g.EdgesOf(References)
	require.Len(t, refs, 1)
	assert.Equal(t, ident(11, "a"), refs[0].Target)
}

func TestBuild_DepthLimit(t *testing.T) {
	t.Parallel()
	root := &tree.Node{Type: "module", EndByte: 64}
	cur := root
	for i := 0; i < 32; i++ {
		next := &tree.Node{Type: "parenthesized_expression", StartByte: i, EndByte: 64 - i}
		cur.Children = []*tree.Node{next}
		cur = next
	}
	cfg, err := lang.Default().Lookup("python")
	require.NoError(t, err)

	_, err = Build(root, cfg, WithMaxDepth(8))
	assert.ErrorIs(t, err, tree.ErrDepthLimitExceeded)

	_, err = Build(root, cfg)
	assert.NoError(t, err)
}

func TestBuild_SyntaxErrorsStillBuild(t *testing.T) {
	t.Parallel()
	g := buildPython(t, "def f(:\n    return x\nx = 1\n")
	assert.NotEmpty(t, g.Nodes)
}

func TestGraph_NodeLookupAfterDecode(t *testing.T) {
	t.Parallel()
	g := buildPython(t, "x = 1")
	data, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded Graph
	require.NoError(t, json.Unmarshal(data, &decoded))
	n, err := decoded.Node("integer_4_5")
	require.NoError(t, err)
	assert.Equal(t, "1", n.Text)
	assert.Equal(t, 0, n.StartLine)
	assert.Equal(t, 4, n.StartCol)

	_, err = decoded.Node("integer_9_9")
	assert.ErrorIs(t, err, tree.ErrNodeNotFound)
}

func TestGraph_Validate(t *testing.T) {
	t.Parallel()
	g := &Graph{
		Root:  "module_0_1",
		Nodes: []NodeRecord{{ID: "module_0_1"}, {ID: "identifier_0_1"}},
		Edges: []Edge{{Source: "module_0_1", Target: "identifier_0_1", Kind: Contains}},
	}
	require.NoError(t, g.Validate())

	g.Edges = append(g.Edges, Edge{Source: "identifier_0_1", Target: "missing_0_0", Kind: References})
	assert.ErrorIs(t, g.Validate(), ErrInvalidGraph)

	g.Edges[1] = Edge{Source: "identifier_0_1", Target: "identifier_0_1", Kind: References}
	assert.ErrorIs(t, g.Validate(), ErrInvalidGraph)

	g.Edges = g.Edges[:1]
	g.Root = "nope"
	assert.ErrorIs(t, g.Validate(), ErrInvalidGraph)
}

func TestGraph_Outgoing(t *testing.T) {
	t.Parallel()
	g := buildPython(t, "x = 1")
	out := g.Outgoing("assignment_0_5")
	require.Len(t, out, 3)
	assert.Equal(t, "identifier_0_1", out[0].Target)
}
