package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the asgraph binary into t.TempDir() and returns its
// path.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "asgraph"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "asgraph")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from this file to the directory holding go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createFixture writes a small repository with a .git dir, a Python file
// and a JavaScript file.
func createFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("import os\n\ndef f(x):\n    return os.path.join(x)\n\nf(1)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("function g() { return 1; }\ng();\n"), 0o644))
	return dir
}

type envelope struct {
	Command     string          `json:"command"`
	Results     json.RawMessage `json:"results"`
	ResourceURI string          `json:"resource_uri"`
	Error       string          `json:"error"`
}

func run(t *testing.T, bin, dir string, args ...string) (envelope, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	var env envelope
	require.NoError(t, json.Unmarshal(out, &env), "output: %s", out)
	return env, err
}

func TestCLI(t *testing.T) {
	bin := buildBinary(t)
	dir := createFixture(t)

	t.Run("parse", func(t *testing.T) {
		env, err := run(t, bin, dir, "parse", "main.py")
		require.NoError(t, err)
		var tree struct {
			Language string `json:"language"`
			Root     struct {
				Type string `json:"type"`
			} `json:"root"`
		}
		require.NoError(t, json.Unmarshal(env.Results, &tree))
		assert.Equal(t, "python", tree.Language)
		assert.Equal(t, "module", tree.Root.Type)
		assert.Empty(t, env.ResourceURI)
	})

	t.Run("graph kind filter", func(t *testing.T) {
		env, err := run(t, bin, dir, "graph", "--kind", "calls", "main.py")
		require.NoError(t, err)
		var g struct {
			Edges []struct {
				Kind string `json:"type"`
			} `json:"edges"`
		}
		require.NoError(t, json.Unmarshal(env.Results, &g))
		require.Len(t, g.Edges, 1, "f(1) calls the module-level f")
		assert.Equal(t, "calls", g.Edges[0].Kind)
	})

	t.Run("locate", func(t *testing.T) {
		env, err := run(t, bin, dir, "locate", "main.py", "2", "4")
		require.NoError(t, err)
		var n struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		require.NoError(t, json.Unmarshal(env.Results, &n))
		assert.Equal(t, "identifier", n.Type)
		assert.Equal(t, "f", n.Text)
	})

	t.Run("unsupported language", func(t *testing.T) {
		env, err := run(t, bin, dir, "parse", "--lang", "cobol", "main.py")
		require.Error(t, err)
		assert.Contains(t, env.Error, "unsupported language")
	})

	t.Run("cached analyze", func(t *testing.T) {
		env, err := run(t, bin, dir, "--db", filepath.Join(t.TempDir(), "cache.db"), "analyze", "main.py")
		require.NoError(t, err)
		assert.Regexp(t, `^analysis://[0-9a-f]{64}$`, env.ResourceURI)
	})

	t.Run("bundled script", func(t *testing.T) {
		env, err := run(t, bin, dir, "script", "edge_summary", "app.js")
		require.NoError(t, err)
		var out struct {
			Value struct {
				Language string         `json:"language"`
				Edges    map[string]int `json:"edges"`
			} `json:"value"`
		}
		require.NoError(t, json.Unmarshal(env.Results, &out))
		assert.Equal(t, "javascript", out.Value.Language)
		assert.Equal(t, 1, out.Value.Edges["calls"])
	})

	t.Run("index", func(t *testing.T) {
		var stats struct {
			Indexed int `json:"indexed"`
			Skipped int `json:"skipped"`
		}
		env, err := run(t, bin, dir, "index")
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(env.Results, &stats))
		assert.Equal(t, 2, stats.Indexed)
		assert.FileExists(t, filepath.Join(dir, ".asgraph", "cache.db"))

		env, err = run(t, bin, dir, "index")
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(env.Results, &stats))
		assert.Equal(t, 0, stats.Indexed)
		assert.Equal(t, 2, stats.Skipped)
	})
}
