package asgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const benchPythonFile = "testdata/python/level-01-scopes/src/scopes.py"

func readBenchSource(b *testing.B, path string) []byte {
	b.Helper()
	src, err := os.ReadFile(path)
	if err != nil {
		b.Fatal(err)
	}
	return src
}

func newBenchEngine(b *testing.B, opts ...Option) *Engine {
	b.Helper()
	e, err := New(opts...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { e.Close() })
	return e
}

// BenchmarkGraph_Python measures parse plus graph assembly of one file.
func BenchmarkGraph_Python(b *testing.B) {
	e := newBenchEngine(b)
	src := readBenchSource(b, benchPythonFile)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Graph(ctx, src, "python"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDiffTrees measures the diff of two already-parsed generations.
func BenchmarkDiffTrees(b *testing.B) {
	e := newBenchEngine(b)
	src := readBenchSource(b, benchPythonFile)
	ctx := context.Background()
	prev, err := e.Parse(ctx, src, "python")
	if err != nil {
		b.Fatal(err)
	}
	edited := append([]byte("EXTRA = 1\n"), src...)
	cur, err := e.Parse(ctx, edited, "python")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.DiffTrees(prev, cur); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkIndexDirectory_Go measures a cold index of the Go fixtures.
func BenchmarkIndexDirectory_Go(b *testing.B) {
	ctx := context.Background()
	root := filepath.Join("testdata", "go")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		e, err := New(WithCache(filepath.Join(b.TempDir(), "bench.db")), WithLanguages("go"))
		if err != nil {
			b.Fatal(err)
		}
		b.StartTimer()

		if _, err := e.IndexDirectory(ctx, root); err != nil {
			e.Close()
			b.Fatal(err)
		}

		b.StopTimer()
		e.Close()
		b.StartTimer()
	}
}
