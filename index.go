package asgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jward/asgraph/internal/parse"
	"github.com/jward/asgraph/internal/store"
)

// IndexStats summarises one IndexFiles run.
type IndexStats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// workItem holds everything an indexing worker needs for one file.
type workItem struct {
	path  string
	lang  string
	src   []byte
	hash  string
	batch *store.BatchedStore
}

// IndexFiles builds and caches the graph of every given file. When
// WithParallel is enabled, graphs are built in a worker pool and committed
// by a single goroutine. Otherwise files are processed one by one.
//
// For each file:
//  1. Detect language from extension
//  2. Skip unsupported or filtered-out languages
//  3. Skip unchanged files (same content hash, graph still cached)
//  4. Drop the artifacts of the previous content
//  5. Parse, build the graph and buffer it with the file row
//  6. Commit the buffer in one transaction
//
// Errors on individual files are collected; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (IndexStats, error) {
	if e.store == nil {
		return IndexStats{}, fmt.Errorf("asgraph: index: %w", ErrNoCache)
	}
	if e.useParallel {
		return e.indexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) (IndexStats, error) {
	var stats IndexStats
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		item, skip, err := e.prepareFile(path)
		if err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			stats.Skipped++
			continue
		}
		if err := e.buildFile(ctx, item); err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("build %s: %w", path, err))
			continue
		}
		if err := e.store.CommitBatch(item.batch); err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("commit %s: %w", path, err))
			continue
		}
		stats.Indexed++
	}
	if len(errs) > 0 {
		return stats, fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return stats, nil
}

// prepareFile does the serial work for one file: language detection, hash
// check and cleanup. skip=true means the file is unchanged or unsupported.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	lang, ok := e.langs.ForFile(path)
	if !ok {
		return workItem{}, true, nil
	}
	if e.languages != nil && !e.languages[lang] {
		return workItem{}, true, nil
	}
	if _, ok := parse.Grammar(lang); !ok {
		return workItem{}, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash && existing.Language == lang {
		cached, err := e.store.Artifact(hash, KindASG, lang)
		if err != nil {
			return workItem{}, false, fmt.Errorf("lookup graph: %w", err)
		}
		if cached != nil {
			return workItem{}, true, nil
		}
	}
	if existing != nil {
		if err := e.store.DeleteFileData(path); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	return workItem{
		path:  path,
		lang:  lang,
		src:   content,
		hash:  hash,
		batch: store.NewBatchedStore(e.store),
	}, false, nil
}

// buildFile builds one file's graph into its batch. It touches no shared
// state and may run on any goroutine.
func (e *Engine) buildFile(ctx context.Context, item workItem) error {
	g, err := e.Graph(ctx, item.src, item.lang)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := item.batch.PutArtifact(&store.Artifact{
		Hash:     item.hash,
		Kind:     KindASG,
		Language: item.lang,
		Payload:  payload,
	}); err != nil {
		return err
	}
	item.batch.AddFile(&store.File{
		Path:        item.path,
		Language:    item.lang,
		Hash:        item.hash,
		LineCount:   bytes.Count(item.src, []byte{'\n'}) + 1,
		LastIndexed: time.Now(),
	})
	e.logger.Debug("graph built",
		slog.String("path", item.path),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("edges", len(g.Edges)),
	)
	return nil
}

// skipDirs are excluded from directory walks.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// IndexDirectory indexes every supported file under root. Inside a git
// repository, git ls-files is used so .gitignore is respected. Otherwise
// the filesystem is walked, skipping hidden directories, node_modules,
// vendor and __pycache__.
func (e *Engine) IndexDirectory(ctx context.Context, root string) (IndexStats, error) {
	paths, err := e.ListFiles(root)
	if err != nil {
		return IndexStats{}, err
	}
	return e.IndexFiles(ctx, paths)
}

// ListFiles returns the supported source files under root.
func (e *Engine) ListFiles(root string) ([]string, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", slog.String("root", root), slog.Any("error", err))
		return e.walkListFiles(root)
	}
	return paths, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := e.langs.ForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := e.langs.ForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("asgraph: walk directory: %w", err)
	}
	return paths, nil
}
