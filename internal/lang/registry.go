package lang

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed languages/*.yaml
var builtinFS embed.FS

// Registry resolves language names, aliases and file extensions to configs.
type Registry struct {
	configs map[string]*Config
	aliases map[string]string
	exts    map[string]string
	hash    string
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the registry built from the embedded language tables.
func Default() *Registry {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(builtinFS, "languages")
		if err != nil {
			panic(fmt.Sprintf("lang: builtin tables: %v", err))
		}
		r, err := Load(sub)
		if err != nil {
			panic(fmt.Sprintf("lang: builtin tables: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Load reads every *.yaml file at the root of fsys.
func Load(fsys fs.FS) (*Registry, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("lang: list tables: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("lang: no language tables found")
	}
	sort.Strings(names)

	r := &Registry{
		configs: make(map[string]*Config),
		aliases: make(map[string]string),
		exts:    make(map[string]string),
	}
	h := sha256.New()
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("lang: read %s: %w", name, err)
		}
		h.Write([]byte(name))
		h.Write(data)

		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("lang: parse %s: %w", name, err)
		}
		if err := cfg.compile(); err != nil {
			return nil, fmt.Errorf("lang: %s: %w", path.Base(name), err)
		}
		if _, dup := r.configs[cfg.Name]; dup {
			return nil, fmt.Errorf("lang: %s: duplicate language %q", name, cfg.Name)
		}
		r.configs[cfg.Name] = &cfg
		for _, a := range cfg.Aliases {
			r.aliases[strings.ToLower(a)] = cfg.Name
		}
		for _, ext := range cfg.Extensions {
			r.exts[strings.ToLower(ext)] = cfg.Name
		}
	}
	r.hash = hex.EncodeToString(h.Sum(nil))
	return r, nil
}

// Normalize maps a language name or alias to its canonical name. Unknown
// names are returned lower-cased.
func (r *Registry) Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := r.aliases[name]; ok {
		return canonical
	}
	return name
}

// Lookup returns the configuration for a language name or alias.
func (r *Registry) Lookup(name string) (*Config, error) {
	cfg, ok := r.configs[r.Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("lang: %q: %w", name, ErrUnsupportedLanguage)
	}
	return cfg, nil
}

// ForFile returns the canonical language for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func (r *Registry) ForFile(p string) (string, bool) {
	name, ok := r.exts[strings.ToLower(filepath.Ext(p))]
	return name, ok
}

// Languages returns the canonical names of all configured languages, sorted.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.configs))
	for name := range r.configs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Hash identifies the table contents. Cached graphs built under a different
// hash are stale.
func (r *Registry) Hash() string {
	return r.hash
}
