package parse

import (
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/jward/asgraph/internal/lang"
)

// grammars maps canonical language names to tree-sitter grammars.
// Lazily initialized on first call via sync.Once.
var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"go":         golang.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"python":     python.GetLanguage(),
			"typescript": ts.GetLanguage(),
		}
	})
}

// Grammar returns the tree-sitter grammar for a canonical language name.
func Grammar(name string) (*sitter.Language, bool) {
	initGrammars()
	g, ok := grammars[name]
	return g, ok
}

// Supported returns the languages that have both a grammar and a
// configuration table in reg, sorted.
func Supported(reg *lang.Registry) []string {
	initGrammars()
	var out []string
	for _, name := range reg.Languages() {
		if _, ok := grammars[name]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
