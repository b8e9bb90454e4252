// Package analysis summarises a syntax tree: its functions, classes and
// imports plus simple complexity metrics. Lines are 1-based.
package analysis

import (
	"fmt"
	"strings"

	"github.com/jward/asgraph/internal/lang"
	"github.com/jward/asgraph/internal/tree"
)

type Location struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

type Function struct {
	Name       string   `json:"name"`
	Location   Location `json:"location"`
	Parameters []string `json:"parameters"`
}

type Class struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
}

type Import struct {
	Module string `json:"module"`
	Line   int    `json:"line"`
}

type Metrics struct {
	MaxNestingLevel int `json:"max_nesting_level"`
	TotalNodes      int `json:"total_nodes"`
}

// Structure is the analysis result for one source text.
type Structure struct {
	Language  string     `json:"language"`
	Functions []Function `json:"functions"`
	Classes   []Class    `json:"classes"`
	Imports   []Import   `json:"imports"`
	Metrics   Metrics    `json:"complexity_metrics"`
}

// Analyze walks root once and collects its structure under cfg.
func Analyze(root *tree.Node, cfg *lang.Config, maxDepth int) (*Structure, error) {
	a := &analyzer{
		cfg:      cfg,
		maxDepth: maxDepth,
		out: &Structure{
			Language:  cfg.Name,
			Functions: []Function{},
			Classes:   []Class{},
			Imports:   []Import{},
		},
	}
	if root != nil {
		if err := a.visit(root, 0, 0); err != nil {
			return nil, fmt.Errorf("analysis: %w", err)
		}
	}
	return a.out, nil
}

type analyzer struct {
	cfg      *lang.Config
	maxDepth int
	out      *Structure
}

func (a *analyzer) visit(n *tree.Node, depth, nesting int) error {
	if err := tree.CheckDepth(n, depth, a.maxDepth); err != nil {
		return err
	}
	a.out.Metrics.TotalNodes++
	if a.cfg.IsNesting(n.Type) {
		nesting++
		a.out.Metrics.MaxNestingLevel = max(a.out.Metrics.MaxNestingLevel, nesting)
	}

	switch {
	case a.cfg.IsFunction(n.Type):
		a.out.Functions = append(a.out.Functions, Function{
			Name:       a.name(n),
			Location:   location(n),
			Parameters: a.parameters(n),
		})
	case a.cfg.IsClass(n.Type):
		a.out.Classes = append(a.out.Classes, Class{Name: a.name(n), Location: location(n)})
	case a.cfg.IsImport(n.Type):
		a.out.Imports = append(a.out.Imports, Import{
			Module: strings.Join(a.importNames(n, nil), "."),
			Line:   n.StartPoint.Row + 1,
		})
	}

	for _, c := range n.Children {
		if err := a.visit(c, depth+1, nesting); err != nil {
			return err
		}
	}
	return nil
}

func location(n *tree.Node) Location {
	return Location{StartLine: n.StartPoint.Row + 1, EndLine: n.EndPoint.Row + 1}
}

func (a *analyzer) name(n *tree.Node) string {
	for _, c := range n.Children {
		if a.cfg.IsNameType(c.Type) {
			return c.Text
		}
	}
	return ""
}

func (a *analyzer) parameters(n *tree.Node) []string {
	params := []string{}
	for _, list := range n.Children {
		if !a.cfg.IsParameterList(list.Type) {
			continue
		}
		for _, p := range list.Children {
			if a.cfg.IsIdentifier(p.Type) {
				params = append(params, p.Text)
				continue
			}
			if a.cfg.WrapperMode(p.Type) == "" {
				continue
			}
			for _, c := range p.Children {
				if a.cfg.IsIdentifier(c.Type) {
					params = append(params, c.Text)
					if a.cfg.WrapperMode(p.Type) == lang.WrapperFirst {
						break
					}
				}
			}
		}
	}
	return params
}

// importNames collects the imported module paths in source order. Aliased
// imports contribute the path, not the alias.
func (a *analyzer) importNames(n *tree.Node, acc []string) []string {
	for _, c := range n.Children {
		switch {
		case a.cfg.IsImportName(c.Type):
			acc = append(acc, strings.Trim(c.Text, "\"'`"))
		case a.cfg.IsImportAlias(c.Type):
			for _, cc := range c.Children {
				if a.cfg.IsImportName(cc.Type) {
					acc = append(acc, strings.Trim(cc.Text, "\"'`"))
					break
				}
			}
		default:
			acc = a.importNames(c, acc)
		}
	}
	return acc
}
