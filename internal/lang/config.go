// Package lang holds the per-language configuration tables that drive the
// semantic passes: which node kinds open scopes, which productions define
// symbols, and which identifier positions are definitions rather than uses.
// Adding a language means adding a YAML file, not code.
package lang

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedLanguage is returned for a language with no configuration.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Parameter wrapper modes.
const (
	WrapperFirst = "first" // only the first identifier child names a parameter
	WrapperAll   = "all"   // every identifier child names a parameter
)

// Binding is an assignment-like production. Children before the first
// Separator child are targets; children after it are the value.
type Binding struct {
	Node      string `yaml:"node"`
	Separator string `yaml:"separator"`
}

// Config is one language's table set, as loaded from YAML.
type Config struct {
	Name       string   `yaml:"name"`
	Aliases    []string `yaml:"aliases"`
	Extensions []string `yaml:"extensions"`

	// Scopes maps scope-introducing node types to a scope kind label.
	Scopes map[string]string `yaml:"scopes"`

	Identifiers []string `yaml:"identifiers"`
	NameTypes   []string `yaml:"name_types"`

	Functions         []string          `yaml:"functions"`
	Classes           []string          `yaml:"classes"`
	ParameterLists    []string          `yaml:"parameter_lists"`
	ParameterWrappers map[string]string `yaml:"parameter_wrappers"`

	Bindings  []Binding `yaml:"bindings"`
	Unpacking []string  `yaml:"unpacking"`

	Imports       []string `yaml:"imports"`
	ImportNames   []string `yaml:"import_names"`
	ImportAliases []string `yaml:"import_aliases"`

	Calls       []string `yaml:"calls"`
	ControlFlow []string `yaml:"control_flow"`
	BodyTypes   []string `yaml:"body_types"`

	// Nesting lists the statement types that count toward nesting depth in
	// structure analysis. Defaults to ControlFlow.
	Nesting []string `yaml:"nesting"`

	// ExcludeParents lists parent positions in which an identifier is a
	// definition, not a reference. Entries are "type" or "type.field".
	ExcludeParents []string `yaml:"exclude_parents"`

	identifiers, nameTypes, functions, classes, paramLists set
	unpacking, imports, importNames, importAliases, calls  set
	controlFlow, bodyTypes, nesting, excludedTypes         set
	bindings                                               map[string]string
	excludedFields                                         map[string]set
}

type set map[string]bool

func newSet(items []string) set {
	s := make(set, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

// compile validates c and builds its lookup sets.
func (c *Config) compile() error {
	if c.Name == "" {
		return errors.New("lang: config has no name")
	}
	if len(c.Identifiers) == 0 {
		return fmt.Errorf("lang: %s: no identifier types", c.Name)
	}
	for typ, mode := range c.ParameterWrappers {
		if mode != WrapperFirst && mode != WrapperAll {
			return fmt.Errorf("lang: %s: parameter wrapper %s: unknown mode %q", c.Name, typ, mode)
		}
	}

	c.identifiers = newSet(c.Identifiers)
	c.nameTypes = newSet(c.NameTypes)
	if len(c.nameTypes) == 0 {
		c.nameTypes = c.identifiers
	}
	c.functions = newSet(c.Functions)
	c.classes = newSet(c.Classes)
	c.paramLists = newSet(c.ParameterLists)
	c.unpacking = newSet(c.Unpacking)
	c.imports = newSet(c.Imports)
	c.importNames = newSet(c.ImportNames)
	c.importAliases = newSet(c.ImportAliases)
	c.calls = newSet(c.Calls)
	c.controlFlow = newSet(c.ControlFlow)
	c.bodyTypes = newSet(c.BodyTypes)
	c.nesting = newSet(c.Nesting)
	if len(c.nesting) == 0 {
		c.nesting = c.controlFlow
	}

	c.bindings = make(map[string]string, len(c.Bindings))
	for _, b := range c.Bindings {
		if b.Node == "" || b.Separator == "" {
			return fmt.Errorf("lang: %s: binding needs node and separator", c.Name)
		}
		c.bindings[b.Node] = b.Separator
	}

	c.excludedTypes = make(set)
	c.excludedFields = make(map[string]set)
	for _, entry := range c.ExcludeParents {
		typ, field, ok := strings.Cut(entry, ".")
		if !ok {
			c.excludedTypes[typ] = true
			continue
		}
		if c.excludedFields[typ] == nil {
			c.excludedFields[typ] = make(set)
		}
		c.excludedFields[typ][field] = true
	}
	return nil
}

// ScopeKind reports the scope kind opened by nodes of type typ.
func (c *Config) ScopeKind(typ string) (string, bool) {
	kind, ok := c.Scopes[typ]
	return kind, ok
}

func (c *Config) IsIdentifier(typ string) bool    { return c.identifiers[typ] }
func (c *Config) IsNameType(typ string) bool      { return c.nameTypes[typ] }
func (c *Config) IsFunction(typ string) bool      { return c.functions[typ] }
func (c *Config) IsClass(typ string) bool         { return c.classes[typ] }
func (c *Config) IsParameterList(typ string) bool { return c.paramLists[typ] }
func (c *Config) IsUnpacking(typ string) bool     { return c.unpacking[typ] }
func (c *Config) IsImport(typ string) bool        { return c.imports[typ] }
func (c *Config) IsImportName(typ string) bool    { return c.importNames[typ] }
func (c *Config) IsImportAlias(typ string) bool   { return c.importAliases[typ] }
func (c *Config) IsCall(typ string) bool          { return c.calls[typ] }
func (c *Config) IsControlFlow(typ string) bool   { return c.controlFlow[typ] }
func (c *Config) IsBody(typ string) bool          { return c.bodyTypes[typ] }
func (c *Config) IsNesting(typ string) bool       { return c.nesting[typ] }

// WrapperMode returns how identifiers inside a parameter wrapper node are
// registered, or "" when typ is not a wrapper.
func (c *Config) WrapperMode(typ string) string {
	return c.ParameterWrappers[typ]
}

// BindingSeparator returns the separator token type for an assignment-like
// production.
func (c *Config) BindingSeparator(typ string) (string, bool) {
	sep, ok := c.bindings[typ]
	return sep, ok
}

// Excluded reports whether an identifier that is the child of a parentType
// node, under the given field name, sits in a definition position.
func (c *Config) Excluded(parentType, field string) bool {
	if c.excludedTypes[parentType] {
		return true
	}
	return field != "" && c.excludedFields[parentType][field]
}

// ProbeFields returns the field names the parser must record on children of
// parentType so Excluded can see them.
func (c *Config) ProbeFields(parentType string) []string {
	fields := c.excludedFields[parentType]
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	return out
}
