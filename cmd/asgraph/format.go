package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jward/asgraph"
)

// maxTextLen caps node text in text output.
const maxTextLen = 40

// formatTreeText prints one node per line, indented by depth.
func formatTreeText(w io.Writer, t *asgraph.Tree) {
	fmt.Fprintf(w, "language: %s\n", t.Language)
	if t.HasErrors {
		fmt.Fprintln(w, "has_errors: true")
	}
	var walk func(n *asgraph.Node, depth int)
	walk = func(n *asgraph.Node, depth int) {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), nodeLine(n))
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	if t.Root != nil {
		walk(t.Root, 0)
	}
}

// nodeLine renders a node as "type [row:col-row:col]", with its text for
// leaves.
func nodeLine(n *asgraph.Node) string {
	s := fmt.Sprintf("%s [%d:%d-%d:%d]", n.Type, n.StartPoint.Row, n.StartPoint.Column, n.EndPoint.Row, n.EndPoint.Column)
	if n.Field != "" {
		s = n.Field + ": " + s
	}
	if len(n.Children) == 0 {
		s += " " + quoteText(n.Text)
	}
	return s
}

func quoteText(s string) string {
	if len(s) > maxTextLen {
		s = s[:maxTextLen] + "..."
	}
	return fmt.Sprintf("%q", s)
}

// formatNodeText prints a single node header.
func formatNodeText(w io.Writer, n *asgraph.Node) {
	fmt.Fprintf(w, "%s %s\n", n.ID(), nodeLine(n))
}

// formatGraphText prints the graph's edges as aligned columns.
func formatGraphText(w io.Writer, g *asgraph.Graph) {
	fmt.Fprintf(w, "language: %s\nroot: %s\nnodes: %d\nedges: %d\n\n", g.Language, g.Root, len(g.Nodes), len(g.Edges))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tKIND\tTARGET")
	for _, e := range g.Edges {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Source, e.Kind, e.Target)
	}
	tw.Flush()
}

// formatDiffText prints edit ranges followed by the changed nodes.
func formatDiffText(w io.Writer, d CLIDiff) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tBYTES")
	for _, r := range d.Changes.EditRanges {
		fmt.Fprintf(tw, "%d:%d\t%d:%d\t%d-%d\n",
			r.StartPoint.Row, r.StartPoint.Column, r.EndPoint.Row, r.EndPoint.Column, r.StartByte, r.EndByte)
	}
	tw.Flush()
	if len(d.Changes.ChangedNodes) > 0 {
		fmt.Fprintln(w, "\nChanged nodes:")
		for _, n := range d.Changes.ChangedNodes {
			fmt.Fprintf(w, "  %s\n", nodeLine(n))
		}
	}
	if d.Unified != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, d.Unified)
	}
}

// formatStructureText prints an analysis as readable sections.
func formatStructureText(w io.Writer, s *asgraph.Structure) {
	fmt.Fprintf(w, "Language: %s\n", s.Language)
	fmt.Fprintf(w, "Nodes: %d, max nesting: %d\n", s.Metrics.TotalNodes, s.Metrics.MaxNestingLevel)

	if len(s.Functions) > 0 {
		fmt.Fprintln(w, "\nFunctions:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  NAME\tLINES\tPARAMETERS")
		for _, f := range s.Functions {
			fmt.Fprintf(tw, "  %s\t%d-%d\t%s\n", f.Name, f.Location.StartLine, f.Location.EndLine, strings.Join(f.Parameters, ", "))
		}
		tw.Flush()
	}
	if len(s.Classes) > 0 {
		fmt.Fprintln(w, "\nClasses:")
		for _, c := range s.Classes {
			fmt.Fprintf(w, "  %s (%d-%d)\n", c.Name, c.Location.StartLine, c.Location.EndLine)
		}
	}
	if len(s.Imports) > 0 {
		fmt.Fprintln(w, "\nImports:")
		for _, imp := range s.Imports {
			fmt.Fprintf(w, "  %s (line %d)\n", imp.Module, imp.Line)
		}
	}
}

// formatIndexStatsText prints the counters of an index run.
func formatIndexStatsText(w io.Writer, s asgraph.IndexStats) {
	fmt.Fprintf(w, "indexed: %d\nskipped: %d\nfailed: %d\n", s.Indexed, s.Skipped, s.Failed)
}

// outputResultText dispatches to the appropriate text formatter based on
// the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case *asgraph.Tree:
		formatTreeText(w, v)
	case *asgraph.Node:
		formatNodeText(w, v)
	case *asgraph.Graph:
		formatGraphText(w, v)
	case CLIDiff:
		formatDiffText(w, v)
	case *asgraph.Structure:
		formatStructureText(w, v)
	case asgraph.IndexStats:
		formatIndexStatsText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case CLIScriptResult:
		data, err := json.MarshalIndent(v.Value, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding script result: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.ResourceURI != "" {
		fmt.Fprintf(w, "\ncached: %s\n", result.ResourceURI)
	}
	return nil
}

// outputResult writes a result to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
