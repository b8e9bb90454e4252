// Package scripts bundles the Risor scripts shipped with asgraph. Each
// top-level script runs against one file's tree and graph; graphutil is a
// helper module the others import.
package scripts

import "embed"

// FS holds the bundled *.risor files.
//
//go:embed *.risor
var FS embed.FS
