package main

import "github.com/jward/asgraph"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command     string `json:"command"`
	Results     any    `json:"results"`
	ResourceURI string `json:"resource_uri,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CLIDiff is the result of the diff command.
type CLIDiff struct {
	Changes *asgraph.ChangeSet `json:"changes"`
	Unified string             `json:"unified,omitempty"`
}

// CLIScriptResult wraps a script's final value.
type CLIScriptResult struct {
	Value any `json:"value"`
}
