// Package main is the entry point for the shortcycle CLI.
// shortcycle negotiates video storyboards between a planner and a reviewer
// in a bounded feedback loop, then renders and publishes approved results.
package main

import (
	"github.com/veldt-labs/shortcycle/internal/cli"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	cli.Execute()
}
