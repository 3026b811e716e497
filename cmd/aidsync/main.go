// Package main provides the entry point for the aidsync CLI.
package main

import (
	"github.com/openaid/aidsync/cmd/aidsync/cmd"
)

// Version information populated by the build.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd.Execute(version, commit)
}
