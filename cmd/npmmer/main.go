// Package main is the entry point for the npmmer server.
//
// The binary is a cobra command tree:
//
//	npmmer serve               run the HTTP server
//	npmmer migrate up|down|version
//
// All actual logic lives in internal/; this package only parses flags,
// loads configuration and opens the long-lived resources.
package main

import (
	"context"
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
