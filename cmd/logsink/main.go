// Package main provides the logsink binary: the HTTP sink plus maintenance
// subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "logsink",
	Short: "Receives nginx access logs and flags server errors",
	Long: `logsink accepts nginx access logs pushed by a Pub/Sub push subscription
(Cloud Logging entries) or posted directly by a sidecar, normalises and
parses them, alerts on 5xx responses and optionally stores them in Postgres.

Configuration is read from LOGSINK_* environment variables and an optional
.env file. PORT overrides the listen port.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(parseCmd)
}
