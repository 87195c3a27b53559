// Command resolverd is the resolver daemon: it loads configuration,
// builds the resolver's caches and zone tables, and serves the
// mutual-TLS remote-control channel described by spec.md.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "resolverd",
	Short: "DNS resolver daemon with a remote-control channel",
	Long: `resolverd resolves DNS queries and exposes a mutual-TLS control
channel for runtime inspection and reconfiguration: cache flushes, local
zone and forward/stub zone edits, trust anchor management, and live
configuration reload.`,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("resolverd version %s (commit %s, built %s)\n", version, gitCommit, buildTime)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
