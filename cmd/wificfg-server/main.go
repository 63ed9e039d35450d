// Wificfg-server is the WiFi configuration service.
//
// It serves the scan status, settings form and template fields of a radio
// over HTTP, pushes scan results over a websocket, and advertises itself over
// mDNS so the wificfg CLI can find it. This build drives a simulated radio
// described by a YAML profile.
//
// Usage:
//
//	wificfg-server serve [flags]
//
// See 'wificfg-server serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wificfg/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wificfg-server",
	Short: "WiFi configuration service",
	Long: `A WiFi configuration service for a small embedded radio.

The service exposes access point scanning, station and softAP settings, and
the values rendered into the configuration page, all under /wifi. A settings
change either reconnects the station at once or restarts the radio shortly
after the response has been sent.

Use the separate 'wificfg' utility to talk to a running service.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wificfg-server %s\n", version.Full())
	},
}
