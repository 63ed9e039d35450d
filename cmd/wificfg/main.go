// Wificfg is the command-line client for the wificfg configuration service.
//
// It finds services on the local network over mDNS, lists the access points
// a device can see, shows the current WiFi settings, and changes them with
// read-back verification.
//
// Usage:
//
//	wificfg [command] [flags]
//
// See 'wificfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "wificfg",
	Short: "WiFi configuration client",
	Long: `A client for devices running the wificfg configuration service.

Discovers services over mDNS, lists nearby access points, shows the
current station and softAP settings, and applies changes.

Devices found by 'wificfg discover' are remembered, so later commands
can name them with --device or fall back to the default device.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wificfg %s\n", version.Full())
	},
}
