package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/config"
	"github.com/muurk/wificfg/internal/discovery"
	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/ui"
)

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find wificfg services on the network",
	Long: `Browse mDNS for wificfg configuration services.

Every service found is remembered in the device registry. The first one
ever remembered becomes the default for commands run without --device.`,
	Example: `  # Browse for 10 seconds (default)
  wificfg discover

  # Quick browse
  wificfg discover --wait 3s`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List remembered devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

var useCmd = &cobra.Command{
	Use:   "use <device>",
	Short: "Set the default device",
	Example: `  wificfg use lab-board`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUse,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "wait", discovery.DefaultScanTimeout, "How long to browse")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(useCmd)
}

type discoveredDevice struct {
	Instance string            `json:"instance"`
	Hostname string            `json:"hostname"`
	Addr     string            `json:"addr"`
	Version  string            `json:"version,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	p := ui.NewPrinter(cmd.OutOrStdout())

	reg, err := config.LoadRegistry(registryPath)
	if err != nil {
		return err
	}

	if outputFormat == "table" {
		p.PrintHeader("Discover", "wificfg discover", ui.Param{Key: "Wait", Value: discoverTimeout.String()})
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout
	devices, err := scanner.ScanForDevicesWithContext(cmd.Context())
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	for _, d := range devices {
		reg.Remember(d.Instance, d.Addr(), d.Version(), d.DiscoveredAt)
	}
	if len(devices) > 0 {
		if err := reg.Save(); err != nil {
			logging.Warn("Failed to save device registry", zap.String("path", reg.Path()), zap.Error(err))
		}
	}

	if outputFormat == "json" {
		out := make([]discoveredDevice, 0, len(devices))
		for _, d := range devices {
			out = append(out, discoveredDevice{
				Instance: d.Instance,
				Hostname: d.Hostname,
				Addr:     d.Addr(),
				Version:  d.Version(),
				Metadata: d.Metadata,
			})
		}
		return writeJSON(cmd, out)
	}

	if len(devices) == 0 {
		p.PrintWarning("No devices found",
			ui.Param{Key: "Check", Value: "wificfg-server is running with --mdns"},
			ui.Param{Key: "Check", Value: "this machine is on the same network or softAP"},
			ui.Param{Key: "Try", Value: "a longer --wait, or --device with an address"},
		)
		return nil
	}

	rows := make([][]string, 0, len(devices))
	for i, d := range devices {
		rows = append(rows, []string{strconv.Itoa(i + 1), d.Instance, d.Hostname, d.Addr(), d.Version()})
	}
	p.PrintTable([]string{"#", "Instance", "Hostname", "Address", "Version"}, rows)
	p.Newline()
	p.Muted("Use 'wificfg show --device <instance>' to view a device's settings")
	return nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	reg, err := config.LoadRegistry(registryPath)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return writeJSON(cmd, reg)
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	keys := reg.Keys()
	if len(keys) == 0 {
		p.Muted("No remembered devices. Run 'wificfg discover' first.")
		return nil
	}

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		d := reg.Devices[k]
		mark := ""
		if k == reg.DefaultDevice {
			mark = "*"
		}
		seen := ""
		if !d.LastSeen.IsZero() {
			seen = d.LastSeen.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{mark, k, d.Nickname, d.Addr, d.Version, seen})
	}
	p.PrintTable([]string{"", "Device", "Nickname", "Address", "Version", "Last seen"}, rows)
	return nil
}

func runUse(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry(registryPath)
	if err != nil {
		return err
	}
	if err := reg.SetDefault(args[0]); err != nil {
		return err
	}
	if err := reg.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Default device is now %s\n", args[0])
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
