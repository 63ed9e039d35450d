package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/wificfg/internal/deviceconfig"
	"github.com/muurk/wificfg/internal/scancache"
	"github.com/muurk/wificfg/internal/ui"
)

var (
	scanWait   bool
	scanFollow bool
	scanCount  int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the access points a device can see",
	Long: `Ask the device for its cached access point list.

Each request also starts a fresh scan on the device when none is running,
so the list returned is the one from the previous scan. Use --wait to poll
until the fresh scan finishes, or --follow to print every completed scan
as it arrives.`,
	Example: `  # Cached results, starting a scan in the background
  wificfg scan

  # Wait for a fresh scan
  wificfg scan --wait

  # Print each new scan until interrupted
  wificfg scan --follow

  # Machine readable output
  wificfg scan --wait --format json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVarP(&scanWait, "wait", "w", false, "Wait for the scan started by this request to finish")
	scanCmd.Flags().BoolVarP(&scanFollow, "follow", "f", false, "Stream completed scans over the websocket feed")
	scanCmd.Flags().IntVarP(&scanCount, "count", "n", 0, "With --follow, stop after this many scans (0 = until interrupted)")
	scanCmd.MarkFlagsMutuallyExclusive("wait", "follow")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	client, err := newDeviceClient(p)
	if err != nil {
		return err
	}

	if scanFollow {
		return followScans(cmd, client, p)
	}

	ctx := cmd.Context()
	var snap scancache.Snapshot
	if scanWait {
		snap, err = client.WaitForScan(ctx, deviceconfig.DefaultPollInterval)
	} else {
		snap, err = client.Scan(ctx)
	}
	if err != nil {
		if outputFormat == "table" {
			printDeviceError(p, "Scan failed", err)
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	if outputFormat == "json" {
		return snap.WriteJSON(cmd.OutOrStdout())
	}
	printSnapshot(p, snap)
	return nil
}

func followScans(cmd *cobra.Command, client *deviceconfig.Client, p *ui.Printer) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if outputFormat == "table" {
		p.Muted("Following scans, press Ctrl-C to stop")
	}

	seen := 0
	err := client.Follow(ctx, true, func(snap scancache.Snapshot) error {
		seen++
		if outputFormat == "json" {
			if err := snap.WriteJSON(cmd.OutOrStdout()); err != nil {
				return err
			}
		} else {
			p.Print(ui.RenderHorizontalDivider(p.Width(), "─") + "\n")
			p.Print(deviceconfig.FormatAccessPoints(snap))
		}
		if scanCount > 0 && seen >= scanCount {
			return deviceconfig.ErrStopFollow
		}
		return nil
	})
	if ctx.Err() != nil {
		// Interrupted.
		return nil
	}
	if err != nil && outputFormat == "table" {
		printDeviceError(p, "Scan feed failed", err)
	}
	return err
}

func printSnapshot(p *ui.Printer, snap scancache.Snapshot) {
	if len(snap.AccessPoints) == 0 {
		p.Muted("(no access points found)")
	} else {
		rows := make([][]string, 0, len(snap.AccessPoints))
		for _, ap := range snap.AccessPoints {
			ssid := ap.SSID
			if ssid == "" {
				ssid = "(hidden)"
			}
			rows = append(rows, []string{ssid, strconv.Itoa(int(ap.RSSI)), deviceconfig.SignalBars(ap.RSSI), ap.Enc.String()})
		}
		p.PrintTable([]string{"SSID", "RSSI", "Signal", "Security"}, rows)
	}
	if snap.InProgress {
		p.Muted("Scan in progress, showing previous results. Use --wait for fresh ones.")
	}
}
