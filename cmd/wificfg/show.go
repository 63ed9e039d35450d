package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/wificfg/internal/deviceconfig"
	"github.com/muurk/wificfg/internal/ui"
)

var showSecrets bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the device's WiFi settings",
	Long: `Read every template field from the device and print the current
operating mode, station connection and softAP settings.

The station password is masked unless --show-secrets is given.`,
	Example: `  # Default device
  wificfg show

  # Specific device as JSON
  wificfg show --device 192.168.4.1:8080 --format json`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

var getCmd = &cobra.Command{
	Use:   "get <field>",
	Short: "Print one template field",
	Long: `Print the current value of a single template field, as the device
would substitute it into its configuration page.`,
	Example: `  wificfg get clientSSID
  wificfg get clientIp`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print the station password in clear")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(getCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	client, err := newDeviceClient(p)
	if err != nil {
		return err
	}

	fields, err := client.Fields(cmd.Context())
	if err != nil {
		if outputFormat == "table" {
			printDeviceError(p, "Could not read device settings", err)
		}
		return fmt.Errorf("failed to read settings: %w", err)
	}

	if !showSecrets {
		if pw, ok := fields["clientPasswd"]; ok {
			fields["clientPasswd"] = deviceconfig.MaskSecret(pw)
		}
	}

	if outputFormat == "json" {
		return writeJSON(cmd, fields)
	}

	status, err := deviceconfig.ParseStatus(fields)
	if err != nil {
		return err
	}
	p.PrintHeader("Device Settings", "wificfg show",
		ui.Param{Key: "Device", Value: client.BaseURL},
		ui.Param{Key: "State", Value: status.Summary()},
	)
	p.Print(status.FormatStatus())
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	client, err := newDeviceClient(p)
	if err != nil {
		return err
	}

	value, err := client.Field(cmd.Context(), args[0])
	if err != nil {
		if deviceconfig.IsNotFound(err) {
			return fmt.Errorf("unknown field %q", args[0])
		}
		return fmt.Errorf("failed to read field: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(cmd, map[string]string{args[0]: value})
	}
	p.Println(value)
	return nil
}
