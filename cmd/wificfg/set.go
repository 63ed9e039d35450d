package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/wificfg/internal/deviceconfig"
	"github.com/muurk/wificfg/internal/ui"
)

// Set command flags
var (
	setMode         string
	setClientSSID   string
	setClientPasswd string
	setAPAuth       string
	setAPChannel    int
	setAPSSID       string
	noVerify        bool
	retries         int
	assumeYes       bool
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the device's WiFi settings",
	Long: `Send a settings change to the device and verify it took effect.

Only the flags given are sent. The device applies them as follows:

  --mode                 changes the operating mode and restarts the radio.
                         Other settings in the same request are ignored.
  --ap-*                 changes the softAP and restarts the radio. Station
                         settings in the same request are dropped.
  --client-ssid/-passwd  reconnects the station without a restart.

Use --client-passwd - to be prompted for the password without echo.`,
	Example: `  # Join a network
  wificfg set --client-ssid HomeNetwork --client-passwd -

  # Rename the softAP and move it to channel 6
  wificfg set --ap-ssid lab --ap-channel 6

  # Switch to station+softAP mode
  wificfg set --mode sta+ap --yes`,
	Args: cobra.NoArgs,
	RunE: runSet,
}

func init() {
	f := setCmd.Flags()
	f.StringVar(&setMode, "mode", "", "Operating mode (sta, ap, sta+ap or 1-3)")
	f.StringVar(&setClientSSID, "client-ssid", "", "Network for the station to join")
	f.StringVar(&setClientPasswd, "client-passwd", "", "Station password, or - to prompt")
	f.StringVar(&setAPAuth, "ap-auth", "", "softAP security (open, wep, wpa-psk, wpa2-psk, wpa/wpa2 or 0-4)")
	f.IntVar(&setAPChannel, "ap-channel", 0, "softAP channel (1-14)")
	f.StringVar(&setAPSSID, "ap-ssid", "", "softAP network name")
	f.BoolVar(&noVerify, "no-verify", false, "Skip read-back verification after the change")
	f.IntVar(&retries, "retries", 3, "Number of verification read-backs")
	f.BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before a mode change")

	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	prompter := ui.NewPrompter(nil, cmd.ErrOrStderr())

	s, err := settingsFromFlags(cmd, prompter)
	if err != nil {
		return err
	}

	warnings, errs := deviceconfig.SeparateWarningsAndErrors(deviceconfig.ValidateSettings(s))
	if len(errs) > 0 {
		return errors.New(strings.TrimRight(deviceconfig.FormatValidationErrors(errs), "\n"))
	}

	client, err := newDeviceClient(p)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	cur, err := client.Status(ctx)
	if err != nil {
		printDeviceError(p, "Could not read device settings", err)
		return fmt.Errorf("failed to read settings: %w", err)
	}

	p.PrintHeader("Change Settings", "wificfg set",
		ui.Param{Key: "Device", Value: client.BaseURL},
		ui.Param{Key: "State", Value: cur.Summary()},
	)
	p.Print(s.FormatChanges(cur))
	for _, w := range warnings {
		p.Println(ui.WarningTitleStyle.Render(ui.WarningMarker + " " + strings.TrimPrefix(w.Error(), "warning: ")))
	}
	p.Newline()

	if s.Mode != nil && *s.Mode != cur.Mode && !assumeYes {
		ok, err := prompter.Confirm("Changing the mode restarts the radio and may drop this connection. Continue?")
		if errors.Is(err, ui.ErrNotTerminal) {
			return fmt.Errorf("mode change needs confirmation; rerun with --yes")
		}
		if err != nil {
			return err
		}
		if !ok {
			p.Muted("Cancelled.")
			return nil
		}
	}

	prog := ui.NewProgress("Applying settings to "+client.BaseURL, deviceconfig.StageNames...)

	if noVerify {
		prog.CompleteStep(int(deviceconfig.StageValidate), "")
		prog.CompleteStep(int(deviceconfig.StageReadCurrent), "")
		prog.StartStep(int(deviceconfig.StageApply), "")
		p.ShowProgress(prog)
		if err := client.ApplySettings(ctx, s); err != nil {
			prog.FailStep(int(deviceconfig.StageApply), "")
			p.ShowProgress(prog)
			printDeviceError(p, "Settings not sent", err)
			return fmt.Errorf("apply failed: %w", err)
		}
		prog.CompleteStep(int(deviceconfig.StageApply), "")
		prog.SkipStep(int(deviceconfig.StageVerify), "--no-verify")
		p.ShowProgress(prog)
		p.PrintSuccess("Settings sent (not verified)",
			ui.Param{Key: "Device", Value: client.BaseURL},
		)
		return nil
	}

	opts := deviceconfig.DefaultVerificationOptions()
	opts.MaxRetries = retries
	opts.OnStage = func(ev deviceconfig.StageEvent) {
		trackStage(prog, ev)
		p.ShowProgress(prog)
	}
	vctx, cancel := context.WithTimeout(ctx, verifyTimeout(opts))
	defer cancel()
	result := client.ApplyAndVerify(vctx, s, opts)

	if !result.Success {
		title := "Settings not confirmed"
		if result.Attempts == 0 {
			title = "Settings not applied"
		}
		tips := make([]string, 0, len(result.Mismatches))
		for _, m := range result.Mismatches {
			tips = append(tips, m+" did not reach the requested value")
		}
		if len(result.Mismatches) == 0 {
			printDeviceError(p, title, result.Error)
		} else {
			tips = append(tips, "A wrong password or an out of range network leaves the old values in place")
			p.PrintError(title, result.Error, tips)
		}
		return fmt.Errorf("verification failed after %d attempt(s)", result.Attempts)
	}

	details := []ui.Param{
		{Key: "Device", Value: client.BaseURL},
		{Key: "Attempts", Value: strconv.Itoa(result.Attempts)},
	}
	if result.After != nil {
		details = append(details, ui.Param{Key: "State", Value: result.After.Summary()})
	}
	p.PrintSuccess("Settings applied and verified", details...)

	if result.Before != nil && result.After != nil {
		p.Print(deviceconfig.FormatDiff(result.Before, result.After))
	}
	return nil
}

// settingsFromFlags builds a change request from the flags that were set.
func settingsFromFlags(cmd *cobra.Command, prompter *ui.Prompter) (*deviceconfig.Settings, error) {
	f := cmd.Flags()
	s := &deviceconfig.Settings{}

	if f.Changed("mode") {
		m, err := deviceconfig.ParseMode(setMode)
		if err != nil {
			return nil, err
		}
		s.Mode = &m
	}
	if f.Changed("client-ssid") {
		s.ClientSSID = &setClientSSID
	}
	if f.Changed("client-passwd") {
		pw := setClientPasswd
		if pw == "-" {
			var err error
			pw, err = prompter.Password("Password for " + orDefault(setClientSSID, "the station network"))
			if err != nil {
				return nil, err
			}
		}
		s.ClientPasswd = &pw
	}
	if f.Changed("ap-auth") {
		a, err := deviceconfig.ParseAuthMode(setAPAuth)
		if err != nil {
			return nil, err
		}
		s.APAuth = &a
	}
	if f.Changed("ap-channel") {
		s.APChannel = &setAPChannel
	}
	if f.Changed("ap-ssid") {
		s.APSSID = &setAPSSID
	}
	return s, nil
}

// trackStage mirrors an apply-and-verify stage event onto the step list.
func trackStage(prog *ui.Progress, ev deviceconfig.StageEvent) {
	note := ""
	if ev.Stage == deviceconfig.StageVerify && ev.Attempt > 0 {
		note = fmt.Sprintf("attempt %d/%d", ev.Attempt, ev.Of)
	}

	n := int(ev.Stage)
	switch {
	case ev.Err != nil:
		prog.FailStep(n, note)
	case ev.Done:
		prog.CompleteStep(n, note)
	default:
		prog.StartStep(n, note)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// verifyTimeout bounds how long a verified change may take end to end.
func verifyTimeout(opts *deviceconfig.VerificationOptions) time.Duration {
	return opts.InitialDelay + time.Duration(opts.MaxRetries+1)*opts.MaxRetryDelay
}
