// Package deviceconfig is the client side of a wificfg service.
//
// It wraps the service's HTTP endpoints: the scan status poll, the settings
// form, the template fields and the websocket scan feed. Requests are retried
// with exponential backoff when the failure looks transient, and every error
// is returned as a *DeviceError that classifies it and can produce a
// troubleshooting hint.
//
// # Usage Example
//
//	client := deviceconfig.NewClient("192.168.4.1", 8080)
//
//	// Trigger a scan and wait for it to finish
//	snap, err := client.WaitForScan(ctx, 0)
//	if err != nil {
//	    log.Fatal(deviceconfig.GetTroubleshootingHint(err))
//	}
//	fmt.Print(deviceconfig.FormatAccessPoints(snap))
//
//	// Join a network and confirm the device took the change
//	ssid, pass := "HomeNetwork", "correcthorse"
//	result := client.ApplyAndVerify(ctx, &deviceconfig.Settings{
//	    ClientSSID:   &ssid,
//	    ClientPasswd: &pass,
//	}, nil)
//	if !result.Success {
//	    log.Fatalf("settings not applied: %v", result.Error)
//	}
//
// # Verification
//
// The settings endpoint answers 204 No Content whether or not it changed
// anything, so ApplyAndVerify reads the fields before and after:
//  1. Read the current fields to learn the operating mode
//  2. Work out which values the device will actually apply
//  3. POST the form
//  4. Poll the fields until those values are reported, with backoff
//
// A mode change restarts the radio and discards the other fields in the same
// request; only the mode is verified in that case.
//
// # Thread Safety
//
// Client instances are safe for concurrent use once configured.
package deviceconfig
