package deviceconfig

import (
	"fmt"
	"strings"

	"github.com/muurk/wificfg/internal/radio"
	"github.com/muurk/wificfg/internal/scancache"
)

// MaskSecret hides a password, keeping only its length visible.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("*", len(s))
}

// SignalBars renders an RSSI reading as a four-step bar.
func SignalBars(rssi int8) string {
	switch {
	case rssi >= -55:
		return "▂▄▆█"
	case rssi >= -67:
		return "▂▄▆_"
	case rssi >= -78:
		return "▂▄__"
	case rssi >= -90:
		return "▂___"
	default:
		return "____"
	}
}

// Summary returns a one-line summary of the device state
func (s *Status) Summary() string {
	switch {
	case s.Mode.HasStation() && s.HasClientIP():
		return fmt.Sprintf("%s, joined %q as %s (%s)", s.Mode, s.ClientSSID, s.ClientIP, s.ClientConnected)
	case s.Mode.HasStation():
		return fmt.Sprintf("%s, station %q %s", s.Mode, s.ClientSSID, s.ClientConnected)
	default:
		return fmt.Sprintf("%s, serving %q on channel %d", s.Mode, s.APSSID, s.APChannel)
	}
}

// FormatStatus returns a formatted multi-section view of the device state
func (s *Status) FormatStatus() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Mode:        %s (%d)\n", s.Mode, s.Mode)

	b.WriteString("\n=== Station ===\n")
	fmt.Fprintf(&b, "SSID:        %s\n", orNone(s.ClientSSID))
	fmt.Fprintf(&b, "Password:    %s\n", orNone(MaskSecret(s.ClientPasswd)))
	fmt.Fprintf(&b, "Status:      %s\n", s.ClientConnected)
	fmt.Fprintf(&b, "MAC:         %s\n", orNone(s.ClientMAC))
	fmt.Fprintf(&b, "DHCP:        %v\n", s.ClientDHCP)
	if s.HasClientIP() {
		fmt.Fprintf(&b, "IP:          %s\n", s.ClientIP)
		fmt.Fprintf(&b, "Netmask:     %s\n", s.ClientNetmask)
		fmt.Fprintf(&b, "Gateway:     %s\n", s.ClientGateway)
	}

	b.WriteString("\n=== Access Point ===\n")
	fmt.Fprintf(&b, "SSID:        %s\n", orNone(s.APSSID))
	fmt.Fprintf(&b, "Auth:        %s\n", s.APAuth)
	fmt.Fprintf(&b, "Channel:     %d\n", s.APChannel)

	return b.String()
}

// FormatAccessPoints returns the scan results as a text table
func FormatAccessPoints(snap scancache.Snapshot) string {
	var b strings.Builder

	if len(snap.AccessPoints) == 0 {
		b.WriteString("(no access points found)\n")
	} else {
		width := len("SSID")
		for _, ap := range snap.AccessPoints {
			width = max(width, len(ap.SSID))
		}

		fmt.Fprintf(&b, "%-*s  %5s  %-4s  %s\n", width, "SSID", "RSSI", "", "SECURITY")
		for _, ap := range snap.AccessPoints {
			ssid := ap.SSID
			if ssid == "" {
				ssid = "(hidden)"
			}
			fmt.Fprintf(&b, "%-*s  %5d  %s  %s\n", width, ssid, ap.RSSI, SignalBars(ap.RSSI), ap.Enc)
		}
	}

	if snap.InProgress {
		b.WriteString("(scan in progress, showing previous results)\n")
	}

	return b.String()
}

// FormatChanges returns a formatted string showing what will be changed,
// old values taken from cur when it is known.
func (s *Settings) FormatChanges(cur *Status) string {
	var b strings.Builder
	changes := 0

	b.WriteString("=== Settings Changes ===\n")

	line := func(label, from, to string) {
		if cur == nil || from == to {
			fmt.Fprintf(&b, "  %-14s %s\n", label+":", to)
		} else {
			fmt.Fprintf(&b, "  %-14s %s → %s\n", label+":", from, to)
		}
		changes++
	}

	var old Status
	if cur != nil {
		old = *cur
	}

	if s.Mode != nil {
		line("WiFi mode", old.Mode.String(), s.Mode.String())
	}
	if s.ClientSSID != nil {
		line("Client SSID", old.ClientSSID, *s.ClientSSID)
	}
	if s.ClientPasswd != nil {
		line("Client pass", MaskSecret(old.ClientPasswd), MaskSecret(*s.ClientPasswd))
	}
	if s.APAuth != nil {
		line("AP auth", old.APAuth.String(), s.APAuth.String())
	}
	if s.APChannel != nil {
		line("AP channel", fmt.Sprint(old.APChannel), fmt.Sprint(*s.APChannel))
	}
	if s.APSSID != nil {
		line("AP SSID", old.APSSID, *s.APSSID)
	}

	if changes == 0 {
		b.WriteString("(no changes specified)\n")
	}

	return b.String()
}

// FormatDiff returns a formatted diff between two device states
func FormatDiff(old, new *Status) string {
	var b strings.Builder

	b.WriteString("=== Settings Differences ===\n")

	hasChanges := false
	diff := func(label, from, to string) {
		if from != to {
			fmt.Fprintf(&b, "  %-14s %s → %s\n", label+":", from, to)
			hasChanges = true
		}
	}

	diff("WiFi mode", old.Mode.String(), new.Mode.String())
	diff("Client SSID", old.ClientSSID, new.ClientSSID)
	diff("Client pass", MaskSecret(old.ClientPasswd), MaskSecret(new.ClientPasswd))
	diff("Client IP", old.ClientIP, new.ClientIP)
	diff("Station", old.ClientConnected.String(), new.ClientConnected.String())
	diff("AP auth", old.APAuth.String(), new.APAuth.String())
	diff("AP channel", fmt.Sprint(old.APChannel), fmt.Sprint(new.APChannel))
	diff("AP SSID", old.APSSID, new.APSSID)

	if !hasChanges {
		b.WriteString("(no differences detected)\n")
	}

	return b.String()
}

// ParseMode accepts a mode by number or by name.
func ParseMode(s string) (radio.OpMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "off":
		return radio.ModeOff, nil
	case "1", "sta", "station":
		return radio.ModeStation, nil
	case "2", "ap", "softap":
		return radio.ModeSoftAP, nil
	case "3", "sta+ap", "station+softap", "both":
		return radio.ModeStationAP, nil
	}
	return 0, NewValidationError(fmt.Sprintf("unknown wifi mode %q (use off, station, softap, both or 0-3)", s))
}

// ParseAuthMode accepts an AP auth mode by number or by name.
func ParseAuthMode(s string) (radio.AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "open":
		return radio.AuthOpen, nil
	case "1", "wep":
		return radio.AuthWEP, nil
	case "2", "wpa", "wpa-psk", "wpa_psk":
		return radio.AuthWPAPSK, nil
	case "3", "wpa2", "wpa2-psk", "wpa2_psk":
		return radio.AuthWPA2PSK, nil
	case "4", "wpa/wpa2", "wpa-wpa2", "wpa_wpa2_psk":
		return radio.AuthWPAWPA2PSK, nil
	}
	return 0, NewValidationError(fmt.Sprintf("unknown AP auth mode %q (use open, wep, wpa, wpa2, wpa-wpa2 or 0-4)", s))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
