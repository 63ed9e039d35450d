package deviceconfig

import (
	"strings"
	"testing"

	"github.com/muurk/wificfg/internal/radio"
	"github.com/muurk/wificfg/internal/scancache"
)

func TestFormatAccessPoints(t *testing.T) {
	snap := scancache.Snapshot{
		InProgress: true,
		AccessPoints: []scancache.AccessPoint{
			{SSID: "HomeNetwork", RSSI: -48, Enc: radio.AuthWPA2PSK},
			{SSID: "", RSSI: -95, Enc: radio.AuthOpen},
		},
	}

	got := FormatAccessPoints(snap)
	for _, want := range []string{"HomeNetwork", "WPA2_PSK", "▂▄▆█", "(hidden)", "____", "scan in progress"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatAccessPoints() missing %q:\n%s", want, got)
		}
	}

	if got := FormatAccessPoints(scancache.Snapshot{}); !strings.Contains(got, "no access points") {
		t.Errorf("empty FormatAccessPoints() = %q", got)
	}
}

func TestSignalBars(t *testing.T) {
	tests := []struct {
		rssi int8
		want string
	}{
		{-40, "▂▄▆█"},
		{-60, "▂▄▆_"},
		{-70, "▂▄__"},
		{-85, "▂___"},
		{-100, "____"},
	}
	for _, tt := range tests {
		if got := SignalBars(tt.rssi); got != tt.want {
			t.Errorf("SignalBars(%d) = %q, want %q", tt.rssi, got, tt.want)
		}
	}
}

func TestFormatChanges_MasksPassword(t *testing.T) {
	cur := &Status{Mode: radio.ModeStation, ClientSSID: "Old", ClientPasswd: "oldsecret"}
	s := &Settings{ClientSSID: strPtr("New"), ClientPasswd: strPtr("newsecret")}

	got := s.FormatChanges(cur)
	if strings.Contains(got, "secret") {
		t.Errorf("FormatChanges() leaks the password:\n%s", got)
	}
	if !strings.Contains(got, "Old → New") {
		t.Errorf("FormatChanges() missing SSID change:\n%s", got)
	}

	if got := (&Settings{}).FormatChanges(nil); !strings.Contains(got, "no changes") {
		t.Errorf("empty FormatChanges() = %q", got)
	}
}

func TestFormatStatus(t *testing.T) {
	st := &Status{
		Mode:            radio.ModeStationAP,
		ClientSSID:      "HomeNetwork",
		ClientPasswd:    "correcthorse",
		ClientIP:        "192.168.1.50",
		ClientConnected: radio.StationGotIP,
		APSSID:          "ESP_000001",
		APChannel:       1,
	}

	got := st.FormatStatus()
	if strings.Contains(got, "correcthorse") {
		t.Error("FormatStatus() leaks the password")
	}
	for _, want := range []string{"station+softap (3)", "192.168.1.50", "got IP", "ESP_000001"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatStatus() missing %q:\n%s", want, got)
		}
	}

	if !strings.Contains(st.Summary(), `joined "HomeNetwork" as 192.168.1.50`) {
		t.Errorf("Summary() = %q", st.Summary())
	}

	ap := &Status{Mode: radio.ModeSoftAP, APSSID: "ESP", APChannel: 6}
	if got := ap.FormatStatus(); strings.Contains(got, "IP:") {
		t.Errorf("softAP FormatStatus() should omit station addressing:\n%s", got)
	}
}

func TestFormatDiff(t *testing.T) {
	old := &Status{Mode: radio.ModeStation, APChannel: 1}
	changed := &Status{Mode: radio.ModeStationAP, APChannel: 6}

	got := FormatDiff(old, changed)
	if !strings.Contains(got, "station → station+softap") || !strings.Contains(got, "1 → 6") {
		t.Errorf("FormatDiff() = %q", got)
	}
	if got := FormatDiff(old, old); !strings.Contains(got, "no differences") {
		t.Errorf("FormatDiff(same) = %q", got)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want radio.OpMode
		ok   bool
	}{
		{"station", radio.ModeStation, true},
		{"2", radio.ModeSoftAP, true},
		{"Both", radio.ModeStationAP, true},
		{"off", radio.ModeOff, true},
		{"4", 0, false},
		{"mesh", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseAuthMode(t *testing.T) {
	tests := []struct {
		in   string
		want radio.AuthMode
		ok   bool
	}{
		{"open", radio.AuthOpen, true},
		{"WPA2", radio.AuthWPA2PSK, true},
		{"wpa2_psk", radio.AuthWPA2PSK, true},
		{"4", radio.AuthWPAWPA2PSK, true},
		{"wpa3", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseAuthMode(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseAuthMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}
