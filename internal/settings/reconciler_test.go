package settings

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/muurk/wificfg/internal/radio"
)

func form(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		mode        radio.OpMode
		form        url.Values
		want        PendingAction
		wantCalls   []string
		wantMode    radio.OpMode
		wantStation radio.StationConfig
		wantSoftAP  radio.SoftAPConfig
	}{
		{
			name:        "empty submission",
			mode:        radio.ModeStationAP,
			form:        form(),
			want:        ActionNone,
			wantMode:    radio.ModeStationAP,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "identical values",
			mode:        radio.ModeStationAP,
			form:        form("wifiMode", "3", "clientSSID", "home", "clientPasswd", "secret", "APAuth", "0", "APChannel", "1", "APSSID", "ESP_ABCDEF"),
			want:        ActionNone,
			wantMode:    radio.ModeStationAP,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "mode change ignores other fields",
			mode:        radio.ModeStation,
			form:        form("wifiMode", "3", "clientSSID", "other", "APChannel", "6"),
			want:        ActionRestartAfterDelay,
			wantCalls:   []string{"SetOpMode"},
			wantMode:    radio.ModeStationAP,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "new client network reconnects",
			mode:        radio.ModeStation,
			form:        form("clientSSID", "newnet"),
			want:        ActionReconnectNow,
			wantCalls:   []string{"Disconnect", "SetStationConfig(exclusive)", "Connect"},
			wantMode:    radio.ModeStation,
			wantStation: radio.StationConfig{SSID: "newnet", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "new password reconnects",
			mode:        radio.ModeStationAP,
			form:        form("clientPasswd", "hunter22"),
			want:        ActionReconnectNow,
			wantCalls:   []string{"Disconnect", "SetStationConfig(exclusive)", "Connect"},
			wantMode:    radio.ModeStationAP,
			wantStation: radio.StationConfig{SSID: "home", Password: "hunter22"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "channel change restarts and pre-empts reconnect",
			mode:        radio.ModeStationAP,
			form:        form("APChannel", "6", "clientSSID", "newnet"),
			want:        ActionRestartAfterDelay,
			wantCalls:   []string{"SetSoftAPConfig"},
			wantMode:    radio.ModeStationAP,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 6},
		},
		{
			name:        "all softAP fields written together",
			mode:        radio.ModeSoftAP,
			form:        form("APAuth", "3", "APSSID", "Setup"),
			want:        ActionRestartAfterDelay,
			wantCalls:   []string{"SetSoftAPConfig"},
			wantMode:    radio.ModeSoftAP,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "Setup", AuthMode: radio.AuthWPA2PSK, Channel: 1},
		},
		{
			name:        "station fields ignored without station interface",
			mode:        radio.ModeSoftAP,
			form:        form("clientSSID", "newnet"),
			want:        ActionNone,
			wantMode:    radio.ModeSoftAP,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "softAP fields ignored without softAP interface",
			mode:        radio.ModeStation,
			form:        form("APChannel", "11"),
			want:        ActionNone,
			wantMode:    radio.ModeStation,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "malformed values skipped",
			mode:        radio.ModeStationAP,
			form:        form("wifiMode", "banana", "APChannel", "15", "APAuth", "9", "clientSSID", strings.Repeat("s", 32)),
			want:        ActionNone,
			wantMode:    radio.ModeStationAP,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "wrapped mode value rejected",
			mode:        radio.ModeStationAP,
			form:        form("wifiMode", "257"),
			want:        ActionNone,
			wantMode:    radio.ModeStationAP,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "malformed field does not block valid ones",
			mode:        radio.ModeStation,
			form:        form("clientSSID", strings.Repeat("s", 40), "clientPasswd", "newpass"),
			want:        ActionReconnectNow,
			wantCalls:   []string{"Disconnect", "SetStationConfig(exclusive)", "Connect"},
			wantMode:    radio.ModeStation,
			wantStation: radio.StationConfig{SSID: "home", Password: "newpass"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "longest accepted SSID",
			mode:        radio.ModeStation,
			form:        form("clientSSID", strings.Repeat("s", 31)),
			want:        ActionReconnectNow,
			wantCalls:   []string{"Disconnect", "SetStationConfig(exclusive)", "Connect"},
			wantMode:    radio.ModeStation,
			wantStation: radio.StationConfig{SSID: strings.Repeat("s", 31), Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "empty value treated as absent",
			mode:        radio.ModeStation,
			form:        form("clientPasswd", ""),
			want:        ActionNone,
			wantMode:    radio.ModeStation,
			wantStation: radio.StationConfig{SSID: "home", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
		{
			name:        "unknown keys ignored",
			mode:        radio.ModeStation,
			form:        form("submit", "Connect!", "clientSSID", "newnet"),
			want:        ActionReconnectNow,
			wantCalls:   []string{"Disconnect", "SetStationConfig(exclusive)", "Connect"},
			wantMode:    radio.ModeStation,
			wantStation: radio.StationConfig{SSID: "newnet", Password: "secret"},
			wantSoftAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice(tt.mode)
			sched := &countingScheduler{}
			r := NewReconciler(dev, sched)

			got, err := r.Apply(tt.form)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}

			wantScheduled := 0
			if tt.want == ActionRestartAfterDelay {
				wantScheduled = 1
			}
			if sched.n != wantScheduled {
				t.Errorf("restarts scheduled = %d, want %d", sched.n, wantScheduled)
			}

			if calls := dev.Calls(); !reflect.DeepEqual(calls, tt.wantCalls) {
				t.Errorf("device calls = %v, want %v", calls, tt.wantCalls)
			}
			if dev.mode != tt.wantMode {
				t.Errorf("mode = %v, want %v", dev.mode, tt.wantMode)
			}
			if dev.station != tt.wantStation {
				t.Errorf("station = %+v, want %+v", dev.station, tt.wantStation)
			}
			if dev.softAP != tt.wantSoftAP {
				t.Errorf("softAP = %+v, want %+v", dev.softAP, tt.wantSoftAP)
			}
		})
	}
}

func TestApply_WriteFailure(t *testing.T) {
	dev := newFakeDevice(radio.ModeStation)
	dev.writeErr = errors.New("flash busy")
	r := NewReconciler(dev, &countingScheduler{})

	action, err := r.Apply(form("clientSSID", "newnet"))
	if action != ActionReconnectNow {
		t.Errorf("Apply() = %v, want reconnect", action)
	}
	if !IsConfigWrite(err) {
		t.Fatalf("Apply() error = %v, want config write error", err)
	}

	var cwe *ConfigWriteError
	if !errors.As(err, &cwe) {
		t.Fatalf("error %v is not a *ConfigWriteError", err)
	}
	if cwe.Subsystem != "station" {
		t.Errorf("Subsystem = %q, want station", cwe.Subsystem)
	}
	if !errors.Is(err, dev.writeErr) {
		t.Error("error does not wrap the radio error")
	}
}

func TestApply_SoftAPWriteFailureStillRestarts(t *testing.T) {
	dev := newFakeDevice(radio.ModeSoftAP)
	dev.writeErr = errors.New("flash busy")
	sched := &countingScheduler{}
	r := NewReconciler(dev, sched)

	action, err := r.Apply(form("APSSID", "Setup"))
	if action != ActionRestartAfterDelay || sched.n != 1 {
		t.Errorf("Apply() = %v with %d restarts, want one restart", action, sched.n)
	}
	if !IsConfigWrite(err) {
		t.Errorf("Apply() error = %v, want config write error", err)
	}
}

func TestPendingActionString(t *testing.T) {
	tests := map[PendingAction]string{
		ActionNone:              "none",
		ActionReconnectNow:      "reconnect",
		ActionRestartAfterDelay: "restart",
		PendingAction(7):        "PendingAction(7)",
	}
	for a, want := range tests {
		if got := a.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(a), got, want)
		}
	}
}

func TestDecodeForm(t *testing.T) {
	f, err := DecodeForm(form("wifiMode", "1", "APSSID", "lab", "other", "x"))
	if err != nil {
		t.Fatalf("DecodeForm() error = %v", err)
	}
	if f.WifiMode == nil || *f.WifiMode != "1" {
		t.Errorf("WifiMode = %v, want 1", f.WifiMode)
	}
	if f.APSSID == nil || *f.APSSID != "lab" {
		t.Errorf("APSSID = %v, want lab", f.APSSID)
	}
	if f.ClientSSID != nil {
		t.Errorf("ClientSSID = %q, want nil", *f.ClientSSID)
	}
	if f.Empty() {
		t.Error("Empty() = true")
	}

	back := f.Values()
	if back.Get("wifiMode") != "1" || back.Get("APSSID") != "lab" || len(back) != 2 {
		t.Errorf("Values() = %v", back)
	}

	if !(Form{}).Empty() {
		t.Error("zero Form is not Empty()")
	}
}
