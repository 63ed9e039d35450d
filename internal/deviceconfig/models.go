package deviceconfig

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/muurk/wificfg/internal/radio"
	"github.com/muurk/wificfg/internal/settings"
)

// Settings is a change request for the settings endpoint.
// A nil field is not sent and is left unchanged on the device.
type Settings struct {
	Mode         *radio.OpMode
	ClientSSID   *string
	ClientPasswd *string
	APAuth       *radio.AuthMode
	APChannel    *int
	APSSID       *string
}

// IsEmpty reports whether the request would change nothing.
func (s *Settings) IsEmpty() bool {
	return s == nil || s.Form().Empty()
}

// Form converts the request into the form the service decodes.
func (s *Settings) Form() settings.Form {
	var f settings.Form
	if s == nil {
		return f
	}
	if s.Mode != nil {
		v := strconv.Itoa(int(*s.Mode))
		f.WifiMode = &v
	}
	f.ClientSSID = s.ClientSSID
	f.ClientPasswd = s.ClientPasswd
	if s.APAuth != nil {
		v := strconv.Itoa(int(*s.APAuth))
		f.APAuth = &v
	}
	if s.APChannel != nil {
		v := strconv.Itoa(*s.APChannel)
		f.APChannel = &v
	}
	f.APSSID = s.APSSID
	return f
}

// ToFormData converts the request to url.Values for POST.
func (s *Settings) ToFormData() url.Values {
	return s.Form().Values()
}

// Expected returns the field tokens and values the device should report once
// the request has been applied to a device currently in state cur.
//
// A mode change restarts the radio and the device ignores the interface
// fields sent with it, so only the mode is expected then. Fields for an
// interface the current mode lacks are not applied. A softAP change
// schedules a restart that supersedes the station reconnect, so station
// fields are not expected alongside one.
func (s *Settings) Expected(cur *Status) map[string]string {
	values := s.ToFormData()
	out := make(map[string]string, len(values))
	if s == nil || cur == nil {
		return out
	}

	if s.Mode != nil && *s.Mode != cur.Mode {
		out["wifiMode"] = values.Get("wifiMode")
		return out
	}

	apChanged := false
	if cur.Mode.HasSoftAP() {
		for _, k := range []string{"APAuth", "APChannel", "APSSID"} {
			if v := values.Get(k); v != "" {
				out[k] = v
				if cur.Raw[k] != v {
					apChanged = true
				}
			}
		}
	}

	if cur.Mode.HasStation() && !apChanged {
		for _, k := range []string{"clientSSID", "clientPasswd"} {
			if v := values.Get(k); v != "" {
				out[k] = v
			}
		}
	}

	return out
}

// Status is the device state decoded from the fields endpoint.
type Status struct {
	Mode         radio.OpMode
	ClientSSID   string
	ClientPasswd string

	// Empty when the device runs as an access point only.
	ClientIP      string
	ClientGateway string
	ClientNetmask string

	ClientDHCP      bool
	ClientMAC       string
	ClientConnected radio.ConnectStatus

	APAuth    radio.AuthMode
	APChannel int
	APSSID    string

	// Raw holds every field as reported.
	Raw map[string]string
}

// HasClientIP reports whether the device reported station addressing.
func (s *Status) HasClientIP() bool {
	return s.ClientIP != ""
}

// ParseStatus decodes the fields endpoint response.
func ParseStatus(fields map[string]string) (*Status, error) {
	st := &Status{
		ClientSSID:    fields["clientSSID"],
		ClientPasswd:  fields["clientPasswd"],
		ClientIP:      fields["clientIp"],
		ClientGateway: fields["clientGateway"],
		ClientNetmask: fields["clientNetmask"],
		ClientDHCP:    fields["clientDhcp"] == "true",
		ClientMAC:     fields["clientMac"],
		APSSID:        fields["APSSID"],
		Raw:           fields,
	}

	mode, err := parseUint8(fields, "wifiMode")
	if err != nil {
		return nil, err
	}
	st.Mode = radio.OpMode(mode)

	connected, err := parseUint8(fields, "clientConnected")
	if err != nil {
		return nil, err
	}
	st.ClientConnected = radio.ConnectStatus(connected)

	auth, err := parseUint8(fields, "APAuth")
	if err != nil {
		return nil, err
	}
	st.APAuth = radio.AuthMode(auth)

	if v, ok := fields["APChannel"]; ok {
		ch, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewParseError(fmt.Sprintf("invalid APChannel %q", v), err)
		}
		st.APChannel = ch
	}

	return st, nil
}

func parseUint8(fields map[string]string, key string) (uint8, error) {
	v, ok := fields[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		return 0, NewParseError(fmt.Sprintf("invalid %s %q", key, v), err)
	}
	return uint8(n), nil
}

// Mismatches compares expected token values against reported ones and
// returns the tokens that differ, sorted.
func Mismatches(expected, reported map[string]string) []string {
	var out []string
	for k, want := range expected {
		if reported[k] != want {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
