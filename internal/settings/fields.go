package settings

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/muurk/wificfg/internal/radio"
)

var tokens = []string{
	"wifiMode",
	"clientSSID",
	"clientPasswd",
	"clientIp",
	"clientGateway",
	"clientNetmask",
	"clientDhcp",
	"clientMac",
	"clientConnected",
	"APAuth",
	"APChannel",
	"APSSID",
}

// Fields renders configuration values for page templates.
type Fields struct {
	dev radio.InfoReader
}

// NewFields creates a field accessor reading from dev.
func NewFields(dev radio.InfoReader) *Fields {
	return &Fields{dev: dev}
}

// Tokens lists every known token in page order.
func (f *Fields) Tokens() []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out
}

// Lookup returns the current value for token. The station addressing tokens
// are absent when only the softAP is running, as are unknown tokens.
func (f *Fields) Lookup(token string) (string, bool) {
	switch token {
	case "wifiMode":
		return strconv.Itoa(int(f.dev.OpMode())), true
	case "clientSSID":
		return f.dev.StationConfig().SSID, true
	case "clientPasswd":
		return f.dev.StationConfig().Password, true
	case "clientIp", "clientGateway", "clientNetmask":
		if f.dev.OpMode() == radio.ModeSoftAP {
			return "", false
		}
		info := f.dev.StationIPInfo()
		switch token {
		case "clientIp":
			return dottedQuad(info.IP), true
		case "clientGateway":
			return dottedQuad(info.Gateway), true
		default:
			return dottedQuad(info.Netmask), true
		}
	case "clientDhcp":
		return strconv.FormatBool(f.dev.DHCPStatus() == radio.DHCPStarted), true
	case "clientMac":
		return formatMAC(f.dev.StationMAC()), true
	case "clientConnected":
		return strconv.Itoa(int(f.dev.ConnectStatus())), true
	case "APAuth":
		return strconv.Itoa(int(f.dev.SoftAPConfig().AuthMode)), true
	case "APChannel":
		return strconv.Itoa(f.dev.SoftAPConfig().Channel), true
	case "APSSID":
		return f.dev.SoftAPConfig().SSID, true
	default:
		return "", false
	}
}

// All returns every present token and its value.
func (f *Fields) All() map[string]string {
	out := make(map[string]string, len(tokens))
	for _, t := range tokens {
		if v, ok := f.Lookup(t); ok {
			out[t] = v
		}
	}
	return out
}

func dottedQuad(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return "0.0.0.0"
}

// formatMAC always prints six octets, zero filled when the address is short.
func formatMAC(mac net.HardwareAddr) string {
	var b [6]byte
	copy(b[:], mac)
	parts := make([]string, len(b))
	for i, o := range b {
		parts[i] = fmt.Sprintf("%02x", o)
	}
	return strings.Join(parts, ":")
}
