package radio

import (
	"fmt"
	"net"
)

// Hardware field sizes.
const (
	// MaxSSIDLen is the size of the SSID field in scan records and configs.
	MaxSSIDLen = 32
	// MaxPasswordLen is the size of the station password field.
	MaxPasswordLen = 64
)

// OpMode selects which interfaces are up: bit0 = station, bit1 = softAP.
type OpMode uint8

const (
	ModeOff       OpMode = 0
	ModeStation   OpMode = 1
	ModeSoftAP    OpMode = 2
	ModeStationAP OpMode = 3
)

// HasStation reports whether the station (client) interface is enabled.
func (m OpMode) HasStation() bool { return m&ModeStation != 0 }

// HasSoftAP reports whether the access point interface is enabled.
func (m OpMode) HasSoftAP() bool { return m&ModeSoftAP != 0 }

// Valid reports whether m is one of the four defined modes.
func (m OpMode) Valid() bool { return m <= ModeStationAP }

func (m OpMode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeStation:
		return "station"
	case ModeSoftAP:
		return "softap"
	case ModeStationAP:
		return "station+softap"
	default:
		return fmt.Sprintf("OpMode(%d)", uint8(m))
	}
}

// AuthMode is the vendor encryption code reported in scans and used by the softAP.
type AuthMode uint8

const (
	AuthOpen AuthMode = iota
	AuthWEP
	AuthWPAPSK
	AuthWPA2PSK
	AuthWPAWPA2PSK
)

// Valid reports whether a is a known auth mode.
func (a AuthMode) Valid() bool { return a <= AuthWPAWPA2PSK }

func (a AuthMode) String() string {
	switch a {
	case AuthOpen:
		return "OPEN"
	case AuthWEP:
		return "WEP"
	case AuthWPAPSK:
		return "WPA_PSK"
	case AuthWPA2PSK:
		return "WPA2_PSK"
	case AuthWPAWPA2PSK:
		return "WPA_WPA2_PSK"
	default:
		return fmt.Sprintf("AuthMode(%d)", uint8(a))
	}
}

// StationConfig is the client-side configuration: the network to join.
type StationConfig struct {
	SSID     string
	Password string
}

// SoftAPConfig is the configuration of the network the device advertises.
type SoftAPConfig struct {
	SSID     string
	AuthMode AuthMode
	Channel  int
}

// IPInfo is the station interface addressing.
type IPInfo struct {
	IP      net.IP
	Netmask net.IP
	Gateway net.IP
}

// DHCPStatus is the state of the station DHCP client.
type DHCPStatus uint8

const (
	DHCPStopped DHCPStatus = iota
	DHCPStarted
)

// ConnectStatus mirrors the station connection state machine.
type ConnectStatus uint8

const (
	StationIdle ConnectStatus = iota
	StationConnecting
	StationWrongPassword
	StationNoAPFound
	StationConnectFail
	StationGotIP
)

func (s ConnectStatus) String() string {
	switch s {
	case StationIdle:
		return "idle"
	case StationConnecting:
		return "connecting"
	case StationWrongPassword:
		return "wrong password"
	case StationNoAPFound:
		return "no AP found"
	case StationConnectFail:
		return "connect failed"
	case StationGotIP:
		return "got IP"
	default:
		return fmt.Sprintf("ConnectStatus(%d)", uint8(s))
	}
}

// ScanStatus is the completion status delivered with a scan result.
type ScanStatus uint8

const (
	ScanOK ScanStatus = iota
	ScanFailed
)

func (s ScanStatus) String() string {
	if s == ScanOK {
		return "ok"
	}
	return "failed"
}

// BSS is one raw record from the driver's scan list.
// SSID is the raw field: up to MaxSSIDLen bytes, NUL padded or not terminated at all.
type BSS struct {
	SSID     []byte
	BSSID    net.HardwareAddr
	RSSI     int8
	AuthMode AuthMode
	Channel  int
}

// ScanResults is the driver-owned result list. It can be walked once.
type ScanResults interface {
	// Count is the number of records the driver reports.
	Count() int
	// Next returns the next record, false when the list is exhausted.
	Next() (BSS, bool)
}
