package radio

import (
	"errors"
	"net"
)

// ErrScanBusy is returned by Scan when the driver is already scanning.
var ErrScanBusy = errors.New("radio: scan already running")

// ScanDone receives the result of a scan. It is called from the driver's
// context, not the caller's.
type ScanDone func(status ScanStatus, results ScanResults)

// Scanner starts asynchronous access point scans.
type Scanner interface {
	Scan(done ScanDone) error
}

// InfoReader is the read side of the radio, used for rendering status pages.
type InfoReader interface {
	OpMode() OpMode
	StationConfig() StationConfig
	SoftAPConfig() SoftAPConfig
	StationIPInfo() IPInfo
	DHCPStatus() DHCPStatus
	StationMAC() net.HardwareAddr
	ConnectStatus() ConnectStatus
}

// Device is the full radio capability.
type Device interface {
	Scanner
	InfoReader

	SetOpMode(mode OpMode) error
	SetStationConfig(cfg StationConfig) error
	SetSoftAPConfig(cfg SoftAPConfig) error

	Disconnect() error
	Connect() error

	// Exclusive runs fn with the radio's event path held off, so that no
	// driver event observes a half-written configuration. The hold is
	// released when fn returns or panics.
	Exclusive(fn func() error) error

	// Restart resets the radio and brings the configured interfaces back up.
	Restart()
}
