package settings

import (
	"net"
	"sync"

	"github.com/muurk/wificfg/internal/radio"
)

// fakeDevice records every call the reconciler makes.
type fakeDevice struct {
	mu sync.Mutex

	mode    radio.OpMode
	station radio.StationConfig
	softAP  radio.SoftAPConfig
	ip      radio.IPInfo
	dhcp    radio.DHCPStatus
	mac     net.HardwareAddr
	status  radio.ConnectStatus

	calls     []string
	exclusive bool
	writeErr  error
}

func newFakeDevice(mode radio.OpMode) *fakeDevice {
	return &fakeDevice{
		mode:    mode,
		station: radio.StationConfig{SSID: "home", Password: "secret"},
		softAP:  radio.SoftAPConfig{SSID: "ESP_ABCDEF", AuthMode: radio.AuthOpen, Channel: 1},
		mac:     net.HardwareAddr{0x5c, 0xcf, 0x7f, 0x0a, 0x0b, 0x0c},
	}
}

func (d *fakeDevice) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *fakeDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDevice) Scan(radio.ScanDone) error { return nil }
func (d *fakeDevice) OpMode() radio.OpMode { return d.mode }
func (d *fakeDevice) StationConfig() radio.StationConfig { return d.station }
func (d *fakeDevice) SoftAPConfig() radio.SoftAPConfig { return d.softAP }
func (d *fakeDevice) StationIPInfo() radio.IPInfo { return d.ip }
func (d *fakeDevice) DHCPStatus() radio.DHCPStatus { return d.dhcp }
func (d *fakeDevice) StationMAC() net.HardwareAddr { return d.mac }
func (d *fakeDevice) ConnectStatus() radio.ConnectStatus { return d.status }

func (d *fakeDevice) SetOpMode(mode radio.OpMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SetOpMode")
	if d.writeErr != nil {
		return d.writeErr
	}
	d.mode = mode
	return nil
}

func (d *fakeDevice) SetStationConfig(cfg radio.StationConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.exclusive {
		d.record("SetStationConfig(exclusive)")
	} else {
		d.record("SetStationConfig")
	}
	if d.writeErr != nil {
		return d.writeErr
	}
	d.station = cfg
	return nil
}

func (d *fakeDevice) SetSoftAPConfig(cfg radio.SoftAPConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SetSoftAPConfig")
	if d.writeErr != nil {
		return d.writeErr
	}
	d.softAP = cfg
	return nil
}

func (d *fakeDevice) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Disconnect")
	return nil
}

func (d *fakeDevice) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Connect")
	return nil
}

func (d *fakeDevice) Exclusive(fn func() error) error {
	d.mu.Lock()
	d.exclusive = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.exclusive = false
		d.mu.Unlock()
	}()
	return fn()
}

func (d *fakeDevice) Restart() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Restart")
}

type countingScheduler struct{ n int }

func (s *countingScheduler) Schedule() { s.n++ }
