package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device is a wificfg service found on the network.
type Device struct {
	// Instance is the mDNS instance name (e.g., "lab-board")
	Instance string

	// Hostname is the mDNS hostname (e.g., "esp-lab.local.")
	Hostname string

	// IP is the address to reach the service, IPv4 when one was advertised
	IP string

	// Port is the HTTP port
	Port int

	// Metadata contains the TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Instance, d.Hostname, d.Addr())
}

// Addr returns host:port.
func (d *Device) Addr() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return "http://" + d.Addr()
}

// Version is the advertised server version, empty when not advertised.
func (d *Device) Version() string {
	return d.GetMetadata(TxtVersion)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
