package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/logging"
)

const (
	// ServiceType is the mDNS service type the configuration service registers
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is used when an entry advertises no port
	DefaultPort = 80
)

// TXT record keys.
const (
	TxtService = "svc"
	TxtPath    = "path"
	TxtVersion = "ver"

	ServiceTag = "wificfg"
	PathPrefix = "/wifi"
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevicesWithContext collects every wificfg service answering within
// the timeout, sorted by instance name.
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make(chan []*Device, 1)

	go func() {
		seen := make(map[string]*Device)
		for entry := range entries {
			if device := parseServiceEntry(entry); device != nil {
				seen[device.Instance] = device
			}
		}
		devices := make([]*Device, 0, len(seen))
		for _, d := range seen {
			devices = append(devices, d)
		}
		sort.Slice(devices, func(i, j int) bool { return devices[i].Instance < devices[j].Instance })
		collected <- devices
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// The resolver closes entries once ctx is done.
	<-ctx.Done()
	devices := <-collected

	logging.Debug("mDNS scan finished", zap.Int("devices", len(devices)))
	return devices, nil
}

// WaitForDeviceWithContext returns the first wificfg service with the given
// instance name, or an error when none answers within the timeout.
func (s *Scanner) WaitForDeviceWithContext(ctx context.Context, instance string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	deviceChan := make(chan *Device, 1)

	go func() {
		for entry := range entries {
			device := parseServiceEntry(entry)
			if device != nil && device.Instance == instance {
				select {
				case deviceChan <- device:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case device := <-deviceChan:
		return device, nil
	case <-ctx.Done():
		select {
		case device := <-deviceChan:
			return device, nil
		default:
		}
		return nil, fmt.Errorf("device %q not found within %v", instance, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry is not a wificfg service.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	metadata := parseTXT(entry.Text)
	if metadata[TxtService] != ServiceTag {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Device{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" records. A record without "=" is a key with
// an empty value.
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// ScanForDevices is a convenience function to scan for devices with a custom timeout
func ScanForDevices(timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForDevicesWithContext(context.Background())
}

// FindDevice searches for an instance by name with the default timeout.
func FindDevice(instance string) (*Device, error) {
	return NewScanner().WaitForDeviceWithContext(context.Background(), instance)
}
