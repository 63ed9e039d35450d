package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/config"
	"github.com/muurk/wificfg/internal/deviceconfig"
	"github.com/muurk/wificfg/internal/discovery"
	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/ui"
)

// Flags shared by the device commands
var (
	deviceName     string
	outputFormat   string
	requestTimeout time.Duration
	registryPath   string
)

const autoDiscoverTimeout = 5 * time.Second

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "", "Device name, nickname, host[:port] or URL (default: remembered default device)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", deviceconfig.DefaultTimeout, "HTTP request timeout")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "Device registry file (default: ~/.config/wificfg/devices.yaml)")
}

func checkFormat() error {
	switch outputFormat {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use table or json)", outputFormat)
	}
}

// newDeviceClient resolves --device and returns a client for it.
func newDeviceClient(p *ui.Printer) (*deviceconfig.Client, error) {
	if err := checkFormat(); err != nil {
		return nil, err
	}

	reg, err := config.LoadRegistry(registryPath)
	if err != nil {
		return nil, err
	}

	addr, err := resolveDevice(reg, deviceName, p)
	if err != nil {
		return nil, err
	}
	logging.Debug("Resolved device", zap.String("device", deviceName), zap.String("addr", addr))

	client, err := clientFor(addr)
	if err != nil {
		return nil, err
	}
	client.SetTimeout(requestTimeout)
	return client, nil
}

// resolveDevice picks the address to talk to: a registry entry, a literal
// address, or the single service found by a short mDNS browse.
func resolveDevice(reg *config.Registry, name string, p *ui.Printer) (string, error) {
	if addr, ok := reg.Resolve(name); ok {
		return addr, nil
	}
	if name != "" {
		return name, nil
	}

	if outputFormat != "json" {
		p.Muted("No device specified, browsing for wificfg services...")
	}
	devices, err := discovery.ScanForDevices(autoDiscoverTimeout)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return "", fmt.Errorf("no devices found. Use --device to name one")
	case 1:
		d := devices[0]
		reg.Remember(d.Instance, d.Addr(), d.Version(), d.DiscoveredAt)
		if err := reg.Save(); err != nil {
			logging.Warn("Failed to save device registry", zap.Error(err))
		}
		if outputFormat != "json" {
			p.Muted(fmt.Sprintf("Using %s", d))
		}
		return d.Addr(), nil
	default:
		names := make([]string, 0, len(devices))
		for _, d := range devices {
			names = append(names, d.Instance)
		}
		return "", fmt.Errorf("found %d devices (%s). Use --device to pick one", len(devices), strings.Join(names, ", "))
	}
}

// clientFor accepts a base URL, host:port, or a bare host on the default port.
func clientFor(addr string) (*deviceconfig.Client, error) {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return deviceconfig.NewClientWithURL(addr), nil
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return deviceconfig.NewClient(addr, deviceconfig.DefaultPort), nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port in device address %q", addr)
	}
	return deviceconfig.NewClient(host, port), nil
}

// printDeviceError renders err with troubleshooting tips.
func printDeviceError(p *ui.Printer, title string, err error) {
	var tips []string
	for _, line := range strings.Split(deviceconfig.GetTroubleshootingHint(err), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "•"))
		if line != "" && line != "Troubleshooting:" {
			tips = append(tips, line)
		}
	}
	p.PrintError(title, errors.New(deviceconfig.GetShortErrorMessage(err)), tips)
}
