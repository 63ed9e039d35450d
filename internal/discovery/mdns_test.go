package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func entry(instance string, port int, v4, v6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = "esp-" + instance + ".local."
	e.Port = port
	e.AddrIPv4 = v4
	e.AddrIPv6 = v6
	e.Text = txt
	return e
}

func TestParseServiceEntry(t *testing.T) {
	wificfgTXT := TXTRecords("v1.2.0")

	tests := []struct {
		name         string
		entry        *zeroconf.ServiceEntry
		wantNil      bool
		wantInstance string
		wantIP       string
		wantPort     int
		wantVersion  string
	}{
		{
			name:         "wificfg service with IPv4",
			entry:        entry("lab-board", 8080, []net.IP{net.ParseIP("192.168.4.1")}, nil, wificfgTXT...),
			wantInstance: "lab-board",
			wantIP:       "192.168.4.1",
			wantPort:     8080,
			wantVersion:  "v1.2.0",
		},
		{
			name:         "no port specified (should default to 80)",
			entry:        entry("kitchen", 0, []net.IP{net.ParseIP("10.0.0.5")}, nil, wificfgTXT...),
			wantInstance: "kitchen",
			wantIP:       "10.0.0.5",
			wantPort:     80,
			wantVersion:  "v1.2.0",
		},
		{
			name:         "IPv6 only",
			entry:        entry("v6", 80, nil, []net.IP{net.ParseIP("fe80::1")}, wificfgTXT...),
			wantInstance: "v6",
			wantIP:       "fe80::1",
			wantPort:     80,
			wantVersion:  "v1.2.0",
		},
		{
			name:         "both families (should prefer IPv4)",
			entry:        entry("dual", 80, []net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}, wificfgTXT...),
			wantInstance: "dual",
			wantIP:       "192.168.1.50",
			wantPort:     80,
			wantVersion:  "v1.2.0",
		},
		{
			name:    "other HTTP service",
			entry:   entry("printer", 80, []net.IP{net.ParseIP("192.168.1.9")}, nil, "path=/", "note=office"),
			wantNil: true,
		},
		{
			name:    "no TXT records",
			entry:   entry("bare", 80, []net.IP{net.ParseIP("192.168.1.9")}, nil),
			wantNil: true,
		},
		{
			name:    "no IP address",
			entry:   entry("lost", 80, nil, nil, wificfgTXT...),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}
			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want device")
			}
			if device.Instance != tt.wantInstance {
				t.Errorf("Instance = %q, want %q", device.Instance, tt.wantInstance)
			}
			if device.IP != tt.wantIP {
				t.Errorf("IP = %q, want %q", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", device.Port, tt.wantPort)
			}
			if device.Version() != tt.wantVersion {
				t.Errorf("Version() = %q, want %q", device.Version(), tt.wantVersion)
			}
			if device.GetMetadata(TxtPath) != PathPrefix {
				t.Errorf("path = %q, want %q", device.GetMetadata(TxtPath), PathPrefix)
			}
			if time.Since(device.DiscoveredAt) > time.Minute {
				t.Error("DiscoveredAt not set")
			}
		})
	}
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"svc=wificfg", "flag", "eq=a=b"})

	want := map[string]string{"svc": "wificfg", "flag": "", "eq": "a=b"}
	if len(got) != len(want) {
		t.Fatalf("parseTXT() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("parseTXT()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestDeviceAddresses(t *testing.T) {
	d := &Device{Instance: "lab", Hostname: "esp.local.", IP: "192.168.4.1", Port: 80}
	if got := d.BaseURL(); got != "http://192.168.4.1:80" {
		t.Errorf("BaseURL() = %q", got)
	}
	if got := d.String(); got != "lab (esp.local.) at 192.168.4.1:80" {
		t.Errorf("String() = %q", got)
	}

	v6 := &Device{IP: "fe80::1", Port: 8080}
	if got := v6.Addr(); got != "[fe80::1]:8080" {
		t.Errorf("Addr() = %q", got)
	}
	if v6.GetMetadata("anything") != "" {
		t.Error("GetMetadata() on nil metadata should be empty")
	}
}

func TestAdvertise_Validation(t *testing.T) {
	if _, err := Advertise("", 80, "v1"); err == nil {
		t.Error("Advertise() accepted empty instance")
	}
	if _, err := Advertise("lab", 0, "v1"); err == nil {
		t.Error("Advertise() accepted port 0")
	}
	// A nil advertiser shuts down quietly.
	var a *Advertiser
	a.Shutdown()
}

func TestNewScanner(t *testing.T) {
	if s := NewScanner(); s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
}
