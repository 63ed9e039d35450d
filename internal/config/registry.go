package config

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const registryVersion = 1

// Registry is the CLI's record of known devices.
type Registry struct {
	Version       int                `yaml:"version"`
	DefaultDevice string             `yaml:"default_device,omitempty"` // key into Devices
	Devices       map[string]*Device `yaml:"devices,omitempty"`        // keyed by mDNS instance name or address

	path string
	mu   sync.Mutex
}

// Device is what the CLI remembers about one configuration service.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`
	Addr     string    `yaml:"addr"` // host:port
	Version  string    `yaml:"version,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// NewRegistry creates an empty registry that saves to path.
func NewRegistry(path string) *Registry {
	return &Registry{
		Version: registryVersion,
		Devices: make(map[string]*Device),
		path:    path,
	}
}

// LoadRegistry reads the registry at path, or at the default location when
// path is empty. A missing file yields an empty registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		p, err := GetRegistryPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get registry path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(path), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read device registry: %w", err)
	}

	reg := NewRegistry(path)
	if err := yaml.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("failed to parse device registry: %w", err)
	}
	if reg.Version != registryVersion {
		return nil, fmt.Errorf("unsupported registry version: %d (expected %d)", reg.Version, registryVersion)
	}
	if reg.Devices == nil {
		reg.Devices = make(map[string]*Device)
	}
	return reg, nil
}

// Path is where Save writes.
func (r *Registry) Path() string { return r.path }

// Remember records a device sighting. The first device remembered becomes
// the default.
func (r *Registry) Remember(key, addr, version string, seen time.Time) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.Devices[key]
	if !ok {
		d = &Device{}
		r.Devices[key] = d
	}
	d.Addr = addr
	if version != "" {
		d.Version = version
	}
	d.LastSeen = seen

	if r.DefaultDevice == "" {
		r.DefaultDevice = key
	}
	return d
}

// Resolve maps a --device argument to an address. A registry key or
// nickname resolves to its stored address; anything else is returned as is.
// An empty name resolves to the default device.
func (r *Registry) Resolve(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		name = r.DefaultDevice
		if name == "" {
			return "", false
		}
	}
	if d, ok := r.Devices[name]; ok {
		return d.Addr, true
	}
	for _, d := range r.Devices {
		if d.Nickname != "" && d.Nickname == name {
			return d.Addr, true
		}
	}
	return name, false
}

// SetDefault selects the device used when no --device is given.
func (r *Registry) SetDefault(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Devices[key]; !ok {
		return fmt.Errorf("unknown device %q", key)
	}
	r.DefaultDevice = key
	return nil
}

// Keys returns the device keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.Devices))
	for k := range r.Devices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the registry atomically.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal device registry: %w", err)
	}

	header := []byte(`# wificfg known devices
# WiFi passwords are never stored in this file.

`)
	return writeFileAtomic(r.path, append(header, data...))
}
