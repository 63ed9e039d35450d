package radio

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/wificfg/internal/logging"
)

const (
	// DefaultScanDuration is how long a simulated scan takes.
	DefaultScanDuration = 1500 * time.Millisecond

	// DefaultConnectDelay is how long the simulated station takes to associate.
	DefaultConnectDelay = 300 * time.Millisecond

	defaultMAC = "5c:cf:7f:00:00:01"
)

// NetworkProfile is one network visible to the simulated radio.
type NetworkProfile struct {
	SSID     string   `yaml:"ssid"`
	RSSI     int8     `yaml:"rssi"`
	AuthMode AuthMode `yaml:"auth_mode"`
	Channel  int      `yaml:"channel"`
	Password string   `yaml:"password,omitempty"` // required to associate when auth_mode != 0
}

// StationProfile is the initial station state.
type StationProfile struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	DHCP     bool   `yaml:"dhcp"`
	IP       string `yaml:"ip"`
	Netmask  string `yaml:"netmask"`
	Gateway  string `yaml:"gateway"`
}

// SoftAPProfile is the initial softAP state.
type SoftAPProfile struct {
	SSID     string   `yaml:"ssid"`
	AuthMode AuthMode `yaml:"auth_mode"`
	Channel  int      `yaml:"channel"`
}

// Profile describes the simulated hardware.
type Profile struct {
	MAC          string           `yaml:"mac"`
	Mode         OpMode           `yaml:"mode"`
	Station      StationProfile   `yaml:"station"`
	SoftAP       SoftAPProfile    `yaml:"softap"`
	Networks     []NetworkProfile `yaml:"networks"`
	ScanDuration time.Duration    `yaml:"scan_duration"`
	ConnectDelay time.Duration    `yaml:"connect_delay"`
	// FailEvery makes every Nth scan report failure (0 = never).
	FailEvery int `yaml:"fail_every"`
}

// DefaultProfile is used when no profile file is given.
func DefaultProfile() Profile {
	return Profile{
		MAC:  defaultMAC,
		Mode: ModeStationAP,
		Station: StationProfile{
			DHCP:    true,
			IP:      "192.168.1.50",
			Netmask: "255.255.255.0",
			Gateway: "192.168.1.1",
		},
		SoftAP: SoftAPProfile{
			SSID:     "ESP_000001",
			AuthMode: AuthOpen,
			Channel:  1,
		},
		Networks: []NetworkProfile{
			{SSID: "HomeNetwork", RSSI: -48, AuthMode: AuthWPA2PSK, Channel: 6, Password: "correcthorse"},
			{SSID: "Guest", RSSI: -67, AuthMode: AuthOpen, Channel: 11},
			{SSID: "Neighbour-5G-Extender", RSSI: -82, AuthMode: AuthWPAWPA2PSK, Channel: 1, Password: "unknown"},
		},
		ScanDuration: DefaultScanDuration,
		ConnectDelay: DefaultConnectDelay,
	}
}

// LoadProfile reads a YAML profile. Unset fields keep DefaultProfile values.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read radio profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse radio profile: %w", err)
	}
	if !p.Mode.Valid() {
		return p, fmt.Errorf("invalid mode in radio profile: %d", p.Mode)
	}
	return p, nil
}

// Sim is an in-memory radio driven by a Profile. It behaves like the real
// driver where the service can observe it: scans complete on another
// goroutine, association happens asynchronously after Connect, and Restart
// drops the station link and rejoins.
type Sim struct {
	mu sync.Mutex
	// irq is held by Exclusive; the association path takes it before
	// reading the station config.
	irq sync.Mutex

	profile  Profile
	mode     OpMode
	station  StationConfig
	softAP   SoftAPConfig
	ipInfo   IPInfo
	dhcp     DHCPStatus
	mac      net.HardwareAddr
	status   ConnectStatus
	scanning bool
	scans    int
	restarts int

	connectTimer *time.Timer
}

// NewSim builds a simulated radio from p.
func NewSim(p Profile) (*Sim, error) {
	mac, err := net.ParseMAC(orDefault(p.MAC, defaultMAC))
	if err != nil {
		return nil, fmt.Errorf("invalid MAC in radio profile: %w", err)
	}
	if p.ScanDuration <= 0 {
		p.ScanDuration = DefaultScanDuration
	}
	if p.ConnectDelay <= 0 {
		p.ConnectDelay = DefaultConnectDelay
	}

	s := &Sim{
		profile: p,
		mode:    p.Mode,
		station: StationConfig{SSID: p.Station.SSID, Password: p.Station.Password},
		softAP:  SoftAPConfig{SSID: p.SoftAP.SSID, AuthMode: p.SoftAP.AuthMode, Channel: p.SoftAP.Channel},
		mac:     mac,
	}
	if p.Station.DHCP {
		s.dhcp = DHCPStarted
	}
	return s, nil
}

// Start brings the station up the way the firmware does at boot.
func (s *Sim) Start() {
	s.mu.Lock()
	join := s.mode.HasStation() && s.station.SSID != ""
	s.mu.Unlock()

	if join {
		_ = s.Connect()
	}
}

// Scan implements Scanner.
func (s *Sim) Scan(done ScanDone) error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return ErrScanBusy
	}
	if !s.mode.HasStation() {
		s.mu.Unlock()
		return fmt.Errorf("radio: scan needs station mode, current mode is %s", s.mode)
	}
	s.scanning = true
	s.scans++
	n := s.scans
	fail := s.profile.FailEvery > 0 && n%s.profile.FailEvery == 0
	networks := append([]NetworkProfile(nil), s.profile.Networks...)
	s.mu.Unlock()

	logging.Debug("Simulated scan started", zap.Int("scan", n), zap.Bool("will_fail", fail))

	time.AfterFunc(s.profile.ScanDuration, func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()

		if fail {
			done(ScanFailed, nil)
			return
		}
		done(ScanOK, newSliceResults(toBSS(networks)))
	})
	return nil
}

func toBSS(networks []NetworkProfile) []BSS {
	out := make([]BSS, 0, len(networks))
	for i, n := range networks {
		raw := make([]byte, MaxSSIDLen)
		copy(raw, n.SSID)
		out = append(out, BSS{
			SSID:     raw,
			BSSID:    net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, byte(i + 1)},
			RSSI:     n.RSSI,
			AuthMode: n.AuthMode,
			Channel:  n.Channel,
		})
	}
	return out
}

// OpMode implements InfoReader.
func (s *Sim) OpMode() OpMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// StationConfig implements InfoReader.
func (s *Sim) StationConfig() StationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.station
}

// SoftAPConfig implements InfoReader.
func (s *Sim) SoftAPConfig() SoftAPConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.softAP
}

// StationIPInfo implements InfoReader. Addresses are zero until associated.
func (s *Sim) StationIPInfo() IPInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StationGotIP {
		return IPInfo{IP: net.IPv4zero, Netmask: net.IPv4zero, Gateway: net.IPv4zero}
	}
	return s.ipInfo
}

// DHCPStatus implements InfoReader.
func (s *Sim) DHCPStatus() DHCPStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dhcp
}

// StationMAC implements InfoReader.
func (s *Sim) StationMAC() net.HardwareAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(net.HardwareAddr(nil), s.mac...)
}

// ConnectStatus implements InfoReader.
func (s *Sim) ConnectStatus() ConnectStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetOpMode implements Device.
func (s *Sim) SetOpMode(mode OpMode) error {
	if !mode.Valid() {
		return fmt.Errorf("radio: invalid mode %d", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}

// SetStationConfig implements Device.
func (s *Sim) SetStationConfig(cfg StationConfig) error {
	if len(cfg.SSID) > MaxSSIDLen {
		return fmt.Errorf("radio: station SSID longer than %d bytes", MaxSSIDLen)
	}
	if len(cfg.Password) > MaxPasswordLen {
		return fmt.Errorf("radio: station password longer than %d bytes", MaxPasswordLen)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.station = cfg
	return nil
}

// SetSoftAPConfig implements Device.
func (s *Sim) SetSoftAPConfig(cfg SoftAPConfig) error {
	if len(cfg.SSID) > MaxSSIDLen {
		return fmt.Errorf("radio: softAP SSID longer than %d bytes", MaxSSIDLen)
	}
	if !cfg.AuthMode.Valid() {
		return fmt.Errorf("radio: invalid auth mode %d", cfg.AuthMode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.softAP = cfg
	return nil
}

// Disconnect implements Device.
func (s *Sim) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
	s.status = StationIdle
	return nil
}

// Connect implements Device. Association completes after ConnectDelay.
func (s *Sim) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mode.HasStation() {
		return fmt.Errorf("radio: connect needs station mode, current mode is %s", s.mode)
	}
	if s.connectTimer != nil {
		s.connectTimer.Stop()
	}
	s.status = StationConnecting
	s.connectTimer = time.AfterFunc(s.profile.ConnectDelay, s.associate)
	return nil
}

// associate is the simulated driver event that finishes a connection attempt.
func (s *Sim) associate() {
	s.irq.Lock()
	defer s.irq.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StationConnecting {
		return
	}
	s.connectTimer = nil

	cfg := s.station
	for _, n := range s.profile.Networks {
		if n.SSID != cfg.SSID {
			continue
		}
		if n.AuthMode != AuthOpen && n.Password != cfg.Password {
			s.status = StationWrongPassword
			logging.Debug("Simulated association failed", zap.String("ssid", cfg.SSID), zap.Stringer("status", s.status))
			return
		}
		s.status = StationGotIP
		s.ipInfo = IPInfo{
			IP:      net.ParseIP(orDefault(s.profile.Station.IP, "192.168.1.50")).To4(),
			Netmask: net.ParseIP(orDefault(s.profile.Station.Netmask, "255.255.255.0")).To4(),
			Gateway: net.ParseIP(orDefault(s.profile.Station.Gateway, "192.168.1.1")).To4(),
		}
		logging.Debug("Simulated association complete", zap.String("ssid", cfg.SSID))
		return
	}
	s.status = StationNoAPFound
	logging.Debug("Simulated association failed", zap.String("ssid", cfg.SSID), zap.Stringer("status", s.status))
}

// Exclusive implements Device.
func (s *Sim) Exclusive(fn func() error) error {
	s.irq.Lock()
	defer s.irq.Unlock()
	return fn()
}

// Restart implements Device.
func (s *Sim) Restart() {
	s.mu.Lock()
	s.restarts++
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
	s.status = StationIdle
	s.scanning = false
	n := s.restarts
	s.mu.Unlock()

	logging.Info("Simulated radio restarted", zap.Int("restarts", n))
	s.Start()
}

// Restarts returns how many times Restart has run.
func (s *Sim) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// sliceResults walks a fixed slice once.
type sliceResults struct {
	items []BSS
	pos   int
}

func newSliceResults(items []BSS) *sliceResults {
	return &sliceResults{items: items}
}

func (r *sliceResults) Count() int { return len(r.items) }

func (r *sliceResults) Next() (BSS, bool) {
	if r.pos >= len(r.items) {
		return BSS{}, false
	}
	b := r.items[r.pos]
	r.pos++
	return b, true
}
