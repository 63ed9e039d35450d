package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides, for example
// WIFICFG_SERVER_PORT.
const EnvPrefix = "WIFICFG"

// Config is the wificfg-server configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Radio  RadioConfig  `mapstructure:"radio" yaml:"radio"`
	MDNS   MDNSConfig   `mapstructure:"mdns" yaml:"mdns"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-" yaml:"-"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	RestartDelay    time.Duration `mapstructure:"restart_delay" yaml:"restart_delay"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RadioConfig selects the radio backend.
type RadioConfig struct {
	Profile string `mapstructure:"profile" yaml:"profile"` // YAML profile for the simulated radio
}

// MDNSConfig controls the service advertisement.
type MDNSConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Name    string `mapstructure:"name" yaml:"name"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
	File  string `mapstructure:"file" yaml:"file"`   // rotated JSON log, empty for console only
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RestartDelay:    500 * time.Millisecond,
			ShutdownTimeout: 5 * time.Second,
		},
		MDNS: MDNSConfig{
			Enabled: true,
			Name:    "wificfg",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// FlagKeys maps config keys to the serve command's flag names.
var FlagKeys = map[string]string{
	"server.host":          "host",
	"server.port":          "port",
	"server.restart_delay": "restart-delay",
	"radio.profile":        "profile",
	"mdns.enabled":         "mdns",
	"mdns.name":            "name",
	"log.level":            "log-level",
	"log.file":             "log-file",
}

// Load resolves the configuration. An empty path searches the default
// locations and tolerates a missing file; an explicit path must exist.
// Flags that are present in flags and FlagKeys override the file.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := GetConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath("/etc/wificfg")
		v.AddConfigPath(".")
	}

	if flags != nil {
		for key, name := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.restart_delay", d.Server.RestartDelay)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("radio.profile", d.Radio.Profile)
	v.SetDefault("mdns.enabled", d.MDNS.Enabled)
	v.SetDefault("mdns.name", d.MDNS.Name)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.RestartDelay <= 0 {
		return fmt.Errorf("invalid server.restart_delay %v (must be positive)", c.Server.RestartDelay)
	}
	if c.MDNS.Enabled && c.MDNS.Name == "" {
		return fmt.Errorf("mdns.name is required when mdns is enabled")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	return nil
}

// WriteDefault writes the built-in configuration to path, or to the default
// location when path is empty. It returns the path written.
func WriteDefault(path string) (string, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return "", fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# wificfg-server configuration
#
# Every value can be overridden with a WIFICFG_* environment variable,
# e.g. WIFICFG_SERVER_PORT=8081, or with the matching serve flag.

`)
	if err := writeFileAtomic(path, append(header, data...)); err != nil {
		return "", err
	}
	return path, nil
}
