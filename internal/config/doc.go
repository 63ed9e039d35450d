// Package config loads the wificfg service configuration and keeps the
// CLI's record of known devices.
//
// # Service configuration
//
// wificfg-server reads a YAML file through viper. Values are resolved in
// this order, highest first: command line flags, WIFICFG_* environment
// variables, the config file, built-in defaults.
//
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	  restart_delay: 500ms
//	radio:
//	  profile: ""          # YAML radio profile, empty for the built-in one
//	mdns:
//	  enabled: true
//	  name: wificfg
//	log:
//	  level: info
//	  file: ""
//
// # Device registry
//
// The wificfg CLI remembers devices it has discovered or talked to, so a
// device address only has to be given once. The registry never stores
// WiFi passwords.
//
// # File locations
//
//   - Linux: $XDG_CONFIG_HOME/wificfg or $HOME/.config/wificfg
//   - macOS: $HOME/.config/wificfg
//   - Windows: %LOCALAPPDATA%\wificfg
//
// Files are written atomically through a temporary file and a rename.
package config
