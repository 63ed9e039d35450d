package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/config"
	"github.com/muurk/wificfg/internal/discovery"
	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/radio"
	"github.com/muurk/wificfg/internal/server"
	"github.com/muurk/wificfg/internal/version"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the configuration service",
	Long: `Start the WiFi configuration service.

Settings are resolved from built-in defaults, then the config file, then
WIFICFG_* environment variables, then flags. Without --config the file is
looked up as config.yaml in the user config directory, /etc/wificfg and the
working directory; a missing file is not an error.

The radio is simulated. Pass --profile to describe its networks, initial
mode and timing; radio.example.yaml in the repository shows the format.`,
	Example: `  # Start with built-in defaults on :8080
  wificfg-server serve

  # Custom port, debug logging, no mDNS
  wificfg-server serve --port 8081 --log-level debug --mdns=false

  # Simulated radio from a profile, logs rotated to a file
  wificfg-server serve --profile radio.yaml --log-file /var/log/wificfg.log`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&configPath, "config", "", "Config file (default: search the standard locations)")
	f.String("host", "", "Listen address (empty = all interfaces)")
	f.Int("port", 0, "Listen port")
	f.String("profile", "", "YAML profile for the simulated radio")
	f.Duration("restart-delay", 0, "Delay between a restart decision and the radio restart")
	f.Bool("mdns", true, "Advertise the service over mDNS")
	f.String("name", "", "mDNS instance name")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("log-file", "", "Also write JSON logs to this file, rotated")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	if err := logging.InitializeWithOptions(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	if cfg.Source != "" {
		logging.Info("Loaded configuration", zap.String("file", cfg.Source))
	}

	dev, err := newRadio(cfg.Radio)
	if err != nil {
		return err
	}
	dev.Start()

	// Ready runs on the serving goroutine.
	advertised := make(chan *discovery.Advertiser, 1)
	defer func() {
		select {
		case adv := <-advertised:
			adv.Shutdown()
		default:
		}
	}()

	srv := server.New(&server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		RestartDelay:    cfg.Server.RestartDelay,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Ready: func(addr net.Addr) {
			if !cfg.MDNS.Enabled {
				return
			}
			port := cfg.Server.Port
			if tcp, ok := addr.(*net.TCPAddr); ok {
				port = tcp.Port
			}
			a, err := discovery.Advertise(cfg.MDNS.Name, port, version.Version)
			if err != nil {
				// The service is still reachable by address.
				logging.Warn("mDNS advertisement failed", zap.Error(err))
				return
			}
			advertised <- a
		},
	}, dev)

	return srv.Start(cmd.Context())
}

func newRadio(rc config.RadioConfig) (*radio.Sim, error) {
	profile := radio.DefaultProfile()
	if rc.Profile != "" {
		p, err := radio.LoadProfile(rc.Profile)
		if err != nil {
			return nil, err
		}
		profile = p
		logging.Info("Loaded radio profile", zap.String("file", rc.Profile))
	}

	dev, err := radio.NewSim(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create radio: %w", err)
	}
	return dev, nil
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a config file with the default settings",
	Example: `  # Write to the user config directory
  wificfg-server init-config

  # Write next to the binary
  wificfg-server init-config ./config.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		if path != "" {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
		}
		written, err := config.WriteDefault(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", written)
		return nil
	},
}
