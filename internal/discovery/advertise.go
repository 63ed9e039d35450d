package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/logging"
)

// Advertiser is a registered mDNS service.
type Advertiser struct {
	server *zeroconf.Server
}

// TXTRecords returns the records that mark a wificfg service.
func TXTRecords(version string) []string {
	return []string{
		TxtService + "=" + ServiceTag,
		TxtPath + "=" + PathPrefix,
		TxtVersion + "=" + version,
	}
}

// Advertise registers instance on every multicast interface.
func Advertise(instance string, port int, version string) (*Advertiser, error) {
	if instance == "" {
		return nil, fmt.Errorf("mDNS instance name is required")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, TXTRecords(version), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Info("mDNS advertisement withdrawn")
}
