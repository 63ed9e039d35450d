// Package discovery advertises the wificfg service over mDNS and finds it
// from the CLI.
//
// The service registers an "_http._tcp" instance whose TXT records mark it
// as a WiFi configuration endpoint:
//
//	svc=wificfg   identifies the service among other HTTP services
//	path=/wifi    prefix of the configuration endpoints
//	ver=<version> server version
//
// Browsing keeps only instances carrying svc=wificfg.
//
// # Usage Example
//
//	// Service side
//	adv, err := discovery.Advertise("lab-board", 8080, version.Version)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adv.Shutdown()
//
//	// CLI side
//	devices, err := discovery.ScanForDevices(3 * time.Second)
//	for _, d := range devices {
//	    fmt.Println(d.Instance, d.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
