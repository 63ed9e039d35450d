// Package radio describes the WiFi radio capability the service drives, and
// provides Sim, a simulated radio for running the service off-device.
//
// The capability is split the way the service uses it: Scanner starts
// asynchronous scans, InfoReader answers status queries, and Device adds the
// configuration writes, connection control and restart.
//
// Scan results arrive as ScanResults, a list that can be walked once and
// carries the record count the driver reported. SSIDs are raw fixed-size
// fields; consumers trim them.
//
// Configuration is always written as whole structs (StationConfig,
// SoftAPConfig). Station writes that must not race with driver events go
// through Device.Exclusive.
//
// # Simulated radio
//
// Sim is configured by a YAML profile:
//
//	mac: "5c:cf:7f:00:00:01"
//	mode: 3
//	station:
//	  ssid: HomeNetwork
//	  password: correcthorse
//	  dhcp: true
//	softap:
//	  ssid: ESP_000001
//	  auth_mode: 0
//	  channel: 1
//	networks:
//	  - {ssid: HomeNetwork, rssi: -48, auth_mode: 3, channel: 6, password: correcthorse}
//	scan_duration: 1500ms
//	fail_every: 0
package radio
