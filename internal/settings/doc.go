// Package settings applies WiFi configuration changes submitted from the
// configuration page and exposes the current configuration to templates.
//
// # Applying settings
//
// A submission is decoded into a Form and handed to Reconciler.Apply. The
// reconciler reads the current station and softAP configuration, applies the
// fields that are present and different, writes back whole structs, and
// decides what has to happen next:
//
//	ActionNone               nothing changed
//	ActionReconnectNow       station credentials changed: disconnect, write, connect
//	ActionRestartAfterDelay  mode or softAP changed: restart the radio shortly
//
// A restart brings the station up with its stored configuration, so it takes
// precedence over a reconnect requested in the same submission. Changing the
// operating mode decides which interfaces exist after the restart; the other
// fields of that submission are ignored.
//
// Values that cannot be parsed or do not fit the radio's fields are skipped
// and logged. The remaining fields of the submission are still applied.
//
// # Restart scheduling
//
// Restarter arms a one-shot timer. Scheduling again before it fires replaces
// the pending restart, so a burst of submissions restarts the radio once.
//
// # Template fields
//
// Fields maps the tokens used by the configuration page (wifiMode,
// clientSSID, clientIp, APChannel, ...) to their current values. Every lookup
// reads the radio again.
package settings
