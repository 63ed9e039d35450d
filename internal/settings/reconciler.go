package settings

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/radio"
)

// Longest values accepted from the form. The radio stores them NUL
// terminated in fixed-size fields.
const (
	MaxSSIDLen     = radio.MaxSSIDLen - 1
	MaxPasswordLen = radio.MaxPasswordLen - 1

	MinChannel = 1
	MaxChannel = 14
)

// PendingAction is what the radio has to do after a submission was applied.
type PendingAction int

const (
	ActionNone PendingAction = iota
	ActionReconnectNow
	ActionRestartAfterDelay
)

func (a PendingAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionReconnectNow:
		return "reconnect"
	case ActionRestartAfterDelay:
		return "restart"
	default:
		return fmt.Sprintf("PendingAction(%d)", int(a))
	}
}

// Scheduler arranges a radio restart in the near future.
type Scheduler interface {
	Schedule()
}

// Reconciler applies settings submissions to a radio.
type Reconciler struct {
	dev       radio.Device
	restarter Scheduler
}

// NewReconciler creates a reconciler for dev. Restarts go through restarter.
func NewReconciler(dev radio.Device, restarter Scheduler) *Reconciler {
	return &Reconciler{dev: dev, restarter: restarter}
}

// Apply decodes form values and applies them. See ApplyForm.
func (r *Reconciler) Apply(values url.Values) (PendingAction, error) {
	form, err := DecodeForm(values)
	if err != nil {
		return ActionNone, err
	}
	return r.ApplyForm(form)
}

// ApplyForm applies the present fields of f and carries out the resulting
// action. Write failures are returned as ConfigWriteErrors together with the
// action that was taken anyway.
func (r *Reconciler) ApplyForm(f Form) (PendingAction, error) {
	station := r.dev.StationConfig()
	softAP := r.dev.SoftAPConfig()
	mode := r.dev.OpMode()

	var (
		restart bool
		connect bool
		errs    []error
	)

	modeChanged := false
	if v, ok := present(f.WifiMode); ok {
		newMode, err := parseMode(v)
		switch {
		case err != nil:
			logging.Warn("Ignoring wifiMode", zap.String("value", v), zap.Error(err))
		case newMode != mode:
			logging.Info("Operating mode change",
				zap.Stringer("from", mode),
				zap.Stringer("to", newMode),
			)
			if err := r.dev.SetOpMode(newMode); err != nil {
				errs = append(errs, &ConfigWriteError{Subsystem: "opmode", Err: err})
			}
			modeChanged = true
			restart = true
		}
	}

	if modeChanged {
		if f.hasInterfaceFields() {
			logging.Info("Operating mode changed, ignoring interface fields in the same request")
		}
	} else {
		if mode.HasStation() {
			connect = r.applyStation(f, &station)
		}
		if mode.HasSoftAP() && r.applySoftAP(f, &softAP) {
			if err := r.dev.SetSoftAPConfig(softAP); err != nil {
				errs = append(errs, &ConfigWriteError{Subsystem: "softap", Err: err})
			}
			restart = true
		}
	}

	action := ActionNone
	switch {
	case restart:
		if connect {
			logging.Debug("Restart pending, station reconnect dropped")
		}
		r.restarter.Schedule()
		action = ActionRestartAfterDelay
	case connect:
		errs = append(errs, r.reconnect(station)...)
		action = ActionReconnectNow
	}

	logging.Debug("Settings applied", zap.Stringer("action", action))
	return action, errors.Join(errs...)
}

func (r *Reconciler) applyStation(f Form, station *radio.StationConfig) bool {
	changed := false

	if v, ok := present(f.ClientSSID); ok {
		switch {
		case len(v) > MaxSSIDLen:
			logging.Warn("Ignoring clientSSID, too long", zap.Int("length", len(v)))
		case v != station.SSID:
			station.SSID = v
			logging.LogSettingChange("clientSSID", v, false)
			changed = true
		}
	}

	if v, ok := present(f.ClientPasswd); ok {
		switch {
		case len(v) > MaxPasswordLen:
			logging.Warn("Ignoring clientPasswd, too long", zap.Int("length", len(v)))
		case v != station.Password:
			station.Password = v
			logging.LogSettingChange("clientPasswd", v, true)
			changed = true
		}
	}

	return changed
}

// applySoftAP compares submitted text against the text form of the current
// values, the way they are rendered into the page.
func (r *Reconciler) applySoftAP(f Form, ap *radio.SoftAPConfig) bool {
	changed := false

	if v, ok := present(f.APAuth); ok && v != strconv.Itoa(int(ap.AuthMode)) {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > int(radio.AuthWPAWPA2PSK) {
			logging.Warn("Ignoring APAuth", zap.String("value", v))
		} else {
			ap.AuthMode = radio.AuthMode(n)
			logging.LogSettingChange("APAuth", v, false)
			changed = true
		}
	}

	if v, ok := present(f.APChannel); ok && v != strconv.Itoa(ap.Channel) {
		n, err := strconv.Atoi(v)
		if err != nil || n < MinChannel || n > MaxChannel {
			logging.Warn("Ignoring APChannel", zap.String("value", v))
		} else {
			ap.Channel = n
			logging.LogSettingChange("APChannel", v, false)
			changed = true
		}
	}

	if v, ok := present(f.APSSID); ok && v != ap.SSID {
		if len(v) > MaxSSIDLen {
			logging.Warn("Ignoring APSSID, too long", zap.Int("length", len(v)))
		} else {
			ap.SSID = v
			logging.LogSettingChange("APSSID", v, false)
			changed = true
		}
	}

	return changed
}

// reconnect drops the current association, writes the new station config
// with the radio's event path held off, and joins again.
func (r *Reconciler) reconnect(station radio.StationConfig) []error {
	var errs []error

	if err := r.dev.Disconnect(); err != nil {
		logging.Warn("Disconnect failed", zap.Error(err))
	}

	err := r.dev.Exclusive(func() error {
		return r.dev.SetStationConfig(station)
	})
	if err != nil {
		errs = append(errs, &ConfigWriteError{Subsystem: "station", Err: err})
	}

	if err := r.dev.Connect(); err != nil {
		errs = append(errs, &ConfigWriteError{Subsystem: "connect", Err: err})
	}

	logging.Info("Station reconnecting", zap.String("ssid", station.SSID))
	return errs
}

func (f Form) hasInterfaceFields() bool {
	for _, p := range []*string{f.ClientSSID, f.ClientPasswd, f.APAuth, f.APChannel, f.APSSID} {
		if _, ok := present(p); ok {
			return true
		}
	}
	return false
}

func parseMode(v string) (radio.OpMode, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("not a number: %w", err)
	}
	if n < 0 || n > int(radio.ModeStationAP) {
		return 0, fmt.Errorf("mode %d out of range", n)
	}
	return radio.OpMode(n), nil
}
