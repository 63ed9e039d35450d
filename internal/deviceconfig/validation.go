package deviceconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/wificfg/internal/radio"
	"github.com/muurk/wificfg/internal/settings"
)

// MinPSKLen is the shortest WPA passphrase a station will accept.
const MinPSKLen = 8

// ValidateSSID checks an SSID against the limit the device enforces.
// The device silently ignores longer values, so reject them up front.
func ValidateSSID(field, ssid string) error {
	if ssid == "" {
		return NewValidationError(fmt.Sprintf("%s cannot be empty", field))
	}
	if len(ssid) > settings.MaxSSIDLen {
		return NewValidationError(fmt.Sprintf("%s too long (max %d bytes): %d bytes", field, settings.MaxSSIDLen, len(ssid)))
	}
	return nil
}

// ValidatePassword checks a station passphrase length. The device treats an
// empty value as not sent, so a password cannot be cleared this way.
func ValidatePassword(password string) error {
	if password == "" {
		return NewValidationError("client password cannot be empty; omit it to keep the current one")
	}
	if len(password) > settings.MaxPasswordLen {
		return NewValidationError(fmt.Sprintf("client password too long (max %d bytes): %d bytes", settings.MaxPasswordLen, len(password)))
	}
	return nil
}

// ValidateMode checks an operating mode value.
func ValidateMode(mode radio.OpMode) error {
	if !mode.Valid() {
		return NewValidationError(fmt.Sprintf("wifi mode must be 0-%d, got %d", radio.ModeStationAP, mode))
	}
	return nil
}

// ValidateAuthMode checks a softAP authentication mode.
func ValidateAuthMode(auth radio.AuthMode) error {
	if !auth.Valid() {
		return NewValidationError(fmt.Sprintf("AP auth mode must be 0-%d, got %d", radio.AuthWPAWPA2PSK, auth))
	}
	return nil
}

// ValidateChannel checks a softAP channel number.
func ValidateChannel(channel int) error {
	if channel < settings.MinChannel || channel > settings.MaxChannel {
		return NewValidationError(fmt.Sprintf("AP channel must be %d-%d, got %d", settings.MinChannel, settings.MaxChannel, channel))
	}
	return nil
}

// ValidateSettings validates a change request before it is sent.
// Returns a slice of validation errors (empty if valid), warnings included.
func ValidateSettings(s *Settings) []error {
	if s.IsEmpty() {
		return []error{NewValidationError("no settings to change")}
	}

	var errs []error

	if s.Mode != nil {
		if err := ValidateMode(*s.Mode); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ClientSSID != nil {
		if err := ValidateSSID("client SSID", *s.ClientSSID); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ClientPasswd != nil {
		if err := ValidatePassword(*s.ClientPasswd); err != nil {
			errs = append(errs, err)
		}
	}
	if s.APAuth != nil {
		if err := ValidateAuthMode(*s.APAuth); err != nil {
			errs = append(errs, err)
		}
	}
	if s.APChannel != nil {
		if err := ValidateChannel(*s.APChannel); err != nil {
			errs = append(errs, err)
		}
	}
	if s.APSSID != nil {
		if err := ValidateSSID("AP SSID", *s.APSSID); err != nil {
			errs = append(errs, err)
		}
	}

	return append(errs, CheckLogicalConflicts(s)...)
}

// CheckLogicalConflicts finds combinations the device accepts but handles in
// a way the user may not expect.
func CheckLogicalConflicts(s *Settings) []error {
	var conflicts []error

	interfaceFields := s.ClientSSID != nil || s.ClientPasswd != nil ||
		s.APAuth != nil || s.APChannel != nil || s.APSSID != nil

	if s.Mode != nil && interfaceFields {
		conflicts = append(conflicts, NewValidationError(
			"warning: the device ignores interface settings sent with a mode change; send them after it restarts",
		))
	}

	apFields := s.APAuth != nil || s.APChannel != nil || s.APSSID != nil
	if apFields && (s.ClientSSID != nil || s.ClientPasswd != nil) {
		conflicts = append(conflicts, NewValidationError(
			"warning: an AP change restarts the radio and the station settings in the same request are dropped",
		))
	}

	if s.ClientPasswd != nil && *s.ClientPasswd != "" && len(*s.ClientPasswd) < MinPSKLen {
		conflicts = append(conflicts, NewValidationError(
			fmt.Sprintf("warning: client password shorter than %d bytes will not join a WPA network", MinPSKLen),
		))
	}

	return conflicts
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Settings validation failed with %d error(s):\n", len(errs))

	for i, err := range errs {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}

	return sb.String()
}

// IsWarning checks if a validation error is a warning (non-fatal).
// Warnings have error messages starting with "warning:".
func IsWarning(err error) bool {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return strings.HasPrefix(devErr.Message, "warning:")
	}
	return strings.Contains(err.Error(), "warning:")
}

// SeparateWarningsAndErrors separates validation errors into warnings and errors.
func SeparateWarningsAndErrors(errs []error) (warnings []error, criticalErrors []error) {
	for _, err := range errs {
		if IsWarning(err) {
			warnings = append(warnings, err)
		} else {
			criticalErrors = append(criticalErrors, err)
		}
	}
	return warnings, criticalErrors
}
