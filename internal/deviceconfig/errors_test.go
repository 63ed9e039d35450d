package deviceconfig

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

// dialErr wraps cause the way net/http reports a failed dial.
func dialErr(cause error) error {
	return &url.Error{
		Op:  "Get",
		URL: "http://192.168.4.1:8080/wifi/scan.cgi",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: cause},
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		wantSub   NetworkErrorSubtype
		retryable bool
	}{
		{"dial timeout", dialErr(&timeoutError{}), ErrTypeTimeout, NetworkErrorTimeout, true},
		{"server not running", dialErr(syscall.ECONNREFUSED), ErrTypeConnectionRefused, NetworkErrorConnectionRefused, true},
		{"no route to host", dialErr(syscall.EHOSTUNREACH), ErrTypeNetwork, NetworkErrorHostUnreachable, true},
		{"no route to network", dialErr(syscall.ENETUNREACH), ErrTypeNetwork, NetworkErrorNetworkUnreachable, true},
		{"connection reset", dialErr(syscall.ECONNRESET), ErrTypeNetwork, NetworkErrorGeneral, true},
		{
			name:     "unknown mdns name",
			err:      &net.DNSError{Err: "no such host", Name: "esp-lab.local", IsNotFound: true},
			wantType: ErrTypeDNS,
			wantSub:  NetworkErrorDNS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := ClassifyNetworkError(tt.err, "192.168.4.1:8080")
			if devErr == nil {
				t.Fatal("ClassifyNetworkError() = nil")
			}
			if devErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", devErr.Type, tt.wantType)
			}
			if devErr.NetworkSubtype != tt.wantSub {
				t.Errorf("NetworkSubtype = %v, want %v", devErr.NetworkSubtype, tt.wantSub)
			}
			if devErr.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", devErr.Retryable, tt.retryable)
			}
			if devErr.DeviceAddr != "192.168.4.1:8080" {
				t.Errorf("DeviceAddr = %q", devErr.DeviceAddr)
			}
		})
	}

	if ClassifyNetworkError(nil, "x") != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"dropped connection", &DeviceError{Type: ErrTypeNetwork, Retryable: true}, true},
		{"bad channel", NewValidationError("bad channel"), false},
		{"server shutting down", NewHTTPError(503, "shutting down"), true},
		{"malformed form", NewHTTPError(400, "malformed form"), false},
		{"wrapped server error", fmt.Errorf("scan: %w", NewHTTPError(500, "boom")), true},
		{"foreign error", errors.New("disk full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		network    bool
		http       bool
		notFound   bool
		parse      bool
		validation bool
	}{
		{"timeout", &DeviceError{Type: ErrTypeTimeout}, true, false, false, false, false},
		{"dns", &DeviceError{Type: ErrTypeDNS}, true, false, false, false, false},
		{"refused", &DeviceError{Type: ErrTypeConnectionRefused}, true, false, false, false, false},
		{"http 500", NewHTTPError(500, "x"), false, true, false, false, false},
		{"http 404", NewHTTPError(404, "x"), false, false, true, false, false},
		{"parse", NewParseError("x", errors.New("y")), false, false, false, true, false},
		{"validation", NewValidationError("x"), false, false, false, false, true},
		{"plain", errors.New("x"), false, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNetworkError(tt.err); got != tt.network {
				t.Errorf("IsNetworkError() = %v, want %v", got, tt.network)
			}
			if got := IsHTTPError(tt.err); got != tt.http {
				t.Errorf("IsHTTPError() = %v, want %v", got, tt.http)
			}
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.notFound)
			}
			if got := IsParseError(tt.err); got != tt.parse {
				t.Errorf("IsParseError() = %v, want %v", got, tt.parse)
			}
			if got := IsValidationError(tt.err); got != tt.validation {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.validation)
			}
		})
	}
}

func TestShortMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&DeviceError{Type: ErrTypeTimeout}, "No answer from the device (timeout)"},
		{&DeviceError{Type: ErrTypeConnectionRefused}, "Connection refused; is wificfg-server running?"},
		{&DeviceError{Type: ErrTypeDNS}, "Device hostname does not resolve"},
		{&DeviceError{Type: ErrTypeNetwork, NetworkSubtype: NetworkErrorHostUnreachable}, "No route to the device"},
		{&DeviceError{Type: ErrTypeNetwork}, "Network failure talking to the device"},
		{&DeviceError{Type: ErrTypeHTTP, StatusCode: 500}, "Service answered HTTP 500"},
		{NewValidationError("AP channel must be 1-14, got 15"), "AP channel must be 1-14, got 15"},
		{errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := GetShortErrorMessage(tt.err); got != tt.want {
				t.Errorf("GetShortErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTroubleshootingHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"radio restarting", &DeviceError{Type: ErrTypeTimeout}, []string{"did not respond in time", "Troubleshooting:", "restarted the radio", "--timeout"}},
		{"server down", &DeviceError{Type: ErrTypeConnectionRefused}, []string{"refused the connection", "wificfg-server is running", "wificfg discover"}},
		{"bad hostname", &DeviceError{Type: ErrTypeDNS}, []string{"resolve the device hostname", "--device"}},
		{
			name: "device left the network",
			err: &DeviceError{
				Type:           ErrTypeNetwork,
				NetworkSubtype: NetworkErrorHostUnreachable,
				DeviceAddr:     "192.168.4.1:8080",
			},
			want: []string{"No route", "  • ping 192.168.4.1 ", "changed the WiFi mode"},
		},
		{"shutting down", NewHTTPError(503, "shutting down"), []string{"shutting down or busy"}},
		{"server failure", NewHTTPError(500, "boom"), []string{"HTTP 500", "server log"}},
		{"field missing", NewHTTPError(404, "no such field"), []string{"current mode"}},
		{"not a wificfg service", &DeviceError{Type: ErrTypeParse}, []string{"Failed to parse", "wificfg service"}},
		{"rejected locally", NewValidationError("x"), []string{"Nothing was sent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := GetTroubleshootingHint(tt.err)
			for _, want := range tt.want {
				if !strings.Contains(hint, want) {
					t.Errorf("hint missing %q\n%s", want, hint)
				}
			}
		})
	}
}

// The CLI turns every bulleted line after the header into a tip.
func TestTroubleshootingHint_Layout(t *testing.T) {
	hint := GetTroubleshootingHint(&DeviceError{Type: ErrTypeConnectionRefused})
	lines := strings.Split(hint, "\n")

	header := -1
	for i, line := range lines {
		if line == "Troubleshooting:" {
			header = i
		}
	}
	if header < 1 {
		t.Fatalf("no header after the summary:\n%s", hint)
	}
	for _, line := range lines[header+1:] {
		if !strings.HasPrefix(line, "  • ") {
			t.Errorf("tip %q is not bulleted", line)
		}
	}
}

func TestDeviceError_Unwrap(t *testing.T) {
	cause := errors.New("read: connection reset")
	err := NewNetworkError("scan failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the cause")
	}
	if !strings.Contains(err.Error(), "scan failed") || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorTypeString(t *testing.T) {
	names := map[ErrorType]string{
		ErrTypeNetwork:           "Network Error",
		ErrTypeHTTP:              "HTTP Error",
		ErrTypeParse:             "Parse Error",
		ErrTypeValidation:        "Validation Error",
		ErrTypeTimeout:           "Timeout",
		ErrTypeConnectionRefused: "Connection Refused",
		ErrTypeDNS:               "DNS Error",
		ErrTypeNotFound:          "Not Found",
		ErrTypeUnknown:           "Unknown Error",
		ErrorType(42):            "ErrorType(42)",
	}
	for et, want := range names {
		if got := et.String(); got != want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", int(et), got, want)
		}
	}
}

// timeoutError satisfies net.Error with Timeout() true.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
