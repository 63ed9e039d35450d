package deviceconfig

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType says which stage of a request to the service went wrong.
type ErrorType int

const (
	ErrTypeNetwork ErrorType = iota // transport failure not covered below
	ErrTypeHTTP                     // service answered with an unexpected status
	ErrTypeParse                    // body could not be decoded
	ErrTypeValidation               // rejected locally, never sent
	ErrTypeTimeout
	ErrTypeConnectionRefused // nothing listening on the port
	ErrTypeDNS
	ErrTypeNotFound // field not reported (404)
	ErrTypeUnknown
)

var errorTypeNames = [...]string{
	ErrTypeNetwork:           "Network Error",
	ErrTypeHTTP:              "HTTP Error",
	ErrTypeParse:             "Parse Error",
	ErrTypeValidation:        "Validation Error",
	ErrTypeTimeout:           "Timeout",
	ErrTypeConnectionRefused: "Connection Refused",
	ErrTypeDNS:               "DNS Error",
	ErrTypeNotFound:          "Not Found",
	ErrTypeUnknown:           "Unknown Error",
}

func (et ErrorType) String() string {
	if et >= 0 && int(et) < len(errorTypeNames) {
		return errorTypeNames[et]
	}
	return fmt.Sprintf("ErrorType(%d)", int(et))
}

// NetworkErrorSubtype narrows down transport failures for the hints.
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// DeviceError is an error talking to a wificfg service.
type DeviceError struct {
	Type           ErrorType
	Message        string
	StatusCode     int // set for HTTP and not-found errors
	Err            error
	NetworkSubtype NetworkErrorSubtype
	DeviceAddr     string // host:port the request went to, when known
	Retryable      bool
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// dialFailures maps the errno of a failed dial to its classification.
var dialFailures = []struct {
	errno   syscall.Errno
	typ     ErrorType
	subtype NetworkErrorSubtype
	message string
}{
	{syscall.ECONNREFUSED, ErrTypeConnectionRefused, NetworkErrorConnectionRefused, "Service refused connection"},
	{syscall.EHOSTUNREACH, ErrTypeNetwork, NetworkErrorHostUnreachable, "Host unreachable"},
	{syscall.ENETUNREACH, ErrTypeNetwork, NetworkErrorNetworkUnreachable, "Network unreachable"},
}

// ClassifyNetworkError turns a transport error from the HTTP client or the
// websocket dialer into a DeviceError. DNS failures are the only kind not
// worth retrying. A nil err gives nil.
func ClassifyNetworkError(err error, addr string) *DeviceError {
	if err == nil {
		return nil
	}
	devErr := &DeviceError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		DeviceAddr:     addr,
		Retryable:      true,
	}

	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
		urlErr *url.Error
	)
	switch {
	case os.IsTimeout(err):
		devErr.Type, devErr.NetworkSubtype = ErrTypeTimeout, NetworkErrorTimeout
		devErr.Message = "Request timed out"
	case errors.As(err, &dnsErr):
		devErr.Type, devErr.NetworkSubtype = ErrTypeDNS, NetworkErrorDNS
		devErr.Message = "DNS resolution failed for " + dnsErr.Name
		devErr.Retryable = false
	case errors.As(err, &opErr):
		for _, f := range dialFailures {
			if errors.Is(opErr.Err, f.errno) {
				devErr.Type, devErr.NetworkSubtype, devErr.Message = f.typ, f.subtype, f.message
				break
			}
		}
	case errors.As(err, &urlErr) && urlErr.Err != err:
		return ClassifyNetworkError(urlErr.Err, addr)
	}
	return devErr
}

// NewNetworkError classifies err and replaces its message with message.
func NewNetworkError(message string, err error) *DeviceError {
	devErr := ClassifyNetworkError(err, "")
	if devErr == nil {
		devErr = &DeviceError{Type: ErrTypeNetwork, Retryable: true}
	}
	devErr.Message = message
	return devErr
}

// NewHTTPError wraps an unexpected status. 404 becomes ErrTypeNotFound and
// any 5xx may be retried.
func NewHTTPError(statusCode int, message string) *DeviceError {
	devErr := &DeviceError{Type: ErrTypeHTTP, Message: message, StatusCode: statusCode}
	switch {
	case statusCode == http.StatusNotFound:
		devErr.Type = ErrTypeNotFound
	case statusCode >= 500:
		devErr.Retryable = true
	}
	return devErr
}

func NewParseError(message string, err error) *DeviceError {
	return &DeviceError{Type: ErrTypeParse, Message: message, Err: err}
}

func NewValidationError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeValidation, Message: message}
}

// hasType reports whether err wraps a DeviceError of one of the given types.
func hasType(err error, types ...ErrorType) bool {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return false
	}
	for _, t := range types {
		if devErr.Type == t {
			return true
		}
	}
	return false
}

// IsNetworkError covers every transport failure: timeouts, refused
// connections and DNS included.
func IsNetworkError(err error) bool {
	return hasType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS)
}

func IsHTTPError(err error) bool { return hasType(err, ErrTypeHTTP) }

// IsNotFound reports a field the service does not have.
func IsNotFound(err error) bool { return hasType(err, ErrTypeNotFound) }

func IsParseError(err error) bool { return hasType(err, ErrTypeParse) }

func IsValidationError(err error) bool { return hasType(err, ErrTypeValidation) }

// IsRetryable is what the client's backoff loop consults.
func IsRetryable(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Retryable
}

// troubleshoot lays out a summary followed by a bulleted tip list. The CLI
// splits this back into tips, so keep the "Troubleshooting:" line and bullets.
func troubleshoot(summary []string, tips ...string) string {
	lines := append([]string(nil), summary...)
	lines = append(lines, "Troubleshooting:")
	for _, tip := range tips {
		lines = append(lines, "  • "+tip)
	}
	return strings.Join(lines, "\n")
}

// GetTroubleshootingHint suggests what to check after a failed request.
func GetTroubleshootingHint(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return "Something went wrong outside the device client. Run the command again."
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return troubleshoot([]string{"The device did not respond in time."},
			"A settings change may have restarted the radio; give it a few seconds and retry",
			"Make sure this machine is on the device's access point or its network",
			"Raise --timeout if the link is slow",
		)
	case ErrTypeConnectionRefused:
		return troubleshoot([]string{"The device refused the connection."},
			"Check that wificfg-server is running",
			"The server listens on 8080 unless configured otherwise",
			"Run 'wificfg discover' to find the advertised address",
		)
	case ErrTypeDNS:
		return troubleshoot([]string{"Could not resolve the device hostname."},
			"Pass the IP address with --device",
			"Run 'wificfg discover' to find the device over mDNS",
		)
	case ErrTypeNetwork:
		return networkHint(devErr)
	case ErrTypeHTTP:
		switch code := devErr.StatusCode; {
		case code == http.StatusServiceUnavailable:
			return "The service is shutting down or busy. Retry in a moment."
		case code >= 500:
			return fmt.Sprintf("The service failed with HTTP %d. Its server log has the cause.", code)
		default:
			return fmt.Sprintf("The service rejected the request with HTTP %d.", code)
		}
	case ErrTypeNotFound:
		return "The device does not report this value in its current mode."
	case ErrTypeParse:
		return troubleshoot([]string{"Failed to parse the device's response."},
			"Check that the address points at a wificfg service",
			"Compare client and server versions with 'wificfg version'",
		)
	case ErrTypeValidation:
		return "Nothing was sent. Fix the values named above and run the command again."
	default:
		return "See the message above for the cause."
	}
}

func networkHint(devErr *DeviceError) string {
	summary := []string{"The request never reached the service."}
	switch devErr.NetworkSubtype {
	case NetworkErrorHostUnreachable:
		return troubleshoot(append(summary, "No route to the device from this machine."),
			"Double check the device address",
			"If you just changed the WiFi mode, the device may have left this network",
			"ping "+hostOnly(devErr.DeviceAddr)+" to see whether it answers",
		)
	case NetworkErrorNetworkUnreachable:
		return troubleshoot(append(summary, "This machine has no route to the device's network."),
			"Join the device's access point",
			"Check which network adapter is up",
		)
	default:
		return troubleshoot(summary,
			"Check this machine's network connection",
			"Make sure the device is powered on",
		)
	}
}

// GetShortErrorMessage is the one-line form shown as the error title.
func GetShortErrorMessage(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "No answer from the device (timeout)"
	case ErrTypeConnectionRefused:
		return "Connection refused; is wificfg-server running?"
	case ErrTypeDNS:
		return "Device hostname does not resolve"
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "No route to the device"
		case NetworkErrorNetworkUnreachable:
			return "Device network unreachable"
		}
		return "Network failure talking to the device"
	case ErrTypeHTTP:
		return fmt.Sprintf("Service answered HTTP %d", devErr.StatusCode)
	case ErrTypeParse:
		return "Unreadable response from the device"
	default:
		return devErr.Message
	}
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
