package deviceconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/scancache"
	"github.com/muurk/wificfg/internal/version"
)

const (
	// DefaultPort is the port wificfg-server listens on unless configured otherwise
	DefaultPort = 8080

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultCacheDuration is the default cache validity duration for fields
	DefaultCacheDuration = 5 * time.Second

	// DefaultPollInterval is how often WaitForScan polls the scan status
	DefaultPollInterval = 500 * time.Millisecond
)

// Endpoint paths served by wificfg-server.
const (
	PathScan     = "/wifi/wifiscan.cgi"
	PathSettings = "/wifi/settings.cgi"
	PathField    = "/wifi/field/"
	PathFields   = "/wifi/fields"
	PathFeed     = "/wifi/ws"
	PathHealth   = "/healthz"
)

// maxBodySize bounds every response read from the service.
const maxBodySize = 1 << 20

// Client talks to a wificfg service over HTTP.
type Client struct {
	// BaseURL is the base URL for the service (e.g., "http://192.168.4.1:8080")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// CacheDuration is how long to cache the fields response (0 = no cache)
	CacheDuration time.Duration

	cachedFields map[string]string
	cacheTime    time.Time
	cacheMutex   sync.RWMutex
}

// NewClient creates a client for the service at host:port.
func NewClient(host string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
}

// NewClientWithURL creates a new client with a full base URL
// baseURL: Full base URL (e.g., "http://192.168.4.1:8080")
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		CacheDuration:         DefaultCacheDuration,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// withRetry runs attempt until it succeeds, fails with a non-retryable
// error, or the retries are used up.
func (c *Client) withRetry(ctx context.Context, op string, attempt func(context.Context) error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for n := 0; n <= c.MaxRetries; n++ {
		if n > 0 {
			logging.Debug("Retrying request",
				zap.String("op", op),
				zap.Int("attempt", n),
				zap.Duration("delay", currentDelay),
				zap.Error(lastErr),
			)

			timer := time.NewTimer(currentDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: %w", op, ctx.Err())
			case <-timer.C:
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}

	return lastErr
}

// send performs a single request and returns the response body. Any status
// other than want is an error.
func (c *Client) send(ctx context.Context, req *http.Request, want int) ([]byte, error) {
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req.WithContext(ctx))
	if err != nil {
		devErr := ClassifyNetworkError(err, req.URL.Host)
		devErr.Message = fmt.Sprintf("%s %s failed: %s", req.Method, req.URL.Path, devErr.Message)
		return nil, devErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	if resp.StatusCode != want {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, msg))
	}

	return body, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := c.withRetry(ctx, "GET "+path, func(ctx context.Context) error {
		req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
		if err != nil {
			return NewNetworkError("failed to create GET request", err)
		}
		body, err = c.send(ctx, req, http.StatusOK)
		return err
	})
	return body, err
}

// Ping performs a simple health check on the service
// Returns nil if the service is reachable and responding
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+PathHealth, nil)
	if err != nil {
		return NewNetworkError("failed to create ping request", err)
	}
	_, err = c.send(ctx, req, http.StatusOK)
	return err
}

// Scan fetches the scan status. When the device is idle this also starts a
// new scan, so the next call may report it in progress.
func (c *Client) Scan(ctx context.Context) (scancache.Snapshot, error) {
	var snap scancache.Snapshot
	body, err := c.get(ctx, PathScan)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(body, &snap); err != nil {
		return scancache.Snapshot{}, NewParseError("failed to parse scan status", err)
	}
	return snap, nil
}

// WaitForScan triggers a scan and polls until it has completed, returning
// the fresh results.
func (c *Client) WaitForScan(ctx context.Context, poll time.Duration) (scancache.Snapshot, error) {
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	snap, err := c.Scan(ctx)
	if err != nil {
		return snap, err
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return snap, fmt.Errorf("waiting for scan: %w", ctx.Err())
		case <-ticker.C:
		}

		snap, err = c.Scan(ctx)
		if err != nil {
			return snap, err
		}
		if !snap.InProgress {
			return snap, nil
		}
	}
}

// Field reads a single template field. A token the device does not report
// yields an error for which IsNotFound is true.
func (c *Client) Field(ctx context.Context, token string) (string, error) {
	body, err := c.get(ctx, PathField+url.PathEscape(token))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Fields reads every field the device currently reports. Results are cached
// for CacheDuration.
func (c *Client) Fields(ctx context.Context) (map[string]string, error) {
	if cached := c.GetCachedFields(); cached != nil {
		return cached, nil
	}
	return c.RefreshFields(ctx)
}

// RefreshFields fetches the fields, bypassing and updating the cache.
func (c *Client) RefreshFields(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, PathFields)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, NewParseError("failed to parse fields", err)
	}

	if c.CacheDuration > 0 {
		c.cacheMutex.Lock()
		c.cachedFields = maps.Clone(fields)
		c.cacheTime = time.Now()
		c.cacheMutex.Unlock()
	}

	return fields, nil
}

// Status reads and decodes the device state.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	fields, err := c.Fields(ctx)
	if err != nil {
		return nil, err
	}
	return ParseStatus(fields)
}

// ApplySettings submits a change request. The service answers 204 whatever
// it decided, so success only means the request was delivered; use
// ApplyAndVerify to confirm the outcome.
func (c *Client) ApplySettings(ctx context.Context, s *Settings) error {
	if s.IsEmpty() {
		return NewValidationError("no settings to change")
	}
	form := s.ToFormData().Encode()

	err := c.withRetry(ctx, "POST "+PathSettings, func(ctx context.Context) error {
		req, err := http.NewRequest(http.MethodPost, c.BaseURL+PathSettings, strings.NewReader(form))
		if err != nil {
			return NewNetworkError("failed to create POST request", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, err = c.send(ctx, req, http.StatusNoContent)
		return err
	})
	if err != nil {
		return err
	}

	c.InvalidateCache()
	return nil
}

// InvalidateCache clears the cached fields, forcing the next Fields call to fetch fresh data
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cachedFields = nil
	c.cacheTime = time.Time{}
}

// SetCacheDuration sets the cache validity duration
// Set to 0 to disable caching entirely
func (c *Client) SetCacheDuration(duration time.Duration) {
	c.CacheDuration = duration
	if duration == 0 {
		c.InvalidateCache()
	}
}

// GetCachedFields returns the cached fields without making a network request
// Returns nil if no valid cache exists
func (c *Client) GetCachedFields() map[string]string {
	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()

	if c.cachedFields != nil && time.Since(c.cacheTime) < c.CacheDuration {
		return maps.Clone(c.cachedFields)
	}
	return nil
}
