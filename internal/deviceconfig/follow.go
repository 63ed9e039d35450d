package deviceconfig

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/scancache"
	"github.com/muurk/wificfg/internal/version"
)

// ScanCommand asks the service to start a scan when sent over the feed.
const ScanCommand = "scan"

// ErrStopFollow can be returned by a Follow callback to end the feed cleanly.
var ErrStopFollow = errors.New("stop following")

// feedWriteWait bounds a single write to the feed.
const feedWriteWait = 10 * time.Second

// FeedURL returns the websocket URL of the scan feed.
func (c *Client) FeedURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = PathFeed
	return u.String(), nil
}

// Follow subscribes to the scan feed and calls fn with the current snapshot
// and then once per completed scan, until ctx is done or fn returns an
// error. With trigger set, a scan is requested as soon as the feed is open.
// Returning ErrStopFollow from fn ends the feed without error.
func (c *Client) Follow(ctx context.Context, trigger bool, fn func(scancache.Snapshot) error) error {
	feedURL, err := c.FeedURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.HTTPClient.Timeout}
	header := http.Header{"User-Agent": {version.UserAgent()}}

	conn, resp, err := dialer.DialContext(ctx, feedURL, header)
	if err != nil {
		if resp != nil {
			return NewHTTPError(resp.StatusCode, fmt.Sprintf("scan feed refused: status %d", resp.StatusCode))
		}
		return ClassifyNetworkError(err, feedURL)
	}
	defer func() { _ = conn.Close() }()

	logging.Debug("Scan feed open", zap.String("url", feedURL))

	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if trigger {
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(ScanCommand)); err != nil {
			return NewNetworkError("failed to request scan", err)
		}
	}

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return NewNetworkError("scan feed closed", err)
		}
		if kind != websocket.TextMessage {
			continue
		}

		var snap scancache.Snapshot
		if err := snap.UnmarshalJSON(data); err != nil {
			return NewParseError("failed to parse scan feed message", err)
		}

		if err := fn(snap); err != nil {
			if errors.Is(err, ErrStopFollow) {
				_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			return err
		}
	}
}
