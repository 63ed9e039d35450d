// Package scancache holds the result of the most recent access point scan and
// coordinates new scans with the clients polling for them.
//
// At most one scan runs at a time. A completed scan replaces the whole list;
// readers either see the previous list or the new one, never a mix.
package scancache

import (
	"bytes"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/radio"
)

// Dispatcher delivers a message to the event loop. Post must not block.
type Dispatcher interface {
	Post(fn func()) bool
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(fn func()) bool

// Post implements Dispatcher.
func (f DispatchFunc) Post(fn func()) bool { return f(fn) }

// Inline runs messages on the caller's goroutine.
var Inline Dispatcher = DispatchFunc(func(fn func()) bool {
	fn()
	return true
})

// AccessPoint is one network found by a scan.
type AccessPoint struct {
	SSID string
	RSSI int8
	Enc  radio.AuthMode
}

// Snapshot is the cache state handed to readers. AccessPoints is shared and
// must not be modified. While InProgress is true it holds the previous scan.
type Snapshot struct {
	InProgress   bool
	AccessPoints []AccessPoint
}

// Stats counts scan outcomes since startup.
type Stats struct {
	Started   uint64 // scans handed to the radio
	Completed uint64 // successful completions
	Failed    uint64 // failed completions and scans the radio refused
	Dropped   uint64 // StartScan calls ignored because a scan was running
	Anomalies uint64 // completions where the driver returned more records than it counted
}

// Cache is the scan result cache.
type Cache struct {
	scanner  radio.Scanner
	dispatch Dispatcher

	mu         sync.Mutex
	inProgress bool
	aps        []AccessPoint
	stats      Stats
	subs       map[int]chan Snapshot
	nextSub    int
}

// New creates an empty cache. Scan completions are delivered through dispatch.
func New(scanner radio.Scanner, dispatch Dispatcher) *Cache {
	if dispatch == nil {
		dispatch = Inline
	}
	return &Cache{
		scanner:  scanner,
		dispatch: dispatch,
		aps:      []AccessPoint{},
		subs:     make(map[int]chan Snapshot),
	}
}

// StartScan asks the radio for a new scan unless one is already running.
// It reports whether a scan was started.
func (c *Cache) StartScan() bool {
	c.mu.Lock()
	if c.inProgress {
		c.stats.Dropped++
		c.mu.Unlock()
		return false
	}
	c.inProgress = true
	c.stats.Started++
	c.mu.Unlock()

	if err := c.scanner.Scan(c.scanDone); err != nil {
		// Routine in softAP-only mode, where every poll is refused.
		logging.Debug("Radio refused scan", zap.Error(err))
		c.fail(false)
		return false
	}
	logging.Debug("Scan started")
	return true
}

// scanDone runs in the driver's context and only forwards the result.
func (c *Cache) scanDone(status radio.ScanStatus, results radio.ScanResults) {
	if c.dispatch.Post(func() { c.OnScanComplete(status, results) }) {
		return
	}
	// The flag has to clear or no scan would ever start again.
	logging.Warn("Event loop rejected scan completion, applying directly")
	c.OnScanComplete(status, results)
}

// OnScanComplete records the outcome of a scan. On failure the previous list
// stays authoritative.
func (c *Cache) OnScanComplete(status radio.ScanStatus, results radio.ScanResults) {
	if status != radio.ScanOK || results == nil {
		logging.Warn("Scan failed, keeping previous results", zap.Stringer("status", status))
		c.fail(true)
		return
	}

	aps, overrun := copyResults(results)
	if overrun {
		logging.Warn("Driver returned more scan records than it reported, list truncated",
			zap.Int("reported", results.Count()),
		)
	}

	c.mu.Lock()
	c.aps = aps
	c.stats.Completed++
	if overrun {
		c.stats.Anomalies++
	}
	c.inProgress = false
	c.publishLocked()
	c.mu.Unlock()

	logging.Info("Scan complete", zap.Int("access_points", len(aps)))
}

// fail clears the running flag. A refused start never became visible to
// subscribers, so publish is false there and nothing is sent.
func (c *Cache) fail(publish bool) {
	c.mu.Lock()
	c.stats.Failed++
	c.inProgress = false
	if publish {
		c.publishLocked()
	}
	c.mu.Unlock()
}

// copyResults walks the driver list once, never keeping more records than
// the driver reported.
func copyResults(results radio.ScanResults) ([]AccessPoint, bool) {
	n := results.Count()
	if n < 0 {
		n = 0
	}
	aps := make([]AccessPoint, 0, n)
	for {
		bss, ok := results.Next()
		if !ok {
			return aps, false
		}
		if len(aps) >= n {
			logging.LogRawBytes("Unreported scan record", bss.SSID)
			return aps, true
		}
		aps = append(aps, AccessPoint{
			SSID: trimSSID(bss.SSID),
			RSSI: bss.RSSI,
			Enc:  bss.AuthMode,
		})
	}
}

// trimSSID converts the raw fixed-size field: cut at the first NUL, at most
// MaxSSIDLen bytes. The cut is by byte and may split a multibyte character.
func trimSSID(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if len(raw) > radio.MaxSSIDLen {
		raw = raw[:radio.MaxSSIDLen]
	}
	return string(raw)
}

// Snapshot returns the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cache) snapshotLocked() Snapshot {
	return Snapshot{InProgress: c.inProgress, AccessPoints: c.aps}
}

// Stats returns the scan counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Subscribe returns a channel that receives the snapshot after every scan
// completion, failed or not. Only the latest undelivered snapshot is kept.
// Call cancel to stop receiving; it closes the channel.
func (c *Cache) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, 1)
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (c *Cache) publishLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Replace the stale snapshot the subscriber has not read yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
