package settings

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/logging"
)

// DefaultRestartDelay gives the HTTP response time to reach the browser
// before the radio goes down.
const DefaultRestartDelay = 500 * time.Millisecond

// Restarter runs a restart function once after a delay. At most one restart
// is pending at any time.
type Restarter struct {
	delay   time.Duration
	restart func()

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64 // identifies the armed timer; stale firings are ignored
}

// NewRestarter creates a restarter. A non-positive delay uses DefaultRestartDelay.
func NewRestarter(delay time.Duration, restart func()) *Restarter {
	if delay <= 0 {
		delay = DefaultRestartDelay
	}
	return &Restarter{delay: delay, restart: restart}
}

// Schedule disarms any pending restart and arms a new one.
func (r *Restarter) Schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.timer = time.AfterFunc(r.delay, func() { r.fire(gen) })

	logging.Info("Radio restart scheduled", zap.Duration("delay", r.delay))
}

func (r *Restarter) fire(gen uint64) {
	r.mu.Lock()
	if gen != r.gen || r.timer == nil {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.mu.Unlock()

	logging.Info("Restarting radio")
	r.restart()
}

// Pending reports whether a restart is armed and has not fired yet.
func (r *Restarter) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// Stop cancels a pending restart. It reports whether one was pending.
func (r *Restarter) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer == nil {
		return false
	}
	r.timer.Stop()
	r.timer = nil
	r.gen++
	return true
}
