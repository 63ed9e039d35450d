package settings

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRestarter_FiresOnce(t *testing.T) {
	var n atomic.Int32
	done := make(chan struct{}, 4)
	r := NewRestarter(10*time.Millisecond, func() {
		n.Add(1)
		done <- struct{}{}
	})

	r.Schedule()
	r.Schedule()
	r.Schedule()
	if !r.Pending() {
		t.Fatal("Pending() = false after Schedule()")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("restart did not fire")
	}
	time.Sleep(30 * time.Millisecond)

	if got := n.Load(); got != 1 {
		t.Errorf("restart ran %d times, want 1", got)
	}
	if r.Pending() {
		t.Error("Pending() = true after firing")
	}
}

func TestRestarter_Stop(t *testing.T) {
	var n atomic.Int32
	r := NewRestarter(20*time.Millisecond, func() { n.Add(1) })

	if r.Stop() {
		t.Error("Stop() = true with nothing pending")
	}
	r.Schedule()
	if !r.Stop() {
		t.Error("Stop() = false with a pending restart")
	}
	time.Sleep(50 * time.Millisecond)
	if n.Load() != 0 {
		t.Error("restart ran after Stop()")
	}
}

func TestRestarter_DefaultDelay(t *testing.T) {
	r := NewRestarter(0, func() {})
	if r.delay != DefaultRestartDelay {
		t.Errorf("delay = %v, want %v", r.delay, DefaultRestartDelay)
	}
}
