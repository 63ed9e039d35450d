// Package eventloop runs closures one at a time on a single goroutine.
//
// Every request handler step and every driver completion in the service is
// delivered to the loop as a message, so the state they touch is only ever
// modified from one goroutine and in arrival order.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/logging"
)

// DefaultDepth is the inbox size used when New is given zero.
const DefaultDepth = 64

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("eventloop: stopped")

// Loop is a single-consumer inbox of closures.
type Loop struct {
	inbox   chan func()
	stopped chan struct{}
	once    sync.Once
}

// New creates a loop with an inbox of the given depth.
func New(depth int) *Loop {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Loop{
		inbox:   make(chan func(), depth),
		stopped: make(chan struct{}),
	}
}

// Run processes messages until ctx is cancelled. A panicking message is
// logged and does not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.stopped) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.inbox:
			l.step(fn)
		}
	}
}

func (l *Loop) step(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Event loop step panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}

// Post queues fn without blocking. It reports false when the inbox is full
// or the loop has stopped; the message is dropped in that case.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}

	select {
	case l.inbox <- fn:
		return true
	default:
		return false
	}
}

// Do queues fn and waits until the loop has run it.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("eventloop: queueing message: %w", ctx.Err())
	case l.inbox <- wrapped:
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("eventloop: waiting for message: %w", ctx.Err())
	}
}

// Stopped is closed once Run has returned.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
