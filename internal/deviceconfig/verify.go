package deviceconfig

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// VerificationOptions configures how settings verification behaves
type VerificationOptions struct {
	// MaxRetries is the maximum number of verification attempts
	// Default: 3
	MaxRetries int

	// InitialDelay is the delay before the first verification attempt.
	// A restart is deferred on the device, so this should exceed the
	// server's restart delay.
	// Default: 750ms
	InitialDelay time.Duration

	// RetryDelay is the delay between retry attempts
	// Default: 1s
	RetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	// Default: true
	UseExponentialBackoff bool

	// MaxRetryDelay is the maximum delay between retries when using exponential backoff
	// Default: 5s
	MaxRetryDelay time.Duration

	// OnStage, when set, is called as ApplyAndVerify moves through its
	// stages and on every read-back attempt.
	OnStage func(StageEvent)
}

// Stage is a phase of ApplyAndVerify, numbered from 1 in the order run.
type Stage int

const (
	StageValidate Stage = iota + 1
	StageReadCurrent
	StageApply
	StageVerify
)

// StageNames are display names indexed by Stage-1.
var StageNames = []string{
	"Validate settings",
	"Read current settings",
	"Send change request",
	"Read back and compare",
}

func (s Stage) String() string {
	if s < StageValidate || int(s) > len(StageNames) {
		return fmt.Sprintf("stage %d", int(s))
	}
	return StageNames[s-1]
}

// StageEvent reports progress. Done is false when a stage starts or, for
// StageVerify, when another attempt begins. Err is set when a stage failed.
type StageEvent struct {
	Stage   Stage
	Done    bool
	Err     error
	Attempt int // read-back attempt, StageVerify only
	Of      int // read-back attempts allowed
}

func (o *VerificationOptions) emit(ev StageEvent) {
	if o.OnStage != nil {
		o.OnStage(ev)
	}
}

// DefaultVerificationOptions returns sensible defaults for verification
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:            3,
		InitialDelay:          750 * time.Millisecond,
		RetryDelay:            1 * time.Second,
		UseExponentialBackoff: true,
		MaxRetryDelay:         5 * time.Second,
	}
}

// VerificationResult contains the results of a settings verification
type VerificationResult struct {
	// Success indicates whether verification succeeded
	Success bool

	// Attempts is the number of read-backs made
	Attempts int

	// Before is the device state read before the change was sent
	Before *Status

	// After is the last device state read back
	After *Status

	// Expected holds the field values the change should produce
	Expected map[string]string

	// Mismatches lists the fields that did not reach their expected value
	Mismatches []string

	// Error is any error that occurred during verification
	Error error
}

// ApplyAndVerify validates s, reads the current state, applies s, and reads
// the fields back until they show the change or the attempts run out.
func (c *Client) ApplyAndVerify(ctx context.Context, s *Settings, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}

	result := &VerificationResult{}

	opts.emit(StageEvent{Stage: StageValidate})
	if _, errs := SeparateWarningsAndErrors(ValidateSettings(s)); len(errs) > 0 {
		result.Error = errs[0]
		opts.emit(StageEvent{Stage: StageValidate, Done: true, Err: result.Error})
		return result
	}
	opts.emit(StageEvent{Stage: StageValidate, Done: true})

	opts.emit(StageEvent{Stage: StageReadCurrent})
	before, err := c.readStatus(ctx)
	if err != nil {
		result.Error = fmt.Errorf("failed to read current settings: %w", err)
		opts.emit(StageEvent{Stage: StageReadCurrent, Done: true, Err: result.Error})
		return result
	}
	result.Before = before
	result.Expected = s.Expected(before)
	opts.emit(StageEvent{Stage: StageReadCurrent, Done: true})

	opts.emit(StageEvent{Stage: StageApply})
	if err := c.ApplySettings(ctx, s); err != nil {
		result.Error = fmt.Errorf("apply failed: %w", err)
		opts.emit(StageEvent{Stage: StageApply, Done: true, Err: result.Error})
		return result
	}
	opts.emit(StageEvent{Stage: StageApply, Done: true})

	c.verify(ctx, result, opts)
	return result
}

// VerifySettings polls the device until it reports expected.
func (c *Client) VerifySettings(ctx context.Context, expected map[string]string, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}
	result := &VerificationResult{Expected: expected}
	c.verify(ctx, result, opts)
	return result
}

func (c *Client) verify(ctx context.Context, result *VerificationResult, opts *VerificationOptions) {
	defer func() {
		opts.emit(StageEvent{Stage: StageVerify, Done: true, Err: result.Error, Attempt: result.Attempts, Of: opts.MaxRetries + 1})
	}()

	opts.emit(StageEvent{Stage: StageVerify, Of: opts.MaxRetries + 1})
	if !sleepCtx(ctx, opts.InitialDelay) {
		result.Error = ctx.Err()
		return
	}

	currentDelay := opts.RetryDelay

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result.Attempts++
		opts.emit(StageEvent{Stage: StageVerify, Attempt: result.Attempts, Of: opts.MaxRetries + 1})

		if attempt > 0 {
			if !sleepCtx(ctx, currentDelay) {
				result.Error = ctx.Err()
				return
			}
			if opts.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > opts.MaxRetryDelay {
					currentDelay = opts.MaxRetryDelay
				}
			}
		}

		// The device may be restarting; keep polling through errors.
		after, err := c.readStatus(ctx)
		if err != nil {
			result.Error = fmt.Errorf("attempt %d: failed to read settings: %w", attempt+1, err)
			continue
		}
		result.After = after

		result.Mismatches = Mismatches(result.Expected, after.Raw)
		if len(result.Mismatches) == 0 {
			result.Success = true
			result.Error = nil
			return
		}

		result.Error = fmt.Errorf("verification failed after %d attempts: %s",
			result.Attempts, formatMismatches(result.Mismatches, result.Expected, after.Raw))
	}
}

func (c *Client) readStatus(ctx context.Context) (*Status, error) {
	fields, err := c.RefreshFields(ctx)
	if err != nil {
		return nil, err
	}
	return ParseStatus(fields)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// formatMismatches creates a human-readable summary of mismatches
func formatMismatches(tokens []string, expected, reported map[string]string) string {
	if len(tokens) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(tokens))
	for _, k := range tokens {
		want, got := expected[k], reported[k]
		if k == "clientPasswd" {
			want, got = MaskSecret(want), MaskSecret(got)
		}
		parts = append(parts, fmt.Sprintf("%s: expected %q, got %q", k, want, got))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return fmt.Sprintf("%d mismatches: %s", len(parts), strings.Join(parts, "; "))
}
