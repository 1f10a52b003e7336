// internal/channel/retry.go
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy controls how setup-phase commands are re-issued: a fixed
// attempt count with a fixed inter-attempt delay. This is the only retry
// policy in the system; per-item calls treat a single failure as that item's
// failure instead.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns the standard setup policy: 3 attempts, 2s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}
}

// Execute runs fn up to MaxAttempts times, sleeping Delay between attempts.
// Returns nil on the first success or the last error once attempts are
// exhausted. Context cancellation cuts the wait short.
func (p RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < p.MaxAttempts {
			slog.Debug("retrying after failure", "attempt", attempt, "error", err)
			timer := time.NewTimer(p.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// EnsureReady issues a command through the retry policy, surfacing a
// descriptive error naming the command and the likely external cause only
// after every attempt has failed.
func EnsureReady(ctx context.Context, s *Session, command string, params any, p RetryPolicy) (json.RawMessage, error) {
	var result json.RawMessage
	err := p.Execute(ctx, func() error {
		res, err := s.SendCommand(ctx, command, params)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("command %q failed after %d attempts: %w (is the canvas plugin open and joined to channel %q?)",
			command, p.MaxAttempts, err, s.Channel())
	}
	return result, nil
}
