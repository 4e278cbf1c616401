package vision

import (
	"context"
	"errors"
	"net"
	"time"
)

// RetryPolicy describes how a transient model-call failure is retried: a
// fixed maximum attempt count with a fixed delay between attempts. The delay
// is deliberately not exponential; the upstream service rate-limits per
// minute and a constant spacing drains the budget predictably.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	Delay       time.Duration `json:"delay"`
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Second}
}

// TransientError marks an error as retryable. The HTTP client wraps
// timeouts, rate limits and server errors in this type.
type TransientError struct {
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

// Unwrap exposes the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether an error is worth retrying: an explicit
// TransientError, a network timeout, or a context deadline from a single
// attempt (as opposed to cancellation of the whole document run).
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// WithRetry wraps a Caller so every Call retries transient failures
// according to the policy. Non-transient errors and context cancellation
// stop the attempts immediately.
func WithRetry(caller Caller, policy RetryPolicy) Caller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return CallerFunc(func(ctx context.Context, imagePNG []byte, prompt string) (string, error) {
		var lastErr error
		for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
			result, err := caller.Call(ctx, imagePNG, prompt)
			if err == nil {
				return result, nil
			}
			lastErr = err
			if !IsTransient(err) || ctx.Err() != nil {
				return "", err
			}
			if attempt == policy.MaxAttempts {
				break
			}
			select {
			case <-time.After(policy.Delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return "", lastErr
	})
}
