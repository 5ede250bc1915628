package gitrepo

import (
	"log/slog"
	"time"

	"github.com/mobskuchen/gdep/internal/logfields"
	"github.com/mobskuchen/gdep/internal/retry"
)

// withRetry runs fn under policy, sleeping policy.Delay(attempt) between
// transient failures, mirroring the teacher's own retry.go:withRetry. op and
// url are used only for logging.
func withRetry(op, url string, policy retry.Policy, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxRetries {
			break
		}
		delay := policy.Delay(attempt + 1)
		slog.Warn("git operation failed, retrying",
			slog.String("operation", op), logfields.URL(url), slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()), slog.Duration("delay", delay))
		time.Sleep(delay)
	}
	return lastErr
}
