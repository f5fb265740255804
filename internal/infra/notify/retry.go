package notify

import (
	"context"
	"time"
)

// retry runs fn up to attempts times, pausing between tries. It stops early
// when fn succeeds or the context is cancelled, and returns the last error.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
