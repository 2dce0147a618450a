package watch

import (
	"context"
	"fmt"
	"time"
)

// RunTimer calls reload, then waits interval, until ctx is done. The first
// call happens immediately. It returns nil once ctx is done.
func RunTimer(ctx context.Context, interval time.Duration, reload func() error) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	t := time.NewTimer(interval)
	defer t.Stop()

	for {
		// Failures are logged by the proxy.
		_ = reload()

		t.Reset(interval)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
