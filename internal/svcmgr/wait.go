package svcmgr

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// WaitForStatus polls m.Status until it reports want or ctx is done. Start
// and Stop are request-only; this is the confirmation step for callers
// that need one.
func WaitForStatus(ctx context.Context, clk clock.Clock, m Manager, want Status, interval time.Duration) error {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		status, err := m.Status()
		if err != nil {
			return err
		}
		if status == want {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not reach state %s (last seen %s): %w", want, status, ctx.Err())
		case <-ticker.C:
		}
	}
}
