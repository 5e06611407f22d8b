// internal/device/runner.go
package device

import (
	"context"
	"time"
)

// Run starts the ticker loop and runs one cycle per tick until ctx is done.
// One goroutine per device. No overlap. No retries.
func (d *Device) Run(ctx context.Context) {
	interval := d.opts.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// errors are already logged per stage
			_ = d.Cycle()
		}
	}
}
