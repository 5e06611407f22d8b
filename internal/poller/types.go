// internal/poller/types.go
package poller

import "time"

// PollResult is the outcome of one poll cycle.
type PollResult struct {
	At time.Time

	// Tasks is the number of read tasks that completed.
	Tasks int

	Err error // non-nil means the poll cycle was cut short
}
