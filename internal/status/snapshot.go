// internal/status/snapshot.go
package status

import (
	"sync"
	"time"
)

// Snapshot is the health of one device at a point in time.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
}

// Tracker folds cycle outcomes into a Snapshot.
// It is safe for concurrent use; the cycle loop observes while metrics and
// debug output read.
type Tracker struct {
	mu         sync.Mutex
	staleAfter time.Duration

	health     uint16
	lastCode   uint16
	errorSince time.Time
	lastCycle  time.Time
}

// NewTracker returns a tracker in the unknown state. A healthy device that has
// not completed a cycle within staleAfter reports HealthStale; zero disables that.
func NewTracker(staleAfter time.Duration) *Tracker {
	return &Tracker{staleAfter: staleAfter, health: HealthUnknown}
}

// Observe records the outcome of one cycle and reports whether the health or
// error code changed.
func (t *Tracker) Observe(err error, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastCycle = now
	prevHealth, prevCode := t.health, t.lastCode

	if err == nil {
		// Recovery resets the error code and duration.
		t.health = HealthOK
		t.lastCode = 0
		t.errorSince = time.Time{}
	} else {
		if t.health != HealthError {
			t.errorSince = now
		}
		t.health = HealthError
		t.lastCode = ErrorCode(err)
	}

	return t.health != prevHealth || t.lastCode != prevCode
}

// Disable marks the device as not running.
func (t *Tracker) Disable() {
	t.mu.Lock()
	t.health = HealthDisabled
	t.lastCode = 0
	t.errorSince = time.Time{}
	t.mu.Unlock()
}

// Snapshot returns the health as of now.
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{Health: t.health, LastErrorCode: t.lastCode}

	if t.health == HealthOK && t.staleAfter > 0 && now.Sub(t.lastCycle) > t.staleAfter {
		s.Health = HealthStale
	}

	if t.health == HealthError {
		secs := int64(now.Sub(t.errorSince) / time.Second)
		if secs > MaxSecondsInError {
			secs = MaxSecondsInError
		}
		if secs > 0 {
			s.SecondsInError = uint16(secs)
		}
	}

	return s
}
