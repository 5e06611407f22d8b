// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// HealthStale represents a device that has not completed a cycle for too long.
const HealthStale uint16 = 3

// HealthDisabled represents a device without a live configuration.
const HealthDisabled uint16 = 4

// MaxSecondsInError caps the error duration; it must not wrap.
const MaxSecondsInError = 65535

var healthNames = map[uint16]string{
	HealthUnknown:  "unknown",
	HealthOK:       "ok",
	HealthError:    "error",
	HealthStale:    "stale",
	HealthDisabled: "disabled",
}

// HealthName returns the log name of a health code.
func HealthName(h uint16) string {
	if n, ok := healthNames[h]; ok {
		return n
	}
	return "invalid"
}
