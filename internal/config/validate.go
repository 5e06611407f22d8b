// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-binder/internal/datapoint"
)

// maxGap is the largest filler a register write request can carry besides one bound register.
const maxGap = 122

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Binding lines are checked by the binding parser when a device is configured.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	if lvl := cfg.Binder.Log.Level; lvl != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(lvl)); err != nil {
			return fmt.Errorf("log.level %q: %w", lvl, err)
		}
	}

	if len(cfg.Binder.Devices) == 0 {
		return errors.New("no devices defined")
	}

	seen := make(map[string]struct{})

	for _, d := range cfg.Binder.Devices {
		if d.ID == "" {
			return errors.New("device: id required")
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("device %q: id declared twice", d.ID)
		}
		seen[d.ID] = struct{}{}

		if err := validateSource(d.Source); err != nil {
			return fmt.Errorf("device %q: %w", d.ID, err)
		}

		if d.Poll.IntervalMs <= 0 {
			return fmt.Errorf("device %q: poll.interval_ms must be > 0", d.ID)
		}

		switch strings.ToLower(d.ReadFunction) {
		case "", ReadFunctionInput, ReadFunctionHolding:
		default:
			return fmt.Errorf("device %q: read_function must be %s or %s, got %q",
				d.ID, ReadFunctionInput, ReadFunctionHolding, d.ReadFunction)
		}

		if d.MaxGap < 0 || d.MaxGap > maxGap {
			return fmt.Errorf("device %q: max_gap must be in 0..%d", d.ID, maxGap)
		}

		if err := validatePoints(d.Points); err != nil {
			return fmt.Errorf("device %q: %w", d.ID, err)
		}

		if len(d.Bindings) == 0 {
			return fmt.Errorf("device %q: at least one binding required", d.ID)
		}
		for i, b := range d.Bindings {
			if strings.TrimSpace(b) == "" {
				return fmt.Errorf("device %q: binding %d is empty", d.ID, i)
			}
		}
	}

	return nil
}

func validateSource(s SourceConfig) error {
	if (s.Endpoint == "") == (s.Serial == nil) {
		return errors.New("source: exactly one of endpoint and serial required")
	}
	if s.TimeoutMs < 0 {
		return errors.New("source: timeout_ms must be >= 0")
	}
	if s.Serial == nil {
		return nil
	}

	if s.Serial.Device == "" {
		return errors.New("source.serial: device required")
	}
	switch strings.ToUpper(s.Serial.Parity) {
	case "", "N", "E", "O":
	default:
		return fmt.Errorf("source.serial: parity must be N, E or O, got %q", s.Serial.Parity)
	}
	if s.Serial.BaudRate < 0 || s.Serial.DataBits < 0 || s.Serial.StopBits < 0 {
		return errors.New("source.serial: negative line setting")
	}
	return nil
}

func validatePoints(points []PointConfig) error {
	if len(points) == 0 {
		return errors.New("at least one data point required")
	}

	ids := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p.ID == "" {
			return errors.New("point: id required")
		}
		if strings.Contains(p.ID, ":") {
			return fmt.Errorf("point %q: id must not contain ':'", p.ID)
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("point %q: declared twice", p.ID)
		}
		ids[p.ID] = struct{}{}

		if _, ok := datapoint.ParseType(p.Type); !ok {
			return fmt.Errorf("point %q: unknown type %q", p.ID, p.Type)
		}
	}
	return nil
}
