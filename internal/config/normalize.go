// internal/config/normalize.go
package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultLogLevel  = "info"
	DefaultTimeoutMs = 1000
	DefaultBaudRate  = 9600
	DefaultDataBits  = 8
	DefaultParity    = "N"
	DefaultStopBits  = 1
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Binder.Log.Level = strings.ToLower(cfg.Binder.Log.Level)
	if cfg.Binder.Log.Level == "" {
		cfg.Binder.Log.Level = DefaultLogLevel
	}

	for di := range cfg.Binder.Devices {
		d := &cfg.Binder.Devices[di]

		d.ReadFunction = strings.ToLower(d.ReadFunction)
		if d.ReadFunction == "" {
			d.ReadFunction = ReadFunctionInput
		}

		if d.Source.TimeoutMs == 0 {
			d.Source.TimeoutMs = DefaultTimeoutMs
		}

		if s := d.Source.Serial; s != nil {
			if s.BaudRate == 0 {
				s.BaudRate = DefaultBaudRate
			}
			if s.DataBits == 0 {
				s.DataBits = DefaultDataBits
			}
			s.Parity = strings.ToUpper(s.Parity)
			if s.Parity == "" {
				s.Parity = DefaultParity
			}
			if s.StopBits == 0 {
				s.StopBits = DefaultStopBits
			}
		}
	}
}
