// internal/device/build.go
package device

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modbus-binder/internal/config"
	"github.com/tamzrod/modbus-binder/internal/datapoint"
	"github.com/tamzrod/modbus-binder/internal/metrics"
	"github.com/tamzrod/modbus-binder/internal/modbus"
	"github.com/tamzrod/modbus-binder/internal/task"
)

// Build constructs a configured Device with its own in-memory data-point store.
// The Modbus link is opened lazily by the first request, so an unreachable
// device still starts and reports itself in error.
// Assumes config has already passed Validate and Normalize.
func Build(dc cfg.DeviceConfig, log zerolog.Logger, m *metrics.Metrics) (*Device, *datapoint.MemoryStore, error) {
	store, err := NewStore(dc.Points)
	if err != nil {
		return nil, nil, fmt.Errorf("device %q: %w", dc.ID, err)
	}

	mc := modbus.Config{
		Endpoint: dc.Source.Endpoint,
		UnitID:   dc.Source.UnitID,
		Timeout:  time.Duration(dc.Source.TimeoutMs) * time.Millisecond,
	}
	if s := dc.Source.Serial; s != nil {
		mc.Serial = &modbus.SerialConfig{
			Device:   s.Device,
			BaudRate: s.BaudRate,
			DataBits: s.DataBits,
			Parity:   s.Parity,
			StopBits: s.StopBits,
		}
	}

	client, err := modbus.New(mc, log.With().Str("device", dc.ID).Logger())
	if err != nil {
		return nil, nil, fmt.Errorf("device %q: %w", dc.ID, err)
	}

	d := New(dc.ID, store, client, Options{
		Interval: time.Duration(dc.Poll.IntervalMs) * time.Millisecond,
		Task:     TaskOptions(dc),
		Logger:   log,
		Metrics:  m,
	})

	if err := d.Configure(dc.Bindings); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("device %q: %w", dc.ID, err)
	}
	return d, store, nil
}

// NewStore declares the configured data points.
func NewStore(points []cfg.PointConfig) (*datapoint.MemoryStore, error) {
	out := make([]datapoint.Point, 0, len(points))
	for _, p := range points {
		t, ok := datapoint.ParseType(p.Type)
		if !ok {
			return nil, fmt.Errorf("point %q: unknown type %q", p.ID, p.Type)
		}
		out = append(out, datapoint.Point{ID: p.ID, Type: t, Writable: p.Writable})
	}
	return datapoint.NewMemoryStore(out)
}

// TaskOptions maps the device config onto assembler options.
func TaskOptions(dc cfg.DeviceConfig) task.Options {
	opts := task.Options{ReadFunction: task.ReadInputRegisters, MaxGap: dc.MaxGap}
	if dc.ReadFunction == cfg.ReadFunctionHolding {
		opts.ReadFunction = task.ReadHoldingRegisters
	}
	return opts
}
