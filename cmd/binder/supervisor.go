// cmd/binder/supervisor.go
package main

import (
	"context"
	"reflect"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-binder/internal/config"
	"github.com/tamzrod/modbus-binder/internal/device"
	"github.com/tamzrod/modbus-binder/internal/metrics"
)

// running is one device loop.
type running struct {
	dev    *device.Device
	cfg    config.DeviceConfig
	cancel context.CancelFunc
	done   chan struct{}
}

// supervisor owns the device loops. It is used from the signal loop only.
type supervisor struct {
	ctx     context.Context
	log     zerolog.Logger
	metrics *metrics.Metrics
	devices map[string]*running
}

func newSupervisor(ctx context.Context, log zerolog.Logger, m *metrics.Metrics) *supervisor {
	return &supervisor{ctx: ctx, log: log, metrics: m, devices: make(map[string]*running)}
}

func (s *supervisor) start(dc config.DeviceConfig) error {
	d, _, err := device.Build(dc, s.log, s.metrics)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(s.ctx)
	r := &running{dev: d, cfg: dc, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		d.Run(ctx)
	}()

	s.devices[dc.ID] = r
	s.log.Info().Str("device", dc.ID).Msg("device started")
	return nil
}

func (s *supervisor) stop(id string) {
	r, ok := s.devices[id]
	if !ok {
		return
	}
	r.cancel()
	<-r.done
	if err := r.dev.Close(); err != nil {
		s.log.Warn().Err(err).Str("device", id).Msg("close failed")
	}
	delete(s.devices, id)
}

func (s *supervisor) stopAll() {
	for id := range s.devices {
		s.stop(id)
	}
}

// reload applies a new device list. A device whose only change is its binding
// lines is reconfigured in place; any other change rebuilds it. A device that
// fails to build or configure keeps running its previous configuration.
func (s *supervisor) reload(devices []config.DeviceConfig) {
	wanted := make(map[string]bool, len(devices))

	for _, dc := range devices {
		wanted[dc.ID] = true
		r, ok := s.devices[dc.ID]

		switch {
		case !ok:
			if err := s.start(dc); err != nil {
				s.log.Error().Err(err).Str("device", dc.ID).Msg("device not started")
			}

		case sameExceptBindings(r.cfg, dc):
			if reflect.DeepEqual(r.cfg.Bindings, dc.Bindings) {
				continue
			}
			if err := r.dev.Configure(dc.Bindings); err == nil {
				r.cfg = dc
			}

		default:
			// Build the replacement first so a bad config leaves the old one running.
			trial, _, err := device.Build(dc, zerolog.Nop(), nil)
			if err != nil {
				s.log.Error().Err(err).Str("device", dc.ID).Msg("device rebuild rejected")
				continue
			}
			_ = trial.Close()
			s.stop(dc.ID)
			if err := s.start(dc); err != nil {
				s.log.Error().Err(err).Str("device", dc.ID).Msg("device not restarted")
			}
		}
	}

	for id := range s.devices {
		if !wanted[id] {
			s.stop(id)
			s.log.Info().Str("device", id).Msg("device removed")
		}
	}
}

func (s *supervisor) debugLog() []string {
	ids := make([]string, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = s.devices[id].dev.DebugLog()
	}
	return out
}

func sameExceptBindings(a, b config.DeviceConfig) bool {
	a.Bindings, b.Bindings = nil, nil
	return reflect.DeepEqual(a, b)
}
