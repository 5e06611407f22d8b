// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/modbus-binder/internal/datapoint"
	"github.com/tamzrod/modbus-binder/internal/status"
)

// Metrics holds the binder collectors. A nil *Metrics records nothing.
type Metrics struct {
	cycles         *prometheus.CounterVec
	marshalErrors  *prometheus.CounterVec
	writeRequests  *prometheus.CounterVec
	reconfigs      *prometheus.CounterVec
	health         *prometheus.GaugeVec
	secondsInError *prometheus.GaugeVec
	points         *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binder_cycles_total",
			Help: "Execution cycles per device and result.",
		}, []string{"device", "result"}),
		marshalErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binder_marshal_errors_total",
			Help: "Bindings dropped by the marshaling engine.",
		}, []string{"device", "direction"}),
		writeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binder_write_requests_total",
			Help: "Modbus write requests issued.",
		}, []string{"device"}),
		reconfigs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binder_reconfigurations_total",
			Help: "Configuration attempts per device and result.",
		}, []string{"device", "result"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "binder_device_health",
			Help: "Device health code (0 unknown, 1 ok, 2 error, 3 stale, 4 disabled).",
		}, []string{"device"}),
		secondsInError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "binder_device_seconds_in_error",
			Help: "Seconds the device has been in error.",
		}, []string{"device"}),
		points: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "binder_point_value",
			Help: "Current value of numeric and boolean data points.",
		}, []string{"device", "point"}),
	}

	reg.MustRegister(
		m.cycles,
		m.marshalErrors,
		m.writeRequests,
		m.reconfigs,
		m.health,
		m.secondsInError,
		m.points,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Cycle counts one execution cycle.
func (m *Metrics) Cycle(device string, err error) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(device, result(err)).Inc()
}

// MarshalErrors counts n dropped bindings in one direction.
func (m *Metrics) MarshalErrors(device, direction string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.marshalErrors.WithLabelValues(device, direction).Add(float64(n))
}

// WriteRequests counts issued write requests.
func (m *Metrics) WriteRequests(device string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.writeRequests.WithLabelValues(device).Add(float64(n))
}

// Reconfigured counts one configuration attempt.
func (m *Metrics) Reconfigured(device string, err error) {
	if m == nil {
		return
	}
	m.reconfigs.WithLabelValues(device, result(err)).Inc()
}

// Health publishes a device health snapshot.
func (m *Metrics) Health(device string, s status.Snapshot) {
	if m == nil {
		return
	}
	m.health.WithLabelValues(device).Set(float64(s.Health))
	m.secondsInError.WithLabelValues(device).Set(float64(s.SecondsInError))
}

// Point publishes a data point value. String points are skipped.
func (m *Metrics) Point(device, point string, v datapoint.Value) {
	if m == nil {
		return
	}
	if v.Type() == datapoint.Bool {
		f := 0.0
		if v.Bool() {
			f = 1
		}
		m.points.WithLabelValues(device, point).Set(f)
		return
	}
	if f, ok := v.Number(); ok {
		m.points.WithLabelValues(device, point).Set(f)
	}
}

// Forget drops the point series of a device, used when its points change.
func (m *Metrics) Forget(device string) {
	if m == nil {
		return
	}
	m.points.DeletePartialMatch(prometheus.Labels{"device": device})
}
