// internal/device/device.go
package device

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-binder/internal/binding"
	"github.com/tamzrod/modbus-binder/internal/datapoint"
	"github.com/tamzrod/modbus-binder/internal/marshal"
	"github.com/tamzrod/modbus-binder/internal/metrics"
	"github.com/tamzrod/modbus-binder/internal/poller"
	"github.com/tamzrod/modbus-binder/internal/status"
	"github.com/tamzrod/modbus-binder/internal/task"
	"github.com/tamzrod/modbus-binder/internal/writer"
)

// ErrNotConfigured is returned by Cycle before a successful Configure or after Close.
var ErrNotConfigured = errors.New("device: not configured")

// Transport is the Modbus link a device drives.
type Transport interface {
	poller.Client
	writer.Client
	Close() error
}

// Options tune a device.
type Options struct {
	Interval time.Duration
	Task     task.Options
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
}

// generation is one immutable configuration: bindings, tasks and the
// engines built over them. It is replaced as a whole, never edited.
type generation struct {
	id       string
	bindings []binding.Binding
	plan     *task.Plan
	engine   *marshal.Engine
	poller   *poller.Poller
	writer   *writer.Writer
	log      zerolog.Logger
}

// Device owns the bindings of one Modbus slave and runs its execution cycle.
type Device struct {
	id        string
	store     datapoint.Store
	transport Transport
	opts      Options
	log       zerolog.Logger
	tracker   *status.Tracker
	now       func() time.Time

	mu   sync.Mutex // serializes cycles and generation swaps
	live atomic.Pointer[generation]
}

// New returns an unconfigured device.
func New(id string, store datapoint.Store, transport Transport, opts Options) *Device {
	staleAfter := 3 * opts.Interval
	return &Device{
		id:        id,
		store:     store,
		transport: transport,
		opts:      opts,
		log:       opts.Logger.With().Str("device", id).Logger(),
		tracker:   status.NewTracker(staleAfter),
		now:       time.Now,
	}
}

// ID returns the device id.
func (d *Device) ID() string { return d.id }

// Configure parses and assembles lines and swaps them in as the live generation.
// It is all-or-nothing: on error the previous generation, if any, stays live.
func (d *Device) Configure(lines []string) error {
	gen, err := d.build(lines)
	d.opts.Metrics.Reconfigured(d.id, err)
	if err != nil {
		d.log.Error().Err(err).Msg("configuration rejected")
		return err
	}

	d.mu.Lock()
	d.live.Store(gen)
	d.mu.Unlock()

	gen.log.Info().
		Int("bindings", len(gen.bindings)).
		Int("tasks", len(gen.plan.Tasks)).
		Msg("configured")
	return nil
}

func (d *Device) build(lines []string) (*generation, error) {
	bs, err := binding.Parse(lines, d.store)
	if err != nil {
		return nil, err
	}

	plan, err := task.Assemble(bs, d.opts.Task)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := d.log.With().Str("generation", id).Logger()

	links := make([]marshal.Link, len(bs))
	for i := range bs {
		links[i] = marshal.Link{Binding: &bs[i], Slot: plan.Slots[i]}
	}

	p, err := poller.New(plan.Tasks, d.transport)
	if err != nil {
		return nil, err
	}
	w, err := writer.New(plan.Tasks, d.transport)
	if err != nil {
		return nil, err
	}

	return &generation{
		id:       id,
		bindings: bs,
		plan:     plan,
		engine:   marshal.New(d.store, links, log),
		poller:   p,
		writer:   w,
		log:      log,
	}, nil
}

// Generation returns the id of the live configuration, empty when unconfigured.
func (d *Device) Generation() string {
	if g := d.live.Load(); g != nil {
		return g.id
	}
	return ""
}

// Bindings returns the live bindings.
func (d *Device) Bindings() []binding.Binding {
	if g := d.live.Load(); g != nil {
		return g.bindings
	}
	return nil
}

// Cycle runs one execution cycle: poll, marshal reads, marshal writes, flush.
// Transport and marshal errors are logged, counted and returned joined; they
// never stop the cycle part way.
func (d *Device) Cycle() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	gen := d.live.Load()
	if gen == nil {
		return ErrNotConfigured
	}

	res := gen.poller.PollOnce()
	if res.Err != nil {
		gen.log.Warn().Err(res.Err).Msg("poll failed")
	}

	readErr := gen.engine.ApplyRead()
	writeErr := gen.engine.ApplyWrite()
	d.opts.Metrics.MarshalErrors(d.id, marshal.Read.String(), countErrors(readErr))
	d.opts.Metrics.MarshalErrors(d.id, marshal.Write.String(), countErrors(writeErr))

	sent, flushErr := gen.writer.Flush()
	d.opts.Metrics.WriteRequests(d.id, sent)
	if flushErr != nil {
		gen.log.Warn().Err(flushErr).Msg("write failed")
	}

	transportErr := errors.Join(res.Err, flushErr)
	now := d.now()
	if d.tracker.Observe(transportErr, now) {
		s := d.tracker.Snapshot(now)
		gen.log.Info().
			Str("health", status.HealthName(s.Health)).
			Uint16("error_code", s.LastErrorCode).
			Msg("health changed")
	}
	d.opts.Metrics.Cycle(d.id, transportErr)
	d.opts.Metrics.Health(d.id, d.tracker.Snapshot(now))
	d.publishPoints(gen)

	return errors.Join(transportErr, readErr, writeErr)
}

func (d *Device) publishPoints(gen *generation) {
	if d.opts.Metrics == nil {
		return
	}
	for _, b := range gen.bindings {
		if v, ok := d.store.Current(b.Point); ok {
			d.opts.Metrics.Point(d.id, b.PointID, v)
		}
	}
}

func countErrors(err error) int {
	var errs marshal.Errors
	if errors.As(err, &errs) {
		return len(errs)
	}
	return 0
}

// Status returns the current health snapshot.
func (d *Device) Status() status.Snapshot {
	return d.tracker.Snapshot(d.now())
}

// DebugLog renders every data point that holds a value, in declaration order.
func (d *Device) DebugLog() string {
	if d.live.Load() == nil {
		return d.id + ": not configured"
	}

	var sb strings.Builder
	sb.WriteString(d.id)
	sb.WriteString(":")

	for _, p := range d.store.Points() {
		h, ok := d.store.Resolve(p.ID)
		if !ok {
			continue
		}
		if v, ok := d.store.Current(h); ok {
			fmt.Fprintf(&sb, " %s=%s", p.ID, v)
		}
	}
	return sb.String()
}

// Close drops the live generation and closes the transport.
func (d *Device) Close() error {
	d.mu.Lock()
	d.live.Store(nil)
	d.mu.Unlock()

	d.tracker.Disable()
	d.opts.Metrics.Health(d.id, d.tracker.Snapshot(d.now()))
	d.opts.Metrics.Forget(d.id)
	d.log.Info().Msg("closed")

	return d.transport.Close()
}
