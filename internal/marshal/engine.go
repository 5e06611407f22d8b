// internal/marshal/engine.go
package marshal

import (
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-binder/internal/binding"
	"github.com/tamzrod/modbus-binder/internal/datapoint"
	"github.com/tamzrod/modbus-binder/internal/element"
)

// Link pairs a binding with the staging slot the transport works on.
type Link struct {
	Binding *binding.Binding
	Slot    *element.Slot
}

// Engine moves values between the data-point store and the staging slots.
// It never schedules itself and performs no I/O; the owning device drives it
// once per cycle.
type Engine struct {
	store datapoint.Store
	links []Link
	log   zerolog.Logger
}

// New returns an engine over links. links is not copied and must not change afterwards.
func New(store datapoint.Store, links []Link, log zerolog.Logger) *Engine {
	return &Engine{store: store, links: links, log: log}
}

// Links returns the bindings the engine serves.
func (e *Engine) Links() []Link { return e.links }

// ApplyRead copies every freshly decoded read value into its data point.
// Failures are isolated per binding and returned as Errors.
func (e *Engine) ApplyRead() error {
	var errs Errors

	for _, l := range e.links {
		if !l.Binding.Operation.Read() {
			continue
		}
		v, ok := l.Slot.TakeDecoded()
		if !ok {
			continue
		}

		p := e.store.Point(l.Binding.Point)
		dv, err := FromElement(*l.Binding, p.Type, v)
		if err == nil {
			err = e.store.SetCurrent(l.Binding.Point, dv)
		}
		if err != nil {
			errs = append(errs, e.fail(l, Read, err))
		}
	}

	return errs.orNil()
}

// ApplyWrite stages every pending write value. A point without a pending value
// leaves its slot untouched, so nothing is re-sent.
func (e *Engine) ApplyWrite() error {
	var errs Errors

	for _, l := range e.links {
		if l.Binding.Operation.Read() {
			continue
		}
		v, ok := e.store.TakePendingWrite(l.Binding.Point)
		if !ok {
			continue
		}

		ev, err := ToElement(*l.Binding, v)
		if err != nil {
			errs = append(errs, e.fail(l, Write, err))
			continue
		}
		l.Slot.Stage(ev)
	}

	return errs.orNil()
}

func (e *Engine) fail(l Link, d Direction, err error) *DataError {
	de := &DataError{Point: l.Binding.PointID, Binding: *l.Binding, Direction: d, Err: err}
	e.log.Warn().
		Err(err).
		Str("point", l.Binding.PointID).
		Uint16("address", l.Binding.Address).
		Str("op", l.Binding.Operation.String()).
		Msg("marshal " + d.String() + " dropped")
	return de
}
