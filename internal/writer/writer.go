// internal/writer/writer.go
package writer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tamzrod/modbus-binder/internal/element"
	"github.com/tamzrod/modbus-binder/internal/task"
)

// Client is the exact contract the writer uses.
type Client interface {
	WriteSingleCoil(addr uint16, v bool) error               // FC 5
	WriteSingleRegister(addr, v uint16) error                // FC 6
	WriteMultipleCoils(addr uint16, bits []bool) error       // FC 15
	WriteMultipleRegisters(addr uint16, regs []uint16) error // FC 16
}

// Writer sends staged write values.
//
// Only maximal runs of adjacent pending elements go on the wire. Filler and
// non-pending elements end a run, so a value is never re-sent unless it was
// staged again.
type Writer struct {
	client Client
	tasks  []task.Task
}

// New keeps the write tasks of tasks. Read tasks are ignored.
func New(tasks []task.Task, client Client) (*Writer, error) {
	if client == nil {
		return nil, errors.New("writer: client required")
	}

	w := &Writer{client: client}
	for _, t := range tasks {
		if !t.Read() {
			w.tasks = append(w.tasks, t)
		}
	}
	return w, nil
}

// Flush sends every pending run and returns the number of requests issued.
// A failed request drops its values; the remaining runs are still sent.
func (w *Writer) Flush() (int, error) {
	var (
		sent int
		errs []error
	)

	for _, t := range w.tasks {
		var run []task.Element

		for _, e := range t.Elements {
			if !e.Filler() && e.Slot.Pending() {
				run = append(run, e)
				continue
			}
			if len(run) > 0 {
				sent++
				if err := w.send(t, run); err != nil {
					errs = append(errs, err)
				}
				run = nil
			}
		}
		if len(run) > 0 {
			sent++
			if err := w.send(t, run); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return sent, errors.Join(errs...)
}

func (w *Writer) send(t task.Task, run []task.Element) error {
	addr := run[0].Address
	fail := func(qty int, err error) error {
		return fmt.Errorf("writer: fc=%d addr=%d qty=%d: %w", t.FunctionCode, addr, qty, err)
	}

	if t.Coil() {
		bits := make([]bool, len(run))
		for i, e := range run {
			v, _ := e.Slot.TakePending()
			bits[i] = v.Bool
		}

		var err error
		if t.FunctionCode == task.WriteSingleCoil {
			err = w.client.WriteSingleCoil(addr, bits[0])
		} else {
			err = w.client.WriteMultipleCoils(addr, bits)
		}
		if err != nil {
			return fail(len(bits), err)
		}
		return nil
	}

	var raw []byte
	for _, e := range run {
		v, _ := e.Slot.TakePending()
		b, err := element.Encode(e.Slot.Type, e.Slot.Order, e.Slot.Length, v)
		if err != nil {
			return fail(len(raw)/2, fmt.Errorf("%s: %w", e.Binding.PointID, err))
		}
		raw = append(raw, b...)
	}
	regs := make([]uint16, len(raw)/2)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(raw[2*i:])
	}

	var err error
	if t.FunctionCode == task.WriteSingleRegister {
		err = w.client.WriteSingleRegister(addr, regs[0])
	} else {
		err = w.client.WriteMultipleRegisters(addr, regs)
	}
	if err != nil {
		return fail(len(regs), err)
	}
	return nil
}
