// internal/poller/poller.go
package poller

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/modbus-binder/internal/binding"
	"github.com/tamzrod/modbus-binder/internal/element"
	"github.com/tamzrod/modbus-binder/internal/task"
)

// Client abstracts Modbus operations needed by the poller.
type Client interface {
	ReadCoils(addr, qty uint16) ([]bool, error)              // FC 1
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(addr, qty uint16) ([]uint16, error)   // FC 4
}

// Poller executes read tasks and publishes decoded values into their slots.
// High tasks run every cycle; Low tasks take turns, one per cycle.
type Poller struct {
	client Client
	high   []task.Task
	low    []task.Task
	next   int
}

// New keeps the read tasks of tasks. Write tasks are ignored.
func New(tasks []task.Task, client Client) (*Poller, error) {
	if client == nil {
		return nil, errors.New("poller: client required")
	}

	p := &Poller{client: client}
	for _, t := range tasks {
		if !t.Read() {
			continue
		}
		if t.Priority == binding.High {
			p.high = append(p.high, t)
		} else {
			p.low = append(p.low, t)
		}
	}
	return p, nil
}

// PollOnce performs exactly one poll cycle.
// Any failure aborts the cycle; slots of tasks that already completed keep
// their fresh values, all others keep their last one.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{At: time.Now()}

	for _, t := range p.due() {
		if err := p.read(t); err != nil {
			res.Err = fmt.Errorf("poller: fc=%d addr=%d qty=%d: %w", t.FunctionCode, t.Address, t.Quantity(), err)
			return res
		}
		res.Tasks++
	}

	return res
}

// due lists this cycle's tasks and advances the Low rotation.
func (p *Poller) due() []task.Task {
	out := make([]task.Task, 0, len(p.high)+1)
	out = append(out, p.high...)
	if len(p.low) > 0 {
		out = append(out, p.low[p.next])
		p.next = (p.next + 1) % len(p.low)
	}
	return out
}

func (p *Poller) read(t task.Task) error {
	qty := t.Quantity()

	switch t.FunctionCode {
	case task.ReadCoils:
		bits, err := p.client.ReadCoils(t.Address, qty)
		if err != nil {
			return err
		}
		if len(bits) < int(qty) {
			return fmt.Errorf("short response: %d of %d coils", len(bits), qty)
		}
		for _, e := range t.Elements {
			if !e.Filler() {
				e.Slot.Publish(element.Value{Bool: bits[e.Address-t.Address]})
			}
		}
		return nil

	case task.ReadHoldingRegisters, task.ReadInputRegisters:
		var (
			regs []uint16
			err  error
		)
		if t.FunctionCode == task.ReadHoldingRegisters {
			regs, err = p.client.ReadHoldingRegisters(t.Address, qty)
		} else {
			regs, err = p.client.ReadInputRegisters(t.Address, qty)
		}
		if err != nil {
			return err
		}
		if len(regs) < int(qty) {
			return fmt.Errorf("short response: %d of %d registers", len(regs), qty)
		}

		off := 0
		for _, e := range t.Elements {
			if !e.Filler() {
				if err := e.Slot.PublishBytes(registerBytes(regs[off : off+e.Width])); err != nil {
					return fmt.Errorf("%s at %d: %w", e.Binding.PointID, e.Address, err)
				}
			}
			off += e.Width
		}
		return nil
	}

	return errors.New("unsupported function code")
}

func registerBytes(regs []uint16) []byte {
	out := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[2*i:], r)
	}
	return out
}
