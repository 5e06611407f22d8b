// internal/task/task.go
package task

import (
	"github.com/tamzrod/modbus-binder/internal/binding"
	"github.com/tamzrod/modbus-binder/internal/element"
)

// FunctionCode is the Modbus function a task issues.
type FunctionCode uint8

const (
	ReadCoils              FunctionCode = 1
	ReadHoldingRegisters   FunctionCode = 3
	ReadInputRegisters     FunctionCode = 4
	WriteSingleCoil        FunctionCode = 5
	WriteSingleRegister    FunctionCode = 6
	WriteMultipleCoils     FunctionCode = 15
	WriteMultipleRegisters FunctionCode = 16
)

// Protocol limits on one request.
const (
	maxReadCoils      = 2000
	maxReadRegisters  = 125
	maxWriteCoils     = 1968
	maxWriteRegisters = 123
)

// Element is one entry of a task's element list.
// Filler elements pad a gap between bindings and carry no slot.
type Element struct {
	Address uint16
	Width   int // registers, or 1 for a coil
	Binding *binding.Binding
	Slot    *element.Slot
}

// Filler reports whether e only pads the address range.
func (e Element) Filler() bool { return e.Slot == nil }

// Task is one protocol operation over a contiguous address range.
// Tasks are immutable once assembled.
type Task struct {
	FunctionCode FunctionCode
	Address      uint16
	Priority     binding.Priority
	Elements     []Element
}

// Quantity is the number of registers or coils the task spans.
func (t Task) Quantity() uint16 {
	n := 0
	for _, e := range t.Elements {
		n += e.Width
	}
	return uint16(n)
}

// Read reports whether the task reads from the device.
func (t Task) Read() bool {
	switch t.FunctionCode {
	case ReadCoils, ReadHoldingRegisters, ReadInputRegisters:
		return true
	}
	return false
}

// Coil reports whether the task addresses coils.
func (t Task) Coil() bool {
	switch t.FunctionCode {
	case ReadCoils, WriteSingleCoil, WriteMultipleCoils:
		return true
	}
	return false
}
