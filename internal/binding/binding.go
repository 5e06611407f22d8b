// internal/binding/binding.go
package binding

import (
	"strconv"
	"strings"

	"github.com/tamzrod/modbus-binder/internal/datapoint"
	"github.com/tamzrod/modbus-binder/internal/element"
)

// Delimiter separates the fields of one configuration line.
const Delimiter = ":"

// Operation is the protocol operation a binding performs.
type Operation uint8

const (
	ReadCoil Operation = iota + 1
	ReadRegister
	WriteCoil
	WriteRegister
)

var operationNames = map[Operation]string{
	ReadCoil:      "ReadCoil",
	ReadRegister:  "ReadRegister",
	WriteCoil:     "WriteCoil",
	WriteRegister: "WriteRegister",
}

// Operations lists every operation.
func Operations() []Operation {
	return []Operation{ReadCoil, ReadRegister, WriteCoil, WriteRegister}
}

// ParseOperation matches an operation token case-insensitively ("READ_REGISTER" included).
func ParseOperation(s string) (Operation, bool) {
	n := element.Normalize(s)
	for op, name := range operationNames {
		if strings.ToLower(name) == n {
			return op, true
		}
	}
	return 0, false
}

func (o Operation) String() string {
	if n, ok := operationNames[o]; ok {
		return n
	}
	return "Operation(?)"
}

// Read reports whether o moves values from the device into data points.
func (o Operation) Read() bool { return o == ReadCoil || o == ReadRegister }

// Coil reports whether o addresses coils rather than registers.
func (o Operation) Coil() bool { return o == ReadCoil || o == WriteCoil }

// Priority is the scheduling hint of read bindings.
type Priority uint8

const (
	Low Priority = iota
	High
)

// Priorities lists every priority.
func Priorities() []Priority { return []Priority{Low, High} }

// ParsePriority matches a priority token case-insensitively.
func ParsePriority(s string) (Priority, bool) {
	switch element.Normalize(s) {
	case "low":
		return Low, true
	case "high":
		return High, true
	}
	return 0, false
}

func (p Priority) String() string {
	if p == High {
		return "High"
	}
	return "Low"
}

// Binding is one resolved configuration line. Bindings are immutable.
type Binding struct {
	Line      int // index in the configuration list
	PointID   string
	Point     datapoint.Handle
	Address   uint16
	Operation Operation
	Type      element.Type
	Priority  Priority
	WordOrder element.WordOrder

	// ScaleOrLength is a power-of-ten exponent for numeric types and a
	// length in words for Str.
	ScaleOrLength int
}

// Scale returns the decimal exponent; zero for Bool and Str.
func (b Binding) Scale() int {
	if b.Type.Numeric() {
		return b.ScaleOrLength
	}
	return 0
}

// Length returns the Str length in words; zero for other types.
func (b Binding) Length() int {
	if b.Type == element.Str {
		return b.ScaleOrLength
	}
	return 0
}

// Words returns the register width of the binding.
func (b Binding) Words() int {
	return b.Type.Words(b.Length())
}

// NewSlot returns an empty staging slot shaped for b.
func (b Binding) NewSlot() *element.Slot {
	return element.NewSlot(b.Type, b.WordOrder, b.Length())
}

// String renders b in canonical configuration form.
func (b Binding) String() string {
	fields := []string{
		b.PointID,
		strconv.Itoa(int(b.Address)),
		b.Operation.String(),
		b.Type.String(),
	}
	if b.Operation.Read() {
		fields = append(fields, b.Priority.String())
	} else {
		fields = append(fields, b.WordOrder.String())
	}
	fields = append(fields, strconv.Itoa(b.ScaleOrLength))
	return strings.Join(fields, Delimiter)
}
