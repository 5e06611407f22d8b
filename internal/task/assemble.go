// internal/task/assemble.go
package task

import (
	"fmt"
	"sort"

	"github.com/tamzrod/modbus-binder/internal/binding"
	"github.com/tamzrod/modbus-binder/internal/element"
)

// Options tune assembly.
type Options struct {
	// ReadFunction serves ReadRegister bindings: ReadInputRegisters (default) or ReadHoldingRegisters.
	ReadFunction FunctionCode

	// MaxGap is the number of unbound registers (or coils) a task may bridge
	// with filler elements. Zero merges only adjacent bindings.
	MaxGap int
}

// Plan is the assembled task list plus the staging slot of every binding.
type Plan struct {
	Tasks []Task

	// Slots[i] belongs to the i-th binding given to Assemble.
	Slots []*element.Slot
}

// AssemblyError reports an address conflict or an inconsistent binding.
type AssemblyError struct {
	First  binding.Binding
	Second *binding.Binding
	Reason string
}

func (e *AssemblyError) Error() string {
	if e.Second == nil {
		return fmt.Sprintf("assembly: line %d (%s): %s", e.First.Line, e.First, e.Reason)
	}
	return fmt.Sprintf("assembly: line %d (%s) and line %d (%s): %s",
		e.First.Line, e.First, e.Second.Line, e.Second, e.Reason)
}

type groupKey struct {
	op       binding.Operation
	priority binding.Priority
}

// Assemble groups bindings into tasks by operation and priority, merging bindings
// whose address ranges touch (or sit within MaxGap of each other).
// It is all-or-nothing.
func Assemble(bs []binding.Binding, opts Options) (*Plan, error) {
	if opts.ReadFunction == 0 {
		opts.ReadFunction = ReadInputRegisters
	}
	if opts.ReadFunction != ReadInputRegisters && opts.ReadFunction != ReadHoldingRegisters {
		return nil, fmt.Errorf("assembly: read function %d is not a register read", opts.ReadFunction)
	}
	if opts.MaxGap < 0 {
		return nil, fmt.Errorf("assembly: max gap %d must be >= 0", opts.MaxGap)
	}

	plan := &Plan{Slots: make([]*element.Slot, len(bs))}
	groups := make(map[groupKey][]int)

	for i := range bs {
		b := &bs[i]
		if reason := validate(*b); reason != "" {
			return nil, &AssemblyError{First: *b, Reason: reason}
		}
		plan.Slots[i] = b.NewSlot()

		k := groupKey{op: b.Operation}
		if b.Operation.Read() {
			k.priority = b.Priority
		}
		groups[k] = append(groups[k], i)
	}

	for _, k := range sortedKeys(groups) {
		idx := groups[k]
		sort.SliceStable(idx, func(a, c int) bool { return bs[idx[a]].Address < bs[idx[c]].Address })

		tasks, err := buildGroup(k, idx, bs, plan.Slots, opts)
		if err != nil {
			return nil, err
		}
		plan.Tasks = append(plan.Tasks, tasks...)
	}

	return plan, nil
}

func buildGroup(k groupKey, idx []int, bs []binding.Binding, slots []*element.Slot, opts Options) ([]Task, error) {
	limit := limitFor(k.op)

	var (
		out  []Task
		cur  *Task
		end  int // last address covered by cur, inclusive
		last int // binding index that set end
	)

	flush := func() {
		if cur != nil {
			cur.FunctionCode = functionFor(k.op, cur.Quantity(), opts)
			out = append(out, *cur)
			cur = nil
		}
	}

	for _, i := range idx {
		b := &bs[i]
		width := widthOf(*b)
		start := int(b.Address)

		if cur != nil && start <= end {
			return nil, &AssemblyError{First: bs[last], Second: b, Reason: "address ranges overlap"}
		}

		gap := start - end - 1
		if cur != nil && gap <= opts.MaxGap && int(cur.Quantity())+gap+width <= limit {
			if gap > 0 {
				cur.Elements = append(cur.Elements, fillers(k.op, uint16(end+1), gap)...)
			}
		} else {
			flush()
			cur = &Task{Address: b.Address, Priority: k.priority}
		}

		cur.Elements = append(cur.Elements, Element{
			Address: b.Address,
			Width:   width,
			Binding: b,
			Slot:    slots[i],
		})
		if e := start + width - 1; e > end || len(cur.Elements) == 1 {
			end = e
			last = i
		}
	}
	flush()

	return out, nil
}

// validate re-checks what the parser guarantees; a failure here is a configuration bug.
func validate(b binding.Binding) string {
	switch b.Operation {
	case binding.ReadCoil, binding.ReadRegister, binding.WriteCoil, binding.WriteRegister:
	default:
		return fmt.Sprintf("unknown operation %d", b.Operation)
	}
	if !b.Type.Valid() {
		return fmt.Sprintf("unknown element type %d", b.Type)
	}
	if b.Operation.Coil() != (b.Type == element.Bool) {
		return fmt.Sprintf("%s cannot carry element type %s", b.Operation, b.Type)
	}
	if !b.Operation.Coil() && b.Words() < 1 {
		return fmt.Sprintf("%s element spans no registers", b.Type)
	}
	if int(b.Address)+widthOf(b)-1 > 0xFFFF {
		return "address range runs past 65535"
	}
	if widthOf(b) > limitFor(b.Operation) {
		return fmt.Sprintf("%d words exceed the %d per request limit", widthOf(b), limitFor(b.Operation))
	}
	return ""
}

func widthOf(b binding.Binding) int {
	if b.Operation.Coil() {
		return 1
	}
	return b.Words()
}

func fillers(op binding.Operation, addr uint16, n int) []Element {
	if op.Coil() {
		out := make([]Element, n)
		for i := range out {
			out[i] = Element{Address: addr + uint16(i), Width: 1}
		}
		return out
	}
	return []Element{{Address: addr, Width: n}}
}

func limitFor(op binding.Operation) int {
	switch op {
	case binding.ReadCoil:
		return maxReadCoils
	case binding.WriteCoil:
		return maxWriteCoils
	case binding.WriteRegister:
		return maxWriteRegisters
	}
	return maxReadRegisters
}

func functionFor(op binding.Operation, qty uint16, opts Options) FunctionCode {
	switch op {
	case binding.ReadCoil:
		return ReadCoils
	case binding.ReadRegister:
		return opts.ReadFunction
	case binding.WriteCoil:
		if qty == 1 {
			return WriteSingleCoil
		}
		return WriteMultipleCoils
	}
	if qty == 1 {
		return WriteSingleRegister
	}
	return WriteMultipleRegisters
}

// sortedKeys orders groups by operation, then High before Low.
func sortedKeys(groups map[groupKey][]int) []groupKey {
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].op != keys[j].op {
			return keys[i].op < keys[j].op
		}
		return keys[i].priority > keys[j].priority
	})
	return keys
}
