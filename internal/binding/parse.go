// internal/binding/parse.go
package binding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tamzrod/modbus-binder/internal/datapoint"
	"github.com/tamzrod/modbus-binder/internal/element"
)

const (
	minFields = 4
	maxFields = 6

	// maxScale bounds the decimal exponent so 10^scale stays finite and exact enough.
	maxScale = 18
)

// ParseError reports a malformed configuration line.
type ParseError struct {
	Line   int    // index in the configuration list
	Field  string // offending field, empty for whole-line problems
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("binding line %d %q: %s", e.Line, e.Input, e.Reason)
	}
	return fmt.Sprintf("binding line %d %q: field %s: %s", e.Line, e.Input, e.Field, e.Reason)
}

// Parse resolves every configuration line. It is all-or-nothing: the first
// error aborts and no bindings are returned. Blank lines are skipped.
// A data point may carry at most one write binding.
func Parse(lines []string, r datapoint.Resolver) ([]Binding, error) {
	out := make([]Binding, 0, len(lines))
	writes := make(map[datapoint.Handle]int)

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b, err := ParseLine(i, line, r)
		if err != nil {
			return nil, err
		}
		if !b.Operation.Read() {
			if prev, dup := writes[b.Point]; dup {
				return nil, &ParseError{
					Line:   i,
					Field:  "point",
					Input:  line,
					Reason: fmt.Sprintf("data point %q is already written by line %d", b.PointID, prev),
				}
			}
			writes[b.Point] = i
		}
		out = append(out, b)
	}
	return out, nil
}

// ParseLine resolves a single configuration line.
//
//	point:address:operation:type[:priority|wordOrder|scaleOrLength[:scaleOrLength]]
func ParseLine(index int, line string, r datapoint.Resolver) (Binding, error) {
	fail := func(field, format string, args ...any) (Binding, error) {
		return Binding{}, &ParseError{Line: index, Field: field, Input: line, Reason: fmt.Sprintf(format, args...)}
	}

	fields := strings.Split(line, Delimiter)
	if len(fields) < minFields || len(fields) > maxFields {
		return fail("", "expected %d to %d fields, got %d", minFields, maxFields, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	b := Binding{Line: index, PointID: fields[0], Priority: Low, WordOrder: element.HighWordFirst}

	if b.PointID == "" {
		return fail("point", "data point id is empty")
	}
	h, ok := r.Resolve(b.PointID)
	if !ok {
		return fail("point", "data point %q does not exist", b.PointID)
	}
	b.Point = h

	addr, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return fail("address", "expected an address in 0..65535, got %q", fields[1])
	}
	b.Address = uint16(addr)

	if b.Operation, ok = ParseOperation(fields[2]); !ok {
		return fail("operation", "expected one of %s, got %q", joinNames(Operations()), fields[2])
	}

	if b.Type, ok = element.ParseType(fields[3]); !ok {
		return fail("type", "expected one of %s, got %q", joinNames(element.Types()), fields[3])
	}

	scaleSet := false
	if len(fields) >= 5 {
		f4 := fields[4]
		if n, err := strconv.Atoi(f4); err == nil {
			if len(fields) == maxFields {
				return fail("scale", "no field may follow a numeric scale or length %q", f4)
			}
			b.ScaleOrLength = n
			scaleSet = true
		} else if p, ok := ParsePriority(f4); ok {
			b.Priority = p
		} else if o, ok := element.ParseWordOrder(f4); ok {
			b.WordOrder = o
		} else {
			return fail("option", "expected a number, a priority (%s) or a word order (%s), got %q",
				joinNames(Priorities()), joinNames(element.WordOrders()), f4)
		}
	}
	if len(fields) == maxFields {
		n, err := strconv.Atoi(fields[5])
		if err != nil {
			return fail("scale", "expected an integer scale or length, got %q", fields[5])
		}
		b.ScaleOrLength = n
		scaleSet = true
	}

	if b.Type == element.Str && !scaleSet {
		b.ScaleOrLength = 1
	}
	// Writes are sent when pending; priority only orders reads.
	if !b.Operation.Read() {
		b.Priority = Low
	}

	if reason := checkCombination(b); reason != "" {
		return fail("type", "%s", reason)
	}

	p := r.Point(h)
	if !b.Operation.Read() && !p.Writable {
		return fail("point", "%s needs a writable data point, %q is read-only", b.Operation, p.ID)
	}

	return b, nil
}

// checkCombination returns a reason when the operation/type/option combination is meaningless.
func checkCombination(b Binding) string {
	if b.Operation.Coil() != (b.Type == element.Bool) {
		if b.Operation.Coil() {
			return fmt.Sprintf("%s needs element type Bool, got %s", b.Operation, b.Type)
		}
		return fmt.Sprintf("element type Bool is a coil and cannot be used with %s", b.Operation)
	}
	if b.Type == element.Str && b.ScaleOrLength < 1 {
		return fmt.Sprintf("Str needs a length of at least 1 word, got %d", b.ScaleOrLength)
	}
	if b.Type.Numeric() && (b.ScaleOrLength > maxScale || b.ScaleOrLength < -maxScale) {
		return fmt.Sprintf("scale %d outside -%d..%d", b.ScaleOrLength, maxScale, maxScale)
	}
	if int(b.Address)+b.Words()-1 > 0xFFFF {
		return fmt.Sprintf("%d words at address %d run past 65535", b.Words(), b.Address)
	}
	return ""
}

func joinNames[T fmt.Stringer](items []T) string {
	return strings.Join(names(items), "/")
}
