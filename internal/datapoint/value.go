// internal/datapoint/value.go
package datapoint

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the declared type of a data point.
type Type uint8

const (
	Bool Type = iota + 1
	Short
	Int
	Long
	Float
	Double
	String
)

var typeNames = map[Type]string{
	Bool:   "bool",
	Short:  "short",
	Int:    "int",
	Long:   "long",
	Float:  "float",
	Double: "double",
	String: "string",
}

// ParseType matches a type name case-insensitively ("boolean"/"integer" accepted).
func ParseType(s string) (Type, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "boolean":
		return Bool, true
	case "integer":
		return Int, true
	}
	for t, n := range typeNames {
		if n == s {
			return t, true
		}
	}
	return 0, false
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "type(?)"
}

// Valid reports whether t is a declared type.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Value is a tagged union over the data point types.
// The zero Value has no type and is never stored.
type Value struct {
	typ Type
	b   bool
	i   int64
	f   float64
	s   string
}

func BoolValue(b bool) Value { return Value{typ: Bool, b: b} }
func ShortValue(v int16) Value { return Value{typ: Short, i: int64(v)} }
func IntValue(v int32) Value { return Value{typ: Int, i: int64(v)} }
func LongValue(v int64) Value { return Value{typ: Long, i: v} }
func FloatValue(v float32) Value { return Value{typ: Float, f: float64(v)} }
func DoubleValue(v float64) Value { return Value{typ: Double, f: v} }
func StringValue(v string) Value { return Value{typ: String, s: v} }

// Type returns the tag.
func (v Value) Type() Type { return v.typ }

// Bool returns the payload of a Bool value.
func (v Value) Bool() bool { return v.b }

// Int returns the payload of a Short, Int or Long value.
func (v Value) Int() int64 { return v.i }

// Float returns the payload of a Float or Double value.
func (v Value) Float() float64 { return v.f }

// Text returns the payload of a String value.
func (v Value) Text() string { return v.s }

// Number returns the numeric payload as a double for the number types.
func (v Value) Number() (float64, bool) {
	switch v.typ {
	case Short, Int, Long:
		return float64(v.i), true
	case Float, Double:
		return v.f, true
	}
	return 0, false
}

func (v Value) String() string {
	switch v.typ {
	case Bool:
		return strconv.FormatBool(v.b)
	case Short, Int, Long:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case Double:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return v.s
	}
	return "<undefined>"
}

// ParseValue parses text into a value of type t.
func ParseValue(t Type, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch t {
	case Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("datapoint: parse %q as bool: %w", s, err)
		}
		return BoolValue(b), nil
	case Short:
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return Value{}, fmt.Errorf("datapoint: parse %q as short: %w", s, err)
		}
		return ShortValue(int16(n)), nil
	case Int:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("datapoint: parse %q as int: %w", s, err)
		}
		return IntValue(int32(n)), nil
	case Long:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("datapoint: parse %q as long: %w", s, err)
		}
		return LongValue(n), nil
	case Float:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, fmt.Errorf("datapoint: parse %q as float: %w", s, err)
		}
		return FloatValue(float32(f)), nil
	case Double:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("datapoint: parse %q as double: %w", s, err)
		}
		return DoubleValue(f), nil
	case String:
		return StringValue(s), nil
	}
	return Value{}, fmt.Errorf("datapoint: unknown type %d", t)
}
