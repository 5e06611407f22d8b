// internal/marshal/coerce.go
package marshal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tamzrod/modbus-binder/internal/binding"
	"github.com/tamzrod/modbus-binder/internal/datapoint"
	"github.com/tamzrod/modbus-binder/internal/element"
)

// FromElement turns a decoded element value into a value of the point type t.
//
// Numeric elements are multiplied by 10^scale first. Bool and Str elements are
// never scaled.
func FromElement(b binding.Binding, t datapoint.Type, v element.Value) (datapoint.Value, error) {
	switch b.Type {
	case element.Bool:
		if t == datapoint.String {
			return datapoint.StringValue(strconv.FormatBool(v.Bool)), nil
		}
		return fromNumber(t, b.Type.Number(v))

	case element.Str:
		switch t {
		case datapoint.String:
			return datapoint.StringValue(v.Text), nil
		case datapoint.Bool:
			if ok, err := strconv.ParseBool(strings.TrimSpace(v.Text)); err == nil {
				return datapoint.BoolValue(ok), nil
			}
		}
		f, err := parseDecimal(v.Text)
		if err != nil {
			return datapoint.Value{}, err
		}
		return fromNumber(t, f)
	}

	if !b.Type.Valid() {
		return datapoint.Value{}, fmt.Errorf("unknown element type %d", b.Type)
	}
	return fromNumber(t, shift(b.Type.Number(v), b.Scale()))
}

// ToElement turns a pending write value into the element value to stage.
//
// Bool points stage 1 or 0 and string points parse as a decimal number, both
// unscaled. Numeric points are divided by 10^scale so that a read of the same
// register reproduces them.
func ToElement(b binding.Binding, v datapoint.Value) (element.Value, error) {
	var staging float64

	switch v.Type() {
	case datapoint.Bool:
		if v.Bool() {
			staging = 1
		}

	case datapoint.String:
		switch b.Type {
		case element.Str:
			return element.Value{Text: v.Text()}, nil
		case element.Bool:
			if ok, err := strconv.ParseBool(strings.TrimSpace(v.Text())); err == nil {
				return element.Value{Bool: ok}, nil
			}
		}
		f, err := parseDecimal(v.Text())
		if err != nil {
			return element.Value{}, err
		}
		staging = f

	case datapoint.Short, datapoint.Int, datapoint.Long, datapoint.Float, datapoint.Double:
		n, _ := v.Number()
		staging = shift(n, -b.Scale())

	default:
		return element.Value{}, fmt.Errorf("pending value has no type")
	}

	if !b.Type.Valid() {
		return element.Value{}, fmt.Errorf("unknown element type %d", b.Type)
	}
	return b.Type.FromNumber(staging), nil
}

// fromNumber coerces f into a point of type t. Integer types truncate toward
// zero and saturate.
func fromNumber(t datapoint.Type, f float64) (datapoint.Value, error) {
	switch t {
	case datapoint.Bool:
		return datapoint.BoolValue(f != 0), nil
	case datapoint.Short:
		return datapoint.ShortValue(int16(element.I16.FromNumber(f).Int)), nil
	case datapoint.Int:
		return datapoint.IntValue(int32(element.I32.FromNumber(f).Int)), nil
	case datapoint.Long:
		return datapoint.LongValue(element.TruncInt64(f)), nil
	case datapoint.Float:
		return datapoint.FloatValue(float32(f)), nil
	case datapoint.Double:
		return datapoint.DoubleValue(f), nil
	case datapoint.String:
		return datapoint.StringValue(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return datapoint.Value{}, fmt.Errorf("unknown point type %d", t)
}

// shift returns f * 10^n. Negative exponents divide, which keeps results such as
// 235 * 10^-1 exactly 23.5.
func shift(f float64, n int) float64 {
	switch {
	case n > 0:
		return f * math.Pow10(n)
	case n < 0:
		return f / math.Pow10(-n)
	}
	return f
}

func parseDecimal(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	return f, nil
}
