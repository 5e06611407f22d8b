// internal/binding/parse_test.go
package binding

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tamzrod/modbus-binder/internal/datapoint"
	"github.com/tamzrod/modbus-binder/internal/element"
)

func testStore(t *testing.T) *datapoint.MemoryStore {
	t.Helper()
	s, err := datapoint.NewMemoryStore([]datapoint.Point{
		{ID: "Power", Type: datapoint.Double},
		{ID: "SetPoint", Type: datapoint.Double, Writable: true},
		{ID: "Label", Type: datapoint.String},
		{ID: "Enable", Type: datapoint.Bool, Writable: true},
		{ID: "Alarm", Type: datapoint.Bool},
	})
	assert.NilError(t, err)
	return s
}

func TestParseExampleLines(t *testing.T) {
	s := testStore(t)

	bs, err := Parse([]string{
		"Power:1:ReadRegister:I32:High:0",
		"SetPoint:10:WriteRegister:F32:LowWordFirst",
		"Label:20:ReadRegister:Str:4",
		"Enable:30:WriteCoil:Bool",
	}, s)
	assert.NilError(t, err)
	assert.Equal(t, len(bs), 4)

	power, _ := s.Resolve("Power")
	assert.DeepEqual(t, bs[0], Binding{
		Line: 0, PointID: "Power", Point: power, Address: 1,
		Operation: ReadRegister, Type: element.I32, Priority: High,
		WordOrder: element.HighWordFirst, ScaleOrLength: 0,
	})

	assert.Equal(t, bs[1].WordOrder, element.LowWordFirst)
	assert.Equal(t, bs[1].Priority, Low)
	assert.Equal(t, bs[1].Scale(), 0)

	assert.Equal(t, bs[2].Type, element.Str)
	assert.Equal(t, bs[2].Length(), 4)
	assert.Equal(t, bs[2].Words(), 4)

	assert.Equal(t, bs[3].Operation, WriteCoil)
	assert.Equal(t, bs[3].Words(), 0)
}

func TestParseNumericFifthFieldIsScale(t *testing.T) {
	s := testStore(t)

	b, err := ParseLine(0, "Power:5:ReadRegister:U16:-1", s)
	assert.NilError(t, err)
	assert.Equal(t, b.ScaleOrLength, -1)
	assert.Equal(t, b.Priority, Low)
	assert.Equal(t, b.WordOrder, element.HighWordFirst)

	b, err = ParseLine(0, "Power:5:ReadRegister:U16:+2", s)
	assert.NilError(t, err)
	assert.Equal(t, b.Scale(), 2)

	_, err = ParseLine(3, "Power:5:ReadRegister:U16:-1:2", s)
	var pe *ParseError
	assert.Assert(t, errors.As(err, &pe))
	assert.Equal(t, pe.Line, 3)
	assert.Equal(t, pe.Field, "scale")
}

func TestParseEveryOperationAndType(t *testing.T) {
	s := testStore(t)

	lines := map[string]Binding{
		"Alarm:0:ReadCoil:Bool":                {Operation: ReadCoil, Type: element.Bool},
		"Enable:0:WriteCoil:bool":              {Operation: WriteCoil, Type: element.Bool},
		"Power:0:readregister:U16":             {Operation: ReadRegister, Type: element.U16},
		"Power:0:READ_REGISTER:I16:low":        {Operation: ReadRegister, Type: element.I16},
		"Power:0:ReadRegister:U32:MSWLSW":      {Operation: ReadRegister, Type: element.U32},
		"Power:0:ReadRegister:i32:1":           {Operation: ReadRegister, Type: element.I32, ScaleOrLength: 1},
		"SetPoint:0:WriteRegister:U64":         {Operation: WriteRegister, Type: element.U64},
		"SetPoint:0:WriteRegister:I64:HIGH:-3": {Operation: WriteRegister, Type: element.I64, ScaleOrLength: -3},
		"SetPoint:0:WriteRegister:F32":         {Operation: WriteRegister, Type: element.F32},
		"Power:0:ReadRegister:F64:High":        {Operation: ReadRegister, Type: element.F64, Priority: High},
		"Label:0:ReadRegister:Str":             {Operation: ReadRegister, Type: element.Str, ScaleOrLength: 1},
		"SetPoint:0:WriteRegister:STR:3":       {Operation: WriteRegister, Type: element.Str, ScaleOrLength: 3},
	}

	seenOps := map[Operation]bool{}
	seenTypes := map[element.Type]bool{}

	for line, want := range lines {
		b, err := ParseLine(0, line, s)
		assert.NilError(t, err, line)
		assert.Equal(t, b.Operation, want.Operation, line)
		assert.Equal(t, b.Type, want.Type, line)
		assert.Equal(t, b.Priority, want.Priority, line)
		assert.Equal(t, b.ScaleOrLength, want.ScaleOrLength, line)
		seenOps[b.Operation] = true
		seenTypes[b.Type] = true
	}

	assert.Equal(t, len(seenOps), len(Operations()))
	assert.Equal(t, len(seenTypes), len(element.Types()))
}

func TestParseMalformed(t *testing.T) {
	s := testStore(t)

	cases := []struct {
		line  string
		field string
	}{
		{"Power:1:ReadRegister", ""},
		{"Power:1:ReadRegister:I32:High:0:9", ""},
		{"Power:1:ReadHolding:I32", "operation"},
		{"Power:1:ReadRegister:I24", "type"},
		{"Power:1:ReadRegister:I32:Fast", "option"},
		{"Power:x:ReadRegister:I32", "address"},
		{"Power:70000:ReadRegister:I32", "address"},
		{"Missing:1:ReadRegister:I32", "point"},
		{":1:ReadRegister:I32", "point"},
		{"Power:1:ReadRegister:I32:High:x", "scale"},
		{"Enable:1:WriteCoil:Str", "type"},
		{"Power:1:ReadCoil:U16", "type"},
		{"SetPoint:1:WriteRegister:Bool", "type"},
		{"Label:1:ReadRegister:Str:0", "type"},
		{"Power:1:ReadRegister:I32:40", "type"},
		{"Power:65535:ReadRegister:I32", "type"},
		{"Power:1:WriteRegister:I32", "point"},
	}

	for _, c := range cases {
		_, err := Parse([]string{"Alarm:0:ReadCoil:Bool", c.line}, s)
		var pe *ParseError
		assert.Assert(t, errors.As(err, &pe), c.line)
		assert.Equal(t, pe.Line, 1, c.line)
		assert.Equal(t, pe.Field, c.field, c.line)
		assert.ErrorContains(t, err, "binding line 1")
	}
}

func TestParseAllOrNothing(t *testing.T) {
	s := testStore(t)

	bs, err := Parse([]string{"Power:1:ReadRegister:I32", "Power:2:Bogus:I32", "Alarm:0:ReadCoil:Bool"}, s)
	assert.Assert(t, err != nil)
	assert.Assert(t, bs == nil)
}

func TestParseSkipsBlankLines(t *testing.T) {
	s := testStore(t)

	bs, err := Parse([]string{"", "  ", "Power:1:ReadRegister:I32"}, s)
	assert.NilError(t, err)
	assert.Equal(t, len(bs), 1)
	assert.Equal(t, bs[0].Line, 2)
}

func TestBindingStringRoundTrips(t *testing.T) {
	s := testStore(t)

	for _, line := range []string{
		"Power:1:ReadRegister:I32:High:-1",
		"SetPoint:10:WriteRegister:F32:LowWordFirst:2",
		"Label:20:ReadRegister:Str:Low:4",
	} {
		b, err := ParseLine(0, line, s)
		assert.NilError(t, err)
		assert.Equal(t, b.String(), line)
	}
}

func TestParseRejectsSecondWriteToPoint(t *testing.T) {
	s := testStore(t)

	_, err := Parse([]string{
		"SetPoint:10:WriteRegister:U16",
		"Power:0:ReadRegister:U16",
		"SetPoint:20:WriteRegister:U16",
	}, s)
	var pe *ParseError
	assert.Assert(t, errors.As(err, &pe))
	assert.Equal(t, pe.Line, 2)
	assert.Equal(t, pe.Field, "point")
	assert.ErrorContains(t, err, `"SetPoint" is already written by line 0`)

	// reading back a written point is fine
	bs, err := Parse([]string{
		"SetPoint:10:WriteRegister:U16",
		"SetPoint:10:ReadRegister:U16",
	}, s)
	assert.NilError(t, err)
	assert.Equal(t, len(bs), 2)
}

func TestParseWriteIgnoresPriority(t *testing.T) {
	s := testStore(t)

	b, err := ParseLine(0, "SetPoint:0:WriteRegister:I64:HIGH:-3", s)
	assert.NilError(t, err)
	assert.Equal(t, b.Priority, Low)

	again, err := ParseLine(0, b.String(), s)
	assert.NilError(t, err)
	assert.DeepEqual(t, again, b)
}

func TestDescribe(t *testing.T) {
	h := Describe()
	assert.DeepEqual(t, h.Operations, []string{"ReadCoil", "ReadRegister", "WriteCoil", "WriteRegister"})
	assert.Equal(t, len(h.Types), 10)
	assert.DeepEqual(t, h.Priorities, []string{"Low", "High"})
	assert.DeepEqual(t, h.WordOrders, []string{"LowWordFirst", "HighWordFirst"})
	assert.Assert(t, len(h.String()) > 0)
}
