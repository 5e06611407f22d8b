// internal/marshal/engine_test.go
package marshal

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"

	"github.com/tamzrod/modbus-binder/internal/binding"
	"github.com/tamzrod/modbus-binder/internal/datapoint"
	"github.com/tamzrod/modbus-binder/internal/element"
)

type fixture struct {
	store *datapoint.MemoryStore
	links []Link
	eng   *Engine
}

// newFixture declares points and parses lines against them, one slot per binding.
func newFixture(t *testing.T, points []datapoint.Point, lines ...string) *fixture {
	t.Helper()

	store, err := datapoint.NewMemoryStore(points)
	assert.NilError(t, err)

	bs, err := binding.Parse(lines, store)
	assert.NilError(t, err)

	links := make([]Link, len(bs))
	for i := range bs {
		links[i] = Link{Binding: &bs[i], Slot: bs[i].NewSlot()}
	}
	return &fixture{store: store, links: links, eng: New(store, links, zerolog.Nop())}
}

func (f *fixture) current(t *testing.T, id string) datapoint.Value {
	t.Helper()
	h, ok := f.store.Resolve(id)
	assert.Assert(t, ok)
	v, ok := f.store.Current(h)
	assert.Assert(t, ok, "no current value for %s", id)
	return v
}

func (f *fixture) pend(t *testing.T, id string, v datapoint.Value) {
	t.Helper()
	h, _ := f.store.Resolve(id)
	assert.NilError(t, f.store.SetPendingWrite(h, v))
}

func TestApplyReadNegativeScale(t *testing.T) {
	f := newFixture(t, []datapoint.Point{{ID: "Temp", Type: datapoint.Double}},
		"Temp:0:ReadRegister:I32:-1")

	assert.NilError(t, f.links[0].Slot.PublishBytes([]byte{0x00, 0x00, 0x00, 0xEB}))
	assert.NilError(t, f.eng.ApplyRead())

	assert.Equal(t, f.current(t, "Temp").Float(), 23.5)
}

func TestApplyReadPositiveScale(t *testing.T) {
	f := newFixture(t, []datapoint.Point{{ID: "Flow", Type: datapoint.Int}},
		"Flow:0:ReadRegister:U16:1")

	f.links[0].Slot.Publish(element.Value{Int: 5})
	assert.NilError(t, f.eng.ApplyRead())

	assert.Equal(t, f.current(t, "Flow"), datapoint.IntValue(50))
}

func TestApplyReadBooleanCoercion(t *testing.T) {
	f := newFixture(t, []datapoint.Point{{ID: "Run", Type: datapoint.Bool}},
		"Run:0:ReadRegister:U16")

	f.links[0].Slot.Publish(element.Value{Int: 0})
	assert.NilError(t, f.eng.ApplyRead())
	assert.Equal(t, f.current(t, "Run"), datapoint.BoolValue(false))

	for _, raw := range []int64{1, 7, 65535} {
		f.links[0].Slot.Publish(element.Value{Int: raw})
		assert.NilError(t, f.eng.ApplyRead())
		assert.Equal(t, f.current(t, "Run"), datapoint.BoolValue(true))
	}
}

func TestApplyReadTruncatesIntoIntegerPoints(t *testing.T) {
	f := newFixture(t, []datapoint.Point{
		{ID: "S", Type: datapoint.Short},
		{ID: "L", Type: datapoint.Long},
		{ID: "T", Type: datapoint.String},
	},
		"S:0:ReadRegister:I32:-1",
		"L:2:ReadRegister:I32:-1",
		"T:4:ReadRegister:I32:-1",
	)

	for _, l := range f.links {
		l.Slot.Publish(element.Value{Int: -239})
	}
	assert.NilError(t, f.eng.ApplyRead())

	assert.Equal(t, f.current(t, "S"), datapoint.ShortValue(-23))
	assert.Equal(t, f.current(t, "L"), datapoint.LongValue(-23))
	assert.Equal(t, f.current(t, "T"), datapoint.StringValue("-23.9"))
}

func TestApplyReadBoolAndStrElements(t *testing.T) {
	f := newFixture(t, []datapoint.Point{
		{ID: "Alarm", Type: datapoint.Bool},
		{ID: "AlarmText", Type: datapoint.String},
		{ID: "AlarmCount", Type: datapoint.Int},
		{ID: "Label", Type: datapoint.String},
		{ID: "Number", Type: datapoint.Double},
	},
		"Alarm:0:ReadCoil:Bool",
		"AlarmText:1:ReadCoil:Bool",
		"AlarmCount:2:ReadCoil:Bool",
		"Label:0:ReadRegister:Str:2",
		"Number:2:ReadRegister:Str:2",
	)

	f.links[0].Slot.Publish(element.Value{Bool: true})
	f.links[1].Slot.Publish(element.Value{Bool: true})
	f.links[2].Slot.Publish(element.Value{Bool: true})
	f.links[3].Slot.Publish(element.Value{Text: "AB12"})
	f.links[4].Slot.Publish(element.Value{Text: "2.5"})
	assert.NilError(t, f.eng.ApplyRead())

	assert.Equal(t, f.current(t, "Alarm"), datapoint.BoolValue(true))
	assert.Equal(t, f.current(t, "AlarmText"), datapoint.StringValue("true"))
	assert.Equal(t, f.current(t, "AlarmCount"), datapoint.IntValue(1))
	assert.Equal(t, f.current(t, "Label"), datapoint.StringValue("AB12"))
	assert.Equal(t, f.current(t, "Number"), datapoint.DoubleValue(2.5))
}

func TestApplyReadKeepsLastValueOnError(t *testing.T) {
	f := newFixture(t, []datapoint.Point{
		{ID: "Number", Type: datapoint.Double},
		{ID: "Other", Type: datapoint.Double},
	},
		"Number:0:ReadRegister:Str:2",
		"Other:2:ReadRegister:U16",
	)

	f.links[0].Slot.Publish(element.Value{Text: "1.5"})
	assert.NilError(t, f.eng.ApplyRead())

	f.links[0].Slot.Publish(element.Value{Text: "n/a"})
	f.links[1].Slot.Publish(element.Value{Int: 3})
	err := f.eng.ApplyRead()

	var errs Errors
	assert.Assert(t, errors.As(err, &errs))
	assert.Equal(t, len(errs), 1)
	assert.Equal(t, errs[0].Point, "Number")
	assert.Equal(t, errs[0].Direction, Read)

	assert.Equal(t, f.current(t, "Number").Float(), 1.5)
	assert.Equal(t, f.current(t, "Other").Float(), 3.0)
}

func TestApplyWriteScale(t *testing.T) {
	f := newFixture(t, []datapoint.Point{{ID: "SetPoint", Type: datapoint.Double, Writable: true}},
		"SetPoint:0:WriteRegister:I32:-2")

	f.pend(t, "SetPoint", datapoint.DoubleValue(12.34))
	assert.NilError(t, f.eng.ApplyWrite())

	v, pending := f.links[0].Slot.Staged()
	assert.Assert(t, pending)
	assert.Equal(t, v.Int, int64(1234))

	raw, err := element.Encode(element.I32, element.HighWordFirst, 0, v)
	assert.NilError(t, err)
	assert.DeepEqual(t, raw, []byte{0x00, 0x00, 0x04, 0xD2})
}

func TestApplyWriteBoolAndStringPoints(t *testing.T) {
	f := newFixture(t, []datapoint.Point{
		{ID: "Enable", Type: datapoint.Bool, Writable: true},
		{ID: "Mode", Type: datapoint.Bool, Writable: true},
		{ID: "Level", Type: datapoint.String, Writable: true},
		{ID: "Name", Type: datapoint.String, Writable: true},
		{ID: "Switch", Type: datapoint.String, Writable: true},
	},
		"Enable:0:WriteCoil:Bool",
		"Mode:0:WriteRegister:U16:2",
		"Level:1:WriteRegister:I16:-1",
		"Name:2:WriteRegister:Str:3",
		"Switch:1:WriteCoil:Bool",
	)

	f.pend(t, "Enable", datapoint.BoolValue(true))
	f.pend(t, "Mode", datapoint.BoolValue(true))
	f.pend(t, "Level", datapoint.StringValue(" 42.9 "))
	f.pend(t, "Name", datapoint.StringValue("pump"))
	f.pend(t, "Switch", datapoint.StringValue("false"))
	assert.NilError(t, f.eng.ApplyWrite())

	staged := func(i int) element.Value {
		v, pending := f.links[i].Slot.Staged()
		assert.Assert(t, pending)
		return v
	}

	assert.Equal(t, staged(0).Bool, true)
	// bool and string points are never scaled
	assert.Equal(t, staged(1).Int, int64(1))
	assert.Equal(t, staged(2).Int, int64(42))
	assert.Equal(t, staged(3).Text, "pump")
	assert.Equal(t, staged(4).Bool, false)
}

func TestApplyWriteSaturates(t *testing.T) {
	f := newFixture(t, []datapoint.Point{{ID: "SetPoint", Type: datapoint.Long, Writable: true}},
		"SetPoint:0:WriteRegister:I16")

	f.pend(t, "SetPoint", datapoint.LongValue(100000))
	assert.NilError(t, f.eng.ApplyWrite())

	v, _ := f.links[0].Slot.Staged()
	assert.Equal(t, v.Int, int64(math.MaxInt16))
}

func TestApplyIsIdempotent(t *testing.T) {
	f := newFixture(t, []datapoint.Point{
		{ID: "Temp", Type: datapoint.Double},
		{ID: "SetPoint", Type: datapoint.Double, Writable: true},
	},
		"Temp:0:ReadRegister:I16:-1",
		"SetPoint:10:WriteRegister:I16:-1",
	)

	f.links[0].Slot.Publish(element.Value{Int: 215})
	f.pend(t, "SetPoint", datapoint.DoubleValue(20.5))
	assert.NilError(t, f.eng.ApplyRead())
	assert.NilError(t, f.eng.ApplyWrite())

	temp := f.current(t, "Temp")
	staged, pending := f.links[1].Slot.Staged()

	assert.NilError(t, f.eng.ApplyRead())
	assert.NilError(t, f.eng.ApplyWrite())

	assert.Equal(t, f.current(t, "Temp"), temp)
	again, stillPending := f.links[1].Slot.Staged()
	assert.Equal(t, again, staged)
	assert.Equal(t, stillPending, pending)
	assert.Equal(t, staged.Int, int64(205))
}

func TestApplyWriteIsolatesFailures(t *testing.T) {
	f := newFixture(t, []datapoint.Point{
		{ID: "One", Type: datapoint.Double, Writable: true},
		{ID: "Two", Type: datapoint.String, Writable: true},
		{ID: "Three", Type: datapoint.Int, Writable: true},
	},
		"One:0:WriteRegister:U16",
		"Two:1:WriteRegister:U16",
		"Three:2:WriteRegister:U16",
	)

	f.pend(t, "One", datapoint.DoubleValue(11))
	f.pend(t, "Two", datapoint.StringValue("eleven"))
	f.pend(t, "Three", datapoint.IntValue(33))

	err := f.eng.ApplyWrite()

	var errs Errors
	assert.Assert(t, errors.As(err, &errs))
	assert.Equal(t, len(errs), 1)
	assert.Equal(t, errs[0].Point, "Two")
	assert.Equal(t, errs[0].Direction, Write)
	assert.ErrorContains(t, err, `"eleven" is not a decimal number`)

	v, pending := f.links[0].Slot.Staged()
	assert.Assert(t, pending)
	assert.Equal(t, v.Int, int64(11))

	assert.Assert(t, !f.links[1].Slot.Pending())

	v, pending = f.links[2].Slot.Staged()
	assert.Assert(t, pending)
	assert.Equal(t, v.Int, int64(33))
}

func TestScaleRoundTrip(t *testing.T) {
	numeric := []element.Type{
		element.U16, element.I16, element.U32, element.I32,
		element.U64, element.I64, element.F32, element.F64,
	}

	for _, et := range numeric {
		for scale := -3; scale <= 3; scale++ {
			b := binding.Binding{
				PointID:       "x",
				Operation:     binding.WriteRegister,
				Type:          et,
				WordOrder:     element.LowWordFirst,
				ScaleOrLength: scale,
			}
			want := shift(7, scale)

			ev, err := ToElement(b, datapoint.DoubleValue(want))
			assert.NilError(t, err)

			raw, err := element.Encode(et, b.WordOrder, 0, ev)
			assert.NilError(t, err)
			decoded, err := element.Decode(et, b.WordOrder, raw)
			assert.NilError(t, err)

			b.Operation = binding.ReadRegister
			got, err := FromElement(b, datapoint.Double, decoded)
			assert.NilError(t, err)

			tol := 1e-9 * math.Max(1, math.Abs(want))
			if et == element.F32 {
				tol = 1e-6 * math.Max(1, math.Abs(want))
			}
			assert.Assert(t, math.Abs(got.Float()-want) <= tol,
				"%s scale %d: got %v, want %v", et, scale, got.Float(), want)
		}
	}
}
