// internal/poller/poller_test.go
package poller

import (
	"errors"
	"testing"

	"github.com/tamzrod/modbus-binder/internal/binding"
	"github.com/tamzrod/modbus-binder/internal/element"
	"github.com/tamzrod/modbus-binder/internal/task"
)

type readCall struct {
	fc   uint8
	addr uint16
	qty  uint16
}

type fakeClient struct {
	failFC uint8
	regs   map[uint16]uint16 // register address -> value
	coils  map[uint16]bool
	calls  []readCall
}

func (f *fakeClient) ReadCoils(addr, qty uint16) ([]bool, error) {
	f.calls = append(f.calls, readCall{1, addr, qty})
	if f.failFC == 1 {
		return nil, errors.New("fail fc1")
	}
	out := make([]bool, qty)
	for i := range out {
		out[i] = f.coils[addr+uint16(i)]
	}
	return out, nil
}

func (f *fakeClient) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	f.calls = append(f.calls, readCall{3, addr, qty})
	if f.failFC == 3 {
		return nil, errors.New("fail fc3")
	}
	return f.window(addr, qty), nil
}

func (f *fakeClient) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	f.calls = append(f.calls, readCall{4, addr, qty})
	if f.failFC == 4 {
		return nil, errors.New("fail fc4")
	}
	return f.window(addr, qty), nil
}

func (f *fakeClient) window(addr, qty uint16) []uint16 {
	out := make([]uint16, qty)
	for i := range out {
		out[i] = f.regs[addr+uint16(i)]
	}
	return out
}

func read(line int, op binding.Operation, addr uint16, t element.Type, p binding.Priority) binding.Binding {
	return binding.Binding{Line: line, PointID: "p", Address: addr, Operation: op, Type: t, Priority: p}
}

func mustPlan(t *testing.T, opts task.Options, bs ...binding.Binding) *task.Plan {
	t.Helper()
	plan, err := task.Assemble(bs, opts)
	if err != nil {
		t.Fatalf("Assemble() err=%v", err)
	}
	return plan
}

func TestPollOnce_PublishesDecodedValues(t *testing.T) {
	plan := mustPlan(t, task.Options{MaxGap: 2},
		read(0, binding.ReadRegister, 0, element.I32, binding.High),
		read(1, binding.ReadRegister, 4, element.U16, binding.High),
		read(2, binding.ReadCoil, 7, element.Bool, binding.High),
	)

	fc := &fakeClient{
		regs:  map[uint16]uint16{0: 0xFFFF, 1: 0xFF15, 4: 42},
		coils: map[uint16]bool{7: true},
	}

	p, err := New(plan.Tasks, fc)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := p.PollOnce()
	if res.Err != nil {
		t.Fatalf("PollOnce err=%v", res.Err)
	}
	if res.Tasks != 2 {
		t.Fatalf("expected 2 tasks, got %d", res.Tasks)
	}

	v, ok := plan.Slots[0].TakeDecoded()
	if !ok || v.Int != -235 {
		t.Fatalf("slot 0: got %+v fresh=%v, want -235", v, ok)
	}
	v, ok = plan.Slots[1].TakeDecoded()
	if !ok || v.Int != 42 {
		t.Fatalf("slot 1: got %+v fresh=%v, want 42", v, ok)
	}
	v, ok = plan.Slots[2].TakeDecoded()
	if !ok || !v.Bool {
		t.Fatalf("slot 2: got %+v fresh=%v, want true", v, ok)
	}

	// the register task bridges the 2-register gap
	if fc.calls[1] != (readCall{4, 0, 5}) {
		t.Fatalf("unexpected register read %+v", fc.calls[1])
	}
}

func TestPollOnce_HoldingRegisters(t *testing.T) {
	plan := mustPlan(t, task.Options{ReadFunction: task.ReadHoldingRegisters},
		read(0, binding.ReadRegister, 10, element.U16, binding.Low),
	)

	fc := &fakeClient{regs: map[uint16]uint16{10: 7}}
	p, _ := New(plan.Tasks, fc)

	if res := p.PollOnce(); res.Err != nil {
		t.Fatalf("PollOnce err=%v", res.Err)
	}
	if fc.calls[0].fc != 3 {
		t.Fatalf("expected FC3, got %d", fc.calls[0].fc)
	}
}

func TestPollOnce_LowPriorityRoundRobin(t *testing.T) {
	plan := mustPlan(t, task.Options{},
		read(0, binding.ReadRegister, 0, element.U16, binding.High),
		read(1, binding.ReadRegister, 10, element.U16, binding.Low),
		read(2, binding.ReadRegister, 20, element.U16, binding.Low),
	)

	fc := &fakeClient{}
	p, _ := New(plan.Tasks, fc)

	for i := 0; i < 4; i++ {
		if res := p.PollOnce(); res.Err != nil {
			t.Fatalf("PollOnce err=%v", res.Err)
		}
	}

	var addrs []uint16
	for _, c := range fc.calls {
		addrs = append(addrs, c.addr)
	}
	want := []uint16{0, 10, 0, 20, 0, 10, 0, 20}
	if len(addrs) != len(want) {
		t.Fatalf("expected %d reads, got %d", len(want), len(addrs))
	}
	for i := range want {
		if addrs[i] != want[i] {
			t.Fatalf("read %d: got addr %d, want %d", i, addrs[i], want[i])
		}
	}
}

func TestPollOnce_Failure(t *testing.T) {
	plan := mustPlan(t, task.Options{},
		read(0, binding.ReadCoil, 0, element.Bool, binding.High),
		read(1, binding.ReadRegister, 0, element.U16, binding.High),
	)

	p, _ := New(plan.Tasks, &fakeClient{failFC: 4})

	res := p.PollOnce()
	if res.Err == nil {
		t.Fatalf("expected error, got nil")
	}
	if _, fresh := plan.Slots[1].TakeDecoded(); fresh {
		t.Fatalf("failed task must not publish")
	}
}

func TestNew_IgnoresWriteTasks(t *testing.T) {
	plan := mustPlan(t, task.Options{},
		read(0, binding.WriteRegister, 0, element.U16, binding.Low),
	)

	fc := &fakeClient{}
	p, err := New(plan.Tasks, fc)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if res := p.PollOnce(); res.Tasks != 0 || len(fc.calls) != 0 {
		t.Fatalf("write task was polled")
	}

	if _, err := New(nil, nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
