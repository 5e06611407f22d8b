// internal/element/slot.go
package element

import "sync"

// Slot is the staging cell of one bound element.
//
// The transport publishes decoded reads into it and takes pending writes out of it;
// the marshaling engine does the opposite. Each side consumes at most once.
type Slot struct {
	Type   Type
	Order  WordOrder
	Length int // words, Str only

	mu      sync.Mutex
	decoded Value
	fresh   bool
	staged  Value
	pending bool
}

// NewSlot returns an empty slot.
func NewSlot(t Type, order WordOrder, length int) *Slot {
	return &Slot{Type: t, Order: order, Length: length}
}

// Words is the register width of the slot.
func (s *Slot) Words() int {
	return s.Type.Words(s.Length)
}

// Publish stores a freshly read value.
func (s *Slot) Publish(v Value) {
	s.mu.Lock()
	s.decoded = v
	s.fresh = true
	s.mu.Unlock()
}

// PublishBytes decodes data and publishes the result.
func (s *Slot) PublishBytes(data []byte) error {
	v, err := Decode(s.Type, s.Order, data)
	if err != nil {
		return err
	}
	s.Publish(v)
	return nil
}

// TakeDecoded returns the value published since the previous call.
func (s *Slot) TakeDecoded() (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return Value{}, false
	}
	s.fresh = false
	return s.decoded, true
}

// Stage sets the value to send on the next write.
func (s *Slot) Stage(v Value) {
	s.mu.Lock()
	s.staged = v
	s.pending = true
	s.mu.Unlock()
}

// Staged returns the last staged value and whether it is still waiting to be sent.
func (s *Slot) Staged() (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged, s.pending
}

// TakePending hands the staged value to the transport. The value stays in place
// but is not offered again until restaged.
func (s *Slot) TakePending() (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return Value{}, false
	}
	s.pending = false
	return s.staged, true
}

// Pending reports whether a staged value waits to be sent.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
