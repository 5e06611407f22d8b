// internal/datapoint/store.go
package datapoint

import (
	"errors"
	"fmt"
	"sync"
)

// Handle is a stable reference to a data point, resolved once at configuration time.
type Handle int

// Point describes one data point.
type Point struct {
	ID       string
	Type     Type
	Writable bool
}

// Resolver turns configured names into handles.
type Resolver interface {
	Resolve(id string) (Handle, bool)
	Point(h Handle) Point
}

// Store is the data-point store owned by the host runtime.
// Implementations must be safe for concurrent use.
type Store interface {
	Resolver
	// Points lists every declared point in declaration order.
	Points() []Point
	Current(h Handle) (Value, bool)
	SetCurrent(h Handle, v Value) error
	// TakePendingWrite returns the pending write value and clears it.
	TakePendingWrite(h Handle) (Value, bool)
}

type cell struct {
	point   Point
	current Value
	pending Value
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	cells []cell
	index map[string]Handle
}

// NewMemoryStore declares the given points. IDs must be unique and non-empty.
func NewMemoryStore(points []Point) (*MemoryStore, error) {
	s := &MemoryStore{
		cells: make([]cell, 0, len(points)),
		index: make(map[string]Handle, len(points)),
	}
	for _, p := range points {
		if p.ID == "" {
			return nil, errors.New("datapoint: empty id")
		}
		if !p.Type.Valid() {
			return nil, fmt.Errorf("datapoint %q: invalid type", p.ID)
		}
		if _, dup := s.index[p.ID]; dup {
			return nil, fmt.Errorf("datapoint %q: declared twice", p.ID)
		}
		s.index[p.ID] = Handle(len(s.cells))
		s.cells = append(s.cells, cell{point: p})
	}
	return s, nil
}

func (s *MemoryStore) Resolve(id string) (Handle, bool) {
	h, ok := s.index[id]
	return h, ok
}

func (s *MemoryStore) Point(h Handle) Point {
	return s.cells[h].point
}

// Points lists every declared point in declaration order.
func (s *MemoryStore) Points() []Point {
	out := make([]Point, len(s.cells))
	for i := range s.cells {
		out[i] = s.cells[i].point
	}
	return out
}

func (s *MemoryStore) Current(h Handle) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.cells[h].current
	return v, v.typ != 0
}

func (s *MemoryStore) SetCurrent(h Handle, v Value) error {
	if err := s.check(h, v); err != nil {
		return err
	}
	s.mu.Lock()
	s.cells[h].current = v
	s.mu.Unlock()
	return nil
}

// SetPendingWrite requests a write; it replaces any earlier unconsumed request.
func (s *MemoryStore) SetPendingWrite(h Handle, v Value) error {
	if err := s.check(h, v); err != nil {
		return err
	}
	if !s.cells[h].point.Writable {
		return fmt.Errorf("datapoint %q: not writable", s.cells[h].point.ID)
	}
	s.mu.Lock()
	s.cells[h].pending = v
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) TakePendingWrite(h Handle) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.cells[h].pending
	if v.typ == 0 {
		return Value{}, false
	}
	s.cells[h].pending = Value{}
	return v, true
}

func (s *MemoryStore) check(h Handle, v Value) error {
	if h < 0 || int(h) >= len(s.cells) {
		return fmt.Errorf("datapoint: handle %d out of range", h)
	}
	p := s.cells[h].point
	if v.typ != p.Type {
		return fmt.Errorf("datapoint %q: value of type %s, declared %s", p.ID, v.typ, p.Type)
	}
	return nil
}
