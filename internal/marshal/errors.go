// internal/marshal/errors.go
package marshal

import (
	"fmt"
	"strings"

	"github.com/tamzrod/modbus-binder/internal/binding"
)

// Direction is the side of the marshaling pass an error happened on.
type Direction uint8

const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// DataError reports a value that could not be marshaled for one binding.
// It only ever drops that binding's value for the current cycle.
type DataError struct {
	Point     string
	Binding   binding.Binding
	Direction Direction
	Err       error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("marshal %s %q (line %d): %v", e.Direction, e.Point, e.Binding.Line, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// Errors collects the data errors of one pass.
type Errors []*DataError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// orNil keeps a nil error nil when nothing failed.
func (es Errors) orNil() error {
	if len(es) == 0 {
		return nil
	}
	return es
}
