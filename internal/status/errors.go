// internal/status/errors.go
package status

import (
	"errors"

	"github.com/goburrow/modbus"
)

// ErrorCode extracts a best-effort uint16 code from an error.
// Modbus exceptions yield their exception code; any other error returns 1 (generic error).
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return uint16(me.ExceptionCode)
	}

	type coder interface{ Code() uint16 }
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	return 1
}
