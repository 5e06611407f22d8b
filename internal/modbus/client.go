// internal/modbus/client.go
package modbus

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"
)

// Config is minimal transport config. Exactly one of Endpoint and Serial is set.
type Config struct {
	Endpoint string
	Serial   *SerialConfig
	UnitID   uint8
	Timeout  time.Duration
}

// SerialConfig selects Modbus RTU over a serial line.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string // N, E or O
	StopBits int
}

type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// Client implements poller.Client and writer.Client over one Modbus TCP or RTU link.
// It serializes requests; the connection is opened lazily and reopened after a failure.
type Client struct {
	mu      sync.Mutex
	handler handler
	client  modbus.Client
}

// New builds a client without connecting. Wire frames are logged at trace level.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	var wire *log.Logger
	if logger.GetLevel() <= zerolog.TraceLevel && zerolog.GlobalLevel() <= zerolog.TraceLevel {
		wire = log.New(traceWriter{logger.With().Str("component", "modbus").Logger()}, "", 0)
	}

	var h handler
	switch {
	case cfg.Endpoint != "" && cfg.Serial != nil:
		return nil, errors.New("modbus client: endpoint and serial are exclusive")

	case cfg.Endpoint != "":
		th := modbus.NewTCPClientHandler(cfg.Endpoint)
		th.Timeout = cfg.Timeout
		th.SlaveId = cfg.UnitID
		th.Logger = wire
		h = th

	case cfg.Serial != nil:
		if cfg.Serial.Device == "" {
			return nil, errors.New("modbus client: serial device required")
		}
		rh := modbus.NewRTUClientHandler(cfg.Serial.Device)
		rh.BaudRate = cfg.Serial.BaudRate
		rh.DataBits = cfg.Serial.DataBits
		rh.Parity = cfg.Serial.Parity
		rh.StopBits = cfg.Serial.StopBits
		rh.Timeout = cfg.Timeout
		rh.SlaveId = cfg.UnitID
		rh.Logger = wire
		h = rh

	default:
		return nil, errors.New("modbus client: endpoint or serial required")
	}

	return &Client{handler: h, client: modbus.NewClient(h)}, nil
}

// Connect opens the link eagerly.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Connect()
}

// Close closes the link. A later request reopens it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ---- poller.Client interface ----

func (c *Client) ReadCoils(addr, qty uint16) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, c.drop(err)
	}
	return unpackBits(b, int(qty)), nil
}

func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, c.drop(err)
	}
	return unpackRegisters(b), nil
}

func (c *Client) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.client.ReadInputRegisters(addr, qty)
	if err != nil {
		return nil, c.drop(err)
	}
	return unpackRegisters(b), nil
}

// ---- writer.Client interface ----

func (c *Client) WriteSingleCoil(addr uint16, v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var value uint16
	if v {
		value = 0xFF00
	}
	_, err := c.client.WriteSingleCoil(addr, value)
	return c.drop(err)
}

func (c *Client) WriteSingleRegister(addr, v uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.client.WriteSingleRegister(addr, v)
	return c.drop(err)
}

func (c *Client) WriteMultipleCoils(addr uint16, bits []bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.client.WriteMultipleCoils(addr, uint16(len(bits)), packBits(bits))
	return c.drop(err)
}

func (c *Client) WriteMultipleRegisters(addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	return c.drop(err)
}

// drop closes the link after a transport failure so the next request reconnects.
// Modbus exceptions leave the link open: the device answered.
func (c *Client) drop(err error) error {
	if err == nil {
		return nil
	}
	var me *modbus.ModbusError
	if !errors.As(err, &me) {
		_ = c.handler.Close()
	}
	return err
}

// traceWriter forwards goburrow's frame logging to zerolog at trace level.
type traceWriter struct{ log zerolog.Logger }

func (w traceWriter) Write(p []byte) (int, error) {
	w.log.Trace().Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// ---- helpers (pure geometry) ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		if byteIdx >= len(data) {
			continue
		}
		out[i] = data[byteIdx]&(1<<uint(i%8)) != 0
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
