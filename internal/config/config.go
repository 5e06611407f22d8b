// internal/config/config.go
package config

type Config struct {
	Binder BinderConfig `yaml:"binder"`
}

type BinderConfig struct {
	Log     LogConfig      `yaml:"log"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Devices []DeviceConfig `yaml:"devices"`
}

// ---- AMBIENT ----

type LogConfig struct {
	Level string `yaml:"level"` // zerolog level name; default info
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID           string        `yaml:"id"`
	Source       SourceConfig  `yaml:"source"`
	Poll         PollConfig    `yaml:"poll"`
	ReadFunction string        `yaml:"read_function"` // input (default) | holding
	MaxGap       int           `yaml:"max_gap"`
	Points       []PointConfig `yaml:"points"`
	Bindings     []string      `yaml:"bindings"`
}

// ---- SOURCE ----

type SourceConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	Serial    *SerialConfig `yaml:"serial"`
	UnitID    uint8         `yaml:"unit_id"`
	TimeoutMs int           `yaml:"timeout_ms"`
}

type SerialConfig struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`
}

// ---- DATA POINTS ----

type PointConfig struct {
	ID       string `yaml:"id"`
	Type     string `yaml:"type"`
	Writable bool   `yaml:"writable"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// Read function names.
const (
	ReadFunctionInput   = "input"
	ReadFunctionHolding = "holding"
)
