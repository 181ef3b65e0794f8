package config

import (
	"time"

	"github.com/dtrask/wsrelay"
)

// TapConfig is the root configuration for a wstap instance.
type TapConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Endpoint EndpointConfig `yaml:"endpoint"`
	Relay    RelayConfig    `yaml:"relay"`
	Database DBConfig       `yaml:"database"`
	Sink     SinkConfig     `yaml:"sink"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this tap.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// EndpointConfig holds the socket endpoint to tap.
type EndpointConfig struct {
	URL string `yaml:"url"`
}

// RelayConfig holds connection manager settings.
type RelayConfig struct {
	AutoReconnect      *bool         `yaml:"auto_reconnect"` // nil means true
	ReconnectLimit     uint          `yaml:"reconnect_limit"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
}

// Manager converts the relay section into a wsrelay.Config, starting
// from the library defaults.
func (r RelayConfig) Manager() wsrelay.Config {
	cfg := wsrelay.DefaultConfig()
	if r.AutoReconnect != nil {
		cfg.AutoReconnect = *r.AutoReconnect
	}
	if r.ReconnectLimit != 0 {
		cfg.ReconnectLimit = r.ReconnectLimit
	}
	if r.ReconnectBaseDelay != 0 {
		cfg.ReconnectBaseDelay = r.ReconnectBaseDelay
	}
	if r.ReconnectMaxDelay != 0 {
		cfg.ReconnectMaxDelay = r.ReconnectMaxDelay
	}
	if r.PingInterval != 0 {
		cfg.PingInterval = r.PingInterval
	}
	if r.PingTimeout != 0 {
		cfg.PingTimeout = r.PingTimeout
	}
	return cfg
}

// DBConfig holds the Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SinkConfig holds the capture writer settings.
type SinkConfig struct {
	Table         string        `yaml:"table"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
