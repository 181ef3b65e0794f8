package wsrelay

import (
	"net/http"
	"time"

	"github.com/dtrask/wsrelay/internal/transport"
)

// Config configures a Manager's connection behavior. It is supplied at
// connect time and retained for every automatic reconnect until the next
// Connect call that overrides it.
type Config struct {
	// AutoReconnect enables bounded reconnection after a transport
	// error. Deliberate Close never reconnects.
	AutoReconnect bool

	// ReconnectLimit caps how many reconnect attempts follow one
	// transport failure.
	ReconnectLimit uint

	// ReconnectBaseDelay and ReconnectMaxDelay bound the exponential
	// backoff between reconnect attempts.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// Transport tuning
	Header           http.Header
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	PingTimeout      time.Duration
	BufferSize       int
}

// DefaultConfig returns sensible defaults. Start from it when passing an
// override to Connect.
func DefaultConfig() Config {
	return Config{
		AutoReconnect:      true,
		ReconnectLimit:     5,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		HandshakeTimeout:   10 * time.Second,
		WriteTimeout:       5 * time.Second,
		PingInterval:       15 * time.Second,
		PingTimeout:        60 * time.Second,
		BufferSize:         256,
	}
}

// withDefaults fills zero-valued tuning fields. AutoReconnect and
// ReconnectLimit are taken as given.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = def.PingInterval
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = def.PingTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
	return c
}

// transportConfig maps connection settings onto the transport layer.
func (c Config) transportConfig(address string) transport.Config {
	return transport.Config{
		URL:              address,
		Header:           c.Header,
		HandshakeTimeout: c.HandshakeTimeout,
		WriteTimeout:     c.WriteTimeout,
		PingInterval:     c.PingInterval,
		PingTimeout:      c.PingTimeout,
		BufferSize:       c.BufferSize,
	}
}
