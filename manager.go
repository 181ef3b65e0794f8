package wsrelay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dtrask/wsrelay/internal/relay"
	"github.com/dtrask/wsrelay/internal/transport"
)

// dialFunc opens a transport to address. Swapped out in tests.
type dialFunc func(ctx context.Context, address string, cfg Config) (transport.Client, error)

// Manager governs exactly one logical connection at a time, replaced
// wholesale on reconnect. It composes the transport adapter, the bounded
// reconnection controller, and the message relay that buffers inbound
// payloads until someone subscribes.
type Manager struct {
	logger *slog.Logger
	dial   dialFunc

	// relayMu serializes inbound dispatch against subscriber
	// registration, so the backlog is always fully drained before a new
	// subscriber observes a live payload.
	relayMu sync.Mutex

	mu        sync.Mutex
	connected bool
	address   string
	cfg       Config
	client    transport.Client
	hub       *relay.Hub[Message]
	subs      []*relay.Subscription[Message]
	gen       uint64
	closing   bool

	// The backlog outlives individual connections: payloads still
	// buffered at termination carry into the next connection's relay.
	backlog *relay.Backlog[[]byte]

	reconnectAttempts atomic.Int64
	reconnects        atomic.Int64
}

// ManagerStats is a point-in-time snapshot of a Manager.
type ManagerStats struct {
	Connected         bool
	Subscribers       int
	BacklogDepth      int
	ReconnectAttempts int64
	Reconnects        int64
}

// NewManager creates a Manager with default configuration. A nil logger
// falls back to slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		logger:  logger,
		cfg:     DefaultConfig(),
		backlog: relay.NewBacklog[[]byte](16),
	}
	m.dial = func(ctx context.Context, address string, cfg Config) (transport.Client, error) {
		c := transport.NewClient(cfg.transportConfig(address), logger)
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
	return m
}

// Connect opens a transport to address and reports the outcome through
// its return value alone: false means the transport could not be opened,
// and no error is ever returned. An optional Config overrides the stored
// settings for this call and every automatic reconnect that follows;
// start from DefaultConfig when overriding. When Connect returns true
// the relay is fully initialized, so an immediate Subscribe never races
// its creation.
func (m *Manager) Connect(ctx context.Context, address string, cfg ...Config) bool {
	m.mu.Lock()
	m.closing = false
	if len(cfg) > 0 {
		m.cfg = cfg[0].withDefaults()
	}
	m.mu.Unlock()

	return m.open(ctx, address)
}

// open performs one connection attempt using the stored config. Shared
// by Connect and the reconnection controller.
func (m *Manager) open(ctx context.Context, address string) bool {
	m.mu.Lock()
	m.address = address
	conf := m.cfg
	dial := m.dial
	m.mu.Unlock()

	client, err := dial(ctx, address, conf)
	if err != nil {
		m.logger.Warn("connect failed", "address", address, "error", err)
		return false
	}

	m.relayMu.Lock()
	m.mu.Lock()
	if m.closing {
		// Close() raced the dial; do not resurrect the connection.
		m.mu.Unlock()
		m.relayMu.Unlock()
		client.Close()
		return false
	}
	oldClient := m.client
	oldHub := m.hub
	oldSubs := m.subs
	m.client = client
	m.hub = relay.NewHub[Message]()
	m.subs = nil
	m.connected = true
	m.gen++
	gen := m.gen
	m.mu.Unlock()
	m.relayMu.Unlock()

	// At most one transport exists at a time: a connect while connected
	// replaces the previous one wholesale.
	if oldHub != nil {
		oldHub.Complete()
	}
	for _, sub := range oldSubs {
		sub.Detach()
	}
	if oldClient != nil {
		oldClient.Close()
	}

	go m.watch(client, gen)

	m.logger.Info("connected", "address", address)
	return true
}

// Subscribe registers fn with the live connection's relay. Immediately
// after registration any backlogged payloads are delivered, newest
// first, before fn can observe a live payload. Subscribe returns
// ErrNotConnected when no connection has ever been made or the last one
// has terminated.
//
// Callbacks run synchronously on the delivery goroutine, in
// registration order. They must not block and must not call Subscribe.
func (m *Manager) Subscribe(fn func(Message)) error {
	m.relayMu.Lock()
	defer m.relayMu.Unlock()

	m.mu.Lock()
	hub := m.hub
	m.mu.Unlock()

	if hub == nil {
		return ErrNotConnected
	}

	sub := hub.Subscribe(fn)

	// Drain everything buffered before this subscriber existed,
	// decoding each entry independently at drain time.
	for {
		raw, ok := m.backlog.Pop()
		if !ok {
			break
		}
		hub.Publish(decodePayload(raw))
	}

	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	return nil
}

// Send transmits message on the open transport, fire-and-forget. With no
// open transport it silently does nothing. Strings and byte slices are
// sent unchanged; other values are JSON-marshaled, and a value that
// cannot be serialized fails with ErrInvalidMessage. Transmission-level
// failures are not reported here; they surface later as a connection
// error.
func (m *Manager) Send(message any) error {
	m.mu.Lock()
	client := m.client
	connected := m.connected
	m.mu.Unlock()

	if !connected || client == nil {
		return nil
	}

	data, err := encodePayload(message)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if err := client.Send(data); err != nil {
		m.logger.Warn("send failed", "error", err)
	}
	return nil
}

// Close requests deliberate termination of the active transport, if any;
// teardown itself runs on the transport's own termination event. Close
// also ends an in-flight reconnect sequence before its next attempt.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closing = true
	client := m.client
	m.mu.Unlock()

	if client != nil {
		client.Close()
	}
}

// IsConnected reports whether the transport is currently open and usable.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	connected := m.connected
	subscribers := len(m.subs)
	m.mu.Unlock()

	return ManagerStats{
		Connected:         connected,
		Subscribers:       subscribers,
		BacklogDepth:      m.backlog.Len(),
		ReconnectAttempts: m.reconnectAttempts.Load(),
		Reconnects:        m.reconnects.Load(),
	}
}

// watch consumes one transport's inbound events until it terminates. It
// is the only goroutine delivering payloads for its connection, so
// arrival order is preserved end to end.
func (m *Manager) watch(client transport.Client, gen uint64) {
	for raw := range client.Messages() {
		m.dispatch(raw)
	}

	var cause error
	select {
	case cause = <-client.Errors():
	default:
	}

	if !m.teardown(gen) {
		return // superseded by a newer connection
	}

	if cause == nil {
		return // deliberate close, no reconnect
	}

	m.logger.Warn("connection lost", "error", cause)
	m.reconnect()
}

// dispatch routes one raw inbound payload: buffered while no subscriber
// exists, decoded and fanned out otherwise.
func (m *Manager) dispatch(raw []byte) {
	m.relayMu.Lock()
	defer m.relayMu.Unlock()

	m.mu.Lock()
	hub := m.hub
	idle := len(m.subs) == 0
	m.mu.Unlock()

	if hub == nil {
		return
	}
	if idle {
		// Decoding is deferred until drain time.
		m.backlog.Push(raw)
		return
	}
	hub.Publish(decodePayload(raw))
}

// teardown releases all per-connection relay state. Returns false when
// gen is stale, i.e. the connection was already replaced.
func (m *Manager) teardown(gen uint64) bool {
	m.relayMu.Lock()
	defer m.relayMu.Unlock()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return false
	}
	m.connected = false
	hub := m.hub
	m.hub = nil
	m.client = nil
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	if hub != nil {
		hub.Complete()
	}
	for _, sub := range subs {
		sub.Detach()
	}
	// The backlog is deliberately left as-is.
	return true
}

// reconnect is the bounded retry loop run after a transport error. Each
// attempt fully awaits the previous one; the sequence stops on the first
// success, when the limit is exhausted, or when Close is called.
func (m *Manager) reconnect() {
	m.mu.Lock()
	address := m.address
	conf := m.cfg // read once; the bound does not move mid-sequence
	m.mu.Unlock()

	if address == "" || !conf.AutoReconnect {
		return
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = conf.ReconnectBaseDelay
	bo.MaxInterval = conf.ReconnectMaxDelay
	bo.MaxElapsedTime = 0

	for attempt := uint(1); attempt <= conf.ReconnectLimit; attempt++ {
		if m.isClosing() {
			m.logger.Info("reconnect abandoned, connection closed")
			return
		}

		time.Sleep(bo.NextBackOff())

		m.logger.Info("attempting reconnection",
			"address", address,
			"attempt", attempt,
			"limit", conf.ReconnectLimit,
		)
		m.reconnectAttempts.Add(1)

		if m.open(context.Background(), address) {
			m.reconnects.Add(1)
			return
		}
	}

	m.logger.Warn("reconnect limit reached, giving up",
		"address", address,
		"limit", conf.ReconnectLimit,
	)
}

func (m *Manager) isClosing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closing
}
