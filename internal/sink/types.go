package sink

import (
	"time"

	"github.com/google/uuid"
)

// Record is one captured message destined for the database.
type Record struct {
	ID         uuid.UUID // Primary key, assigned locally
	Endpoint   string    // Endpoint the message arrived on
	Structured bool      // Whether the payload decoded as JSON
	Payload    []byte    // Raw payload bytes
	ReceivedAt time.Time // Local receive timestamp
}

// NewRecord builds a Record with a fresh ID.
func NewRecord(endpoint string, structured bool, payload []byte, receivedAt time.Time) Record {
	return Record{
		ID:         uuid.New(),
		Endpoint:   endpoint,
		Structured: structured,
		Payload:    payload,
		ReceivedAt: receivedAt,
	}
}

// Config holds capture writer settings.
type Config struct {
	Table         string        // Destination table
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a record waits in a batch
	BufferSize    int           // Input channel capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:         "captured_messages",
		BatchSize:     500,
		FlushInterval: 1 * time.Second,
		BufferSize:    10000,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Enqueued int64
	Dropped  int64
	Written  int64
	Failed   int64
	Batches  int64
}
