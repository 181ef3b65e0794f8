package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const flushTimeout = 10 * time.Second

// Writer consumes records and writes them to the captures table.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	db        *pgxpool.Pool
	insertSQL string

	// Input from the subscriber callback
	input chan Record

	// Batching
	batch   []Record
	batchMu sync.Mutex

	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats (guarded by batchMu)
	stats Stats
}

// NewWriter creates a new capture writer.
func NewWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		logger: logger,
		db:     db,
		insertSQL: fmt.Sprintf(
			"INSERT INTO %s (id, endpoint, structured, payload, received_at) VALUES ($1, $2, $3, $4, $5)",
			cfg.Table,
		),
		input: make(chan Record, cfg.BufferSize),
		batch: make([]Record, 0, cfg.BatchSize),
	}
}

// Start begins consuming records and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("capture writer started",
		"table", w.cfg.Table,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping capture writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("capture writer stopped")
	case <-ctx.Done():
		w.logger.Warn("capture writer stop timed out")
	}

	// Final flush
	w.flush()

	return nil
}

// Enqueue hands a record to the writer without blocking. Returns false
// when the input buffer is full and the record was dropped.
func (w *Writer) Enqueue(rec Record) bool {
	select {
	case w.input <- rec:
		w.batchMu.Lock()
		w.stats.Enqueued++
		w.batchMu.Unlock()
		return true
	default:
		w.batchMu.Lock()
		w.stats.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("capture buffer full, dropping record")
		return false
	}
}

// Stats returns current metrics.
func (w *Writer) Stats() Stats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// consumeLoop reads records and accumulates batches.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case rec := <-w.input:
			w.handleRecord(rec)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// handleRecord adds a record to the batch, flushing when full.
func (w *Writer) handleRecord(rec Record) {
	w.batchMu.Lock()
	w.batch = append(w.batch, rec)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]Record, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if w.db == nil {
		return
	}

	b := &pgx.Batch{}
	for _, rec := range batch {
		b.Queue(w.insertSQL, rec.ID, rec.Endpoint, rec.Structured, rec.Payload, rec.ReceivedAt)
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	start := time.Now()
	br := w.db.SendBatch(ctx, b)

	var failed int64
	for range batch {
		if _, err := br.Exec(); err != nil {
			failed++
		}
	}
	if err := br.Close(); err != nil {
		w.logger.Error("batch close failed", "error", err)
	}

	w.batchMu.Lock()
	w.stats.Batches++
	w.stats.Written += int64(len(batch)) - failed
	w.stats.Failed += failed
	w.batchMu.Unlock()

	if failed > 0 {
		w.logger.Warn("batch partially failed",
			"rows", len(batch),
			"failed", failed,
		)
	}

	w.logger.Debug("batch flushed",
		"rows", len(batch),
		"duration", time.Since(start),
	)
}
