// Package sink persists captured messages to Postgres in batches.
//
// A Writer accumulates records from a buffered input channel and flushes
// them with a single pgx batch either when the batch is full or on a
// fixed interval, whichever comes first.
package sink
