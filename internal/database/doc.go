// Package database manages the Postgres connection pool used by the
// capture sink.
package database
