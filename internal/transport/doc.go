// Package transport implements the underlying message-framed connection
// primitive over a WebSocket.
//
// A Client owns exactly one WebSocket for its lifetime. Inbound frames are
// delivered on the Messages channel in arrival order; the channel closes
// when the connection terminates for any reason. A terminal failure (as
// opposed to a deliberate Close) is reported once on the Errors channel
// before Messages closes.
package transport
