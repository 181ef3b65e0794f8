// Package wsrelay is a resilient client-side wrapper around a single
// persistent WebSocket connection.
//
// A Manager gives application code a stable publish/subscribe surface over
// an endpoint that may drop at any time: it reconnects automatically up to
// a configured bound, buffers inbound payloads until the first subscriber
// registers, and fans payloads out to every subscriber exactly once, in
// arrival order. Payloads are decoded as JSON when possible and passed
// through verbatim otherwise.
package wsrelay
