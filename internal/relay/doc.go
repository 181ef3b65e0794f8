// Package relay implements the fan-out primitives behind a connection's
// message relay.
//
// Hub delivers one published value to every registered subscriber,
// synchronously, in registration order. Backlog is the holding area for
// payloads that arrive before anyone has subscribed; it drains newest-first.
package relay
