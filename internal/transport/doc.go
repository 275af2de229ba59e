// Package transport carries the websocket side of the relay.
//
// A client connects to GET /ws with a JWT (query parameter or bearer
// header). After verification the handler registers the identity, sends
// connection_ack, announces presence, and runs a read loop dispatching
// submit_status, submit_message and disconnect frames to the relay
// routers. Relay rejections come back as error events carrying the
// failure kind.
//
// Keepalive is websocket-level: a ping every pingPeriod, a read deadline
// refreshed by pongs and inbound frames. Writes go through a per-connection
// mutex since the relay fan-out may hit one socket from many goroutines.
//
// Disconnect handling is idempotent. The registry reports whether an entry
// was actually removed, and only that caller broadcasts agent_disconnected,
// so an explicit disconnect frame followed by the socket closing never
// double-notifies.
package transport
