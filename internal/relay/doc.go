// Package relay contains the routing core: presence, status and message
// routers fanning events out over the connection registry.
//
// All three routers share two rules. First, persisted-before-broadcast:
// nothing reaches any recipient until the durable write succeeded, so a
// persistence failure leaves no partial delivery behind. Second, fan-out
// operates on a registry snapshot and treats each recipient independently;
// one unreachable client never blocks the rest, and an offline direct
// recipient is a soft miss served later by the history query.
//
// Rejections are classified by the Error type; Classify recovers the Kind
// from a wrapped error chain so transports can map failures onto wire
// error payloads.
package relay
