// Package server wires the relay together and exposes its HTTP surface.
//
// One listener carries three things: health endpoints (/health,
// /health/ready), the websocket entry point (/ws) and the REST API under
// /api. REST writes go through the same relay routers as websocket
// submissions, so a status change made over HTTP still reaches connected
// supervisors live.
//
// The REST envelope is {"success": bool, "data": ...} on success and
// {"success": false, "error": "..."} on failure, with camelCase payloads
// throughout.
//
// Run blocks until the context is cancelled or the listener fails, then
// shuts down with a five second grace period.
package server
