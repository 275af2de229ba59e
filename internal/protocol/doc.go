// Package protocol defines the wire format shared by the websocket
// transport and the relay core: the outbound Event envelope, inbound
// ClientEvent frames, and the typed payloads for presence, status and
// message events. All JSON field names are camelCase to match the
// wallboard clients.
package protocol
