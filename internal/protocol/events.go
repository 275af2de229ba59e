// ABOUTME: Wire-level event envelope and payload types for wallboard connections
// ABOUTME: Payload field names keep the original frontend's camelCase JSON contract

package protocol

import (
	"encoding/json"
	"time"
)

// Outbound event types pushed by the relay.
const (
	TypeConnectionAck     = "connection_ack"
	TypeAgentConnected    = "agent_connected"
	TypeAgentDisconnected = "agent_disconnected"
	TypeStatusAck         = "status_ack"
	TypeAgentStatusUpdate = "agent_status_update"
	TypeMessageAck        = "message_ack"
	TypeNewMessage        = "new_message"
	TypeError             = "error"
)

// Inbound event types accepted from a connected client. Connect is implicit
// in the authenticated WebSocket upgrade, so it has no inbound event.
const (
	TypeSubmitStatus  = "submit_status"
	TypeSubmitMessage = "submit_message"
	TypeDisconnect    = "disconnect"
)

// Event is the envelope for every outbound push.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New builds an outbound event stamped with the current UTC time.
func New(eventType string, payload any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ClientEvent is the inbound envelope. The payload is decoded per type by
// the transport.
type ClientEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ConnectionAck confirms a successful connect handshake.
type ConnectionAck struct {
	Code   string `json:"code"`
	Role   string `json:"role"`
	TeamID *int   `json:"teamId,omitempty"`
	Status string `json:"status"`
}

// PresenceChange announces an agent joining or leaving the wallboard.
type PresenceChange struct {
	AgentCode string    `json:"agentCode"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusUpdate carries a persisted status transition. The same payload is
// used for the supervisor broadcast and the originator's status_ack so both
// reference the identical persisted record.
type StatusUpdate struct {
	EventID   string    `json:"eventId"`
	AgentCode string    `json:"agentCode"`
	Status    string    `json:"status"`
	TeamID    *int      `json:"teamId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage is the recipient-side view of a persisted message.
type NewMessage struct {
	MessageID string    `json:"messageId"`
	FromCode  string    `json:"fromCode"`
	ToCode    string    `json:"toCode,omitempty"`
	ToTeamID  *int      `json:"toTeamId,omitempty"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	Priority  string    `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageAck confirms persistence of a submitted message to its sender.
// Delivery to live recipients is best-effort and not reflected here.
type MessageAck struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload reports a failed operation back to the originating client.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SubmitStatus is the inbound payload for submit_status.
type SubmitStatus struct {
	Status string `json:"status"`
}

// SubmitMessage is the inbound payload for submit_message.
type SubmitMessage struct {
	ToCode   string `json:"toCode,omitempty"`
	ToTeamID *int   `json:"toTeamId,omitempty"`
	Content  string `json:"content"`
	Kind     string `json:"kind"`
	Priority string `json:"priority,omitempty"`
}
