// ABOUTME: Store interface and data types for wallboard-relay persistence
// ABOUTME: Defines StatusEvent, Message, AgentRecord and the append/history contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateAgent is returned when creating an agent whose code is taken
var ErrDuplicateAgent = errors.New("agent code already exists")

// Agent status values. Persisted verbatim; the relay validates against these
// before any write.
const (
	StatusAvailable = "Available"
	StatusBusy      = "Busy"
	StatusBreak     = "Break"
	StatusOffline   = "Offline"
)

// ValidStatus reports whether s is one of the four agent statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusBreak, StatusOffline:
		return true
	}
	return false
}

// Message kinds and priorities.
const (
	KindDirect    = "direct"
	KindBroadcast = "broadcast"

	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// ValidKind reports whether k is a known message kind.
func ValidKind(k string) bool {
	return k == KindDirect || k == KindBroadcast
}

// ValidPriority reports whether p is a known message priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// MaxContentLength is the maximum message content length after trimming.
const MaxContentLength = 500

// StatusEvent is one persisted status transition. ID and Timestamp are
// assigned by the sink on append and are immutable afterwards.
type StatusEvent struct {
	ID        string
	AgentCode string
	Status    string
	TeamID    *int
	Timestamp time.Time
}

// Message is one persisted direct or team-broadcast message. Exactly one of
// ToCode/ToTeamID is set, determined by Kind. ID and Timestamp are assigned
// by the sink on append.
type Message struct {
	ID        string
	FromCode  string
	ToCode    string
	ToTeamID  *int
	Content   string
	Kind      string
	Priority  string
	IsRead    bool
	ReadAt    *time.Time
	Timestamp time.Time
}

// AgentRecord is a directory entry for an agent or supervisor.
type AgentRecord struct {
	Code     string
	Name     string
	Role     string
	TeamID   *int
	TeamName string
	Email    string
}

// Sink is the append-only write surface the relay routers depend on. Both
// appends assign the record ID and accepted timestamp on the passed value
// and must be durable before returning nil.
type Sink interface {
	AppendStatus(ctx context.Context, ev *StatusEvent) error
	AppendMessage(ctx context.Context, msg *Message) error
}

// Store is the full persistence surface: the relay's sink plus the
// directory and history queries served by the HTTP API.
type Store interface {
	Sink

	// Agent directory
	GetAgent(ctx context.Context, code string) (*AgentRecord, error)
	ListTeamAgents(ctx context.Context, teamID int) ([]*AgentRecord, error)
	CreateAgent(ctx context.Context, rec *AgentRecord) error

	// History
	ListStatusHistory(ctx context.Context, agentCode string, limit int) ([]*StatusEvent, error)
	ListAgentMessages(ctx context.Context, agentCode string, teamID *int, unreadOnly bool, limit int) ([]*Message, error)
	MarkMessageRead(ctx context.Context, messageID string) (*Message, error)

	// Ping reports whether the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
