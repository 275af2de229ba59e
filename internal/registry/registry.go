// ABOUTME: Tracks connected agents and supervisors, keyed by normalized code.
// ABOUTME: Central coordinator for who is online and where to deliver events.

package registry

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/wallboard-relay/internal/identity"
	"github.com/2389/wallboard-relay/internal/protocol"
)

// ErrDuplicateIdentity indicates a connection with the same code is already registered.
var ErrDuplicateIdentity = errors.New("identity already connected")

// Sender delivers one event to a single connected client. Implementations
// must be safe for concurrent use; the registry fan-out may call Send from
// multiple goroutines.
type Sender interface {
	Send(ev protocol.Event) error
}

// Connection is one live client tracked by the registry.
type Connection struct {
	Identity    identity.Identity
	ConnectedAt time.Time
	sender      Sender
}

// NewConnection pairs an authenticated identity with its transport sender.
func NewConnection(id identity.Identity, sender Sender) *Connection {
	return &Connection{
		Identity:    id,
		ConnectedAt: time.Now().UTC(),
		sender:      sender,
	}
}

// Send delivers an event over the connection's transport.
func (c *Connection) Send(ev protocol.Event) error {
	return c.sender.Send(ev)
}

// Registry tracks all connected agents and supervisors. A code is present
// in at most one of the two maps; a single lock keeps that invariant atomic.
type Registry struct {
	mu          sync.RWMutex
	agents      map[string]*Connection
	supervisors map[string]*Connection
	logger      *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		agents:      make(map[string]*Connection),
		supervisors: make(map[string]*Connection),
		logger:      logger.With("component", "registry"),
	}
}

// Register adds a connection under its identity's code.
// Returns ErrDuplicateIdentity if the code is already connected in either role.
func (r *Registry) Register(conn *Connection) error {
	code := conn.Identity.Code

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[code]; exists {
		return ErrDuplicateIdentity
	}
	if _, exists := r.supervisors[code]; exists {
		return ErrDuplicateIdentity
	}

	if conn.Identity.Role == identity.RoleSupervisor {
		r.supervisors[code] = conn
	} else {
		r.agents[code] = conn
	}

	r.logger.Info("client connected",
		"code", code,
		"role", conn.Identity.Role,
		"agents_online", len(r.agents),
		"supervisors_online", len(r.supervisors),
	)
	return nil
}

// Unregister removes the connection for a code. It reports whether a
// connection was actually removed, so callers can make disconnect handling
// idempotent.
func (r *Registry) Unregister(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[code]; exists {
		delete(r.agents, code)
		r.logger.Info("agent disconnected", "code", code, "agents_online", len(r.agents))
		return true
	}
	if _, exists := r.supervisors[code]; exists {
		delete(r.supervisors, code)
		r.logger.Info("supervisor disconnected", "code", code, "supervisors_online", len(r.supervisors))
		return true
	}
	return false
}

// LookupAgent returns the connection for an agent code, if online.
func (r *Registry) LookupAgent(code string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.agents[code]
	return conn, ok
}

// Lookup returns the connection for a code in either role, if online.
func (r *Registry) Lookup(code string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if conn, ok := r.agents[code]; ok {
		return conn, true
	}
	conn, ok := r.supervisors[code]
	return conn, ok
}

// IsSupervisor reports whether a supervisor with the given code is connected.
func (r *Registry) IsSupervisor(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.supervisors[code]
	return ok
}

// Supervisors returns a snapshot of all connected supervisors. The slice is
// safe to iterate without holding the registry lock.
func (r *Registry) Supervisors() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.supervisors))
	for _, c := range r.supervisors {
		conns = append(conns, c)
	}
	return conns
}

// Connections returns a snapshot of every connected client, both roles.
func (r *Registry) Connections() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.agents)+len(r.supervisors))
	for _, c := range r.agents {
		conns = append(conns, c)
	}
	for _, c := range r.supervisors {
		conns = append(conns, c)
	}
	return conns
}

// Len returns the total number of connected clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.agents) + len(r.supervisors)
}
