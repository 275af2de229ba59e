// ABOUTME: Presence broadcaster for connect and disconnect notifications.
// ABOUTME: Publishes agent_connected/agent_disconnected to every other connection.

package relay

import (
	"log/slog"
	"time"

	"github.com/2389/wallboard-relay/internal/protocol"
	"github.com/2389/wallboard-relay/internal/registry"
)

// Presence publishes connect and disconnect notifications over the
// registry. Both are best-effort pushes; presence carries no persistence.
type Presence struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewPresence creates a presence broadcaster over the given registry.
func NewPresence(reg *registry.Registry, logger *slog.Logger) *Presence {
	return &Presence{
		registry: reg,
		logger:   logger.With("component", "presence"),
	}
}

// AgentConnected notifies every connection except the originator that a
// client came online.
func (p *Presence) AgentConnected(code string) {
	ev := protocol.New(protocol.TypeAgentConnected, protocol.PresenceChange{
		AgentCode: code,
		Timestamp: time.Now().UTC(),
	})

	targets := excludeCode(p.registry.Connections(), code)
	delivered := fanOut(p.logger, targets, ev)
	p.logger.Debug("presence broadcast", "event", ev.Type, "code", code, "delivered", delivered)
}

// AgentDisconnected notifies every remaining connection that a client went
// offline. The caller guarantees the registry entry is already removed, so
// the snapshot never includes the departed client.
func (p *Presence) AgentDisconnected(code string) {
	ev := protocol.New(protocol.TypeAgentDisconnected, protocol.PresenceChange{
		AgentCode: code,
		Timestamp: time.Now().UTC(),
	})

	targets := excludeCode(p.registry.Connections(), code)
	delivered := fanOut(p.logger, targets, ev)
	p.logger.Debug("presence broadcast", "event", ev.Type, "code", code, "delivered", delivered)
}
