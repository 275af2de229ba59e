// ABOUTME: Transport-independent fan-out over a registry snapshot.
// ABOUTME: Delivery is best-effort and independent per recipient.

package relay

import (
	"log/slog"

	"github.com/2389/wallboard-relay/internal/protocol"
	"github.com/2389/wallboard-relay/internal/registry"
)

// fanOut sends an event to every connection in the snapshot and returns the
// number of successful deliveries. A send failure to one recipient never
// aborts delivery to the rest.
func fanOut(logger *slog.Logger, conns []*registry.Connection, ev protocol.Event) int {
	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(ev); err != nil {
			logger.Debug("dropped event for unreachable recipient",
				"code", conn.Identity.Code,
				"event", ev.Type,
				"error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// excludeCode filters a snapshot down to every connection except the one
// with the given code.
func excludeCode(conns []*registry.Connection, code string) []*registry.Connection {
	out := make([]*registry.Connection, 0, len(conns))
	for _, conn := range conns {
		if conn.Identity.Code == code {
			continue
		}
		out = append(out, conn)
	}
	return out
}

// filterTeam keeps only connections whose identity belongs to teamID.
func filterTeam(conns []*registry.Connection, teamID int) []*registry.Connection {
	out := make([]*registry.Connection, 0, len(conns))
	for _, conn := range conns {
		if conn.Identity.TeamID != nil && *conn.Identity.TeamID == teamID {
			out = append(out, conn)
		}
	}
	return out
}
