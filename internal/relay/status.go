// ABOUTME: Status router: validates, persists and broadcasts agent status changes.
// ABOUTME: Supervisors receive every status update; the agent gets the persisted record back.

package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/wallboard-relay/internal/identity"
	"github.com/2389/wallboard-relay/internal/protocol"
	"github.com/2389/wallboard-relay/internal/registry"
	"github.com/2389/wallboard-relay/internal/store"
)

// StatusRouter accepts status transitions, persists them, and fans the
// resulting event out to every connected supervisor.
type StatusRouter struct {
	registry *registry.Registry
	sink     store.Sink
	logger   *slog.Logger
}

// NewStatusRouter creates a status router over the registry and sink.
func NewStatusRouter(reg *registry.Registry, sink store.Sink, logger *slog.Logger) *StatusRouter {
	return &StatusRouter{
		registry: reg,
		sink:     sink,
		logger:   logger.With("component", "status_router"),
	}
}

// SubmitStatus validates and persists a status transition for id, then
// broadcasts it to all supervisors. Nothing is broadcast unless the write
// succeeded. The returned event carries the persisted ID and timestamp, so
// the caller's acknowledgement and the supervisor broadcast agree.
func (r *StatusRouter) SubmitStatus(ctx context.Context, id identity.Identity, status string) (*store.StatusEvent, error) {
	if id.Code == "" {
		return nil, newError(KindMissingField, "agent code is required")
	}
	if status == "" {
		return nil, newError(KindMissingField, "status is required")
	}
	if !store.ValidStatus(status) {
		return nil, newError(KindInvalidStatus, fmt.Sprintf("unknown status %q", status))
	}

	ev := &store.StatusEvent{
		AgentCode: id.Code,
		Status:    status,
		TeamID:    id.TeamID,
	}
	if err := r.sink.AppendStatus(ctx, ev); err != nil {
		r.logger.Error("status persist failed", "code", id.Code, "status", status, "error", err)
		return nil, &Error{Kind: KindPersistenceFailure, Message: fmt.Sprintf("persisting status: %v", err)}
	}

	update := protocol.New(protocol.TypeAgentStatusUpdate, protocol.StatusUpdate{
		EventID:   ev.ID,
		AgentCode: ev.AgentCode,
		Status:    ev.Status,
		TeamID:    ev.TeamID,
		Timestamp: ev.Timestamp,
	})
	delivered := fanOut(r.logger, r.registry.Supervisors(), update)

	r.logger.Info("status update routed",
		"code", id.Code,
		"status", status,
		"event_id", ev.ID,
		"supervisors_notified", delivered,
	)
	return ev, nil
}
