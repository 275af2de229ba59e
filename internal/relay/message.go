// ABOUTME: Message router: validates, persists and delivers direct and broadcast messages.
// ABOUTME: Offline recipients are soft failures, served later by the history query.

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/2389/wallboard-relay/internal/identity"
	"github.com/2389/wallboard-relay/internal/protocol"
	"github.com/2389/wallboard-relay/internal/registry"
	"github.com/2389/wallboard-relay/internal/store"
)

// SubmitRequest is one inbound message submission. Exactly one of ToCode
// and ToTeamID must be set, matching Kind.
type SubmitRequest struct {
	ToCode   string
	ToTeamID *int
	Content  string
	Kind     string
	Priority string
}

// MessageRouter accepts messages, persists them, and pushes them to the
// recipients who are currently online.
type MessageRouter struct {
	registry *registry.Registry
	sink     store.Sink
	logger   *slog.Logger
}

// NewMessageRouter creates a message router over the registry and sink.
func NewMessageRouter(reg *registry.Registry, sink store.Sink, logger *slog.Logger) *MessageRouter {
	return &MessageRouter{
		registry: reg,
		sink:     sink,
		logger:   logger.With("component", "message_router"),
	}
}

// Submit validates and persists a message from the given sender, then
// delivers it. Direct messages go to the single recipient if online;
// broadcasts go to every other member of the target team. An offline
// recipient is not an error. The returned message carries the persisted ID
// and timestamp.
func (r *MessageRouter) Submit(ctx context.Context, from identity.Identity, req SubmitRequest) (*store.Message, error) {
	if from.Code == "" {
		return nil, newError(KindMissingField, "sender code is required")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, newError(KindInvalidMessage, "content is required")
	}
	if utf8.RuneCountInString(content) > store.MaxContentLength {
		return nil, newError(KindInvalidMessage,
			fmt.Sprintf("content exceeds %d characters", store.MaxContentLength))
	}

	kind := req.Kind
	if kind == "" {
		kind = store.KindDirect
	}
	if !store.ValidKind(kind) {
		return nil, newError(KindInvalidMessage, fmt.Sprintf("unknown kind %q", kind))
	}

	priority := req.Priority
	if priority == "" {
		priority = store.PriorityNormal
	}
	if !store.ValidPriority(priority) {
		return nil, newError(KindInvalidMessage, fmt.Sprintf("unknown priority %q", priority))
	}

	msg := &store.Message{
		FromCode: from.Code,
		Content:  content,
		Kind:     kind,
		Priority: priority,
	}
	switch kind {
	case store.KindDirect:
		if req.ToCode == "" {
			return nil, newError(KindInvalidMessage, "direct message requires a recipient code")
		}
		msg.ToCode = identity.NormalizeCode(req.ToCode)
	case store.KindBroadcast:
		if req.ToTeamID == nil {
			return nil, newError(KindInvalidMessage, "broadcast message requires a team")
		}
		msg.ToTeamID = req.ToTeamID
	}

	if err := r.sink.AppendMessage(ctx, msg); err != nil {
		r.logger.Error("message persist failed", "from", from.Code, "kind", kind, "error", err)
		return nil, &Error{Kind: KindPersistenceFailure, Message: fmt.Sprintf("persisting message: %v", err)}
	}

	r.deliver(msg)
	return msg, nil
}

// deliver pushes a persisted message to its online recipients.
func (r *MessageRouter) deliver(msg *store.Message) {
	ev := protocol.New(protocol.TypeNewMessage, protocol.NewMessage{
		MessageID: msg.ID,
		FromCode:  msg.FromCode,
		ToCode:    msg.ToCode,
		ToTeamID:  msg.ToTeamID,
		Content:   msg.Content,
		Kind:      msg.Kind,
		Priority:  msg.Priority,
		Timestamp: msg.Timestamp,
	})

	switch msg.Kind {
	case store.KindDirect:
		conn, ok := r.registry.Lookup(msg.ToCode)
		if !ok {
			// Offline recipient, message waits in history
			r.logger.Debug("recipient offline", "message_id", msg.ID, "to", msg.ToCode)
			return
		}
		if err := conn.Send(ev); err != nil {
			r.logger.Debug("recipient unreachable", "message_id", msg.ID, "to", msg.ToCode, "error", err)
			return
		}
		r.logger.Info("message delivered", "message_id", msg.ID, "from", msg.FromCode, "to", msg.ToCode)

	case store.KindBroadcast:
		targets := excludeCode(filterTeam(r.registry.Connections(), *msg.ToTeamID), msg.FromCode)
		delivered := fanOut(r.logger, targets, ev)
		r.logger.Info("broadcast delivered",
			"message_id", msg.ID,
			"from", msg.FromCode,
			"team_id", *msg.ToTeamID,
			"recipients", delivered,
		)
	}
}
