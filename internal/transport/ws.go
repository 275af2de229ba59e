// ABOUTME: Websocket entry point: authenticates, registers and drives the per-client read loop
// ABOUTME: Translates inbound frames into relay operations and failures into error events

package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/wallboard-relay/internal/auth"
	"github.com/2389/wallboard-relay/internal/identity"
	"github.com/2389/wallboard-relay/internal/protocol"
	"github.com/2389/wallboard-relay/internal/registry"
	"github.com/2389/wallboard-relay/internal/relay"
	"github.com/2389/wallboard-relay/internal/store"
)

// makeUpgrader creates a WebSocket upgrader with origin checking.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// Options configures the websocket handler.
type Options struct {
	Registry        *registry.Registry
	Presence        *relay.Presence
	Status          *relay.StatusRouter
	Messages        *relay.MessageRouter
	Verifier        auth.TokenVerifier
	Store           store.Store
	AllowedOrigins  []string
	MaxMessageBytes int64
	Logger          *slog.Logger
}

// Handler upgrades wallboard clients to websocket connections and runs
// their event loops.
type Handler struct {
	registry *registry.Registry
	presence *relay.Presence
	status   *relay.StatusRouter
	messages *relay.MessageRouter
	verifier auth.TokenVerifier
	store    store.Store
	upgrader websocket.Upgrader
	maxBytes int64
	logger   *slog.Logger
}

// NewHandler creates the websocket handler.
func NewHandler(opts Options) *Handler {
	maxBytes := opts.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = 4096
	}
	return &Handler{
		registry: opts.Registry,
		presence: opts.Presence,
		status:   opts.Status,
		messages: opts.Messages,
		verifier: opts.Verifier,
		store:    opts.Store,
		upgrader: makeUpgrader(opts.AllowedOrigins),
		maxBytes: maxBytes,
		logger:   opts.Logger.With("component", "transport"),
	}
}

// ServeHTTP handles the websocket handshake at GET /ws.
//
// The JWT arrives as a query parameter or Authorization header. Browsers
// cannot set custom headers during the websocket handshake, so the query
// parameter path is the normal one; keep access logs free of query strings.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		tokenStr = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	id, err := h.verifier.Verify(tokenStr)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ws := newWSConn(conn)

	entry := registry.NewConnection(id, ws)
	if err := h.registry.Register(entry); err != nil {
		h.logger.Warn("duplicate connection rejected", "code", id.Code)
		h.sendRelayError(ws, err)
		ws.closeWith(websocket.ClosePolicyViolation, "duplicate identity")
		return
	}

	// Cleanup is idempotent: whichever path runs first (explicit disconnect
	// or read-loop exit) broadcasts, later ones find nothing to remove. A
	// departure is only announced once the arrival was, so a connection that
	// dies before its ack never produces a lone agent_disconnected.
	announced := false
	defer func() {
		if h.registry.Unregister(id.Code) && announced {
			h.presence.AgentDisconnected(id.Code)
		}
	}()

	if err := ws.Send(protocol.New(protocol.TypeConnectionAck, protocol.ConnectionAck{
		Code:   id.Code,
		Role:   string(id.Role),
		TeamID: id.TeamID,
		Status: h.lastKnownStatus(r.Context(), id.Code),
	})); err != nil {
		h.logger.Warn("connection ack failed", "code", id.Code, "error", err)
		return
	}

	// Supervisors watch silently; only agents announce presence.
	if id.Role == identity.RoleAgent {
		h.presence.AgentConnected(id.Code)
		announced = true
	}

	conn.SetReadLimit(h.maxBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepalive(ws, id.Code, done)

	h.readLoop(r.Context(), ws, id)
}

// unregister removes the connection and, for agents, broadcasts the
// departure. Only the call that actually removed the entry broadcasts.
func (h *Handler) unregister(id identity.Identity) {
	if h.registry.Unregister(id.Code) && id.Role == identity.RoleAgent {
		h.presence.AgentDisconnected(id.Code)
	}
}

// keepalive pings the peer until the connection's read loop exits.
func (h *Handler) keepalive(ws *wsConn, code string, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ws.ping(); err != nil {
				h.logger.Debug("ping failed", "code", code, "error", err)
				return
			}
		}
	}
}

// readLoop consumes inbound frames until the peer goes away or asks to leave.
func (h *Handler) readLoop(ctx context.Context, ws *wsConn, id identity.Identity) {
	for {
		_, msg, err := ws.conn.ReadMessage()
		if err != nil {
			h.logger.Debug("read loop ended", "code", id.Code, "error", err)
			return
		}
		_ = ws.conn.SetReadDeadline(time.Now().Add(pongWait))

		var ev protocol.ClientEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			h.logger.Warn("invalid frame", "code", id.Code, "error", err)
			h.sendError(ws, relay.KindInvalidMessage, "malformed event")
			continue
		}

		switch ev.Type {
		case protocol.TypeSubmitStatus:
			h.handleSubmitStatus(ctx, ws, id, ev.Payload)

		case protocol.TypeSubmitMessage:
			h.handleSubmitMessage(ctx, ws, id, ev.Payload)

		case protocol.TypeDisconnect:
			h.unregister(id)
			return

		default:
			h.logger.Warn("unknown event type", "code", id.Code, "type", ev.Type)
			h.sendError(ws, relay.KindInvalidMessage, "unknown event type "+ev.Type)
		}
	}
}

func (h *Handler) handleSubmitStatus(ctx context.Context, ws *wsConn, id identity.Identity, payload json.RawMessage) {
	var req protocol.SubmitStatus
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(ws, relay.KindInvalidMessage, "malformed status payload")
		return
	}

	ev, err := h.status.SubmitStatus(ctx, id, req.Status)
	if err != nil {
		h.sendRelayError(ws, err)
		return
	}

	// Ack carries the same persisted ID and timestamp the supervisors saw
	_ = ws.Send(protocol.New(protocol.TypeStatusAck, protocol.StatusUpdate{
		EventID:   ev.ID,
		AgentCode: ev.AgentCode,
		Status:    ev.Status,
		TeamID:    ev.TeamID,
		Timestamp: ev.Timestamp,
	}))
}

func (h *Handler) handleSubmitMessage(ctx context.Context, ws *wsConn, id identity.Identity, payload json.RawMessage) {
	var req protocol.SubmitMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(ws, relay.KindInvalidMessage, "malformed message payload")
		return
	}

	msg, err := h.messages.Submit(ctx, id, relay.SubmitRequest{
		ToCode:   req.ToCode,
		ToTeamID: req.ToTeamID,
		Content:  req.Content,
		Kind:     req.Kind,
		Priority: req.Priority,
	})
	if err != nil {
		h.sendRelayError(ws, err)
		return
	}

	_ = ws.Send(protocol.New(protocol.TypeMessageAck, protocol.MessageAck{
		MessageID: msg.ID,
		Timestamp: msg.Timestamp,
	}))
}

// sendRelayError maps a classified relay failure onto a wire error event.
func (h *Handler) sendRelayError(ws *wsConn, err error) {
	kind, ok := relay.Classify(err)
	if !ok {
		kind = relay.KindPersistenceFailure
	}
	h.sendError(ws, kind, err.Error())
}

func (h *Handler) sendError(ws *wsConn, kind relay.Kind, msg string) {
	_ = ws.Send(protocol.New(protocol.TypeError, protocol.ErrorPayload{
		Kind:    string(kind),
		Message: msg,
	}))
}

// lastKnownStatus returns the most recent persisted status for a code, or
// Available for agents yet to report one.
func (h *Handler) lastKnownStatus(ctx context.Context, code string) string {
	events, err := h.store.ListStatusHistory(ctx, code, 1)
	if err != nil || len(events) == 0 {
		return store.StatusAvailable
	}
	return events[0].Status
}
