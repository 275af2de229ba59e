// ABOUTME: REST API handlers for login, agent directory, status and message history
// ABOUTME: Responses use a {success, data|error} envelope with camelCase fields

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/wallboard-relay/internal/auth"
	"github.com/2389/wallboard-relay/internal/identity"
	"github.com/2389/wallboard-relay/internal/relay"
	"github.com/2389/wallboard-relay/internal/store"
)

// apiResponse is the envelope for every REST response.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LoginRequest is the JSON request body for POST /api/auth/login.
type LoginRequest struct {
	Code string `json:"code"`
}

// LoginResponse is the JSON response for a successful login. Team is only
// populated for supervisors, who need their roster up front.
type LoginResponse struct {
	Token string          `json:"token"`
	Agent AgentResponse   `json:"agent"`
	Team  []AgentResponse `json:"team,omitempty"`
}

// AgentResponse is the JSON shape for one directory entry.
type AgentResponse struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TeamID   *int   `json:"teamId,omitempty"`
	TeamName string `json:"teamName,omitempty"`
	Email    string `json:"email,omitempty"`
	Online   bool   `json:"online"`
	Status   string `json:"status,omitempty"`
}

// UpdateStatusRequest is the JSON request body for PUT /api/agents/{code}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// StatusEventResponse is the JSON shape for one persisted status event.
type StatusEventResponse struct {
	ID        string    `json:"id"`
	AgentCode string    `json:"agentCode"`
	Status    string    `json:"status"`
	TeamID    *int      `json:"teamId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SendMessageRequest is the JSON request body for POST /api/messages/send.
type SendMessageRequest struct {
	ToCode   string `json:"toCode,omitempty"`
	ToTeamID *int   `json:"toTeamId,omitempty"`
	Content  string `json:"content"`
	Kind     string `json:"kind,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// MessageResponse is the JSON shape for one persisted message.
type MessageResponse struct {
	ID        string     `json:"id"`
	FromCode  string     `json:"fromCode"`
	ToCode    string     `json:"toCode,omitempty"`
	ToTeamID  *int       `json:"toTeamId,omitempty"`
	Content   string     `json:"content"`
	Kind      string     `json:"kind"`
	Priority  string     `json:"priority"`
	IsRead    bool       `json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Error: msg})
}

// writeRelayError maps a classified relay failure onto an HTTP status.
func writeRelayError(w http.ResponseWriter, err error) {
	kind, ok := relay.Classify(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch kind {
	case relay.KindPersistenceFailure:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func toStatusEventResponse(ev *store.StatusEvent) StatusEventResponse {
	return StatusEventResponse{
		ID:        ev.ID,
		AgentCode: ev.AgentCode,
		Status:    ev.Status,
		TeamID:    ev.TeamID,
		Timestamp: ev.Timestamp,
	}
}

func toMessageResponse(msg *store.Message) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		FromCode:  msg.FromCode,
		ToCode:    msg.ToCode,
		ToTeamID:  msg.ToTeamID,
		Content:   msg.Content,
		Kind:      msg.Kind,
		Priority:  msg.Priority,
		IsRead:    msg.IsRead,
		ReadAt:    msg.ReadAt,
		Timestamp: msg.Timestamp,
	}
}

// handleLogin handles POST /api/auth/login. Login is by code only: the
// directory entry determines role and team, and a token is issued for the
// configured lifetime.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code := identity.NormalizeCode(req.Code)
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	rec, err := s.store.GetAgent(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "unknown agent code")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "directory lookup failed")
		return
	}

	id := identity.Identity{Code: rec.Code, Role: identity.Role(rec.Role), TeamID: rec.TeamID}
	token, err := s.verifier.Issue(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}

	resp := LoginResponse{
		Token: token,
		Agent: s.toAgentResponse(r, rec),
	}
	if id.Role == identity.RoleSupervisor && rec.TeamID != nil {
		members, err := s.store.ListTeamAgents(r.Context(), *rec.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "roster lookup failed")
			return
		}
		resp.Team = make([]AgentResponse, 0, len(members))
		for _, m := range members {
			resp.Team = append(resp.Team, s.toAgentResponse(r, m))
		}
	}

	s.logger.Info("login", "code", rec.Code, "role", rec.Role)
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout handles POST /api/auth/logout. Tokens are stateless, so
// logout only confirms; clients drop the token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	s.logger.Info("logout", "code", id.Code)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleTeamAgents handles GET /api/agents/team/{teamID}, returning the
// directory entries for a team annotated with live presence.
func (s *Server) handleTeamAgents(w http.ResponseWriter, r *http.Request) {
	teamID, err := strconv.Atoi(r.PathValue("teamID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	records, err := s.store.ListTeamAgents(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing team agents failed")
		return
	}

	response := make([]AgentResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, s.toAgentResponse(r, rec))
	}
	writeJSON(w, http.StatusOK, response)
}

// toAgentResponse annotates a directory entry with presence and last status.
func (s *Server) toAgentResponse(r *http.Request, rec *store.AgentRecord) AgentResponse {
	_, online := s.registry.Lookup(rec.Code)

	status := store.StatusOffline
	if events, err := s.store.ListStatusHistory(r.Context(), rec.Code, 1); err == nil && len(events) > 0 {
		status = events[0].Status
	}

	return AgentResponse{
		Code:     rec.Code,
		Name:     rec.Name,
		Role:     rec.Role,
		TeamID:   rec.TeamID,
		TeamName: rec.TeamName,
		Email:    rec.Email,
		Online:   online,
		Status:   status,
	}
}

// handleUpdateStatus handles PUT /api/agents/{code}/status. Agents may only
// update their own status; supervisors may update anyone's. The update goes
// through the status router, so connected supervisors see it live.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())
	code := identity.NormalizeCode(r.PathValue("code"))

	if caller.Code != code && caller.Role != identity.RoleSupervisor {
		writeError(w, http.StatusForbidden, "cannot update another agent's status")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target := identity.Identity{Code: code, Role: identity.RoleAgent, TeamID: caller.TeamID}
	if rec, err := s.store.GetAgent(r.Context(), code); err == nil {
		target.Role = identity.Role(rec.Role)
		target.TeamID = rec.TeamID
	}

	ev, err := s.status.SubmitStatus(r.Context(), target, req.Status)
	if err != nil {
		writeRelayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusEventResponse(ev))
}

// handleStatusHistory handles GET /api/agents/{code}/history?limit=N.
func (s *Server) handleStatusHistory(w http.ResponseWriter, r *http.Request) {
	code := identity.NormalizeCode(r.PathValue("code"))
	limit := parseLimit(r, 50)

	events, err := s.store.ListStatusHistory(r.Context(), code, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing status history failed")
		return
	}

	response := make([]StatusEventResponse, 0, len(events))
	for _, ev := range events {
		response = append(response, toStatusEventResponse(ev))
	}
	writeJSON(w, http.StatusOK, response)
}

// handleSendMessage handles POST /api/messages/send. The message goes
// through the message router, so online recipients get a live push.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := s.messages.Submit(r.Context(), caller, relay.SubmitRequest{
		ToCode:   req.ToCode,
		ToTeamID: req.ToTeamID,
		Content:  req.Content,
		Kind:     req.Kind,
		Priority: req.Priority,
	})
	if err != nil {
		writeRelayError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageResponse(msg))
}

// handleAgentMessages handles GET /api/messages/agent/{code}?unread=true&limit=N.
// Agents may only read their own inbox; supervisors may read anyone's.
func (s *Server) handleAgentMessages(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())
	code := identity.NormalizeCode(r.PathValue("code"))

	if caller.Code != code && caller.Role != identity.RoleSupervisor {
		writeError(w, http.StatusForbidden, "cannot read another agent's messages")
		return
	}

	var teamID *int
	if rec, err := s.store.GetAgent(r.Context(), code); err == nil {
		teamID = rec.TeamID
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := parseLimit(r, 50)

	messages, err := s.store.ListAgentMessages(r.Context(), code, teamID, unreadOnly, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing messages failed")
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, toMessageResponse(msg))
	}
	writeJSON(w, http.StatusOK, response)
}

// handleMarkRead handles PUT /api/messages/{id}/read.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	msg, err := s.store.MarkMessageRead(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "marking message read failed")
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(msg))
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}
