// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wingedpig/gemini-desktop/internal/acp"
)

// SessionHandler exposes the session supervisor (C5/C8) over HTTP.
type SessionHandler struct {
	manager *acp.Manager
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(manager *acp.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

type createSessionRequest struct {
	SessionID       string   `json:"sessionId"`
	WorkDir         string   `json:"workDir"`
	Command         string   `json:"command"`
	Model           string   `json:"model"`
	ProtocolVersion string   `json:"protocolVersion"`
	ExtraArgs       []string `json:"extraArgs"`
}

// Create spawns a new agent CLI session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.Command == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "sessionId and command are required")
		return
	}

	spec := acp.AgentSpec{
		Command:         req.Command,
		Model:           req.Model,
		ProtocolVersion: req.ProtocolVersion,
		ExtraArgs:       req.ExtraArgs,
	}

	if _, err := h.manager.Create(req.SessionID, req.WorkDir, spec); err != nil {
		writeSessionError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"sessionId": req.SessionID})
}

// List returns the status of every tracked session.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.manager.Statuses())
}

type sendMessageRequest struct {
	ID     uint32            `json:"id"`
	Chunks []acp.MessageChunk `json:"chunks"`
}

// Send delivers a sendUserMessage turn to a running session.
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body")
		return
	}
	if len(req.Chunks) == 0 {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "chunks must not be empty")
		return
	}

	if err := h.manager.SendTo(sessionID, req.ID, req.Chunks); err != nil {
		writeSessionError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, nil)
}

type confirmRequest struct {
	RequestID uint32 `json:"requestId"`
	OutcomeID string `json:"outcomeId"`
	Outcome   string `json:"outcome"`
}

// Confirm answers a pending requestToolCallConfirmation.
func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid request body")
		return
	}

	outcome := acp.ConfirmationOutcome{
		OutcomeID: req.OutcomeID,
		Outcome:   req.Outcome,
	}

	if err := h.manager.RespondConfirmation(sessionID, req.RequestID, outcome); err != nil {
		writeSessionError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, nil)
}

// Kill terminates a session's agent CLI process.
func (h *SessionHandler) Kill(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := h.manager.Kill(sessionID); err != nil {
		writeSessionError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, nil)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, acp.ErrSessionNotFound):
		WriteError(w, http.StatusNotFound, ErrSessionNotFound, err.Error())
	case errors.Is(err, acp.ErrSessionInitFailed):
		WriteError(w, http.StatusBadGateway, ErrSessionInitFailed, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
	}
}
