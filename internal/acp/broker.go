// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"fmt"

	"github.com/wingedpig/gemini-desktop/internal/events"
)

// ConfirmationBroker forwards inbound requestToolCallConfirmation calls
// outward and writes the outer layer's outcome back to the child as a
// matching JSON-RPC response (C7). No timeout is imposed: an unanswered
// confirmation stalls the child until the session ends (§4.7).
type ConfirmationBroker struct {
	send func(s *Session, raw []byte) bool
}

// NewConfirmationBroker constructs a broker that writes response frames
// through the given send function (normally Supervisor.enqueueFrame).
func NewConfirmationBroker(send func(s *Session, raw []byte) bool) *ConfirmationBroker {
	return &ConfirmationBroker{send: send}
}

// handleInbound emits the gemini-tool-call-confirmation event for an
// inbound request, tagging it with the request's wire id so the eventual
// RespondConfirmation call can be correlated back to it.
func (b *ConfirmationBroker) handleInbound(s *Session, requestID uint32, p confirmationParams, sink Sink) {
	payload := map[string]interface{}{
		"requestId":    requestID,
		"sessionId":    s.ID,
		"label":        p.Label,
		"icon":         p.Icon,
		"confirmation": p.Confirmation,
		"locations":    p.Locations,
	}
	if p.Content != nil {
		payload["content"] = p.Content
	}
	sink.Emit(s.ID, events.EventGeminiToolCallConfirm, payload)
}

// ConfirmationOutcome is the result the outer layer hands back for one
// pending confirmation request.
type ConfirmationOutcome struct {
	OutcomeID string
	Outcome   string
}

// RespondConfirmation builds the Response frame `{id: requestID, result:
// {id: outcomeID, outcome}}` and enqueues it through the session's send
// path (§4.7).
func (b *ConfirmationBroker) RespondConfirmation(s *Session, requestID uint32, outcome ConfirmationOutcome) error {
	observeConfirmationLatency(s.ID, requestID)
	result := map[string]interface{}{
		"id":      outcome.OutcomeID,
		"outcome": outcome.Outcome,
	}
	frame, err := NewResultResponse(requestID, result)
	if err != nil {
		return wrapKind(KindJSONError, err)
	}
	raw, err := Encode(frame)
	if err != nil {
		return wrapKind(KindJSONError, err)
	}
	if !b.send(s, raw) {
		return &KindError{Kind: KindSessionNotFound, Cause: fmt.Errorf("session %s is not alive", s.ID)}
	}
	return nil
}
