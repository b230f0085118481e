// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"bufio"
	"encoding/json"
	"io"
	"log"
	"strings"

	"github.com/wingedpig/gemini-desktop/internal/events"
)

// assistantChunk is the payload of an inbound streamAssistantMessageChunk.
type assistantChunk struct {
	Chunk struct {
		Thought string `json:"thought"`
		Text    string `json:"text"`
	} `json:"chunk"`
}

// toolCallLocation is one {path} entry in pushToolCall/locations.
type toolCallLocation struct {
	Path string `json:"path"`
}

type pushToolCallParams struct {
	Icon      string             `json:"icon"`
	Label     string             `json:"label"`
	Locations []toolCallLocation `json:"locations"`
}

type updateToolCallParams struct {
	ToolCallID json.RawMessage `json:"toolCallId"`
	Status     string          `json:"status"`
	Content    json.RawMessage `json:"content,omitempty"`
}

type confirmationParams struct {
	Label        string             `json:"label"`
	Icon         string             `json:"icon"`
	Content      json.RawMessage    `json:"content,omitempty"`
	Confirmation json.RawMessage    `json:"confirmation"`
	Locations    []toolCallLocation `json:"locations"`
}

// runDemultiplexer reads stdout line by line until EOF or an I/O error,
// dispatching each line to typed events (C6). It owns session teardown on
// exit: it marks the session not-alive and drops stdin before returning,
// so the writer task observes a dead session on its next send attempt.
func runDemultiplexer(s *Session, stdout io.Reader, sink Sink, broker *ConfirmationBroker) {
	reader := bufio.NewReaderSize(stdout, 64*1024)
	defer s.markNotAlive()

	for {
		lineBytes, err := reader.ReadBytes('\n')
		line := strings.TrimRight(string(lineBytes), "\r\n")

		if len(line) > 0 {
			metrics.framesReceivedTotal.Inc()
			s.logger.Log(line)
			sink.Emit(s.ID, events.EventCliIO, cliIOEvent("output", line))
			dispatchLine(s, line, sink, broker)
		}

		if err != nil {
			// EOF or a broken pipe: the reader loop exits (§4.5); no
			// synthetic turn-finished is emitted for dropped entries.
			if err != io.EOF {
				log.Printf("acp: session %s: stdout read: %v", s.ID, err)
			}
			return
		}
	}
}

func dispatchLine(s *Session, line string, sink Sink, broker *ConfirmationBroker) {
	raw, ok := DecodeGeneric([]byte(line))
	if !ok {
		return
	}

	if methodRaw, ok := raw["method"]; ok {
		var method string
		if err := json.Unmarshal(methodRaw, &method); err == nil {
			dispatchMethod(s, method, raw, sink, broker)
		}
	}

	// Independently of method dispatch: correlate a response with a
	// pending sendUserMessage request (§4.5 step 5).
	idRaw, hasID := raw["id"]
	if !hasID {
		return
	}
	var id uint32
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return
	}
	if !s.pending.Remove(id) {
		return
	}
	if _, ok := raw["result"]; ok {
		endTurnSpan(s.ID, id, true)
		sink.Emit(s.ID, events.EventGeminiTurnFinished, true)
		return
	}
	if errRaw, ok := raw["error"]; ok {
		endTurnSpan(s.ID, id, false)
		var rpcErr RPCError
		if err := json.Unmarshal(errRaw, &rpcErr); err == nil {
			sink.Emit(s.ID, events.EventGeminiError, rpcErr.Error())
		} else {
			sink.Emit(s.ID, events.EventGeminiError, string(errRaw))
		}
	}
}

func dispatchMethod(s *Session, method string, raw map[string]json.RawMessage, sink Sink, broker *ConfirmationBroker) {
	paramsRaw, hasParams := raw["params"]
	if !hasParams {
		paramsRaw = json.RawMessage(`{}`)
	}

	switch method {
	case "streamAssistantMessageChunk":
		var chunk assistantChunk
		if err := json.Unmarshal(paramsRaw, &chunk); err != nil {
			return
		}
		if chunk.Chunk.Thought != "" {
			sink.Emit(s.ID, events.EventGeminiThought, chunk.Chunk.Thought)
		}
		if chunk.Chunk.Text != "" {
			sink.Emit(s.ID, events.EventGeminiOutput, chunk.Chunk.Text)
		}

	case "pushToolCall":
		var p pushToolCallParams
		if err := json.Unmarshal(paramsRaw, &p); err != nil {
			return
		}
		id := s.toolIDs.Next()
		beginToolCallSpan(s.ID, id, p.Label)
		sink.Emit(s.ID, events.EventGeminiToolCall, map[string]interface{}{
			"id":        id,
			"name":      p.Label,
			"icon":      p.Icon,
			"label":     p.Label,
			"locations": p.Locations,
			"status":    "pending",
		})

	case "updateToolCall":
		var p updateToolCallParams
		if err := json.Unmarshal(paramsRaw, &p); err != nil {
			return
		}
		toolCallID, err := LenientUint32(p.ToolCallID)
		if err != nil {
			return
		}
		if isToolCallTerminal(p.Status) {
			endToolCallSpan(s.ID, toolCallID, p.Status)
		}
		payload := map[string]interface{}{
			"toolCallId": toolCallID,
			"status":     p.Status,
		}
		if p.Content != nil {
			payload["content"] = p.Content
		}
		sink.Emit(s.ID, events.EventGeminiToolCallUpdate, payload)

	case "requestToolCallConfirmation":
		var p confirmationParams
		if err := json.Unmarshal(paramsRaw, &p); err != nil {
			return
		}
		idRaw, ok := raw["id"]
		if !ok {
			return
		}
		var requestID uint32
		if err := json.Unmarshal(idRaw, &requestID); err != nil {
			return
		}
		markConfirmationStart(s.ID, requestID)
		broker.handleInbound(s, requestID, p, sink)

	default:
		// Unknown methods are ignored at the demultiplexer (§4.5).
	}
}

// isToolCallTerminal reports whether status ends a tool call's trace span:
// any status other than the transient "pending"/"in_progress"/"running"
// states.
func isToolCallTerminal(status string) bool {
	switch status {
	case "pending", "in_progress", "running":
		return false
	default:
		return true
	}
}
