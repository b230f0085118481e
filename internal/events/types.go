// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the event bus that fans session and tool-call
// activity out to the desktop client and other subscribers.
package events

import (
	"context"
	"time"
)

// Event represents an immutable event record.
type Event struct {
	ID        string                 `json:"id"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"sessionId"`
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter for querying event history.
type EventFilter struct {
	Types     []string  // Event types to match (supports wildcards)
	SessionID string    // Filter by session
	Since     time.Time // Events after this time
	Until     time.Time // Events before this time
	Limit     int       // Maximum events to return
}

// EventBus is the core event pub/sub system. The session supervisor (C5)
// and confirmation broker (C7) publish session activity through the
// acp.Sink port (C2), which acp.NewBusSink adapts onto an EventBus; callers
// never learn whether a subscriber is a websocket client, an in-process
// test, or a NATS bridge.
type EventBus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers an async handler with buffered channel.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter.
	History(filter EventFilter) ([]Event, error)

	// SetDefaultSession sets the default session id for events that don't specify one.
	SetDefaultSession(sessionID string)

	// Close shuts down the event bus gracefully.
	Close() error
}

// Event type prefixes. The bus sink built by acp.NewBusSink suffixes each
// with "-<sessionID>" before publishing, matching the wire
// naming the desktop client expects.
const (
	EventCliIO                 = "cli-io"
	EventGeminiOutput          = "gemini-output"
	EventGeminiThought         = "gemini-thought"
	EventGeminiToolCall        = "gemini-tool-call"
	EventGeminiToolCallUpdate  = "gemini-tool-call-update"
	EventGeminiToolCallConfirm = "gemini-tool-call-confirmation"
	EventGeminiTurnFinished    = "gemini-turn-finished"
	EventGeminiError           = "gemini-error"
)
