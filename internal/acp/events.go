// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"context"
	"log"

	"github.com/wingedpig/gemini-desktop/internal/events"
)

// Sink is the Event Sink port (C2): the one capability the supervisor,
// demultiplexer, and confirmation broker need from the outside world —
// emit a named, payload-carrying notification for a session. NewBusSink
// adapts an events.EventBus to it; callers in this package only ever see
// this narrower interface.
type Sink interface {
	Emit(sessionID, kind string, payload interface{})
}

// busSink adapts an events.EventBus to the Sink port, forming the event
// name as "<kind>-<sessionID>" per the wire contract in §6.
type busSink struct {
	bus events.EventBus
}

// NewBusSink wraps bus as a Sink.
func NewBusSink(bus events.EventBus) Sink {
	return &busSink{bus: bus}
}

func (s *busSink) Emit(sessionID, kind string, payload interface{}) {
	eventType := kind + "-" + sessionID

	var payloadMap map[string]interface{}
	switch v := payload.(type) {
	case map[string]interface{}:
		payloadMap = v
	default:
		payloadMap = map[string]interface{}{"value": v}
	}

	evt := events.Event{
		Type:      eventType,
		SessionID: sessionID,
		Payload:   payloadMap,
	}
	if err := s.bus.Publish(context.Background(), evt); err != nil {
		log.Printf("acp: publish %s: %v", eventType, err)
	}
}

// cliIOEvent builds the payload for a cli-io-<session> event.
func cliIOEvent(direction, data string) map[string]interface{} {
	return map[string]interface{}{"type": direction, "data": data}
}
