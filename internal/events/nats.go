// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// NATSBridge wraps an EventBus and additionally republishes every event
// onto a NATS subject, so out-of-process consumers can observe session
// activity without going through the HTTP/WebSocket surface. It delegates
// Subscribe/History/etc. to the wrapped bus; only Publish fans out twice.
type NATSBridge struct {
	EventBus
	conn          *nats.Conn
	subjectPrefix string
}

// NewNATSBridge connects to url and wraps inner. subjectPrefix defaults to
// "gemini.events" if empty; each event publishes to
// "<subjectPrefix>.<sessionID>.<type>".
func NewNATSBridge(inner EventBus, url, subjectPrefix string) (*NATSBridge, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subjectPrefix == "" {
		subjectPrefix = "gemini.events"
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &NATSBridge{EventBus: inner, conn: conn, subjectPrefix: subjectPrefix}, nil
}

// Publish forwards to the wrapped bus and, best-effort, to NATS. A NATS
// publish failure is logged but never fails the call: the in-memory bus
// and WebSocket clients remain the bridge's source of truth.
func (b *NATSBridge) Publish(ctx context.Context, event Event) error {
	if err := b.EventBus.Publish(ctx, event); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("nats bridge: marshal event %s: %v", event.Type, err)
		return nil
	}

	subject := b.subjectPrefix + "." + event.SessionID + "." + event.Type
	if err := b.conn.Publish(subject, data); err != nil {
		log.Printf("nats bridge: publish to %s: %v", subject, err)
	}

	return nil
}

// Close drains the NATS connection before closing the wrapped bus.
func (b *NATSBridge) Close() error {
	b.conn.Drain()
	return b.EventBus.Close()
}
