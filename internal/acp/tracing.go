// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the OTLP/HTTP exporter for turn/tool-call spans.
type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
}

// tracer is the package-level tracer used for sendUserMessage turn spans
// and their tool-call children. It defaults to otel's no-op tracer until
// InitTracing installs a real TracerProvider.
var tracer trace.Tracer = otel.Tracer("acp")

// InitTracing installs an OTLP/HTTP-exporting TracerProvider per cfg,
// replacing the no-op default. Returns a shutdown func that flushes and
// closes the exporter; safe to call with Enabled=false (returns a no-op).
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer("acp")

	return tp.Shutdown, nil
}

// startTurnSpan opens a span covering one sendUserMessage turn, from
// request to terminal response.
func startTurnSpan(ctx context.Context, sessionID string, id uint32) (context.Context, trace.Span) {
	return tracer.Start(ctx, "acp.turn", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
}

// startToolCallSpan opens a child span for one pushToolCall..updateToolCall
// lifecycle.
func startToolCallSpan(ctx context.Context, sessionID string, toolCallID uint32, label string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "acp.tool_call", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("tool_call.label", label),
	))
}

// spanRegistry correlates spans opened in one place (SendUserMessage's
// caller for a turn, the demultiplexer on pushToolCall for a tool call)
// with their closing event observed in the demultiplexer (on the matching
// response or updateToolCall). Keyed the same way as confirmationClock: sessionID plus the wire
// id that ties the two ends together.
var spanRegistry = struct {
	mu    sync.Mutex
	spans map[string]trace.Span
}{spans: make(map[string]trace.Span)}

func spanKey(prefix, sessionID string, id uint32) string {
	return prefix + ":" + sessionID + ":" + strconv.FormatUint(uint64(id), 10)
}

func beginTurnSpan(sessionID string, id uint32) {
	_, span := startTurnSpan(context.Background(), sessionID, id)
	spanRegistry.mu.Lock()
	spanRegistry.spans[spanKey("turn", sessionID, id)] = span
	spanRegistry.mu.Unlock()
}

func endTurnSpan(sessionID string, id uint32, ok bool) {
	key := spanKey("turn", sessionID, id)
	spanRegistry.mu.Lock()
	span, found := spanRegistry.spans[key]
	if found {
		delete(spanRegistry.spans, key)
	}
	spanRegistry.mu.Unlock()
	if !found {
		return
	}
	span.SetAttributes(attribute.Bool("turn.ok", ok))
	span.End()
}

func beginToolCallSpan(sessionID string, toolCallID uint32, label string) {
	_, span := startToolCallSpan(context.Background(), sessionID, toolCallID, label)
	spanRegistry.mu.Lock()
	spanRegistry.spans[spanKey("tool_call", sessionID, toolCallID)] = span
	spanRegistry.mu.Unlock()
}

func endToolCallSpan(sessionID string, toolCallID uint32, status string) {
	key := spanKey("tool_call", sessionID, toolCallID)
	spanRegistry.mu.Lock()
	span, found := spanRegistry.spans[key]
	if found {
		delete(spanRegistry.spans, key)
	}
	spanRegistry.mu.Unlock()
	if !found {
		return
	}
	span.SetAttributes(attribute.String("tool_call.status", status))
	span.End()
}
