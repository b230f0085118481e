// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus collectors for the session supervisor and
// manager (§11 domain stack). They are registered once against the default
// registry, which router.go exposes at /metrics via promhttp.Handler.
var metrics = struct {
	sessionsActive         prometheus.Gauge
	sessionsCreatedTotal   prometheus.Counter
	sessionInitFailedTotal prometheus.Counter
	killsTotal             prometheus.Counter
	framesSentTotal        prometheus.Counter
	framesReceivedTotal    prometheus.Counter
	confirmationLatency    prometheus.Histogram
}{
	sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acp_sessions_active",
		Help: "Number of sessions currently alive.",
	}),
	sessionsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
		Name: "acp_sessions_created_total",
		Help: "Total sessions successfully spawned and handshaken.",
	}),
	sessionInitFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
		Name: "acp_session_init_failed_total",
		Help: "Total session spawn/handshake failures.",
	}),
	killsTotal: promauto.NewCounter(prometheus.CounterOpts{
		Name: "acp_kills_total",
		Help: "Total Kill calls issued against sessions.",
	}),
	framesSentTotal: promauto.NewCounter(prometheus.CounterOpts{
		Name: "acp_frames_sent_total",
		Help: "Total JSON-RPC frames written to child processes.",
	}),
	framesReceivedTotal: promauto.NewCounter(prometheus.CounterOpts{
		Name: "acp_frames_received_total",
		Help: "Total JSON-RPC frames read from child processes.",
	}),
	confirmationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "acp_confirmation_round_trip_seconds",
		Help:    "Time between emitting a tool-call confirmation request and its response being sent back to the child.",
		Buckets: prometheus.DefBuckets,
	}),
}

// confirmationClock tracks in-flight requestToolCallConfirmation timestamps
// so RespondConfirmation can observe a round-trip latency. Keyed by session
// id + wire request id, since request ids are only unique per-session.
var confirmationClock = struct {
	mu      sync.Mutex
	started map[string]time.Time
}{started: make(map[string]time.Time)}

func confirmationKey(sessionID string, requestID uint32) string {
	return sessionID + ":" + strconv.FormatUint(uint64(requestID), 10)
}

func markConfirmationStart(sessionID string, requestID uint32) {
	confirmationClock.mu.Lock()
	confirmationClock.started[confirmationKey(sessionID, requestID)] = time.Now()
	confirmationClock.mu.Unlock()
}

func observeConfirmationLatency(sessionID string, requestID uint32) {
	key := confirmationKey(sessionID, requestID)
	confirmationClock.mu.Lock()
	start, ok := confirmationClock.started[key]
	if ok {
		delete(confirmationClock.started, key)
	}
	confirmationClock.mu.Unlock()
	if ok {
		metrics.confirmationLatency.Observe(time.Since(start).Seconds())
	}
}
