// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading for the ACP core.
package config

import (
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Version string        `json:"version"`
	Project ProjectConfig `json:"project"`
	Server  ServerConfig  `json:"server"`
	Agents  []AgentConfig `json:"agents"`
	Storage StorageConfig `json:"storage"`
	Events  EventsConfig  `json:"events"`
	Watch   WatchConfig   `json:"watch"`
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
	Metrics MetricsConfig `json:"metrics"`
}

// ProjectConfig contains project metadata.
type ProjectConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port    int    `json:"port"`
	Host    string `json:"host"`
	TLSCert string `json:"tls_cert"` // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey  string `json:"tls_key"`  // Path to TLS private key file
}

// AgentConfig describes one launchable agent CLI the supervisor can spawn.
type AgentConfig struct {
	Name            string   `json:"name"`             // e.g. "gemini"
	Command         string   `json:"command"`          // binary name or path, e.g. "gemini"
	Model           string   `json:"model"`            // passed as --model
	ProtocolVersion string   `json:"protocol_version"` // handshake protocolVersion, default "0.0.9"
	ExtraArgs       []string `json:"extra_args"`       // appended after --experimental-acp
}

// StorageConfig configures where project metadata and rpc logs live.
type StorageConfig struct {
	Home             string `json:"home"`               // replaces <home> in "<home>/.gemini-desktop"; default derived from os.UserHomeDir
	LogMaxAge        string `json:"log_max_age"`        // duration; rpc-log-*.log older than this are pruned, default "720h" (30d)
	TouchMinInterval string `json:"touch_min_interval"` // duration; maybe_touch throttle window, default "1s"
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	History HistoryConfig `json:"history"`
	NATS    NATSConfig    `json:"nats"`
}

// HistoryConfig configures event history retention.
type HistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// NATSConfig configures the optional NATS event bridge.
type NATSConfig struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url"`           // default nats.DefaultURL
	SubjectPrefix string `json:"subject_prefix"` // default "gemini.events"
}

// WatchConfig configures config-file hot reload. Debounce is defaulted and
// validated but not read by Watcher, which reloads on every event.
type WatchConfig struct {
	Debounce string `json:"debounce"` // duration, default "100ms"
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"service_name"`  // default "gemini-desktop-acp-core"
	OTLPEndpoint string `json:"otlp_endpoint"` // host:port for otlptracehttp
	Insecure     bool   `json:"insecure"`      // skip TLS for the OTLP exporter
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"` // default "/metrics"
}

// ParseDuration parses a duration string, returning def on empty or error.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// AgentByName returns the configured agent with the given name, or the
// first configured agent if name is empty. Returns nil if none match.
func (c *Config) AgentByName(name string) *AgentConfig {
	if name == "" && len(c.Agents) > 0 {
		a := c.Agents[0]
		return &a
	}
	for _, a := range c.Agents {
		if a.Name == name {
			cp := a
			return &cp
		}
	}
	return nil
}

// friendlyNameFromPath derives a friendly project name by replacing path
// separators and drive colons with "-" and collapsing empty segments.
func friendlyNameFromPath(path string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '-'
		default:
			return r
		}
	}, path)
	parts := strings.Split(replaced, "-")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "root"
	}
	return strings.Join(out, "-")
}

// FriendlyName exposes friendlyNameFromPath. The project registry does not
// call it; project.FriendlyName implements the same derivation.
func FriendlyName(path string) string {
	return friendlyNameFromPath(path)
}
