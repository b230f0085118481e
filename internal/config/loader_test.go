// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_ValidConfig(t *testing.T) {
	configContent := `{
		version: "1.0"
		project: {
			name: "test-project"
			description: "A test project"
		}
		server: {
			port: 8711
			host: "127.0.0.1"
		}
		agents: [
			{
				name: "gemini"
				command: "gemini"
				model: "gemini-2.5-pro"
			}
		]
	}`

	cfg := loadFromString(t, configContent)

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, "test-project", cfg.Project.Name)
	assert.Equal(t, "A test project", cfg.Project.Description)
	assert.Equal(t, 8711, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "gemini", cfg.Agents[0].Name)
}

func TestLoader_Load_HJSONFeatures(t *testing.T) {
	// Test HJSON-specific features: comments, unquoted keys, trailing commas
	configContent := `{
		// This is a comment
		version: "1.0"

		# Hash comment
		project: {
			name: test-project
			description: '''
				Multi-line
				description
			'''
		}

		server: {
			port: 8711,
			host: 127.0.0.1,
		}

		agents: [
			{
				name: gemini
				command: gemini
			},
		]
	}`

	cfg := loadFromString(t, configContent)

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, "test-project", cfg.Project.Name)
	assert.Contains(t, cfg.Project.Description, "Multi-line")
	assert.Equal(t, 8711, cfg.Server.Port)
}

func TestLoader_Load_AllSections(t *testing.T) {
	configContent := `{
		version: "1.0"

		project: {
			name: "full-project"
		}

		server: {
			port: 1000
			host: "0.0.0.0"
		}

		agents: [
			{
				name: "gemini"
				command: "gemini"
				model: "gemini-2.5-pro"
				protocol_version: "0.0.9"
				extra_args: ["--sandbox"]
			}
		]

		storage: {
			home: "/var/lib/gemini-desktop"
			log_max_age: "168h"
			touch_min_interval: "2s"
		}

		events: {
			history: {
				max_events: 10000
				max_age: "1h"
			}
			nats: {
				enabled: true
				url: "nats://localhost:4222"
				subject_prefix: "gemini.events"
			}
		}

		watch: {
			debounce: "500ms"
		}

		logging: {
			level: "info"
			format: "json"
		}

		tracing: {
			enabled: true
			service_name: "acp-core-test"
			otlp_endpoint: "localhost:4318"
		}

		metrics: {
			enabled: true
			path: "/metrics"
		}
	}`

	cfg := loadFromString(t, configContent)

	// Agents
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "gemini-2.5-pro", cfg.Agents[0].Model)
	assert.Equal(t, []string{"--sandbox"}, cfg.Agents[0].ExtraArgs)

	// Storage
	assert.Equal(t, "/var/lib/gemini-desktop", cfg.Storage.Home)
	assert.Equal(t, "168h", cfg.Storage.LogMaxAge)

	// Events
	assert.Equal(t, 10000, cfg.Events.History.MaxEvents)
	assert.True(t, cfg.Events.NATS.Enabled)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATS.URL)

	// Watch
	assert.Equal(t, "500ms", cfg.Watch.Debounce)

	// Logging
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Tracing
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "acp-core-test", cfg.Tracing.ServiceName)

	// Metrics
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoader_Load_Defaults(t *testing.T) {
	configContent := `{
		version: "1.0"
		project: { name: "test" }
	}`

	loader := NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), writeTestConfig(t, configContent))
	require.NoError(t, err)

	// Check defaults are applied
	assert.Equal(t, 8711, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "720h", cfg.Storage.LogMaxAge)
	assert.Equal(t, "1s", cfg.Storage.TouchMinInterval)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoader_Load_AgentDefaults(t *testing.T) {
	configContent := `{
		version: "1.0"
		project: { name: "test" }
		agents: [{ name: "gemini", command: "gemini" }]
	}`

	loader := NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), writeTestConfig(t, configContent))
	require.NoError(t, err)

	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "0.0.9", cfg.Agents[0].ProtocolVersion)
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Load(context.Background(), "/nonexistent/path/config.hjson")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoader_Load_InvalidHJSON(t *testing.T) {
	configContent := `{
		version: "1.0"
		invalid json here {{{
	}`

	loader := NewLoader()
	path := writeTestConfig(t, configContent)
	_, err := loader.Load(context.Background(), path)
	assert.Error(t, err)
}

func TestLoader_Load_ConfigPaths(t *testing.T) {
	dir := t.TempDir()

	// Create gemini-desktop.hjson
	hjsonPath := filepath.Join(dir, "gemini-desktop.hjson")
	require.NoError(t, os.WriteFile(hjsonPath, []byte(`{version: "1.0", project: {name: "hjson"}}`), 0644))

	// Create gemini-desktop.json
	jsonPath := filepath.Join(dir, "gemini-desktop.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"version": "1.0", "project": {"name": "json"}}`), 0644))

	loader := NewLoader()

	// Explicit path takes precedence
	cfg, err := loader.Load(context.Background(), hjsonPath)
	require.NoError(t, err)
	assert.Equal(t, "hjson", cfg.Project.Name)

	// Can also load JSON
	cfg, err = loader.Load(context.Background(), jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Project.Name)
}

func TestLoader_FindConfig(t *testing.T) {
	dir := t.TempDir()
	originalWd, _ := os.Getwd()
	defer os.Chdir(originalWd)
	os.Chdir(dir)

	loader := NewLoader()

	// No config file exists
	_, err := loader.FindConfig()
	assert.Error(t, err)

	// Create gemini-desktop.hjson
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gemini-desktop.hjson"), []byte(`{}`), 0644))
	path, err := loader.FindConfig()
	require.NoError(t, err)
	assert.Contains(t, path, "gemini-desktop.hjson")

	// Remove hjson, create json - json should be found
	os.Remove(filepath.Join(dir, "gemini-desktop.hjson"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gemini-desktop.json"), []byte(`{}`), 0644))
	path, err = loader.FindConfig()
	require.NoError(t, err)
	assert.Contains(t, path, "gemini-desktop.json")
}

func TestConfig_AgentByName(t *testing.T) {
	cfg := &Config{
		Agents: []AgentConfig{
			{Name: "gemini", Command: "gemini"},
			{Name: "gemini-flash", Command: "gemini"},
		},
	}

	assert.Equal(t, "gemini", cfg.AgentByName("gemini").Name)
	assert.Equal(t, "gemini", cfg.AgentByName("").Name)
	assert.Nil(t, cfg.AgentByName("missing"))
}

func TestFriendlyName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/home/user/project", "home-user-project"},
		{`C:\Users\dev\project`, "C-Users-dev-project"},
		{"/", "root"},
		{"//a//b", "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FriendlyName(tt.input))
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		def      string
		expected string
	}{
		{"500ms", "100ms", "500ms"},
		{"1m", "100ms", "1m"},
		{"", "100ms", "100ms"},
		{"invalid", "100ms", "100ms"},
		{"1h30m", "100ms", "1h30m"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			defDur := mustParseDuration(tt.def)
			result := ParseDuration(tt.input, defDur)
			assert.Equal(t, mustParseDuration(tt.expected), result)
		})
	}
}

// Helper functions

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	path := writeTestConfig(t, content)
	loader := NewLoader()
	cfg, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	return cfg
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gemini-desktop.hjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func mustParseDuration(s string) time.Duration {
	dur, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return dur
}
