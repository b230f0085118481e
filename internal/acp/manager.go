// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"sync"

	"github.com/wingedpig/gemini-desktop/internal/project"
)

// Manager owns the registry of live sessions (C8): creation, status
// queries, message dispatch, and forced termination. Its session map is
// guarded by a short-lived mutex; holders never suspend while holding it
// (per §5), since all blocking I/O happens inside the supervisor's own
// goroutines, not under this lock.
type Manager struct {
	sup    *Supervisor
	sink   Sink
	killer ProcessKiller

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager constructs a Manager. killer performs OS-level process
// termination; see NewOSProcessKiller for the production implementation.
func NewManager(registry *project.Registry, sink Sink, killer ProcessKiller) *Manager {
	return &Manager{
		sup:      NewSupervisor(registry),
		sink:     sink,
		killer:   killer,
		sessions: make(map[string]*Session),
	}
}

// Create spawns a new session under sessionID, which must be unique among
// live sessions (§3 invariant). Create does not check this: a second Create
// under an id already in the map replaces the earlier entry, and the
// earlier child process is not killed. Returns SessionInitFailed on any
// spawn or handshake failure; no entry is added to the map in that case.
func (m *Manager) Create(sessionID, workDir string, spec AgentSpec) (*Session, error) {
	session, err := m.sup.Spawn(sessionID, workDir, spec, m.sink)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sessionID] = session
	m.mu.Unlock()

	return session, nil
}

// Statuses returns a snapshot of every known session, live or not: an
// entry remains queryable after it transitions to not-alive until removed
// by Forget (§3 Lifecycles).
func (m *Manager) Statuses() []SessionStatus {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]SessionStatus, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Status())
	}
	return out
}

// Get returns the session for id, or (nil, false) if unknown.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Forget removes a session entry from the map. It does not kill the
// underlying process; call Kill first.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// SendTo enqueues a sendUserMessage request through the named session's
// queue, failing with SessionNotFound if the session is unknown.
func (m *Manager) SendTo(sessionID string, id uint32, chunks []MessageChunk) error {
	session, ok := m.Get(sessionID)
	if !ok {
		return &KindError{Kind: KindSessionNotFound}
	}
	return m.sup.SendUserMessage(session, id, chunks)
}

// RespondConfirmation answers a pending requestToolCallConfirmation for
// the named session (C7), failing with SessionNotFound if unknown.
func (m *Manager) RespondConfirmation(sessionID string, requestID uint32, outcome ConfirmationOutcome) error {
	session, ok := m.Get(sessionID)
	if !ok {
		return &KindError{Kind: KindSessionNotFound}
	}
	return m.sup.Broker().RespondConfirmation(session, requestID, outcome)
}

// Kill forcibly terminates the named session's child process (§4.4, §4.6).
// Absence of the process is treated as success; the entry remains in the
// map (queryable as not-alive) until a caller calls Forget.
func (m *Manager) Kill(sessionID string) error {
	session, ok := m.Get(sessionID)
	if !ok {
		return &KindError{Kind: KindSessionNotFound}
	}
	return m.sup.Kill(session, m.killer)
}
