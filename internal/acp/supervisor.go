// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os/exec"
	"runtime"

	"github.com/wingedpig/gemini-desktop/internal/events"
	"github.com/wingedpig/gemini-desktop/internal/project"
)

// AgentSpec describes the child process to spawn: its command, model, and
// protocol version, mirroring config.AgentConfig without importing the
// config package (keeps acp free of config's HJSON/validation concerns).
type AgentSpec struct {
	Command         string
	Model           string
	ProtocolVersion string
	ExtraArgs       []string
}

// defaultProtocolVersion is used when an AgentSpec omits one.
const defaultProtocolVersion = "0.0.9"

// Supervisor spawns one child process per session, performs the
// initialize handshake, and then hands stdout to the demultiplexer and
// the outbound queue to a writer goroutine (C5).
type Supervisor struct {
	broker   *ConfirmationBroker
	registry *project.Registry
}

// NewSupervisor constructs a Supervisor backed by registry for project
// metadata and RPC log directory resolution.
func NewSupervisor(registry *project.Registry) *Supervisor {
	sup := &Supervisor{registry: registry}
	sup.broker = NewConfirmationBroker(sup.enqueueFrame)
	return sup
}

// Broker exposes the confirmation broker so a caller (e.g. an HTTP
// handler) can answer a pending requestToolCallConfirmation.
func (sup *Supervisor) Broker() *ConfirmationBroker { return sup.broker }

// Spawn constructs the child process, runs the initialize handshake, and
// on success returns a live Session with its reader and writer goroutines
// started. workDir, if non-empty, is applied as the child's working
// directory and its project metadata is eagerly materialized.
func (sup *Supervisor) Spawn(sessionID, workDir string, spec AgentSpec, sink Sink) (*Session, error) {
	protoVersion := spec.ProtocolVersion
	if protoVersion == "" {
		protoVersion = defaultProtocolVersion
	}

	args := []string{"--model", spec.Model, "--experimental-acp"}
	args = append(args, spec.ExtraArgs...)
	cmdLine := spec.Command + " " + joinArgs(args)

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", cmdLine)
	} else {
		cmd = exec.Command("sh", "-c", cmdLine)
	}
	if workDir != "" {
		cmd.Dir = workDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &KindError{Kind: KindSessionInitFailed, Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &KindError{Kind: KindSessionInitFailed, Cause: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &KindError{Kind: KindSessionInitFailed, Cause: err}
	}

	var logger *RPCLogger
	var projectID string
	if workDir != "" {
		var perr error
		projectID, perr = sup.registry.EnsureForPath(workDir)
		if perr != nil {
			log.Printf("acp: session %s: ensure project metadata: %v", sessionID, perr)
		}
	}
	if projectID != "" {
		logger = NewRPCLogger(sup.registry.ProjectDir(projectID), 0)
	} else {
		logger = NewRPCLogger("", 0) // no-op: MkdirAll("") fails, falls back
	}

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}

	session := newSession(sessionID, workDir, pid, stdin, logger)

	// One buffered reader serves both the handshake and the demultiplexer,
	// so bytes read ahead during the handshake are not lost.
	stdoutReader := bufio.NewReaderSize(stdout, 64*1024)

	if err := sup.handshake(session, stdin, stdoutReader, protoVersion, sink); err != nil {
		_ = cmd.Process.Kill()
		logger.Close()
		metrics.sessionInitFailedTotal.Inc()
		return nil, err
	}

	go runDemultiplexer(session, stdoutReader, sink, sup.broker)
	go sup.runWriter(session, sink)

	metrics.sessionsCreatedTotal.Inc()
	metrics.sessionsActive.Inc()

	return session, nil
}

// handshake emits the initialize request and reads exactly one response
// line, per §4.4. Both frames are logged and sent to the Event Sink as
// cli-io events before the session is considered alive.
func (sup *Supervisor) handshake(s *Session, stdin io.Writer, stdout io.Reader, protoVersion string, sink Sink) error {
	reqFrame, err := NewRequest(1, "initialize", map[string]string{"protocolVersion": protoVersion})
	if err != nil {
		return &KindError{Kind: KindSessionInitFailed, Cause: err}
	}
	reqBytes, err := Encode(reqFrame)
	if err != nil {
		return &KindError{Kind: KindSessionInitFailed, Cause: err}
	}

	s.logger.Log(string(reqBytes))
	sink.Emit(s.ID, events.EventCliIO, cliIOEvent("input", string(reqBytes)))

	if _, err := stdin.Write(append(reqBytes, '\n')); err != nil {
		return &KindError{Kind: KindSessionInitFailed, Cause: fmt.Errorf("write handshake: %w", err)}
	}

	reader := bufio.NewReaderSize(stdout, 64*1024)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return &KindError{Kind: KindSessionInitFailed, Cause: fmt.Errorf("read handshake response: %w", err)}
	}
	trimmed := bytes.TrimRight([]byte(line), "\r\n")

	s.logger.Log(string(trimmed))
	sink.Emit(s.ID, events.EventCliIO, cliIOEvent("output", string(trimmed)))

	resp, err := Decode(trimmed)
	if err != nil {
		return &KindError{Kind: KindSessionInitFailed, Cause: err}
	}
	if resp.Error != nil {
		return &KindError{Kind: KindSessionInitFailed, Cause: resp.Error}
	}

	return nil
}

// runWriter drains the outbound queue in FIFO order, writing each frame to
// the child's stdin (§4.4 send path). On any I/O error it stops and marks
// the session not-alive.
func (sup *Supervisor) runWriter(s *Session, sink Sink) {
	defer s.markNotAlive()

	for raw := range s.outbox {
		if !writeFrame(s, raw, sink) {
			return
		}
	}
}

// writeFrame performs one iteration of the send path: take stdin, track
// pending sendUserMessage ids, log, write, emit, put stdin back.
func writeFrame(s *Session, raw []byte, sink Sink) bool {
	stdin := s.takeStdin()
	if stdin == nil {
		return false
	}

	if f, err := Decode(raw); err == nil && f.IsRequest() && f.Method == "sendUserMessage" && f.ID != nil {
		s.pending.Add(*f.ID)
	}

	s.logger.Log(string(raw))

	if _, err := stdin.Write(append(raw, '\n')); err != nil {
		log.Printf("acp: session %s: stdin write: %v", s.ID, err)
		return false
	}
	metrics.framesSentTotal.Inc()
	sink.Emit(s.ID, events.EventCliIO, cliIOEvent("input", string(raw)))

	s.putStdin(stdin)
	return true
}

// enqueueFrame is the low-level send primitive shared by Send and the
// confirmation broker.
func (sup *Supervisor) enqueueFrame(s *Session, raw []byte) bool {
	return s.enqueue(raw)
}

// SendUserMessage encodes and enqueues a sendUserMessage request with the
// given id and text/path chunks.
func (sup *Supervisor) SendUserMessage(s *Session, id uint32, chunks []MessageChunk) error {
	frame, err := NewRequest(id, "sendUserMessage", map[string]interface{}{"chunks": chunks})
	if err != nil {
		return wrapKind(KindJSONError, err)
	}
	raw, err := Encode(frame)
	if err != nil {
		return wrapKind(KindJSONError, err)
	}
	if !sup.enqueueFrame(s, raw) {
		return &KindError{Kind: KindSessionNotFound, Cause: fmt.Errorf("session %s is not alive", s.ID)}
	}
	beginTurnSpan(s.ID, id)
	return nil
}

// MessageChunk is either {text} or {path}, distinguished structurally per
// §4.1 (no discriminator field).
type MessageChunk struct {
	Text string `json:"text,omitempty"`
	Path string `json:"path,omitempty"`
}

// Kill forcibly terminates the session's child process (§4.4 termination).
// Absence of the process is treated as success.
func (sup *Supervisor) Kill(s *Session, killer ProcessKiller) error {
	metrics.killsTotal.Inc()
	status := s.Status()
	if !status.IsAlive {
		return nil
	}
	if status.PID == 0 {
		s.markNotAlive()
		return nil
	}

	if err := killer.Kill(status.PID); err != nil {
		if killer.IsNotFound(err) {
			s.markNotAlive()
			return nil
		}
		return &KindError{Kind: KindCommandExecutionFailed, Cause: err}
	}

	s.markNotAlive()
	return nil
}

// ProcessKiller abstracts the OS-specific kill primitive so Supervisor.Kill
// is testable without spawning real processes.
type ProcessKiller interface {
	Kill(pid int) error
	IsNotFound(err error) bool
}

func joinArgs(args []string) string {
	var b bytes.Buffer
	for i, a := range args {
		if i > 0 {
			b.WriteByte(' ')
		}
		if needsQuoting(a) {
			enc, _ := json.Marshal(a)
			b.Write(enc)
		} else {
			b.WriteString(a)
		}
	}
	return b.String()
}

func needsQuoting(s string) bool {
	for _, r := range s {
		if r == ' ' || r == '"' || r == '\t' {
			return true
		}
	}
	return s == ""
}
