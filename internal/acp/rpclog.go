// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// rpcLogMaxAge bounds how long rpc-log-*.log files are retained in a
// project directory; a positive maxAge argument to NewRPCLogger overrides
// it.
const rpcLogMaxAge = 30 * 24 * time.Hour

var rpcLogNamePattern = regexp.MustCompile(`^rpc-log-(\d+)\.log$`)

// RPCLogger is the append-only transcript writer for one session (C3).
// Failures are non-fatal: the transcript is best-effort, never a reason to
// fail a caller's request.
type RPCLogger struct {
	mu  sync.Mutex
	w   *bufio.Writer
	f   *os.File
	nop bool
}

// NewRPCLogger opens (creating if needed) rpc-log-<millis>.log under dir,
// after deleting sibling rpc-log-*.log files older than maxAge (0 uses the
// default 30-day window). If dir cannot be created or the log file cannot
// be opened, a no-op logger is returned rather than an error: the
// Supervisor falls back to it silently, per the spec's no-op variant.
func NewRPCLogger(dir string, maxAge time.Duration) *RPCLogger {
	if maxAge <= 0 {
		maxAge = rpcLogMaxAge
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("acp: rpc logger: mkdir %s: %v (falling back to no-op)", dir, err)
		return &RPCLogger{nop: true}
	}

	pruneOldLogs(dir, maxAge)

	name := fmt.Sprintf("rpc-log-%d.log", time.Now().UnixMilli())
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("acp: rpc logger: open: %v (falling back to no-op)", err)
		return &RPCLogger{nop: true}
	}

	return &RPCLogger{w: bufio.NewWriter(f), f: f}
}

// Log appends one timestamped transcript line. Errors are swallowed: the
// logger never fails a user-visible operation.
func (l *RPCLogger) Log(rawFrame string) {
	if l == nil || l.nop {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	if _, err := fmt.Fprintf(l.w, "[%s] %s\n", ts, rawFrame); err != nil {
		log.Printf("acp: rpc logger: write: %v", err)
		return
	}
	if err := l.w.Flush(); err != nil {
		log.Printf("acp: rpc logger: flush: %v", err)
	}
}

// Close releases the underlying file handle, if any.
func (l *RPCLogger) Close() error {
	if l == nil || l.nop {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.w.Flush()
	return l.f.Close()
}

// pruneOldLogs deletes rpc-log-*.log files in dir whose modified time is
// older than maxAge. Best-effort: errors are logged, not propagated.
func pruneOldLogs(dir string, maxAge time.Duration) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() || !rpcLogNamePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				log.Printf("acp: rpc logger: prune %s: %v", entry.Name(), err)
			}
		}
	}
}

// parseLogMillis extracts the unix-millis component from an
// "rpc-log-<millis>.log" filename.
func parseLogMillis(name string) (int64, bool) {
	m := rpcLogNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
