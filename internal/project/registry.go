// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var rpcLogNamePattern = regexp.MustCompile(`^rpc-log-(\d+)\.log$`)

// Registry owns the projects root directory, deterministic project-id
// derivation, per-project metadata documents, and the touch-throttle map
// shared across all sessions (C4).
type Registry struct {
	root        string
	minInterval time.Duration
	throttleMu  sync.Mutex
	throttle    map[string]*rate.Sometimes
}

// NewRegistry constructs a Registry rooted at <home>/.gemini-desktop/projects,
// where <home> is homeOverride if non-empty. minInterval bounds how often maybe_touch
// may write updated_at for a single project (default 1s, per §3).
func NewRegistry(homeOverride string, minInterval time.Duration) *Registry {
	home := homeOverride
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil || h == "" {
			// Per SPEC_FULL.md's surfaced design note (§9 open question):
			// the teacher's own source falls back to "." when no home
			// directory can be resolved; we keep that behavior explicit
			// rather than silently erroring, since a missing $HOME must
			// not prevent the core from running at all.
			home = "."
		} else {
			home = h
		}
	}
	if minInterval <= 0 {
		minInterval = time.Second
	}

	return &Registry{
		root:        filepath.Join(home, ".gemini-desktop", "projects"),
		minInterval: minInterval,
		throttle:    make(map[string]*rate.Sometimes),
	}
}

// ProjectDir returns the directory a project's metadata and rpc logs live
// under.
func (r *Registry) ProjectDir(id string) string {
	return filepath.Join(r.root, id)
}

func (r *Registry) metadataPath(id string) string {
	return filepath.Join(r.ProjectDir(id), "project.json")
}

// EnsureMetadata reads project.json for id; if absent and pathHint is
// non-empty, materializes a fresh document (both timestamps "now") and
// writes it atomically. Fails with ErrNotFound if absent and no hint was
// given (§4.3).
func (r *Registry) EnsureMetadata(id, pathHint string) (*Metadata, error) {
	path := r.metadataPath(id)
	if m, err := readMetadata(path); err == nil {
		return m, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if pathHint == "" {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	m := &Metadata{
		Path:         pathHint,
		SHA256:       id,
		FriendlyName: FriendlyName(pathHint),
		FirstUsed:    now,
		UpdatedAt:    now,
	}
	if err := writeMetadataAtomic(path, m); err != nil {
		return nil, err
	}
	return m, nil
}

// EnsureForPath derives the project id from path and ensures its metadata
// document exists, returning the id.
func (r *Registry) EnsureForPath(path string) (string, error) {
	id, err := ID(path)
	if err != nil {
		return "", err
	}
	if _, err := r.EnsureMetadata(id, path); err != nil {
		return "", err
	}
	return id, nil
}

// MaybeTouch updates updated_at to "now" for the named project, throttled
// to at most once per minInterval (§3, §8 property 6). The throttle key
// is the project id (== project root), shared process-wide, not the
// session. rate.Sometimes.Do is itself safe for concurrent callers, but we
// still key one Sometimes per project so unrelated projects never throttle
// each other.
func (r *Registry) MaybeTouch(id string) error {
	sometimes := r.sometimesFor(id)

	var writeErr error
	sometimes.Do(func() {
		m, err := readMetadata(r.metadataPath(id))
		if err != nil {
			writeErr = err
			return
		}
		m.UpdatedAt = time.Now().UTC()
		writeErr = writeMetadataAtomic(r.metadataPath(id), m)
	})
	return writeErr
}

func (r *Registry) sometimesFor(id string) *rate.Sometimes {
	r.throttleMu.Lock()
	defer r.throttleMu.Unlock()
	s, ok := r.throttle[id]
	if !ok {
		s = &rate.Sometimes{Interval: r.minInterval}
		r.throttle[id] = s
	}
	return s
}

// ProjectSummary is one page entry from ListProjects.
type ProjectSummary struct {
	ID             string    `json:"id"`
	Path           string    `json:"path"`
	FriendlyName   string    `json:"friendlyName"`
	LogCount       int       `json:"logCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	Status         string    `json:"status"`
}

// ListProjects enumerates project directories (64 lowercase-hex names),
// sorted ascending, paginated by limit/offset (§4.3).
func (r *Registry) ListProjects(limit, offset int) ([]ProjectSummary, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() && isSHA256HexName(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return nil, nil
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := ids[offset:end]

	out := make([]ProjectSummary, 0, len(page))
	for _, id := range page {
		summary, err := r.summarize(id)
		if err != nil {
			continue
		}
		out = append(out, summary)
	}
	return out, nil
}

func (r *Registry) summarize(id string) (ProjectSummary, error) {
	dir := r.ProjectDir(id)
	meta, metaErr := readMetadata(filepath.Join(dir, "project.json"))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ProjectSummary{}, err
	}

	var logCount int
	var earliestMillis, latestMillis int64
	var latestMTime time.Time

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ms, ok := parseLogMillis(e.Name()); ok {
			logCount++
			if earliestMillis == 0 || ms < earliestMillis {
				earliestMillis = ms
			}
			if ms > latestMillis {
				latestMillis = ms
			}
			if info, err := e.Info(); err == nil && info.ModTime().After(latestMTime) {
				latestMTime = info.ModTime()
			}
		}
	}

	summary := ProjectSummary{ID: id, LogCount: logCount}
	if metaErr == nil {
		summary.Path = meta.Path
		summary.FriendlyName = meta.FriendlyName
	}

	if earliestMillis > 0 {
		summary.CreatedAt = time.UnixMilli(earliestMillis).UTC()
	}
	if latestMillis > 0 {
		summary.UpdatedAt = time.UnixMilli(latestMillis).UTC()
	} else if !latestMTime.IsZero() {
		summary.UpdatedAt = latestMTime.UTC()
	}
	summary.LastActivityAt = summary.UpdatedAt

	if logCount > 0 {
		summary.Status = "active"
	} else {
		summary.Status = "unknown"
	}

	return summary, nil
}

// PruneAllRPCLogs walks every project directory and removes rpc-log-*.log
// files older than maxAge (§4.2's supplementary daily sweep, run by the
// app's cron job in addition to the at-session-start prune).
func (r *Registry) PruneAllRPCLogs(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int
	for _, e := range entries {
		if !e.IsDir() || !isSHA256HexName(e.Name()) {
			continue
		}
		dir := r.ProjectDir(e.Name())
		logEntries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, le := range logEntries {
			ms, ok := parseLogMillis(le.Name())
			if !ok {
				continue
			}
			if time.UnixMilli(ms).Before(cutoff) {
				if err := os.Remove(filepath.Join(dir, le.Name())); err == nil {
					removed++
				}
			}
		}
	}
	return removed, nil
}

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

func isSHA256HexName(name string) bool {
	if len(name) != 64 {
		return false
	}
	for _, r := range name {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// FriendlyName derives a friendly project name from path, replacing path
// separators and drive-colons with "-" and collapsing empty segments.
// Same derivation as config.FriendlyName, implemented here so project does
// not import config.
func FriendlyName(path string) string {
	var out []rune
	for _, r := range path {
		switch r {
		case '/', '\\', ':':
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	parts := splitNonEmpty(string(out), '-')
	if len(parts) == 0 {
		return "root"
	}
	joined := parts[0]
	for _, p := range parts[1:] {
		joined += "-" + p
	}
	return joined
}

func splitNonEmpty(s string, sep rune) []string {
	var parts []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, string(cur))
			cur = nil
		}
	}
	for _, r := range s {
		if r == sep {
			flush()
			continue
		}
		cur = append(cur, r)
	}
	flush()
	return parts
}
