// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package project implements the project registry (C4): deterministic
// project-id derivation from a canonical working-directory path, and the
// per-project metadata document that tracks when a project was first and
// most recently used.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by EnsureMetadata when no project.json exists
// and no path hint was supplied to materialize one.
var ErrNotFound = fmt.Errorf("project: metadata not found")

// Metadata is the on-disk document at
// <home>/.gemini-desktop/projects/<id>/project.json.
type Metadata struct {
	Path         string    `json:"path"`
	SHA256       string    `json:"sha256"`
	FriendlyName string    `json:"friendly_name"`
	FirstUsed    time.Time `json:"first_used"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ID computes the project id for a path: the lower-hex SHA-256 digest of
// its canonicalized absolute form (§4.3). Equal canonical paths always
// produce equal ids.
func ID(path string) (string, error) {
	canon, err := Canonicalize(path)
	if err != nil {
		return "", fmt.Errorf("project: canonicalize %q: %w", path, err)
	}
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize resolves path to its absolute, symlink-resolved form.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// A path that doesn't exist yet still canonicalizes to its
		// absolute form; only a deeper I/O failure is a PathError.
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}

// readMetadata loads the project.json document at path, tolerating unknown fields.
func readMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("project: decode %s: %w", path, err)
	}
	return &m, nil
}

// writeMetadataAtomic writes m to path via tmp-file + rename, so readers
// never observe a partially written document.
func writeMetadataAtomic(path string, m *Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("project: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("project: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".project-*.json.tmp")
	if err != nil {
		return fmt.Errorf("project: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("project: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("project: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("project: rename: %w", err)
	}
	return nil
}
