// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package acp

import (
	"os"
	"syscall"
)

// killUnix sends SIGKILL to pid.
func killUnix(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGKILL)
}

// killWindows is unreachable on a non-Windows build; present only so
// killer.go compiles uniformly across GOOS.
func killWindows(pid int) error { return nil }
