// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package acp

import (
	"os/exec"
	"strconv"
)

// killWindows shells out to taskkill /F, matching the teacher's own
// Windows process-termination pattern.
func killWindows(pid int) error {
	cmd := exec.Command("taskkill", "/F", "/PID", strconv.Itoa(pid))
	return cmd.Run()
}

// killUnix is unreachable on Windows; present only so killer.go compiles
// uniformly across GOOS.
func killUnix(pid int) error { return nil }
