// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"errors"
	"os"
	"runtime"

	ps "github.com/mitchellh/go-ps"
)

// osProcessKiller terminates processes via OS primitives: POSIX sends
// SIGKILL, Windows shells out to taskkill /F (§4.4). Liveness is checked
// first via go-ps so a kill of an already-exited pid is reported as
// "not found" rather than surfaced as a command failure.
type osProcessKiller struct{}

// NewOSProcessKiller returns the production ProcessKiller.
func NewOSProcessKiller() ProcessKiller { return osProcessKiller{} }

func (osProcessKiller) Kill(pid int) error {
	proc, err := ps.FindProcess(pid)
	if err != nil {
		return err
	}
	if proc == nil {
		return os.ErrProcessDone
	}

	if runtime.GOOS == "windows" {
		return killWindows(pid)
	}
	return killUnix(pid)
}

func (osProcessKiller) IsNotFound(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
